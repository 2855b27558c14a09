package server

import (
	"context"
	"log/slog"

	"github.com/fairbatch/fairbatch/api/httpserver"
	"github.com/fairbatch/fairbatch/engine"
)

// Server bundles the HTTP front-end with a running engine instance.
type Server struct {
	*httpserver.BaseServer

	engine  *engine.Engine
	handler *Handler
	log     *slog.Logger
	cancel  context.CancelFunc
}

// New creates a settlement API server around the given engine.
func New(cfg *httpserver.HTTPServerConfig, eng *engine.Engine) (*Server, error) {
	handler := NewHandler(eng, cfg.Log)

	base, err := httpserver.New(cfg, handler)
	if err != nil {
		return nil, err
	}

	return &Server{
		BaseServer: base,
		engine:     eng,
		handler:    handler,
		log:        cfg.Log,
	}, nil
}

// Start runs the engine's phase loop and the HTTP server in the background.
func (s *Server) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.engine.Run(ctx)
	s.RunInBackground()
}

// Stop shuts down the HTTP server and stops phase progression.
func (s *Server) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.Shutdown()
}

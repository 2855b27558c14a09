package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fairbatch/fairbatch/aggregator"
	"github.com/fairbatch/fairbatch/engine"
	"github.com/fairbatch/fairbatch/protocol"
)

// Handler exposes one engine instance's operations as HTTP endpoints.
type Handler struct {
	engine *engine.Engine
	log    *slog.Logger
}

// NewHandler creates a handler for the given engine.
func NewHandler(eng *engine.Engine, log *slog.Logger) *Handler {
	return &Handler{engine: eng, log: log}
}

// RegisterRoutes registers the settlement API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/commit", h.commit)
	r.Post("/api/reveal", h.reveal)
	r.Post("/api/settle/{batch}", h.settle)
	r.Post("/api/settle-proposal", h.settleProposal)
	r.Post("/api/withdraw-bond", h.withdrawBond)
	r.Get("/api/phase", h.phase)
	r.Get("/api/batch/{batch}", h.batch)
	r.Get("/api/proof/{batch}/{commitment}", h.proof)
	r.Get("/api/root", h.root)
}

// statusForError maps engine errors onto HTTP status codes. Phase violations
// and repeat settlements are conflicts the caller can only wait out; a
// breaker deferral asks the caller to retry later.
func statusForError(err error) int {
	switch {
	case errors.Is(err, protocol.ErrInvalidPhase), errors.Is(err, protocol.ErrAlreadySettled):
		return http.StatusConflict
	case errors.Is(err, protocol.ErrPriceDeviationExceeded):
		return http.StatusServiceUnavailable
	case errors.Is(err, protocol.ErrInvalidReveal),
		errors.Is(err, protocol.ErrInsufficientBond),
		errors.Is(err, protocol.ErrIncompleteAggregation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusForError(err), map[string]string{"error": err.Error()})
}

func (h *Handler) commit(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	signed, err := protocol.DecodeMessage[protocol.Signed[protocol.CommitRequest]](r.Body)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse request: %v", err), http.StatusBadRequest)
		return
	}

	commitment, err := h.engine.Commit(signed)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, commitment)
}

func (h *Handler) reveal(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	signed, err := protocol.DecodeMessage[protocol.Signed[protocol.RevealRequest]](r.Body)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse request: %v", err), http.StatusBadRequest)
		return
	}

	order, err := h.engine.Reveal(signed)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) settle(w http.ResponseWriter, r *http.Request) {
	batch, err := batchParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	outcome, err := h.engine.Settle(r.Context(), batch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (h *Handler) settleProposal(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	signed, err := protocol.DecodeMessage[protocol.Signed[aggregator.Proposal]](r.Body)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse request: %v", err), http.StatusBadRequest)
		return
	}

	outcome, err := h.engine.SettleProposal(r.Context(), signed)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (h *Handler) withdrawBond(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	signed, err := protocol.DecodeMessage[protocol.Signed[protocol.WithdrawBondRequest]](r.Body)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse request: %v", err), http.StatusBadRequest)
		return
	}

	returned, err := h.engine.WithdrawBond(signed)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"returned": returned.String()})
}

func (h *Handler) phase(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.CurrentPhase())
}

func (h *Handler) batch(w http.ResponseWriter, r *http.Request) {
	batch, err := batchParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	record, err := h.engine.BatchRecord(batch)
	if errors.Is(err, engine.ErrBatchNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *Handler) proof(w http.ResponseWriter, r *http.Request) {
	batch, err := batchParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	commitment, err := uuid.Parse(chi.URLParam(r, "commitment"))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid commitment id: %v", err), http.StatusBadRequest)
		return
	}

	proof, err := h.engine.Prove(batch, commitment)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, proof)
}

func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	root := h.engine.AccumulatorRoot()
	writeJSON(w, http.StatusOK, map[string]string{"root": root.String()})
}

func batchParam(r *http.Request) (protocol.BatchID, error) {
	raw := chi.URLParam(r, "batch")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid batch id %q: %w", raw, err)
	}
	return protocol.BatchID(id), nil
}

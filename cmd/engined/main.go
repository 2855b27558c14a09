// Command engined runs the batch settlement engine for one trading pair.
//
// The engine accepts bonded order commitments during each batch's commit
// window, reveals during the reveal window, and settles every batch at a
// single uniform clearing price once the reveal window closes. Settlement
// runs automatically at reveal close and stays permissionless through the
// POST /api/settle endpoint.
//
// # Archive Backends
//
// Per-batch audit records are persisted through the --archive backend:
//
//	memory    in-process only, lost on restart (default)
//	postgres  PostgreSQL via the --pg-* flags
//	pebble    embedded key-value store at --pebble-path
//
// # Outcome Stream
//
// With --kafka-brokers set, every clearing outcome is published as a JSON
// message to the --kafka-topic topic, keyed by batch ID.
//
// # Usage
//
//	go run ./cmd/engined --addr=:8080 --base=ETH --quote=USDC
//	go run ./cmd/engined --archive=postgres --pg-host=localhost --pg-db=fairbatch
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fairbatch/fairbatch/api/httpserver"
	"github.com/fairbatch/fairbatch/auction"
	"github.com/fairbatch/fairbatch/engine"
	"github.com/fairbatch/fairbatch/protocol"
	"github.com/fairbatch/fairbatch/server"
)

func main() {
	var (
		addr         = flag.String("addr", ":8080", "HTTP listen address")
		base         = flag.String("base", "ETH", "Base asset symbol")
		quote        = flag.String("quote", "USDC", "Quote asset symbol")
		commitWindow = flag.Duration("commit-window", 8*time.Second, "Commit window duration")
		revealWindow = flag.Duration("reveal-window", 2*time.Second, "Reveal window duration")
		minBond      = flag.String("min-bond", "1", "Minimum commitment bond (quote asset)")
		feeBps       = flag.Int64("fee-bps", 0, "Protocol fee in basis points")
		maxDeviation = flag.String("max-deviation", "0.05", "Circuit-breaker price deviation bound")
		twapWindow   = flag.Duration("twap-window", 10*time.Minute, "TWAP lookback window")
		reserveBase  = flag.String("reserve-base", "1000", "Initial pool base reserve")
		reserveQuote = flag.String("reserve-quote", "4000000", "Initial pool quote reserve")
		oraclePrice  = flag.String("oracle-price", "", "Static oracle reference price (empty disables)")
		archive      = flag.String("archive", "memory", "Archive backend: memory, postgres or pebble")
		pgHost       = flag.String("pg-host", "localhost", "PostgreSQL host")
		pgPort       = flag.Int("pg-port", 5432, "PostgreSQL port")
		pgUser       = flag.String("pg-user", "fairbatch", "PostgreSQL user")
		pgPassword   = flag.String("pg-password", "", "PostgreSQL password")
		pgDatabase   = flag.String("pg-db", "fairbatch", "PostgreSQL database")
		pebblePath   = flag.String("pebble-path", "fairbatch.db", "Pebble archive path")
		kafkaBrokers = flag.String("kafka-brokers", "", "Comma-separated Kafka brokers (empty disables)")
		kafkaTopic   = flag.String("kafka-topic", "fairbatch.outcomes", "Kafka outcome topic")
		enablePprof  = flag.Bool("pprof", false, "Enable pprof debugging endpoints")
	)
	flag.Parse()

	log := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	cfg := protocol.DefaultConfig(protocol.TradingPair{Base: *base, Quote: *quote})
	cfg.CommitWindow = *commitWindow
	cfg.RevealWindow = *revealWindow
	cfg.FeeBps = *feeBps
	cfg.TWAPWindow = *twapWindow

	var err error
	if cfg.MinBond, err = decimal.NewFromString(*minBond); err != nil {
		fmt.Printf("Invalid --min-bond: %v\n", err)
		os.Exit(1)
	}
	if cfg.MaxPriceDeviation, err = decimal.NewFromString(*maxDeviation); err != nil {
		fmt.Printf("Invalid --max-deviation: %v\n", err)
		os.Exit(1)
	}

	rb, err := decimal.NewFromString(*reserveBase)
	if err != nil {
		fmt.Printf("Invalid --reserve-base: %v\n", err)
		os.Exit(1)
	}
	rq, err := decimal.NewFromString(*reserveQuote)
	if err != nil {
		fmt.Printf("Invalid --reserve-quote: %v\n", err)
		os.Exit(1)
	}
	pool, err := auction.NewPool(cfg.Pair, rb, rq, time.Now())
	if err != nil {
		fmt.Printf("Pool error: %v\n", err)
		os.Exit(1)
	}

	store, err := openArchive(*archive, &engine.PostgresConfig{
		Host:     *pgHost,
		Port:     *pgPort,
		User:     *pgUser,
		Password: *pgPassword,
		Database: *pgDatabase,
	}, *pebblePath)
	if err != nil {
		fmt.Printf("Archive error: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	opts := []engine.Option{
		engine.WithLogger(log),
		engine.WithCompliance(engine.NewDenyList()),
		engine.WithAutoSettle(),
	}
	if *oraclePrice != "" {
		price, err := decimal.NewFromString(*oraclePrice)
		if err != nil {
			fmt.Printf("Invalid --oracle-price: %v\n", err)
			os.Exit(1)
		}
		opts = append(opts, engine.WithOracle(engine.NewStaticOracle(price)))
	}
	if *kafkaBrokers != "" {
		publisher := engine.NewKafkaPublisher(splitBrokers(*kafkaBrokers), *kafkaTopic)
		defer publisher.Close()
		opts = append(opts, engine.WithPublisher(publisher))
	}

	eng := engine.NewEngine(cfg, engine.NewInMemoryCustody(), store, pool, opts...)

	srv, err := server.New(&httpserver.HTTPServerConfig{
		ListenAddr:               *addr,
		EnablePprof:              *enablePprof,
		Log:                      log,
		DrainDuration:            5 * time.Second,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              15 * time.Second,
		WriteTimeout:             15 * time.Second,
	}, eng)
	if err != nil {
		fmt.Printf("Create server error: %v\n", err)
		os.Exit(1)
	}

	srv.Start()
	log.Info("engine running", "pair", cfg.Pair.String(), "addr", *addr,
		"commit_window", cfg.CommitWindow, "reveal_window", cfg.RevealWindow)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	srv.Stop()
}

func openArchive(backend string, pg *engine.PostgresConfig, pebblePath string) (engine.ArchiveStore, error) {
	switch backend {
	case "memory":
		return engine.NewInMemoryArchive(), nil
	case "postgres":
		return engine.NewPostgresArchive(pg)
	case "pebble":
		return engine.NewPebbleArchive(pebblePath)
	default:
		return nil, fmt.Errorf("unknown archive backend %q", backend)
	}
}

func splitBrokers(list string) []string {
	var brokers []string
	for _, b := range strings.Split(list, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

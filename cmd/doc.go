// Package cmd provides CLI commands for the batch settlement engine.
//
// # Commands
//
// engined: Runs the settlement engine for one trading pair, exposing the
// commit/reveal/settle API over HTTP.
//
//	go run ./cmd/engined --addr=:8080 --base=ETH --quote=USDC
//	go run ./cmd/engined --archive=postgres --pg-host=localhost --pg-db=fairbatch
//
// batch-cli: CLI for trading against a running engine. It handles the
// commit-reveal choreography: generating a secret, hashing the order,
// posting the bonded commit during the commit window and revealing during
// the reveal window.
//
//	go run ./cmd/batch-cli buy --server=http://localhost:8080 --amount-in=100 --min-out=0.05
//	go run ./cmd/batch-cli sell --server=http://localhost:8080 --amount-in=2 --min-out=3800
//	go run ./cmd/batch-cli phase --server=http://localhost:8080
//
// # Configuration
//
// All commands are configured through flags. The engine daemon's archive
// backend is selected with --archive: memory (default), postgres or pebble.
// Kafka outcome publishing is enabled by supplying --kafka-brokers.
package cmd

// Package server exposes the settlement engine over HTTP.
//
// The API accepts signed commit, reveal, withdrawal and settlement requests,
// and serves phase, batch and inclusion-proof queries. Every state-changing
// request carries an Ed25519 signature envelope; the handler recovers the
// signer and hands the verified request to the engine.
//
// Error mapping is uniform: phase violations and repeated settlement are
// conflicts, malformed or underfunded requests are bad requests, and a
// circuit-breaker deferral is a service-unavailable with retry semantics.
package server

// Package crypto provides cryptographic primitives for the batch settlement
// protocol.
//
// This package implements the low-level operations required by the
// commit-reveal auction lifecycle, including:
//
//   - Digital signatures (Ed25519) for authenticating commit, reveal and
//     settlement messages
//   - The commitment hash construction binding order parameters to a secret
//     during the commit window
//   - Seed derivation for the verifiable post-reveal execution ordering
//
// Commitments are SHA-256 digests over the canonical encoding of the order
// parameters concatenated with the committer's secret. The secret is what
// keeps an order hidden while the commit window is open.
//
// The ordering seed is a SHA-256 digest over all revealed secrets
// concatenated in commitment-ID order. No party knows all secrets before the
// reveal window closes, so the seed is unpredictable during commit, yet
// anyone can recompute it from public post-reveal data. The seed is expanded
// into a deterministic byte stream with HKDF for use by the Fisher-Yates
// shuffle.
package crypto

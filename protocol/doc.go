// Package protocol defines the batch auction lifecycle: phases, the clock
// that derives them from wall time, the data model shared by every component,
// and the error kinds of the public API.
//
// # Batch Lifecycle
//
// Trading happens in consecutive, fixed-length batches. Each batch moves
// through four phases:
//
//	Commit -> Reveal -> Settling -> Settled
//
// During Commit, participants submit hashed order intents backed by a bond.
// During Reveal, they open their commitments; a commitment that is not
// opened by the end of the window is slashed. Settling begins when the
// reveal window closes and lasts until any party triggers settlement, which
// computes one uniform clearing price for the whole batch and moves the
// batch to its terminal Settled phase.
//
// Commit and Reveal are time-bounded and derived purely from wall clock via
// BatchClock, so every node agrees on the current batch and phase without
// coordination. The Settling -> Settled transition is the only one driven by
// an explicit call; it is permissionless and idempotent.
//
// The commit window of batch N+1 opens while batch N is still settling.
// Commitments are therefore accepted for the current commit-phase batch or
// the next one, never for a batch whose commit window has closed.
//
// # Authentication
//
// All client-facing operations are wrapped in Signed envelopes carrying an
// Ed25519 signature. The signer's public key is the participant identity:
// the owner of a commitment is whoever signed the commit message.
package protocol

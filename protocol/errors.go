package protocol

import "errors"

// Error kinds of the public API. Every failure is scoped to a single
// commitment, order or batch; none are fatal to the process.
var (
	// ErrInvalidPhase rejects an operation attempted outside its valid
	// window. Not retriable until the phase changes; callers must wait.
	ErrInvalidPhase = errors.New("operation not valid in current phase")

	// ErrInvalidReveal rejects a reveal whose hash does not match the stored
	// commitment, or that references an unknown commitment or wrong batch.
	// Terminal for the commitment: it will be slashed at window close.
	ErrInvalidReveal = errors.New("invalid reveal")

	// ErrInsufficientBond rejects a commit whose bond is below the protocol
	// minimum. The caller may resubmit with an adequate bond.
	ErrInsufficientBond = errors.New("bond below protocol minimum")

	// ErrPriceDeviationExceeded defers settlement when the clearing price
	// deviates from the reference beyond the configured bound. The batch
	// stays in Settling; only the affected pair pauses.
	ErrPriceDeviationExceeded = errors.New("clearing price deviation exceeds bound")

	// ErrIncompleteAggregation rejects a proposed settlement set that omits
	// an eligible, non-flagged order. The whole proposal is rejected, never
	// partially accepted.
	ErrIncompleteAggregation = errors.New("proposal omits eligible orders")

	// ErrAlreadySettled guards settlement idempotency: settling a settled
	// batch is a safe no-op-with-error, not a fault.
	ErrAlreadySettled = errors.New("batch already settled")
)

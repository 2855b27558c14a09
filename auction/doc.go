// Package auction implements the batch auction core: peer order matching,
// the constant-product AMM reserve, uniform-price clearing and the
// verifiable execution ordering.
//
// The pipeline is strictly one-directional. The matching engine consumes the
// full revealed-order set of one batch and maps every unit of order volume
// to either a peer order on the opposite side or the AMM reserve. The
// clearing engine consumes that mapping, computes a single clearing price
// for the whole batch and produces the immutable ClearingOutcome, residual
// pool deltas included. There are no back-edges: matching output is
// read-only input to clearing, and the AMM reserve is mutated exactly once
// per batch, by the settlement step that applies the outcome's deltas.
//
// # Uniform price
//
// Buyers spend their quote input and receive base at the clearing price P;
// sellers deliver base and receive quote at the same P. The net imbalance
// between the two sides trades against the constant-product pool, and P is
// defined as the effective price of that pool trade, so peer-matched and
// AMM-routed legs execute at an identical price. When the two sides balance
// exactly, P is the pool's spot price.
//
// Orders whose limit constraint is violated at P are excluded from the
// batch and fully refunded; the price is then recomputed over the remaining
// set until no further exclusions occur.
package auction

package auction

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fairbatch/fairbatch/protocol"
)

// ClearingInput carries everything the clearing engine needs for one batch.
// Orders is the full revealed, eligible set; the engine must see all of it
// before computing anything, so clearing runs as a single serialized step.
type ClearingInput struct {
	Batch  protocol.BatchID
	Pair   protocol.TradingPair
	Orders []*protocol.Order
	Pool   *Pool

	// Revealed is the full revealed set the ordering seed is derived from,
	// a superset of Orders when an aggregation layer filtered the batch.
	// Nil means Orders is the full set.
	Revealed []*protocol.Order

	// Reference is the oracle price for the circuit breaker; zero disables
	// the oracle check. It is a breaker input only, never a settlement input.
	Reference decimal.Decimal

	// MaxDeviation bounds how far the clearing price may sit from the TWAP
	// and oracle references; zero disables the breaker.
	MaxDeviation decimal.Decimal
	TWAPWindow   time.Duration

	FeeBps int64
	Now    time.Time
}

// Clear computes the uniform clearing price for a batch and produces its
// ClearingOutcome, including the residual pool deltas. The pool itself is
// not mutated: the caller applies the deltas with Pool.ApplyFill once the
// settlement's custody movements have committed, so a custody failure leaves
// the pool untouched and the batch retryable. Clear validates the deltas
// against the pool's once-per-batch fill guard up front.
//
// The clearing price is the unique P at which the net imbalance between the
// two sides trades against the constant-product pool without moving its
// invariant: with B the included buy quote, S the included sell base and
// (Rb, Rq) the reserves, P = (Rq+B)/(Rb+S). Every participant's effective
// price equals P whether their volume was peer-matched or AMM-routed.
//
// Orders whose limit is violated at P are excluded and fully refunded, and
// the price recomputed over the remainder; exclusions never affect the
// clearing price of the orders that stay in.
func Clear(in ClearingInput) (*protocol.ClearingOutcome, error) {
	included := slices.Clone(in.Orders)
	slices.SortFunc(included, protocol.OrdersByID)

	reserveBase, reserveQuote := in.Pool.Reserves()

	var price decimal.Decimal
	var excluded []uuid.UUID
	for {
		buyQuote, sellBase := sideTotals(included)
		price = clearingPrice(reserveBase, reserveQuote, buyQuote, sellBase)

		kept := included[:0]
		dropped := false
		for _, o := range included {
			if limitViolated(o, price) {
				excluded = append(excluded, o.CommitmentID)
				dropped = true
				continue
			}
			kept = append(kept, o)
		}
		included = kept
		if !dropped {
			break
		}
	}

	if in.MaxDeviation.IsPositive() {
		twap := in.Pool.TWAP(in.TWAPWindow, in.Now)
		if deviates(price, twap, in.MaxDeviation) {
			return nil, fmt.Errorf("%w: price %s vs twap %s",
				protocol.ErrPriceDeviationExceeded, price, twap)
		}
		if in.Reference.IsPositive() && deviates(price, in.Reference, in.MaxDeviation) {
			return nil, fmt.Errorf("%w: price %s vs oracle %s",
				protocol.ErrPriceDeviationExceeded, price, in.Reference)
		}
	}

	// Ordering seed covers the full revealed set, exclusions and filtered
	// orders included: the seed must be recomputable from public reveal data
	// alone.
	revealed := in.Revealed
	if revealed == nil {
		revealed = in.Orders
	}
	seed := SeedForBatch(revealed)
	matches := Match(included, price)
	execution := ExecutionOrder(included, seed)
	fills, feesBase, feesQuote := computeFills(execution, price, in.FeeBps)

	// Net residual trade against the pool. Conservation gives the quote leg
	// as P times the base leg; both are zero when the sides balance.
	buyQuote, sellBase := sideTotals(included)
	baseDelta := buyQuote.Div(price).Sub(sellBase)
	quoteDelta := buyQuote.Sub(sellBase.Mul(price))

	if err := in.Pool.CheckFill(in.Batch, baseDelta, quoteDelta); err != nil {
		return nil, err
	}

	return &protocol.ClearingOutcome{
		Batch:          in.Batch,
		Pair:           in.Pair,
		ClearingPrice:  price,
		Matches:        matches,
		Fills:          fills,
		Excluded:       excluded,
		PoolBaseDelta:  baseDelta,
		PoolQuoteDelta: quoteDelta,
		FeesBase:       feesBase,
		FeesQuote:      feesQuote,
		SettledAt:      in.Now,
	}, nil
}

// clearingPrice returns the uniform price for the given side totals against
// the pool reserves. Reduces to the spot price when the sides balance and
// to the pool's effective execution price when one side is empty.
func clearingPrice(reserveBase, reserveQuote, buyQuote, sellBase decimal.Decimal) decimal.Decimal {
	return reserveQuote.Add(buyQuote).Div(reserveBase.Add(sellBase))
}

// sideTotals sums included buy volume (quote) and sell volume (base).
func sideTotals(orders []*protocol.Order) (buyQuote, sellBase decimal.Decimal) {
	buyQuote, sellBase = decimal.Zero, decimal.Zero
	for _, o := range orders {
		if o.Params.Direction == protocol.Buy {
			buyQuote = buyQuote.Add(o.Params.AmountIn)
		} else {
			sellBase = sellBase.Add(o.Params.AmountIn)
		}
	}
	return buyQuote, sellBase
}

// limitViolated reports whether the order's minAmountOut constraint fails at
// the given price.
func limitViolated(o *protocol.Order, price decimal.Decimal) bool {
	limit, ok := o.Params.LimitPrice()
	if !ok {
		return false
	}
	if o.Params.Direction == protocol.Buy {
		return price.GreaterThan(limit)
	}
	return price.LessThan(limit)
}

// deviates reports whether price sits further than bound (a fraction) from
// the reference.
func deviates(price, reference, bound decimal.Decimal) bool {
	if !reference.IsPositive() {
		return false
	}
	return price.Sub(reference).Abs().Div(reference).GreaterThan(bound)
}

// computeFills produces per-order executed amounts at the clearing price, in
// execution order. The protocol fee is charged on each order's output leg
// and accounted in that leg's asset: buy-side fees accrue in base, sell-side
// fees in quote.
func computeFills(execution []*protocol.Order, price decimal.Decimal, feeBps int64) (fills []protocol.Fill, feesBase, feesQuote decimal.Decimal) {
	bps := decimal.New(feeBps, -4)
	feesBase, feesQuote = decimal.Zero, decimal.Zero
	fills = make([]protocol.Fill, 0, len(execution))

	for _, o := range execution {
		var out, fee decimal.Decimal
		if o.Params.Direction == protocol.Buy {
			out = o.Params.AmountIn.Div(price)
			fee = out.Mul(bps)
			feesBase = feesBase.Add(fee)
		} else {
			out = o.Params.AmountIn.Mul(price)
			fee = out.Mul(bps)
			feesQuote = feesQuote.Add(fee)
		}
		fills = append(fills, protocol.Fill{
			OrderID:   o.CommitmentID,
			AmountIn:  o.Params.AmountIn,
			AmountOut: out.Sub(fee),
		})
	}
	return fills, feesBase, feesQuote
}

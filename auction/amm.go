package auction

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fairbatch/fairbatch/protocol"
)

// ErrFillAlreadyApplied guards the pool's once-per-batch mutation rule.
var ErrFillAlreadyApplied = errors.New("pool fill already applied for batch")

// ErrInsufficientLiquidity rejects a quote or fill that would drain a
// reserve.
var ErrInsufficientLiquidity = errors.New("insufficient pool liquidity")

type twapCheckpoint struct {
	at         time.Time
	cumulative decimal.Decimal
}

// Pool is a constant-product AMM reserve for one trading pair. It absorbs
// the residual volume the matching engine cannot pair internally.
//
// The pool is a shared resource with a single mutator: the settlement step
// calls ApplyFill exactly once per batch, with the deltas the clearing
// engine computed and validated through CheckFill. Everything else gets
// read-only quotes. The cumulative TWAP accumulator updates on every
// fill and serves as the manipulation-resistance reference for the clearing
// circuit breaker.
type Pool struct {
	mu   sync.RWMutex
	pair protocol.TradingPair

	reserveBase  decimal.Decimal
	reserveQuote decimal.Decimal

	appliedBatch protocol.BatchID
	applied      bool

	// TWAP accumulator: cumulative spot-price-seconds, checkpointed at
	// every update so windowed averages need no replay.
	cumulative  decimal.Decimal
	lastUpdate  time.Time
	checkpoints []twapCheckpoint
}

// NewPool creates a pool with the given initial reserves.
func NewPool(pair protocol.TradingPair, reserveBase, reserveQuote decimal.Decimal, now time.Time) (*Pool, error) {
	if !reserveBase.IsPositive() || !reserveQuote.IsPositive() {
		return nil, fmt.Errorf("reserves must be positive, got %s base / %s quote", reserveBase, reserveQuote)
	}
	p := &Pool{
		pair:         pair,
		reserveBase:  reserveBase,
		reserveQuote: reserveQuote,
		cumulative:   decimal.Zero,
		lastUpdate:   now,
	}
	p.checkpoints = []twapCheckpoint{{at: now, cumulative: decimal.Zero}}
	return p, nil
}

// Pair returns the pool's trading pair.
func (p *Pool) Pair() protocol.TradingPair {
	return p.pair
}

// Reserves returns the current base and quote reserves.
func (p *Pool) Reserves() (base, quote decimal.Decimal) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.reserveBase, p.reserveQuote
}

// Spot returns the instantaneous quote-per-base price.
func (p *Pool) Spot() decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.spotLocked()
}

func (p *Pool) spotLocked() decimal.Decimal {
	return p.reserveQuote.Div(p.reserveBase)
}

// QuoteBaseOut returns the quote amount that must be paid to withdraw
// baseOut from the reserve: quoteIn = Rq*baseOut/(Rb-baseOut).
func (p *Pool) QuoteBaseOut(baseOut decimal.Decimal) (decimal.Decimal, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if baseOut.GreaterThanOrEqual(p.reserveBase) {
		return decimal.Zero, ErrInsufficientLiquidity
	}
	return p.reserveQuote.Mul(baseOut).Div(p.reserveBase.Sub(baseOut)), nil
}

// QuoteBaseIn returns the quote proceeds of depositing baseIn into the
// reserve: quoteOut = Rq*baseIn/(Rb+baseIn).
func (p *Pool) QuoteBaseIn(baseIn decimal.Decimal) decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.reserveQuote.Mul(baseIn).Div(p.reserveBase.Add(baseIn))
}

// Quote prices a swap of amountIn against the pool without mutating it.
// For buys amountIn is quote and the result is base; for sells the reverse.
func (p *Pool) Quote(direction protocol.Direction, amountIn decimal.Decimal) (decimal.Decimal, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if direction == protocol.Buy {
		// base out for quote in: Rb*amountIn/(Rq+amountIn)
		return p.reserveBase.Mul(amountIn).Div(p.reserveQuote.Add(amountIn)), nil
	}
	return p.reserveQuote.Mul(amountIn).Div(p.reserveBase.Add(amountIn)), nil
}

// CheckFill validates a prospective residual fill without mutating the pool:
// the once-per-batch guard and the reserve bounds are checked exactly as
// ApplyFill would.
func (p *Pool) CheckFill(batch protocol.BatchID, baseDelta, quoteDelta decimal.Decimal) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, _, err := p.fillReservesLocked(batch, baseDelta, quoteDelta)
	return err
}

// ApplyFill mutates the reserves by the residual trade of one settled batch:
// baseDelta leaves the pool (negative means the pool receives base) and
// quoteDelta enters it (negative means the pool pays quote out). Callable
// only once per batch; a second call for the same batch fails with
// ErrFillAlreadyApplied.
func (p *Pool) ApplyFill(batch protocol.BatchID, baseDelta, quoteDelta decimal.Decimal, now time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	newBase, newQuote, err := p.fillReservesLocked(batch, baseDelta, quoteDelta)
	if err != nil {
		return err
	}

	// Accrue price-time up to now at the pre-fill spot, then move reserves.
	p.accrueLocked(now)
	p.reserveBase = newBase
	p.reserveQuote = newQuote
	p.appliedBatch = batch
	p.applied = true
	p.checkpoint(now)

	return nil
}

func (p *Pool) fillReservesLocked(batch protocol.BatchID, baseDelta, quoteDelta decimal.Decimal) (newBase, newQuote decimal.Decimal, err error) {
	if p.applied && batch <= p.appliedBatch {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: batch %d", ErrFillAlreadyApplied, batch)
	}
	newBase = p.reserveBase.Sub(baseDelta)
	newQuote = p.reserveQuote.Add(quoteDelta)
	if !newBase.IsPositive() || !newQuote.IsPositive() {
		return decimal.Zero, decimal.Zero, ErrInsufficientLiquidity
	}
	return newBase, newQuote, nil
}

// accrueLocked extends the cumulative price-seconds accumulator to now.
func (p *Pool) accrueLocked(now time.Time) {
	elapsed := now.Sub(p.lastUpdate).Seconds()
	if elapsed <= 0 {
		return
	}
	p.cumulative = p.cumulative.Add(p.spotLocked().Mul(decimal.NewFromFloat(elapsed)))
	p.lastUpdate = now
}

func (p *Pool) checkpoint(now time.Time) {
	p.checkpoints = append(p.checkpoints, twapCheckpoint{at: now, cumulative: p.cumulative})
}

// TWAP returns the time-weighted average price over the trailing window.
// Falls back to spot when the pool has no history covering the window.
func (p *Pool) TWAP(window time.Duration, now time.Time) decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.accrueLocked(now)

	cutoff := now.Add(-window)
	// Latest checkpoint at or before the cutoff; checkpoints are appended in
	// time order.
	var base twapCheckpoint
	found := false
	for i := len(p.checkpoints) - 1; i >= 0; i-- {
		if !p.checkpoints[i].at.After(cutoff) {
			base = p.checkpoints[i]
			found = true
			break
		}
	}
	if !found {
		base = p.checkpoints[0]
	}

	elapsed := now.Sub(base.at).Seconds()
	if elapsed <= 0 {
		return p.spotLocked()
	}

	// Interpolate: the accumulator at the cutoff equals the checkpoint value
	// plus spot-at-checkpoint times the gap, but since reserves only move at
	// checkpoints the segment rate is constant and the base value is exact.
	return p.cumulative.Sub(base.cumulative).Div(decimal.NewFromFloat(elapsed))
}

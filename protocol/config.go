package protocol

import (
	"time"

	"github.com/shopspring/decimal"
)

// Config provides configuration parameters for the settlement engine.
type Config struct {
	// Pair is the trading pair this engine instance settles.
	Pair TradingPair `json:"pair"`

	// CommitWindow is the duration of the commit phase of each batch.
	CommitWindow time.Duration `json:"commit_window,string"`

	// RevealWindow is the duration of the reveal phase of each batch.
	RevealWindow time.Duration `json:"reveal_window,string"`

	// MinBond is the minimum bond a commitment must post.
	MinBond decimal.Decimal `json:"min_bond"`

	// BondAsset is the asset bonds are posted in.
	BondAsset string `json:"bond_asset"`

	// MaxPriceDeviation is the circuit-breaker bound: settlement is deferred
	// when the clearing price deviates from the TWAP or oracle reference by
	// more than this fraction. Tunable, not a protocol constant.
	MaxPriceDeviation decimal.Decimal `json:"max_price_deviation"`

	// TWAPWindow is the lookback window for the pool's time-weighted
	// average price reference.
	TWAPWindow time.Duration `json:"twap_window,string"`

	// FeeBps is the protocol fee in basis points, charged on the quote leg
	// of every fill.
	FeeBps int64 `json:"fee_bps"`
}

// DefaultConfig returns engine defaults: an 8s+2s batch cycle, a 5%
// deviation bound and a 10 minute TWAP window.
func DefaultConfig(pair TradingPair) *Config {
	return &Config{
		Pair:              pair,
		CommitWindow:      8 * time.Second,
		RevealWindow:      2 * time.Second,
		MinBond:           decimal.New(1, 0),
		BondAsset:         pair.Quote,
		MaxPriceDeviation: decimal.New(5, -2),
		TWAPWindow:        10 * time.Minute,
		FeeBps:            0,
	}
}

// Clock returns the batch clock for this configuration.
func (c *Config) Clock() BatchClock {
	return BatchClock{CommitWindow: c.CommitWindow, RevealWindow: c.RevealWindow}
}

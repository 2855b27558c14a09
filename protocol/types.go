package protocol

import (
	"bytes"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fairbatch/fairbatch/crypto"
)

// TradingPair identifies the two assets of a market.
type TradingPair struct {
	Base  string `json:"base"`
	Quote string `json:"quote"`
}

func (p TradingPair) String() string {
	return p.Base + "/" + p.Quote
}

// Direction is the side of an order within its pair.
type Direction string

const (
	// Buy spends quote and receives base.
	Buy Direction = "buy"
	// Sell delivers base and receives quote.
	Sell Direction = "sell"
)

// Valid returns true if the direction is recognized.
func (d Direction) Valid() bool {
	return d == Buy || d == Sell
}

// CommitmentStatus tracks the lifecycle of a commitment. A commitment is
// created Pending and transitions exactly once, to Revealed or Slashed.
type CommitmentStatus string

const (
	CommitmentPending  CommitmentStatus = "pending"
	CommitmentRevealed CommitmentStatus = "revealed"
	CommitmentSlashed  CommitmentStatus = "slashed"
)

// Commitment is a hashed, bonded declaration of an order's existence made
// during the commit window. Only the status flag mutates after creation.
type Commitment struct {
	ID         uuid.UUID        `json:"id"`
	Batch      BatchID          `json:"batch"`
	Owner      crypto.PublicKey `json:"owner"`
	Hash       crypto.Hash      `json:"hash"`
	BondAmount decimal.Decimal  `json:"bond_amount"`
	BondAsset  string           `json:"bond_asset"`
	// Context is the opaque execution-unit token the commit arrived in.
	// A reveal arriving in the same execution unit is rejected, which rules
	// out atomically-composed deposit+commit+reveal sequences.
	Context   string           `json:"context"`
	CreatedAt time.Time        `json:"created_at"`
	Status    CommitmentStatus `json:"status"`
}

// OrderParams are the trade parameters hidden behind a commitment hash.
// Canonical returns the byte encoding that is hashed with the secret; both
// sides of the commit-reveal exchange must produce identical bytes, so the
// encoding is a fixed-field textual form using decimal's canonical string
// representation.
type OrderParams struct {
	Direction    Direction       `json:"direction"`
	TokenIn      string          `json:"token_in"`
	TokenOut     string          `json:"token_out"`
	AmountIn     decimal.Decimal `json:"amount_in"`
	MinAmountOut decimal.Decimal `json:"min_amount_out"`
}

// Canonical returns the canonical encoding of the parameters.
func (p OrderParams) Canonical() []byte {
	return fmt.Appendf(nil, "%s|%s|%s|%s|%s",
		p.Direction, p.TokenIn, p.TokenOut, p.AmountIn.String(), p.MinAmountOut.String())
}

// Validate performs stateless parameter checks against a trading pair.
func (p OrderParams) Validate(pair TradingPair) error {
	if !p.Direction.Valid() {
		return fmt.Errorf("invalid direction %q", p.Direction)
	}
	wantIn, wantOut := pair.Quote, pair.Base
	if p.Direction == Sell {
		wantIn, wantOut = pair.Base, pair.Quote
	}
	if p.TokenIn != wantIn || p.TokenOut != wantOut {
		return fmt.Errorf("token flow %s->%s does not match %s %s order",
			p.TokenIn, p.TokenOut, pair, p.Direction)
	}
	if !p.AmountIn.IsPositive() {
		return fmt.Errorf("amount in must be positive, got %s", p.AmountIn)
	}
	if p.MinAmountOut.IsNegative() {
		return fmt.Errorf("min amount out must not be negative, got %s", p.MinAmountOut)
	}
	return nil
}

// LimitPrice returns the worst quote-per-base price the order tolerates:
// an upper bound for buys, a lower bound for sells. Orders with a zero
// MinAmountOut have no limit; ok is false.
func (p OrderParams) LimitPrice() (price decimal.Decimal, ok bool) {
	if p.MinAmountOut.IsZero() {
		return decimal.Zero, false
	}
	if p.Direction == Buy {
		return p.AmountIn.Div(p.MinAmountOut), true
	}
	return p.MinAmountOut.Div(p.AmountIn), true
}

// Order is a revealed, validated trade intent. Orders are immutable and
// identified by the commitment they opened.
type Order struct {
	CommitmentID uuid.UUID        `json:"commitment_id"`
	Batch        BatchID          `json:"batch"`
	Owner        crypto.PublicKey `json:"owner"`
	Params       OrderParams      `json:"params"`
	PriorityBid  decimal.Decimal  `json:"priority_bid"`
	// Secret is public once revealed; it feeds the ordering seed so any
	// observer can recompute the execution order.
	Secret crypto.Secret `json:"secret"`
}

// OrdersByID sorts orders by commitment ID ascending, the protocol's final
// deterministic tiebreak.
func OrdersByID(a, b *Order) int {
	return bytes.Compare(a.CommitmentID[:], b.CommitmentID[:])
}

// MatchResult maps order volume to a counterparty: either a peer order on
// the opposite side or the AMM reserve. Amounts are base-denominated.
// Exactly one of Buy/Sell is set when ViaAMM is true.
type MatchResult struct {
	Buy        uuid.UUID       `json:"buy"`
	Sell       uuid.UUID       `json:"sell"`
	BaseAmount decimal.Decimal `json:"base_amount"`
	ViaAMM     bool            `json:"via_amm"`
}

// Fill records one order's executed amounts at the batch clearing price.
type Fill struct {
	OrderID   uuid.UUID       `json:"order_id"`
	AmountIn  decimal.Decimal `json:"amount_in"`
	AmountOut decimal.Decimal `json:"amount_out"`
}

// SlashRecord documents the forfeiture for one unrevealed commitment.
type SlashRecord struct {
	CommitmentID uuid.UUID       `json:"commitment_id"`
	Forfeited    decimal.Decimal `json:"forfeited"`
	Returned     decimal.Decimal `json:"returned"`
	Asset        string          `json:"asset"`
}

// ClearingOutcome is the sole authoritative record of a settled batch.
// It is produced exactly once and never mutated.
type ClearingOutcome struct {
	Batch             BatchID         `json:"batch"`
	Pair              TradingPair     `json:"pair"`
	ClearingPrice     decimal.Decimal `json:"clearing_price"`
	Matches           []MatchResult   `json:"matches"`
	Fills             []Fill          `json:"fills"`
	Excluded          []uuid.UUID     `json:"excluded"`
	UnrevealedSlashes []SlashRecord   `json:"unrevealed_slashes"`

	// PoolBaseDelta and PoolQuoteDelta are the residual trade applied to
	// the AMM reserve for this batch.
	PoolBaseDelta  decimal.Decimal `json:"pool_base_delta"`
	PoolQuoteDelta decimal.Decimal `json:"pool_quote_delta"`

	// Protocol fees are charged on each fill's output leg and accounted in
	// that leg's asset.
	FeesBase  decimal.Decimal `json:"fees_base"`
	FeesQuote decimal.Decimal `json:"fees_quote"`

	SettledAt time.Time `json:"settled_at"`
}

// BatchRecord is the per-batch audit record persisted by the archive store.
type BatchRecord struct {
	Batch       BatchID       `json:"batch"`
	Pair        TradingPair   `json:"pair"`
	Commitments []*Commitment `json:"commitments"`
	Orders      []*Order      `json:"orders"`
	// Outcome is nil until the batch settles.
	Outcome *ClearingOutcome `json:"outcome,omitempty"`
}

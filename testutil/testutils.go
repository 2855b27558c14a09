package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/fairbatch/fairbatch/auction"
	"github.com/fairbatch/fairbatch/crypto"
	"github.com/fairbatch/fairbatch/protocol"
)

// TestPair is the trading pair used throughout the test suite.
var TestPair = protocol.TradingPair{Base: "ETH", Quote: "USDC"}

// Epoch is a fixed reference instant inside batch 100's commit window for
// the default test clock. Using a fixed time keeps test batch arithmetic
// deterministic.
var Epoch = time.UnixMilli(100 * 10_000)

// =====================================
// Configuration Generators
// =====================================

// TestConfigOption is a function that modifies a Config.
type TestConfigOption func(*protocol.Config)

// WithWindows sets the commit and reveal window durations.
func WithWindows(commit, reveal time.Duration) TestConfigOption {
	return func(cfg *protocol.Config) {
		cfg.CommitWindow = commit
		cfg.RevealWindow = reveal
	}
}

// WithFee sets the protocol fee in basis points.
func WithFee(bps int64) TestConfigOption {
	return func(cfg *protocol.Config) {
		cfg.FeeBps = bps
	}
}

// WithMinBond sets the minimum commitment bond.
func WithMinBond(bond string) TestConfigOption {
	return func(cfg *protocol.Config) {
		cfg.MinBond = decimal.RequireFromString(bond)
	}
}

// WithDeviationBound sets the circuit-breaker deviation bound.
func WithDeviationBound(bound decimal.Decimal) TestConfigOption {
	return func(cfg *protocol.Config) {
		cfg.MaxPriceDeviation = bound
	}
}

// NewTestConfig creates an engine config with test-friendly defaults: the
// standard 8s+2s cycle, no fee and the breaker disabled.
func NewTestConfig(options ...TestConfigOption) *protocol.Config {
	cfg := protocol.DefaultConfig(TestPair)
	cfg.MaxPriceDeviation = decimal.Zero
	for _, opt := range options {
		opt(cfg)
	}
	return cfg
}

// =====================================
// Cryptographic Generators
// =====================================

// GenerateTestKeyPair generates an Ed25519 key pair, failing the test on error.
func GenerateTestKeyPair(t *testing.T) (crypto.PublicKey, crypto.PrivateKey) {
	t.Helper()
	pub, priv, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	return pub, priv
}

// NewTestSecret generates a commitment secret, failing the test on error.
func NewTestSecret(t *testing.T) crypto.Secret {
	t.Helper()
	secret, err := crypto.NewSecret()
	require.NoError(t, err)
	return secret
}

// =====================================
// Order Generators
// =====================================

// TestOrderOption is a function that modifies an Order.
type TestOrderOption func(*protocol.Order)

// WithMinOut sets the order's minimum acceptable output amount.
func WithMinOut(minOut string) TestOrderOption {
	return func(o *protocol.Order) {
		o.Params.MinAmountOut = decimal.RequireFromString(minOut)
	}
}

// WithPriorityBid sets the order's priority bid.
func WithPriorityBid(bid string) TestOrderOption {
	return func(o *protocol.Order) {
		o.PriorityBid = decimal.RequireFromString(bid)
	}
}

// WithOwner sets the order's owner.
func WithOwner(owner crypto.PublicKey) TestOrderOption {
	return func(o *protocol.Order) {
		o.Owner = owner
	}
}

// WithBatch sets the order's batch.
func WithBatch(batch protocol.BatchID) TestOrderOption {
	return func(o *protocol.Order) {
		o.Batch = batch
	}
}

// WithSecret sets the order's revealed secret.
func WithSecret(secret crypto.Secret) TestOrderOption {
	return func(o *protocol.Order) {
		o.Secret = secret
	}
}

// NewTestOrder creates a revealed order on the test pair. Buys spend
// amountIn quote units, sells deliver amountIn base units. The commitment ID
// and secret are random unless overridden.
func NewTestOrder(t *testing.T, direction protocol.Direction, amountIn string, options ...TestOrderOption) *protocol.Order {
	t.Helper()

	params := protocol.OrderParams{
		Direction: direction,
		TokenIn:   TestPair.Quote,
		TokenOut:  TestPair.Base,
		AmountIn:  decimal.RequireFromString(amountIn),
	}
	if direction == protocol.Sell {
		params.TokenIn, params.TokenOut = TestPair.Base, TestPair.Quote
	}

	order := &protocol.Order{
		CommitmentID: uuid.New(),
		Batch:        100,
		Params:       params,
		PriorityBid:  decimal.Zero,
		Secret:       NewTestSecret(t),
	}
	for _, opt := range options {
		opt(order)
	}
	return order
}

// NewTestCommitment creates a pending commitment matching an order, with
// the hash computed over the order's parameters and secret.
func NewTestCommitment(order *protocol.Order, bond string) *protocol.Commitment {
	return &protocol.Commitment{
		ID:         order.CommitmentID,
		Batch:      order.Batch,
		Owner:      order.Owner,
		Hash:       crypto.CommitmentHash(order.Params.Canonical(), order.Secret),
		BondAmount: decimal.RequireFromString(bond),
		BondAsset:  TestPair.Quote,
		CreatedAt:  Epoch,
		Status:     protocol.CommitmentPending,
	}
}

// CommitRevealPair builds a matched commit and reveal request for the same
// hidden order, ready for signing.
func CommitRevealPair(t *testing.T, batch protocol.BatchID, params protocol.OrderParams, bond string) (*protocol.CommitRequest, func(commitmentID uuid.UUID) *protocol.RevealRequest) {
	t.Helper()

	secret := NewTestSecret(t)
	commit := &protocol.CommitRequest{
		Batch:      batch,
		Hash:       crypto.CommitmentHash(params.Canonical(), secret),
		BondAmount: decimal.RequireFromString(bond),
		BondAsset:  TestPair.Quote,
	}
	reveal := func(commitmentID uuid.UUID) *protocol.RevealRequest {
		return &protocol.RevealRequest{
			CommitmentID: commitmentID,
			Params:       params,
			Secret:       secret,
			PriorityBid:  decimal.Zero,
		}
	}
	return commit, reveal
}

// BuyParams returns buy order parameters on the test pair.
func BuyParams(amountIn, minOut string) protocol.OrderParams {
	return protocol.OrderParams{
		Direction:    protocol.Buy,
		TokenIn:      TestPair.Quote,
		TokenOut:     TestPair.Base,
		AmountIn:     decimal.RequireFromString(amountIn),
		MinAmountOut: decimal.RequireFromString(minOut),
	}
}

// SellParams returns sell order parameters on the test pair.
func SellParams(amountIn, minOut string) protocol.OrderParams {
	return protocol.OrderParams{
		Direction:    protocol.Sell,
		TokenIn:      TestPair.Base,
		TokenOut:     TestPair.Quote,
		AmountIn:     decimal.RequireFromString(amountIn),
		MinAmountOut: decimal.RequireFromString(minOut),
	}
}

// =====================================
// Pool Generators
// =====================================

// NewTestPool creates a pool with 1000 base / 4,000,000 quote reserves,
// a 4000 spot price.
func NewTestPool(t *testing.T) *auction.Pool {
	return NewTestPoolWithReserves(t, "1000", "4000000")
}

// NewTestPoolWithReserves creates a pool with the given reserves.
func NewTestPoolWithReserves(t *testing.T, base, quote string) *auction.Pool {
	t.Helper()
	pool, err := auction.NewPool(TestPair,
		decimal.RequireFromString(base),
		decimal.RequireFromString(quote),
		Epoch)
	require.NoError(t, err)
	return pool
}

package auction_test

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairbatch/fairbatch/auction"
	"github.com/fairbatch/fairbatch/protocol"
	"github.com/fairbatch/fairbatch/testutil"
)

var closeEnough = decimal.New(1, -9)

func approxEqual(t *testing.T, want, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, want.Sub(got).Abs().LessThan(closeEnough),
		"want %s, got %s: %s", want, got, fmt.Sprint(msgAndArgs...))
}

func clearingInput(t *testing.T, orders []*protocol.Order) auction.ClearingInput {
	t.Helper()
	return auction.ClearingInput{
		Batch:  100,
		Pair:   testutil.TestPair,
		Orders: orders,
		Pool:   testutil.NewTestPool(t),
		Now:    testutil.Epoch.Add(10 * time.Second),
	}
}

func TestClearBalancedBatchAtSpot(t *testing.T) {
	// 8000 quote of buys against 2 base of sells: at spot 4000 the sides
	// balance exactly, so the clearing price is the spot price.
	orders := []*protocol.Order{
		testutil.NewTestOrder(t, protocol.Buy, "8000"),
		testutil.NewTestOrder(t, protocol.Sell, "2"),
	}
	in := clearingInput(t, orders)

	outcome, err := auction.Clear(in)
	require.NoError(t, err)

	approxEqual(t, decimal.NewFromInt(4000), outcome.ClearingPrice)
	assert.Empty(t, outcome.Excluded)
	require.Len(t, outcome.Fills, 2)

	// No residual reaches the pool when the sides balance.
	approxEqual(t, decimal.Zero, outcome.PoolBaseDelta)
	approxEqual(t, decimal.Zero, outcome.PoolQuoteDelta)
}

func TestClearOneSidedMatchesPoolExecution(t *testing.T) {
	// A single buy with no sells trades purely against the pool; the uniform
	// price equals the pool's effective execution price for that size.
	orders := []*protocol.Order{testutil.NewTestOrder(t, protocol.Buy, "4000")}
	in := clearingInput(t, orders)

	expectedBase, err := in.Pool.Quote(protocol.Buy, decimal.NewFromInt(4000))
	require.NoError(t, err)

	outcome, err := auction.Clear(in)
	require.NoError(t, err)

	// (4000000+4000)/1000 = 4004
	approxEqual(t, decimal.NewFromInt(4004), outcome.ClearingPrice)
	require.Len(t, outcome.Fills, 1)
	approxEqual(t, expectedBase, outcome.Fills[0].AmountOut)
	require.Len(t, outcome.Matches, 1)
	assert.True(t, outcome.Matches[0].ViaAMM)
}

func TestClearPreservesPoolInvariant(t *testing.T) {
	orders := []*protocol.Order{
		testutil.NewTestOrder(t, protocol.Buy, "25000"),
		testutil.NewTestOrder(t, protocol.Buy, "1500"),
		testutil.NewTestOrder(t, protocol.Sell, "3"),
	}
	in := clearingInput(t, orders)

	baseBefore, quoteBefore := in.Pool.Reserves()
	invariantBefore := baseBefore.Mul(quoteBefore)

	outcome, err := auction.Clear(in)
	require.NoError(t, err)
	require.NoError(t, in.Pool.ApplyFill(in.Batch, outcome.PoolBaseDelta, outcome.PoolQuoteDelta, in.Now))

	baseAfter, quoteAfter := in.Pool.Reserves()
	invariantAfter := baseAfter.Mul(quoteAfter)
	relerr := invariantAfter.Sub(invariantBefore).Abs().Div(invariantBefore)
	assert.True(t, relerr.LessThan(decimal.New(1, -12)),
		"constant product moved: %s -> %s", invariantBefore, invariantAfter)
}

func TestClearUniformPriceForAllFills(t *testing.T) {
	orders := []*protocol.Order{
		testutil.NewTestOrder(t, protocol.Buy, "10000"),
		testutil.NewTestOrder(t, protocol.Buy, "2000"),
		testutil.NewTestOrder(t, protocol.Sell, "1"),
		testutil.NewTestOrder(t, protocol.Sell, "0.5"),
	}
	in := clearingInput(t, orders)

	outcome, err := auction.Clear(in)
	require.NoError(t, err)
	require.Len(t, outcome.Fills, 4)

	// Peer-matched or AMM-routed, every order executes at the same price.
	byID := make(map[string]*protocol.Order)
	for _, o := range orders {
		byID[o.CommitmentID.String()] = o
	}
	for _, fill := range outcome.Fills {
		o := byID[fill.OrderID.String()]
		if o.Params.Direction == protocol.Buy {
			approxEqual(t, fill.AmountIn.Div(outcome.ClearingPrice), fill.AmountOut, "buy fill")
		} else {
			approxEqual(t, fill.AmountIn.Mul(outcome.ClearingPrice), fill.AmountOut, "sell fill")
		}
	}
}

func TestClearExcludesLimitViolations(t *testing.T) {
	// Heavy buy pressure pushes the price above 4000; a buy that tolerates at
	// most 4000 must be excluded and the rest settle without it.
	limited := testutil.NewTestOrder(t, protocol.Buy, "4000", testutil.WithMinOut("1")) // limit 4000
	orders := []*protocol.Order{
		limited,
		testutil.NewTestOrder(t, protocol.Buy, "100000"),
	}
	in := clearingInput(t, orders)

	outcome, err := auction.Clear(in)
	require.NoError(t, err)

	require.Len(t, outcome.Excluded, 1)
	assert.Equal(t, limited.CommitmentID, outcome.Excluded[0])
	require.Len(t, outcome.Fills, 1)

	// Final price is computed over the surviving set only.
	approxEqual(t, decimal.RequireFromString("4100"), outcome.ClearingPrice)
}

func TestClearExclusionNeverDropsSatisfiedOrders(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 20; trial++ {
		var orders []*protocol.Order
		n := 2 + rng.Intn(10)
		for i := 0; i < n; i++ {
			if rng.Intn(2) == 0 {
				amt := fmt.Sprintf("%d", 1000+rng.Intn(20000))
				orders = append(orders, testutil.NewTestOrder(t, protocol.Buy, amt))
			} else {
				amt := fmt.Sprintf("%d.%02d", rng.Intn(5), rng.Intn(100))
				orders = append(orders, testutil.NewTestOrder(t, protocol.Sell, amt))
			}
		}
		in := clearingInput(t, orders)

		outcome, err := auction.Clear(in)
		require.NoError(t, err)

		// Market orders have no limit, so nothing may be excluded and every
		// order fills.
		assert.Empty(t, outcome.Excluded, "trial %d", trial)
		assert.Len(t, outcome.Fills, len(orders), "trial %d", trial)

		// The seed covers the full revealed set and execution is a
		// permutation of it.
		seen := make(map[string]bool)
		for _, f := range outcome.Fills {
			seen[f.OrderID.String()] = true
		}
		assert.Len(t, seen, len(orders), "trial %d", trial)
	}
}

func TestClearFeeOnOutputLeg(t *testing.T) {
	orders := []*protocol.Order{
		testutil.NewTestOrder(t, protocol.Buy, "8000"),
		testutil.NewTestOrder(t, protocol.Sell, "2"),
	}
	in := clearingInput(t, orders)
	in.FeeBps = 30 // 0.3%

	outcome, err := auction.Clear(in)
	require.NoError(t, err)

	// Buyer nets 2 base minus 0.3%; seller nets 8000 quote minus 0.3%.
	for _, fill := range outcome.Fills {
		if fill.OrderID == orders[0].CommitmentID {
			approxEqual(t, decimal.RequireFromString("1.994"), fill.AmountOut)
		} else {
			approxEqual(t, decimal.RequireFromString("7976"), fill.AmountOut)
		}
	}
	// Fees accrue in the asset of the leg they were charged on.
	approxEqual(t, decimal.RequireFromString("0.006"), outcome.FeesBase)
	approxEqual(t, decimal.RequireFromString("24"), outcome.FeesQuote)
}

func TestClearCircuitBreaker(t *testing.T) {
	// One-sided pressure moves the price ~2.5% off spot.
	orders := []*protocol.Order{testutil.NewTestOrder(t, protocol.Buy, "100000")}

	in := clearingInput(t, orders)
	in.MaxDeviation = decimal.New(1, -2) // 1% bound trips
	_, err := auction.Clear(in)
	assert.ErrorIs(t, err, protocol.ErrPriceDeviationExceeded)

	in = clearingInput(t, orders)
	in.MaxDeviation = decimal.New(5, -2) // 5% bound does not
	_, err = auction.Clear(in)
	assert.NoError(t, err)
}

func TestClearOracleBreaker(t *testing.T) {
	orders := []*protocol.Order{
		testutil.NewTestOrder(t, protocol.Buy, "8000"),
		testutil.NewTestOrder(t, protocol.Sell, "2"),
	}

	// The batch clears at 4000; an oracle at 5000 is a >20% gap.
	in := clearingInput(t, orders)
	in.MaxDeviation = decimal.New(5, -2)
	in.Reference = decimal.NewFromInt(5000)
	_, err := auction.Clear(in)
	assert.ErrorIs(t, err, protocol.ErrPriceDeviationExceeded)

	in = clearingInput(t, orders)
	in.MaxDeviation = decimal.New(5, -2)
	in.Reference = decimal.NewFromInt(4010)
	_, err = auction.Clear(in)
	assert.NoError(t, err)
}

func TestClearLeavesPoolUntouched(t *testing.T) {
	// A one-sided batch produces residual deltas but the pool only moves when
	// the caller applies them, so a failed settlement can be retried.
	orders := []*protocol.Order{testutil.NewTestOrder(t, protocol.Buy, "4000")}
	in := clearingInput(t, orders)

	outcome, err := auction.Clear(in)
	require.NoError(t, err)
	assert.True(t, outcome.PoolBaseDelta.IsPositive())

	base, quote := in.Pool.Reserves()
	approxEqual(t, decimal.NewFromInt(1000), base)
	approxEqual(t, decimal.NewFromInt(4000000), quote)

	// A second clear of the same batch is identical until the fill lands;
	// afterwards the once-per-batch guard rejects it.
	again, err := auction.Clear(in)
	require.NoError(t, err)
	approxEqual(t, outcome.ClearingPrice, again.ClearingPrice)

	require.NoError(t, in.Pool.ApplyFill(in.Batch, outcome.PoolBaseDelta, outcome.PoolQuoteDelta, in.Now))
	_, err = auction.Clear(in)
	assert.ErrorIs(t, err, auction.ErrFillAlreadyApplied)
}

func TestClearSeedCoversFullRevealedSet(t *testing.T) {
	// When an aggregation layer filters the batch, the execution ordering is
	// still seeded by every revealed secret, filtered orders included, so the
	// ordering stays recomputable from public reveal data.
	revealed := make([]*protocol.Order, 8)
	for i := range revealed {
		revealed[i] = testutil.NewTestOrder(t, protocol.Buy, "10")
	}
	included := revealed[:6]

	in := clearingInput(t, included)
	in.Revealed = revealed

	outcome, err := auction.Clear(in)
	require.NoError(t, err)
	require.Len(t, outcome.Fills, len(included))

	expected := auction.ExecutionOrder(included, auction.SeedForBatch(revealed))
	for i, fill := range outcome.Fills {
		assert.Equal(t, expected[i].CommitmentID, fill.OrderID)
	}
}

func TestClearEmptyBatch(t *testing.T) {
	in := clearingInput(t, nil)

	outcome, err := auction.Clear(in)
	require.NoError(t, err)

	approxEqual(t, decimal.NewFromInt(4000), outcome.ClearingPrice,
		"an empty batch clears at spot")
	assert.Empty(t, outcome.Fills)
	assert.Empty(t, outcome.Matches)
}

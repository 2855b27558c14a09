package auction_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairbatch/fairbatch/auction"
	"github.com/fairbatch/fairbatch/protocol"
	"github.com/fairbatch/fairbatch/testutil"
)

func TestPoolSpotAndQuotes(t *testing.T) {
	pool := testutil.NewTestPoolWithReserves(t, "1000", "4000000")

	assert.True(t, pool.Spot().Equal(decimal.RequireFromString("4000")))

	// Swapping 4000 quote in yields slightly less than 1 base out.
	baseOut, err := pool.Quote(protocol.Buy, decimal.RequireFromString("4000"))
	require.NoError(t, err)
	assert.True(t, baseOut.LessThan(decimal.NewFromInt(1)))
	assert.True(t, baseOut.GreaterThan(decimal.RequireFromString("0.99")))

	// Selling 1 base in yields slightly less than 4000 quote out.
	quoteOut, err := pool.Quote(protocol.Sell, decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.True(t, quoteOut.LessThan(decimal.NewFromInt(4000)))
	assert.True(t, quoteOut.GreaterThan(decimal.NewFromInt(3990)))
}

func TestPoolRejectsDrainingQuote(t *testing.T) {
	pool := testutil.NewTestPoolWithReserves(t, "10", "40000")

	_, err := pool.QuoteBaseOut(decimal.NewFromInt(10))
	assert.ErrorIs(t, err, auction.ErrInsufficientLiquidity)
}

func TestPoolFillOncePerBatch(t *testing.T) {
	pool := testutil.NewTestPool(t)
	now := testutil.Epoch

	one := decimal.NewFromInt(1)
	fourK := decimal.NewFromInt(4000)
	require.NoError(t, pool.ApplyFill(100, one, fourK, now))

	err := pool.ApplyFill(100, one, fourK, now.Add(time.Second))
	assert.ErrorIs(t, err, auction.ErrFillAlreadyApplied)

	assert.NoError(t, pool.ApplyFill(101, one, fourK, now.Add(10*time.Second)))
}

func TestPoolCheckFillDoesNotMutate(t *testing.T) {
	pool := testutil.NewTestPoolWithReserves(t, "1000", "4000000")

	require.NoError(t, pool.CheckFill(100, decimal.NewFromInt(1), decimal.NewFromInt(4004)))
	base, quote := pool.Reserves()
	assert.True(t, base.Equal(decimal.NewFromInt(1000)))
	assert.True(t, quote.Equal(decimal.NewFromInt(4000000)))

	// Same guards as ApplyFill: reserve bounds and the once-per-batch rule.
	err := pool.CheckFill(100, decimal.NewFromInt(1000), decimal.Zero)
	assert.ErrorIs(t, err, auction.ErrInsufficientLiquidity)

	require.NoError(t, pool.ApplyFill(100, decimal.NewFromInt(1), decimal.NewFromInt(4004), testutil.Epoch))
	err = pool.CheckFill(100, decimal.NewFromInt(1), decimal.NewFromInt(4004))
	assert.ErrorIs(t, err, auction.ErrFillAlreadyApplied)
}

func TestPoolFillMovesReserves(t *testing.T) {
	pool := testutil.NewTestPoolWithReserves(t, "1000", "4000000")

	// Pool pays out 1 base and receives 4004 quote.
	require.NoError(t, pool.ApplyFill(100,
		decimal.NewFromInt(1), decimal.NewFromInt(4004), testutil.Epoch.Add(time.Second)))

	base, quote := pool.Reserves()
	assert.True(t, base.Equal(decimal.NewFromInt(999)))
	assert.True(t, quote.Equal(decimal.NewFromInt(4004004)))
}

func TestTWAPReflectsHistory(t *testing.T) {
	pool := testutil.NewTestPoolWithReserves(t, "1000", "4000000")
	start := testutil.Epoch

	// No fills yet: TWAP equals spot.
	assert.True(t, pool.TWAP(time.Minute, start.Add(30*time.Second)).Equal(pool.Spot()))

	// Double the price by moving reserves, then ask for a window spanning
	// both regimes equally.
	require.NoError(t, pool.ApplyFill(100,
		decimal.RequireFromString("292.893218813452475"),
		decimal.RequireFromString("1656854.249492380195"),
		start.Add(60*time.Second)))

	spot := pool.Spot()
	assert.True(t, spot.GreaterThan(decimal.NewFromInt(7900)), "price roughly doubled, got %s", spot)

	twap := pool.TWAP(120*time.Second, start.Add(120*time.Second))
	assert.True(t, twap.GreaterThan(decimal.NewFromInt(4000)))
	assert.True(t, twap.LessThan(spot))
}

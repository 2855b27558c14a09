package auction_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairbatch/fairbatch/auction"
	"github.com/fairbatch/fairbatch/protocol"
	"github.com/fairbatch/fairbatch/testutil"
)

// baseVolume sums the base-denominated demand or supply of one side.
func baseVolume(orders []*protocol.Order, direction protocol.Direction, price decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, o := range orders {
		if o.Params.Direction != direction {
			continue
		}
		if direction == protocol.Buy {
			total = total.Add(o.Params.AmountIn.Div(price))
		} else {
			total = total.Add(o.Params.AmountIn)
		}
	}
	return total
}

func TestMatchBalancedSidesNoAMM(t *testing.T) {
	price := decimal.NewFromInt(4000)
	orders := []*protocol.Order{
		testutil.NewTestOrder(t, protocol.Buy, "8000"),  // demands 2 base
		testutil.NewTestOrder(t, protocol.Sell, "2"),    // supplies 2 base
	}

	matches := auction.Match(orders, price)
	require.Len(t, matches, 1)
	assert.False(t, matches[0].ViaAMM)
	assert.True(t, matches[0].BaseAmount.Equal(decimal.NewFromInt(2)))
	assert.Equal(t, orders[0].CommitmentID, matches[0].Buy)
	assert.Equal(t, orders[1].CommitmentID, matches[0].Sell)
}

func TestMatchResidualRoutesToAMM(t *testing.T) {
	price := decimal.NewFromInt(4000)
	orders := []*protocol.Order{
		testutil.NewTestOrder(t, protocol.Buy, "12000"), // demands 3 base
		testutil.NewTestOrder(t, protocol.Sell, "1"),
	}

	matches := auction.Match(orders, price)
	require.Len(t, matches, 2)

	var peer, amm *protocol.MatchResult
	for i := range matches {
		if matches[i].ViaAMM {
			amm = &matches[i]
		} else {
			peer = &matches[i]
		}
	}
	require.NotNil(t, peer)
	require.NotNil(t, amm)
	assert.True(t, peer.BaseAmount.Equal(decimal.NewFromInt(1)))
	assert.True(t, amm.BaseAmount.Equal(decimal.NewFromInt(2)))
	assert.Equal(t, orders[0].CommitmentID, amm.Buy)
	assert.Equal(t, uuid.Nil, amm.Sell)
}

func TestMatchConservesVolume(t *testing.T) {
	price := decimal.NewFromInt(4000)
	orders := []*protocol.Order{
		testutil.NewTestOrder(t, protocol.Buy, "5000"),
		testutil.NewTestOrder(t, protocol.Buy, "14000"),
		testutil.NewTestOrder(t, protocol.Buy, "333"),
		testutil.NewTestOrder(t, protocol.Sell, "1.5"),
		testutil.NewTestOrder(t, protocol.Sell, "0.25"),
	}

	matches := auction.Match(orders, price)

	// Every order's full base volume appears across its matches.
	perOrder := make(map[uuid.UUID]decimal.Decimal)
	for _, m := range matches {
		if m.Buy != uuid.Nil {
			perOrder[m.Buy] = perOrder[m.Buy].Add(m.BaseAmount)
		}
		if m.Sell != uuid.Nil {
			perOrder[m.Sell] = perOrder[m.Sell].Add(m.BaseAmount)
		}
	}
	for _, o := range orders {
		want := o.Params.AmountIn
		if o.Params.Direction == protocol.Buy {
			want = want.Div(price)
		}
		assert.True(t, perOrder[o.CommitmentID].Equal(want),
			"order %s matched %s of %s", o.CommitmentID, perOrder[o.CommitmentID], want)
	}

	// AMM absorbs exactly the side imbalance.
	ammTotal := decimal.Zero
	for _, m := range matches {
		if m.ViaAMM {
			ammTotal = ammTotal.Add(m.BaseAmount)
		}
	}
	imbalance := baseVolume(orders, protocol.Buy, price).Sub(baseVolume(orders, protocol.Sell, price)).Abs()
	assert.True(t, ammTotal.Equal(imbalance))
}

func TestMatchEmptySides(t *testing.T) {
	price := decimal.NewFromInt(4000)

	assert.Empty(t, auction.Match(nil, price))

	onlyBuys := []*protocol.Order{testutil.NewTestOrder(t, protocol.Buy, "4000")}
	matches := auction.Match(onlyBuys, price)
	require.Len(t, matches, 1)
	assert.True(t, matches[0].ViaAMM)
}

package auction

import (
	"bytes"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/fairbatch/fairbatch/protocol"
)

// sideEntry is one order's base-denominated quantity during matching.
type sideEntry struct {
	order     *protocol.Order
	remaining decimal.Decimal
}

// Match pairs opposite-direction orders at the given clearing price and
// routes the residual of the longer side to the AMM reserve. Every unit of
// order volume appears in exactly one MatchResult; no order is dropped.
//
// Buy quantities are base-denominated at the clearing price (a buy spending
// q quote demands q/price base). Each side is processed greedily by size
// descending, tie-broken by priority bid descending and then commitment ID
// ascending, so the pairing is identical on every execution regardless of
// input order.
func Match(orders []*protocol.Order, price decimal.Decimal) []protocol.MatchResult {
	var buys, sells []*sideEntry
	for _, o := range orders {
		switch o.Params.Direction {
		case protocol.Buy:
			buys = append(buys, &sideEntry{order: o, remaining: o.Params.AmountIn.Div(price)})
		case protocol.Sell:
			sells = append(sells, &sideEntry{order: o, remaining: o.Params.AmountIn})
		}
	}

	sortSide(buys)
	sortSide(sells)

	results := make([]protocol.MatchResult, 0, len(orders))

	// Two-pointer walk: largest remaining against largest remaining.
	bi, si := 0, 0
	for bi < len(buys) && si < len(sells) {
		b, s := buys[bi], sells[si]
		fill := decimal.Min(b.remaining, s.remaining)
		if fill.IsPositive() {
			results = append(results, protocol.MatchResult{
				Buy:        b.order.CommitmentID,
				Sell:       s.order.CommitmentID,
				BaseAmount: fill,
			})
			b.remaining = b.remaining.Sub(fill)
			s.remaining = s.remaining.Sub(fill)
		}
		if !b.remaining.IsPositive() {
			bi++
		}
		if !s.remaining.IsPositive() {
			si++
		}
	}

	// Residual volume on whichever side is longer routes to the pool.
	for ; bi < len(buys); bi++ {
		if buys[bi].remaining.IsPositive() {
			results = append(results, protocol.MatchResult{
				Buy:        buys[bi].order.CommitmentID,
				BaseAmount: buys[bi].remaining,
				ViaAMM:     true,
			})
		}
	}
	for ; si < len(sells); si++ {
		if sells[si].remaining.IsPositive() {
			results = append(results, protocol.MatchResult{
				Sell:       sells[si].order.CommitmentID,
				BaseAmount: sells[si].remaining,
				ViaAMM:     true,
			})
		}
	}

	return results
}

// sortSide orders one side for greedy pairing: size descending, priority bid
// descending, commitment ID ascending.
func sortSide(side []*sideEntry) {
	slices.SortFunc(side, func(a, b *sideEntry) int {
		if c := b.remaining.Cmp(a.remaining); c != 0 {
			return c
		}
		if c := b.order.PriorityBid.Cmp(a.order.PriorityBid); c != 0 {
			return c
		}
		return bytes.Compare(a.order.CommitmentID[:], b.order.CommitmentID[:])
	})
}

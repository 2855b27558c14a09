package auction

import (
	"slices"
	"sort"

	"github.com/fairbatch/fairbatch/crypto"
	"github.com/fairbatch/fairbatch/protocol"
)

// SeedForBatch derives the execution-ordering seed from a batch's revealed
// orders: the hash of all revealed secrets concatenated in commitment-ID
// order. The seed cannot be known before the reveal window closes, and any
// observer can recompute it afterwards.
func SeedForBatch(orders []*protocol.Order) crypto.Hash {
	sorted := slices.Clone(orders)
	slices.SortFunc(sorted, protocol.OrdersByID)

	secrets := make([]crypto.Secret, len(sorted))
	for i, o := range sorted {
		secrets[i] = o.Secret
	}
	return crypto.OrderingSeed(secrets)
}

// Shuffle returns the orders in the canonical pseudo-random permutation for
// the seed: orders are first brought into commitment-ID order, then
// Fisher-Yates shuffled with indices drawn from the HKDF expansion of the
// seed. The same revealed set always yields the same permutation.
func Shuffle(orders []*protocol.Order, seed crypto.Hash) []*protocol.Order {
	shuffled := slices.Clone(orders)
	slices.SortFunc(shuffled, protocol.OrdersByID)

	stream := crypto.SeedStream(seed, "execution-order")
	for i := len(shuffled) - 1; i > 0; i-- {
		r, err := crypto.StreamUint64(stream)
		if err != nil {
			// The seed stream re-keys itself and never runs dry.
			panic(err)
		}
		j := int(r % uint64(i+1))
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled
}

// ExecutionOrder produces the canonical execution priority for a batch:
// priority bid descending, with the seeded shuffle deciding between equal
// bids and commitment ID ascending as the final fallback. The stable sort
// preserves shuffle positions within each bid tier, so the whole ordering is
// deterministic given the revealed set.
func ExecutionOrder(orders []*protocol.Order, seed crypto.Hash) []*protocol.Order {
	ordered := Shuffle(orders, seed)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].PriorityBid.GreaterThan(ordered[j].PriorityBid)
	})
	return ordered
}

package aggregator

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/fairbatch/fairbatch/accumulator"
	"github.com/fairbatch/fairbatch/crypto"
	"github.com/fairbatch/fairbatch/protocol"
)

// Anchor maintains the append-only history accumulator for processed
// batches. Each settled batch's commitment set becomes one inner Merkle
// tree; its root is appended to the outer accumulator in settlement order.
type Anchor struct {
	mu      sync.RWMutex
	history *accumulator.Accumulator
	batches map[protocol.BatchID]*anchoredBatch
}

type anchoredBatch struct {
	tree     *accumulator.BatchTree
	root     crypto.Hash
	position int
	index    map[uuid.UUID]int
}

// NewAnchor creates an empty history anchor.
func NewAnchor() *Anchor {
	return &Anchor{
		history: accumulator.New(),
		batches: make(map[protocol.BatchID]*anchoredBatch),
	}
}

// AnchorBatch appends a settled batch's commitment set to history and
// returns the batch root. Anchoring the same batch twice is rejected; the
// accumulator never rewrites.
func (a *Anchor) AnchorBatch(batch protocol.BatchID, commitments []*protocol.Commitment) (crypto.Hash, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, done := a.batches[batch]; done {
		return crypto.Hash{}, fmt.Errorf("batch %d already anchored", batch)
	}

	hashes, ids := sortHashesByID(commitments)
	tree := accumulator.NewBatchTree(hashes)
	root := tree.Root()
	position := a.history.Append(root)

	index := make(map[uuid.UUID]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}

	a.batches[batch] = &anchoredBatch{
		tree:     tree,
		root:     root,
		position: position,
		index:    index,
	}
	return root, nil
}

// Root returns the current accumulator root.
func (a *Anchor) Root() crypto.Hash {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.history.Root()
}

// Prove builds a two-level inclusion proof for a commitment in an anchored
// batch, valid against the current accumulator root.
func (a *Anchor) Prove(batch protocol.BatchID, commitment uuid.UUID, hash crypto.Hash) (accumulator.HistoryProof, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	anchored, ok := a.batches[batch]
	if !ok {
		return accumulator.HistoryProof{}, fmt.Errorf("batch %d not anchored", batch)
	}
	leafIdx, ok := anchored.index[commitment]
	if !ok {
		return accumulator.HistoryProof{}, fmt.Errorf("commitment %s not in batch %d", commitment, batch)
	}

	batchProof, err := anchored.tree.Prove(leafIdx)
	if err != nil {
		return accumulator.HistoryProof{}, err
	}
	histProof, err := a.history.Prove(anchored.position)
	if err != nil {
		return accumulator.HistoryProof{}, err
	}

	return accumulator.HistoryProof{
		Commitment: hash,
		BatchRoot:  anchored.root,
		BatchProof: batchProof,
		Position:   anchored.position,
		HistProof:  histProof,
	}, nil
}

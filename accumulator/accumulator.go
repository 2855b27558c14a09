// Package accumulator provides the append-only commitment history anchor: a
// Merkle tree of per-batch Merkle trees. Each settled batch contributes one
// leaf, the root of the tree over its commitment hashes, and the outer tree
// accumulates those batch roots in append order. Any party holding the
// current accumulator root can verify that a given commitment was processed
// in a given batch from an O(log n) proof, without replaying history.
//
// Trees follow the RFC 6962 construction: leaves and interior nodes are
// domain-separated under SHA3-256, and a tree over n > 1 leaves splits at
// the largest power of two strictly smaller than n. This keeps roots and
// proofs canonical for any leaf count.
package accumulator

import (
	"errors"
	"sync"

	"golang.org/x/crypto/sha3"

	"github.com/fairbatch/fairbatch/crypto"
)

var (
	leafPrefix = []byte{0x00}
	nodePrefix = []byte{0x01}
)

// ErrIndexOutOfRange rejects a proof request for a leaf the tree does not
// contain.
var ErrIndexOutOfRange = errors.New("leaf index out of range")

func hashLeaf(data []byte) crypto.Hash {
	h := sha3.New256()
	h.Write(leafPrefix)
	h.Write(data)
	var out crypto.Hash
	copy(out[:], h.Sum(nil))
	return out
}

func hashNode(left, right crypto.Hash) crypto.Hash {
	h := sha3.New256()
	h.Write(nodePrefix)
	h.Write(left[:])
	h.Write(right[:])
	var out crypto.Hash
	copy(out[:], h.Sum(nil))
	return out
}

// largestPowerOfTwoBelow returns the largest power of two strictly less
// than n, for n >= 2.
func largestPowerOfTwoBelow(n int) int {
	k := 1
	for k*2 < n {
		k *= 2
	}
	return k
}

func merkleRoot(leaves []crypto.Hash) crypto.Hash {
	switch len(leaves) {
	case 0:
		return hashLeaf(nil)
	case 1:
		return leaves[0]
	}
	split := largestPowerOfTwoBelow(len(leaves))
	return hashNode(merkleRoot(leaves[:split]), merkleRoot(leaves[split:]))
}

// merklePath computes the audit path for the leaf at index.
func merklePath(leaves []crypto.Hash, index int) []crypto.Hash {
	if len(leaves) <= 1 {
		return nil
	}
	split := largestPowerOfTwoBelow(len(leaves))
	if index < split {
		return append(merklePath(leaves[:split], index), merkleRoot(leaves[split:]))
	}
	return append(merklePath(leaves[split:], index-split), merkleRoot(leaves[:split]))
}

// Proof is an audit path from a leaf to a tree root.
type Proof struct {
	// Index is the leaf's position in append order.
	Index int `json:"index"`
	// Size is the leaf count of the tree the proof was generated against.
	Size int `json:"size"`
	// Path lists sibling subtree roots from the leaf to the root.
	Path []crypto.Hash `json:"path"`
}

// Verify checks a proof against a root and leaf hash. The reconstruction
// follows the same split rule as generation, so it works for any tree size.
func Verify(root, leaf crypto.Hash, proof Proof) bool {
	if proof.Index < 0 || proof.Index >= proof.Size {
		return false
	}
	computed, ok := rebuild(leaf, proof.Index, proof.Size, proof.Path)
	return ok && computed == root
}

func rebuild(leaf crypto.Hash, index, size int, path []crypto.Hash) (crypto.Hash, bool) {
	if size == 1 {
		if len(path) != 0 {
			return crypto.Hash{}, false
		}
		return leaf, true
	}
	if len(path) == 0 {
		return crypto.Hash{}, false
	}
	sibling := path[len(path)-1]
	rest := path[:len(path)-1]
	split := largestPowerOfTwoBelow(size)
	if index < split {
		sub, ok := rebuild(leaf, index, split, rest)
		if !ok {
			return crypto.Hash{}, false
		}
		return hashNode(sub, sibling), true
	}
	sub, ok := rebuild(leaf, index-split, size-split, rest)
	if !ok {
		return crypto.Hash{}, false
	}
	return hashNode(sibling, sub), true
}

// BatchTree is the inner Merkle tree over one batch's commitment hashes.
type BatchTree struct {
	leaves []crypto.Hash
}

// NewBatchTree builds the tree for a batch's commitment hashes, in
// commitment-ID order.
func NewBatchTree(commitments []crypto.Hash) *BatchTree {
	leaves := make([]crypto.Hash, len(commitments))
	for i, c := range commitments {
		leaves[i] = hashLeaf(c[:])
	}
	return &BatchTree{leaves: leaves}
}

// Root returns the batch root anchored into the accumulator.
func (t *BatchTree) Root() crypto.Hash {
	return merkleRoot(t.leaves)
}

// Prove returns the audit path for the commitment at index.
func (t *BatchTree) Prove(index int) (Proof, error) {
	if index < 0 || index >= len(t.leaves) {
		return Proof{}, ErrIndexOutOfRange
	}
	return Proof{Index: index, Size: len(t.leaves), Path: merklePath(t.leaves, index)}, nil
}

// Leaf returns the leaf hash for a commitment hash, for use with Verify.
func Leaf(commitment crypto.Hash) crypto.Hash {
	return hashLeaf(commitment[:])
}

// Accumulator is the outer append-only tree over batch roots. Appends are
// strictly ordered; the accumulator never removes or rewrites a leaf.
type Accumulator struct {
	mu     sync.RWMutex
	leaves []crypto.Hash
}

// New creates an empty accumulator.
func New() *Accumulator {
	return &Accumulator{}
}

// Append anchors a batch root and returns its position.
func (a *Accumulator) Append(batchRoot crypto.Hash) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.leaves = append(a.leaves, hashLeaf(batchRoot[:]))
	return len(a.leaves) - 1
}

// Size returns the number of anchored batch roots.
func (a *Accumulator) Size() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.leaves)
}

// Root returns the current accumulator root.
func (a *Accumulator) Root() crypto.Hash {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return merkleRoot(a.leaves)
}

// Prove returns the audit path for the batch root at the given position,
// against the current accumulator root.
func (a *Accumulator) Prove(position int) (Proof, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if position < 0 || position >= len(a.leaves) {
		return Proof{}, ErrIndexOutOfRange
	}
	return Proof{Index: position, Size: len(a.leaves), Path: merklePath(a.leaves, position)}, nil
}

// HistoryProof proves a single commitment's inclusion through both levels:
// the commitment sits in the batch tree whose root sits in the accumulator.
type HistoryProof struct {
	Commitment crypto.Hash `json:"commitment"`
	BatchRoot  crypto.Hash `json:"batch_root"`
	BatchProof Proof       `json:"batch_proof"`
	Position   int         `json:"position"`
	HistProof  Proof       `json:"history_proof"`
}

// VerifyHistory checks a two-level proof against an accumulator root.
func VerifyHistory(root crypto.Hash, p HistoryProof) bool {
	if !Verify(p.BatchRoot, Leaf(p.Commitment), p.BatchProof) {
		return false
	}
	return Verify(root, Leaf(p.BatchRoot), p.HistProof)
}

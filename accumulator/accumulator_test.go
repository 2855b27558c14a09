package accumulator

import (
	"crypto/rand"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairbatch/fairbatch/crypto"
)

func randomHash(t *testing.T) crypto.Hash {
	t.Helper()
	var h crypto.Hash
	_, err := rand.Read(h[:])
	require.NoError(t, err)
	return h
}

func TestBatchTreeProofsVerify(t *testing.T) {
	for _, n := range []int{1, 2, 3, 4, 5, 7, 8, 13} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			commitments := make([]crypto.Hash, n)
			for i := range commitments {
				commitments[i] = randomHash(t)
			}
			tree := NewBatchTree(commitments)
			root := tree.Root()

			for i, c := range commitments {
				proof, err := tree.Prove(i)
				require.NoError(t, err)
				assert.True(t, Verify(root, Leaf(c), proof), "leaf %d", i)
			}
		})
	}
}

func TestProofRejectsWrongLeaf(t *testing.T) {
	commitments := []crypto.Hash{randomHash(t), randomHash(t), randomHash(t)}
	tree := NewBatchTree(commitments)
	root := tree.Root()

	proof, err := tree.Prove(0)
	require.NoError(t, err)

	assert.False(t, Verify(root, Leaf(randomHash(t)), proof))
	assert.False(t, Verify(root, commitments[0], proof),
		"raw commitment without leaf domain separation must not verify")

	bad := proof
	bad.Index = 1
	assert.False(t, Verify(root, Leaf(commitments[0]), bad))
}

func TestProveOutOfRange(t *testing.T) {
	tree := NewBatchTree([]crypto.Hash{randomHash(t)})
	_, err := tree.Prove(1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = tree.Prove(-1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestAccumulatorAppendOnly(t *testing.T) {
	acc := New()
	require.Equal(t, 0, acc.Size())

	roots := make([]crypto.Hash, 0, 6)
	accRoots := make([]crypto.Hash, 0, 6)
	for i := 0; i < 6; i++ {
		batchRoot := randomHash(t)
		position := acc.Append(batchRoot)
		assert.Equal(t, i, position)
		roots = append(roots, batchRoot)
		accRoots = append(accRoots, acc.Root())
	}

	// Every append changes the accumulator root.
	seen := make(map[string]bool)
	for _, r := range accRoots {
		assert.False(t, seen[r.String()])
		seen[r.String()] = true
	}

	// Old entries remain provable against the latest root.
	for i, batchRoot := range roots {
		proof, err := acc.Prove(i)
		require.NoError(t, err)
		assert.True(t, Verify(acc.Root(), Leaf(batchRoot), proof), "position %d", i)
	}
}

func TestHistoryProofRoundtrip(t *testing.T) {
	acc := New()

	// Three batches of varying sizes; prove a commitment from the middle one.
	var target crypto.Hash
	var targetProof Proof
	var targetRoot crypto.Hash
	var targetPos int
	for b := 0; b < 3; b++ {
		n := 2 + b*3
		commitments := make([]crypto.Hash, n)
		for i := range commitments {
			commitments[i] = randomHash(t)
		}
		tree := NewBatchTree(commitments)
		pos := acc.Append(tree.Root())

		if b == 1 {
			target = commitments[n-1]
			proof, err := tree.Prove(n - 1)
			require.NoError(t, err)
			targetProof = proof
			targetRoot = tree.Root()
			targetPos = pos
		}
	}

	histProof, err := acc.Prove(targetPos)
	require.NoError(t, err)

	hp := HistoryProof{
		Commitment: target,
		BatchRoot:  targetRoot,
		BatchProof: targetProof,
		Position:   targetPos,
		HistProof:  histProof,
	}
	assert.True(t, VerifyHistory(acc.Root(), hp))

	tampered := hp
	tampered.Commitment = randomHash(t)
	assert.False(t, VerifyHistory(acc.Root(), tampered))

	assert.False(t, VerifyHistory(randomHash(t), hp))
}

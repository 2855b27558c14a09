package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairbatch/fairbatch/accumulator"
	"github.com/fairbatch/fairbatch/aggregator"
	"github.com/fairbatch/fairbatch/auction"
	"github.com/fairbatch/fairbatch/crypto"
	"github.com/fairbatch/fairbatch/protocol"
	"github.com/fairbatch/fairbatch/testutil"
)

// testHarness is an engine with a controllable clock. The clock starts at
// the beginning of batch 100's commit window.
type testHarness struct {
	engine  *Engine
	custody *InMemoryCustody
	archive *InMemoryArchive
	now     time.Time
}

func newHarness(t *testing.T, opts ...Option) *testHarness {
	t.Helper()
	h := &testHarness{
		custody: NewInMemoryCustody(),
		archive: NewInMemoryArchive(),
		now:     testutil.Epoch,
	}
	cfg := testutil.NewTestConfig(testutil.WithMinBond("1"))
	opts = append(opts, withClock(func() time.Time { return h.now }))
	h.engine = NewEngine(cfg, h.custody, h.archive, testutil.NewTestPool(t), opts...)
	return h
}

// advanceToReveal moves the clock into batch 100's reveal window.
func (h *testHarness) advanceToReveal() { h.now = testutil.Epoch.Add(9 * time.Second) }

// advanceToSettling moves the clock past batch 100's reveal deadline.
func (h *testHarness) advanceToSettling() { h.now = testutil.Epoch.Add(11 * time.Second) }

func signedCommit(t *testing.T, key crypto.PrivateKey, req *protocol.CommitRequest) *protocol.Signed[protocol.CommitRequest] {
	t.Helper()
	signed, err := protocol.NewSigned(key, req)
	require.NoError(t, err)
	return signed
}

func signedReveal(t *testing.T, key crypto.PrivateKey, req *protocol.RevealRequest) *protocol.Signed[protocol.RevealRequest] {
	t.Helper()
	signed, err := protocol.NewSigned(key, req)
	require.NoError(t, err)
	return signed
}

// commitAndReveal runs one trader through the full commit-reveal flow for
// batch 100 and returns the committed order.
func (h *testHarness) commitAndReveal(t *testing.T, key crypto.PrivateKey, params protocol.OrderParams) *protocol.Order {
	t.Helper()
	commit, reveal := testutil.CommitRevealPair(t, 100, params, "5")

	h.now = testutil.Epoch
	commitment, err := h.engine.Commit(signedCommit(t, key, commit))
	require.NoError(t, err)

	h.advanceToReveal()
	order, err := h.engine.Reveal(signedReveal(t, key, reveal(commitment.ID)))
	require.NoError(t, err)
	return order
}

func TestCommitPhaseRules(t *testing.T) {
	h := newHarness(t)
	_, key := testutil.GenerateTestKeyPair(t)
	commit, _ := testutil.CommitRevealPair(t, 100, testutil.BuyParams("100", "0"), "5")

	// Current batch during its commit window.
	_, err := h.engine.Commit(signedCommit(t, key, commit))
	require.NoError(t, err)

	// Next batch is accepted early.
	next, _ := testutil.CommitRevealPair(t, 101, testutil.BuyParams("100", "0"), "5")
	_, err = h.engine.Commit(signedCommit(t, key, next))
	require.NoError(t, err)

	// Past batch never accepts.
	past, _ := testutil.CommitRevealPair(t, 99, testutil.BuyParams("100", "0"), "5")
	_, err = h.engine.Commit(signedCommit(t, key, past))
	assert.ErrorIs(t, err, protocol.ErrInvalidPhase)

	// Current batch after its commit window closes.
	h.advanceToReveal()
	late, _ := testutil.CommitRevealPair(t, 100, testutil.BuyParams("100", "0"), "5")
	_, err = h.engine.Commit(signedCommit(t, key, late))
	assert.ErrorIs(t, err, protocol.ErrInvalidPhase)
}

func TestCommitBondRules(t *testing.T) {
	h := newHarness(t)
	pub, key := testutil.GenerateTestKeyPair(t)

	small, _ := testutil.CommitRevealPair(t, 100, testutil.BuyParams("100", "0"), "0.5")
	_, err := h.engine.Commit(signedCommit(t, key, small))
	assert.ErrorIs(t, err, protocol.ErrInsufficientBond)

	wrongAsset, _ := testutil.CommitRevealPair(t, 100, testutil.BuyParams("100", "0"), "5")
	wrongAsset.BondAsset = "ETH"
	_, err = h.engine.Commit(signedCommit(t, key, wrongAsset))
	assert.ErrorIs(t, err, protocol.ErrInsufficientBond)

	good, _ := testutil.CommitRevealPair(t, 100, testutil.BuyParams("100", "0"), "5")
	_, err = h.engine.Commit(signedCommit(t, key, good))
	require.NoError(t, err)
	assert.True(t, h.custody.Escrowed(pub, "USDC").Equal(decimal.NewFromInt(5)))
}

func TestRevealValidation(t *testing.T) {
	h := newHarness(t)
	_, key := testutil.GenerateTestKeyPair(t)
	_, otherKey := testutil.GenerateTestKeyPair(t)

	params := testutil.BuyParams("100", "0")
	commit, reveal := testutil.CommitRevealPair(t, 100, params, "5")
	commitment, err := h.engine.Commit(signedCommit(t, key, commit))
	require.NoError(t, err)

	// Too early: still in the commit window.
	_, err = h.engine.Reveal(signedReveal(t, key, reveal(commitment.ID)))
	assert.ErrorIs(t, err, protocol.ErrInvalidReveal)

	h.advanceToReveal()

	// Wrong signer.
	_, err = h.engine.Reveal(signedReveal(t, otherKey, reveal(commitment.ID)))
	assert.ErrorIs(t, err, protocol.ErrInvalidReveal)

	// Wrong parameters break the hash binding.
	bad := reveal(commitment.ID)
	bad.Params = testutil.BuyParams("200", "0")
	_, err = h.engine.Reveal(signedReveal(t, key, bad))
	assert.ErrorIs(t, err, protocol.ErrInvalidReveal)

	// Priority bid above the bond.
	greedy := reveal(commitment.ID)
	greedy.PriorityBid = decimal.NewFromInt(10)
	_, err = h.engine.Reveal(signedReveal(t, key, greedy))
	assert.ErrorIs(t, err, protocol.ErrInvalidReveal)

	// Valid reveal succeeds, second reveal is rejected.
	_, err = h.engine.Reveal(signedReveal(t, key, reveal(commitment.ID)))
	require.NoError(t, err)
	_, err = h.engine.Reveal(signedReveal(t, key, reveal(commitment.ID)))
	assert.ErrorIs(t, err, protocol.ErrInvalidReveal)
}

func TestRevealSharedContextRejected(t *testing.T) {
	h := newHarness(t)
	_, key := testutil.GenerateTestKeyPair(t)

	params := testutil.BuyParams("100", "0")
	commit, reveal := testutil.CommitRevealPair(t, 100, params, "5")
	commit.Context = "block-12345"
	commitment, err := h.engine.Commit(signedCommit(t, key, commit))
	require.NoError(t, err)

	h.advanceToReveal()

	// Same execution context as the commit: the atomically-composed
	// commit+reveal pattern is rejected.
	same := reveal(commitment.ID)
	same.Context = "block-12345"
	_, err = h.engine.Reveal(signedReveal(t, key, same))
	assert.ErrorIs(t, err, protocol.ErrInvalidReveal)

	later := reveal(commitment.ID)
	later.Context = "block-12399"
	_, err = h.engine.Reveal(signedReveal(t, key, later))
	assert.NoError(t, err)
}

func TestRevealReleasesBondNetOfPriorityBid(t *testing.T) {
	h := newHarness(t)
	pub, key := testutil.GenerateTestKeyPair(t)

	commit, reveal := testutil.CommitRevealPair(t, 100, testutil.BuyParams("100", "0"), "5")
	commitment, err := h.engine.Commit(signedCommit(t, key, commit))
	require.NoError(t, err)

	h.advanceToReveal()
	req := reveal(commitment.ID)
	req.PriorityBid = decimal.NewFromInt(2)
	_, err = h.engine.Reveal(signedReveal(t, key, req))
	require.NoError(t, err)

	// 3 of the 5 released; the 2 priority bid stays escrowed until settlement.
	assert.True(t, h.custody.Escrowed(pub, "USDC").Equal(decimal.NewFromInt(2)))
}

func TestUnrevealedCommitmentSlashedOnSettle(t *testing.T) {
	h := newHarness(t)
	pub, key := testutil.GenerateTestKeyPair(t)

	commit, _ := testutil.CommitRevealPair(t, 100, testutil.BuyParams("100", "0"), "5")
	_, err := h.engine.Commit(signedCommit(t, key, commit))
	require.NoError(t, err)

	h.advanceToSettling()
	outcome, err := h.engine.Settle(context.Background(), 100)
	require.NoError(t, err)

	require.Len(t, outcome.UnrevealedSlashes, 1)
	slash := outcome.UnrevealedSlashes[0]
	assert.True(t, slash.Forfeited.Equal(decimal.RequireFromString("2.5")))
	assert.True(t, slash.Returned.Equal(decimal.RequireFromString("2.5")))

	assert.True(t, h.custody.LossPool("USDC").Equal(decimal.RequireFromString("2.5")))
	assert.True(t, h.custody.Escrowed(pub, "USDC").IsZero())
	// Net of the escrow debit: -5 + 2.5 returned.
	assert.True(t, h.custody.Balance(pub, "USDC").Equal(decimal.RequireFromString("-2.5")))
}

func TestSettlePhaseAndIdempotency(t *testing.T) {
	h := newHarness(t)
	_, key := testutil.GenerateTestKeyPair(t)
	h.commitAndReveal(t, key, testutil.BuyParams("4000", "0"))

	// Reveal window still open.
	h.advanceToReveal()
	_, err := h.engine.Settle(context.Background(), 100)
	assert.ErrorIs(t, err, protocol.ErrInvalidPhase)

	h.advanceToSettling()
	outcome, err := h.engine.Settle(context.Background(), 100)
	require.NoError(t, err)
	baseAfter, quoteAfter := h.engine.Pool().Reserves()

	// Idempotent: the second settle fails without touching the pool.
	_, err = h.engine.Settle(context.Background(), 100)
	assert.ErrorIs(t, err, protocol.ErrAlreadySettled)
	baseAgain, quoteAgain := h.engine.Pool().Reserves()
	assert.True(t, baseAfter.Equal(baseAgain))
	assert.True(t, quoteAfter.Equal(quoteAgain))

	info := h.engine.BatchPhase(100)
	assert.Equal(t, protocol.PhaseSettled, info.Phase)
	assert.NotNil(t, outcome)
}

func TestSettleMovesTradeLegs(t *testing.T) {
	h := newHarness(t)
	buyerPub, buyerKey := testutil.GenerateTestKeyPair(t)
	sellerPub, sellerKey := testutil.GenerateTestKeyPair(t)

	h.commitAndReveal(t, buyerKey, testutil.BuyParams("8000", "0"))
	h.commitAndReveal(t, sellerKey, testutil.SellParams("2", "0"))

	h.advanceToSettling()
	outcome, err := h.engine.Settle(context.Background(), 100)
	require.NoError(t, err)
	assert.True(t, outcome.ClearingPrice.Equal(decimal.NewFromInt(4000)))

	// Buyer: -8000 USDC, +2 ETH. Seller: +8000 USDC, -2 ETH. Bonds washed out.
	assert.True(t, h.custody.Balance(buyerPub, "USDC").Equal(decimal.NewFromInt(-8000)))
	assert.True(t, h.custody.Balance(buyerPub, "ETH").Equal(decimal.NewFromInt(2)))
	assert.True(t, h.custody.Balance(sellerPub, "USDC").Equal(decimal.NewFromInt(8000)))
	assert.True(t, h.custody.Balance(sellerPub, "ETH").Equal(decimal.NewFromInt(-2)))
}

func TestSettleChargesPriorityBidsOfFilledOrders(t *testing.T) {
	h := newHarness(t)
	pub, key := testutil.GenerateTestKeyPair(t)

	commit, reveal := testutil.CommitRevealPair(t, 100, testutil.BuyParams("4000", "0"), "5")
	commitment, err := h.engine.Commit(signedCommit(t, key, commit))
	require.NoError(t, err)

	h.advanceToReveal()
	req := reveal(commitment.ID)
	req.PriorityBid = decimal.NewFromInt(2)
	_, err = h.engine.Reveal(signedReveal(t, key, req))
	require.NoError(t, err)

	h.advanceToSettling()
	_, err = h.engine.Settle(context.Background(), 100)
	require.NoError(t, err)

	assert.True(t, h.custody.Fees("USDC").Equal(decimal.NewFromInt(2)))
	assert.True(t, h.custody.Escrowed(pub, "USDC").IsZero())
}

func TestCircuitBreakerPausesAndResumes(t *testing.T) {
	h := newHarness(t)
	h.engine.cfg.MaxPriceDeviation = decimal.New(1, -2)

	_, key := testutil.GenerateTestKeyPair(t)
	h.commitAndReveal(t, key, testutil.BuyParams("100000", "0"))

	h.advanceToSettling()
	_, err := h.engine.Settle(context.Background(), 100)
	assert.ErrorIs(t, err, protocol.ErrPriceDeviationExceeded)

	paused, reason := h.engine.Paused()
	assert.True(t, paused)
	assert.NotEmpty(t, reason)

	// While paused every settle attempt defers, even for other batches.
	_, err = h.engine.Settle(context.Background(), 100)
	assert.ErrorIs(t, err, protocol.ErrPriceDeviationExceeded)

	h.engine.Resume()
	paused, _ = h.engine.Paused()
	assert.False(t, paused)

	// The batch itself is still deferred because the price still deviates,
	// but a relaxed bound lets it through.
	h.engine.cfg.MaxPriceDeviation = decimal.New(5, -2)
	_, err = h.engine.Settle(context.Background(), 100)
	assert.NoError(t, err)
}

func TestSettleProposalCompleteness(t *testing.T) {
	h := newHarness(t)
	_, alice := testutil.GenerateTestKeyPair(t)
	_, bob := testutil.GenerateTestKeyPair(t)
	_, proposerKey := testutil.GenerateTestKeyPair(t)

	a := h.commitAndReveal(t, alice, testutil.BuyParams("4000", "0"))
	b := h.commitAndReveal(t, bob, testutil.SellParams("1", "0"))

	h.advanceToSettling()

	// A proposal omitting one eligible order is rejected whole.
	partial, err := protocol.NewSigned(proposerKey, &aggregator.Proposal{
		Batch:    100,
		OrderIDs: []uuid.UUID{a.CommitmentID},
	})
	require.NoError(t, err)
	_, err = h.engine.SettleProposal(context.Background(), partial)
	assert.ErrorIs(t, err, protocol.ErrIncompleteAggregation)

	// The complete proposal settles.
	full, err := protocol.NewSigned(proposerKey, &aggregator.Proposal{
		Batch:    100,
		OrderIDs: []uuid.UUID{a.CommitmentID, b.CommitmentID},
	})
	require.NoError(t, err)
	outcome, err := h.engine.SettleProposal(context.Background(), full)
	require.NoError(t, err)
	assert.Len(t, outcome.Fills, 2)
}

func TestWithdrawBond(t *testing.T) {
	h := newHarness(t)
	_, key := testutil.GenerateTestKeyPair(t)

	commit, _ := testutil.CommitRevealPair(t, 100, testutil.BuyParams("100", "0"), "5")
	commitment, err := h.engine.Commit(signedCommit(t, key, commit))
	require.NoError(t, err)

	withdraw := func() (decimal.Decimal, error) {
		signed, err := protocol.NewSigned(key, &protocol.WithdrawBondRequest{CommitmentID: commitment.ID})
		require.NoError(t, err)
		return h.engine.WithdrawBond(signed)
	}

	// Locked while the batch is live.
	_, err = withdraw()
	assert.ErrorIs(t, err, protocol.ErrInvalidPhase)

	// After the reveal deadline the unrevealed commitment is slashed and the
	// returned half paid out; repeat withdrawals are no-ops.
	h.advanceToSettling()
	returned, err := withdraw()
	require.NoError(t, err)
	assert.True(t, returned.Equal(decimal.RequireFromString("2.5")))

	returned, err = withdraw()
	require.NoError(t, err)
	assert.True(t, returned.IsZero())
}

func TestProveInclusionAfterSettle(t *testing.T) {
	h := newHarness(t)
	_, key := testutil.GenerateTestKeyPair(t)
	order := h.commitAndReveal(t, key, testutil.BuyParams("4000", "0"))

	h.advanceToSettling()
	_, err := h.engine.Settle(context.Background(), 100)
	require.NoError(t, err)

	proof, err := h.engine.Prove(100, order.CommitmentID)
	require.NoError(t, err)
	assert.True(t, accumulator.VerifyHistory(h.engine.AccumulatorRoot(), proof))
}

func TestSettleArchivesBatchRecord(t *testing.T) {
	h := newHarness(t)
	_, key := testutil.GenerateTestKeyPair(t)
	order := h.commitAndReveal(t, key, testutil.BuyParams("4000", "0"))

	h.advanceToSettling()
	_, err := h.engine.Settle(context.Background(), 100)
	require.NoError(t, err)

	record, err := h.archive.LoadBatch(100)
	require.NoError(t, err)
	assert.Equal(t, protocol.BatchID(100), record.Batch)
	require.Len(t, record.Orders, 1)
	assert.Equal(t, order.CommitmentID, record.Orders[0].CommitmentID)
	require.NotNil(t, record.Outcome)

	_, err = h.archive.LoadBatch(42)
	assert.ErrorIs(t, err, ErrBatchNotFound)
}

// flakyCustody fails the first debit it sees, then behaves normally.
type flakyCustody struct {
	*InMemoryCustody
	failed bool
}

func (c *flakyCustody) Debit(owner crypto.PublicKey, asset string, amount decimal.Decimal) error {
	if !c.failed {
		c.failed = true
		return errors.New("custody backend unavailable")
	}
	return c.InMemoryCustody.Debit(owner, asset, amount)
}

func TestSettleRetriesAfterCustodyFailure(t *testing.T) {
	flaky := &flakyCustody{InMemoryCustody: NewInMemoryCustody()}
	h := &testHarness{
		custody: flaky.InMemoryCustody,
		archive: NewInMemoryArchive(),
		now:     testutil.Epoch,
	}
	cfg := testutil.NewTestConfig(testutil.WithMinBond("1"))
	h.engine = NewEngine(cfg, flaky, h.archive, testutil.NewTestPool(t),
		withClock(func() time.Time { return h.now }))

	pub, key := testutil.GenerateTestKeyPair(t)
	h.commitAndReveal(t, key, testutil.BuyParams("4000", "0"))

	h.advanceToSettling()
	_, err := h.engine.Settle(context.Background(), 100)
	require.Error(t, err)
	assert.NotErrorIs(t, err, protocol.ErrAlreadySettled)

	// Nothing committed: the pool is untouched and the batch stays open.
	base, quote := h.engine.Pool().Reserves()
	assert.True(t, base.Equal(decimal.NewFromInt(1000)))
	assert.True(t, quote.Equal(decimal.NewFromInt(4000000)))

	// Once custody recovers the same batch settles cleanly.
	outcome, err := h.engine.Settle(context.Background(), 100)
	require.NoError(t, err)
	_, quote = h.engine.Pool().Reserves()
	assert.True(t, quote.Equal(decimal.NewFromInt(4004000)))
	assert.True(t, h.custody.Balance(pub, "USDC").Equal(decimal.NewFromInt(-4000)))
	assert.True(t, h.custody.Balance(pub, "ETH").Equal(outcome.Fills[0].AmountOut))

	_, err = h.engine.Settle(context.Background(), 100)
	assert.ErrorIs(t, err, protocol.ErrAlreadySettled)
}

func TestSettleCollectsFeesPerAsset(t *testing.T) {
	h := newHarness(t)
	h.engine.cfg.FeeBps = 30

	_, buyer := testutil.GenerateTestKeyPair(t)
	_, seller := testutil.GenerateTestKeyPair(t)
	h.commitAndReveal(t, buyer, testutil.BuyParams("8000", "0"))
	h.commitAndReveal(t, seller, testutil.SellParams("2", "0"))

	h.advanceToSettling()
	_, err := h.engine.Settle(context.Background(), 100)
	require.NoError(t, err)

	// 0.3% of 2 base on the buy leg, 0.3% of 8000 quote on the sell leg;
	// each retained in the asset it was charged in.
	assert.True(t, h.custody.Fees("ETH").Equal(decimal.RequireFromString("0.006")))
	assert.True(t, h.custody.Fees("USDC").Equal(decimal.NewFromInt(24)))
}

func TestSettledBatchEvictedFromMemory(t *testing.T) {
	h := newHarness(t)
	_, key := testutil.GenerateTestKeyPair(t)
	order := h.commitAndReveal(t, key, testutil.BuyParams("4000", "0"))

	h.advanceToSettling()
	_, err := h.engine.Settle(context.Background(), 100)
	require.NoError(t, err)

	h.engine.mu.Lock()
	_, live := h.engine.batches[100]
	_, indexed := h.engine.commitIndex[order.CommitmentID]
	h.engine.mu.Unlock()
	assert.False(t, live, "archived batch state must be dropped")
	assert.False(t, indexed)

	// Every read path still resolves through the archive.
	record, err := h.engine.BatchRecord(100)
	require.NoError(t, err)
	require.NotNil(t, record.Outcome)
	assert.Equal(t, protocol.PhaseSettled, h.engine.BatchPhase(100).Phase)

	proof, err := h.engine.Prove(100, order.CommitmentID)
	require.NoError(t, err)
	assert.True(t, accumulator.VerifyHistory(h.engine.AccumulatorRoot(), proof))

	_, err = h.engine.Settle(context.Background(), 100)
	assert.ErrorIs(t, err, protocol.ErrAlreadySettled)
}

// brokenArchive rejects every write.
type brokenArchive struct {
	*InMemoryArchive
}

func (a *brokenArchive) SaveBatch(*protocol.BatchRecord) error {
	return errors.New("archive unavailable")
}

func TestArchiveFailureRetainsBatchState(t *testing.T) {
	broken := &brokenArchive{InMemoryArchive: NewInMemoryArchive()}
	h := &testHarness{
		custody: NewInMemoryCustody(),
		archive: broken.InMemoryArchive,
		now:     testutil.Epoch,
	}
	cfg := testutil.NewTestConfig(testutil.WithMinBond("1"))
	h.engine = NewEngine(cfg, h.custody, broken, testutil.NewTestPool(t),
		withClock(func() time.Time { return h.now }))

	_, key := testutil.GenerateTestKeyPair(t)
	h.commitAndReveal(t, key, testutil.BuyParams("4000", "0"))

	h.advanceToSettling()
	_, err := h.engine.Settle(context.Background(), 100)
	require.NoError(t, err)

	// With no archive copy the state must stay resident and queryable.
	h.engine.mu.Lock()
	_, live := h.engine.batches[100]
	h.engine.mu.Unlock()
	assert.True(t, live)

	record, err := h.engine.BatchRecord(100)
	require.NoError(t, err)
	require.NotNil(t, record.Outcome)

	_, err = h.engine.Settle(context.Background(), 100)
	assert.ErrorIs(t, err, protocol.ErrAlreadySettled)
}

func TestExecutionSeedCoversDeniedOrders(t *testing.T) {
	deny := NewDenyList()
	h := newHarness(t, WithCompliance(deny))

	var revealed []*protocol.Order
	var keys []crypto.PublicKey
	for i := 0; i < 4; i++ {
		pub, key := testutil.GenerateTestKeyPair(t)
		revealed = append(revealed, h.commitAndReveal(t, key, testutil.BuyParams("10", "0")))
		keys = append(keys, pub)
	}
	deny.Deny(keys[0])

	h.advanceToSettling()
	outcome, err := h.engine.Settle(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, outcome.Fills, 3)

	// The ordering seed is derived from all four revealed secrets even though
	// only three orders settle, so it stays recomputable from reveal data.
	expected := auction.ExecutionOrder(revealed[1:], auction.SeedForBatch(revealed))
	for i, fill := range outcome.Fills {
		assert.Equal(t, expected[i].CommitmentID, fill.OrderID)
	}
}

func TestComplianceDeniedOrdersExcluded(t *testing.T) {
	deny := NewDenyList()
	h := newHarness(t, WithCompliance(deny))

	alicePub, alice := testutil.GenerateTestKeyPair(t)
	_, bob := testutil.GenerateTestKeyPair(t)

	a := h.commitAndReveal(t, alice, testutil.BuyParams("4000", "0"))
	h.commitAndReveal(t, bob, testutil.SellParams("1", "0"))

	deny.Deny(alicePub)

	h.advanceToSettling()
	outcome, err := h.engine.Settle(context.Background(), 100)
	require.NoError(t, err)

	// Only the non-denied order settles.
	require.Len(t, outcome.Fills, 1)
	assert.NotEqual(t, a.CommitmentID, outcome.Fills[0].OrderID)
}

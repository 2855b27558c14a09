package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fairbatch/fairbatch/accumulator"
	"github.com/fairbatch/fairbatch/aggregator"
	"github.com/fairbatch/fairbatch/auction"
	"github.com/fairbatch/fairbatch/crypto"
	"github.com/fairbatch/fairbatch/protocol"
)

// Engine runs the batch auction lifecycle for one trading pair.
type Engine struct {
	cfg         *protocol.Config
	clock       protocol.BatchClock
	log         *slog.Logger
	custody     Custody
	oracle      Oracle
	compliance  aggregator.Compliance
	store       ArchiveStore
	publisher   OutcomePublisher
	pool        *auction.Pool
	anchor      *aggregator.Anchor
	coordinator protocol.BatchCoordinator

	// AutoSettle makes the engine settle each batch itself when the reveal
	// window closes. Settlement stays permissionless either way; this only
	// removes the need for an external caller in single-node deployments.
	autoSettle bool

	now func() time.Time

	mu      sync.Mutex
	batches map[protocol.BatchID]*batchState
	// commitIndex locates a commitment's batch without scanning.
	commitIndex map[uuid.UUID]protocol.BatchID
	paused      bool
	pauseReason string
}

// batchState is the engine's working state for one batch. Guarded by the
// engine mutex.
type batchState struct {
	commitments map[uuid.UUID]*protocol.Commitment
	orders      map[uuid.UUID]*protocol.Order
	slashed     bool
	slashes     []protocol.SlashRecord
	outcome     *protocol.ClearingOutcome
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithOracle sets the external reference price feed.
func WithOracle(oracle Oracle) Option {
	return func(e *Engine) { e.oracle = oracle }
}

// WithCompliance sets the deny-list consulted during settlement assembly.
func WithCompliance(compliance aggregator.Compliance) Option {
	return func(e *Engine) { e.compliance = compliance }
}

// WithPublisher sets the outcome event stream.
func WithPublisher(publisher OutcomePublisher) Option {
	return func(e *Engine) { e.publisher = publisher }
}

// WithCoordinator sets the phase transition source.
func WithCoordinator(coordinator protocol.BatchCoordinator) Option {
	return func(e *Engine) { e.coordinator = coordinator }
}

// WithAutoSettle makes the engine settle batches itself at reveal close.
func WithAutoSettle() Option {
	return func(e *Engine) { e.autoSettle = true }
}

// withClock overrides the engine's time source. Only used in tests.
func withClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an engine for the configured pair.
func NewEngine(cfg *protocol.Config, custody Custody, store ArchiveStore, pool *auction.Pool, opts ...Option) *Engine {
	e := &Engine{
		cfg:         cfg,
		clock:       cfg.Clock(),
		log:         slog.Default(),
		custody:     custody,
		store:       store,
		publisher:   NopPublisher{},
		pool:        pool,
		anchor:      aggregator.NewAnchor(),
		now:         time.Now,
		batches:     make(map[protocol.BatchID]*batchState),
		commitIndex: make(map[uuid.UUID]protocol.BatchID),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.coordinator == nil {
		e.coordinator = protocol.NewLocalBatchCoordinator(e.clock)
	}
	return e
}

// Run starts phase progression and processes transitions until the context
// is cancelled. Slashing of unrevealed commitments happens when a batch
// enters Settling; with auto-settle enabled settlement runs right after.
func (e *Engine) Run(ctx context.Context) {
	e.coordinator.Start(ctx)
	events := e.coordinator.Subscribe(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			e.log.Debug("phase transition", "batch", event.Batch, "phase", event.Phase.String())
			if event.Phase != protocol.PhaseSettling {
				continue
			}
			e.onRevealClose(ctx, event.Batch)
		}
	}
}

func (e *Engine) onRevealClose(ctx context.Context, batch protocol.BatchID) {
	e.mu.Lock()
	if state, ok := e.batches[batch]; ok {
		e.slashUnrevealedLocked(batch, state)
	}
	e.mu.Unlock()

	if !e.autoSettle {
		return
	}
	if _, err := e.Settle(ctx, batch); err != nil {
		e.log.Error("auto settlement failed", "batch", batch, "err", err)
	}
}

// Commit registers a signed, bonded commitment. Accepted only while the
// target batch's commit window is open, or one batch ahead of it.
func (e *Engine) Commit(signed *protocol.Signed[protocol.CommitRequest]) (*protocol.Commitment, error) {
	req, owner, err := signed.Recover()
	if err != nil {
		return nil, fmt.Errorf("recovering commit: %w", err)
	}

	now := e.now()
	if !e.clock.AcceptsCommit(req.Batch, now) {
		return nil, fmt.Errorf("%w: batch %d does not accept commits at %s",
			protocol.ErrInvalidPhase, req.Batch, now.Format(time.RFC3339Nano))
	}
	if req.BondAmount.LessThan(e.cfg.MinBond) {
		return nil, fmt.Errorf("%w: %s < %s", protocol.ErrInsufficientBond, req.BondAmount, e.cfg.MinBond)
	}
	if req.BondAsset != e.cfg.BondAsset {
		return nil, fmt.Errorf("%w: bonds must be posted in %s", protocol.ErrInsufficientBond, e.cfg.BondAsset)
	}

	if err := e.custody.Escrow(owner, req.BondAsset, req.BondAmount); err != nil {
		return nil, fmt.Errorf("escrowing bond: %w", err)
	}

	commitment := &protocol.Commitment{
		ID:         uuid.New(),
		Batch:      req.Batch,
		Owner:      owner,
		Hash:       req.Hash,
		BondAmount: req.BondAmount,
		BondAsset:  req.BondAsset,
		Context:    req.Context,
		CreatedAt:  now,
		Status:     protocol.CommitmentPending,
	}

	e.mu.Lock()
	state, ok := e.batches[req.Batch]
	if !ok {
		state = &batchState{
			commitments: make(map[uuid.UUID]*protocol.Commitment),
			orders:      make(map[uuid.UUID]*protocol.Order),
		}
		e.batches[req.Batch] = state
	}
	state.commitments[commitment.ID] = commitment
	e.commitIndex[commitment.ID] = req.Batch
	e.mu.Unlock()

	e.log.Info("commitment accepted", "batch", req.Batch, "commitment", commitment.ID, "bond", req.BondAmount)
	return commitment, nil
}

// Reveal opens a commitment during its batch's reveal window. On success the
// bond, net of the priority bid, returns to the owner and the order enters
// the batch's eligible set. Any validation failure leaves the commitment
// pending; it will be slashed when the window closes.
func (e *Engine) Reveal(signed *protocol.Signed[protocol.RevealRequest]) (*protocol.Order, error) {
	req, owner, err := signed.Recover()
	if err != nil {
		return nil, fmt.Errorf("recovering reveal: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	batch, ok := e.commitIndex[req.CommitmentID]
	if !ok {
		return nil, fmt.Errorf("%w: unknown commitment %s", protocol.ErrInvalidReveal, req.CommitmentID)
	}
	state := e.batches[batch]
	commitment := state.commitments[req.CommitmentID]

	now := e.now()
	if e.clock.PhaseOfBatch(batch, now) != protocol.PhaseReveal {
		return nil, fmt.Errorf("%w: batch %d is not in its reveal window", protocol.ErrInvalidReveal, batch)
	}
	if !owner.Equal(commitment.Owner) {
		return nil, fmt.Errorf("%w: signer is not the committer", protocol.ErrInvalidReveal)
	}
	if commitment.Status != protocol.CommitmentPending {
		return nil, fmt.Errorf("%w: commitment already %s", protocol.ErrInvalidReveal, commitment.Status)
	}
	// Flash-loan guard: a reveal produced in the same execution unit as its
	// commit proves the committer never carried overnight exposure.
	if req.Context != "" && req.Context == commitment.Context {
		return nil, fmt.Errorf("%w: reveal shares the commit's execution context", protocol.ErrInvalidReveal)
	}
	if crypto.CommitmentHash(req.Params.Canonical(), req.Secret) != commitment.Hash {
		return nil, fmt.Errorf("%w: hash mismatch", protocol.ErrInvalidReveal)
	}
	if err := req.Params.Validate(e.cfg.Pair); err != nil {
		return nil, fmt.Errorf("%w: %v", protocol.ErrInvalidReveal, err)
	}
	if req.PriorityBid.IsNegative() || req.PriorityBid.GreaterThan(commitment.BondAmount) {
		return nil, fmt.Errorf("%w: priority bid %s outside [0, bond]", protocol.ErrInvalidReveal, req.PriorityBid)
	}

	refund := commitment.BondAmount.Sub(req.PriorityBid)
	if err := e.custody.Release(owner, commitment.BondAsset, refund); err != nil {
		return nil, fmt.Errorf("releasing bond: %w", err)
	}

	commitment.Status = protocol.CommitmentRevealed
	order := &protocol.Order{
		CommitmentID: commitment.ID,
		Batch:        batch,
		Owner:        owner,
		Params:       req.Params,
		PriorityBid:  req.PriorityBid,
		Secret:       req.Secret,
	}
	state.orders[commitment.ID] = order

	e.log.Info("commitment revealed", "batch", batch, "commitment", commitment.ID,
		"direction", req.Params.Direction, "priority_bid", req.PriorityBid)
	return order, nil
}

// slashUnrevealedLocked forfeits half the bond of every still-pending
// commitment to the loss pool and returns the other half. Idempotent: a
// second call over the same batch finds no pending commitments.
func (e *Engine) slashUnrevealedLocked(batch protocol.BatchID, state *batchState) {
	if state.slashed {
		return
	}
	for _, c := range state.commitments {
		if c.Status != protocol.CommitmentPending {
			continue
		}
		half := c.BondAmount.Div(decimal.New(2, 0))
		returned := c.BondAmount.Sub(half)
		if err := e.custody.Slash(c.Owner, c.BondAsset, half); err != nil {
			e.log.Error("slashing bond", "commitment", c.ID, "err", err)
			continue
		}
		if err := e.custody.Release(c.Owner, c.BondAsset, returned); err != nil {
			e.log.Error("returning bond remainder", "commitment", c.ID, "err", err)
		}
		c.Status = protocol.CommitmentSlashed
		state.slashes = append(state.slashes, protocol.SlashRecord{
			CommitmentID: c.ID,
			Forfeited:    half,
			Returned:     returned,
			Asset:        c.BondAsset,
		})
		e.log.Info("unrevealed commitment slashed", "batch", batch, "commitment", c.ID, "forfeited", half)
	}
	state.slashed = true
}

// Settle runs settlement for a batch. Permissionless: the engine assembles
// the settlement set itself from the eligible revealed orders, so the caller
// contributes nothing but the trigger. Idempotent: a settled batch returns
// ErrAlreadySettled without touching any state.
func (e *Engine) Settle(ctx context.Context, batch protocol.BatchID) (*protocol.ClearingOutcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, err := e.settlableLocked(batch)
	if err != nil {
		return nil, err
	}

	proposal := aggregator.BuildProposal(batch, eligibleOrders(state), e.compliance)
	included, err := aggregator.ValidateProposal(proposal, eligibleOrders(state), e.compliance)
	if err != nil {
		return nil, err
	}
	return e.settleLocked(ctx, batch, state, included)
}

// SettleProposal settles a batch from an externally assembled proposal, for
// deployments where aggregation is a separate permissionless role. The
// proposal is validated for completeness before anything executes; a
// proposal omitting one eligible order is rejected whole.
func (e *Engine) SettleProposal(ctx context.Context, signed *protocol.Signed[aggregator.Proposal]) (*protocol.ClearingOutcome, error) {
	proposal, proposer, err := signed.Recover()
	if err != nil {
		return nil, fmt.Errorf("recovering proposal: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	state, err := e.settlableLocked(proposal.Batch)
	if err != nil {
		return nil, err
	}

	included, err := aggregator.ValidateProposal(proposal, eligibleOrders(state), e.compliance)
	if err != nil {
		return nil, err
	}

	e.log.Info("settling from external proposal", "batch", proposal.Batch, "proposer", proposer.String())
	return e.settleLocked(ctx, proposal.Batch, state, included)
}

// settlableLocked checks phase, idempotency and pause state, slashes any
// remaining unrevealed commitments and returns the batch state.
func (e *Engine) settlableLocked(batch protocol.BatchID) (*batchState, error) {
	now := e.now()
	if e.clock.PhaseOfBatch(batch, now) != protocol.PhaseSettling {
		return nil, fmt.Errorf("%w: batch %d reveal window still open", protocol.ErrInvalidPhase, batch)
	}

	state, ok := e.batches[batch]
	if !ok {
		// A settled batch's state lives in the archive once evicted.
		if record, err := e.store.LoadBatch(batch); err == nil && record.Outcome != nil {
			return nil, fmt.Errorf("%w: batch %d", protocol.ErrAlreadySettled, batch)
		}
		state = &batchState{
			commitments: make(map[uuid.UUID]*protocol.Commitment),
			orders:      make(map[uuid.UUID]*protocol.Order),
		}
		e.batches[batch] = state
	}
	if state.outcome != nil {
		return nil, fmt.Errorf("%w: batch %d", protocol.ErrAlreadySettled, batch)
	}
	if e.paused {
		return nil, fmt.Errorf("%w: pair %s paused: %s",
			protocol.ErrPriceDeviationExceeded, e.cfg.Pair, e.pauseReason)
	}

	e.slashUnrevealedLocked(batch, state)
	return state, nil
}

func eligibleOrders(state *batchState) []*protocol.Order {
	orders := make([]*protocol.Order, 0, len(state.orders))
	for _, o := range state.orders {
		orders = append(orders, o)
	}
	return orders
}

func (e *Engine) settleLocked(ctx context.Context, batch protocol.BatchID, state *batchState, included []*protocol.Order) (*protocol.ClearingOutcome, error) {
	now := e.now()

	reference := decimal.Zero
	if e.oracle != nil {
		ref, err := e.oracle.ReferencePrice(e.cfg.Pair)
		if err != nil {
			e.log.Warn("oracle unavailable, settling on TWAP bound alone", "err", err)
		} else {
			reference = ref
		}
	}

	outcome, err := auction.Clear(auction.ClearingInput{
		Batch:        batch,
		Pair:         e.cfg.Pair,
		Orders:       included,
		Pool:         e.pool,
		Revealed:     eligibleOrders(state),
		Reference:    reference,
		MaxDeviation: e.cfg.MaxPriceDeviation,
		TWAPWindow:   e.cfg.TWAPWindow,
		FeeBps:       e.cfg.FeeBps,
		Now:          now,
	})
	if err != nil {
		if errors.Is(err, protocol.ErrPriceDeviationExceeded) {
			e.paused = true
			e.pauseReason = err.Error()
			e.log.Warn("settlement deferred, pair paused", "batch", batch, "err", err)
		}
		return nil, err
	}
	outcome.UnrevealedSlashes = state.slashes

	// Custody first, pool last. Clear validated the deltas against the pool
	// without mutating it, so a custody error here leaves the reserves
	// untouched and the batch retryable once custody recovers.
	if err := e.applyOutcomeLocked(state, outcome); err != nil {
		return nil, err
	}
	if err := e.pool.ApplyFill(batch, outcome.PoolBaseDelta, outcome.PoolQuoteDelta, now); err != nil {
		return nil, fmt.Errorf("applying pool fill: %w", err)
	}
	state.outcome = outcome

	record := e.batchRecordLocked(batch, state)
	record.Outcome = outcome
	if _, err := e.anchor.AnchorBatch(batch, record.Commitments); err != nil {
		e.log.Error("anchoring batch", "batch", batch, "err", err)
	}
	if err := e.publisher.PublishOutcome(ctx, outcome); err != nil {
		e.log.Error("publishing outcome", "batch", batch, "err", err)
	}

	// A settled batch's working state is only needed until the archive has
	// it; evicting then keeps memory bounded in a long-running engine. On an
	// archive failure the state stays resident so nothing is lost.
	if err := e.store.SaveBatch(record); err != nil {
		e.log.Error("archiving batch", "batch", batch, "err", err)
	} else {
		e.evictBatchLocked(batch, state)
	}

	e.log.Info("batch settled", "batch", batch, "price", outcome.ClearingPrice,
		"fills", len(outcome.Fills), "excluded", len(outcome.Excluded))
	return outcome, nil
}

func (e *Engine) evictBatchLocked(batch protocol.BatchID, state *batchState) {
	for id := range state.commitments {
		delete(e.commitIndex, id)
	}
	delete(e.batches, batch)
}

// applyOutcomeLocked moves settled amounts through custody: trade legs for
// every fill, priority bids of filled orders into the fee account, priority
// bid refunds for everyone else, and the protocol fee itself.
func (e *Engine) applyOutcomeLocked(state *batchState, outcome *protocol.ClearingOutcome) error {
	filled := make(map[uuid.UUID]bool, len(outcome.Fills))
	for _, fill := range outcome.Fills {
		order := state.orders[fill.OrderID]
		if err := e.custody.Debit(order.Owner, order.Params.TokenIn, fill.AmountIn); err != nil {
			return fmt.Errorf("debiting fill: %w", err)
		}
		if err := e.custody.Credit(order.Owner, order.Params.TokenOut, fill.AmountOut); err != nil {
			return fmt.Errorf("crediting fill: %w", err)
		}
		filled[fill.OrderID] = true
	}

	for _, order := range state.orders {
		if order.PriorityBid.IsZero() {
			continue
		}
		asset := state.commitments[order.CommitmentID].BondAsset
		if err := e.custody.Release(order.Owner, asset, order.PriorityBid); err != nil {
			return fmt.Errorf("releasing priority bid: %w", err)
		}
		if !filled[order.CommitmentID] {
			// Excluded or denied orders are refunded in full, bid included.
			continue
		}
		if err := e.custody.Debit(order.Owner, asset, order.PriorityBid); err != nil {
			return fmt.Errorf("charging priority bid: %w", err)
		}
		if err := e.custody.CollectFee(asset, order.PriorityBid); err != nil {
			return fmt.Errorf("collecting priority bid: %w", err)
		}
	}

	if outcome.FeesBase.IsPositive() {
		if err := e.custody.CollectFee(e.cfg.Pair.Base, outcome.FeesBase); err != nil {
			return fmt.Errorf("collecting protocol fee: %w", err)
		}
	}
	if outcome.FeesQuote.IsPositive() {
		if err := e.custody.CollectFee(e.cfg.Pair.Quote, outcome.FeesQuote); err != nil {
			return fmt.Errorf("collecting protocol fee: %w", err)
		}
	}
	return nil
}

// WithdrawBond reclaims whatever portion of a commitment's bond is owed to
// its owner. Revealed commitments had their bond released at reveal time and
// slashed ones had their half returned, so both are idempotent no-ops; a
// pending commitment whose reveal window has closed is slashed on the spot.
func (e *Engine) WithdrawBond(signed *protocol.Signed[protocol.WithdrawBondRequest]) (decimal.Decimal, error) {
	req, owner, err := signed.Recover()
	if err != nil {
		return decimal.Zero, fmt.Errorf("recovering withdrawal: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	batch, ok := e.commitIndex[req.CommitmentID]
	if !ok {
		return decimal.Zero, fmt.Errorf("unknown commitment %s", req.CommitmentID)
	}
	state := e.batches[batch]
	commitment := state.commitments[req.CommitmentID]
	if !owner.Equal(commitment.Owner) {
		return decimal.Zero, fmt.Errorf("signer is not the committer")
	}

	switch commitment.Status {
	case protocol.CommitmentRevealed, protocol.CommitmentSlashed:
		return decimal.Zero, nil
	}

	if e.clock.PhaseOfBatch(batch, e.now()) != protocol.PhaseSettling {
		return decimal.Zero, fmt.Errorf("%w: bond locked until batch %d reveal window closes",
			protocol.ErrInvalidPhase, batch)
	}

	e.slashUnrevealedLocked(batch, state)
	for _, slash := range state.slashes {
		if slash.CommitmentID == req.CommitmentID {
			return slash.Returned, nil
		}
	}
	return decimal.Zero, nil
}

// PhaseInfo reports the lifecycle position of a batch.
type PhaseInfo struct {
	Batch protocol.BatchID `json:"batch"`
	Phase protocol.Phase   `json:"phase"`
	Now   time.Time        `json:"now"`
}

// CurrentPhase returns the batch currently in its commit or reveal window.
func (e *Engine) CurrentPhase() PhaseInfo {
	now := e.now()
	batch, phase := e.clock.PhaseForTime(now)
	return PhaseInfo{Batch: batch, Phase: phase, Now: now}
}

// BatchPhase returns a specific batch's phase, Settled once settlement ran.
func (e *Engine) BatchPhase(batch protocol.BatchID) PhaseInfo {
	now := e.now()
	phase := e.clock.PhaseOfBatch(batch, now)

	e.mu.Lock()
	state, ok := e.batches[batch]
	settled := ok && state.outcome != nil
	e.mu.Unlock()

	if !ok && phase == protocol.PhaseSettling {
		// Evicted batches report Settled from the archive.
		if record, err := e.store.LoadBatch(batch); err == nil && record.Outcome != nil {
			settled = true
		}
	}

	if settled {
		phase = protocol.PhaseSettled
	}
	return PhaseInfo{Batch: batch, Phase: phase, Now: now}
}

// BatchRecord returns the audit record for a batch, from memory for live
// batches and from the archive for evicted ones.
func (e *Engine) BatchRecord(batch protocol.BatchID) (*protocol.BatchRecord, error) {
	e.mu.Lock()
	state, ok := e.batches[batch]
	if ok {
		record := e.batchRecordLocked(batch, state)
		record.Outcome = state.outcome
		e.mu.Unlock()
		return record, nil
	}
	e.mu.Unlock()

	return e.store.LoadBatch(batch)
}

func (e *Engine) batchRecordLocked(batch protocol.BatchID, state *batchState) *protocol.BatchRecord {
	commitments := make([]*protocol.Commitment, 0, len(state.commitments))
	for _, c := range state.commitments {
		commitments = append(commitments, c)
	}
	slices.SortFunc(commitments, func(a, b *protocol.Commitment) int {
		return bytes.Compare(a.ID[:], b.ID[:])
	})
	orders := make([]*protocol.Order, 0, len(state.orders))
	for _, o := range state.orders {
		orders = append(orders, o)
	}
	slices.SortFunc(orders, protocol.OrdersByID)

	return &protocol.BatchRecord{
		Batch:       batch,
		Pair:        e.cfg.Pair,
		Commitments: commitments,
		Orders:      orders,
	}
}

// Prove builds an inclusion proof for a commitment in a settled batch,
// valid against the current accumulator root.
func (e *Engine) Prove(batch protocol.BatchID, commitment uuid.UUID) (accumulator.HistoryProof, error) {
	e.mu.Lock()
	state, ok := e.batches[batch]
	if ok {
		c, found := state.commitments[commitment]
		e.mu.Unlock()
		if !found {
			return accumulator.HistoryProof{}, fmt.Errorf("commitment %s not in batch %d", commitment, batch)
		}
		return e.anchor.Prove(batch, commitment, c.Hash)
	}
	e.mu.Unlock()

	// Settled batches are evicted from memory; the archive still has their
	// commitment hashes.
	record, err := e.store.LoadBatch(batch)
	if err != nil {
		return accumulator.HistoryProof{}, fmt.Errorf("unknown batch %d", batch)
	}
	for _, c := range record.Commitments {
		if c.ID == commitment {
			return e.anchor.Prove(batch, commitment, c.Hash)
		}
	}
	return accumulator.HistoryProof{}, fmt.Errorf("commitment %s not in batch %d", commitment, batch)
}

// AccumulatorRoot returns the current root of the batch history accumulator.
func (e *Engine) AccumulatorRoot() crypto.Hash {
	return e.anchor.Root()
}

// Paused reports whether the pair's settlement is paused and why.
func (e *Engine) Paused() (bool, string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused, e.pauseReason
}

// Resume clears a circuit-breaker pause. Operator action: the deferred
// batch may be settled again afterwards.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = false
	e.pauseReason = ""
	e.log.Info("pair resumed", "pair", e.cfg.Pair)
}

// Pool returns the engine's AMM pool.
func (e *Engine) Pool() *auction.Pool {
	return e.pool
}

// Config returns the engine configuration.
func (e *Engine) Config() *protocol.Config {
	return e.cfg
}

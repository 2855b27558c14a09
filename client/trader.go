package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fairbatch/fairbatch/crypto"
	"github.com/fairbatch/fairbatch/protocol"
)

// ErrRevealWindowMissed is returned by Trade when the target batch's reveal
// window closed before the reveal could be posted. The commitment's bond
// will be slashed unless another process reveals it in time.
var ErrRevealWindowMissed = errors.New("reveal window missed")

// phasePollInterval is how often Trade polls for the reveal window.
const phasePollInterval = 200 * time.Millisecond

// TradeRequest describes one hidden order to run through a batch.
type TradeRequest struct {
	Params      protocol.OrderParams
	BondAmount  decimal.Decimal
	BondAsset   string
	PriorityBid decimal.Decimal

	// Batch targets a specific batch. Zero picks the nearest batch still
	// accepting commits.
	Batch protocol.BatchID
}

// TradeResult reports the two halves of a completed commit-reveal flow.
type TradeResult struct {
	Commitment *protocol.Commitment
	Order      *protocol.Order
}

// Trade runs the full commit-reveal choreography for one order: generate a
// fresh secret, post the bonded commitment, poll until the batch's reveal
// window opens, then reveal. The secret never leaves the process before the
// reveal is posted, so the order stays hidden while commits are collected.
//
// Trade blocks across the commit window; cancel the context to abandon the
// wait. Abandoning after the commit is posted forfeits half the bond unless
// the commitment is revealed some other way.
func (c *Client) Trade(ctx context.Context, req TradeRequest) (*TradeResult, error) {
	secret, err := crypto.NewSecret()
	if err != nil {
		return nil, fmt.Errorf("generating secret: %w", err)
	}

	target := req.Batch
	if target == 0 {
		info, err := c.Phase(ctx)
		if err != nil {
			return nil, fmt.Errorf("querying phase: %w", err)
		}
		target = info.Batch
		if info.Phase != protocol.PhaseCommit {
			target = info.Batch + 1
		}
	}

	commitment, err := c.Commit(ctx, &protocol.CommitRequest{
		Batch:      target,
		Hash:       crypto.CommitmentHash(req.Params.Canonical(), secret),
		BondAmount: req.BondAmount,
		BondAsset:  req.BondAsset,
	})
	if err != nil {
		return nil, fmt.Errorf("committing: %w", err)
	}

	if err := c.waitForReveal(ctx, target); err != nil {
		return nil, err
	}

	order, err := c.Reveal(ctx, &protocol.RevealRequest{
		CommitmentID: commitment.ID,
		Params:       req.Params,
		Secret:       secret,
		PriorityBid:  req.PriorityBid,
	})
	if err != nil {
		return nil, fmt.Errorf("revealing: %w", err)
	}
	return &TradeResult{Commitment: commitment, Order: order}, nil
}

// waitForReveal polls the phase endpoint until the target batch enters its
// reveal window.
func (c *Client) waitForReveal(ctx context.Context, target protocol.BatchID) error {
	ticker := time.NewTicker(phasePollInterval)
	defer ticker.Stop()

	for {
		info, err := c.Phase(ctx)
		if err == nil {
			switch {
			case info.Batch == target && info.Phase == protocol.PhaseReveal:
				return nil
			case info.Batch > target:
				return fmt.Errorf("%w: batch %d", ErrRevealWindowMissed, target)
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

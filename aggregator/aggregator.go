// Package aggregator enforces the settlement-assembly discipline for
// deployments where batches are assembled by a permissionless aggregator
// rather than a single trusted coordinator.
//
// The aggregator proposes; it never decides. A stateless validation
// function checks every proposal against the known eligible order set and
// the external compliance deny-list: the proposal must contain every
// eligible revealed order whose owner is not denied, and no denied order.
// A proposal omitting one eligible, non-flagged order is rejected outright:
// the aggregator has no discretion to selectively exclude, and partial
// acceptance does not exist.
//
// Accepted batches are anchored into the append-only history accumulator so
// that inclusion of any processed commitment can be proven later without
// replaying history.
package aggregator

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/fairbatch/fairbatch/crypto"
	"github.com/fairbatch/fairbatch/protocol"
)

// Compliance is the read-only deny-list collaborator. It is consulted once
// per candidate order origin and never mutated by this package.
type Compliance interface {
	// Denied reports whether the owner is on the compliance deny-list.
	Denied(owner crypto.PublicKey) bool
}

// Proposal is an aggregator's proposed settlement set for one batch.
type Proposal struct {
	Batch    protocol.BatchID `json:"batch"`
	OrderIDs []uuid.UUID      `json:"order_ids"`
}

// BuildProposal produces the only proposal that will validate: all eligible
// orders minus denied origins, in commitment-ID order.
func BuildProposal(batch protocol.BatchID, eligible []*protocol.Order, compliance Compliance) *Proposal {
	sorted := slices.Clone(eligible)
	slices.SortFunc(sorted, protocol.OrdersByID)

	ids := make([]uuid.UUID, 0, len(sorted))
	for _, o := range sorted {
		if compliance != nil && compliance.Denied(o.Owner) {
			continue
		}
		ids = append(ids, o.CommitmentID)
	}
	return &Proposal{Batch: batch, OrderIDs: ids}
}

// ValidateProposal checks a proposed settlement set against the eligible
// revealed orders for its batch. On success it returns the orders to settle
// in commitment-ID order. It is a pure function of its inputs: same
// proposal, same eligible set, same deny-list, same verdict.
func ValidateProposal(p *Proposal, eligible []*protocol.Order, compliance Compliance) ([]*protocol.Order, error) {
	byID := make(map[uuid.UUID]*protocol.Order, len(eligible))
	for _, o := range eligible {
		byID[o.CommitmentID] = o
	}

	proposed := make(map[uuid.UUID]bool, len(p.OrderIDs))
	for _, id := range p.OrderIDs {
		if proposed[id] {
			return nil, fmt.Errorf("proposal lists order %s twice", id)
		}
		if _, known := byID[id]; !known {
			return nil, fmt.Errorf("proposal references unknown order %s", id)
		}
		proposed[id] = true
	}

	included := make([]*protocol.Order, 0, len(eligible))
	for _, o := range eligible {
		denied := compliance != nil && compliance.Denied(o.Owner)
		switch {
		case denied && proposed[o.CommitmentID]:
			return nil, fmt.Errorf("proposal includes denied origin %s", o.Owner)
		case !denied && !proposed[o.CommitmentID]:
			return nil, fmt.Errorf("%w: missing order %s",
				protocol.ErrIncompleteAggregation, o.CommitmentID)
		case !denied:
			included = append(included, o)
		}
	}

	slices.SortFunc(included, protocol.OrdersByID)
	return included, nil
}

// sortHashesByID returns commitment hashes in commitment-ID order, the
// canonical leaf order for batch trees.
func sortHashesByID(commitments []*protocol.Commitment) ([]crypto.Hash, []uuid.UUID) {
	sorted := slices.Clone(commitments)
	slices.SortFunc(sorted, func(a, b *protocol.Commitment) int {
		return bytes.Compare(a.ID[:], b.ID[:])
	})
	hashes := make([]crypto.Hash, len(sorted))
	ids := make([]uuid.UUID, len(sorted))
	for i, c := range sorted {
		hashes[i] = c.Hash
		ids[i] = c.ID
	}
	return hashes, ids
}

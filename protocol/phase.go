package protocol

import (
	"time"
)

// Phase identifies where a batch is in its lifecycle.
type Phase int

const (
	PhaseCommit Phase = iota
	PhaseReveal
	PhaseSettling
	PhaseSettled
)

func (p Phase) String() string {
	switch p {
	case PhaseCommit:
		return "commit"
	case PhaseReveal:
		return "reveal"
	case PhaseSettling:
		return "settling"
	case PhaseSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// BatchID identifies one auction cycle. IDs increase monotonically: batch N
// covers the wall-clock interval [N*cycle, (N+1)*cycle) where cycle is the
// commit window plus the reveal window.
type BatchID uint64

// BatchClock derives batch numbers and phases from wall time. Every node
// configured with the same windows computes the same answers, so phase
// transitions need no coordination.
type BatchClock struct {
	CommitWindow time.Duration
	RevealWindow time.Duration
}

// Cycle returns the total duration of one batch interval.
func (c BatchClock) Cycle() time.Duration {
	return c.CommitWindow + c.RevealWindow
}

// BatchForTime returns the batch whose commit or reveal window contains the
// given instant.
func (c BatchClock) BatchForTime(instant time.Time) BatchID {
	return BatchID(instant.UnixMilli() / c.Cycle().Milliseconds())
}

// PhaseForTime returns the batch containing the instant and its in-window
// phase (Commit or Reveal). Settling and Settled are not time-derived: a
// batch is Settling from the close of its reveal window until settlement.
func (c BatchClock) PhaseForTime(instant time.Time) (BatchID, Phase) {
	id := c.BatchForTime(instant)
	if instant.Sub(c.StartOfBatch(id)) < c.CommitWindow {
		return id, PhaseCommit
	}
	return id, PhaseReveal
}

// PhaseOfBatch returns the phase of a specific batch at the given instant,
// ignoring settlement status. A batch whose reveal window has closed reports
// Settling; the engine layers Settled on top once settlement has run.
func (c BatchClock) PhaseOfBatch(id BatchID, instant time.Time) Phase {
	start := c.StartOfBatch(id)
	offset := instant.Sub(start)
	switch {
	case offset < 0:
		// Batch not yet begun; its commit window is in the future.
		return PhaseCommit
	case offset < c.CommitWindow:
		return PhaseCommit
	case offset < c.Cycle():
		return PhaseReveal
	default:
		return PhaseSettling
	}
}

// StartOfBatch returns the instant the batch's commit window opens.
func (c BatchClock) StartOfBatch(id BatchID) time.Time {
	return time.UnixMilli(int64(id) * c.Cycle().Milliseconds())
}

// RevealDeadline returns the instant the batch's reveal window closes.
func (c BatchClock) RevealDeadline(id BatchID) time.Time {
	return c.StartOfBatch(id).Add(c.Cycle())
}

// CommitDeadline returns the instant the batch's commit window closes.
func (c BatchClock) CommitDeadline(id BatchID) time.Time {
	return c.StartOfBatch(id).Add(c.CommitWindow)
}

// AcceptsCommit reports whether a commitment for the given batch may be
// accepted at the given instant. Commitments are accepted for the batch
// currently in its commit window and for the next batch, never
// retroactively.
func (c BatchClock) AcceptsCommit(id BatchID, instant time.Time) bool {
	current, phase := c.PhaseForTime(instant)
	if id == current {
		return phase == PhaseCommit
	}
	return id == current+1
}

package protocol

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// PhaseEvent notifies subscribers of a phase boundary.
type PhaseEvent struct {
	Batch BatchID
	Phase Phase
}

// next returns the event following this one in wall-clock order.
// Settled is excluded: it is call-triggered, not time-triggered.
func (e PhaseEvent) next() PhaseEvent {
	switch e.Phase {
	case PhaseCommit:
		return PhaseEvent{e.Batch, PhaseReveal}
	case PhaseReveal:
		return PhaseEvent{e.Batch, PhaseSettling}
	default:
		return PhaseEvent{e.Batch + 1, PhaseCommit}
	}
}

func (e PhaseEvent) isAfter(other PhaseEvent) bool {
	return e.Batch > other.Batch || (e.Batch == other.Batch && e.Phase > other.Phase)
}

// BatchCoordinator publishes time-triggered phase transitions.
type BatchCoordinator interface {
	// Current returns the latest published phase event.
	Current() PhaseEvent

	// Subscribe receives phase transition notifications.
	Subscribe(ctx context.Context) <-chan PhaseEvent

	// Start begins phase progression.
	Start(ctx context.Context)
}

type subscriber struct {
	ctx context.Context
	ch  chan PhaseEvent
}

// LocalBatchCoordinator derives phase transitions from the local wall clock.
type LocalBatchCoordinator struct {
	mu          sync.RWMutex
	clock       BatchClock
	current     PhaseEvent
	subscribers []subscriber
	started     *atomic.Bool
}

// NewLocalBatchCoordinator creates a wall-clock driven coordinator.
func NewLocalBatchCoordinator(clock BatchClock) *LocalBatchCoordinator {
	id, phase := clock.PhaseForTime(time.Now())
	return &LocalBatchCoordinator{
		clock:   clock,
		current: PhaseEvent{id, phase},
		started: &atomic.Bool{},
	}
}

// Current returns the latest published phase event.
func (c *LocalBatchCoordinator) Current() PhaseEvent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Subscribe receives phase transition notifications. The current event is
// delivered immediately.
func (c *LocalBatchCoordinator) Subscribe(ctx context.Context) <-chan PhaseEvent {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan PhaseEvent, 16)
	c.subscribers = append(c.subscribers, subscriber{ctx, ch})
	ch <- c.current

	return ch
}

// timeFor returns the wall-clock instant at which the event begins.
func (c *LocalBatchCoordinator) timeFor(e PhaseEvent) time.Time {
	start := c.clock.StartOfBatch(e.Batch)
	switch e.Phase {
	case PhaseCommit:
		return start
	case PhaseReveal:
		return start.Add(c.clock.CommitWindow)
	default:
		return start.Add(c.clock.Cycle())
	}
}

// Start begins phase progression.
func (c *LocalBatchCoordinator) Start(ctx context.Context) {
	if c.started.Swap(true) {
		return
	}

	go func() {
		for {
			c.mu.RLock()
			next := c.current.next()
			c.mu.RUnlock()

			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Until(c.timeFor(next))):
				c.advance()
			}
		}
	}()
}

// AdvanceTo manually advances to a specific event.
// Only used in tests.
func (c *LocalBatchCoordinator) AdvanceTo(target PhaseEvent) {
	for target.isAfter(c.Current()) {
		c.advance()
	}
}

// advance moves to the next event and notifies subscribers.
func (c *LocalBatchCoordinator) advance() {
	c.mu.Lock()
	c.current = c.current.next()
	event := c.current

	toRemove := []int{}
	for i, sub := range c.subscribers {
		select {
		case <-sub.ctx.Done():
			close(sub.ch)
			toRemove = append(toRemove, i)
		case sub.ch <- event:
		default:
			// Skip if channel is full
		}
	}

	slices.Reverse(toRemove)
	for _, i := range toRemove {
		c.subscribers = slices.Delete(c.subscribers, i, i+1)
	}

	c.mu.Unlock()
}

package protocol

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhaseEventProgression(t *testing.T) {
	e := PhaseEvent{Batch: 3, Phase: PhaseCommit}
	e = e.next()
	assert.Equal(t, PhaseEvent{3, PhaseReveal}, e)
	e = e.next()
	assert.Equal(t, PhaseEvent{3, PhaseSettling}, e)
	e = e.next()
	assert.Equal(t, PhaseEvent{4, PhaseCommit}, e, "settling rolls over to the next batch's commit")
}

func TestCoordinatorAdvanceNotifiesSubscribers(t *testing.T) {
	c := NewLocalBatchCoordinator(testClock)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := c.Subscribe(ctx)
	first := <-ch
	assert.Equal(t, c.Current(), first, "subscription starts with the current event")

	target := PhaseEvent{Batch: first.Batch + 1, Phase: PhaseReveal}
	c.AdvanceTo(target)
	assert.Equal(t, target, c.Current())

	var last PhaseEvent
	for {
		select {
		case e := <-ch:
			last = e
			if e == target {
				return
			}
		case <-time.After(time.Second):
			require.Equal(t, target, last, "expected to observe the target event")
			return
		}
	}
}

func TestCoordinatorDropsCancelledSubscribers(t *testing.T) {
	c := NewLocalBatchCoordinator(testClock)

	ctx, cancel := context.WithCancel(context.Background())
	ch := c.Subscribe(ctx)
	<-ch
	cancel()

	// Advance past the subscriber buffer so the coordinator is guaranteed
	// to hit the cancelled-context branch.
	c.AdvanceTo(PhaseEvent{Batch: c.Current().Batch + 8, Phase: PhaseCommit})

	// Channel is closed once the coordinator notices the dead context.
	deadline := time.After(time.Second)
	for {
		select {
		case _, open := <-ch:
			if !open {
				return
			}
		case <-deadline:
			t.Fatal("subscriber channel never closed")
		}
	}
}

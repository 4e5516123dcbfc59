package messaging

import (
	"context"
	"time"
)

// commitWaitMax is how long a waiter sleeps before re-checking the gate.
const commitWaitMax = 2 * time.Second

// commitGate serializes commit, rollback, acknowledgment, and nack traffic
// on the session's control channel. The channel is not safe for concurrent
// protocol operations, and a commit or rollback must never race with an
// in-flight acknowledgment.
//
// The gate is a single-slot semaphore: at most one caller is inside the
// critical section at a time. Waiters poll on a bounded interval and abort
// with the context error on cancellation instead of retrying.
type commitGate struct {
	slot chan struct{}
}

func newCommitGate() *commitGate {
	return &commitGate{slot: make(chan struct{}, 1)}
}

// Enter blocks until the gate is free, then marks it busy. Cancellation of
// ctx aborts the wait and returns the context error without entering.
func (g *commitGate) Enter(ctx context.Context) error {
	for {
		select {
		case g.slot <- struct{}{}:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(commitWaitMax):
			// Re-check; a holder may have crashed past the fast path.
		}
	}
}

// Leave frees the gate, waking one waiter.
func (g *commitGate) Leave() {
	<-g.slot
}

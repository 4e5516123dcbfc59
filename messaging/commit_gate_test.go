package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommitGateMutualExclusion(t *testing.T) {
	g := newCommitGate()
	ctx := context.Background()

	require.NoError(t, g.Enter(ctx))

	// A second entrant must block until the holder leaves.
	entered := make(chan struct{})
	go func() {
		if err := g.Enter(ctx); err == nil {
			close(entered)
		}
	}()

	select {
	case <-entered:
		t.Fatal("second caller entered while the gate was held")
	case <-time.After(50 * time.Millisecond):
	}

	g.Leave()

	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("waiter never entered after the gate was freed")
	}
	g.Leave()
}

func TestCommitGateAbortsOnCancellation(t *testing.T) {
	g := newCommitGate()
	require.NoError(t, g.Enter(context.Background()))
	defer g.Leave()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := g.Enter(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCommitGateReentryAfterLeave(t *testing.T) {
	g := newCommitGate()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, g.Enter(ctx))
		g.Leave()
	}
}

package messaging

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrowserPoolAcquireRelease(t *testing.T) {
	p := &fakeProvider{}
	pool := newBrowserPool(p, testLogger())

	ch, err := pool.Acquire()
	require.NoError(t, err)
	assert.Equal(t, 1, pool.len())

	// Browsing channels are never transacted.
	assert.Equal(t, []bool{false}, p.transacted)

	pool.Release(ch)
	assert.Equal(t, 0, pool.len())
	assert.Equal(t, 1, p.channel(0).closeCount)

	// Releasing an untracked channel must not close it again.
	pool.Release(ch)
	assert.Equal(t, 1, p.channel(0).closeCount)
}

func TestBrowserPoolCloseAll(t *testing.T) {
	p := &fakeProvider{}
	pool := newBrowserPool(p, testLogger())

	_, err := pool.Acquire()
	require.NoError(t, err)
	_, err = pool.Acquire()
	require.NoError(t, err)

	pool.CloseAll()
	assert.Equal(t, 0, pool.len())
	assert.Equal(t, 1, p.channel(0).closeCount)
	assert.Equal(t, 1, p.channel(1).closeCount)

	// A closed pool refuses new channels.
	_, err = pool.Acquire()
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestBrowserPoolPropagatesProviderFailure(t *testing.T) {
	boom := errors.New("connection gone")
	pool := newBrowserPool(&fakeProvider{createErr: boom}, testLogger())

	_, err := pool.Acquire()
	require.ErrorIs(t, err, boom)
	var provErr *ProviderError
	assert.True(t, errors.As(err, &provErr))
}

func newTestBrowser(t *testing.T, deliveries []Delivery) (*QueueBrowser, *fakeChannel) {
	t.Helper()
	p := &fakeProvider{}
	pool := newBrowserPool(p, testLogger())
	ch, err := pool.Acquire()
	require.NoError(t, err)
	fake := p.channel(0)
	fake.deliveries = deliveries
	return &QueueBrowser{pool: pool, ch: ch, dest: NewQueue("orders"), readMax: defaultBrowserReadMax}, fake
}

func TestQueueBrowserBrowseRequeuesEverything(t *testing.T) {
	b, ch := newTestBrowser(t, []Delivery{
		{Tag: 1, Body: []byte("a")},
		{Tag: 2, Body: []byte("b")},
		{Tag: 3, Body: []byte("c")},
	})

	messages, err := b.Browse(context.Background())
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, []byte("a"), messages[0].Body)
	assert.Equal(t, uint64(3), messages[2].Tag)

	// One cumulative requeue nack covering the whole read batch.
	nacks := ch.opsNamed("nack")
	require.Len(t, nacks, 1)
	assert.Equal(t, uint64(3), nacks[0][0])
	assert.Equal(t, true, nacks[0][1], "multiple")
	assert.Equal(t, true, nacks[0][2], "requeue")

	// Fetches are manual-ack so the nack can return the messages.
	for _, get := range ch.opsNamed("get") {
		assert.Equal(t, "orders", get[0])
		assert.Equal(t, false, get[1], "autoAck")
	}
}

func TestQueueBrowserEmptyQueue(t *testing.T) {
	b, ch := newTestBrowser(t, nil)

	messages, err := b.Browse(context.Background())
	require.NoError(t, err)
	assert.Empty(t, messages)
	assert.Equal(t, 0, ch.countOp("nack"))
}

func TestQueueBrowserHonorsReadMax(t *testing.T) {
	b, ch := newTestBrowser(t, []Delivery{{Tag: 1}, {Tag: 2}, {Tag: 3}})
	b.readMax = 2

	messages, err := b.Browse(context.Background())
	require.NoError(t, err)
	assert.Len(t, messages, 2)

	nacks := ch.opsNamed("nack")
	require.Len(t, nacks, 1)
	assert.Equal(t, uint64(2), nacks[0][0])
}

func TestQueueBrowserCloseReleasesChannel(t *testing.T) {
	b, ch := newTestBrowser(t, nil)

	require.NoError(t, b.Close())
	assert.Equal(t, 1, ch.closeCount)

	// Idempotent.
	require.NoError(t, b.Close())
	assert.Equal(t, 1, ch.closeCount)

	_, err := b.Browse(context.Background())
	assert.ErrorIs(t, err, ErrBrowserClosed)
}

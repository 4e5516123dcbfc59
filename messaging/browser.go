package messaging

import (
	"context"
	"log/slog"
	"sync"
)

// defaultBrowserReadMax bounds a single enumeration pass.
const defaultBrowserReadMax = 1000

// browserPool tracks the auxiliary channels used for queue browsing.
// Browsing must not disturb the control channel's acknowledgment or
// transaction state, so every browser gets its own non-transacted channel.
type browserPool struct {
	provider ChannelProvider
	logger   *slog.Logger

	mu       sync.Mutex
	channels map[Channel]struct{}
	closed   bool
}

func newBrowserPool(provider ChannelProvider, logger *slog.Logger) *browserPool {
	return &browserPool{
		provider: provider,
		logger:   logger,
		channels: make(map[Channel]struct{}),
	}
}

// Acquire opens and tracks a new browsing channel.
func (bp *browserPool) Acquire() (Channel, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	if bp.closed {
		return nil, ErrSessionClosed
	}
	ch, err := bp.provider.CreateChannel(false)
	if err != nil {
		return nil, providerErr("browsing channel open", err)
	}
	bp.channels[ch] = struct{}{}
	return ch, nil
}

// Release removes and closes one specific channel. Close failures are
// swallowed; the channel was only ever used for reads.
func (bp *browserPool) Release(ch Channel) {
	bp.mu.Lock()
	_, tracked := bp.channels[ch]
	delete(bp.channels, ch)
	bp.mu.Unlock()
	if tracked {
		if err := ch.Close(); err != nil {
			bp.logger.Debug("browsing channel close failed", "error", err)
		}
	}
}

// CloseAll closes and clears every tracked channel. This runs during session
// teardown, so individual failures are logged and swallowed.
func (bp *browserPool) CloseAll() {
	bp.mu.Lock()
	channels := bp.channels
	bp.channels = make(map[Channel]struct{})
	bp.closed = true
	bp.mu.Unlock()
	for ch := range channels {
		if err := ch.Close(); err != nil {
			bp.logger.Debug("browsing channel close failed", "error", err)
		}
	}
}

func (bp *browserPool) len() int {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return len(bp.channels)
}

// QueueBrowser enumerates a queue without consuming it. Each browser owns
// one channel from the session's browsing pool for its lifetime.
type QueueBrowser struct {
	pool    *browserPool
	ch      Channel
	dest    *Destination
	readMax int

	mu     sync.Mutex
	closed bool
}

// Destination returns the browsed queue destination.
func (b *QueueBrowser) Destination() *Destination { return b.dest }

// Browse fetches up to the browser's read maximum of messages and requeues
// them all with a single cumulative nack, so enumeration is non-destructive.
func (b *QueueBrowser) Browse(ctx context.Context) ([]Delivery, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBrowserClosed
	}

	var messages []Delivery
	var lastTag uint64
	for len(messages) < b.readMax {
		if err := ctx.Err(); err != nil {
			break
		}
		d, ok, err := b.ch.Get(b.dest.QueueName(), false)
		if err != nil {
			return nil, providerErr("browse get", err)
		}
		if !ok {
			break
		}
		messages = append(messages, d)
		lastTag = d.Tag
	}
	if len(messages) > 0 {
		if err := b.ch.Nack(lastTag, true, true); err != nil {
			return nil, providerErr("browse requeue", err)
		}
	}
	return messages, nil
}

// Close releases the browser's channel back to the pool. Closing twice is a
// no-op.
func (b *QueueBrowser) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()
	b.pool.Release(b.ch)
	return nil
}

package messaging

import (
	"sync"
	"sync/atomic"
)

// MessageListener receives deliveries pushed by the dispatch collaborator.
type MessageListener func(Delivery)

// Consumer is a subscription to a destination, owned by its session. The
// delivery dispatch loop lives outside this package; the consumer carries
// the state the session needs to enforce its contracts: the listener (async
// mode), the in-flight receive count (sync mode), and close state.
type Consumer struct {
	session *Session
	dest    *Destination
	tag     string
	queue   string
	filter  string
	durable bool
	noLocal bool

	mu       sync.Mutex
	listener MessageListener

	receives atomic.Int64
	paused   atomic.Bool
	closed   atomic.Bool
}

// Destination returns the destination this consumer subscribes to.
func (c *Consumer) Destination() *Destination { return c.dest }

// ConsumerTag returns the broker consumer tag, which doubles as the queue
// name for topic subscriptions.
func (c *Consumer) ConsumerTag() string { return c.tag }

// Queue returns the broker queue this consumer reads from.
func (c *Consumer) Queue() string { return c.queue }

// Selector returns the filter expression, or empty if none.
func (c *Consumer) Selector() string { return c.filter }

// IsDurable reports whether this is a durable topic subscription.
func (c *Consumer) IsDurable() bool { return c.durable }

// NoLocal reports whether deliveries published on the same connection are
// suppressed.
func (c *Consumer) NoLocal() bool { return c.noLocal }

// IsClosed reports whether the consumer has been closed.
func (c *Consumer) IsClosed() bool { return c.closed.Load() }

// SetMessageListener switches the consumer to asynchronous delivery. All of
// a session's consumers must operate in one mode: setting a listener fails
// if any consumer has a receive in flight.
func (c *Consumer) SetMessageListener(l MessageListener) error {
	if c.closed.Load() {
		return ErrConsumerClosed
	}
	if l != nil && !c.session.asyncAllowed() {
		return ErrMixedDeliveryModes
	}
	c.mu.Lock()
	c.listener = l
	c.mu.Unlock()
	return nil
}

// MessageListener returns the currently set listener, or nil.
func (c *Consumer) MessageListener() MessageListener {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listener
}

func (c *Consumer) listenerSet() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listener != nil
}

// BeginReceive marks a blocking receive in flight; the dispatch collaborator
// calls it before waiting for a delivery. It fails if any consumer on the
// session runs asynchronously.
func (c *Consumer) BeginReceive() error {
	if c.closed.Load() {
		return ErrConsumerClosed
	}
	if !c.session.syncAllowed() {
		return ErrMixedDeliveryModes
	}
	c.receives.Add(1)
	return nil
}

// EndReceive marks a blocking receive finished.
func (c *Consumer) EndReceive() {
	c.receives.Add(-1)
}

func (c *Consumer) receiveCount() int64 {
	return c.receives.Load()
}

// Close removes the consumer from its session and closes it. Closing twice
// is a no-op; closing a durable subscriber does not unsubscribe it.
func (c *Consumer) Close() error {
	return c.session.consumerClose(c)
}

// IsPaused reports whether delivery is suspended for this consumer.
func (c *Consumer) IsPaused() bool { return c.paused.Load() }

func (c *Consumer) pause()  { c.paused.Store(true) }
func (c *Consumer) resume() { c.paused.Store(false) }

// internalClose marks the consumer closed without touching the registry.
// The dispatch collaborator observes the flag and stops delivering.
func (c *Consumer) internalClose() {
	c.closed.Store(true)
}

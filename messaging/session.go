package messaging

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Session adapts acknowledgment, transaction, durable-subscription, and
// selector semantics onto a single broker control channel. It exposes both
// queue (point-to-point) and topic (publish/subscribe) operations; callers
// narrow by destination kind.
//
// Multiple goroutines may call session operations concurrently. All
// acknowledgment, nack, commit, and rollback traffic is serialized through
// the session's commit gate; the control channel is never used for
// conflicting protocol operations outside it.
type Session struct {
	provider ChannelProvider
	ch       Channel
	logger   *slog.Logger

	transacted    bool
	ackMode       AckMode
	individualAck bool

	preferProducerProperty     bool
	requeueOnListenerException bool
	nackOnRollback             bool
	trustedPackages            []string
	browserReadMax             int
	sendingHook                func(SendingContext)
	receivingHook              func(ReceivingContext)
	outboundCustomizer         OutboundCustomizer

	gate     *commitGate
	tracker  *ackTracker
	topology *topologyDeclarer
	binder   *selectorBinder
	browsers *browserPool

	subscriptions *SubscriptionRegistry

	mu        sync.Mutex
	producers []*Producer
	consumers []*Consumer

	// uncommitted holds the delivery tags to nack on rollback. GuardedBy the
	// commit gate.
	uncommitted []uint64

	closed  atomic.Bool
	closeMu sync.Mutex
}

// NewSession opens a control channel on provider and builds a session over
// it. subscriptions is the connection-owned durable-subscription registry,
// shared across all of the connection's sessions; nil creates a private one.
func NewSession(provider ChannelProvider, subscriptions *SubscriptionRegistry, opts ...SessionOption) (*Session, error) {
	cfg := defaultSessionConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.ackMode < AckAuto || cfg.ackMode > AckClientIndividual {
		return nil, ErrInvalidAckMode
	}
	if subscriptions == nil {
		subscriptions = NewSubscriptionRegistry()
	}

	ch, err := provider.CreateChannel(cfg.transacted)
	if err != nil {
		return nil, providerErr("channel open", err)
	}

	s := &Session{
		provider:                   provider,
		ch:                         ch,
		logger:                     cfg.logger,
		transacted:                 cfg.transacted,
		preferProducerProperty:     cfg.preferProducerProperty,
		requeueOnListenerException: cfg.requeueOnListenerException,
		nackOnRollback:             cfg.nackOnRollback,
		trustedPackages:            cfg.trustedPackages,
		browserReadMax:             cfg.browserReadMax,
		sendingHook:                cfg.sendingHook,
		receivingHook:              cfg.receivingHook,
		outboundCustomizer:         cfg.outboundCustomizer,
		gate:                       newCommitGate(),
		tracker:                    &ackTracker{},
		subscriptions:              subscriptions,
	}
	switch {
	case cfg.transacted:
		s.ackMode = AckTransacted
	case cfg.ackMode == AckClientIndividual:
		// Individual acknowledgment is client acknowledgment restricted to
		// a single tag.
		s.ackMode = AckClient
		s.individualAck = true
	default:
		s.ackMode = cfg.ackMode
	}
	s.topology = &topologyDeclarer{
		ch:                          ch,
		logger:                      cfg.logger,
		autoDeleteServerNamedQueues: cfg.autoDeleteServerNamedQueues,
		queueDeclareArgs:            cfg.queueDeclareArgs,
	}
	s.binder = &selectorBinder{ch: ch, logger: cfg.logger}
	s.browsers = newBrowserPool(provider, cfg.logger)
	return s, nil
}

// Transacted reports whether the session is transactional.
func (s *Session) Transacted() bool { return s.transacted }

// AckMode returns the effective acknowledgment mode.
func (s *Session) AckMode() AckMode {
	if s.individualAck {
		return AckClientIndividual
	}
	return s.ackMode
}

// TrustedPackages returns the deserialization allow-list for the
// object-payload collaborator.
func (s *Session) TrustedPackages() []string { return s.trustedPackages }

// RequeueOnListenerException reports the listener-panic requeue policy.
func (s *Session) RequeueOnListenerException() bool { return s.requeueOnListenerException }

// SendingHook returns the pre-send instrumentation hook, or nil.
func (s *Session) SendingHook() func(SendingContext) { return s.sendingHook }

// ReceivingHook returns the pre-receive instrumentation hook, or nil.
func (s *Session) ReceivingHook() func(ReceivingContext) { return s.receivingHook }

// OutboundCustomizer returns the outbound-header hook, or nil.
func (s *Session) OutboundCustomizer() OutboundCustomizer { return s.outboundCustomizer }

// IsClosed reports whether Close has completed.
func (s *Session) IsClosed() bool { return s.closed.Load() }

func (s *Session) checkOpen() error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	return nil
}

// isAutoAck reports whether deliveries are acknowledged without application
// involvement. Only client acknowledgment requires explicit calls.
func (s *Session) isAutoAck() bool {
	return s.ackMode != AckClient
}

// CreateQueue declares a named, permanent queue destination and returns it.
func (s *Session) CreateQueue(name string) (*Destination, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	dest := NewQueue(name)
	if err := s.topology.DeclareQueue(dest, "", false, true); err != nil {
		return nil, err
	}
	s.logger.Debug("created queue", "queue", name)
	return dest, nil
}

// CreateTopic declares a named, permanent topic destination and returns it.
func (s *Session) CreateTopic(name string) (*Destination, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	dest := NewTopic(name)
	if err := s.topology.DeclareTopicExchange(dest); err != nil {
		return nil, err
	}
	s.logger.Debug("created topic", "topic", name)
	return dest, nil
}

// CreateTemporaryQueue returns a uniquely named temporary queue. Topology is
// declared on first use.
func (s *Session) CreateTemporaryQueue() (*Destination, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return NewTemporaryQueue(), nil
}

// CreateTemporaryTopic returns a uniquely named temporary topic. Topology is
// declared on first use.
func (s *Session) CreateTemporaryTopic() (*Destination, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return NewTemporaryTopic(), nil
}

// CreateProducer declares dest if necessary and registers a producer for it.
// dest may be nil for an unidentified producer.
func (s *Session) CreateProducer(dest *Destination) (*Producer, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if err := s.topology.DeclareIfNecessary(dest); err != nil {
		return nil, err
	}
	p := &Producer{session: s, dest: dest, preferProducerProperty: s.preferProducerProperty}
	s.mu.Lock()
	s.producers = append(s.producers, p)
	s.mu.Unlock()
	return p, nil
}

// CreateConsumer subscribes to dest with no filter.
func (s *Session) CreateConsumer(dest *Destination) (*Consumer, error) {
	return s.createConsumerInternal(dest, "", false, "", false)
}

// CreateConsumerWithSelector subscribes to a topic with a filter expression.
// Selectors are not supported for queue destinations.
func (s *Session) CreateConsumerWithSelector(dest *Destination, filter string, noLocal bool) (*Consumer, error) {
	if filter == "" {
		return s.createConsumerInternal(dest, "", false, "", noLocal)
	}
	if dest == nil || dest.IsQueue() {
		return nil, ErrSelectorNotSupported
	}
	return s.createConsumerInternal(dest, "", false, filter, noLocal)
}

func (s *Session) createConsumerInternal(dest *Destination, tag string, durableSubscriber bool, filter string, noLocal bool) (*Consumer, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if dest == nil {
		return nil, ErrUnknownDestination
	}
	if tag == "" {
		tag = generateName(consumerPrefix)
	}
	if err := s.topology.DeclareIfNecessary(dest); err != nil {
		return nil, err
	}

	queue := dest.QueueName()
	if !dest.IsQueue() {
		// Topics need a queue per consumer; the consumer tag names it.
		queue = tag
		if err := s.topology.DeclareQueue(dest, queue, durableSubscriber, false); err != nil {
			return nil, err
		}
		if err := s.binder.Bind(dest, queue, filter, durableSubscriber); err != nil {
			return nil, err
		}
	}

	c := &Consumer{
		session: s,
		dest:    dest,
		tag:     tag,
		queue:   queue,
		filter:  filter,
		durable: durableSubscriber,
		noLocal: noLocal,
	}
	s.mu.Lock()
	s.consumers = append(s.consumers, c)
	s.mu.Unlock()
	s.logger.Debug("created consumer",
		"destination", dest.String(),
		"consumerTag", tag,
		"selector", filter)
	return c, nil
}

// CreateDurableSubscriber creates or replaces the named durable topic
// subscription. A live subscription with the same name and topic is a
// duplicate and fails; the same name on a different topic unsubscribes the
// old subscription first; a closed subscription is silently re-created.
func (s *Session) CreateDurableSubscriber(topic *Destination, name, filter string, noLocal bool) (*Consumer, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if topic == nil || topic.IsQueue() {
		return nil, ErrNotTopic
	}

	if prev := s.subscriptions.Get(name); prev != nil {
		prevDest := prev.Destination()
		if prevDest.Name() == topic.Name() && !prevDest.IsQueue() {
			if prev.IsClosed() {
				// Subscriber was closed without unsubscribing; this is a
				// plain re-subscription.
				s.logger.Warn("re-subscribing to topic",
					"topic", topic.Name(), "subscription", name)
			} else {
				s.logger.Error("durable subscription already exists",
					"topic", topic.Name(), "subscription", name)
				return nil, ErrDuplicateSubscription
			}
		} else {
			s.logger.Warn("durable subscription switching topics",
				"subscription", name,
				"previousTopic", prevDest.Name(),
				"topic", topic.Name())
			if err := s.Unsubscribe(name); err != nil {
				return nil, err
			}
		}
	}

	c, err := s.createConsumerInternal(topic, name, true, filter, noLocal)
	if err != nil {
		return nil, err
	}
	s.subscriptions.Put(name, c)
	return c, nil
}

// Unsubscribe removes the named durable subscription and deletes its backing
// queue. Unsubscribing an unknown name is a logged no-op.
func (s *Session) Unsubscribe(name string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if name == "" || s.subscriptions.Remove(name) == nil {
		s.logger.Warn("cannot unsubscribe unknown subscription", "subscription", name)
		return nil
	}
	if err := s.ch.DeleteQueue(name); err != nil {
		s.logger.Error("queue delete failed", "queue", name, "error", err)
		return providerErr("queue delete", err)
	}
	return nil
}

// CreateBrowser opens a non-destructive enumerator over a queue destination
// on its own browsing channel. Browse selectors are not supported.
func (s *Session) CreateBrowser(queue *Destination, filter string) (*QueueBrowser, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if queue == nil || !queue.IsQueue() {
		return nil, ErrNotQueue
	}
	if filter != "" {
		return nil, ErrSelectorNotSupported
	}
	ch, err := s.browsers.Acquire()
	if err != nil {
		return nil, err
	}
	return &QueueBrowser{pool: s.browsers, ch: ch, dest: queue, readMax: s.browserReadMax}, nil
}

// MarkDelivered records a delivery on this session. Non-transacted sessions
// track the tag for acknowledgment; transacted sessions with nack-on-rollback
// enabled record it in the uncommitted ledger instead.
func (s *Session) MarkDelivered(ctx context.Context, tag uint64) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	if !s.transacted {
		s.tracker.Record(tag)
		return nil
	}
	if s.nackOnRollback {
		if err := s.gate.Enter(ctx); err != nil {
			return err
		}
		s.uncommitted = append(s.uncommitted, tag)
		s.gate.Leave()
	}
	return nil
}

// AcknowledgeMessage acknowledges the message carrying tag. In individual
// mode exactly that message is acknowledged; otherwise the message and every
// earlier unacknowledged delivery on the session are acknowledged as a
// group. Acknowledging an untracked tag is a no-op. Auto-acknowledged and
// transacted sessions ignore the call.
func (s *Session) AcknowledgeMessage(ctx context.Context, tag uint64) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if s.isAutoAck() {
		return nil
	}
	if s.individualAck {
		return s.tracker.AckIndividual(tag, func(t uint64) error {
			return s.gatedAck(ctx, t, false)
		})
	}
	return s.tracker.AckGroup(tag, func(upTo uint64) error {
		return s.gatedAck(ctx, upTo, true)
	})
}

func (s *Session) gatedAck(ctx context.Context, tag uint64, multiple bool) error {
	if err := s.gate.Enter(ctx); err != nil {
		return err
	}
	defer s.gate.Leave()
	if err := s.ch.Ack(tag, multiple); err != nil {
		s.logger.Error("acknowledge failed", "tag", tag, "multiple", multiple, "error", err)
		return providerErr("ack", err)
	}
	return nil
}

// ExplicitAck acknowledges a single delivery outside the tracked set. It is
// the auto-acknowledge path used by the dispatch collaborator after a
// successful listener invocation.
func (s *Session) ExplicitAck(ctx context.Context, tag uint64) error {
	if err := s.gate.Enter(ctx); err != nil {
		return err
	}
	defer s.gate.Leave()
	if err := s.ch.Ack(tag, false); err != nil {
		s.logger.Error("cannot acknowledge received message", "tag", tag, "error", err)
		return providerErr("ack", err)
	}
	return nil
}

// ExplicitNack rejects and requeues a single delivery. Failure is logged and
// swallowed: the message was never acknowledged, so it redelivers anyway
// once the channel goes down.
func (s *Session) ExplicitNack(ctx context.Context, tag uint64) error {
	if err := s.gate.Enter(ctx); err != nil {
		return err
	}
	defer s.gate.Leave()
	if err := s.ch.Nack(tag, false, true); err != nil {
		s.logger.Warn("cannot reject received message", "tag", tag, "error", err)
	}
	return nil
}

// Commit commits the session's transaction.
func (s *Session) Commit(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if !s.transacted {
		return ErrNotTransacted
	}
	s.logger.Info("committing transaction")
	if err := s.gate.Enter(ctx); err != nil {
		return err
	}
	defer s.gate.Leave()
	// All deliveries ought already to have been acked on this channel.
	if err := s.ch.TxCommit(); err != nil {
		s.logger.Error("transaction commit failed", "error", err)
		return providerErr("tx commit", err)
	}
	s.clearUncommitted()
	return nil
}

// Rollback rolls back the session's transaction. With nack-on-rollback
// enabled every delivery in the uncommitted ledger is negatively
// acknowledged without requeue and that batch committed; the trailing
// requeue-all recovery makes any remaining unacknowledged messages
// redeliverable.
func (s *Session) Rollback(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if !s.transacted {
		return ErrNotTransacted
	}
	s.logger.Info("rolling back transaction")
	if err := s.gate.Enter(ctx); err != nil {
		return err
	}
	defer s.gate.Leave()

	if err := s.ch.TxRollback(); err != nil {
		s.logger.Error("transaction rollback failed", "error", err)
		return providerErr("tx rollback", err)
	}
	if s.nackOnRollback && len(s.uncommitted) > 0 {
		for _, tag := range s.uncommitted {
			if err := s.ch.Nack(tag, false, false); err != nil {
				s.logger.Error("rollback nack failed", "tag", tag, "error", err)
				return providerErr("rollback nack", err)
			}
		}
		if err := s.ch.TxCommit(); err != nil {
			s.logger.Error("rollback nack commit failed", "error", err)
			return providerErr("rollback nack commit", err)
		}
		s.clearUncommitted()
	}
	// The broker does not requeue rolled-back deliveries on its own.
	if err := s.ch.Recover(true); err != nil {
		s.logger.Error("rollback recover failed", "error", err)
		return providerErr("recover", err)
	}
	return nil
}

// Recover requeues every unacknowledged delivery on a non-transacted
// session, making them redeliverable.
func (s *Session) Recover() error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if s.transacted {
		return ErrTransacted
	}
	return s.tracker.Recover(func() error {
		if err := s.ch.Recover(true); err != nil {
			s.logger.Warn("recover failed", "error", err)
			return providerErr("recover", err)
		}
		return nil
	})
}

// clearUncommitted empties the rollback ledger. Callers hold the commit
// gate.
func (s *Session) clearUncommitted() {
	if s.nackOnRollback {
		s.uncommitted = s.uncommitted[:0]
	}
}

// syncAllowed reports whether a blocking receive may start: no consumer on
// this session has a listener set.
func (s *Session) syncAllowed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.consumers {
		if c.listenerSet() {
			return false
		}
	}
	return true
}

// asyncAllowed reports whether a listener may be set: no consumer on this
// session has a receive in flight.
func (s *Session) asyncAllowed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.consumers {
		if c.receiveCount() != 0 {
			return false
		}
	}
	return true
}

// consumerClose removes c from the registry and closes it. Removal gates the
// close, so a second call is a no-op.
func (s *Session) consumerClose(c *Consumer) error {
	s.mu.Lock()
	removed := false
	for i, registered := range s.consumers {
		if registered == c {
			s.consumers = append(s.consumers[:i], s.consumers[i+1:]...)
			removed = true
			break
		}
	}
	s.mu.Unlock()
	if removed {
		c.internalClose()
	}
	return nil
}

// removeProducer removes p from the registry and closes it.
func (s *Session) removeProducer(p *Producer) {
	s.mu.Lock()
	removed := false
	for i, registered := range s.producers {
		if registered == p {
			s.producers = append(s.producers[:i], s.producers[i+1:]...)
			removed = true
			break
		}
	}
	s.mu.Unlock()
	if removed {
		p.internalClose()
	}
}

// Pause stops every consumer on the session from receiving.
func (s *Session) Pause() {
	s.mu.Lock()
	consumers := make([]*Consumer, len(s.consumers))
	copy(consumers, s.consumers)
	s.mu.Unlock()
	for _, c := range consumers {
		c.pause()
	}
}

// Resume restarts delivery for every consumer on the session.
func (s *Session) Resume() {
	s.mu.Lock()
	consumers := make([]*Consumer, len(s.consumers))
	copy(consumers, s.consumers)
	s.mu.Unlock()
	for _, c := range consumers {
		c.resume()
	}
}

// Close tears the session down: consumers first (so requeued messages are
// not re-consumed), then a rollback of any pending transaction, producers,
// a commit of close-time work, the browsing channels, and finally the
// control channel. Every step is isolated; one collaborator's failure never
// aborts the rest. Close is idempotent and concurrent calls serialize.
func (s *Session) Close() error {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.closed.Load() {
		return nil
	}
	s.logger.Info("closing session")
	defer s.closed.Store(true)
	ctx := context.Background()

	s.mu.Lock()
	consumers := s.consumers
	s.consumers = nil
	producers := s.producers
	s.producers = nil
	s.mu.Unlock()

	for _, c := range consumers {
		c.internalClose()
	}

	if s.transacted {
		// Deliveries are not nacked on close; rollback requeues them.
		if err := s.gate.Enter(ctx); err == nil {
			s.clearUncommitted()
			s.gate.Leave()
		}
		if err := s.Rollback(ctx); err != nil {
			s.logger.Error("rollback during close failed", "error", err)
		}
	}

	for _, p := range producers {
		p.internalClose()
	}

	if s.transacted {
		if err := s.Commit(ctx); err != nil {
			s.logger.Error("commit during close failed", "error", err)
		}
	}

	s.browsers.CloseAll()

	if err := s.ch.Close(); err != nil && !errors.Is(err, ErrChannelShutdown) {
		s.logger.Warn("control channel failed to close", "error", err)
		return providerErr("channel close", err)
	}
	return nil
}

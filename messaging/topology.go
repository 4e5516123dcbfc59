package messaging

import (
	"log/slog"
)

// topologyDeclarer declares and binds the exchanges and queues backing
// managed destinations. Declarations are idempotent: the destination's
// declared flag guards repeat work on this side, and broker-side declares
// are no-ops when the object already exists, so a benign two-thread race on
// the flag is harmless.
type topologyDeclarer struct {
	ch     Channel
	logger *slog.Logger

	// autoDeleteServerNamedQueues marks a non-durable topic's server-named
	// queue auto-delete so it disappears when its last consumer detaches
	// instead of leaking until the connection closes.
	autoDeleteServerNamedQueues bool

	// queueDeclareArgs are optional broker arguments applied to every queue
	// declared for a destination.
	queueDeclareArgs Table
}

// DeclareIfNecessary declares the topology backing dest on first use.
// Native (broker-managed) and already-declared destinations are no-ops.
func (td *topologyDeclarer) DeclareIfNecessary(dest *Destination) error {
	if dest == nil || dest.IsNative() || dest.IsDeclared() {
		return nil
	}
	if dest.IsQueue() {
		return td.DeclareQueue(dest, "", false, true)
	}
	return td.DeclareTopicExchange(dest)
}

// DeclareQueue declares the queue backing dest, and for queue destinations
// the exchange in front of it, then optionally binds queue to exchange with
// the queue's own name as routing key.
//
// queueNameOverride names the per-consumer queue for topic subscriptions;
// empty means the destination's own queue name. durableSubscriber is true
// only for durable topic subscriptions.
func (td *topologyDeclarer) DeclareQueue(dest *Destination, queueNameOverride string, durableSubscriber, bind bool) error {
	queueName := queueNameOverride
	if queueName == "" {
		queueName = dest.QueueName()
	}

	// Destinations survive broker restart only if they are durable topic
	// subscriptions or permanent queues.
	durable := durableSubscriber || (dest.IsQueue() && !dest.IsTemporary())

	// A queue is exclusive (single connection, deleted with it) if the
	// destination is temporary or it backs a non-durable topic subscription.
	exclusive := dest.IsTemporary() || (!dest.IsQueue() && !durableSubscriber)

	if dest.IsQueue() {
		if dest.noDeclareNeeded() {
			td.logger.Warn("skipping declare of built-in exchange",
				"destination", dest.String())
		} else {
			err := td.ch.DeclareExchange(dest.ExchangeName(), dest.ExchangeType(), durable, false, false, nil)
			if err != nil {
				return providerErr("exchange declare", err)
			}
		}
	}

	// Server-named queues for non-durable topics leak on the broker until
	// the connection closes unless they are marked auto-delete.
	autoDelete := td.autoDeleteServerNamedQueues &&
		!durable && queueNameOverride != "" && !dest.IsQueue()

	td.logger.Debug("declare queue",
		"queue", queueName,
		"durable", durable,
		"exclusive", exclusive,
		"autoDelete", autoDelete)
	if err := td.ch.DeclareQueue(queueName, durable, exclusive, autoDelete, td.queueDeclareArgs); err != nil {
		td.logger.Error("queue declare failed",
			"queue", queueName, "error", err)
		return providerErr("queue declare", err)
	}

	if bind {
		if err := td.ch.BindQueue(queueName, dest.ExchangeName(), queueName, nil); err != nil {
			td.logger.Error("queue bind failed",
				"queue", queueName, "exchange", dest.ExchangeName(), "error", err)
			return providerErr("queue bind", err)
		}
	}
	dest.markDeclared()
	return nil
}

// DeclareTopicExchange declares the exchange backing a topic destination.
// Per-consumer queues and bindings are created later, per subscription.
func (td *topologyDeclarer) DeclareTopicExchange(dest *Destination) error {
	if dest.noDeclareNeeded() {
		td.logger.Warn("skipping declare of built-in exchange",
			"destination", dest.String())
	} else {
		// Durable for all but temporary topics; never auto-delete, the
		// exclusive per-consumer queues go down with their connections.
		err := td.ch.DeclareExchange(dest.ExchangeName(), dest.ExchangeType(), !dest.IsTemporary(), false, false, nil)
		if err != nil {
			return providerErr("exchange declare", err)
		}
	}
	dest.markDeclared()
	return nil
}

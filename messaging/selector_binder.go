package messaging

import (
	"log/slog"
	"sync"

	"github.com/harbourmq/jmsbridge/selector"
)

// Client version string advertised in selector-exchange arguments.
const clientVersion = "0.9.0"

// Selector-exchange wire contract. The custom exchange type evaluates the
// compiled predicate against message headers at routing time; the argument
// keys are opaque to everything but that exchange implementation.
const (
	selectorExchangeType = "x-jms-topic"

	compiledSelectorArg = "rjms_erlang_selector"
	versionArg          = "rjms_version"
)

// Generated-name prefixes distinguishing durable from non-durable selector
// infrastructure.
const (
	durableSelectorPrefix    = "jms-dutop-slx-"
	nonDurableSelectorPrefix = "jms-ndtop-slx-"
)

// selectorExchangeArgs is fixed for the life of the process.
var selectorExchangeArgs = Table{versionArg: clientVersion}

// selectorBinder routes a per-consumer queue to a topic. Without a filter
// the queue binds directly to the topic exchange. With a filter the binder
// compiles it and inserts this session's selector exchange between the topic
// exchange and the queue: topic exchange -> selector exchange -> queue, the
// compiled predicate attached to the final binding. The broker has no native
// per-subscriber filtering, so filtering is pushed server-side through the
// selector-capable exchange type.
//
// Durable and non-durable subscriptions use separate selector exchanges so
// durable topology survives a broker restart while ephemeral subscriptions
// leave no durable state behind.
type selectorBinder struct {
	ch     Channel
	logger *slog.Logger

	mu                 sync.Mutex
	durableExchange    string
	nonDurableExchange string
}

// Bind connects queueName to the topic dest, applying filter if non-empty.
// A malformed filter fails with a SelectorError before any broker call.
func (sb *selectorBinder) Bind(dest *Destination, queueName, filter string, durableSubscriber bool) error {
	if filter == "" {
		if err := sb.ch.BindQueue(queueName, dest.ExchangeName(), dest.RoutingKey(), nil); err != nil {
			return providerErr("queue bind", err)
		}
		return nil
	}

	compiled, err := selector.Compile(filter)
	if err != nil {
		return &SelectorError{Expression: filter, Err: err}
	}

	exchange, err := sb.selectionExchange(durableSubscriber)
	if err != nil {
		return err
	}
	if err := sb.ch.BindExchange(exchange, dest.ExchangeName(), dest.RoutingKey()); err != nil {
		return providerErr("exchange bind", err)
	}
	args := Table{
		compiledSelectorArg: compiled,
		versionArg:          clientVersion,
	}
	if err := sb.ch.BindQueue(queueName, exchange, dest.RoutingKey(), args); err != nil {
		return providerErr("selector queue bind", err)
	}
	sb.logger.Debug("bound selector queue",
		"queue", queueName,
		"selectorExchange", exchange,
		"topic", dest.Name(),
		"durable", durableSubscriber)
	return nil
}

// selectionExchange returns this session's selector exchange for the given
// durability class, declaring it lazily on first use. The name is cached;
// the declare is repeated per use and is idempotent on the broker.
func (sb *selectorBinder) selectionExchange(durable bool) (string, error) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	name := sb.nonDurableExchange
	prefix := nonDurableSelectorPrefix
	if durable {
		name = sb.durableExchange
		prefix = durableSelectorPrefix
	}
	if name == "" {
		name = generateName(prefix)
	}
	if err := sb.ch.DeclareExchange(name, selectorExchangeType, durable, true, false, selectorExchangeArgs); err != nil {
		return "", providerErr("selector exchange declare", err)
	}
	if durable {
		sb.durableExchange = name
	} else {
		sb.nonDurableExchange = name
	}
	return name, nil
}

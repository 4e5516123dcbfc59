package messaging

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

// Fixed exchanges backing managed destinations. Queue destinations publish
// through a direct exchange routed by queue name; topic destinations get a
// topic exchange per destination name.
const (
	durableQueueExchange = "jms.durable.queues"
	tempQueueExchange    = "jms.temp.queues"
	durableTopicExchange = "jms.durable.topic"
	tempTopicExchange    = "jms.temp.topic"

	exchangeTypeDirect = "direct"
	exchangeTypeTopic  = "topic"
)

// Prefixes for generated names. Temporary queues and topics carry distinct
// prefixes so the two namespaces can never collide.
const (
	tempQueuePrefix = "jms-temp-queue-"
	tempTopicPrefix = "jms-temp-topic-"
	consumerPrefix  = "jms-cons-"
)

// Destination identifies a logical queue or topic. The identity fields are
// immutable; only the declared flag mutates, exactly once, when the backing
// topology is first declared on the broker.
//
// A Destination may be shared by multiple producers and consumers.
type Destination struct {
	name      string
	queue     bool
	temporary bool

	// native marks a pre-existing broker-managed address. The session never
	// declares topology for native destinations.
	native         bool
	nativeExchange string
	nativeRouting  string
	nativeQueue    string

	declared atomic.Bool
}

// NewQueue returns a managed queue destination.
func NewQueue(name string) *Destination {
	return &Destination{name: name, queue: true}
}

// NewTopic returns a managed topic destination.
func NewTopic(name string) *Destination {
	return &Destination{name: name}
}

// NewTemporaryQueue returns a queue destination with a generated unique name.
func NewTemporaryQueue() *Destination {
	return &Destination{name: generateName(tempQueuePrefix), queue: true, temporary: true}
}

// NewTemporaryTopic returns a topic destination with a generated unique name.
func NewTemporaryTopic() *Destination {
	return &Destination{name: generateName(tempTopicPrefix), temporary: true}
}

// NewNativeDestination addresses broker topology that already exists and is
// managed outside this library. Topology declaration is skipped for it.
func NewNativeDestination(name, exchange, routingKey, queue string) *Destination {
	return &Destination{
		name:           name,
		queue:          queue != "",
		native:         true,
		nativeExchange: exchange,
		nativeRouting:  routingKey,
		nativeQueue:    queue,
	}
}

func generateName(prefix string) string {
	return prefix + uuid.New().String()
}

// Name returns the logical destination name.
func (d *Destination) Name() string { return d.name }

// IsQueue reports whether this is a queue (point-to-point) destination.
func (d *Destination) IsQueue() bool { return d.queue }

// IsTemporary reports whether this destination lives only as long as its
// owning connection.
func (d *Destination) IsTemporary() bool { return d.temporary }

// IsNative reports whether the destination maps onto pre-existing broker
// topology.
func (d *Destination) IsNative() bool { return d.native }

// IsDeclared reports whether the backing topology has been declared.
func (d *Destination) IsDeclared() bool { return d.declared.Load() }

func (d *Destination) markDeclared() { d.declared.Store(true) }

// ExchangeName returns the exchange this destination publishes through.
func (d *Destination) ExchangeName() string {
	if d.native {
		return d.nativeExchange
	}
	if d.queue {
		if d.temporary {
			return tempQueueExchange
		}
		return durableQueueExchange
	}
	if d.temporary {
		return tempTopicExchange
	}
	return durableTopicExchange
}

// ExchangeType returns the AMQP exchange type backing this destination.
func (d *Destination) ExchangeType() string {
	if d.queue {
		return exchangeTypeDirect
	}
	return exchangeTypeTopic
}

// RoutingKey returns the routing key used when publishing to this
// destination.
func (d *Destination) RoutingKey() string {
	if d.native {
		return d.nativeRouting
	}
	return d.name
}

// QueueName returns the backing queue name for queue destinations.
func (d *Destination) QueueName() string {
	if d.native {
		return d.nativeQueue
	}
	return d.name
}

// noDeclareNeeded reports whether the exchange must not be declared by the
// client: broker built-ins ("amq.*" and the default exchange) are reserved.
func (d *Destination) noDeclareNeeded() bool {
	ex := d.ExchangeName()
	return ex == "" || strings.HasPrefix(ex, "amq.")
}

func (d *Destination) String() string {
	kind := "topic"
	if d.queue {
		kind = "queue"
	}
	if d.temporary {
		kind = "temporary " + kind
	}
	return fmt.Sprintf("%s %q", kind, d.name)
}

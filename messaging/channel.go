package messaging

// Table carries broker declare and bind arguments.
type Table map[string]interface{}

// Delivery is the subset of a broker delivery the session layer cares about:
// the per-channel delivery tag used for acknowledgment plus the routed
// metadata a browser surfaces. Payload decoding belongs to the message
// collaborators, not to this package.
type Delivery struct {
	Tag        uint64
	Exchange   string
	RoutingKey string
	Headers    Table
	Body       []byte
}

// Channel is the broker control channel a Session owns. It is not safe for
// concurrent protocol operations; the session serializes conflicting calls
// through its commit gate.
type Channel interface {
	DeclareExchange(name, kind string, durable, autoDelete, internal bool, args Table) error
	DeclareQueue(name string, durable, exclusive, autoDelete bool, args Table) error
	BindQueue(queue, exchange, routingKey string, args Table) error
	BindExchange(destination, source, routingKey string) error
	DeleteQueue(name string) error

	Ack(tag uint64, multiple bool) error
	Nack(tag uint64, multiple, requeue bool) error
	Recover(requeue bool) error

	TxCommit() error
	TxRollback() error

	// Get fetches a single message without starting a consumer. The second
	// return value reports whether a message was available.
	Get(queue string, autoAck bool) (Delivery, bool, error)

	Close() error
}

// ChannelProvider creates broker channels. The session requests one
// transacted or plain control channel at construction and additional
// non-transacted channels for queue browsing.
type ChannelProvider interface {
	CreateChannel(transacted bool) (Channel, error)
}

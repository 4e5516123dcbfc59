package messaging

import "log/slog"

// AckMode is the session acknowledgment mode.
type AckMode int

const (
	// AckAuto acknowledges each delivery automatically after dispatch.
	AckAuto AckMode = iota
	// AckClient leaves acknowledgment to the application; acknowledging one
	// message acknowledges all earlier deliveries on the session.
	AckClient
	// AckDupsOk is lazy auto acknowledgment; duplicates may be redelivered.
	AckDupsOk
	// AckTransacted is implied by a transacted session.
	AckTransacted
	// AckClientIndividual is client acknowledgment restricted to exactly the
	// message named, never its predecessors.
	AckClientIndividual
)

func (m AckMode) String() string {
	switch m {
	case AckAuto:
		return "auto"
	case AckClient:
		return "client"
	case AckDupsOk:
		return "dups-ok"
	case AckTransacted:
		return "transacted"
	case AckClientIndividual:
		return "client-individual"
	default:
		return "unknown"
	}
}

// SendingContext is passed to the pre-send instrumentation hook.
type SendingContext struct {
	Destination *Destination
}

// ReceivingContext is passed to the pre-receive instrumentation hook.
type ReceivingContext struct {
	Destination *Destination
	Tag         uint64
}

// OutboundCustomizer can adjust the headers of an outbound message just
// before publication.
type OutboundCustomizer func(headers Table, dest *Destination)

type sessionConfig struct {
	transacted bool
	ackMode    AckMode
	logger     *slog.Logger

	preferProducerProperty      bool
	requeueOnListenerException  bool
	nackOnRollback              bool
	autoDeleteServerNamedQueues bool

	queueDeclareArgs Table
	trustedPackages  []string
	browserReadMax   int

	sendingHook        func(SendingContext)
	receivingHook      func(ReceivingContext)
	outboundCustomizer OutboundCustomizer
}

// SessionOption configures a Session at construction.
type SessionOption func(*sessionConfig)

// WithTransacted makes the session transactional. The acknowledgment mode
// is forced to AckTransacted.
func WithTransacted() SessionOption {
	return func(c *sessionConfig) { c.transacted = true }
}

// WithAckMode sets the acknowledgment mode for non-transacted sessions.
func WithAckMode(mode AckMode) SessionOption {
	return func(c *sessionConfig) { c.ackMode = mode }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SessionOption {
	return func(c *sessionConfig) { c.logger = logger }
}

// WithPreferProducerProperty controls whether producer-level properties
// override per-message properties. Default is true.
func WithPreferProducerProperty(prefer bool) SessionOption {
	return func(c *sessionConfig) { c.preferProducerProperty = prefer }
}

// WithRequeueOnListenerException requeues a delivery when the listener
// panics instead of leaving it unacknowledged.
func WithRequeueOnListenerException(requeue bool) SessionOption {
	return func(c *sessionConfig) { c.requeueOnListenerException = requeue }
}

// WithNackOnRollback negatively acknowledges all uncommitted deliveries when
// a transaction rolls back, instead of leaving them to the requeue-all
// recovery alone.
func WithNackOnRollback(nack bool) SessionOption {
	return func(c *sessionConfig) { c.nackOnRollback = nack }
}

// WithAutoDeleteServerNamedQueues marks server-named queues backing
// non-durable topic subscriptions auto-delete, so they disappear when their
// last consumer detaches rather than when the connection closes.
func WithAutoDeleteServerNamedQueues(autoDelete bool) SessionOption {
	return func(c *sessionConfig) { c.autoDeleteServerNamedQueues = autoDelete }
}

// WithQueueDeclareArguments sets broker arguments applied to every queue the
// session declares.
func WithQueueDeclareArguments(args Table) SessionOption {
	return func(c *sessionConfig) { c.queueDeclareArgs = args }
}

// WithTrustedPackages sets the package list consumed by the object-payload
// collaborator when deserializing object messages.
func WithTrustedPackages(packages []string) SessionOption {
	return func(c *sessionConfig) { c.trustedPackages = packages }
}

// WithBrowserReadMax bounds a single queue-browse enumeration pass.
func WithBrowserReadMax(max int) SessionOption {
	return func(c *sessionConfig) {
		if max > 0 {
			c.browserReadMax = max
		}
	}
}

// WithSendingHook installs a pre-send instrumentation hook.
func WithSendingHook(hook func(SendingContext)) SessionOption {
	return func(c *sessionConfig) { c.sendingHook = hook }
}

// WithReceivingHook installs a pre-receive instrumentation hook.
func WithReceivingHook(hook func(ReceivingContext)) SessionOption {
	return func(c *sessionConfig) { c.receivingHook = hook }
}

// WithOutboundCustomizer installs a hook that can adjust outbound message
// headers before publication.
func WithOutboundCustomizer(customizer OutboundCustomizer) SessionOption {
	return func(c *sessionConfig) { c.outboundCustomizer = customizer }
}

func defaultSessionConfig() *sessionConfig {
	return &sessionConfig{
		ackMode:                AckAuto,
		logger:                 slog.Default(),
		preferProducerProperty: true,
		browserReadMax:         defaultBrowserReadMax,
	}
}

package messaging

import (
	"errors"
	"fmt"
	"time"
)

var (
	// Session state errors
	ErrSessionClosed  = errors.New("messaging: session is closed")
	ErrNotTransacted  = errors.New("messaging: session is not transacted")
	ErrTransacted     = errors.New("messaging: session is transacted")
	ErrInvalidAckMode = errors.New("messaging: invalid acknowledgement mode")

	// Usage errors
	ErrSelectorNotSupported   = errors.New("messaging: selectors are only supported for topic destinations")
	ErrDuplicateSubscription  = errors.New("messaging: durable subscription already exists")
	ErrMixedDeliveryModes     = errors.New("messaging: session consumers must be all synchronous or all asynchronous")
	ErrUnknownDestination     = errors.New("messaging: unknown destination type")
	ErrNotTopic               = errors.New("messaging: operation requires a topic destination")
	ErrNotQueue               = errors.New("messaging: operation requires a queue destination")

	// Collaborator state errors
	ErrConsumerClosed = errors.New("messaging: consumer is closed")
	ErrProducerClosed = errors.New("messaging: producer is closed")
	ErrBrowserClosed  = errors.New("messaging: browser is closed")

	// ErrChannelShutdown marks a broker channel that is already gone. Close
	// paths treat it as success since the desired end state is reached.
	ErrChannelShutdown = errors.New("messaging: channel already shut down")
)

// ProviderError wraps a broker-protocol failure (I/O, channel shutdown)
// raised by a declare, bind, ack, or transaction call.
type ProviderError struct {
	Op        string    // Operation that failed
	Err       error     // Underlying error
	Timestamp time.Time // When the error occurred
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("messaging provider error: %s failed: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func providerErr(op string, err error) error {
	return &ProviderError{Op: op, Err: err, Timestamp: time.Now()}
}

// SelectorError marks a malformed filter expression. It is raised before any
// broker call is made, so no partial binding can exist.
type SelectorError struct {
	Expression string
	Err        error
}

func (e *SelectorError) Error() string {
	return fmt.Sprintf("messaging selector error: %q: %v", e.Expression, e.Err)
}

func (e *SelectorError) Unwrap() error {
	return e.Err
}

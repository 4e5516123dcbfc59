// Package rabbitmq is the public entry point binding the session layer to a
// RabbitMQ broker over AMQP 0-9-1.
package rabbitmq

import (
	"context"
	"log/slog"

	"github.com/harbourmq/jmsbridge/internal/rabbitmq"
	"github.com/harbourmq/jmsbridge/messaging"
)

// Connection is a broker connection that creates sessions. All sessions of
// one connection share its durable-subscription registry, so a durable
// subscription created in one session is visible to its siblings.
type Connection struct {
	inner         *rabbitmq.Connection
	subscriptions *messaging.SubscriptionRegistry
	logger        *slog.Logger
}

// ConnectionConfig holds configuration for Dial.
type ConnectionConfig struct {
	Logger *slog.Logger
}

// ConnectionOption configures Dial.
type ConnectionOption func(*ConnectionConfig)

// WithLogger sets the logger used by the connection and, by default, by the
// sessions it creates.
func WithLogger(logger *slog.Logger) ConnectionOption {
	return func(cfg *ConnectionConfig) { cfg.Logger = logger }
}

// Dial connects to the broker at url.
func Dial(ctx context.Context, url string, options ...ConnectionOption) (*Connection, error) {
	cfg := &ConnectionConfig{Logger: slog.Default()}
	for _, opt := range options {
		opt(cfg)
	}
	inner, err := rabbitmq.Dial(ctx, url, rabbitmq.WithLogger(cfg.Logger))
	if err != nil {
		return nil, err
	}
	return &Connection{
		inner:         inner,
		subscriptions: messaging.NewSubscriptionRegistry(),
		logger:        cfg.Logger,
	}, nil
}

// CreateSession builds a session over a fresh control channel. The
// connection's logger applies unless the options override it.
func (c *Connection) CreateSession(opts ...messaging.SessionOption) (*messaging.Session, error) {
	all := append([]messaging.SessionOption{messaging.WithLogger(c.logger)}, opts...)
	return messaging.NewSession(c.inner, c.subscriptions, all...)
}

// IsClosed reports whether the connection is gone.
func (c *Connection) IsClosed() bool {
	return c.inner.IsClosed()
}

// Close shuts the connection down. Sessions should be closed first; any
// still open lose their channels.
func (c *Connection) Close() error {
	return c.inner.Close()
}

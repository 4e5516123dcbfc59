package rabbitmq

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/harbourmq/jmsbridge/messaging"
)

var (
	// ErrConnectionClosed is returned when the connection is gone.
	ErrConnectionClosed = errors.New("rabbitmq: connection is closed")
	// ErrConnectionTimeout is returned when dialing exceeds the deadline.
	ErrConnectionTimeout = errors.New("rabbitmq: connection timeout")
)

const defaultDialTimeout = 30 * time.Second

// Connection owns one AMQP connection and hands out channels for sessions
// and browsers. There is no transparent reconnection: a session's delivery
// tags are channel-scoped, so a silently replaced channel would invalidate
// every outstanding acknowledgment. Connection loss surfaces as channel
// errors and the owner builds a fresh connection.
type Connection struct {
	url    string
	logger *slog.Logger

	mu     sync.Mutex
	conn   *amqp.Connection
	closed bool
}

// ConnectionOption configures Dial.
type ConnectionOption func(*Connection)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ConnectionOption {
	return func(c *Connection) { c.logger = logger }
}

// Dial connects to the broker at url.
func Dial(ctx context.Context, url string, options ...ConnectionOption) (*Connection, error) {
	c := &Connection{
		url:    url,
		logger: slog.Default(),
	}
	for _, opt := range options {
		opt(c)
	}

	dialCtx, cancel := context.WithTimeout(ctx, defaultDialTimeout)
	defer cancel()

	connCh := make(chan *amqp.Connection, 1)
	errCh := make(chan error, 1)
	go func() {
		conn, err := amqp.Dial(url)
		if err != nil {
			errCh <- err
			return
		}
		connCh <- conn
	}()

	select {
	case conn := <-connCh:
		c.conn = conn
		c.logger.Info("connected to broker", "url", sanitizeURL(url))
		return c, nil
	case err := <-errCh:
		return nil, err
	case <-dialCtx.Done():
		return nil, ErrConnectionTimeout
	}
}

// CreateChannel opens a channel, selecting transaction mode when requested.
// It implements messaging.ChannelProvider.
func (c *Connection) CreateChannel(transacted bool) (messaging.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.conn == nil || c.conn.IsClosed() {
		return nil, ErrConnectionClosed
	}
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, err
	}
	if transacted {
		if err := ch.Tx(); err != nil {
			ch.Close()
			return nil, err
		}
	}
	return &sessionChannel{ch: ch}, nil
}

// IsClosed reports whether the connection is gone.
func (c *Connection) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed || c.conn == nil || c.conn.IsClosed()
}

// Close shuts the connection down. Closing twice is a no-op.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.conn != nil && !c.conn.IsClosed() {
		return c.conn.Close()
	}
	return nil
}

// sanitizeURL hides credentials embedded in the connection URL.
func sanitizeURL(url string) string {
	if len(url) > 20 {
		return url[:10] + "***" + url[len(url)-10:]
	}
	return "***"
}

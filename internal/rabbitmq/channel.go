package rabbitmq

import (
	"errors"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/harbourmq/jmsbridge/messaging"
)

// sessionChannel adapts an AMQP channel to the messaging.Channel contract.
type sessionChannel struct {
	ch *amqp.Channel
}

var _ messaging.Channel = (*sessionChannel)(nil)

func (c *sessionChannel) DeclareExchange(name, kind string, durable, autoDelete, internal bool, args messaging.Table) error {
	return c.ch.ExchangeDeclare(name, kind, durable, autoDelete, internal, false, amqp.Table(args))
}

func (c *sessionChannel) DeclareQueue(name string, durable, exclusive, autoDelete bool, args messaging.Table) error {
	_, err := c.ch.QueueDeclare(name, durable, autoDelete, exclusive, false, amqp.Table(args))
	return err
}

func (c *sessionChannel) BindQueue(queue, exchange, routingKey string, args messaging.Table) error {
	return c.ch.QueueBind(queue, routingKey, exchange, false, amqp.Table(args))
}

func (c *sessionChannel) BindExchange(destination, source, routingKey string) error {
	return c.ch.ExchangeBind(destination, routingKey, source, false, nil)
}

func (c *sessionChannel) DeleteQueue(name string) error {
	_, err := c.ch.QueueDelete(name, false, false, false)
	return err
}

func (c *sessionChannel) Ack(tag uint64, multiple bool) error {
	return c.ch.Ack(tag, multiple)
}

func (c *sessionChannel) Nack(tag uint64, multiple, requeue bool) error {
	return c.ch.Nack(tag, multiple, requeue)
}

func (c *sessionChannel) Recover(requeue bool) error {
	return c.ch.Recover(requeue)
}

func (c *sessionChannel) TxCommit() error {
	return c.ch.TxCommit()
}

func (c *sessionChannel) TxRollback() error {
	return c.ch.TxRollback()
}

func (c *sessionChannel) Get(queue string, autoAck bool) (messaging.Delivery, bool, error) {
	msg, ok, err := c.ch.Get(queue, autoAck)
	if err != nil || !ok {
		return messaging.Delivery{}, false, err
	}
	return messaging.Delivery{
		Tag:        msg.DeliveryTag,
		Exchange:   msg.Exchange,
		RoutingKey: msg.RoutingKey,
		Headers:    messaging.Table(msg.Headers),
		Body:       msg.Body,
	}, true, nil
}

// Close closes the channel. A channel that is already gone reports
// messaging.ErrChannelShutdown so callers can treat it as success.
func (c *sessionChannel) Close() error {
	err := c.ch.Close()
	if err == nil {
		return nil
	}
	if errors.Is(err, amqp.ErrClosed) {
		return messaging.ErrChannelShutdown
	}
	var amqpErr *amqp.Error
	if errors.As(err, &amqpErr) && amqpErr.Code == amqp.ChannelError {
		return messaging.ErrChannelShutdown
	}
	return err
}

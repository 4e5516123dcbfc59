// Package messaging implements a JMS-style session layer on top of a raw
// AMQP 0-9-1 control channel.
//
// The broker has no native message selectors, no per-message client
// acknowledgment groups, and no durable topic subscriptions; this package
// emulates all three:
//
//   - Session: owns one control channel, normalizes the acknowledgment mode,
//     and exposes queue and topic operations on a single type
//   - Acknowledgment tracking: an ordered set of outstanding delivery tags
//     supporting group (cumulative) and individual acknowledgment
//   - Commit gate: serializes commit/rollback against ack/nack traffic so
//     the control channel never sees conflicting concurrent operations
//   - Topology declaration: idempotent declare/bind of the exchanges and
//     queues backing each logical destination
//   - Selector binding: compiles filter expressions and routes them through
//     a per-session selector-capable exchange
//   - Durable subscriptions: a connection-owned name registry shared across
//     sessions
//   - Queue browsing: non-destructive enumeration on dedicated channels
//
// Transport, payload encoding, and the delivery dispatch loop live outside
// this package, behind the Channel and ChannelProvider interfaces.
package messaging

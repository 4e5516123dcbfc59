package messaging

import (
	"fmt"
	"sync"
)

// fakeChannel records every protocol operation in order so tests can assert
// call sequences, and injects failures per operation name.
type fakeChannel struct {
	mu     sync.Mutex
	calls  []string
	args   map[int][]interface{}
	failOn map[string]error

	deliveries []Delivery // consumed by Get
	closeErr   error
	closeCount int
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		args:   make(map[int][]interface{}),
		failOn: make(map[string]error),
	}
}

func (f *fakeChannel) record(op string, args ...interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.args[len(f.calls)] = args
	f.calls = append(f.calls, op)
	return f.failOn[op]
}

func (f *fakeChannel) ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeChannel) opsNamed(op string) [][]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out [][]interface{}
	for i, call := range f.calls {
		if call == op {
			out = append(out, f.args[i])
		}
	}
	return out
}

func (f *fakeChannel) countOp(op string) int {
	return len(f.opsNamed(op))
}

func (f *fakeChannel) DeclareExchange(name, kind string, durable, autoDelete, internal bool, args Table) error {
	return f.record("exchangeDeclare", name, kind, durable, autoDelete, internal, args)
}

func (f *fakeChannel) DeclareQueue(name string, durable, exclusive, autoDelete bool, args Table) error {
	return f.record("queueDeclare", name, durable, exclusive, autoDelete, args)
}

func (f *fakeChannel) BindQueue(queue, exchange, routingKey string, args Table) error {
	return f.record("queueBind", queue, exchange, routingKey, args)
}

func (f *fakeChannel) BindExchange(destination, source, routingKey string) error {
	return f.record("exchangeBind", destination, source, routingKey)
}

func (f *fakeChannel) DeleteQueue(name string) error {
	return f.record("queueDelete", name)
}

func (f *fakeChannel) Ack(tag uint64, multiple bool) error {
	return f.record("ack", tag, multiple)
}

func (f *fakeChannel) Nack(tag uint64, multiple, requeue bool) error {
	return f.record("nack", tag, multiple, requeue)
}

func (f *fakeChannel) Recover(requeue bool) error {
	return f.record("recover", requeue)
}

func (f *fakeChannel) TxCommit() error {
	return f.record("txCommit")
}

func (f *fakeChannel) TxRollback() error {
	return f.record("txRollback")
}

func (f *fakeChannel) Get(queue string, autoAck bool) (Delivery, bool, error) {
	if err := f.record("get", queue, autoAck); err != nil {
		return Delivery{}, false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.deliveries) == 0 {
		return Delivery{}, false, nil
	}
	d := f.deliveries[0]
	f.deliveries = f.deliveries[1:]
	return d, true, nil
}

func (f *fakeChannel) Close() error {
	f.record("close")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCount++
	return f.closeErr
}

// fakeProvider hands out fake channels and remembers them in creation
// order: the control channel first, browsing channels after.
type fakeProvider struct {
	mu         sync.Mutex
	channels   []*fakeChannel
	transacted []bool
	createErr  error
}

func (p *fakeProvider) CreateChannel(transacted bool) (Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.createErr != nil {
		return nil, p.createErr
	}
	ch := newFakeChannel()
	p.channels = append(p.channels, ch)
	p.transacted = append(p.transacted, transacted)
	return ch, nil
}

func (p *fakeProvider) channel(i int) *fakeChannel {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i >= len(p.channels) {
		panic(fmt.Sprintf("fakeProvider: no channel %d", i))
	}
	return p.channels[i]
}

func (p *fakeProvider) created() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.channels)
}

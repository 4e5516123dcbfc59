package messaging

import "sync/atomic"

// Producer publishes to a destination. Publish-property construction and the
// actual send path belong to the publishing collaborator; the session owns
// only the producer's lifecycle and destination binding.
//
// The destination may be nil for an unidentified producer: the target is
// then supplied per send.
type Producer struct {
	session *Session
	dest    *Destination

	// preferProducerProperty controls whether producer-level delivery mode,
	// priority, and TTL override per-message properties.
	preferProducerProperty bool

	closed atomic.Bool
}

// Destination returns the producer's fixed destination, or nil.
func (p *Producer) Destination() *Destination { return p.dest }

// PrefersProducerProperty reports whether producer properties take
// precedence over message properties.
func (p *Producer) PrefersProducerProperty() bool { return p.preferProducerProperty }

// IsClosed reports whether the producer has been closed.
func (p *Producer) IsClosed() bool { return p.closed.Load() }

// Close removes the producer from its session. Closing twice is a no-op.
func (p *Producer) Close() error {
	p.session.removeProducer(p)
	return nil
}

func (p *Producer) internalClose() {
	p.closed.Store(true)
}

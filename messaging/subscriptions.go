package messaging

import "sync"

// SubscriptionRegistry maps durable subscription names to their consumers.
// It is owned by the connection and shared by reference with every session
// the connection creates, so a durable subscription outlives any single
// session. All access goes through the registry's own lock; sessions must
// not cache the map contents.
type SubscriptionRegistry struct {
	mu   sync.Mutex
	subs map[string]*Consumer
}

// NewSubscriptionRegistry returns an empty registry.
func NewSubscriptionRegistry() *SubscriptionRegistry {
	return &SubscriptionRegistry{subs: make(map[string]*Consumer)}
}

// Get returns the consumer registered under name, or nil.
func (r *SubscriptionRegistry) Get(name string) *Consumer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.subs[name]
}

// Put registers a consumer under name, replacing any previous entry.
func (r *SubscriptionRegistry) Put(name string, c *Consumer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[name] = c
}

// Remove deletes the entry for name and returns it, or nil if absent.
func (r *SubscriptionRegistry) Remove(name string) *Consumer {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.subs[name]
	delete(r.subs, name)
	return c
}

// Len returns the number of registered subscriptions.
func (r *SubscriptionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

package messaging

import (
	"sort"
	"sync"
)

// ackTracker holds the delivery tags of every message received on the
// session's channel that has not yet been acknowledged. Tags arrive in
// non-decreasing order; group acknowledgment removes a prefix of the set,
// individual acknowledgment removes exactly one tag.
//
// The raw ordered set is never exposed. The broker call is injected as a
// closure and runs while the tracker lock is held, so a concurrent Record
// can never interleave with tag removal. If the closure fails the selected
// tags stay tracked, keeping local state consistent for a retry.
type ackTracker struct {
	mu   sync.Mutex
	tags []uint64 // sorted ascending
}

// Record inserts a delivered-but-unacknowledged tag.
func (t *ackTracker) Record(tag uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := len(t.tags)
	if n == 0 || t.tags[n-1] < tag {
		t.tags = append(t.tags, tag)
		return
	}
	// Out-of-order or duplicate delivery; keep the set sorted and unique.
	i := sort.Search(n, func(i int) bool { return t.tags[i] >= tag })
	if i < n && t.tags[i] == tag {
		return
	}
	t.tags = append(t.tags, 0)
	copy(t.tags[i+1:], t.tags[i:])
	t.tags[i] = tag
}

// AckIndividual acknowledges exactly one tag. An untracked tag (never
// delivered, or already acknowledged) is a no-op, not an error. The tag is
// removed only after send succeeds.
func (t *ackTracker) AckIndividual(tag uint64, send func(tag uint64) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	i := sort.Search(len(t.tags), func(i int) bool { return t.tags[i] >= tag })
	if i == len(t.tags) || t.tags[i] != tag {
		return nil
	}
	if err := send(tag); err != nil {
		return err
	}
	t.tags = append(t.tags[:i], t.tags[i+1:]...)
	return nil
}

// AckGroup acknowledges every tracked tag up to and including tag. If no
// tracked tag is at or below the given one this is a no-op. send receives
// the highest tag in the prefix for a cumulative broker acknowledgment; the
// prefix is removed only after send succeeds.
func (t *ackTracker) AckGroup(tag uint64, send func(upTo uint64) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := sort.Search(len(t.tags), func(i int) bool { return t.tags[i] > tag })
	if n == 0 {
		return nil
	}
	if err := send(t.tags[n-1]); err != nil {
		return err
	}
	t.tags = t.tags[n:]
	return nil
}

// Recover runs the requeue-all closure if any tags are outstanding and
// clears the set once it succeeds.
func (t *ackTracker) Recover(send func() error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.tags) == 0 {
		return nil
	}
	if err := send(); err != nil {
		return err
	}
	t.tags = t.tags[:0]
	return nil
}

// Len returns the number of outstanding tags.
func (t *ackTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tags)
}

package messaging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubscriptionRegistry(t *testing.T) {
	r := NewSubscriptionRegistry()
	assert.Nil(t, r.Get("billing"))
	assert.Equal(t, 0, r.Len())

	c := &Consumer{tag: "billing"}
	r.Put("billing", c)
	assert.Same(t, c, r.Get("billing"))
	assert.Equal(t, 1, r.Len())

	// Put replaces an existing entry.
	c2 := &Consumer{tag: "billing"}
	r.Put("billing", c2)
	assert.Same(t, c2, r.Get("billing"))
	assert.Equal(t, 1, r.Len())

	assert.Same(t, c2, r.Remove("billing"))
	assert.Nil(t, r.Get("billing"))
	assert.Nil(t, r.Remove("billing"))
	assert.Equal(t, 0, r.Len())
}

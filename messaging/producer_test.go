package messaging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProducerLifecycle(t *testing.T) {
	s, _ := newTestSession(t)

	queue, err := s.CreateQueue("orders")
	require.NoError(t, err)

	p, err := s.CreateProducer(queue)
	require.NoError(t, err)
	assert.Same(t, queue, p.Destination())
	assert.True(t, p.PrefersProducerProperty())

	require.NoError(t, p.Close())
	assert.True(t, p.IsClosed())
	require.NoError(t, p.Close())
}

func TestProducerUnidentified(t *testing.T) {
	s, _ := newTestSession(t)

	p, err := s.CreateProducer(nil)
	require.NoError(t, err)
	assert.Nil(t, p.Destination())
}

func TestProducerPropertyPreference(t *testing.T) {
	s, _ := newTestSession(t, WithPreferProducerProperty(false))

	p, err := s.CreateProducer(nil)
	require.NoError(t, err)
	assert.False(t, p.PrefersProducerProperty())
}

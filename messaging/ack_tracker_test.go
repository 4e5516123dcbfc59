package messaging

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAckTrackerGroupAcksPrefix(t *testing.T) {
	tr := &ackTracker{}
	for _, tag := range []uint64{1, 2, 3, 4, 5} {
		tr.Record(tag)
	}

	var sent []uint64
	err := tr.AckGroup(3, func(upTo uint64) error {
		sent = append(sent, upTo)
		return nil
	})
	require.NoError(t, err)

	// One cumulative broker call for the whole prefix.
	assert.Equal(t, []uint64{3}, sent)
	assert.Equal(t, 2, tr.Len())

	// The remainder is still acknowledgeable.
	err = tr.AckGroup(5, func(upTo uint64) error {
		sent = append(sent, upTo)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []uint64{3, 5}, sent)
	assert.Equal(t, 0, tr.Len())
}

func TestAckTrackerGroupBelowLowestIsNoop(t *testing.T) {
	tr := &ackTracker{}
	tr.Record(10)
	tr.Record(11)

	called := false
	err := tr.AckGroup(5, func(uint64) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, 2, tr.Len())
}

func TestAckTrackerGroupKeepsTagsOnSendFailure(t *testing.T) {
	tr := &ackTracker{}
	tr.Record(1)
	tr.Record(2)

	boom := errors.New("channel gone")
	err := tr.AckGroup(2, func(uint64) error { return boom })
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 2, tr.Len())

	// A retry after the failure still sees both tags.
	var upTo uint64
	require.NoError(t, tr.AckGroup(2, func(u uint64) error {
		upTo = u
		return nil
	}))
	assert.Equal(t, uint64(2), upTo)
	assert.Equal(t, 0, tr.Len())
}

func TestAckTrackerIndividual(t *testing.T) {
	tr := &ackTracker{}
	for _, tag := range []uint64{1, 2, 3} {
		tr.Record(tag)
	}

	var sent []uint64
	send := func(tag uint64) error {
		sent = append(sent, tag)
		return nil
	}

	require.NoError(t, tr.AckIndividual(2, send))
	assert.Equal(t, []uint64{2}, sent)
	assert.Equal(t, 2, tr.Len())

	// Acknowledging the same tag again is a no-op, not an error.
	require.NoError(t, tr.AckIndividual(2, send))
	assert.Equal(t, []uint64{2}, sent)

	// An untracked tag is likewise a no-op.
	require.NoError(t, tr.AckIndividual(99, send))
	assert.Equal(t, []uint64{2}, sent)
	assert.Equal(t, 2, tr.Len())
}

func TestAckTrackerIndividualKeepsTagOnSendFailure(t *testing.T) {
	tr := &ackTracker{}
	tr.Record(7)

	boom := errors.New("channel gone")
	err := tr.AckIndividual(7, func(uint64) error { return boom })
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, tr.Len())
}

func TestAckTrackerRecordOutOfOrderAndDuplicate(t *testing.T) {
	tr := &ackTracker{}
	tr.Record(5)
	tr.Record(2)
	tr.Record(5)
	tr.Record(3)
	assert.Equal(t, 3, tr.Len())

	// Group ack at 4 must remove exactly {2, 3}.
	var upTo uint64
	require.NoError(t, tr.AckGroup(4, func(u uint64) error {
		upTo = u
		return nil
	}))
	assert.Equal(t, uint64(3), upTo)
	assert.Equal(t, 1, tr.Len())
}

func TestAckTrackerRecover(t *testing.T) {
	tr := &ackTracker{}

	// Nothing outstanding: the closure must not run.
	called := false
	require.NoError(t, tr.Recover(func() error {
		called = true
		return nil
	}))
	assert.False(t, called)

	tr.Record(1)
	tr.Record(2)

	boom := errors.New("channel gone")
	err := tr.Recover(func() error { return boom })
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 2, tr.Len())

	require.NoError(t, tr.Recover(func() error { return nil }))
	assert.Equal(t, 0, tr.Len())
}

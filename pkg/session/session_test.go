package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSession_OutOfOrderSubmission matches spec scenario 1: callbacks
// registered at sequences 3 and 2 (in that order) only run once the
// request sequence catches up to them, and running one can cascade into
// the next.
func TestSession_OutOfOrderSubmission(t *testing.T) {
	s := New(1, 0)

	var ran []uint64
	s.RegisterRequest(3, func() { ran = append(ran, 3) })
	s.RegisterRequest(2, func() {
		ran = append(ran, 2)
		s.SetRequestSequence(3)
	})

	s.SetRequestSequence(1)
	assert.Empty(t, ran)

	s.SetRequestSequence(2)
	assert.Equal(t, []uint64{2, 3}, ran)
}

// TestSession_QueryGatingBySequence matches spec scenario 2.
func TestSession_QueryGatingBySequence(t *testing.T) {
	s := New(1, 0)

	var ran int
	s.RegisterSequenceQuery(5, func() { ran++ })

	s.SetCommandSequence(3)
	assert.Equal(t, 0, ran)

	s.SetCommandSequence(5)
	assert.Equal(t, 1, ran)

	s.SetCommandSequence(6)
	assert.Equal(t, 1, ran)
}

// TestSession_QueryGatingByIndex matches spec scenario 3: a session created
// with id=10 starts with lastApplied=9.
func TestSession_QueryGatingByIndex(t *testing.T) {
	s := New(10, 0)
	require.EqualValues(t, 9, s.LastApplied())

	var ran int
	s.RegisterIndexQuery(12, func() { ran++ })

	s.SetLastApplied(11)
	assert.Equal(t, 0, ran)

	s.SetLastApplied(13)
	assert.Equal(t, 1, ran)
}

// TestSession_ResponseCacheGC matches spec scenario 4.
func TestSession_ResponseCacheGC(t *testing.T) {
	s := New(1, 0)
	s.RegisterResponse(1, "a", nil)
	s.RegisterResponse(2, "b", nil)
	s.RegisterResponse(3, "c", nil)

	s.ClearResponses(2)

	_, ok := s.Response(1)
	assert.False(t, ok)
	_, ok = s.Response(2)
	assert.False(t, ok)
	v, ok := s.Response(3)
	require.True(t, ok)
	assert.Equal(t, "c", v)
	assert.EqualValues(t, 2, s.CommandLowWaterMark())

	// A second clear at the same sequence is a no-op.
	s.ClearResponses(2)
	assert.EqualValues(t, 2, s.CommandLowWaterMark())
}

func TestSession_CommandSequenceMonotonic(t *testing.T) {
	s := New(1, 0)
	for _, v := range []uint64{1, 3, 3, 5, 9} {
		s.SetCommandSequence(v)
		assert.Equal(t, v, s.CommandSequence())
	}
}

func TestSession_SetCommandSequence_CatchesUpRequestSequenceViaCommands(t *testing.T) {
	s := New(1, 0)

	var ranAt uint64
	s.RegisterRequest(2, func() { ranAt = 2 })

	s.SetCommandSequence(4)
	assert.EqualValues(t, 4, s.RequestSequence())
	assert.EqualValues(t, 2, ranAt)
}

func TestSession_Lifecycle(t *testing.T) {
	s := New(1, 0)
	assert.True(t, s.IsClosed())

	s.Open()
	assert.True(t, s.IsOpen())

	var closedWith *Session
	s.OnClose(func(sess *Session) { closedWith = sess })
	s.Close()
	assert.True(t, s.IsClosed())
	require.NotNil(t, closedWith)
	assert.True(t, closedWith.Equal(s))
}

func TestSession_OnClose_AlreadyClosedInvokesImmediately(t *testing.T) {
	s := New(1, 0) // starts closed.

	var invoked bool
	s.OnClose(func(*Session) { invoked = true })
	assert.True(t, invoked)
}

func TestSession_Expire_CompletesQueuedEvents(t *testing.T) {
	s := New(1, 0)
	s.Open()

	ctx := &fakeContext{index: 5, consistency: ConsistencySequential}
	require.NoError(t, s.Publish(ctx, "evt", 1))
	done := s.Commit(ctx, 5)
	require.NotNil(t, done)

	s.Expire()

	select {
	case <-done:
	default:
		t.Fatal("expected expire to complete queued event futures")
	}
	assert.True(t, s.IsExpired())
	assert.True(t, s.IsClosed())
}

func TestSession_Equal(t *testing.T) {
	a := New(1, 0)
	b := New(1, 0)
	c := New(2, 0)
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

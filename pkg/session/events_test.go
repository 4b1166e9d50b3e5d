package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_Publish_RequiresCommandContext(t *testing.T) {
	s := New(1, 0)
	s.Open()

	ctx := &fakeContext{index: 1, consistency: ConsistencyNone}
	err := s.Publish(ctx, "evt", nil)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestSession_Publish_RequiresOpenSession(t *testing.T) {
	s := New(1, 0) // starts closed.
	ctx := &fakeContext{index: 1, consistency: ConsistencyLinearizable}
	err := s.Publish(ctx, "evt", nil)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSession_Publish_RequiresNonExpiredSession(t *testing.T) {
	s := New(1, 0)
	s.Open()
	s.Expire()

	ctx := &fakeContext{index: 1, consistency: ConsistencyLinearizable}
	err := s.Publish(ctx, "evt", nil)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestSession_Publish_DropsWhenAlreadyAcked(t *testing.T) {
	s := New(1, 0)
	s.Open()
	s.events.completeIndex = 10

	ctx := &fakeContext{index: 5, consistency: ConsistencySequential}
	require.NoError(t, s.Publish(ctx, "evt", nil))
	assert.Nil(t, s.events.current)
}

// TestSession_LinearizablePublish matches spec scenario 5's linearizable half:
// synchronous + LINEARIZABLE with no attached connection but a known
// address resolves a connection via the registry and sends on it.
func TestSession_LinearizablePublish(t *testing.T) {
	s := New(1, 0)
	s.Open()

	conn := newFakeConnection()
	conns := &fakeConnections{conn: conn}
	s.SetAddress(fakeAddress("peer-1"))

	ctx := &fakeContext{index: 20, consistency: ConsistencyLinearizable, synchronous: true, connections: conns}
	require.NoError(t, s.Publish(ctx, "evt", "payload"))
	done := s.Commit(ctx, 20)
	require.NotNil(t, done)

	require.Equal(t, 1, conns.gets)
	require.Len(t, conn.sent, 1)
	assert.EqualValues(t, 20, conn.sent[0].EventIndex)
}

// TestSession_SequentialPublish matches spec scenario 5's sequential half:
// with consistency SEQUENTIAL and no connection, the batch is enqueued but
// not sent; after SetConnection and ResendEvents, it is sent with
// previousIndex = max(batch.previousIndex, resend index).
func TestSession_SequentialPublish(t *testing.T) {
	s := New(1, 0)
	s.Open()

	ctx := &fakeContext{index: 20, consistency: ConsistencySequential}
	require.NoError(t, s.Publish(ctx, "evt", "payload"))
	done := s.Commit(ctx, 20)
	require.NotNil(t, done)

	conn := newFakeConnection()
	s.SetConnection(conn)
	assert.Empty(t, conn.sent, "nothing sent until resend is triggered")

	s.ResendEvents(19)
	require.Len(t, conn.sent, 1)
	assert.EqualValues(t, 20, conn.sent[0].EventIndex)
	assert.EqualValues(t, 19, conn.sent[0].PreviousIndex)
}

// TestSession_AckAndCompletion matches spec scenario 6.
func TestSession_AckAndCompletion(t *testing.T) {
	s := New(1, 0)
	s.Open()
	conn := newFakeConnection()
	conn.dropByDefault = true
	s.SetConnection(conn)

	ctx := &fakeContext{index: 5, consistency: ConsistencySequential}
	require.NoError(t, s.Publish(ctx, "e1", nil))
	require.NoError(t, s.Publish(ctx, "e2", nil))
	doneA := s.Commit(ctx, 5)
	require.NotNil(t, doneA)

	ctx7 := &fakeContext{index: 7, consistency: ConsistencySequential}
	require.NoError(t, s.Publish(ctx7, "e3", nil))
	require.NoError(t, s.Publish(ctx7, "e4", nil))
	doneB := s.Commit(ctx7, 7)
	require.NotNil(t, doneB)

	s.ClearEvents(6)
	select {
	case <-doneA:
	default:
		t.Fatal("batch A should be cleared")
	}
	assert.EqualValues(t, 6, s.CompleteIndex())
	select {
	case <-doneB:
		t.Fatal("batch B should not be cleared yet")
	default:
	}

	s.ClearEvents(7)
	select {
	case <-doneB:
	default:
		t.Fatal("batch B should be cleared")
	}
	assert.EqualValues(t, 7, s.CompleteIndex())
}

func TestSession_HandlePublish_DispatchesToListeners(t *testing.T) {
	s := New(1, 0)

	var got any
	s.OnEvent("ping", func(payload any) { got = payload })

	resp, err := s.HandlePublish(&PublishRequest{Events: []Event{{Name: "ping", Payload: "hi"}}})
	require.NoError(t, err)
	assert.Equal(t, StatusOK, resp.Status)
	assert.Equal(t, "hi", got)
}

func TestSession_CommitWithoutOpenBatchIsNoop(t *testing.T) {
	s := New(1, 0)
	s.Open()
	ctx := &fakeContext{index: 5, consistency: ConsistencySequential}
	assert.Nil(t, s.Commit(ctx, 5))
}

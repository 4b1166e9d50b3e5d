// Package session implements the server-side per-client session object of a
// Raft-replicated state machine: request sequencing, deferred query
// gating, response caching, and event delivery. Every exported method here
// is expected to be called from the single-threaded state machine executor
// (see pkg/statemachine) — the session's own state takes no lock; only the
// listener registry (listeners.go) has a mutex of its own.
package session

import (
	"errors"
	"fmt"
)

// Sentinel errors for the kinds named in the session's error handling design.
// Callers compare with errors.Is.
var (
	// ErrInvalidState is returned when publish is called outside of command
	// application. Publishing on a closed or expired session returns
	// ErrClosed or ErrExpired instead.
	ErrInvalidState = errors.New("session: invalid state")
	// ErrClosed is returned by operations that require an open session.
	ErrClosed = errors.New("session: closed")
	// ErrExpired is returned by operations that require a non-expired session.
	ErrExpired = errors.New("session: expired")
)

// Session is the correlation anchor between a client and the replicated
// state machine. One Session exists per registered client, and identical
// state is derived on every replica by replaying the same log entries
// against the same sequence of calls below.
type Session struct {
	id      uint64
	timeout int64 // nanoseconds.

	timestamp int64 // monotonic high-water-mark of observed log timestamps.

	connectIndex   uint64
	keepAliveIndex uint64

	requestSequence uint64
	commandSequence uint64
	lastApplied     uint64

	commandLowWaterMark uint64

	closed        bool
	suspect       bool
	unregistering bool
	expired       bool

	commands        map[uint64]func()
	sequenceQueries map[uint64][]func()
	indexQueries    map[uint64][]func()
	queryListPool   [][]func()

	responses map[uint64]any
	futures   map[uint64]chan struct{}

	events *eventPipeline

	listeners *listenerRegistry
}

// New creates a session rooted at the given registration log index: id
// doubles as the log index of the register-client entry that created it,
// so lastApplied starts at id-1.
func New(id uint64, timeoutNanos int64) *Session {
	s := &Session{
		id:          id,
		timeout:     timeoutNanos,
		lastApplied: id - 1,
		closed:      true,

		commands:        make(map[uint64]func()),
		sequenceQueries: make(map[uint64][]func()),
		indexQueries:    make(map[uint64][]func()),

		responses: make(map[uint64]any),
		futures:   make(map[uint64]chan struct{}),

		listeners: newListenerRegistry(),
	}
	s.events = newEventPipeline(s)
	return s
}

// ID returns the globally unique session identifier.
func (s *Session) ID() uint64 { return s.id }

// Timeout returns the session's inactivity budget.
func (s *Session) Timeout() int64 { return s.timeout }

// Timestamp returns the monotonic high-water-mark of the latest log
// timestamp observed for this session.
func (s *Session) Timestamp() int64 { return s.timestamp }

// SetTimestamp advances the session's timestamp high-water-mark. It never retreats.
func (s *Session) SetTimestamp(ts int64) *Session {
	if ts > s.timestamp {
		s.timestamp = ts
	}
	return s
}

// ConnectIndex returns the log index of the most recent connect entry.
func (s *Session) ConnectIndex() uint64 { return s.connectIndex }

// SetConnectIndex records the log index of a connect entry.
func (s *Session) SetConnectIndex(index uint64) *Session {
	s.connectIndex = index
	return s
}

// KeepAliveIndex returns the log index of the most recent keep-alive entry.
func (s *Session) KeepAliveIndex() uint64 { return s.keepAliveIndex }

// SetKeepAliveIndex records the log index of a keep-alive entry.
func (s *Session) SetKeepAliveIndex(index uint64) *Session {
	s.keepAliveIndex = index
	return s
}

// RequestSequence returns the highest request number accepted for submission.
func (s *Session) RequestSequence() uint64 { return s.requestSequence }

// NextRequestSequence returns the next expected request sequence number.
func (s *Session) NextRequestSequence() uint64 { return s.requestSequence + 1 }

// CommandSequence returns the highest request number whose command has been
// applied to the state machine.
func (s *Session) CommandSequence() uint64 { return s.commandSequence }

// NextCommandSequence returns the next command sequence number.
func (s *Session) NextCommandSequence() uint64 { return s.commandSequence + 1 }

// LastApplied returns the highest log index applied for this session.
func (s *Session) LastApplied() uint64 { return s.lastApplied }

// IsOpen reports whether the session is open.
func (s *Session) IsOpen() bool { return !s.closed }

// IsClosed reports whether the session is closed.
func (s *Session) IsClosed() bool { return s.closed }

// IsExpired reports whether the session expired.
func (s *Session) IsExpired() bool { return s.expired }

// IsSuspect reports the advisory suspect flag toggled by a failure detector.
func (s *Session) IsSuspect() bool { return s.suspect }

// IsUnregistering reports whether the session has latched the
// "unregistering" flag distinguishing graceful close from expiration.
func (s *Session) IsUnregistering() bool { return s.unregistering }

// Equal reports whether two sessions share the same identity. Two sessions
// are equal iff they have the same ID.
func (s *Session) Equal(other *Session) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.id == other.id
}

func (s *Session) String() string {
	return fmt.Sprintf("Session[id=%d]", s.id)
}

// RegisterRequest parks a submission callback under the given sequence
// number, to be run once the request sequence reaches it. Submissions must
// be run in strictly increasing sequence order with no gaps; this method
// only stores the continuation, it does not itself advance the sequence.
func (s *Session) RegisterRequest(sequence uint64, fn func()) {
	s.commands[sequence] = fn
}

// SetRequestSequence raises the request sequence to sequence if it is
// greater than the current value, then releases at most the one callback
// parked at the new next-expected sequence. The drain is intentionally
// one-step: running that callback is expected to itself advance the
// request sequence (or register a later callback), which keeps the chain
// tail-recursive without a re-entrant multi-step drain.
func (s *Session) SetRequestSequence(sequence uint64) *Session {
	if sequence > s.requestSequence {
		s.requestSequence = sequence
		next := s.NextRequestSequence()
		if fn, ok := s.commands[next]; ok {
			delete(s.commands, next)
			fn()
		}
	}
	return s
}

// SetCommandSequence advances the command sequence through sequence,
// draining sequence-gated queries one step at a time, then catches the
// request sequence up to sequence if it has fallen behind (the case where a
// follower is replaying committed entries and is later elected leader).
func (s *Session) SetCommandSequence(sequence uint64) *Session {
	for i := s.commandSequence + 1; i <= sequence; i++ {
		s.commandSequence = i
		s.drainSequenceQueries(s.commandSequence)
	}

	if sequence > s.requestSequence {
		if len(s.commands) > 0 {
			for i := s.requestSequence + 1; i <= sequence; i++ {
				s.requestSequence = i
				if fn, ok := s.commands[i]; ok {
					delete(s.commands, i)
					fn()
				}
			}
		} else {
			s.requestSequence = sequence
		}
	}
	return s
}

// SetLastApplied advances the last-applied index through index, draining
// index-gated queries one step at a time.
func (s *Session) SetLastApplied(index uint64) *Session {
	for i := s.lastApplied + 1; i <= index; i++ {
		s.lastApplied = i
		s.drainIndexQueries(s.lastApplied)
	}
	return s
}

// RegisterSequenceQuery registers a causal query to run once the command
// sequence reaches sequence. If sequence has already passed, the caller is
// responsible for rejecting the registration instead (see tie-break in the design notes).
func (s *Session) RegisterSequenceQuery(sequence uint64, query func()) {
	list := s.sequenceQueries[sequence]
	if list == nil {
		list = s.borrowQueryList()
	}
	s.sequenceQueries[sequence] = append(list, query)
}

// RegisterIndexQuery registers a query to run once the last-applied index
// reaches index.
func (s *Session) RegisterIndexQuery(index uint64, query func()) {
	list := s.indexQueries[index]
	if list == nil {
		list = s.borrowQueryList()
	}
	s.indexQueries[index] = append(list, query)
}

func (s *Session) drainSequenceQueries(sequence uint64) {
	queries, ok := s.sequenceQueries[sequence]
	if !ok {
		return
	}
	delete(s.sequenceQueries, sequence)
	for _, q := range queries {
		q()
	}
	s.returnQueryList(queries)
}

func (s *Session) drainIndexQueries(index uint64) {
	queries, ok := s.indexQueries[index]
	if !ok {
		return
	}
	delete(s.indexQueries, index)
	for _, q := range queries {
		q()
	}
	s.returnQueryList(queries)
}

// borrowQueryList recycles a previously drained query list, falling back to
// a freshly allocated one. This is an allocation optimization; a plain
// per-key allocation would be just as correct.
func (s *Session) borrowQueryList() []func() {
	n := len(s.queryListPool)
	if n == 0 {
		return make([]func(), 0, 8)
	}
	list := s.queryListPool[n-1]
	s.queryListPool = s.queryListPool[:n-1]
	return list[:0]
}

func (s *Session) returnQueryList(list []func()) {
	s.queryListPool = append(s.queryListPool, list[:0])
}

// RegisterResponse caches a command's result under sequence so retried
// submissions return the same answer instead of re-executing. completion,
// if non-nil, is closed by the caller (not by the session) once the
// submitter's future should resolve.
func (s *Session) RegisterResponse(sequence uint64, result any, completion chan struct{}) {
	s.responses[sequence] = result
	if completion != nil {
		s.futures[sequence] = completion
	}
}

// Response returns the cached result for sequence, if any.
func (s *Session) Response(sequence uint64) (any, bool) {
	v, ok := s.responses[sequence]
	return v, ok
}

// ResponseFuture returns the completion channel registered for sequence, if any.
func (s *Session) ResponseFuture(sequence uint64) (chan struct{}, bool) {
	f, ok := s.futures[sequence]
	return f, ok
}

// ClearResponses discards cached responses and futures for every sequence
// in (commandLowWaterMark, sequence] and raises the low-water-mark to
// sequence. It never retreats: calling it with the same or a lower value is
// a no-op.
func (s *Session) ClearResponses(sequence uint64) *Session {
	if sequence <= s.commandLowWaterMark {
		return s
	}
	for i := s.commandLowWaterMark + 1; i <= sequence; i++ {
		delete(s.responses, i)
		delete(s.futures, i)
	}
	s.commandLowWaterMark = sequence
	return s
}

// CommandLowWaterMark returns the highest sequence whose response has been discarded.
func (s *Session) CommandLowWaterMark() uint64 { return s.commandLowWaterMark }

// Open transitions the session out of its initial closed state. It does not
// notify any listeners.
func (s *Session) Open() *Session {
	s.closed = false
	return s
}

// Close transitions the session to closed and notifies close listeners.
func (s *Session) Close() *Session {
	s.closed = true
	s.listeners.notifyClose(s)
	return s
}

// Expire transitions the session to closed and expired, resolves every
// queued event batch's completion successfully so waiters unblock (they
// will separately observe the expiry through a close listener), and
// notifies close listeners.
func (s *Session) Expire() *Session {
	s.closed = true
	s.expired = true
	s.events.completeAll()
	s.listeners.notifyClose(s)
	return s
}

// Suspect toggles the advisory suspect flag on.
func (s *Session) Suspect() *Session {
	s.suspect = true
	return s
}

// Trust toggles the advisory suspect flag off.
func (s *Session) Trust() *Session {
	s.suspect = false
	return s
}

// Unregister latches the unregistering flag.
func (s *Session) Unregister() *Session {
	s.unregistering = true
	return s
}

// OnOpen registers a session-open listener. Open() does not notify open
// listeners, and no other Session method invokes them either; unlike
// OnClose, there is also no "already open" catch-up call.
func (s *Session) OnOpen(listener func(*Session)) Listener {
	return s.listeners.addOpen(listener)
}

// OnClose registers a listener invoked when the session closes or expires.
// If the session is already closed, the listener is invoked immediately.
func (s *Session) OnClose(listener func(*Session)) Listener {
	l := s.listeners.addClose(listener)
	if s.closed {
		listener(s)
	}
	return l
}

// OnEvent registers a listener for inbound events of the given name (see
// HandlePublish). Returns a Listener that can be used to unregister it.
func (s *Session) OnEvent(name string, listener func(payload any)) Listener {
	return s.listeners.addEvent(name, listener)
}

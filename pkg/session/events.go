package session

import "github.com/eapache/queue"

// Context is the narrow view of the state machine executor a session needs
// while a command or query is being applied: the current log index, the
// consistency level of the operation in progress (or ConsistencyNone
// outside a command), whether the calling goroutine is the leader's
// synchronous apply path, and a way to look up connections by address.
// This mirrors the ServerStateMachineContext collaborator referenced (but
// not owned) by the original server session.
type Context interface {
	Index() uint64
	Consistency() Consistency
	Synchronous() bool
	Connections() Connections
}

// Consistency is the consistency level of the command or query currently
// being applied.
type Consistency int

const (
	// ConsistencyNone means no command is currently being applied.
	ConsistencyNone Consistency = iota
	// ConsistencySequential events may lag the reply and ride the existing connection.
	ConsistencySequential
	// ConsistencyLinearizable events must be delivered before the command's reply.
	ConsistencyLinearizable
)

// Connection is the transport channel a session uses to push events to its
// client. It is referenced, not owned: the session never controls its
// lifecycle.
type Connection interface {
	// Send delivers req and returns the peer's response, or an error if the
	// send could not complete (including because the connection dropped).
	Send(req *PublishRequest) (*PublishResponse, error)
	// Handler installs fn as the handler for inbound requests of the given kind.
	Handler(kind string, fn func(*PublishRequest) (*PublishResponse, error))
}

// Address is an opaque peer identity usable as a connection-registry key.
type Address interface {
	String() string
}

// Connections resolves a peer address to a connection, establishing one if
// necessary.
type Connections interface {
	GetConnection(addr Address) (Connection, error)
}

// Event is a single (name, payload) pair produced by a command.
type Event struct {
	Name    string
	Payload any
}

// PublishRequest is the wire shape of a batch of events sent to a client.
type PublishRequest struct {
	Session       uint64
	EventIndex    uint64
	PreviousIndex uint64
	Events        []Event
}

// Status is the outcome reported by a client in a PublishResponse.
type Status int

const (
	StatusOK Status = iota
	StatusError
)

// PublishResponse is the wire shape of a client's acknowledgement of a
// PublishRequest.
type PublishResponse struct {
	Status Status
	Index  uint64
	Error  error
}

// eventHolder is a single accumulating or in-flight batch of events produced
// while applying one log entry.
type eventHolder struct {
	eventIndex    uint64
	previousIndex uint64
	events        []Event
	completion    chan struct{}
}

func newEventHolder(eventIndex, previousIndex uint64) *eventHolder {
	return &eventHolder{
		eventIndex:    eventIndex,
		previousIndex: previousIndex,
		completion:    make(chan struct{}),
	}
}

func (h *eventHolder) complete() {
	select {
	case <-h.completion:
		// already completed.
	default:
		close(h.completion)
	}
}

// eventPipeline owns the accumulate → commit → send → ack/resend state
// machine for one session's server-originated events.
type eventPipeline struct {
	session *Session

	connection Connection
	address    Address

	eventIndex    uint64
	completeIndex uint64

	current *eventHolder
	queued  *queue.Queue // of *eventHolder, oldest first.
}

func newEventPipeline(s *Session) *eventPipeline {
	return &eventPipeline{
		session: s,
		queued:  queue.New(),
	}
}

// SetConnection installs the transport channel and registers this
// session's inbound publish handler on it.
func (s *Session) SetConnection(conn Connection) *Session {
	s.events.connection = conn
	if conn != nil {
		conn.Handler("publish", s.HandlePublish)
	}
	return s
}

// SetAddress records the last-known peer address, used as a fallback for
// linearizable sends when no connection is currently attached.
func (s *Session) SetAddress(addr Address) *Session {
	s.events.address = addr
	return s
}

// Publish accumulates an event into the batch open for ctx.Index(). It
// requires an open, non-expired session (ErrClosed/ErrExpired otherwise)
// and may only be called while a command is being applied
// (ctx.Consistency() != ConsistencyNone); calling it outside of command
// application fails with ErrInvalidState.
func (s *Session) Publish(ctx Context, name string, payload any) error {
	if s.expired {
		return ErrExpired
	}
	if s.closed {
		return ErrClosed
	}
	if ctx.Consistency() == ConsistencyNone {
		return ErrInvalidState
	}

	index := ctx.Index()
	ep := s.events

	// The client has already acked an index beyond this one via another
	// replica's delivery; this event can never be observed, drop it.
	if ep.completeIndex > index {
		return nil
	}

	if ep.current == nil || ep.current.eventIndex != index {
		previous := ep.eventIndex
		ep.eventIndex = index
		ep.current = newEventHolder(index, previous)
	}

	ep.current.events = append(ep.current.events, Event{Name: name, Payload: payload})
	return nil
}

// Commit finalizes the batch open for index, if any, enqueuing it for
// delivery and initiating a send. It returns the batch's completion
// channel so the caller can await delivery when required (linearizable
// commands await it before replying); it returns nil if no batch was open
// for index.
func (s *Session) Commit(ctx Context, index uint64) chan struct{} {
	ep := s.events
	if ep.current == nil || ep.current.eventIndex != index {
		return nil
	}

	holder := ep.current
	ep.current = nil
	ep.queued.Add(holder)
	s.sendEvent(ctx, holder)
	return holder.completion
}

func (s *Session) sendEvent(ctx Context, h *eventHolder) {
	linearizable := ctx.Synchronous() && ctx.Consistency() == ConsistencyLinearizable
	if linearizable {
		s.sendLinearizableEvent(ctx, h)
	} else if ctx.Consistency() != ConsistencyLinearizable {
		s.sendSequentialEvent(h)
	}
}

func (s *Session) sendLinearizableEvent(ctx Context, h *eventHolder) {
	ep := s.events
	if ep.connection != nil {
		s.sendOn(ep.connection, h)
		return
	}
	if ep.address == nil {
		return
	}
	conns := ctx.Connections()
	if conns == nil {
		return
	}
	conn, err := conns.GetConnection(ep.address)
	if err != nil || conn == nil {
		return
	}
	s.sendOn(conn, h)
}

func (s *Session) sendSequentialEvent(h *eventHolder) {
	ep := s.events
	if ep.connection == nil {
		return
	}
	s.sendOn(ep.connection, h)
}

func (s *Session) sendOn(conn Connection, h *eventHolder) {
	ep := s.events
	previous := h.previousIndex
	if ep.completeIndex > previous {
		previous = ep.completeIndex
	}
	req := &PublishRequest{
		Session:       s.id,
		EventIndex:    h.eventIndex,
		PreviousIndex: previous,
		Events:        h.events,
	}

	resp, err := conn.Send(req)
	if err != nil {
		// Transport error: the batch stays queued, a reconnect will trigger resendEvents.
		return
	}
	if !s.IsOpen() {
		return
	}
	switch resp.Status {
	case StatusOK:
		s.ClearEvents(resp.Index)
	default:
		if resp.Error == nil {
			s.ResendEvents(resp.Index)
		}
		// else: peer-reported error with no recoverable index; leave queued.
	}
}

// ClearEvents pops every batch with eventIndex <= index, signals each
// batch's completion, and raises completeIndex to index.
func (s *Session) ClearEvents(index uint64) *Session {
	ep := s.events
	if index <= ep.completeIndex {
		return s
	}
	for ep.queued.Length() > 0 {
		h := ep.queued.Peek().(*eventHolder)
		if h.eventIndex > index {
			break
		}
		ep.queued.Remove()
		ep.completeIndex = h.eventIndex
		h.complete()
	}
	ep.completeIndex = index
	return s
}

// ResendEvents advances completeIndex via ClearEvents(index) then re-sends
// every remaining queued batch sequentially, used when a client nacks with
// a known last-seen index or reconnects.
func (s *Session) ResendEvents(index uint64) *Session {
	ep := s.events
	if index <= ep.completeIndex {
		return s
	}
	s.ClearEvents(index)
	for i := 0; i < ep.queued.Length(); i++ {
		h := ep.queued.Get(i).(*eventHolder)
		s.sendSequentialEvent(h)
	}
	return s
}

// CompleteIndex returns the highest event index the client has acknowledged.
func (s *Session) CompleteIndex() uint64 { return s.events.completeIndex }

// EventIndex returns the log index at which the currently accumulating or
// most recently produced batch sits.
func (s *Session) EventIndex() uint64 { return s.events.eventIndex }

func (ep *eventPipeline) completeAll() {
	if ep.current != nil {
		ep.current.complete()
		ep.current = nil
	}
	for i := 0; i < ep.queued.Length(); i++ {
		ep.queued.Get(i).(*eventHolder).complete()
	}
}

// HandlePublish handles an inbound publish request received over a
// connection this session opened as a client of another server process: it
// dispatches each event to locally registered listeners and always
// responds OK (server-local consumers are best-effort; back-pressure is
// handled at a higher layer).
func (s *Session) HandlePublish(req *PublishRequest) (*PublishResponse, error) {
	for _, ev := range req.Events {
		s.listeners.dispatch(ev.Name, ev.Payload)
	}
	return &PublishResponse{Status: StatusOK}, nil
}

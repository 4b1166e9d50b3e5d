package grpcconn

import (
	"fmt"
	"io"
	"sync"

	"github.com/hwlsniper/copycat/pkg/session"
)

type publishFunc func(*session.PublishRequest) (*session.PublishResponse, error)

// Conn adapts one end of a Publish stream to session.Connection. Send
// pushes a request and blocks for the matching ack; inbound requests
// arriving on the stream are dispatched to whichever handler Handler last
// installed for their kind, always "publish" in this module.
type Conn struct {
	stream publishServer // satisfied by both publishServerStream and publishClientStream

	mu       sync.Mutex
	closed   bool
	handlers map[string]publishFunc
	pending  map[uint64]chan *session.PublishResponse

	recvErr chan error
}

func newConn(stream publishServer) *Conn {
	c := &Conn{
		stream:  stream,
		pending: make(map[uint64]chan *session.PublishResponse),
		recvErr: make(chan error, 1),
	}
	go c.recvLoop()
	return c
}

// recvLoop continuously pulls envelopes off the stream: responses resolve a
// pending Send call, requests are handed to the registered handler and
// their result written back.
func (c *Conn) recvLoop() {
	for {
		e, err := c.stream.Recv()
		if err != nil {
			c.failPending(err)
			if err != io.EOF {
				c.recvErr <- err
			} else {
				c.recvErr <- nil
			}
			return
		}

		switch {
		case e.Response != nil:
			c.resolve(e.toResponse())
		case e.Request != nil:
			go c.handleInbound(e.Request)
		}
	}
}

func (c *Conn) handleInbound(req *session.PublishRequest) {
	c.mu.Lock()
	fn := c.handlers["publish"]
	c.mu.Unlock()

	var resp *session.PublishResponse
	var err error
	if fn != nil {
		resp, err = fn(req)
	} else {
		resp = &session.PublishResponse{Status: session.StatusOK, Index: req.EventIndex}
	}
	if err != nil {
		resp = &session.PublishResponse{Status: session.StatusError, Error: err}
	}
	_ = c.stream.Send(responseEnvelope(resp))
}

func (c *Conn) resolve(resp *session.PublishResponse) {
	c.mu.Lock()
	ch, ok := c.pending[resp.Index]
	if ok {
		delete(c.pending, resp.Index)
	}
	c.mu.Unlock()
	if ok {
		ch <- resp
	}
}

func (c *Conn) failPending(err error) {
	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[uint64]chan *session.PublishResponse)
	c.mu.Unlock()
	for _, ch := range pending {
		ch <- &session.PublishResponse{Status: session.StatusError, Error: err}
	}
}

// Send implements session.Connection.
func (c *Conn) Send(req *session.PublishRequest) (*session.PublishResponse, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, fmt.Errorf("grpcconn: connection closed")
	}
	ch := make(chan *session.PublishResponse, 1)
	c.pending[req.EventIndex] = ch
	c.mu.Unlock()

	if err := c.stream.Send(requestEnvelope(req)); err != nil {
		c.mu.Lock()
		delete(c.pending, req.EventIndex)
		c.mu.Unlock()
		return nil, fmt.Errorf("grpcconn: send: %w", err)
	}

	resp := <-ch
	if resp.Status == session.StatusError && resp.Error != nil {
		return resp, resp.Error
	}
	return resp, nil
}

// Handler implements session.Connection.
func (c *Conn) Handler(kind string, fn func(*session.PublishRequest) (*session.PublishResponse, error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handlers == nil {
		c.handlers = make(map[string]publishFunc)
	}
	c.handlers[kind] = fn
}

// Wait blocks until the receive loop exits, returning any transport-level
// error (nil on a clean io.EOF close).
func (c *Conn) Wait() error {
	return <-c.recvErr
}

// Close marks the connection closed for future Sends. The underlying stream
// itself is torn down by whichever side owns the grpc.ClientConn or the
// server handler's return.
func (c *Conn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

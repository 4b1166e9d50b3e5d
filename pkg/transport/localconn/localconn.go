// Package localconn provides an in-process session.Connection, for tests: a
// client gets a directly-callable handle to its peer instead of a real
// network hop. The example commands use pkg/transport/grpcconn instead.
package localconn

import (
	"errors"
	"sync"

	"github.com/hwlsniper/copycat/pkg/session"
)

// ErrClosed is returned by Send once the connection has been closed.
var ErrClosed = errors.New("localconn: closed")

// ErrNoHandler is returned by Send when the peer has no handler registered
// for the request's kind.
var ErrNoHandler = errors.New("localconn: no handler registered")

type publishFunc func(*session.PublishRequest) (*session.PublishResponse, error)

// Pair wires up two connected endpoints, the way a real transport would
// connect a client socket to its accepted peer on the server.
type Pair struct {
	Server *Conn
	Client *Conn
}

// NewPair creates two Conns that deliver directly to each other.
func NewPair() *Pair {
	server := &Conn{}
	client := &Conn{}
	server.peer = client
	client.peer = server
	return &Pair{Server: server, Client: client}
}

// Conn is one endpoint of a Pair. It implements session.Connection.
type Conn struct {
	mu       sync.Mutex
	closed   bool
	peer     *Conn
	handlers map[string]publishFunc
}

// Send delivers req to the peer's handler registered for kind "publish" and
// returns its response. There is no network in between, so the only failure
// modes are a closed connection on either side or a peer with no handler
// installed.
func (c *Conn) Send(req *session.PublishRequest) (*session.PublishResponse, error) {
	c.mu.Lock()
	closed := c.closed
	peer := c.peer
	c.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	peer.mu.Lock()
	fn := peer.handlers["publish"]
	peerClosed := peer.closed
	peer.mu.Unlock()

	if peerClosed {
		return nil, ErrClosed
	}
	if fn == nil {
		return nil, ErrNoHandler
	}
	return fn(req)
}

// Handler installs fn as the handler for inbound requests of the given kind.
func (c *Conn) Handler(kind string, fn func(*session.PublishRequest) (*session.PublishResponse, error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handlers == nil {
		c.handlers = make(map[string]publishFunc)
	}
	c.handlers[kind] = fn
}

// Close marks the connection closed; subsequent Sends to or from it fail.
func (c *Conn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

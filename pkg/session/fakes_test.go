package session

import "errors"

var errUnacked = errors.New("fake connection: no ack queued")

// fakeContext is a minimal Context used across this package's tests.
type fakeContext struct {
	index       uint64
	consistency Consistency
	synchronous bool
	connections Connections
}

func (c *fakeContext) Index() uint64            { return c.index }
func (c *fakeContext) Consistency() Consistency { return c.consistency }
func (c *fakeContext) Synchronous() bool        { return c.synchronous }
func (c *fakeContext) Connections() Connections { return c.connections }

// fakeAddress is a minimal Address.
type fakeAddress string

func (a fakeAddress) String() string { return string(a) }

// fakeConnection records every request sent to it and returns responses
// queued by the test via queueResponse (or errors set in errs).
type fakeConnection struct {
	sent          []*PublishRequest
	responses     []*PublishResponse
	errs          []error
	handlers      map[string]func(*PublishRequest) (*PublishResponse, error)
	dropByDefault bool
}

func newFakeConnection() *fakeConnection {
	return &fakeConnection{handlers: make(map[string]func(*PublishRequest) (*PublishResponse, error))}
}

func (c *fakeConnection) Send(req *PublishRequest) (*PublishResponse, error) {
	c.sent = append(c.sent, req)
	idx := len(c.sent) - 1
	if idx < len(c.errs) && c.errs[idx] != nil {
		return nil, c.errs[idx]
	}
	if c.dropByDefault && idx >= len(c.responses) {
		// Simulate a transport that never acks on its own; the test drives
		// ClearEvents/ResendEvents explicitly instead.
		return nil, errUnacked
	}
	if idx < len(c.responses) {
		return c.responses[idx], nil
	}
	return &PublishResponse{Status: StatusOK, Index: req.EventIndex}, nil
}

func (c *fakeConnection) Handler(kind string, fn func(*PublishRequest) (*PublishResponse, error)) {
	c.handlers[kind] = fn
}

// queueResponse appends a canned response for the Nth Send call.
func (c *fakeConnection) queueResponse(resp *PublishResponse) {
	c.responses = append(c.responses, resp)
}

// fakeConnections resolves every address to a single shared connection.
type fakeConnections struct {
	conn Connection
	err  error
	gets int
}

func (c *fakeConnections) GetConnection(addr Address) (Connection, error) {
	c.gets++
	if c.err != nil {
		return nil, c.err
	}
	return c.conn, nil
}

package localconn

import (
	"fmt"
	"sync"

	"github.com/hwlsniper/copycat/pkg/session"
)

// Address is a localconn peer identity: just a name, since there is no
// network to resolve.
type Address string

// String implements session.Address.
func (a Address) String() string { return string(a) }

// Connections resolves Addresses to pre-registered Conns, implementing
// session.Connections for the case where a session's connection dropped and
// a linearizable event must be delivered via last-known address instead.
type Connections struct {
	mu    sync.RWMutex
	conns map[Address]*Conn
}

// NewConnections creates an empty registry.
func NewConnections() *Connections {
	return &Connections{conns: make(map[Address]*Conn)}
}

// Register associates addr with conn, so GetConnection can later resolve it.
func (c *Connections) Register(addr Address, conn *Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conns[addr] = conn
}

// Unregister removes any association for addr.
func (c *Connections) Unregister(addr Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.conns, addr)
}

// GetConnection implements session.Connections.
func (c *Connections) GetConnection(addr session.Address) (session.Connection, error) {
	a, ok := addr.(Address)
	if !ok {
		return nil, fmt.Errorf("localconn: address %v is not a localconn.Address", addr)
	}

	c.mu.RLock()
	conn, ok := c.conns[a]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("localconn: no connection registered for %q", a)
	}
	return conn, nil
}

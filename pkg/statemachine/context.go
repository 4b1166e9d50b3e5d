// Package statemachine drives session ordering from a simulated
// Raft-committed-entry apply loop. The real log, replication protocol, and
// leader election are out of scope (see pkg/session's design notes); this
// package is the minimal, testable stand-in for the "external executor"
// that in production would own that machinery and call into sessions.
package statemachine

import (
	"github.com/hwlsniper/copycat/pkg/session"
)

// Consistency mirrors session.Consistency; re-exported here so callers
// driving the executor don't need to import pkg/session directly for it.
type Consistency = session.Consistency

const (
	ConsistencyNone         = session.ConsistencyNone
	ConsistencySequential   = session.ConsistencySequential
	ConsistencyLinearizable = session.ConsistencyLinearizable
)

// ApplyContext implements session.Context for one entry being applied. A
// fresh instance (or a reused one with fields overwritten) is handed to the
// session for the duration of a single command or query application.
type ApplyContext struct {
	index       uint64
	consistency session.Consistency
	synchronous bool
	connections session.Connections
}

// NewApplyContext builds a context for applying the entry at index with the
// given consistency level. synchronous reports whether the calling
// goroutine is the leader's synchronous apply path (true on the leader
// applying its own proposal inline; false on followers and secondary
// indices).
func NewApplyContext(index uint64, consistency session.Consistency, synchronous bool, connections session.Connections) *ApplyContext {
	return &ApplyContext{
		index:       index,
		consistency: consistency,
		synchronous: synchronous,
		connections: connections,
	}
}

func (c *ApplyContext) Index() uint64                     { return c.index }
func (c *ApplyContext) Consistency() session.Consistency  { return c.consistency }
func (c *ApplyContext) Synchronous() bool                 { return c.synchronous }
func (c *ApplyContext) Connections() session.Connections  { return c.connections }

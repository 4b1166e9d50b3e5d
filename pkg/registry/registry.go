// Package registry tracks the set of registered sessions on a replica.
// Session registration and expiration policy are decided by its caller;
// this package only exposes the narrow interfaces that policy consumes.
package registry

import (
	"sync"
	"time"

	"github.com/hwlsniper/copycat/pkg/session"
)

// Registry is the in-memory map of session ID to Session, keyed on the
// session ID, which also doubles as the log index the session was
// registered at.
//
// Unlike session.Session's own state, which is confined to one executor
// goroutine by contract, the registry is touched both from that executor
// (on register/unregister) and from an independent keep-alive sweep, so it
// keeps its own mutex.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uint64]*session.Session
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{sessions: make(map[uint64]*session.Session)}
}

// Register creates a session rooted at id with the given inactivity
// timeout, stores it, and opens it — mirroring a register-client log entry
// being applied identically on every replica.
func (r *Registry) Register(id uint64, timeout time.Duration) *session.Session {
	sess := session.New(id, timeout.Nanoseconds())
	sess.Open()

	r.mu.Lock()
	r.sessions[id] = sess
	r.mu.Unlock()

	return sess
}

// Get returns the session for id, if registered.
func (r *Registry) Get(id uint64) (*session.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Unregister latches the unregistering flag on the session for id (if
// present) and closes it, distinguishing a graceful close from an
// expiration for replicator bookkeeping.
func (r *Registry) Unregister(id uint64) {
	r.mu.Lock()
	sess, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		sess.Unregister()
		sess.Close()
	}
}

// Expire expires the session for id (if present) and removes it from the
// registry.
func (r *Registry) Expire(id uint64) {
	r.mu.Lock()
	sess, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		sess.Expire()
	}
}

// ExpireBefore expires and removes every session whose timestamp predates
// cutoff. The keep-alive cadence that decides when to call this is a policy
// left entirely to the caller; this only performs the mechanical sweep.
func (r *Registry) ExpireBefore(cutoff time.Time) []uint64 {
	cutoffNanos := cutoff.UnixNano()

	r.mu.Lock()
	var expired []*session.Session
	for id, sess := range r.sessions {
		if sess.Timestamp() < cutoffNanos {
			expired = append(expired, sess)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	ids := make([]uint64, len(expired))
	for i, sess := range expired {
		sess.Expire()
		ids[i] = sess.ID()
	}
	return ids
}

// GCResponses sweeps every registered session's cached command responses
// down to its own current command sequence. By the time this runs, a
// session's client has necessarily already received every response up to
// that sequence over its own synchronous request/response cycle, so this
// is a safe low-water-mark advance even without an explicit client ack.
func (r *Registry) GCResponses() {
	r.mu.RLock()
	sessions := make([]*session.Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		sessions = append(sessions, sess)
	}
	r.mu.RUnlock()

	for _, sess := range sessions {
		sess.ClearResponses(sess.CommandSequence())
	}
}

// Len returns the number of currently registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

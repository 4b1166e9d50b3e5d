package statemachine

import (
	"github.com/hwlsniper/copycat/pkg/session"
)

// QueryOutcome is the result of a deferred query once it finally runs.
type QueryOutcome struct {
	Result any
	Err    error
}

// Executor is the single-threaded driver that applies committed log
// entries to sessions. All of its methods are expected to run on one
// goroutine — the same discipline pkg/session itself assumes — since it is
// the thing that provides that executor in a real deployment.
type Executor struct {
	connections session.Connections
}

// NewExecutor builds an Executor that resolves linearizable-event fallback
// connections through connections (may be nil if the deployment never
// needs address-based reconnection).
func NewExecutor(connections session.Connections) *Executor {
	return &Executor{connections: connections}
}

// ApplyCommand applies fn as the command at the given log index and request
// sequence against sess, in the consistency level declared by the caller.
// It advances last-applied and command-sequence (releasing any queries
// gated on them), commits whatever events fn published during application,
// and caches the result under sequence. It returns the command's result,
// the event batch's completion channel (nil if fn published nothing), and
// any error fn returned.
func (e *Executor) ApplyCommand(
	sess *session.Session,
	index uint64,
	sequence uint64,
	consistency Consistency,
	synchronous bool,
	fn func(ctx session.Context) (any, error),
) (any, chan struct{}, error) {
	ctx := NewApplyContext(index, consistency, synchronous, e.connections)

	result, err := fn(ctx)

	sess.SetLastApplied(index)
	sess.SetCommandSequence(sequence)

	done := sess.Commit(ctx, index)
	sess.RegisterResponse(sequence, result, nil)

	return result, done, err
}

// ExecuteSequenceQuery runs fn once sess's command sequence reaches
// sequence. If it has already reached or passed sequence, fn runs inline
// and the returned channel is already resolved; otherwise it is deferred
// via sess.RegisterSequenceQuery and resolves later, from within a future
// ApplyCommand call on this same executor.
func (e *Executor) ExecuteSequenceQuery(
	sess *session.Session,
	index uint64,
	sequence uint64,
	synchronous bool,
	fn func(ctx session.Context) (any, error),
) <-chan QueryOutcome {
	out := make(chan QueryOutcome, 1)
	run := func() {
		ctx := NewApplyContext(index, ConsistencyNone, synchronous, e.connections)
		result, err := fn(ctx)
		out <- QueryOutcome{Result: result, Err: err}
	}

	if sequence <= sess.CommandSequence() {
		run()
		return out
	}
	sess.RegisterSequenceQuery(sequence, run)
	return out
}

// ExecuteIndexQuery runs fn once sess's last-applied index reaches index,
// with the same inline-or-deferred semantics as ExecuteSequenceQuery.
func (e *Executor) ExecuteIndexQuery(
	sess *session.Session,
	index uint64,
	synchronous bool,
	fn func(ctx session.Context) (any, error),
) <-chan QueryOutcome {
	out := make(chan QueryOutcome, 1)
	run := func() {
		ctx := NewApplyContext(index, ConsistencyNone, synchronous, e.connections)
		result, err := fn(ctx)
		out <- QueryOutcome{Result: result, Err: err}
	}

	if index <= sess.LastApplied() {
		run()
		return out
	}
	sess.RegisterIndexQuery(index, run)
	return out
}

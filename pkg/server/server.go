// Package server is the example net/rpc front end wiring pkg/session,
// pkg/statemachine, pkg/registry, and pkg/znode together into something
// runnable: a small Zookeeper clone whose requests go through the
// session-sequencing/executor stack instead of mutating a tree directly.
package server

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sync"
	"time"

	"github.com/hwlsniper/copycat/pkg/persistence"
	"github.com/hwlsniper/copycat/pkg/registry"
	"github.com/hwlsniper/copycat/pkg/session"
	"github.com/hwlsniper/copycat/pkg/statemachine"
	"github.com/hwlsniper/copycat/pkg/znode"
	"github.com/hwlsniper/copycat/pkg/zookeeper"
	"github.com/hwlsniper/copycat/pkg/zxid"
)

// startEpoch is the epoch this process's zxid.Generator starts from. A real
// deployment would derive it from the highest epoch seen in the log on
// startup, recovered through leader election; every process run here starts
// fresh at epoch 1.
const startEpoch int32 = 1

// sessionTimeout is the inactivity budget handed to every session this
// example server registers. A real deployment would make this configurable
// per client.
const sessionTimeout = 30 * time.Second

// Server implements zookeeper.Zookeeper by running every request through a
// single-threaded statemachine.Executor against one znode.DB, the way a
// real state machine would apply committed log entries — minus the log
// itself, which is out of scope.
type Server struct {
	mu sync.Mutex

	db             *znode.DB
	executor       *statemachine.Executor
	sessions       *registry.Registry
	sessionTimeout time.Duration
	log            *persistence.LogManager

	// byClientID maps the zookeeper.ClientID string the RPC layer sees to
	// the session ID the registry actually keys on.
	byClientID map[string]uint64

	zxids *zxid.Generator
}

// NewServer builds an empty Server using the default session timeout.
func NewServer() *Server {
	return NewServerWithTimeout(sessionTimeout)
}

// NewServerWithTimeout builds an empty Server that registers every session
// with the given inactivity budget, for callers (cmd/raftsessiond) that
// make it configurable rather than hardcoding it.
func NewServerWithTimeout(timeout time.Duration) *Server {
	return &Server{
		db:             znode.NewDB(),
		executor:       statemachine.NewExecutor(nil),
		sessions:       registry.New(),
		sessionTimeout: timeout,
		byClientID:     make(map[string]uint64),
		zxids:          zxid.NewGenerator(startEpoch),
	}
}

// nextIndex hands out the zxid for the next command this server applies,
// the same role Zookeeper's own zxid plays: a strictly increasing ID every
// replica would assign identically to the same committed entry.
func (s *Server) nextIndex() uint64 {
	return s.zxids.Next().Uint64()
}

// Connect registers a new session for req.ClientID, the way a
// register-client command would be applied on every replica.
func (s *Server) Connect(req *zookeeper.ConnectReq, _ *zookeeper.ConnectResp) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byClientID[req.ClientID.ID]; ok {
		return fmt.Errorf("client [%s] is already connected", req.ClientID.ID)
	}

	id := s.nextIndex()
	sess := s.sessions.Register(id, s.sessionTimeout)
	sess.SetConnectIndex(id)
	s.byClientID[req.ClientID.ID] = id
	return nil
}

// Close sweeps req.ClientID's ephemeral nodes, then unregisters its session.
func (s *Server) Close(req *zookeeper.CloseReq, _ *zookeeper.CloseResp) error {
	s.mu.Lock()
	id, ok := s.byClientID[req.ClientID.ID]
	delete(s.byClientID, req.ClientID.ID)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("client [%s] is not connected", req.ClientID.ID)
	}

	if sess, ok := s.sessions.Get(id); ok {
		cmd := &znode.DeleteEphemeralCommand{Owner: id}
		_, _ = s.applyCommand(sess, cmd, func(session.Context) (any, error) {
			s.db.DeleteEphemeralOwnedBy(id)
			return nil, nil
		})
	}
	s.sessions.Unregister(id)
	return nil
}

// SetLogManager attaches a write-ahead log every applied command is
// recorded to before its effect is visible to queries. A nil log (the
// default) makes applyCommand a no-op append, for callers (most tests)
// that don't care about durability.
func (s *Server) SetLogManager(l *persistence.LogManager) *Server {
	s.log = l
	return s
}

// AttachConnection installs conn as clientID's session's event-publish
// channel, the way a gRPC Publish stream is wired up once a client that
// already Connect()-ed over the net/rpc front door opens its event stream.
func (s *Server) AttachConnection(clientID string, conn session.Connection) error {
	sess, err := s.sessionFor(clientID)
	if err != nil {
		return err
	}
	sess.SetConnection(conn)
	return nil
}

// Sessions exposes the registry for callers that need to run sweeps
// (ExpireBefore) or otherwise inspect registered sessions outside of a
// command/query path, such as cmd/raftsessiond's keep-alive goroutine.
func (s *Server) Sessions() *registry.Registry { return s.sessions }

func (s *Server) sessionFor(clientID string) (*session.Session, error) {
	s.mu.Lock()
	id, ok := s.byClientID[clientID]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("client [%s] is not connected", clientID)
	}
	sess, ok := s.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("session for client [%s] is no longer registered", clientID)
	}
	return sess, nil
}

// applyCommand records cmd to the write-ahead log (if one is attached),
// then runs fn through the executor as the next command for sess. This
// example server has no separate "submit" step distinguishing request
// sequence from command sequence, so every accepted request advances both
// together.
func (s *Server) applyCommand(sess *session.Session, cmd any, fn func(session.Context) (any, error)) (any, error) {
	idx := s.nextIndex()
	if s.log != nil {
		if err := s.appendToLog(idx, cmd); err != nil {
			return nil, err
		}
	}
	sequence := sess.NextCommandSequence()
	result, done, err := s.executor.ApplyCommand(sess, idx, sequence, statemachine.ConsistencyLinearizable, true, fn)
	if done != nil {
		<-done
	}
	return result, err
}

func (s *Server) appendToLog(index uint64, cmd any) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(cmd); err != nil {
		return fmt.Errorf("encoding command for log: %w", err)
	}
	return s.log.Append(&persistence.Entry{
		Index:       index,
		Consistency: int(statemachine.ConsistencyLinearizable),
		Payload:     buf.Bytes(),
	})
}

func (s *Server) executeQuery(sess *session.Session, fn func(session.Context) (any, error)) (any, error) {
	outcome := <-s.executor.ExecuteIndexQuery(sess, sess.LastApplied(), true, fn)
	return outcome.Result, outcome.Err
}

// Create creates a ZNode at req.Path holding req.Data.
func (s *Server) Create(req *zookeeper.CreateReq, resp *zookeeper.CreateResp) error {
	if err := validatePath(req.Path); err != nil {
		return err
	}
	sess, err := s.sessionFor(req.ClientID.ID)
	if err != nil {
		return err
	}

	cmd := &znode.CreateCommand{
		Path:       req.Path,
		Data:       req.Data,
		Sequential: hasFlag(req.Flags, zookeeper.SEQUENTIAL),
		Ephemeral:  hasFlag(req.Flags, zookeeper.EPHEMERAL),
		Owner:      sess.ID(),
	}
	result, err := s.applyCommand(sess, cmd, func(session.Context) (any, error) {
		return s.db.Create(cmd)
	})
	if err != nil {
		return err
	}
	resp.ZNodeName = result.(*znode.ZNode).Name
	return nil
}

// Delete deletes the ZNode at req.Path if it is at the expected version.
func (s *Server) Delete(req *zookeeper.DeleteReq, _ *zookeeper.DeleteResp) error {
	if err := validatePath(req.Path); err != nil {
		return err
	}
	sess, err := s.sessionFor(req.ClientID.ID)
	if err != nil {
		return err
	}

	if node := s.db.Get(req.Path); node != nil && !isValidVersion(req.Version, int(node.Version)) {
		return fmt.Errorf("invalid version: expected [%d], actual [%d]", req.Version, node.Version)
	}

	cmd := &znode.DeleteCommand{Path: req.Path}
	_, err = s.applyCommand(sess, cmd, func(session.Context) (any, error) {
		return nil, s.db.Delete(cmd)
	})
	return err
}

// Exists reports whether a ZNode exists at req.Path.
func (s *Server) Exists(req *zookeeper.ExistsReq, resp *zookeeper.ExistsResp) error {
	if err := validatePath(req.Path); err != nil {
		return err
	}
	sess, err := s.sessionFor(req.ClientID.ID)
	if err != nil {
		return err
	}

	result, err := s.executeQuery(sess, func(session.Context) (any, error) {
		return s.db.Exists(req.Path), nil
	})
	if err != nil {
		return err
	}
	resp.Exists = result.(bool)
	return nil
}

// GetData returns the data and version stored at req.Path.
func (s *Server) GetData(req *zookeeper.GetDataReq, resp *zookeeper.GetDataResp) error {
	if err := validatePath(req.Path); err != nil {
		return err
	}
	sess, err := s.sessionFor(req.ClientID.ID)
	if err != nil {
		return err
	}

	result, err := s.executeQuery(sess, func(session.Context) (any, error) {
		return s.db.Get(req.Path), nil
	})
	if err != nil {
		return err
	}
	node, _ := result.(*znode.ZNode)
	if node == nil {
		return nil
	}
	resp.Data = node.Data
	resp.Version = int(node.Version)
	return nil
}

// SetData overwrites the data stored at req.Path.
func (s *Server) SetData(req *zookeeper.SetDataReq, _ *zookeeper.SetDataResp) error {
	if err := validatePath(req.Path); err != nil {
		return err
	}
	sess, err := s.sessionFor(req.ClientID.ID)
	if err != nil {
		return err
	}

	node := s.db.Get(req.Path)
	if node == nil {
		return fmt.Errorf("node does not exist")
	}
	if !isValidVersion(req.Version, int(node.Version)) {
		return fmt.Errorf("invalid version: expected [%d], actual [%d]", req.Version, node.Version)
	}

	cmd := &znode.SetDataCommand{Path: req.Path, Data: req.Data}
	_, err = s.applyCommand(sess, cmd, func(session.Context) (any, error) {
		return s.db.SetData(cmd)
	})
	return err
}

// GetChildren returns the names of req.Path's immediate children.
func (s *Server) GetChildren(req *zookeeper.GetChildrenReq, resp *zookeeper.GetChildrenResp) error {
	if err := validatePath(req.Path); err != nil {
		return err
	}
	sess, err := s.sessionFor(req.ClientID.ID)
	if err != nil {
		return err
	}

	result, err := s.executeQuery(sess, func(session.Context) (any, error) {
		return s.db.GetChildren(req.Path)
	})
	if err != nil {
		return err
	}
	resp.Children, _ = result.([]string)
	return nil
}

// Sync is unimplemented: the white paper this protocol follows doesn't
// specify path-scoped sync semantics either.
func (s *Server) Sync(_ *zookeeper.SyncReq, _ *zookeeper.SyncResp) error {
	return fmt.Errorf("not implemented")
}

func hasFlag(flags []zookeeper.Flag, want zookeeper.Flag) bool {
	for _, f := range flags {
		if f == want {
			return true
		}
	}
	return false
}

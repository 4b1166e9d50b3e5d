package grpcconn

import (
	"fmt"
)

// Server implements publisherServer and bridges each accepted Publish
// stream to OnConnect, which is expected to wire the stream into the
// session it belongs to and block for the stream's lifetime.
type Server struct {
	// OnConnect is called once per accepted stream with the identity
	// extracted from its ClientIDHeader metadata and the *Conn wrapping it.
	// It should block for the lifetime of the connection (typically by
	// calling conn.Wait() after wiring it into a session) and return any
	// error that should be surfaced to the client as the stream's status.
	OnConnect func(clientID string, conn *Conn) error
}

// Publish implements publisherServer.
func (s *Server) Publish(stream publishServer) error {
	clientID, ok := ClientIDFromContext(stream.Context())
	if !ok {
		return fmt.Errorf("grpcconn: missing %s metadata", ClientIDHeader)
	}

	conn := newConn(stream)
	defer conn.Close()

	if s.OnConnect == nil {
		return conn.Wait()
	}
	return s.OnConnect(clientID, conn)
}

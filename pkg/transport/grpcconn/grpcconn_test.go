package grpcconn

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/hwlsniper/copycat/pkg/session"
)

func startTestServer(t *testing.T, onConnect func(string, *Conn) error) (*grpc.Server, *bufconn.Listener) {
	lis := bufconn.Listen(1024 * 1024)
	gs := grpc.NewServer()
	RegisterPublisherServer(gs, &Server{OnConnect: onConnect})
	go func() {
		_ = gs.Serve(lis)
	}()
	t.Cleanup(gs.Stop)
	return gs, lis
}

func dialTest(t *testing.T, lis *bufconn.Listener, clientID string) (*Conn, *grpc.ClientConn) {
	// The stream's context must outlive this helper, so it is deliberately
	// not tied to a cancel() deferred here.
	dialer := func(context.Context, string) (net.Conn, error) { return lis.Dial() }
	conn, cc, err := Dial(context.Background(), "bufnet", clientID,
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	return conn, cc
}

func TestConn_ClientSendsRequest_ServerHandlerResponds(t *testing.T) {
	serverConnCh := make(chan *Conn, 1)
	_, lis := startTestServer(t, func(clientID string, conn *Conn) error {
		assert.Equal(t, "client-1", clientID)
		conn.Handler("publish", func(req *session.PublishRequest) (*session.PublishResponse, error) {
			return &session.PublishResponse{Status: session.StatusOK, Index: req.EventIndex}, nil
		})
		serverConnCh <- conn
		return conn.Wait()
	})

	client, cc := dialTest(t, lis, "client-1")
	defer cc.Close()

	resp, err := client.Send(&session.PublishRequest{EventIndex: 7, Events: []session.Event{{Name: "tick"}}})
	require.NoError(t, err)
	assert.Equal(t, session.StatusOK, resp.Status)
	assert.Equal(t, uint64(7), resp.Index)

	<-serverConnCh
}

func TestConn_ServerPushesEvent_ClientHandlerResponds(t *testing.T) {
	readyCh := make(chan *Conn, 1)
	_, lis := startTestServer(t, func(clientID string, conn *Conn) error {
		readyCh <- conn
		return conn.Wait()
	})

	client, cc := dialTest(t, lis, "client-2")
	defer cc.Close()

	var received *session.PublishRequest
	gotCh := make(chan struct{})
	client.Handler("publish", func(req *session.PublishRequest) (*session.PublishResponse, error) {
		received = req
		close(gotCh)
		return &session.PublishResponse{Status: session.StatusOK, Index: req.EventIndex}, nil
	})

	serverConn := <-readyCh
	resp, err := serverConn.Send(&session.PublishRequest{EventIndex: 3, Events: []session.Event{{Name: "created"}}})
	require.NoError(t, err)
	assert.Equal(t, session.StatusOK, resp.Status)

	<-gotCh
	require.NotNil(t, received)
	assert.Equal(t, "created", received.Events[0].Name)
}

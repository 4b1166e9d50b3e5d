package grpcconn

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// ClientIDHeader is the outgoing metadata key a Dial call stamps on its
// stream, carrying a client's identity to the server out of band from the
// RPC payload.
const ClientIDHeader = "x-session-client-id"

// Dial opens a Publish stream to target, identifying the caller as
// clientID, and returns a *Conn ready to use as a session.Connection plus
// the underlying grpc.ClientConn (so the caller can Close it down later).
// opts are forwarded to grpc.NewClient for things like transport credentials.
func Dial(ctx context.Context, target string, clientID string, opts ...grpc.DialOption) (*Conn, *grpc.ClientConn, error) {
	opts = append(opts, grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)))
	// grpc.NewClient defaults to the "dns" resolver scheme when none is
	// given, unlike the deprecated grpc.Dial which defaulted to
	// "passthrough"; match that prior behavior so bare targets (e.g. ones
	// resolved entirely by a WithContextDialer) are not sent through DNS.
	dialTarget := target
	if !strings.Contains(dialTarget, "://") {
		dialTarget = "passthrough:///" + dialTarget
	}
	cc, err := grpc.NewClient(dialTarget, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("grpcconn: dial %s: %w", target, err)
	}

	ctx = metadata.AppendToOutgoingContext(ctx, ClientIDHeader, clientID)
	desc := &serviceDesc.Streams[0]
	cs, err := cc.NewStream(ctx, desc, fmt.Sprintf("/%s/%s", serviceName, methodName))
	if err != nil {
		cc.Close()
		return nil, nil, fmt.Errorf("grpcconn: open stream: %w", err)
	}

	return newConn(&publishClientStream{ClientStream: cs}), cc, nil
}

// ClientIDFromContext extracts the identity Dial stamped on the stream, on
// the server side of the RPC.
func ClientIDFromContext(ctx context.Context) (string, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", false
	}
	values := md.Get(ClientIDHeader)
	if len(values) == 0 {
		return "", false
	}
	return values[0], true
}

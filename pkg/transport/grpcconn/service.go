package grpcconn

import (
	"context"

	"google.golang.org/grpc"
)

// serviceName and the method name below are what a generated pbzk package
// would otherwise hand us; hand-written here because the .proto this spec's
// teacher built from was never retrieved alongside its Go sources.
const (
	serviceName = "copycat.Publisher"
	methodName  = "Publish"
)

// publishServer is the bidi-streaming handle a Publish RPC implementation
// receives, mirroring the shape of a generated pbzk.Zookeeper_MessageServer.
type publishServer interface {
	Send(*envelope) error
	Recv() (*envelope, error)
	Context() context.Context
}

type publishServerStream struct {
	grpc.ServerStream
}

func (s *publishServerStream) Send(e *envelope) error {
	return s.ServerStream.SendMsg(e)
}

func (s *publishServerStream) Recv() (*envelope, error) {
	e := new(envelope)
	if err := s.ServerStream.RecvMsg(e); err != nil {
		return nil, err
	}
	return e, nil
}

// publisherServer is implemented by anything willing to handle the
// server-side half of a Publish stream, analogous to pbzk's generated
// ZookeeperServer interface restricted to its one streaming method.
type publisherServer interface {
	Publish(publishServer) error
}

func publishHandler(srv any, stream grpc.ServerStream) error {
	return srv.(publisherServer).Publish(&publishServerStream{ServerStream: stream})
}

// serviceDesc is the hand-rolled equivalent of the *_ServiceDesc a protoc
// plugin emits: one bidirectional-streaming method, no unary methods.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*publisherServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    methodName,
			Handler:       publishHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
}

// RegisterPublisherServer registers srv's Publish method on s the same way
// pbzk.RegisterZookeeperServer would.
func RegisterPublisherServer(s grpc.ServiceRegistrar, srv publisherServer) {
	s.RegisterService(&serviceDesc, srv)
}

// publishClientStream is the client-side half, mirroring a generated
// pbzk.Zookeeper_MessageClient.
type publishClientStream struct {
	grpc.ClientStream
}

func (s *publishClientStream) Send(e *envelope) error {
	return s.ClientStream.SendMsg(e)
}

func (s *publishClientStream) Recv() (*envelope, error) {
	e := new(envelope)
	if err := s.ClientStream.RecvMsg(e); err != nil {
		return nil, err
	}
	return e, nil
}

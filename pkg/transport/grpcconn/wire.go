package grpcconn

import (
	"encoding/gob"

	"github.com/hwlsniper/copycat/pkg/session"
)

// RegisterPayloadType registers a concrete event-payload type with gob so it
// can cross the wire inside a session.Event.Payload field. Callers must
// register every payload type their state machine publishes before dialing
// or serving; this mirrors protobuf's requirement that every oneof variant
// be present in the generated descriptor, minus the code generation step.
func RegisterPayloadType(v any) {
	gob.Register(v)
}

// envelope is the single gob-encoded message exchanged in both directions
// over the Publish stream. Exactly one of Request or Response is set; this
// stands in for the oneof ZookeeperRequest/ZookeeperResponse wrapper the
// teacher's generated proto package would otherwise provide.
type envelope struct {
	Request  *session.PublishRequest
	Response *session.PublishResponse
	ErrMsg   string
}

func requestEnvelope(req *session.PublishRequest) *envelope {
	return &envelope{Request: req}
}

func responseEnvelope(resp *session.PublishResponse) *envelope {
	wire := *resp
	wire.Error = nil // the error interface doesn't survive gob; carried in ErrMsg instead.
	e := &envelope{Response: &wire}
	if resp.Error != nil {
		e.ErrMsg = resp.Error.Error()
	}
	return e
}

func (e *envelope) toResponse() *session.PublishResponse {
	resp := e.Response
	if resp == nil {
		return nil
	}
	if e.ErrMsg != "" {
		cp := *resp
		cp.Error = errString(e.ErrMsg)
		return &cp
	}
	return resp
}

// errString is a plain string masquerading as an error, since gob cannot
// encode the error interface directly and session.PublishResponse.Error is
// only ever inspected for nilness and its message on the wire.
type errString string

func (e errString) Error() string { return string(e) }

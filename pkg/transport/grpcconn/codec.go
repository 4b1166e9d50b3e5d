package grpcconn

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// codecName is the name advertised in outgoing RPCs via grpc.CallContentSubtype
// and matched against encoding.RegisterCodec on both ends. Events are framed
// with encoding/gob rather than protobuf, registered as a first-class grpc
// codec through the same extension point protobuf normally uses.
const codecName = "gob"

func init() {
	encoding.RegisterCodec(gobCodec{})
}

// gobCodec implements encoding.Codec (formerly encoding.CodecV2's simpler
// predecessor) for any concrete struct type passed to grpc.Marshal. Unlike
// protobuf, gob needs no generated code, at the cost of being Go-to-Go only.
type gobCodec struct{}

func (gobCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("grpcconn: gob encode: %w", err)
	}
	return buf.Bytes(), nil
}

func (gobCodec) Unmarshal(data []byte, v any) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return fmt.Errorf("grpcconn: gob decode: %w", err)
	}
	return nil
}

func (gobCodec) Name() string { return codecName }

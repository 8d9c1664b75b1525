package rpcpb

import (
	"bytes"
	"encoding/gob"

	"google.golang.org/grpc/encoding"
)

// codecName is registered with grpc's encoding package and selected via
// grpc.CallContentSubtype / grpc.ForceServerCodec so that connections using
// this package never attempt to treat an *rpcpb message as a
// proto.Message.
const codecName = "miniivf-gob"

// gobCodec implements encoding.Codec by delegating to encoding/gob. The
// plain structs in this package have no proto.Message methods, so the
// transport cannot use grpc's default codec.
type gobCodec struct{}

func (gobCodec) Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gobCodec) Unmarshal(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

func (gobCodec) Name() string {
	return codecName
}

func init() {
	encoding.RegisterCodec(gobCodec{})
}

// CodecName returns the name the gob codec is registered under, for use
// with grpc.CallContentSubtype on the client and grpc.ForceServerCodec on
// the server.
func CodecName() string {
	return codecName
}

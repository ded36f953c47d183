package transport

import "encoding/json"

// jsonCodec implements google.golang.org/grpc/encoding.Codec using JSON
// instead of protobuf wire encoding. The message types crossing the wire
// (paxos.Envelope and its payloads) are plain exported structs with json
// tags (spec.md §3 "Wire encoding"), so there is no protobuf schema to
// compile against; grpc's codec is a pluggable extension point precisely
// for this case, and both server and client force it explicitly below
// rather than relying on protobuf being registered as the default.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return "json"
}

// Package boardv1 is the RPC surface of the board: message types and the
// connect handler and client constructors for each service.
//
// Messages are plain Go structs carried by a JSON codec, so any HTTP client
// can call a procedure with
//
//	POST /agentboard.v1.TaskService/GetTask
//	Content-Type: application/json
//
//	{"id": "01J..."}
package boardv1

import (
	"encoding/json"

	"connectrpc.com/connect"
)

type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// WithJSON registers the struct JSON codec. Handlers and clients built by
// this package apply it by default.
func WithJSON() connect.Option {
	return connect.WithCodec(jsonCodec{})
}

func handlerOptions(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{WithJSON()}, opts...)
}

func clientOptions(opts []connect.ClientOption) []connect.ClientOption {
	return append([]connect.ClientOption{WithJSON()}, opts...)
}

// Package api is the public RPC surface of splitledger.
//
// Messages are plain Go structs carried as JSON over the Connect protocol.
// Every amount travels as a decimal string with two places ("12.34").
// NewGroupServiceHandler and NewExpenseServiceHandler mount the services on
// an http.ServeMux; NewGroupServiceClient and NewExpenseServiceClient call
// them.
package api

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// Codec marshals messages as JSON. It replaces connect's built-in "json"
// codec, which only accepts protobuf messages.
type Codec struct{}

var _ connect.Codec = Codec{}

func (Codec) Name() string { return "json" }

func (Codec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (Codec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, msg)
}

func handlerOptions(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)
}

func clientOptions(opts []connect.ClientOption) []connect.ClientOption {
	return append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
}

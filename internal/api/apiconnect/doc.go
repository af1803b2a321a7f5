// Package apiconnect wires the splitcheck services onto Connect handlers and
// clients. Messages are plain Go structs from package api carried by the JSON
// codec, so every handler and client installs api.Codec by default.
package apiconnect

import (
	"connectrpc.com/connect"

	"github.com/mmynk/splitcheck/internal/api"
)

func handlerOptions(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{connect.WithCodec(api.Codec{})}, opts...)
}

func clientOptions(opts []connect.ClientOption) []connect.ClientOption {
	return append([]connect.ClientOption{connect.WithCodec(api.Codec{})}, opts...)
}

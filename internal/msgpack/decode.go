// Package msgpack provides MessagePack encoding/decoding for recorded messages
// stored with the "msgpack" serialization format.
package msgpack

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Encode serializes a Go value into MessagePack format.
//
// Example:
//
//	data, err := msgpack.Encode(map[string]any{
//	    "header": map[string]any{"frame_id": "base_link"},
//	    "data":   1.5,
//	})
func Encode(v any) ([]byte, error) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode MessagePack: %w", err)
	}

	return data, nil
}

// DecodeMap deserializes a MessagePack map into map[string]any.
// Nested maps decode as map[string]any as well, so the result can be
// flattened without knowing the message structure.
func DecodeMap(data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty MessagePack data")
	}

	var result map[string]any
	if err := msgpack.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode MessagePack map: %w", err)
	}

	return result, nil
}

package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/animdiff/internal/ir"
	"github.com/roach88/animdiff/internal/sink"
)

// marshalDelta converts a frame delta to canonical JSON TEXT.
func marshalDelta(delta ir.Object) (string, error) {
	if delta == nil {
		delta = ir.Object{}
	}
	data, err := ir.MarshalCanonical(delta)
	if err != nil {
		return "", fmt.Errorf("marshal delta: %w", err)
	}
	return string(data), nil
}

// unmarshalDelta parses canonical JSON TEXT back into a delta. Integers go
// through json.Number so large values keep their precision.
func unmarshalDelta(data string) (ir.Object, error) {
	if data == "" || data == "{}" {
		return ir.Object{}, nil
	}
	var obj ir.Object
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal delta: %w", err)
	}
	return obj, nil
}

func marshalHeader(h sink.Header) (string, error) {
	data, err := json.Marshal(h)
	if err != nil {
		return "", fmt.Errorf("marshal header: %w", err)
	}
	return string(data), nil
}

func unmarshalHeader(data string) (sink.Header, error) {
	var h sink.Header
	if err := json.Unmarshal([]byte(data), &h); err != nil {
		return sink.Header{}, fmt.Errorf("unmarshal header: %w", err)
	}
	return h, nil
}

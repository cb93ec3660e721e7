package types

import (
	"bytes"
	"encoding/json"
)

// DecodeEnvelope decodes an API response body into v, applying the envelope
// rule: read endpoints return either {"data": {...payload...}} or the payload
// fields directly at the top level. The nested shape is tried first, then the
// flat shape.
//
// The return value reports whether anything decoded. A body matching neither
// shape leaves v at its zero value and returns false; callers treat that as
// an empty default result, never as a hard error, so read paths stay
// resilient to upstream schema drift.
func DecodeEnvelope(body []byte, v any) bool {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return false
	}

	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err == nil && len(env.Data) > 0 && !bytes.Equal(env.Data, []byte("null")) {
		if err := json.Unmarshal(env.Data, v); err == nil {
			return true
		}
		return false
	}

	// Flat shape, also the path for top-level JSON arrays.
	if err := json.Unmarshal(body, v); err == nil {
		return true
	}
	return false
}

package frappekit

import (
	"bytes"
	"encoding/json"

	"github.com/tidwall/gjson"
)

// Shape is the wrapper an endpoint category puts around its payload.
type Shape int

const (
	// ShapeRaw is an unwrapped body.
	ShapeRaw Shape = iota
	// ShapeDocument is a single document under "data".
	ShapeDocument
	// ShapeList is a document array under "data".
	ShapeList
	// ShapeRPC is a method call result under "message", or "data".
	ShapeRPC
)

func (s Shape) String() string {
	switch s {
	case ShapeDocument:
		return "document"
	case ShapeList:
		return "list"
	case ShapeRPC:
		return "rpc"
	default:
		return "raw"
	}
}

// keys returns the wrapper keys probed for s, in priority order. The raw body
// is always the final fallback.
func (s Shape) keys() []string {
	switch s {
	case ShapeDocument, ShapeList:
		return []string{"data"}
	case ShapeRPC:
		return []string{"message", "data"}
	default:
		return nil
	}
}

// Unwrap extracts the payload of raw for the given shape. It never fails: a
// body that does not match the shape is returned as is.
func Unwrap(raw []byte, shape Shape) json.RawMessage {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return json.RawMessage(raw)
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return json.RawMessage(raw)
	}
	for _, key := range shape.keys() {
		v := root.Get(key)
		if v.Exists() && v.Type != gjson.Null {
			return json.RawMessage(v.Raw)
		}
	}
	return json.RawMessage(raw)
}

// Decode unwraps raw and decodes the payload into T. An empty payload, or a
// list payload that is not an array, yields the zero value; any other payload
// that does not fit T is a Malformed error.
func Decode[T any](raw []byte, shape Shape) (T, error) {
	var out T
	payload := Unwrap(raw, shape)
	if len(payload) == 0 {
		return out, nil
	}
	if shape == ShapeList && !gjson.ParseBytes(payload).IsArray() {
		return out, nil
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return out, newMalformedError(err)
	}
	return out, nil
}

// unwrapString returns the payload of raw when it is a JSON string, else "".
func unwrapString(raw []byte, shape Shape) string {
	payload := Unwrap(raw, shape)
	if !gjson.ValidBytes(payload) {
		return ""
	}
	if v := gjson.ParseBytes(payload); v.Type == gjson.String {
		return v.String()
	}
	return ""
}

// DecodeEnvelope is Decode over a transport response.
func DecodeEnvelope[T any](env *Envelope, shape Shape) (T, error) {
	if env == nil {
		var zero T
		return zero, nil
	}
	return Decode[T](env.Body, shape)
}

// CountOf returns the length of the top-level array of raw, else of its
// "data" array, else 0.
func CountOf(raw []byte) int {
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return 0
	}
	root := gjson.ParseBytes(raw)
	if root.IsArray() {
		return int(root.Get("#").Int())
	}
	if data := root.Get("data"); data.IsArray() {
		return int(data.Get("#").Int())
	}
	return 0
}

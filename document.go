package frappekit

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Document is an untyped backend document.
type Document map[string]any

// Name returns the document's primary key.
func (d Document) Name() string {
	return d.String("name")
}

// String returns field as a string, or "" when absent.
func (d Document) String(field string) string {
	v, ok := d[field]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Decode copies the document into out, a pointer to a struct or map. Fields
// are matched by their json tag. Numeric check flags (0/1) decode into bool
// fields and numbers into strings.
func (d Document) Decode(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(map[string]any(d)); err != nil {
		return newMalformedError(err)
	}
	return nil
}

// DecodeDocuments decodes every document of docs into a slice of T.
func DecodeDocuments[T any](docs []Document) ([]T, error) {
	out := make([]T, len(docs))
	for i, d := range docs {
		if err := d.Decode(&out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

package frappekit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Transport is the capability the query and mutation primitives need from the
// network layer. *Client is the production implementation; tests substitute
// a TransportFunc.
type Transport interface {
	Send(ctx context.Context, req *Request) (*Envelope, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req *Request) (*Envelope, error)

// Send implements Transport.
func (f TransportFunc) Send(ctx context.Context, req *Request) (*Envelope, error) {
	return f(ctx, req)
}

// Request describes one call against the backend. Path is relative to the
// client's base URL, e.g. "/api/resource/Task".
type Request struct {
	Method string
	Path   string
	Params url.Values
	// Body is JSON encoded. Ignored when Multipart is set.
	Body      any
	Multipart *MultipartBody
	// OnProgress receives upload progress for the request body.
	OnProgress ProgressFunc
}

// MultipartBody is a pre-encoded multipart/form-data payload.
type MultipartBody struct {
	ContentType string
	Data        []byte
}

// ProgressFunc reports bytes written so far out of total.
type ProgressFunc func(transferred, total int64)

// Envelope is a successful (2xx) raw backend response.
type Envelope struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Middleware wraps the round trip of every request.
type Middleware func(req *http.Request, next RoundTripper) (*http.Response, error)

// RoundTripper represents the HTTP transport interface.
type RoundTripper interface {
	RoundTrip(*http.Request) (*http.Response, error)
}

// RoundTripperFunc is a helper type for middleware.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

// RoundTrip implements RoundTripper.
func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Option configures a Client.
type Option func(*Client)

// FilterOperator is a comparison understood by the resource API.
type FilterOperator string

const (
	OpEquals    FilterOperator = "="
	OpNotEquals FilterOperator = "!="
	OpLess      FilterOperator = "<"
	OpGreater   FilterOperator = ">"
	OpLessEq    FilterOperator = "<="
	OpGreaterEq FilterOperator = ">="
	OpLike      FilterOperator = "like"
	OpNotLike   FilterOperator = "not like"
	OpIn        FilterOperator = "in"
	OpNotIn     FilterOperator = "not in"
	OpIs        FilterOperator = "is"
	OpBetween   FilterOperator = "between"
)

// Filter is a [field, operator, value] condition. It marshals to a JSON array
// because that is the form the resource API accepts.
type Filter struct {
	Field    string
	Operator FilterOperator
	Value    any
}

// F builds a Filter.
func F(field string, op FilterOperator, value any) Filter {
	return Filter{Field: field, Operator: op, Value: value}
}

// MarshalJSON implements json.Marshaler.
func (f Filter) MarshalJSON() ([]byte, error) {
	return encodeJSON([]any{f.Field, string(f.Operator), f.Value})
}

// encodeJSON is json.Marshal without HTML escaping, so operators such as "<="
// and values such as "R&D" reach the server as written.
func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Filter) UnmarshalJSON(b []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(b, &parts); err != nil {
		return err
	}
	if len(parts) != 3 {
		return fmt.Errorf("filter: want 3 elements, got %d", len(parts))
	}
	var op string
	if err := json.Unmarshal(parts[0], &f.Field); err != nil {
		return err
	}
	if err := json.Unmarshal(parts[1], &op); err != nil {
		return err
	}
	f.Operator = FilterOperator(op)
	return json.Unmarshal(parts[2], &f.Value)
}

// SortOrder is the direction of an OrderBy clause.
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// OrderBy sorts a list query.
type OrderBy struct {
	Field string    `json:"field"`
	Order SortOrder `json:"order"`
}

// ListArgs are the arguments of a list query. Zero values are omitted both
// from the wire request and from the cache key.
type ListArgs struct {
	Fields     []string `json:"fields,omitempty"`
	Filters    []Filter `json:"filters,omitempty"`
	OrFilters  []Filter `json:"or_filters,omitempty"`
	LimitStart *int     `json:"limit_start,omitempty"`
	// Limit defaults to DefaultListLimit when nil.
	Limit   *int     `json:"limit,omitempty"`
	OrderBy *OrderBy `json:"order_by,omitempty"`
	AsDict  bool     `json:"as_dict,omitempty"`
}

// Int returns a pointer to n, for ListArgs.Limit and LimitStart.
func Int(n int) *int { return &n }

// Status is the projection a caller renders for a query.
type Status[T any] struct {
	Data         T
	HasData      bool
	IsLoading    bool
	IsValidating bool
	Err          error
	UpdatedAt    time.Time
}

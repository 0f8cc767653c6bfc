package frappekit

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// Sentinel errors for common failure scenarios
var (
	// ErrNotInitialized is returned when a nil *Client is used.
	ErrNotInitialized = errors.New("frappekit: client not initialized")

	// ErrQueryDisabled is returned by Fetch on a disabled query.
	ErrQueryDisabled = errors.New("frappekit: query disabled")
)

// ErrorKind classifies a ClientError.
type ErrorKind string

const (
	ErrorKindNetwork      ErrorKind = "Network"
	ErrorKindServer       ErrorKind = "Server"
	ErrorKindUnauthorized ErrorKind = "Unauthorized"
	ErrorKindMalformed    ErrorKind = "Malformed"
	ErrorKindValidation   ErrorKind = "Validation"
)

// UnknownErrorMessage is the message of last resort.
const UnknownErrorMessage = "Unknown error"

// ClientError is the single error type surfaced by the client, the query
// engine and the mutation runner. Error() returns Message unchanged so it can
// be rendered directly.
type ClientError struct {
	Kind       ErrorKind
	Message    string
	StatusCode int
	Method     string
	Path       string
	RequestID  string
	Cause      error
}

// Error implements error interface.
func (e *ClientError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Message == "" {
		return UnknownErrorMessage
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *ClientError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is compares error kinds for errors.Is.
func (e *ClientError) Is(target error) bool {
	if e == nil {
		return false
	}
	if t, ok := target.(*ClientError); ok {
		return e.Kind == t.Kind
	}
	return false
}

// DebugInfo renders a multi-line string with diagnostic context.
func (e *ClientError) DebugInfo() string {
	if e == nil {
		return "Error: <nil>"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Kind: %s\n", e.Kind)
	fmt.Fprintf(&b, "Message: %s\n", e.Error())
	if e.RequestID != "" {
		fmt.Fprintf(&b, "Request ID: %s\n", e.RequestID)
	}
	if e.Method != "" {
		fmt.Fprintf(&b, "Method: %s\n", e.Method)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, "Path: %s\n", e.Path)
	}
	if e.StatusCode > 0 {
		fmt.Fprintf(&b, "Status Code: %d\n", e.StatusCode)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, "Cause: %v\n", e.Cause)
	}
	return b.String()
}

// KindOf returns the kind of err, or "" if err is not a *ClientError.
func KindOf(err error) ErrorKind {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

// IsUnauthorized reports whether err is a 401/403 response.
func IsUnauthorized(err error) bool {
	return KindOf(err) == ErrorKindUnauthorized
}

// IsTransient determines if an error represents a transient failure that might succeed on retry.
// Network failures and 5xx responses are transient; authorization, validation
// and decode failures are not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var ce *ClientError
	if !errors.As(err, &ce) {
		return !errors.Is(err, context.Canceled)
	}
	switch ce.Kind {
	case ErrorKindNetwork:
		return !errors.Is(ce.Cause, context.Canceled)
	case ErrorKindServer:
		return ce.StatusCode == 0 || ce.StatusCode >= 500 || ce.StatusCode == http.StatusTooManyRequests
	default:
		return false
	}
}

// messageFields are probed in order for a server supplied error message.
var messageFields = []string{"message", "exception", "_error_message"}

// extractMessage picks the human readable message out of an error body.
func extractMessage(body []byte) string {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return ""
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return ""
	}
	for _, field := range messageFields {
		v := root.Get(field)
		if !v.Exists() || v.Type == gjson.Null {
			continue
		}
		var msg string
		if v.Type == gjson.String {
			msg = v.String()
		} else {
			msg = v.Raw
		}
		if strings.TrimSpace(msg) != "" {
			return msg
		}
	}
	return ""
}

func newStatusError(req *Request, requestID string, status int, body []byte) *ClientError {
	kind := ErrorKindServer
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		kind = ErrorKindUnauthorized
	}
	msg := extractMessage(body)
	if msg == "" {
		msg = fmt.Sprintf("request failed with status code %d", status)
	}
	return &ClientError{
		Kind:       kind,
		Message:    msg,
		StatusCode: status,
		Method:     req.Method,
		Path:       req.Path,
		RequestID:  requestID,
	}
}

func newNetworkError(req *Request, requestID string, cause error) *ClientError {
	msg := UnknownErrorMessage
	if cause != nil {
		msg = cause.Error()
		var ne net.Error
		if errors.Is(cause, context.DeadlineExceeded) || (errors.As(cause, &ne) && ne.Timeout()) {
			msg = "request timed out: " + msg
		}
	}
	return &ClientError{
		Kind:      ErrorKindNetwork,
		Message:   msg,
		Method:    req.Method,
		Path:      req.Path,
		RequestID: requestID,
		Cause:     cause,
	}
}

func newMalformedError(cause error) *ClientError {
	return &ClientError{
		Kind:    ErrorKindMalformed,
		Message: "malformed response: " + cause.Error(),
		Cause:   cause,
	}
}

// asClientError wraps foreign errors returned by user supplied fetchers so
// every surfaced error carries a kind and a non-empty message.
func asClientError(err error) error {
	if err == nil {
		return nil
	}
	var ce *ClientError
	if errors.As(err, &ce) {
		return err
	}
	msg := err.Error()
	if msg == "" {
		msg = UnknownErrorMessage
	}
	return &ClientError{Kind: ErrorKindNetwork, Message: msg, Cause: err}
}

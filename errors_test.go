package frappekit

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestClientErrorMessage(t *testing.T) {
	if got := (&ClientError{Kind: ErrorKindServer}).Error(); got != UnknownErrorMessage {
		t.Errorf("Expected %q for an empty message, got %q", UnknownErrorMessage, got)
	}
	if got := (&ClientError{Kind: ErrorKindServer, Message: "Not found"}).Error(); got != "Not found" {
		t.Errorf("Expected message unchanged, got %q", got)
	}
}

func TestClientErrorIs(t *testing.T) {
	err := error(&ClientError{Kind: ErrorKindUnauthorized, Message: "x"})

	if !errors.Is(err, &ClientError{Kind: ErrorKindUnauthorized}) {
		t.Error("Expected errors.Is to match on kind")
	}
	if errors.Is(err, &ClientError{Kind: ErrorKindServer}) {
		t.Error("Expected errors.Is to reject another kind")
	}
	if !IsUnauthorized(err) {
		t.Error("Expected IsUnauthorized")
	}
}

func TestClientErrorUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := &ClientError{Kind: ErrorKindNetwork, Message: cause.Error(), Cause: cause}

	if !errors.Is(err, cause) {
		t.Error("Expected the cause to be reachable")
	}
	info := err.DebugInfo()
	for _, want := range []string{"Kind: Network", "Cause: dial tcp: refused"} {
		if !strings.Contains(info, want) {
			t.Errorf("DebugInfo() missing %q:\n%s", want, info)
		}
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"network", &ClientError{Kind: ErrorKindNetwork}, true},
		{"cancelled", &ClientError{Kind: ErrorKindNetwork, Cause: context.Canceled}, false},
		{"500", &ClientError{Kind: ErrorKindServer, StatusCode: 500}, true},
		{"429", &ClientError{Kind: ErrorKindServer, StatusCode: 429}, true},
		{"417", &ClientError{Kind: ErrorKindServer, StatusCode: 417}, false},
		{"unauthorized", &ClientError{Kind: ErrorKindUnauthorized, StatusCode: 403}, false},
		{"malformed", &ClientError{Kind: ErrorKindMalformed}, false},
		{"foreign", errors.New("boom"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractMessage(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"message":"a","exception":"b"}`, "a"},
		{`{"message":"","exception":"b"}`, "b"},
		{`{"message":null,"_error_message":"c"}`, "c"},
		{`{"message":{"code":1}}`, `{"code":1}`},
		{`{"exc":"trace"}`, ""},
		{`["message"]`, ""},
		{`not json`, ""},
		{``, ""},
	}
	for _, tt := range tests {
		if got := extractMessage([]byte(tt.body)); got != tt.want {
			t.Errorf("extractMessage(%s) = %q, want %q", tt.body, got, tt.want)
		}
	}
}

func TestAsClientError(t *testing.T) {
	if asClientError(nil) != nil {
		t.Fatal("Expected nil for nil")
	}

	ce := &ClientError{Kind: ErrorKindServer, Message: "x"}
	if asClientError(ce) != error(ce) {
		t.Error("Expected a ClientError to pass through")
	}

	err := asClientError(errors.New(""))
	if KindOf(err) != ErrorKindNetwork || err.Error() != UnknownErrorMessage {
		t.Errorf("Expected a Network error with the fallback message, got %s %q", KindOf(err), err.Error())
	}
}

package frappekit

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestFilterJSON(t *testing.T) {
	args := ListArgs{Filters: []Filter{
		F("status", OpEquals, "Open"),
		F("idx", OpLessEq, 3),
		F("subject", OpLike, "%R&D <draft>%"),
	}}

	got := listParams(args).Get("filters")
	want := `[["status","=","Open"],["idx","<=",3],["subject","like","%R&D <draft>%"]]`
	if got != want {
		t.Errorf("Unexpected encoding\n got %s\nwant %s", got, want)
	}

	key := NewKey("ToDo", "list", args)
	if !strings.Contains(key.Args, `"<="`) || !strings.Contains(key.Args, "R&D") {
		t.Errorf("Expected unescaped operators in the key, got %s", key.Args)
	}

	var back []Filter
	if err := json.Unmarshal([]byte(got), &back); err != nil {
		t.Fatalf("Unmarshal() returned error: %v", err)
	}
	if back[1].Field != "idx" || back[1].Operator != OpLessEq || back[1].Value != 3.0 {
		t.Errorf("Unexpected filter %+v", back[1])
	}
	if back[2].Value != "%R&D <draft>%" {
		t.Errorf("Unexpected value %v", back[2].Value)
	}

	var bad Filter
	if err := json.Unmarshal([]byte(`["status","="]`), &bad); err == nil {
		t.Error("Expected an error for a two element filter")
	}
}

func TestEncodeJSON(t *testing.T) {
	data, err := encodeJSON(map[string]string{"q": "a<b&c"})
	if err != nil {
		t.Fatalf("encodeJSON() returned error: %v", err)
	}
	if string(data) != `{"q":"a<b&c"}` {
		t.Errorf("Unexpected encoding %s", data)
	}
}

func TestListArgsOmitEmpty(t *testing.T) {
	data, err := json.Marshal(ListArgs{})
	if err != nil {
		t.Fatalf("Marshal() returned error: %v", err)
	}
	if string(data) != `{}` {
		t.Errorf("Expected empty args to encode as {}, got %s", data)
	}
}

func TestTransportFunc(t *testing.T) {
	var got string
	tr := TransportFunc(func(ctx context.Context, r *Request) (*Envelope, error) {
		got = r.Path
		return jsonEnvelope(`{}`), nil
	})
	if _, err := tr.Send(context.Background(), &Request{Path: "/x"}); err != nil {
		t.Fatalf("Send() returned error: %v", err)
	}
	if got != "/x" {
		t.Errorf("Expected /x, got %s", got)
	}
}

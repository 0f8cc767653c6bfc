package frappekit

import (
	"testing"
)

func TestNewKeyCanonical(t *testing.T) {
	a := NewKey("ToDo", "list", ListArgs{
		Filters: []Filter{F("status", OpEquals, "Open")},
		Limit:   Int(5),
	})
	b := NewKey("ToDo", "list", ListArgs{
		Limit:   Int(5),
		Filters: []Filter{F("status", OpEquals, "Open")},
	})
	if a != b {
		t.Errorf("Expected equal keys, got %s and %s", a, b)
	}

	p1 := NewKey("/api/method/x", "call", Params{"b": 2, "a": 1})
	p2 := NewKey("/api/method/x", "call", Params{"a": 1, "b": 2})
	if p1 != p2 {
		t.Errorf("Expected map key order not to matter, got %s and %s", p1, p2)
	}

	c := NewKey("ToDo", "list", ListArgs{Filters: []Filter{F("status", OpEquals, "Closed")}, Limit: Int(5)})
	if a == c {
		t.Error("Expected different filters to give different keys")
	}
}

func TestNewKeyString(t *testing.T) {
	if got := NewKey("ToDo", "doc", "TODO-1"); got.Args != "TODO-1" {
		t.Errorf("Expected string args verbatim, got %q", got.Args)
	}
	if got := NewKey("auth", "currentUser", nil).String(); got != "auth:currentUser" {
		t.Errorf("Unexpected key string %q", got)
	}
	if got := NewKey("ToDo", "doc", "TODO-1").String(); got != "ToDo:doc:TODO-1" {
		t.Errorf("Unexpected key string %q", got)
	}
}

func TestKeyMatchers(t *testing.T) {
	doc := NewKey("ToDo", "doc", "TODO-1")
	list := NewKey("ToDo", "list", nil)
	other := NewKey("Note", "list", nil)

	if !MatchKey(doc)(doc) || MatchKey(doc)(list) {
		t.Error("MatchKey should match exactly")
	}
	if !MatchResource("ToDo")(list) || MatchResource("ToDo")(other) {
		t.Error("MatchResource should match by resource")
	}
	if !MatchAll()(other) {
		t.Error("MatchAll should match everything")
	}
}

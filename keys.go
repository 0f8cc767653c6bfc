package frappekit

import (
	"fmt"
)

// Key identifies one cache entry. Keys are comparable, so two keys built from
// structurally equal arguments are equal.
type Key struct {
	Resource string
	Op       string
	Args     string
}

// NewKey builds a Key whose Args is the canonical JSON encoding of args.
// Struct fields encode in declaration order and map keys sorted, so the
// encoding is stable; slice order (e.g. filters) is kept and is part of the
// key.
func NewKey(resource, op string, args any) Key {
	k := Key{Resource: resource, Op: op}
	switch a := args.(type) {
	case nil:
	case string:
		k.Args = a
	default:
		b, err := encodeJSON(a)
		if err != nil {
			k.Args = fmt.Sprintf("%v", a)
		} else {
			k.Args = string(b)
		}
	}
	return k
}

// String renders the key for logs.
func (k Key) String() string {
	if k.Args == "" {
		return k.Resource + ":" + k.Op
	}
	return k.Resource + ":" + k.Op + ":" + k.Args
}

// KeyMatcher selects keys for bulk invalidation.
type KeyMatcher func(Key) bool

// MatchKey matches exactly k.
func MatchKey(k Key) KeyMatcher {
	return func(other Key) bool { return other == k }
}

// MatchResource matches every key of a resource.
func MatchResource(resource string) KeyMatcher {
	return func(k Key) bool { return k.Resource == resource }
}

// MatchAll matches every key.
func MatchAll() KeyMatcher {
	return func(Key) bool { return true }
}

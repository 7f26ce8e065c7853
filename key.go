package querycache

import (
	"encoding/json"
	"fmt"
)

// Key identifies one query cache entry: an endpoint name plus the
// canonical serialization of its arguments. Two Initiate calls with
// structurally equal arguments always produce the same Key, regardless
// of map iteration or struct field order at the call site.
type Key struct {
	Endpoint string
	Args     string
}

// NewKey builds the cache key for endpoint and args. Args may be nil for
// argument-less endpoints. Arguments must be JSON-serializable.
func NewKey(endpoint string, args any) (Key, error) {
	if endpoint == "" {
		return Key{}, ErrEndpointRequired
	}
	if args == nil {
		return Key{Endpoint: endpoint}, nil
	}
	normalized, err := canonicalJSON(args)
	if err != nil {
		return Key{}, fmt.Errorf("serialize args for %q: %w", endpoint, err)
	}
	return Key{Endpoint: endpoint, Args: normalized}, nil
}

// String renders the key in "endpoint(args)" form. Used as the map key
// for the entry table, the tag graph, and the snapshot store.
func (k Key) String() string {
	if k.Args == "" {
		return k.Endpoint + "()"
	}
	return k.Endpoint + "(" + k.Args + ")"
}

// canonicalJSON re-encodes value through an untyped round-trip so object
// keys come out sorted at every nesting level.
func canonicalJSON(value any) (string, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", err
	}
	out, err := json.Marshal(generic)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

package platform

import (
	"fmt"
	"strings"
)

// Registry maps stable platform keys to adapters. Keys are normalized to
// lowercase trimmed form so "LeetCode " and "leetcode" address the same
// adapter.
type Registry struct {
	adapters map[string]Adapter
	order    []string
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Normalize returns the canonical form of a platform key.
func Normalize(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func (r *Registry) Register(a Adapter) {
	key := Normalize(a.Key())
	if _, exists := r.adapters[key]; !exists {
		r.order = append(r.order, key)
	}
	r.adapters[key] = a
}

func (r *Registry) Get(key string) (Adapter, error) {
	a, ok := r.adapters[Normalize(key)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlatform, key)
	}
	return a, nil
}

// All returns adapters in registration order.
func (r *Registry) All() []Adapter {
	out := make([]Adapter, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.adapters[key])
	}
	return out
}

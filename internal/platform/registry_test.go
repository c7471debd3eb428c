package platform

import (
	"errors"
	"testing"
)

type stubAdapter struct {
	key  string
	name string
}

func (s *stubAdapter) Key() string         { return s.key }
func (s *stubAdapter) DisplayName() string { return s.name }

func TestRegistryNormalizesKeys(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&stubAdapter{key: "leetcode", name: "LeetCode"})

	for _, lookup := range []string{"leetcode", "LeetCode", "  LEETCODE  "} {
		adapter, err := registry.Get(lookup)
		if err != nil {
			t.Errorf("Get(%q): %v", lookup, err)
			continue
		}
		if adapter.Key() != "leetcode" {
			t.Errorf("Get(%q): unexpected adapter %q", lookup, adapter.Key())
		}
	}
}

func TestRegistryUnknownPlatform(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.Get("nope")
	if !errors.Is(err, ErrUnknownPlatform) {
		t.Errorf("expected ErrUnknownPlatform, got %v", err)
	}
}

func TestRegistryAllPreservesOrder(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&stubAdapter{key: "github"})
	registry.Register(&stubAdapter{key: "strava"})
	registry.Register(&stubAdapter{key: "notion"})
	// Re-registering replaces in place, it does not reorder.
	registry.Register(&stubAdapter{key: "github", name: "GitHub v2"})

	all := registry.All()
	want := []string{"github", "strava", "notion"}
	if len(all) != len(want) {
		t.Fatalf("expected %d adapters, got %d", len(want), len(all))
	}
	for i, key := range want {
		if all[i].Key() != key {
			t.Errorf("position %d: expected %q, got %q", i, key, all[i].Key())
		}
	}
	if all[0].DisplayName() != "GitHub v2" {
		t.Error("expected re-registration to replace the adapter")
	}
}

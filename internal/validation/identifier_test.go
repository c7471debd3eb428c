package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateIdentifier(t *testing.T) {
	valid := []string{"alice", "alice_b", "a.b-c", "User123", "x"}
	for _, id := range valid {
		if err := ValidateIdentifier(id); err != nil {
			t.Errorf("ValidateIdentifier(%q): %v", id, err)
		}
	}

	if err := ValidateIdentifier(""); !errors.Is(err, ErrIdentifierRequired) {
		t.Errorf("expected required error, got %v", err)
	}
	if err := ValidateIdentifier("   "); !errors.Is(err, ErrIdentifierRequired) {
		t.Errorf("expected required error for whitespace, got %v", err)
	}

	invalid := []string{"has space", "semi;colon", "sla/sh", "ünïcode", strings.Repeat("a", 70)}
	for _, id := range invalid {
		if err := ValidateIdentifier(id); !errors.Is(err, ErrIdentifierInvalid) {
			t.Errorf("ValidateIdentifier(%q): expected invalid error, got %v", id, err)
		}
	}
}

func TestValidateEmail(t *testing.T) {
	if err := ValidateEmail("alice@example.com"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	for _, email := range []string{"", "no-at-sign", "@missing-local.com"} {
		if err := ValidateEmail(email); !errors.Is(err, ErrEmailInvalid) {
			t.Errorf("ValidateEmail(%q): expected invalid error, got %v", email, err)
		}
	}
}

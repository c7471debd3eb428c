package validation

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrIdentifierRequired = errors.New("profile identifier is required")
	ErrIdentifierInvalid  = errors.New("profile identifier contains invalid characters")
)

// Platform handles are usernames: letters, digits and a few separators.
var identifierRegex = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// ValidateIdentifier checks a platform-native profile handle.
func ValidateIdentifier(identifier string) error {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return ErrIdentifierRequired
	}
	if !identifierRegex.MatchString(identifier) {
		return ErrIdentifierInvalid
	}
	return nil
}

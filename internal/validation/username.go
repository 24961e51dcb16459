package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// MinUsernameLen is the minimum display name length in runes
	MinUsernameLen = 1
	// MaxUsernameLen is the maximum display name length in runes
	MaxUsernameLen = 32
)

// NormalizeUsername trims surrounding whitespace from a display name.
// Lookup in the identity registry is by exact match on the normalized name.
func NormalizeUsername(username string) string {
	return strings.TrimSpace(username)
}

// ValidateUsername checks that a normalized display name is acceptable.
// Display names are free-form (any printable text, spaces allowed) but must
// be non-empty after trimming and at most MaxUsernameLen runes long.
// This runs at the caller boundary; the identity registry itself never
// rejects a name.
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("username cannot be empty")
	}

	n := utf8.RuneCountInString(username)
	if n < MinUsernameLen {
		return fmt.Errorf("username must be at least %d character long", MinUsernameLen)
	}
	if n > MaxUsernameLen {
		return fmt.Errorf("username must not exceed %d characters", MaxUsernameLen)
	}

	if strings.ContainsAny(username, "\n\r\t") {
		return fmt.Errorf("username cannot contain control characters")
	}

	return nil
}

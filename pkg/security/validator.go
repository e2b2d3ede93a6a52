package security

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxNameLength is the maximum number of characters in a stored name.
	MaxNameLength = 100
	// MaxDelimiterLength is the maximum number of characters in a join delimiter.
	MaxDelimiterLength = 16
)

// ValidateName trims and checks a person name before it is stored.
// Letters, marks, spaces, hyphens, apostrophes and dots are allowed.
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("name must not be empty")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", errors.New("name too long")
	}

	for _, r := range name {
		if !isValidNameChar(r) {
			return "", errors.New("name contains invalid characters")
		}
	}

	return name, nil
}

func isValidNameChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.Is(unicode.Mn, r) ||
		r == ' ' || r == '-' || r == '\'' || r == '.'
}

// ValidateDelimiter checks a delimiter used to join rendered users.
// The empty delimiter is valid.
func ValidateDelimiter(delimiter string) error {
	if utf8.RuneCountInString(delimiter) > MaxDelimiterLength {
		return errors.New("delimiter too long")
	}
	for _, r := range delimiter {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			return errors.New("delimiter contains control characters")
		}
	}
	return nil
}

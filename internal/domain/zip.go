package domain

import (
	"errors"
	"fmt"
	"regexp"
)

var (
	ErrInvalidZIP  = errors.New("please enter a valid 5-digit ZIP code")
	ErrZIPNotFound = errors.New("could not find ZIP code")
)

var (
	zipRe = regexp.MustCompile(`^\d{5}$`)

	// postalPrefixRe matches the leading 5-digit ZIP of "76102", "76102-1234"
	// or compound values such as "76102;76103".
	postalPrefixRe = regexp.MustCompile(`^\s*(\d{5})(?:$|[^\d])`)
)

// ValidateZIP checks that zip is exactly five digits.
func ValidateZIP(zip string) error {
	if !zipRe.MatchString(zip) {
		return fmt.Errorf("%w: %q", ErrInvalidZIP, zip)
	}
	return nil
}

// NormalizePostalCode returns the first five digits of a US postal code, or
// "" when the value does not start with a 5-digit ZIP.
func NormalizePostalCode(code string) string {
	m := postalPrefixRe.FindStringSubmatch(code)
	if len(m) != 2 {
		return ""
	}
	return m[1]
}

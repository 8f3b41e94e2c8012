// Package postcode normalizes UK postcodes to the canonical spaced form.
package postcode

import (
	"fmt"
	"regexp"
	"strings"
)

// Outward: one or two letters, a digit, then an optional letter or digit.
// Inward: a digit followed by two letters. Whitespace between the halves is
// optional so unspaced input is accepted.
var postcodeRegexp = regexp.MustCompile(`^([A-Z]{1,2}[0-9][A-Z0-9]?)\s*([0-9][A-Z]{2})$`)

// Normalize returns the canonical form: uppercase, single space between the
// outward and inward codes. Input may be unspaced or oddly spaced.
func Normalize(raw string) (string, error) {
	cleaned := strings.ToUpper(strings.TrimSpace(raw))

	matches := postcodeRegexp.FindStringSubmatch(cleaned)
	if matches == nil {
		return "", fmt.Errorf("invalid UK postcode: %q", raw)
	}

	return matches[1] + " " + matches[2], nil
}

// NoSpace returns the compact form used for unspaced lookups.
func NoSpace(normalized string) string {
	return strings.ReplaceAll(normalized, " ", "")
}

// Valid reports whether raw parses as a UK postcode.
func Valid(raw string) bool {
	_, err := Normalize(raw)
	return err == nil
}

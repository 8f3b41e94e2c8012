// Package address normalizes free-text street and city names for matching.
package address

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Common street suffix abbreviations expanded before title-casing. Keys are
// compared against uppercase tokens.
var streetAbbreviations = map[string]string{
	"RD":   "ROAD",
	"ST":   "STREET",
	"AVE":  "AVENUE",
	"AV":   "AVENUE",
	"DR":   "DRIVE",
	"LN":   "LANE",
	"CT":   "COURT",
	"PL":   "PLACE",
	"CL":   "CLOSE",
	"CRES": "CRESCENT",
	"TERR": "TERRACE",
	"GRN":  "GREEN",
	"GDN":  "GARDEN",
	"GDNS": "GARDENS",
	"SQ":   "SQUARE",
	"PK":   "PARK",
	"BLVD": "BOULEVARD",
}

var multiSpace = regexp.MustCompile(`\s+`)

var titleCaser = cases.Title(language.BritishEnglish)

// NormalizeStreet collapses whitespace, expands suffix abbreviations, and
// title-cases the result. Empty input yields "".
func NormalizeStreet(raw string) string {
	cleaned := multiSpace.ReplaceAllString(strings.TrimSpace(raw), " ")
	if cleaned == "" {
		return ""
	}

	tokens := strings.Split(strings.ToUpper(cleaned), " ")
	for i, token := range tokens {
		if full, ok := streetAbbreviations[token]; ok {
			tokens[i] = full
		}
	}

	return titleCaser.String(strings.ToLower(strings.Join(tokens, " ")))
}

// NormalizeCity collapses whitespace and title-cases. Empty input yields "".
func NormalizeCity(raw string) string {
	cleaned := multiSpace.ReplaceAllString(strings.TrimSpace(raw), " ")
	if cleaned == "" {
		return ""
	}

	return titleCaser.String(strings.ToLower(cleaned))
}

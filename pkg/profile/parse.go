package profile

import (
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	missingTokens = []string{"null", "na", "n/a"}

	booleanTokens = []string{"true", "false", "t", "f", "yes", "no"}

	dateFormats = []string{
		"2006-01-02",
		"2006/01/02",
		"01/02/2006",
		"2006-01-02 15:04:05",
		time.RFC3339,
		time.RFC3339Nano,
	}
)

// minDateLen is the length of the shortest accepted date layout.
const minDateLen = len("2006-01-02")

// IsMissing reports whether a trimmed value is a missing-value token.
func IsMissing(trimmed string) bool {
	if trimmed == "" {
		return true
	}

	for _, tok := range missingTokens {
		if strings.EqualFold(trimmed, tok) {
			return true
		}
	}

	return false
}

// Classify returns the most specific type of a trimmed, non-missing value and
// its numeric value when the type is Integer or Numeric.
func Classify(trimmed string) (DataType, float64) {
	if _, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		f, _ := strconv.ParseFloat(trimmed, 64)

		return TypeInteger, f
	}

	if f, ok := parseFinite(trimmed); ok {
		return TypeNumeric, f
	}

	if ParseBool(trimmed) {
		return TypeBoolean, 0
	}

	if ParseDate(trimmed) {
		return TypeDate, 0
	}

	return TypeString, 0
}

// ParseBool reports whether s is a recognized boolean token.
func ParseBool(s string) bool {
	for _, tok := range booleanTokens {
		if strings.EqualFold(s, tok) {
			return true
		}
	}

	return false
}

// ParseDate reports whether s matches one of the accepted date layouts.
func ParseDate(s string) bool {
	if len(s) < minDateLen || s[0] < '0' || s[0] > '9' {
		return false
	}

	for _, layout := range dateFormats {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}

	return false
}

// parseFinite parses a decimal float, rejecting NaN, infinities, and hex
// notation which strconv would otherwise accept.
func parseFinite(s string) (float64, bool) {
	if s == "" || strings.ContainsAny(s, "xXnN_") {
		return 0, false
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}

	return f, true
}

// ParseNumber parses raw as a number the way column inference does. It
// reports false for missing tokens and non-numeric text.
func ParseNumber(raw string) (float64, bool) {
	trimmed := strings.TrimSpace(raw)
	if IsMissing(trimmed) {
		return 0, false
	}

	kind, f := Classify(trimmed)
	if !kind.IsNumeric() {
		return 0, false
	}

	return f, true
}

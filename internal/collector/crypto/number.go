package crypto

import (
	"math"
	"strconv"
	"strings"
)

// ParseDecimal parses a string-typed numeric field using locale-independent
// decimal syntax. Malformed input yields NaN rather than zero so that bad
// upstream data stays visible to the caller.
func ParseDecimal(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// ParseDecimalPtr is ParseDecimal for optional fields. An absent field
// (empty string) yields nil.
func ParseDecimalPtr(s string) *float64 {
	if s == "" {
		return nil
	}
	v := ParseDecimal(s)
	return &v
}

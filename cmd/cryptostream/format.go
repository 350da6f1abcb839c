package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// formatCurrency renders a price with thousands separators and two
// decimals, or six below one dollar.
func formatCurrency(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	decimals := 2
	if math.Abs(v) < 1 && v != 0 {
		decimals = 6
	}
	return "$" + groupThousands(strconv.FormatFloat(v, 'f', decimals, 64))
}

func formatLargeNumber(v float64) string {
	switch {
	case math.IsNaN(v):
		return "n/a"
	case v >= 1e9:
		return fmt.Sprintf("$%.2fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("$%.2fM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("$%.2fK", v/1e3)
	default:
		return fmt.Sprintf("$%.2f", v)
	}
}

func formatPercentage(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	s := strconv.FormatFloat(v, 'f', 2, 64) + "%"
	if v > 0 {
		return "+" + s
	}
	return s
}

func formatTimestamp(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04")
}

func groupThousands(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, hasFrac := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return sign + b.String()
}

package aggregate

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// fixed renders v with exactly places decimals, e.g. fixed(1.5, 2) = "1.50"
func fixed(v float64, places int32) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero.StringFixed(places)
	}
	return decimal.NewFromFloat(v).StringFixed(places)
}

// grouped renders v with at most places decimals, trailing zeros trimmed and comma thousands separators,
// e.g. grouped(1234567.5, 2) = "1,234,567.5"
func grouped(v float64, places int32) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}

	s := decimal.NewFromFloat(v).Round(places).String()

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}

	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}

	var b strings.Builder
	b.Grow(len(s) + len(s)/3 + 1)
	b.WriteString(sign)
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteString(frac)

	return b.String()
}

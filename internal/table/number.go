package table

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Round rounds like numpy.round: scale by 10^places in float64, round half
// to even, scale back. Round(1.015, 2) is 1.01 because 1.015*100 is 101.49999999999999.
// NaN and infinities pass through unchanged.
func Round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	scaled := v * math.Pow10(int(places))
	if math.IsInf(scaled, 0) {
		return v
	}
	// the shortest repr of scaled is an exact .5 only when scaled is
	f, _ := decimal.NewFromFloat(scaled).RoundBank(0).Shift(-places).Float64()
	return f
}

// ParseFloat reads numbers written with either a decimal point or a decimal
// comma ("1.234,5" and "1234.5" both parse). Blank text is missing.
func ParseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// FormatFloat renders a float without exponent or trailing zeros
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

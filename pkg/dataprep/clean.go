package dataprep

import (
	"math"
	"strconv"
	"strings"
)

// NormalizeDecimal rewrites comma decimal separators to periods.
func NormalizeDecimal(s string) string {
	s = strings.TrimSpace(s)
	if strings.ContainsRune(s, ',') {
		s = strings.ReplaceAll(s, ",", ".")
	}
	return s
}

// ParseDecimal parses a locale formatted number ("70,35" or "70.35").
// Empty, unparseable and non-finite values come back as NaN with ok=false.
func ParseDecimal(s string) (v float64, ok bool) {
	s = NormalizeDecimal(s)
	if s == "" {
		return math.NaN(), false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return math.NaN(), false
	}
	return v, true
}

// AllMissing reports whether every value is NaN (true for an empty column).
func AllMissing(col []float64) bool {
	for _, v := range col {
		if !math.IsNaN(v) {
			return false
		}
	}
	return true
}

package tvt

import (
	"math"
	"strconv"
	"strings"
)

// IntKey stringifies an integer mapping key: decimal, no leading zeros,
// sign only when negative.
func IntKey(i int64) string {
	return strconv.FormatInt(i, 10)
}

// UintKey stringifies an unsigned integer mapping key.
func UintKey(u uint64) string {
	return strconv.FormatUint(u, 10)
}

// FormatFloat renders f so that it always reads back as a float: the
// result carries a decimal point or an exponent ("3.0", "1.5e+21").
// Non-finite values render as Go does ("NaN", "+Inf").
func FormatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if strings.ContainsRune(s, '.') {
		return s
	}
	if i := strings.IndexByte(s, 'e'); i >= 0 {
		return s[:i] + ".0" + s[i:]
	}
	return s + ".0"
}

// IsFinite reports whether f is neither NaN nor infinite.
func IsFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

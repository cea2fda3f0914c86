// Package calc derives financial metrics and ratios from a session's raw
// values and records every derivation as an audit-trail step.
package calc

// Divide returns n/d, or def when d is zero.
func Divide(n, d, def float64) float64 {
	if d == 0 {
		return def
	}
	return n / d
}

func safeDiv(numerator, denominator float64) float64 {
	return Divide(numerator, denominator, 0)
}

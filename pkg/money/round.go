// Package money provides boundary rounding helpers for price values.
// Rounding happens only when a price leaves the engine; intermediate
// arithmetic stays in full float precision.
package money

import "github.com/shopspring/decimal"

// Round2 rounds v to two decimal places, half away from zero.
func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// Fixed2 formats v with exactly two decimal places.
func Fixed2(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// Clamp bounds v into [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp01 bounds v into the unit interval.
func Clamp01(v float64) float64 {
	return Clamp(v, 0, 1)
}

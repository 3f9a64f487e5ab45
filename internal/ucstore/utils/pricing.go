package utils

import (
	"math"
)

// DiscountPercent returns the percentage saved by paying discountPrice instead
// of price, rounded to two decimals. Non-positive prices and discount prices at
// or above price yield zero.
func DiscountPercent(price, discountPrice float64) float64 {
	if price <= 0 || discountPrice >= price {
		return 0
	}
	return Round2((price - discountPrice) / price * 100)
}

// DiscountConsistent reports whether percent matches the price/discountPrice
// ratio within one point
func DiscountConsistent(price, discountPrice, percent float64) bool {
	expected := math.Round((1 - discountPrice/price) * 100)
	if price <= 0 {
		expected = 0
	}
	return math.Abs(expected-percent) <= 1
}

// Round2 rounds v to two decimal places
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Last returns the last n characters of s, or s itself when shorter
func Last(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// Package core provides money parsing and handling utilities.
//
// Ledger cells arrive as free text ("$1,234.50", "12.3", "") and must always
// become a finite number; anything unparsable normalizes to zero.
package core

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a currency cell to a float, stripping "$", thousands
// separators and surrounding whitespace. Parenthesized values are negative.
// Unparsable input yields 0.
//
// Examples:
//
//	ParseAmount("$1,234.50") -> 1234.5
//	ParseAmount("(4.50)")    -> -4.5
//	ParseAmount("abc")       -> 0
func ParseAmount(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	if neg {
		d = d.Neg()
	}
	return Finite(d.InexactFloat64())
}

// CoerceAmount accepts a raw JSON number or string.
func CoerceAmount(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return Finite(n)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return ParseAmount(s)
	}
	return 0
}

// Finite maps NaN and infinities to zero.
func Finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// RoundCents rounds half away from zero to two decimals.
func RoundCents(f float64) float64 {
	return decimal.NewFromFloat(Finite(f)).Round(2).InexactFloat64()
}

// FormatDollars renders an amount as "$12.34" for budget cells.
func FormatDollars(f float64) string {
	d := decimal.NewFromFloat(Finite(f)).Round(2)
	if d.IsNegative() {
		return "-$" + d.Abs().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}

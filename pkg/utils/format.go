// Package utils provides shared utility functions.
package utils

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// FormatPrice formats a quote price with thousands separators and a
// precision that scales down with the price so sub-cent coins stay readable.
func FormatPrice(price float64) string {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return "n/a"
	}

	places := PricePlaces(price)
	d := decimal.NewFromFloat(price).Round(places)

	intPart, decPart, _ := strings.Cut(d.Abs().StringFixed(places), ".")
	result := groupThousands(intPart)
	if decPart != "" {
		result += "." + decPart
	}
	if d.IsNegative() {
		result = "-" + result
	}
	return result
}

// PricePlaces returns the number of decimals FormatPrice uses for price.
func PricePlaces(price float64) int32 {
	abs := math.Abs(price)
	switch {
	case abs >= 100:
		return 2
	case abs >= 1:
		return 4
	case abs >= 0.01:
		return 6
	default:
		return 8
	}
}

// groupThousands formats an integer string with Western digit grouping.
func groupThousands(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	var b strings.Builder
	head := n % 3
	if head > 0 {
		b.WriteString(s[:head])
	}
	for i := head; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatPercent formats a percentage with sign.
func FormatPercent(value float64) string {
	sign := ""
	if value > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, value)
}

// FormatSigned formats a value with an explicit sign and the given decimals.
func FormatSigned(value float64, places int) string {
	return fmt.Sprintf("%+.*f", places, value)
}

// FormatVolume formats a traded volume compactly, e.g. 1.2M.
func FormatVolume(volume float64) string {
	if volume < 1000 {
		return humanize.FormatFloat("#,###.##", volume)
	}
	value, prefix := humanize.ComputeSI(volume)
	return compact(value) + strings.ToUpper(prefix)
}

// FormatRatio formats a multiple such as a volume ratio or risk-reward.
func FormatRatio(value float64) string {
	return compact(value) + "x"
}

// compact rounds to two decimals and drops trailing zeros.
func compact(value float64) string {
	return decimal.NewFromFloat(value).Round(2).String()
}

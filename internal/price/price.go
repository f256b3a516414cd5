// Package price normalizes Dutch-locale currency display strings.
package price

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// numericRun matches the first run of digits, optionally with dot groups and
// a comma decimal part, e.g. "1.250,00", "45,50", "30", "12.5".
var numericRun = regexp.MustCompile(`\d[\d.]*(?:,\d+)?`)

// Parse extracts the first numeric run from s. A comma is the decimal
// separator. Dots are thousands separators when every dot group has exactly
// three digits, otherwise the last dot is read as a decimal point. Strings
// without digits, and anything that fails to parse, yield zero.
func Parse(s string) decimal.Decimal {
	run := numericRun.FindString(s)
	if run == "" {
		return decimal.Zero
	}
	run = strings.TrimRight(run, ".")

	var normalized string
	if whole, frac, ok := strings.Cut(run, ","); ok {
		normalized = strings.ReplaceAll(whole, ".", "") + "." + frac
	} else {
		normalized = normalizeDots(run)
	}

	d, err := decimal.NewFromString(normalized)
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func normalizeDots(run string) string {
	parts := strings.Split(run, ".")
	if len(parts) == 1 {
		return run
	}
	for _, group := range parts[1:] {
		if len(group) != 3 {
			last := len(parts) - 1
			return strings.Join(parts[:last], "") + "." + parts[last]
		}
	}
	return strings.Join(parts, "")
}

// FromCents converts an integer cent amount. Negative amounts clamp to zero.
func FromCents(cents int64) decimal.Decimal {
	if cents <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(cents).Shift(-2)
}

// Format renders d the way the marketplace displays prices.
func Format(d decimal.Decimal) string {
	return "€ " + strings.Replace(d.StringFixed(2), ".", ",", 1)
}

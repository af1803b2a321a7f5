package calculator

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Colombian peso formatting: "." groups thousands, "," separates decimals.

// FormatCOP formats an amount as whole pesos.
// Example: 45000 -> "$45.000"
func FormatCOP(amount float64) string {
	return withSymbol(formatGrouped(decimal.NewFromFloat(amount), 0))
}

// FormatCOPWithDecimals formats an amount with two decimals.
// Example: 45000.5 -> "$45.000,50"
func FormatCOPWithDecimals(amount float64) string {
	return withSymbol(formatGrouped(decimal.NewFromFloat(amount), 2))
}

// FormatNumberForInput formats an amount for an input field, without symbol.
// Example: 45000 -> "45.000"
func FormatNumberForInput(amount float64) string {
	digits, neg := formatGrouped(decimal.NewFromFloat(amount), 0)
	if neg {
		return "-" + digits
	}
	return digits
}

func withSymbol(digits string, neg bool) string {
	if neg {
		return "-$" + digits
	}
	return "$" + digits
}

// ParseCOP parses a displayed price back into a number.
// Anything other than digits, "." and "," is ignored. Returns 0 when the
// input holds no number.
// Example: "$45.000" -> 45000, "12.500,50" -> 12500.5
func ParseCOP(value string) float64 {
	var sb strings.Builder
	for _, r := range value {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			sb.WriteRune(r)
		}
	}
	normalized := strings.ReplaceAll(sb.String(), ".", "")
	normalized = strings.Replace(normalized, ",", ".", 1)
	if i := strings.Index(normalized, ","); i >= 0 {
		normalized = normalized[:i]
	}

	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return 0
	}
	f, _ := d.Float64()
	return f
}

// formatGrouped renders |d| with the given decimal places, "." as thousands
// separator and "," as decimal separator. neg reports whether the rounded
// value is below zero.
func formatGrouped(d decimal.Decimal, places int32) (digits string, neg bool) {
	rounded := d.Round(places)
	s := rounded.Abs().StringFixed(places)

	intPart, frac, _ := strings.Cut(s, ".")

	var sb strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			sb.WriteByte('.')
		}
		sb.WriteRune(r)
	}
	if places > 0 {
		sb.WriteByte(',')
		sb.WriteString(frac)
	}
	return sb.String(), rounded.IsNegative()
}

package calculator

import "math"

// ChargeKind selects how a tax or tip value is applied.
type ChargeKind string

const (
	ChargeFixed      ChargeKind = "fixed"
	ChargePercentage ChargeKind = "percentage"
)

// Charge is a tax or tip configuration.
type Charge struct {
	Kind  ChargeKind
	Value float64
}

// Amount computes the charge against the global subtotal.
// Percentages are clamped to [0, 100]; fixed amounts are floored at 0 and do
// not scale with the subtotal.
func (c Charge) Amount(subtotal float64) float64 {
	if c.Kind == ChargePercentage {
		return subtotal * (math.Max(0, math.Min(c.Value, 100)) / 100)
	}
	return math.Max(0, c.Value)
}

// Totals is the bill-level result of applying tip and tax to a subtotal.
type Totals struct {
	Subtotal float64
	Tip      float64
	Tax      float64
	Total    float64
}

// CalculateTotals applies tip and tax to subtotal.
func CalculateTotals(subtotal float64, tip, tax Charge) Totals {
	t := Totals{
		Subtotal: subtotal,
		Tip:      tip.Amount(subtotal),
		Tax:      tax.Amount(subtotal),
	}
	t.Total = t.Subtotal + t.Tip + t.Tax
	return t
}

package pricing

import (
	"github.com/shopspring/decimal"
)

// RoundMode selects how fractional yen are settled on invoice lines
type RoundMode string

// Rounding modes
const (
	RoundHalfUp RoundMode = "half_up"
	RoundDown   RoundMode = "down"
	RoundUp     RoundMode = "up"
)

// LineAmounts is the money breakdown of one order line
type LineAmounts struct {
	SubtotalExTax decimal.Decimal `json:"subtotal_ex_tax"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	TotalInTax    decimal.Decimal `json:"total_in_tax"`
}

// CalculateLineAmounts computes the line subtotal, consumption tax and
// total. The discount is subtracted before tax; both the subtotal and
// the tax amount are rounded to whole yen with the given mode.
func CalculateLineAmounts(unitPrice decimal.Decimal, qty int, taxRate, discount decimal.Decimal, mode RoundMode) LineAmounts {
	subtotal := roundYen(unitPrice.Mul(decimal.NewFromInt(int64(qty))).Sub(discount), mode)
	tax := roundYen(subtotal.Mul(taxRate), mode)
	return LineAmounts{
		SubtotalExTax: subtotal,
		TaxAmount:     tax,
		TotalInTax:    subtotal.Add(tax),
	}
}

func roundYen(v decimal.Decimal, mode RoundMode) decimal.Decimal {
	switch mode {
	case RoundDown:
		return v.RoundDown(0)
	case RoundUp:
		return v.RoundUp(0)
	default:
		return v.Round(0)
	}
}

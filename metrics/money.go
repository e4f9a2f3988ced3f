// ABOUTME: Money rounding and display helpers
// ABOUTME: Rounds to paise with decimal arithmetic and formats rupee amounts with grouping
package metrics

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// CurrencySymbol prefixes every displayed amount.
const CurrencySymbol = "₹"

var printer = message.NewPrinter(language.English)

// RoundMoney rounds v to 2 decimal places, half away from zero.
func RoundMoney(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// AddMoney returns round(total + delta, 2) without float drift.
func AddMoney(total, delta float64) float64 {
	return decimal.NewFromFloat(total).Add(decimal.NewFromFloat(delta)).Round(2).InexactFloat64()
}

// FormatMoney renders v as "₹12,345.50".
func FormatMoney(v float64) string {
	v = RoundMoney(v)
	if v < 0 {
		return "-" + CurrencySymbol + printer.Sprintf("%.2f", -v)
	}
	return CurrencySymbol + printer.Sprintf("%.2f", v)
}

// FormatPercent renders v with one decimal place.
func FormatPercent(v float64) string {
	return printer.Sprintf("%.1f%%", v)
}

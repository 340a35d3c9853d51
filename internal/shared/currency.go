package shared

import (
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var currencyPrinter = message.NewPrinter(language.MustParse("es-DO"))

// FormatCurrency renders an amount using the symbol of the given ISO 4217
// currency code, falling back to a plain two-decimal figure when the code is
// unknown. Receipts and reports use DOP by default.
func FormatCurrency(amount float64, code string) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return currencyPrinter.Sprintf("%.2f", amount)
	}
	return currencyPrinter.Sprintf("%v", currency.Symbol(unit.Amount(amount)))
}

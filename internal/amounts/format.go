package amounts

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var printer = message.NewPrinter(language.English)

// FormatNumber renders an amount with grouping and two fraction digits.
func FormatNumber(d decimal.Decimal) string {
	f := d.Round(2).InexactFloat64()
	return printer.Sprint(number.Decimal(f, number.Scale(2)))
}

// Format prefixes FormatNumber with the currency code.
func Format(d decimal.Decimal, currency string) string {
	if currency == "" {
		return FormatNumber(d)
	}
	return currency + " " + FormatNumber(d)
}

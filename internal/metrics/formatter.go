package metrics

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// printer is the locale-aware message printer for number formatting.
//
//nolint:gochecknoglobals // Global printer is idiomatic for x/text/message usage.
var printer = message.NewPrinter(language.English)

// currencySymbols maps ISO codes to the symbol printed before amounts.
//
//nolint:gochecknoglobals // Read-only lookup table.
var currencySymbols = map[string]string{
	"BRL": "R$",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
}

// FormatNumber formats an integer with thousand separators.
// Example: FormatNumber(18248) returns "18,248".
func FormatNumber(n int64) string {
	return printer.Sprintf("%d", n)
}

// FormatFloat formats a float with the specified precision and thousand separators.
// Example: FormatFloat(1234.567, 2) returns "1,234.57".
func FormatFloat(f float64, precision int) string {
	rounded := Round(f, precision)
	if precision <= 0 {
		return FormatNumber(int64(rounded))
	}

	formatted := fmt.Sprintf("%.*f", precision, math.Abs(rounded))
	intPart, fracPart, _ := strings.Cut(formatted, ".")

	var whole int64
	for _, c := range intPart {
		whole = whole*10 + int64(c-'0')
	}

	sign := ""
	if rounded < 0 {
		sign = "-"
	}
	return sign + FormatNumber(whole) + "." + fracPart
}

// FormatKWh formats an energy value, e.g. "1,234.50 kWh".
func FormatKWh(kwh float64) string {
	return FormatFloat(kwh, 2) + " kWh"
}

// FormatPercent formats a percentage with one decimal, e.g. "87.3%".
func FormatPercent(p float64) string {
	return FormatFloat(p, 1) + "%"
}

// FormatSignedPercent formats a change with an explicit sign, e.g. "+4.2%".
func FormatSignedPercent(p float64) string {
	if p > 0 {
		return "+" + FormatPercent(p)
	}
	return FormatPercent(p)
}

// FormatMoney formats an amount in the given ISO 4217 currency, e.g.
// "R$ 1,234.56". Codes without a known symbol are printed as the code.
func FormatMoney(amount float64, code string) (string, error) {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownCurrency, code)
	}

	symbol, ok := currencySymbols[unit.String()]
	if !ok {
		symbol = unit.String()
	}
	return symbol + " " + FormatFloat(amount, 2), nil
}

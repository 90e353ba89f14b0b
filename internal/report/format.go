package report

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Formatter renders counts, money and rates with thousands grouping.
type Formatter struct {
	printer  *message.Printer
	currency string
}

// NewFormatter builds a formatter for the given currency symbol.
func NewFormatter(currency string) *Formatter {
	return &Formatter{
		printer:  message.NewPrinter(language.English),
		currency: currency,
	}
}

// Count formats an integer as 1,234.
func (f *Formatter) Count(n int) string {
	return f.printer.Sprintf("%d", n)
}

// Money formats an amount as "R$ 1,234.56".
func (f *Formatter) Money(v float64) string {
	if f.currency == "" {
		return f.printer.Sprintf("%.2f", v)
	}
	return f.currency + " " + f.printer.Sprintf("%.2f", v)
}

// Percent formats a 0-100 rate as 12.3%.
func (f *Formatter) Percent(v float64) string {
	return f.printer.Sprintf("%.1f%%", v)
}

// Package money converts between the stored integer subunit (paisa) and the rupee
// amounts shown to and typed by admins.
package money

import (
	"math"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Paisa is an amount in the smallest currency unit. 100 paisa make one rupee.
type Paisa int64

// FromRupees converts a rupee amount to paisa, rounding to the nearest paisa.
func FromRupees(rupees float64) Paisa {
	return Paisa(math.Round(rupees * 100))
}

// RoundRupees rounds a rupee amount to the nearest paisa.
func RoundRupees(rupees float64) float64 {
	return FromRupees(rupees).Rupees()
}

// Rupees returns the display amount.
func (p Paisa) Rupees() float64 {
	return float64(p) / 100
}

// DefaultPrinter formats with Indian English conventions.
func DefaultPrinter() *message.Printer {
	return message.NewPrinter(language.MustParse("en-IN"))
}

// Format renders p as a localized INR amount. A nil printer uses DefaultPrinter.
func Format(p Paisa, printer *message.Printer) string {
	if printer == nil {
		printer = DefaultPrinter()
	}
	return printer.Sprint(currency.Symbol(currency.INR.Amount(p.Rupees())))
}

// FormatRupees renders a rupee float the backend already converted.
func FormatRupees(rupees float64, printer *message.Printer) string {
	return Format(FromRupees(rupees), printer)
}

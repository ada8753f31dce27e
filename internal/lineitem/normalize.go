package lineitem

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseEuro converts a receipt figure such as "1.234,56" or "-0,99" into a decimal.
// "." is a thousands separator and "," the decimal separator. A figure that
// does not convert is returned as an invalid NullDecimal, never an error.
func ParseEuro(s string) decimal.NullDecimal {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// CleanSpace collapses whitespace runs into single spaces and trims the ends
func CleanSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

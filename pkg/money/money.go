// Package money converts between the decimal amounts used at the JSON edge and
// the integer minor units (cents) used everywhere else.
package money

import "github.com/shopspring/decimal"

// MaxUnitAmountCents is the largest unit amount the payment processor accepts.
const MaxUnitAmountCents int64 = 99_999_999

// Cents rounds a decimal amount half away from zero into minor units.
func Cents(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// FromCents lifts minor units back into a two-place decimal.
func FromCents(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Shift(-2)
}

// Format renders minor units as a fixed two-decimal string, e.g. 4000 -> "40.00".
func Format(cents int64) string {
	return FromCents(cents).StringFixed(2)
}

// WithinUnitLimit reports whether amount is non-negative and no larger than
// MaxUnitAmountCents once rounded to minor units.
func WithinUnitLimit(amount decimal.Decimal) bool {
	if amount.IsNegative() {
		return false
	}
	return amount.Shift(2).Round(0).LessThanOrEqual(decimal.NewFromInt(MaxUnitAmountCents))
}

package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// ErrCurrencyMismatch indicates arithmetic across different currencies.
var ErrCurrencyMismatch = errors.New("money: currency mismatch")

// Money is an exact decimal amount in a single currency.
type Money struct {
	Amount   decimal.Decimal
	Currency string
}

// New builds a Money value without rounding.
func New(amount decimal.Decimal, code string) Money {
	return Money{Amount: amount, Currency: code}
}

// Zero returns the zero amount in the given currency.
func Zero(code string) Money {
	return Money{Amount: decimal.Zero, Currency: code}
}

// MinorUnits returns the number of minor-unit digits for an ISO currency
// code. Unknown codes fall back to two digits.
func MinorUnits(code string) int32 {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return 2
	}
	scale, _ := currency.Standard.Rounding(unit)
	return int32(scale)
}

// Extend computes quantity * price rounded to the currency's minor units.
// This is the only place amounts are rounded; later aggregation adds the
// already-rounded values exactly.
func Extend(quantity, price decimal.Decimal, code string) Money {
	return Money{Amount: quantity.Mul(price).Round(MinorUnits(code)), Currency: code}
}

// Round snaps the amount to the currency's minor-unit precision.
func (m Money) Round() Money {
	return Money{Amount: m.Amount.Round(MinorUnits(m.Currency)), Currency: m.Currency}
}

// Add returns m + o. Cross-currency addition is a caller error.
func (m Money) Add(o Money) (Money, error) {
	if m.Currency != o.Currency {
		return Money{}, fmt.Errorf("%w: %s + %s", ErrCurrencyMismatch, m.Currency, o.Currency)
	}
	return Money{Amount: m.Amount.Add(o.Amount), Currency: m.Currency}, nil
}

// Sub returns m - o. Cross-currency subtraction is a caller error.
func (m Money) Sub(o Money) (Money, error) {
	if m.Currency != o.Currency {
		return Money{}, fmt.Errorf("%w: %s - %s", ErrCurrencyMismatch, m.Currency, o.Currency)
	}
	return Money{Amount: m.Amount.Sub(o.Amount), Currency: m.Currency}, nil
}

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool {
	return m.Amount.IsNegative()
}

// Equal reports exact equality of currency and amount.
func (m Money) Equal(o Money) bool {
	return m.Currency == o.Currency && m.Amount.Equal(o.Amount)
}

func (m Money) String() string {
	return m.Amount.StringFixed(MinorUnits(m.Currency)) + " " + m.Currency
}

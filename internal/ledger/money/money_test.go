package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestExtendRoundsToMinorUnits(t *testing.T) {
	qty := decimal.NewFromInt(3)
	price := decimal.RequireFromString("9.995")

	got := Extend(qty, price, "USD")
	require.Equal(t, "29.99", got.Amount.StringFixed(2))

	// JPY carries no minor units.
	jpy := Extend(qty, price, "JPY")
	require.Equal(t, "30", jpy.Amount.String())
}

func TestAddSameCurrencyIsExact(t *testing.T) {
	a := New(decimal.RequireFromString("0.10"), "USD")
	b := New(decimal.RequireFromString("0.20"), "USD")

	sum, err := a.Add(b)
	require.NoError(t, err)
	require.True(t, sum.Amount.Equal(decimal.RequireFromString("0.30")))
}

func TestAddCurrencyMismatch(t *testing.T) {
	a := Zero("USD")
	b := Zero("EUR")

	_, err := a.Add(b)
	require.ErrorIs(t, err, ErrCurrencyMismatch)

	_, err = a.Sub(b)
	require.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestMinorUnitsFallback(t *testing.T) {
	require.EqualValues(t, 2, MinorUnits("???"))
	require.EqualValues(t, 0, MinorUnits("JPY"))
}

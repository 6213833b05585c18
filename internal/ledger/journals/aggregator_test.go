package journals

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/halcyon-erp/halcyon/internal/ledger/money"
	"github.com/halcyon-erp/halcyon/internal/ledger/shared"
)

func usd(s string) money.Money {
	return money.New(decimal.RequireFromString(s), "USD")
}

func TestAggregatorMergesSameAccountSide(t *testing.T) {
	agg := NewAggregator()
	require.NoError(t, agg.Add(1000, SideDebit, usd("50.00")))
	require.NoError(t, agg.Add(4000, SideCredit, usd("50.00")))
	require.NoError(t, agg.Add(1000, SideDebit, usd("2.00")))

	dists := agg.Distributions()
	require.Len(t, dists, 2)
	require.Equal(t, int64(1000), dists[0].AccountID)
	require.Equal(t, "52.00", dists[0].Debit.Amount.StringFixed(2))
	require.Equal(t, "0.00", dists[0].Credit.Amount.StringFixed(2))
	require.Equal(t, int64(4000), dists[1].AccountID)
	require.Equal(t, "50.00", dists[1].Credit.Amount.StringFixed(2))
}

func TestAggregatorPreservesFirstTouchedOrder(t *testing.T) {
	agg := NewAggregator()
	for _, id := range []int64{7, 3, 9, 3, 7} {
		require.NoError(t, agg.Add(id, SideDebit, usd("1.00")))
	}
	dists := agg.Distributions()
	require.Equal(t, []int64{dists[0].AccountID, dists[1].AccountID, dists[2].AccountID}, []int64{7, 3, 9})
}

func TestAggregatorRejectsCrossCurrency(t *testing.T) {
	agg := NewAggregator()
	require.NoError(t, agg.Add(1, SideDebit, usd("1.00")))
	err := agg.Add(1, SideDebit, money.New(decimal.New(1, 0), "EUR"))
	require.ErrorIs(t, err, money.ErrCurrencyMismatch)
}

func TestCheckBalance(t *testing.T) {
	balanced := []Distribution{
		{AccountID: 1000, Debit: usd("52.00"), Credit: usd("0")},
		{AccountID: 4000, Debit: usd("0"), Credit: usd("50.00")},
		{AccountID: 2100, Debit: usd("0"), Credit: usd("2.00")},
	}
	require.NoError(t, CheckBalance(balanced))

	unbalanced := []Distribution{
		{AccountID: 1000, Debit: usd("52.00"), Credit: usd("0")},
		{AccountID: 4000, Debit: usd("0"), Credit: usd("50.00")},
	}
	require.ErrorIs(t, CheckBalance(unbalanced), shared.ErrUnbalanced)

	require.Error(t, CheckBalance(nil))

	negative := []Distribution{
		{AccountID: 1000, Debit: usd("-1.00"), Credit: usd("0")},
		{AccountID: 4000, Debit: usd("0"), Credit: usd("-1.00")},
	}
	require.Error(t, CheckBalance(negative))
}

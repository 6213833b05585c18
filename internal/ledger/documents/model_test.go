package documents

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/halcyon-erp/halcyon/internal/ledger/journals"
)

func amt(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr[T any](v T) *T { return &v }

func TestComputeTotalsBillLike(t *testing.T) {
	doc := Document{
		Type: DocTypeInvoice, Currency: "USD",
		Freight: amt("3.50"), Tax: amt("2.00"),
		Lines: []Line{
			{Quantity: amt("10"), UnitPrice: amt("5.00")},
			{Quantity: amt("3"), UnitPrice: amt("1.25")},
		},
	}
	doc.ComputeTotals()
	require.True(t, doc.Subtotal.Equal(amt("53.75")))
	require.True(t, doc.Total.Equal(amt("59.25")))
	// An unposted document is fully open.
	require.True(t, doc.Balance.Equal(doc.Total))
}

func TestComputeTotalsJournalSumsDebits(t *testing.T) {
	doc := Document{
		Type: DocTypeJournal, Currency: "USD",
		Lines: []Line{
			{AccountID: ptr(int64(1)), Side: journals.SideDebit, Amount: amt("40.00")},
			{AccountID: ptr(int64(2)), Side: journals.SideCredit, Amount: amt("40.00")},
		},
	}
	doc.ComputeTotals()
	require.True(t, doc.Subtotal.Equal(amt("40.00")))
	require.True(t, doc.Total.Equal(amt("40.00")))
}

func TestValidateJournalLines(t *testing.T) {
	doc := Document{
		ID: 5, Type: DocTypeJournal, Currency: "USD",
		Date: time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
		Lines: []Line{
			{Side: journals.SideDebit, Amount: amt("10.00")},
		},
	}
	require.ErrorContains(t, doc.Validate(), "missing account")

	doc.Lines[0].AccountID = ptr(int64(1))
	doc.Lines[0].Amount = amt("-1")
	require.ErrorContains(t, doc.Validate(), "positive")

	doc.Lines[0].Amount = amt("10.00")
	require.NoError(t, doc.Validate())
}

func TestValidateRejectsNegativeCharges(t *testing.T) {
	doc := Document{
		ID: 6, Type: DocTypeInvoice, Currency: "USD",
		Freight: amt("-1"),
		Lines:   []Line{{Quantity: amt("1"), UnitPrice: amt("1.00")}},
	}
	require.ErrorContains(t, doc.Validate(), "freight")
}

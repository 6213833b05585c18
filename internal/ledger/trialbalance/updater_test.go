package trialbalance

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/halcyon-erp/halcyon/internal/ledger/accounts"
	"github.com/halcyon-erp/halcyon/internal/ledger/journals"
	"github.com/halcyon-erp/halcyon/internal/ledger/money"
	"github.com/halcyon-erp/halcyon/internal/ledger/shared"
)

type memoryTxStore struct {
	rows   map[int64]*Row // keyed by row id
	byKey  map[[2]int64]int64
	nextID int64
}

func newMemoryTxStore() *memoryTxStore {
	return &memoryTxStore{rows: make(map[int64]*Row), byKey: make(map[[2]int64]int64)}
}

func (s *memoryTxStore) seed(accountID, periodID int64) {
	s.nextID++
	row := &Row{ID: s.nextID, AccountID: accountID, PeriodID: periodID, Currency: "USD",
		Balance: decimal.Zero, Debits: decimal.Zero, Credits: decimal.Zero}
	s.rows[row.ID] = row
	s.byKey[[2]int64{accountID, periodID}] = row.ID
}

func (s *memoryTxStore) GetRowForUpdate(ctx context.Context, accountID, periodID int64) (Row, error) {
	id, ok := s.byKey[[2]int64{accountID, periodID}]
	if !ok {
		return Row{}, shared.ErrNoOpenTrialBalance
	}
	return *s.rows[id], nil
}

func (s *memoryTxStore) ApplyRowDelta(ctx context.Context, rowID int64, balance, debits, credits decimal.Decimal) error {
	row := s.rows[rowID]
	row.Balance = row.Balance.Add(balance)
	row.Debits = row.Debits.Add(debits)
	row.Credits = row.Credits.Add(credits)
	return nil
}

func (s *memoryTxStore) balance(accountID, periodID int64) string {
	id := s.byKey[[2]int64{accountID, periodID}]
	return s.rows[id].Balance.String()
}

func ptr(v int64) *int64 { return &v }

func usd(s string) money.Money {
	return money.New(decimal.RequireFromString(s), "USD")
}

func testDir() *accounts.Directory {
	return accounts.NewDirectory([]accounts.Account{
		{ID: 1, Code: "1", Type: accounts.AccountTypeAsset},
		{ID: 10, Code: "10", Type: accounts.AccountTypeAsset, ParentID: ptr(1)},
		{ID: 100, Code: "1000", Type: accounts.AccountTypeAsset, ParentID: ptr(10)},
		{ID: 40, Code: "4000", Type: accounts.AccountTypeRevenue},
	}, nil)
}

func TestApplyRollsUpAncestorChain(t *testing.T) {
	store := newMemoryTxStore()
	for _, acct := range []int64{1, 10, 100, 40} {
		store.seed(acct, 5)
	}
	u := NewUpdater()

	err := u.Apply(context.Background(), store, testDir(), 5, []journals.Distribution{
		{AccountID: 100, Debit: usd("52.00"), Credit: usd("0")},
		{AccountID: 40, Debit: usd("0"), Credit: usd("52.00")},
	})
	require.NoError(t, err)

	// Asset debit raises the leaf and every ancestor by the same amount.
	require.Equal(t, "52", store.balance(100, 5))
	require.Equal(t, "52", store.balance(10, 5))
	require.Equal(t, "52", store.balance(1, 5))
	// Revenue credit raises the revenue balance.
	require.Equal(t, "52", store.balance(40, 5))

	// Activity lands only on leaf rows.
	leaf := store.rows[store.byKey[[2]int64{100, 5}]]
	require.Equal(t, "52", leaf.Debits.String())
	parent := store.rows[store.byKey[[2]int64{10, 5}]]
	require.True(t, parent.Debits.IsZero())
	require.True(t, parent.Credits.IsZero())
}

func TestApplyMissingRowIsFatal(t *testing.T) {
	store := newMemoryTxStore()
	u := NewUpdater()

	err := u.Apply(context.Background(), store, testDir(), 5, []journals.Distribution{
		{AccountID: 100, Debit: usd("1.00"), Credit: usd("0")},
	})
	require.ErrorIs(t, err, shared.ErrNoOpenTrialBalance)
}

func TestReverseRestoresBalances(t *testing.T) {
	store := newMemoryTxStore()
	for _, acct := range []int64{1, 10, 100, 40} {
		store.seed(acct, 5)
	}
	u := NewUpdater()
	dists := []journals.Distribution{
		{AccountID: 100, Debit: usd("10.00"), Credit: usd("0")},
		{AccountID: 40, Debit: usd("0"), Credit: usd("10.00")},
	}

	require.NoError(t, u.Apply(context.Background(), store, testDir(), 5, dists))
	require.NoError(t, u.Reverse(context.Background(), store, testDir(), 5, dists))

	for _, acct := range []int64{1, 10, 100, 40} {
		require.Equal(t, "0", store.balance(acct, 5))
	}
}

func TestSignedDeltaConvention(t *testing.T) {
	one := decimal.NewFromInt(1)
	require.Equal(t, "1", signedDelta(accounts.AccountTypeAsset, one, decimal.Zero).String())
	require.Equal(t, "-1", signedDelta(accounts.AccountTypeAsset, decimal.Zero, one).String())
	require.Equal(t, "1", signedDelta(accounts.AccountTypeExpense, one, decimal.Zero).String())
	require.Equal(t, "1", signedDelta(accounts.AccountTypeLiability, decimal.Zero, one).String())
	require.Equal(t, "1", signedDelta(accounts.AccountTypeEquity, decimal.Zero, one).String())
	require.Equal(t, "1", signedDelta(accounts.AccountTypeRevenue, decimal.Zero, one).String())
	require.Equal(t, "-1", signedDelta(accounts.AccountTypeRevenue, one, decimal.Zero).String())
}

package periods

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/halcyon-erp/halcyon/internal/ledger/accounts"
	"github.com/halcyon-erp/halcyon/internal/ledger/shared"
	"github.com/halcyon-erp/halcyon/internal/ledger/trialbalance"
)

type memoryPeriodsRepo struct {
	periods    map[int64]*Period
	rows       map[int64]*trialbalance.Row
	nextPeriod int64
	nextRow    int64
}

func newMemoryPeriodsRepo() *memoryPeriodsRepo {
	return &memoryPeriodsRepo{
		periods: make(map[int64]*Period),
		rows:    make(map[int64]*trialbalance.Row),
	}
}

func (r *memoryPeriodsRepo) ordered() []Period {
	out := make([]Period, 0, len(r.periods))
	for _, p := range r.periods {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndDate.Before(out[j].EndDate) })
	return out
}

func (r *memoryPeriodsRepo) List(ctx context.Context) ([]Period, error) { return r.ordered(), nil }

func (r *memoryPeriodsRepo) FindOpenByDate(ctx context.Context, date time.Time) (Period, error) {
	for _, p := range r.ordered() {
		if p.Status == PeriodStatusOpen && p.Contains(date) {
			return p, nil
		}
	}
	return Period{}, shared.ErrInvalidPeriod
}

func (r *memoryPeriodsRepo) Get(ctx context.Context, id int64) (Period, error) {
	p, ok := r.periods[id]
	if !ok {
		return Period{}, shared.ErrPeriodNotFound
	}
	return *p, nil
}

func (r *memoryPeriodsRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, r)
}

func (r *memoryPeriodsRepo) ListForUpdate(ctx context.Context) ([]Period, error) {
	return r.ordered(), nil
}

func (r *memoryPeriodsRepo) InsertPeriod(ctx context.Context, in CreatePeriodInput) (Period, error) {
	r.nextPeriod++
	p := &Period{ID: r.nextPeriod, Code: in.Code, StartDate: in.StartDate, EndDate: in.EndDate, Status: PeriodStatusOpen}
	r.periods[p.ID] = p
	return *p, nil
}

func (r *memoryPeriodsRepo) UpdateStatus(ctx context.Context, id int64, status PeriodStatus, closedAt *time.Time) error {
	p, ok := r.periods[id]
	if !ok {
		return shared.ErrPeriodNotFound
	}
	p.Status = status
	p.ClosedAt = closedAt
	return nil
}

func (r *memoryPeriodsRepo) DeletePeriod(ctx context.Context, id int64) error {
	if _, ok := r.periods[id]; !ok {
		return shared.ErrPeriodNotFound
	}
	delete(r.periods, id)
	return nil
}

func (r *memoryPeriodsRepo) TrialBalances() TrialBalanceTx { return r }

func (r *memoryPeriodsRepo) Insert(ctx context.Context, row trialbalance.Row) (trialbalance.Row, error) {
	r.nextRow++
	row.ID = r.nextRow
	r.rows[row.ID] = &row
	return row, nil
}

func (r *memoryPeriodsRepo) HasActivity(ctx context.Context, periodID int64) (bool, error) {
	for _, row := range r.rows {
		if row.PeriodID == periodID && (!row.Debits.IsZero() || !row.Credits.IsZero()) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryPeriodsRepo) DeleteByPeriod(ctx context.Context, periodID int64) error {
	for id, row := range r.rows {
		if row.PeriodID == periodID {
			delete(r.rows, id)
		}
	}
	return nil
}

func (r *memoryPeriodsRepo) ClosingBalances(ctx context.Context, periodID int64) (map[int64]decimal.Decimal, error) {
	out := make(map[int64]decimal.Decimal)
	for _, row := range r.rows {
		if row.PeriodID == periodID {
			out[row.AccountID] = row.Balance
		}
	}
	return out, nil
}

func (r *memoryPeriodsRepo) RowIDsByPeriod(ctx context.Context, periodID int64) (map[int64]int64, error) {
	out := make(map[int64]int64)
	for _, row := range r.rows {
		if row.PeriodID == periodID {
			out[row.AccountID] = row.ID
		}
	}
	return out, nil
}

type staticAccounts []accounts.Account

func (s staticAccounts) List(ctx context.Context) ([]accounts.Account, error) { return s, nil }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testAccounts() staticAccounts {
	return staticAccounts{
		{ID: 100, Code: "1000", Type: accounts.AccountTypeAsset},
		{ID: 400, Code: "4000", Type: accounts.AccountTypeRevenue},
	}
}

func TestCreateSeedsTrialBalanceRows(t *testing.T) {
	repo := newMemoryPeriodsRepo()
	svc := NewService(repo, testAccounts())

	p1, err := svc.Create(context.Background(), CreatePeriodInput{
		Code: "2026-01", StartDate: day(2026, 1, 1), EndDate: day(2026, 1, 31), Currency: "USD",
	})
	require.NoError(t, err)
	require.Equal(t, PeriodStatusOpen, p1.Status)
	require.Len(t, repo.rows, 2)

	// Seed the prior closing balance and make sure the next period inherits it.
	for _, row := range repo.rows {
		if row.AccountID == 100 {
			row.Balance = decimal.RequireFromString("52.00")
		}
	}
	p2, err := svc.Create(context.Background(), CreatePeriodInput{
		Code: "2026-02", StartDate: day(2026, 2, 1), EndDate: day(2026, 2, 28), Currency: "USD",
	})
	require.NoError(t, err)
	require.Len(t, repo.rows, 4)
	var inherited *trialbalance.Row
	for _, row := range repo.rows {
		if row.PeriodID == p2.ID && row.AccountID == 100 {
			inherited = row
		}
	}
	require.NotNil(t, inherited)
	require.Equal(t, "52", inherited.Balance.String())
	require.NotNil(t, inherited.PreviousID)
}

func TestCreateRejectsGapAndOverlap(t *testing.T) {
	repo := newMemoryPeriodsRepo()
	svc := NewService(repo, testAccounts())

	_, err := svc.Create(context.Background(), CreatePeriodInput{
		Code: "2026-01", StartDate: day(2026, 1, 1), EndDate: day(2026, 1, 31), Currency: "USD",
	})
	require.NoError(t, err)

	// Gap: starts a day late.
	_, err = svc.Create(context.Background(), CreatePeriodInput{
		Code: "2026-02", StartDate: day(2026, 2, 2), EndDate: day(2026, 2, 28), Currency: "USD",
	})
	require.ErrorIs(t, err, shared.ErrPeriodSequence)

	// Overlap: starts inside the prior period.
	_, err = svc.Create(context.Background(), CreatePeriodInput{
		Code: "2026-02", StartDate: day(2026, 1, 31), EndDate: day(2026, 2, 28), Currency: "USD",
	})
	require.ErrorIs(t, err, shared.ErrPeriodSequence)
}

func TestCloseRequiresEarlierPeriodsClosed(t *testing.T) {
	repo := newMemoryPeriodsRepo()
	svc := NewService(repo, testAccounts())

	p1, err := svc.Create(context.Background(), CreatePeriodInput{
		Code: "2026-01", StartDate: day(2026, 1, 1), EndDate: day(2026, 1, 31), Currency: "USD",
	})
	require.NoError(t, err)
	p2, err := svc.Create(context.Background(), CreatePeriodInput{
		Code: "2026-02", StartDate: day(2026, 2, 1), EndDate: day(2026, 2, 28), Currency: "USD",
	})
	require.NoError(t, err)

	require.ErrorIs(t, svc.Close(context.Background(), p2.ID), shared.ErrPeriodSequence)

	require.NoError(t, svc.Close(context.Background(), p1.ID))
	require.NoError(t, svc.Close(context.Background(), p2.ID))

	got, err := svc.Get(context.Background(), p2.ID)
	require.NoError(t, err)
	require.Equal(t, PeriodStatusClosed, got.Status)

	require.ErrorIs(t, svc.Close(context.Background(), p2.ID), shared.ErrAlreadyClosed)
}

func TestOpenRequiresLaterPeriodsOpen(t *testing.T) {
	repo := newMemoryPeriodsRepo()
	svc := NewService(repo, testAccounts())

	p1, _ := svc.Create(context.Background(), CreatePeriodInput{
		Code: "2026-01", StartDate: day(2026, 1, 1), EndDate: day(2026, 1, 31), Currency: "USD",
	})
	p2, _ := svc.Create(context.Background(), CreatePeriodInput{
		Code: "2026-02", StartDate: day(2026, 2, 1), EndDate: day(2026, 2, 28), Currency: "USD",
	})
	require.NoError(t, svc.Close(context.Background(), p1.ID))
	require.NoError(t, svc.Close(context.Background(), p2.ID))

	// p1 cannot reopen while p2 stays closed.
	require.ErrorIs(t, svc.Open(context.Background(), p1.ID), shared.ErrPeriodSequence)

	require.NoError(t, svc.Open(context.Background(), p2.ID))
	require.NoError(t, svc.Open(context.Background(), p1.ID))

	require.ErrorIs(t, svc.Open(context.Background(), p1.ID), shared.ErrAlreadyOpen)
}

func TestDeleteOnlyTrailingInactivePeriod(t *testing.T) {
	repo := newMemoryPeriodsRepo()
	svc := NewService(repo, testAccounts())

	p1, _ := svc.Create(context.Background(), CreatePeriodInput{
		Code: "2026-01", StartDate: day(2026, 1, 1), EndDate: day(2026, 1, 31), Currency: "USD",
	})
	p2, _ := svc.Create(context.Background(), CreatePeriodInput{
		Code: "2026-02", StartDate: day(2026, 2, 1), EndDate: day(2026, 2, 28), Currency: "USD",
	})

	require.ErrorIs(t, svc.Delete(context.Background(), p1.ID), shared.ErrPeriodSequence)

	for _, row := range repo.rows {
		if row.PeriodID == p2.ID && row.AccountID == 100 {
			row.Debits = decimal.NewFromInt(5)
		}
	}
	require.ErrorIs(t, svc.Delete(context.Background(), p2.ID), ErrPeriodHasActivity)

	for _, row := range repo.rows {
		row.Debits = decimal.Zero
	}
	require.NoError(t, svc.Delete(context.Background(), p2.ID))
	_, err := svc.Get(context.Background(), p2.ID)
	require.ErrorIs(t, err, shared.ErrPeriodNotFound)
}

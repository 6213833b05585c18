package periods

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/halcyon-erp/halcyon/internal/ledger/shared"
	"github.com/halcyon-erp/halcyon/internal/ledger/trialbalance"
)

// Repository exposes period reads plus a transactional scope covering the
// period chain and its trial-balance rows.
type Repository interface {
	List(ctx context.Context) ([]Period, error)
	FindOpenByDate(ctx context.Context, date time.Time) (Period, error)
	Get(ctx context.Context, id int64) (Period, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TrialBalanceTx is the slice of trial-balance operations period lifecycle
// events need inside their transaction.
type TrialBalanceTx interface {
	Insert(ctx context.Context, row trialbalance.Row) (trialbalance.Row, error)
	HasActivity(ctx context.Context, periodID int64) (bool, error)
	DeleteByPeriod(ctx context.Context, periodID int64) error
	ClosingBalances(ctx context.Context, periodID int64) (map[int64]decimal.Decimal, error)
	RowIDsByPeriod(ctx context.Context, periodID int64) (map[int64]int64, error)
}

// TxRepository exposes period writes within a transaction.
type TxRepository interface {
	ListForUpdate(ctx context.Context) ([]Period, error)
	InsertPeriod(ctx context.Context, in CreatePeriodInput) (Period, error)
	UpdateStatus(ctx context.Context, id int64, status PeriodStatus, closedAt *time.Time) error
	DeletePeriod(ctx context.Context, id int64) error
	TrialBalances() TrialBalanceTx
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const periodColumns = `id, code, start_date, end_date, status, closed_at, created_at, updated_at`

func scanPeriod(scan func(...any) error) (Period, error) {
	var p Period
	err := scan(&p.ID, &p.Code, &p.StartDate, &p.EndDate, &p.Status, &p.ClosedAt, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *repository) List(ctx context.Context) ([]Period, error) {
	rows, err := r.db.Query(ctx, `SELECT `+periodColumns+` FROM fiscal_periods ORDER BY end_date ASC`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrStoreUnavailable, err)
	}
	defer rows.Close()
	var periods []Period
	for rows.Next() {
		p, err := scanPeriod(rows.Scan)
		if err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

func (r *repository) FindOpenByDate(ctx context.Context, date time.Time) (Period, error) {
	p, err := scanPeriod(r.db.QueryRow(ctx, `SELECT `+periodColumns+` FROM fiscal_periods
WHERE status='OPEN' AND $1 BETWEEN start_date AND end_date ORDER BY start_date LIMIT 1`, date).Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, shared.ErrInvalidPeriod
		}
		return Period{}, err
	}
	return p, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Period, error) {
	p, err := scanPeriod(r.db.QueryRow(ctx, `SELECT `+periodColumns+` FROM fiscal_periods WHERE id=$1`, id).Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, shared.ErrPeriodNotFound
		}
		return Period{}, err
	}
	return p, nil
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStoreUnavailable, err)
	}
	wrapper := &txRepository{tx: tx, tb: trialbalance.NewTxRepository(tx)}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

type txRepository struct {
	tx pgx.Tx
	tb *trialbalance.TxRepository
}

// ListForUpdate locks the whole period chain; lifecycle transitions inspect
// neighbours, so the chain must not shift underneath them.
func (r *txRepository) ListForUpdate(ctx context.Context) ([]Period, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+periodColumns+` FROM fiscal_periods ORDER BY end_date ASC FOR UPDATE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var periods []Period
	for rows.Next() {
		p, err := scanPeriod(rows.Scan)
		if err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

func (r *txRepository) InsertPeriod(ctx context.Context, in CreatePeriodInput) (Period, error) {
	p := Period{Code: in.Code, StartDate: in.StartDate, EndDate: in.EndDate, Status: PeriodStatusOpen}
	err := r.tx.QueryRow(ctx, `INSERT INTO fiscal_periods (code, start_date, end_date, status)
VALUES ($1,$2,$3,'OPEN') RETURNING id, created_at, updated_at`, in.Code, in.StartDate, in.EndDate).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Period{}, fmt.Errorf("%w: code %s already exists", shared.ErrInvalidPeriod, in.Code)
		}
		return Period{}, err
	}
	return p, nil
}

func (r *txRepository) UpdateStatus(ctx context.Context, id int64, status PeriodStatus, closedAt *time.Time) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE fiscal_periods SET status=$2, closed_at=$3, updated_at=NOW() WHERE id=$1`, id, status, closedAt)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrPeriodNotFound
	}
	return nil
}

func (r *txRepository) DeletePeriod(ctx context.Context, id int64) error {
	cmd, err := r.tx.Exec(ctx, `DELETE FROM fiscal_periods WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrPeriodNotFound
	}
	return nil
}

func (r *txRepository) TrialBalances() TrialBalanceTx {
	return r.tb
}

package trialbalance

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/halcyon-erp/halcyon/internal/ledger/shared"
)

type Repository interface {
	ListByPeriod(ctx context.Context, periodID int64) ([]Row, error)
	GetByAccountPeriod(ctx context.Context, accountID, periodID int64) (Row, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const rowColumns = `id, account_id, period_id, currency, balance, debits, credits, previous_id, created_at, updated_at`

func scanRow(scan func(...any) error) (Row, error) {
	var r Row
	var balance, debits, credits string
	err := scan(&r.ID, &r.AccountID, &r.PeriodID, &r.Currency, &balance, &debits, &credits, &r.PreviousID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return Row{}, err
	}
	if r.Balance, err = decimal.NewFromString(balance); err != nil {
		return Row{}, err
	}
	if r.Debits, err = decimal.NewFromString(debits); err != nil {
		return Row{}, err
	}
	if r.Credits, err = decimal.NewFromString(credits); err != nil {
		return Row{}, err
	}
	return r, nil
}

func (r *repository) ListByPeriod(ctx context.Context, periodID int64) ([]Row, error) {
	rows, err := r.db.Query(ctx, `SELECT `+rowColumns+` FROM trial_balances WHERE period_id=$1 ORDER BY account_id`, periodID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrStoreUnavailable, err)
	}
	defer rows.Close()
	var out []Row
	for rows.Next() {
		row, err := scanRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *repository) GetByAccountPeriod(ctx context.Context, accountID, periodID int64) (Row, error) {
	row, err := scanRow(r.db.QueryRow(ctx, `SELECT `+rowColumns+` FROM trial_balances WHERE account_id=$1 AND period_id=$2`, accountID, periodID).Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Row{}, shared.ErrNoOpenTrialBalance
		}
		return Row{}, err
	}
	return row, nil
}

// TxRepository runs trial-balance writes inside a posting or period
// lifecycle transaction. It satisfies TxStore.
type TxRepository struct {
	tx pgx.Tx
}

func NewTxRepository(tx pgx.Tx) *TxRepository {
	return &TxRepository{tx: tx}
}

// GetRowForUpdate locks the (account, period) row for the duration of the
// transaction. Concurrent batches touching the same key wait here instead of
// overwriting each other's read-then-write.
func (r *TxRepository) GetRowForUpdate(ctx context.Context, accountID, periodID int64) (Row, error) {
	row, err := scanRow(r.tx.QueryRow(ctx, `SELECT `+rowColumns+` FROM trial_balances WHERE account_id=$1 AND period_id=$2 FOR UPDATE`, accountID, periodID).Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Row{}, shared.ErrNoOpenTrialBalance
		}
		return Row{}, err
	}
	return row, nil
}

func (r *TxRepository) ApplyRowDelta(ctx context.Context, rowID int64, balance, debits, credits decimal.Decimal) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE trial_balances
SET balance = balance + $2, debits = debits + $3, credits = credits + $4, updated_at = NOW()
WHERE id = $1`, rowID, balance.String(), debits.String(), credits.String())
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNoOpenTrialBalance
	}
	return nil
}

// Insert seeds a new row, used when a fiscal period is created.
func (r *TxRepository) Insert(ctx context.Context, row Row) (Row, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO trial_balances (account_id, period_id, currency, balance, debits, credits, previous_id)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id, created_at, updated_at`,
		row.AccountID, row.PeriodID, row.Currency, row.Balance.String(), row.Debits.String(), row.Credits.String(), row.PreviousID).
		Scan(&row.ID, &row.CreatedAt, &row.UpdatedAt)
	if err != nil {
		return Row{}, err
	}
	return row, nil
}

// HasActivity reports whether any row of the period saw debits or credits.
func (r *TxRepository) HasActivity(ctx context.Context, periodID int64) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM trial_balances WHERE period_id=$1 AND (debits <> 0 OR credits <> 0))`, periodID).Scan(&exists)
	return exists, err
}

// DeleteByPeriod removes all rows of a period, used when deleting the
// trailing period.
func (r *TxRepository) DeleteByPeriod(ctx context.Context, periodID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM trial_balances WHERE period_id=$1`, periodID)
	return err
}

// ClosingBalances returns account id -> closing balance for a period.
func (r *TxRepository) ClosingBalances(ctx context.Context, periodID int64) (map[int64]decimal.Decimal, error) {
	rows, err := r.tx.Query(ctx, `SELECT account_id, balance FROM trial_balances WHERE period_id=$1`, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64]decimal.Decimal)
	for rows.Next() {
		var accountID int64
		var balance string
		if err := rows.Scan(&accountID, &balance); err != nil {
			return nil, err
		}
		d, err := decimal.NewFromString(balance)
		if err != nil {
			return nil, err
		}
		out[accountID] = d
	}
	return out, rows.Err()
}

// RowIDsByPeriod returns account id -> row id for linking previous rows.
func (r *TxRepository) RowIDsByPeriod(ctx context.Context, periodID int64) (map[int64]int64, error) {
	rows, err := r.tx.Query(ctx, `SELECT account_id, id FROM trial_balances WHERE period_id=$1`, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64]int64)
	for rows.Next() {
		var accountID, id int64
		if err := rows.Scan(&accountID, &id); err != nil {
			return nil, err
		}
		out[accountID] = id
	}
	return out, rows.Err()
}

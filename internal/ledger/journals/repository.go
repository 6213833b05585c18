package journals

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/halcyon-erp/halcyon/internal/ledger/money"
	"github.com/halcyon-erp/halcyon/internal/ledger/shared"
)

// Repository reads posted transactions. All writes happen inside posting
// batches through the posting transaction repository.
type Repository interface {
	List(ctx context.Context) ([]Transaction, error)
	GetWithLines(ctx context.Context, id int64) (Transaction, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) List(ctx context.Context) ([]Transaction, error) {
	rows, err := r.db.Query(ctx, `SELECT id, batch_id, currency, date, memo, posted_at, created_at FROM ledger_transactions ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrStoreUnavailable, err)
	}
	defer rows.Close()
	var txns []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.BatchID, &t.Currency, &t.Date, &t.Memo, &t.PostedAt, &t.CreatedAt); err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

func (r *repository) GetWithLines(ctx context.Context, id int64) (Transaction, error) {
	var t Transaction
	err := r.db.QueryRow(ctx, `SELECT id, batch_id, currency, date, memo, posted_at, created_at FROM ledger_transactions WHERE id=$1`, id).
		Scan(&t.ID, &t.BatchID, &t.Currency, &t.Date, &t.Memo, &t.PostedAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, shared.ErrJournalNotFound
		}
		return Transaction{}, err
	}
	rows, err := r.db.Query(ctx, `SELECT id, transaction_id, account_id, debit, credit FROM ledger_distributions WHERE transaction_id=$1 ORDER BY id ASC`, id)
	if err != nil {
		return Transaction{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var d Distribution
		var debit, credit string
		if err := rows.Scan(&d.ID, &d.TransactionID, &d.AccountID, &debit, &credit); err != nil {
			return Transaction{}, err
		}
		dr, err := decimal.NewFromString(debit)
		if err != nil {
			return Transaction{}, err
		}
		cr, err := decimal.NewFromString(credit)
		if err != nil {
			return Transaction{}, err
		}
		d.Debit = money.New(dr, t.Currency)
		d.Credit = money.New(cr, t.Currency)
		t.Lines = append(t.Lines, d)
	}
	return t, rows.Err()
}

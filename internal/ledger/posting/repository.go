package posting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/halcyon-erp/halcyon/internal/ledger/accounts"
	"github.com/halcyon-erp/halcyon/internal/ledger/categories"
	"github.com/halcyon-erp/halcyon/internal/ledger/documents"
	"github.com/halcyon-erp/halcyon/internal/ledger/journals"
	"github.com/halcyon-erp/halcyon/internal/ledger/mappings"
	"github.com/halcyon-erp/halcyon/internal/ledger/money"
	"github.com/halcyon-erp/halcyon/internal/ledger/shared"
	"github.com/halcyon-erp/halcyon/internal/ledger/trialbalance"
)

// DocumentTx is the document write surface available inside a posting
// transaction.
type DocumentTx interface {
	MarkPosted(ctx context.Context, docID, journalID int64, totals documents.PostingTotals, postedAt time.Time) error
	StampLineBase(ctx context.Context, lineID int64, base decimal.Decimal, effective time.Time) error
	ResetUnposted(ctx context.Context, journalID int64) error
}

// TxRepository is everything a posting batch writes: journal rows,
// trial-balance deltas, and document finalization, all on one transaction.
type TxRepository interface {
	trialbalance.TxStore
	InsertTransaction(ctx context.Context, t journals.Transaction) (journals.Transaction, error)
	InsertDistributions(ctx context.Context, transactionID int64, dists []journals.Distribution) error
	GetTransactionForUpdate(ctx context.Context, id int64) (journals.Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) error
	Documents() DocumentTx
}

// Repository opens posting transactions.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStoreUnavailable, err)
	}
	wrapper := &txRepository{
		tx:   tx,
		tb:   trialbalance.NewTxRepository(tx),
		docs: documents.NewTxRepository(tx),
	}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

type txRepository struct {
	tx   pgx.Tx
	tb   *trialbalance.TxRepository
	docs *documents.TxRepository
}

func (r *txRepository) GetRowForUpdate(ctx context.Context, accountID, periodID int64) (trialbalance.Row, error) {
	return r.tb.GetRowForUpdate(ctx, accountID, periodID)
}

func (r *txRepository) ApplyRowDelta(ctx context.Context, rowID int64, balance, debits, credits decimal.Decimal) error {
	return r.tb.ApplyRowDelta(ctx, rowID, balance, debits, credits)
}

func (r *txRepository) Documents() DocumentTx {
	return r.docs
}

func (r *txRepository) InsertTransaction(ctx context.Context, t journals.Transaction) (journals.Transaction, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO ledger_transactions (batch_id, currency, date, memo, posted_at)
VALUES ($1,$2,$3,$4,$5) RETURNING id, created_at`,
		t.BatchID, t.Currency, t.Date, t.Memo, t.PostedAt).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return journals.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return t, nil
}

func (r *txRepository) InsertDistributions(ctx context.Context, transactionID int64, dists []journals.Distribution) error {
	for _, d := range dists {
		_, err := r.tx.Exec(ctx, `INSERT INTO ledger_distributions (transaction_id, account_id, debit, credit)
VALUES ($1,$2,$3,$4)`, transactionID, d.AccountID, d.Debit.Amount.String(), d.Credit.Amount.String())
		if err != nil {
			return fmt.Errorf("insert distribution for account %d: %w", d.AccountID, err)
		}
	}
	return nil
}

// GetTransactionForUpdate locks the transaction row so an unwind cannot race
// a concurrent unwind of the same journal.
func (r *txRepository) GetTransactionForUpdate(ctx context.Context, id int64) (journals.Transaction, error) {
	var t journals.Transaction
	err := r.tx.QueryRow(ctx, `SELECT id, batch_id, currency, date, memo, posted_at, created_at
FROM ledger_transactions WHERE id=$1 FOR UPDATE`, id).
		Scan(&t.ID, &t.BatchID, &t.Currency, &t.Date, &t.Memo, &t.PostedAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return journals.Transaction{}, shared.ErrJournalNotFound
		}
		return journals.Transaction{}, err
	}
	rows, err := r.tx.Query(ctx, `SELECT id, transaction_id, account_id, debit, credit
FROM ledger_distributions WHERE transaction_id=$1 ORDER BY id`, id)
	if err != nil {
		return journals.Transaction{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var d journals.Distribution
		var debit, credit string
		if err := rows.Scan(&d.ID, &d.TransactionID, &d.AccountID, &debit, &credit); err != nil {
			return journals.Transaction{}, err
		}
		dr, err := decimal.NewFromString(debit)
		if err != nil {
			return journals.Transaction{}, err
		}
		cr, err := decimal.NewFromString(credit)
		if err != nil {
			return journals.Transaction{}, err
		}
		d.Debit = money.New(dr, t.Currency)
		d.Credit = money.New(cr, t.Currency)
		t.Lines = append(t.Lines, d)
	}
	return t, rows.Err()
}

func (r *txRepository) DeleteTransaction(ctx context.Context, id int64) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM ledger_distributions WHERE transaction_id=$1`, id); err != nil {
		return err
	}
	cmd, err := r.tx.Exec(ctx, `DELETE FROM ledger_transactions WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrJournalNotFound
	}
	return nil
}

// SnapshotReader satisfies SnapshotSource over the reference-data
// repositories.
type SnapshotReader struct {
	accounts   accounts.Repository
	categories categories.Repository
	mappings   mappings.Repository
}

func NewSnapshotReader(a accounts.Repository, c categories.Repository, m mappings.Repository) *SnapshotReader {
	return &SnapshotReader{accounts: a, categories: c, mappings: m}
}

func (s *SnapshotReader) Accounts(ctx context.Context) ([]accounts.Account, error) {
	return s.accounts.List(ctx)
}

func (s *SnapshotReader) UsedAccountIDs(ctx context.Context) ([]int64, error) {
	return s.accounts.UsedAccountIDs(ctx)
}

func (s *SnapshotReader) Categories(ctx context.Context) ([]categories.Category, error) {
	return s.categories.List(ctx)
}

func (s *SnapshotReader) Mappings(ctx context.Context) ([]mappings.AccountMapping, error) {
	return s.mappings.List(ctx)
}

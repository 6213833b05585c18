package documents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/halcyon-erp/halcyon/internal/ledger/journals"
	"github.com/halcyon-erp/halcyon/internal/ledger/shared"
)

const documentColumns = `id, doc_type, doc_number, currency, doc_date, site_id, memo,
subtotal, freight, tax, total, balance, base_balance, is_posted, journal_id, created_at, updated_at`

// Repository reads source documents from Postgres.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Get loads one document with its lines.
func (r *Repository) Get(ctx context.Context, id int64) (Document, error) {
	row := r.db.QueryRow(ctx, `SELECT `+documentColumns+` FROM ledger_documents WHERE id=$1`, id)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, shared.ErrDocumentNotFound
		}
		return Document{}, fmt.Errorf("get document %d: %w", id, err)
	}
	if err := r.attachLines(ctx, []*Document{&doc}); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// GetByIDs loads the requested documents with lines. Missing IDs surface as
// ErrDocumentNotFound so a posting batch fails fast instead of silently
// shrinking.
func (r *Repository) GetByIDs(ctx context.Context, ids []int64) ([]Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `SELECT `+documentColumns+` FROM ledger_documents WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("get documents: %w", err)
	}
	docs, err := collectDocuments(rows)
	if err != nil {
		return nil, err
	}
	if len(docs) != len(ids) {
		found := make(map[int64]bool, len(docs))
		for _, d := range docs {
			found[d.ID] = true
		}
		for _, id := range ids {
			if !found[id] {
				return nil, fmt.Errorf("%w: id %d", shared.ErrDocumentNotFound, id)
			}
		}
	}
	refs := make([]*Document, len(docs))
	for i := range docs {
		refs[i] = &docs[i]
	}
	if err := r.attachLines(ctx, refs); err != nil {
		return nil, err
	}
	return docs, nil
}

// ListUnposted returns unposted documents of one class, oldest first.
func (r *Repository) ListUnposted(ctx context.Context, docType DocumentType) ([]Document, error) {
	rows, err := r.db.Query(ctx, `SELECT `+documentColumns+` FROM ledger_documents
WHERE doc_type=$1 AND is_posted=false ORDER BY doc_date, id`, docType)
	if err != nil {
		return nil, fmt.Errorf("list unposted %s: %w", docType, err)
	}
	docs, err := collectDocuments(rows)
	if err != nil {
		return nil, err
	}
	refs := make([]*Document, len(docs))
	for i := range docs {
		refs[i] = &docs[i]
	}
	if err := r.attachLines(ctx, refs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *Repository) attachLines(ctx context.Context, docs []*Document) error {
	if len(docs) == 0 {
		return nil
	}
	ids := make([]int64, len(docs))
	byID := make(map[int64]*Document, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
		byID[d.ID] = d
	}
	rows, err := r.db.Query(ctx, `SELECT id, document_id, description, quantity, unit_price,
category_id, account_id, side, amount, base_amount, effective_date
FROM ledger_document_lines WHERE document_id = ANY($1) ORDER BY document_id, id`, ids)
	if err != nil {
		return fmt.Errorf("load document lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			l               Line
			qty, price, amt string
			base, side      *string
		)
		if err := rows.Scan(&l.ID, &l.DocumentID, &l.Description, &qty, &price,
			&l.CategoryID, &l.AccountID, &side, &amt, &base, &l.EffectiveDate); err != nil {
			return fmt.Errorf("scan document line: %w", err)
		}
		if l.Quantity, err = decimal.NewFromString(qty); err != nil {
			return fmt.Errorf("parse quantity: %w", err)
		}
		if l.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return fmt.Errorf("parse unit price: %w", err)
		}
		if l.Amount, err = decimal.NewFromString(amt); err != nil {
			return fmt.Errorf("parse amount: %w", err)
		}
		if side != nil {
			l.Side = journals.Side(*side)
		}
		if base != nil {
			b, err := decimal.NewFromString(*base)
			if err != nil {
				return fmt.Errorf("parse base amount: %w", err)
			}
			l.BaseAmount = &b
		}
		doc := byID[l.DocumentID]
		doc.Lines = append(doc.Lines, l)
	}
	return rows.Err()
}

func scanDocument(row pgx.Row) (Document, error) {
	var d Document
	var subtotal, freight, tax, total, bal, baseBal string
	err := row.Scan(&d.ID, &d.Type, &d.Number, &d.Currency, &d.Date, &d.SiteID, &d.Memo,
		&subtotal, &freight, &tax, &total, &bal, &baseBal, &d.IsPosted, &d.JournalID,
		&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return Document{}, err
	}
	for _, f := range []struct {
		raw string
		dst *decimal.Decimal
	}{
		{subtotal, &d.Subtotal}, {freight, &d.Freight}, {tax, &d.Tax},
		{total, &d.Total}, {bal, &d.Balance}, {baseBal, &d.BaseBalance},
	} {
		v, perr := decimal.NewFromString(f.raw)
		if perr != nil {
			return Document{}, fmt.Errorf("parse document amount: %w", perr)
		}
		*f.dst = v
	}
	return d, nil
}

func collectDocuments(rows pgx.Rows) ([]Document, error) {
	defer rows.Close()
	var out []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// TxRepository performs the document writes that belong inside a posting
// transaction.
type TxRepository struct {
	tx pgx.Tx
}

func NewTxRepository(tx pgx.Tx) *TxRepository {
	return &TxRepository{tx: tx}
}

// MarkPosted flips the document to posted, links the produced journal, and
// persists the finalized totals.
func (r *TxRepository) MarkPosted(ctx context.Context, docID, journalID int64, totals PostingTotals, postedAt time.Time) error {
	tag, err := r.tx.Exec(ctx, `UPDATE ledger_documents
SET is_posted=true, journal_id=$2, subtotal=$3, total=$4, balance=$5, base_balance=$6, updated_at=$7
WHERE id=$1 AND is_posted=false`, docID, journalID,
		totals.Subtotal.String(), totals.Total.String(), totals.Balance.String(),
		totals.BaseBalance.String(), postedAt)
	if err != nil {
		return fmt.Errorf("mark document %d posted: %w", docID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: document %d", shared.ErrAlreadyPosted, docID)
	}
	return nil
}

// StampLineBase records the base-currency audit amount and the conversion
// effective date on a line.
func (r *TxRepository) StampLineBase(ctx context.Context, lineID int64, base decimal.Decimal, effective time.Time) error {
	_, err := r.tx.Exec(ctx, `UPDATE ledger_document_lines
SET base_amount=$2, effective_date=$3 WHERE id=$1`, lineID, base.String(), effective)
	if err != nil {
		return fmt.Errorf("stamp line %d base amount: %w", lineID, err)
	}
	return nil
}

// ResetUnposted returns every document linked to a journal to the unposted
// state, clearing the audit stamps. Used when a journal is unwound.
func (r *TxRepository) ResetUnposted(ctx context.Context, journalID int64) error {
	_, err := r.tx.Exec(ctx, `UPDATE ledger_document_lines
SET base_amount=NULL, effective_date=NULL
WHERE document_id IN (SELECT id FROM ledger_documents WHERE journal_id=$1)`, journalID)
	if err != nil {
		return fmt.Errorf("clear line stamps for journal %d: %w", journalID, err)
	}
	_, err = r.tx.Exec(ctx, `UPDATE ledger_documents
SET is_posted=false, journal_id=NULL, base_balance=0, updated_at=now() WHERE journal_id=$1`, journalID)
	if err != nil {
		return fmt.Errorf("reset documents for journal %d: %w", journalID, err)
	}
	return nil
}

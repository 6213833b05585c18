package documents

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/halcyon-erp/halcyon/internal/ledger/journals"
	"github.com/halcyon-erp/halcyon/internal/ledger/money"
)

// DocumentType enumerates postable source document classes.
type DocumentType string

const (
	DocTypeJournal    DocumentType = "JOURNAL"
	DocTypeInvoice    DocumentType = "INVOICE"
	DocTypeCreditMemo DocumentType = "CREDIT_MEMO"
	DocTypeDebitMemo  DocumentType = "DEBIT_MEMO"
	DocTypeVoucher    DocumentType = "VOUCHER"
	DocTypeBill       DocumentType = "BILL"
)

// IsBillLike reports whether the document carries priced lines plus
// freight/tax, as opposed to a manual journal voucher whose lines name
// accounts directly.
func (t DocumentType) IsBillLike() bool {
	return t != DocTypeJournal
}

// Line is one source document line. Bill-like documents fill Quantity and
// UnitPrice; journal vouchers fill AccountID, Side, and Amount. BaseAmount
// and EffectiveDate are stamped during posting when the document currency
// differs from the base currency.
type Line struct {
	ID            int64
	DocumentID    int64
	Description   string
	Quantity      decimal.Decimal
	UnitPrice     decimal.Decimal
	CategoryID    *int64
	AccountID     *int64
	Side          journals.Side
	Amount        decimal.Decimal
	BaseAmount    *decimal.Decimal
	EffectiveDate *time.Time
}

// Extended returns quantity * price rounded to the document currency's
// minor units.
func (l Line) Extended(currency string) money.Money {
	return money.Extend(l.Quantity, l.UnitPrice, currency)
}

// Document is an unposted financial source document. While unposted it may
// be freely edited; once posted it becomes read-only and points at the
// ledger transaction it produced.
type Document struct {
	ID          int64
	Type        DocumentType
	Number      string
	Currency    string
	Date        time.Time
	SiteID      *int64
	Memo        string
	Subtotal    decimal.Decimal
	Freight     decimal.Decimal
	Tax         decimal.Decimal
	Total       decimal.Decimal
	Balance     decimal.Decimal
	BaseBalance decimal.Decimal
	IsPosted    bool
	JournalID   *int64
	Lines       []Line
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ComputeTotals derives subtotal, total, and the open balance from the
// lines. Bill-like documents sum line extensions plus freight and tax;
// journal vouchers sum the debit side. An unposted document is fully open,
// so the balance starts equal to the total.
func (d *Document) ComputeTotals() {
	sum := decimal.Zero
	if d.Type.IsBillLike() {
		for _, l := range d.Lines {
			sum = sum.Add(l.Extended(d.Currency).Amount)
		}
		d.Subtotal = sum
		d.Total = sum.Add(d.Freight).Add(d.Tax)
		d.Balance = d.Total
		return
	}
	for _, l := range d.Lines {
		if l.Side == journals.SideDebit {
			sum = sum.Add(l.Amount)
		}
	}
	d.Subtotal = sum
	d.Total = sum
	d.Balance = d.Total
}

// PostingTotals carries the finalized amounts persisted when a document is
// marked posted. BaseBalance is the open balance expressed in the ledger's
// base currency as of the posting date.
type PostingTotals struct {
	Subtotal    decimal.Decimal
	Total       decimal.Decimal
	Balance     decimal.Decimal
	BaseBalance decimal.Decimal
}

// Validate checks document shape ahead of posting.
func (d Document) Validate() error {
	if d.Currency == "" {
		return fmt.Errorf("ledger: document %d missing currency", d.ID)
	}
	if len(d.Lines) == 0 {
		return fmt.Errorf("ledger: document %d has no lines", d.ID)
	}
	for idx, l := range d.Lines {
		if d.Type.IsBillLike() {
			if l.Quantity.IsNegative() || l.UnitPrice.IsNegative() {
				return fmt.Errorf("ledger: document %d line %d negative amount", d.ID, idx)
			}
			continue
		}
		if l.AccountID == nil {
			return fmt.Errorf("ledger: document %d line %d missing account", d.ID, idx)
		}
		if l.Side != journals.SideDebit && l.Side != journals.SideCredit {
			return fmt.Errorf("ledger: document %d line %d missing side", d.ID, idx)
		}
		if !l.Amount.IsPositive() {
			return fmt.Errorf("ledger: document %d line %d amount must be positive", d.ID, idx)
		}
	}
	if d.Freight.IsNegative() || d.Tax.IsNegative() {
		return errors.New("ledger: freight and tax must be non-negative")
	}
	return nil
}

package journals

import (
	"time"

	"github.com/google/uuid"

	"github.com/halcyon-erp/halcyon/internal/ledger/money"
)

// Side marks a distribution entry as debit or credit.
type Side string

const (
	SideDebit  Side = "DEBIT"
	SideCredit Side = "CREDIT"
)

// Distribution is one account's debit/credit pair inside a transaction.
type Distribution struct {
	ID            int64
	TransactionID int64
	AccountID     int64
	Debit         money.Money
	Credit        money.Money
}

// Transaction is an immutable posted general-ledger transaction. Once
// created it is never mutated; unwinding deletes it wholesale and resets the
// linked source documents.
type Transaction struct {
	ID        int64
	BatchID   uuid.UUID
	Currency  string
	Date      time.Time
	Memo      string
	PostedAt  time.Time
	CreatedAt time.Time
	Lines     []Distribution
}

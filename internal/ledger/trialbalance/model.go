package trialbalance

import (
	"time"

	"github.com/shopspring/decimal"
)

// Row is the per-account, per-period running balance plus period activity.
// Exactly one row exists per (account, period) pair once the period exists;
// rows are created by period lifecycle events and mutated only by the
// Updater.
type Row struct {
	ID         int64
	AccountID  int64
	PeriodID   int64
	Currency   string
	Balance    decimal.Decimal
	Debits     decimal.Decimal
	Credits    decimal.Decimal
	PreviousID *int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Closing is the row balance; activity is already folded in by the Updater.
func (r Row) Closing() decimal.Decimal {
	return r.Balance
}

package periods

import (
	"errors"
	"strings"
	"time"
)

// PeriodStatus enumerates valid period states. Frozen periods behave like
// closed ones for posting but cannot be reopened by the normal lifecycle
// operations.
type PeriodStatus string

const (
	PeriodStatusOpen   PeriodStatus = "OPEN"
	PeriodStatusClosed PeriodStatus = "CLOSED"
	PeriodStatusFrozen PeriodStatus = "FROZEN"
)

// Period represents a fiscal period window. Periods form a contiguous,
// non-overlapping chain ordered by end date.
type Period struct {
	ID        int64
	Code      string
	StartDate time.Time
	EndDate   time.Time
	Status    PeriodStatus
	ClosedAt  *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Contains reports whether date falls within the period, inclusive.
func (p Period) Contains(date time.Time) bool {
	return !date.Before(p.StartDate) && !date.After(p.EndDate)
}

// CreatePeriodInput bundles fields for creating a fiscal period.
type CreatePeriodInput struct {
	Code      string
	StartDate time.Time
	EndDate   time.Time
	Currency  string
}

// Validate ensures the input is coherent before touching the store.
func (in CreatePeriodInput) Validate() error {
	if strings.TrimSpace(in.Code) == "" {
		return errors.New("ledger: period code required")
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return errors.New("ledger: start and end date required")
	}
	if !in.EndDate.After(in.StartDate) {
		return errors.New("ledger: period end must be after start")
	}
	if in.Currency == "" {
		return errors.New("ledger: period currency required")
	}
	return nil
}

// ErrPeriodHasActivity is returned when deleting a period whose trial
// balance rows recorded debits or credits.
var ErrPeriodHasActivity = errors.New("ledger: period has recorded activity")

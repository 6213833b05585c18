package periods

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/halcyon-erp/halcyon/internal/ledger/accounts"
	"github.com/halcyon-erp/halcyon/internal/ledger/shared"
	"github.com/halcyon-erp/halcyon/internal/ledger/trialbalance"
	audit "github.com/halcyon-erp/halcyon/internal/shared"
)

// AccountLister supplies the chart of accounts for trial-balance seeding.
type AccountLister interface {
	List(ctx context.Context) ([]accounts.Account, error)
}

// AuditRecorder persists an audit trail entry for lifecycle events.
type AuditRecorder interface {
	Record(ctx context.Context, entry audit.AuditEntry) error
}

// Service owns fiscal period lifecycle: creation with contiguity checks and
// trial-balance seeding, close/open transitions, and deletion of the
// trailing period.
type Service struct {
	repo     Repository
	accounts AccountLister
	audit    AuditRecorder
	now      func() time.Time
}

func NewService(repo Repository, accts AccountLister) *Service {
	return &Service{repo: repo, accounts: accts, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithAudit attaches an audit trail for lifecycle events.
func (s *Service) WithAudit(a AuditRecorder) *Service {
	s.audit = a
	return s
}

// recordAudit writes the trail entry best-effort; a failed write never fails
// the lifecycle event itself.
func (s *Service) recordAudit(ctx context.Context, action audit.AuditAction, id int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, audit.AuditEntry{
		Action:   action,
		Entity:   audit.EntityFiscalPeriod,
		EntityID: strconv.FormatInt(id, 10),
		At:       s.now(),
	})
}

func (s *Service) List(ctx context.Context) ([]Period, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (Period, error) {
	return s.repo.Get(ctx, id)
}

// FindOpenByDate returns the open period covering the supplied date.
func (s *Service) FindOpenByDate(ctx context.Context, date time.Time) (Period, error) {
	return s.repo.FindOpenByDate(ctx, date)
}

// Create inserts a new period at the end of the chain and seeds one trial
// balance row per account from the prior period's closing balance, or zero
// when this is the first period.
func (s *Service) Create(ctx context.Context, in CreatePeriodInput) (Period, error) {
	if err := in.Validate(); err != nil {
		return Period{}, err
	}
	var created Period
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		chain, err := tx.ListForUpdate(ctx)
		if err != nil {
			return err
		}
		var prior *Period
		if len(chain) > 0 {
			last := chain[len(chain)-1]
			prior = &last
			next := last.EndDate.AddDate(0, 0, 1)
			if !sameDay(in.StartDate, next) {
				return fmt.Errorf("%w: start %s must follow %s", shared.ErrPeriodSequence,
					in.StartDate.Format("2006-01-02"), last.EndDate.Format("2006-01-02"))
			}
		}
		created, err = tx.InsertPeriod(ctx, in)
		if err != nil {
			return err
		}
		return s.seedTrialBalances(ctx, tx, created, prior, in.Currency)
	})
	if err != nil {
		return Period{}, err
	}
	s.recordAudit(ctx, audit.AuditPeriodCreated, created.ID)
	return created, nil
}

func (s *Service) seedTrialBalances(ctx context.Context, tx TxRepository, period Period, prior *Period, currency string) error {
	accts, err := s.accounts.List(ctx)
	if err != nil {
		return err
	}
	tb := tx.TrialBalances()
	closing := map[int64]decimal.Decimal{}
	priorRows := map[int64]int64{}
	if prior != nil {
		if closing, err = tb.ClosingBalances(ctx, prior.ID); err != nil {
			return err
		}
		if priorRows, err = tb.RowIDsByPeriod(ctx, prior.ID); err != nil {
			return err
		}
	}
	for _, acct := range accts {
		row := trialbalance.Row{
			AccountID: acct.ID,
			PeriodID:  period.ID,
			Currency:  currency,
			Balance:   decimal.Zero,
			Debits:    decimal.Zero,
			Credits:   decimal.Zero,
		}
		if bal, ok := closing[acct.ID]; ok {
			row.Balance = bal
		}
		if prev, ok := priorRows[acct.ID]; ok {
			row.PreviousID = &prev
		}
		if _, err := tb.Insert(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

// Close flips an open period to closed. Every chronologically earlier period
// must already be closed or frozen.
func (s *Service) Close(ctx context.Context, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		chain, err := tx.ListForUpdate(ctx)
		if err != nil {
			return err
		}
		target, err := findPeriod(chain, id)
		if err != nil {
			return err
		}
		switch target.Status {
		case PeriodStatusClosed:
			return shared.ErrAlreadyClosed
		case PeriodStatusFrozen:
			return shared.ErrPeriodFrozen
		}
		for _, p := range chain {
			if p.EndDate.Before(target.EndDate) && p.Status == PeriodStatusOpen {
				return fmt.Errorf("%w: period %s still open", shared.ErrPeriodSequence, p.Code)
			}
		}
		closedAt := s.now()
		return tx.UpdateStatus(ctx, id, PeriodStatusClosed, &closedAt)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, audit.AuditPeriodClosed, id)
	return nil
}

// Open reopens a closed period. Every chronologically later period must
// already be open; frozen periods stay frozen.
func (s *Service) Open(ctx context.Context, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		chain, err := tx.ListForUpdate(ctx)
		if err != nil {
			return err
		}
		target, err := findPeriod(chain, id)
		if err != nil {
			return err
		}
		switch target.Status {
		case PeriodStatusOpen:
			return shared.ErrAlreadyOpen
		case PeriodStatusFrozen:
			return shared.ErrPeriodFrozen
		}
		for _, p := range chain {
			if p.EndDate.After(target.EndDate) && p.Status != PeriodStatusOpen {
				return fmt.Errorf("%w: period %s not open", shared.ErrPeriodSequence, p.Code)
			}
		}
		return tx.UpdateStatus(ctx, id, PeriodStatusOpen, nil)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, audit.AuditPeriodReopened, id)
	return nil
}

// Delete removes the trailing period, permitted only when none of its trial
// balance rows recorded any activity.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		chain, err := tx.ListForUpdate(ctx)
		if err != nil {
			return err
		}
		target, err := findPeriod(chain, id)
		if err != nil {
			return err
		}
		for _, p := range chain {
			if p.EndDate.After(target.EndDate) {
				return fmt.Errorf("%w: period %s follows %s", shared.ErrPeriodSequence, p.Code, target.Code)
			}
		}
		active, err := tx.TrialBalances().HasActivity(ctx, id)
		if err != nil {
			return err
		}
		if active {
			return ErrPeriodHasActivity
		}
		if err := tx.TrialBalances().DeleteByPeriod(ctx, id); err != nil {
			return err
		}
		return tx.DeletePeriod(ctx, id)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, audit.AuditPeriodDeleted, id)
	return nil
}

func findPeriod(chain []Period, id int64) (Period, error) {
	for _, p := range chain {
		if p.ID == id {
			return p, nil
		}
	}
	return Period{}, shared.ErrPeriodNotFound
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

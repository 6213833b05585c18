package trialbalance

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/halcyon-erp/halcyon/internal/ledger/accounts"
	"github.com/halcyon-erp/halcyon/internal/ledger/journals"
)

// TxStore is the slice of the posting transaction the Updater writes
// through. Rows are read under a row lock so two batches touching the same
// (account, period) key serialize instead of losing updates.
type TxStore interface {
	GetRowForUpdate(ctx context.Context, accountID, periodID int64) (Row, error)
	ApplyRowDelta(ctx context.Context, rowID int64, balance, debits, credits decimal.Decimal) error
}

// Updater applies a finished distribution set to the trial balance rows of
// every touched account and its full ancestor chain.
type Updater struct{}

func NewUpdater() *Updater {
	return &Updater{}
}

// Apply folds each distribution into the posting period's rows. The leaf
// account's row receives both activity (debits/credits) and the balance
// delta; ancestor rows receive only the balance rollup.
func (u *Updater) Apply(ctx context.Context, store TxStore, dir *accounts.Directory, periodID int64, dists []journals.Distribution) error {
	for _, d := range dists {
		acct, err := dir.Get(d.AccountID)
		if err != nil {
			return err
		}
		delta := signedDelta(acct.Type, d.Debit.Amount, d.Credit.Amount)

		leaf, err := store.GetRowForUpdate(ctx, d.AccountID, periodID)
		if err != nil {
			return fmt.Errorf("account %d period %d: %w", d.AccountID, periodID, err)
		}
		if err := store.ApplyRowDelta(ctx, leaf.ID, delta, d.Debit.Amount, d.Credit.Amount); err != nil {
			return err
		}

		ancestors, err := dir.Ancestors(d.AccountID)
		if err != nil {
			return err
		}
		for _, ancestorID := range ancestors {
			row, err := store.GetRowForUpdate(ctx, ancestorID, periodID)
			if err != nil {
				return fmt.Errorf("account %d period %d: %w", ancestorID, periodID, err)
			}
			if err := store.ApplyRowDelta(ctx, row.ID, delta, decimal.Zero, decimal.Zero); err != nil {
				return err
			}
		}
	}
	return nil
}

// Reverse backs the same deltas out again, used when unwinding a posted
// transaction.
func (u *Updater) Reverse(ctx context.Context, store TxStore, dir *accounts.Directory, periodID int64, dists []journals.Distribution) error {
	inverted := make([]journals.Distribution, 0, len(dists))
	for _, d := range dists {
		inverted = append(inverted, journals.Distribution{
			AccountID: d.AccountID,
			Debit:     d.Credit,
			Credit:    d.Debit,
		})
	}
	return u.Apply(ctx, store, dir, periodID, inverted)
}

// signedDelta applies the double-entry convention: debits raise asset and
// expense balances, credits raise liability, equity, and revenue balances.
func signedDelta(t accounts.AccountType, debit, credit decimal.Decimal) decimal.Decimal {
	if t.DebitIncreases() {
		return debit.Sub(credit)
	}
	return credit.Sub(debit)
}

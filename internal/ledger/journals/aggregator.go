package journals

import (
	"fmt"

	"github.com/halcyon-erp/halcyon/internal/ledger/money"
)

// Aggregator folds line-level amounts into one debit/credit pair per
// distinct account, preserving first-touched order so a batch always
// produces the same distribution list.
type Aggregator struct {
	order   []int64
	entries map[int64]*Distribution
}

func NewAggregator() *Aggregator {
	return &Aggregator{entries: make(map[int64]*Distribution)}
}

// Add accumulates an amount on the given side of an account. Amounts must
// share a currency within the batch; a mismatch is a caller error.
func (a *Aggregator) Add(accountID int64, side Side, amount money.Money) error {
	entry, ok := a.entries[accountID]
	if !ok {
		entry = &Distribution{
			AccountID: accountID,
			Debit:     money.Zero(amount.Currency),
			Credit:    money.Zero(amount.Currency),
		}
		a.entries[accountID] = entry
		a.order = append(a.order, accountID)
	}
	switch side {
	case SideDebit:
		sum, err := entry.Debit.Add(amount)
		if err != nil {
			return err
		}
		entry.Debit = sum
	case SideCredit:
		sum, err := entry.Credit.Add(amount)
		if err != nil {
			return err
		}
		entry.Credit = sum
	default:
		return fmt.Errorf("journals: unknown side %q", side)
	}
	return nil
}

// Distributions returns the aggregated entries in first-touched order.
func (a *Aggregator) Distributions() []Distribution {
	out := make([]Distribution, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, *a.entries[id])
	}
	return out
}

// Len reports the number of distinct accounts touched.
func (a *Aggregator) Len() int {
	return len(a.order)
}

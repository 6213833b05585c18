package journals

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/halcyon-erp/halcyon/internal/ledger/shared"
)

// CheckBalance validates a distribution set before anything is written:
// non-empty, single currency, non-negative sides, and total debits exactly
// equal to total credits. No epsilon; amounts are decimal throughout.
func CheckBalance(dists []Distribution) error {
	if len(dists) == 0 {
		return errors.New("ledger: distribution set is empty")
	}
	currency := dists[0].Debit.Currency
	debits := decimal.Zero
	credits := decimal.Zero
	for _, d := range dists {
		if d.AccountID == 0 {
			return errors.New("ledger: distribution missing account")
		}
		if d.Debit.Currency != currency || d.Credit.Currency != currency {
			return fmt.Errorf("ledger: mixed currencies in distribution set (%s, %s)", currency, d.Debit.Currency)
		}
		if d.Debit.IsNegative() || d.Credit.IsNegative() {
			return fmt.Errorf("ledger: negative amount on account %d", d.AccountID)
		}
		debits = debits.Add(d.Debit.Amount)
		credits = credits.Add(d.Credit.Amount)
	}
	if !debits.Equal(credits) {
		return fmt.Errorf("%w: debits %s, credits %s", shared.ErrUnbalanced, debits.String(), credits.String())
	}
	return nil
}

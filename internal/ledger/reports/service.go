package reports

import (
	"context"

	"github.com/halcyon-erp/halcyon/internal/ledger/accounts"
	"github.com/halcyon-erp/halcyon/internal/ledger/trialbalance"
)

// Service assembles reports from trial-balance rows.
type Service struct {
	rows     trialbalance.Repository
	accounts accounts.Repository
}

func NewService(rows trialbalance.Repository, accts accounts.Repository) *Service {
	return &Service{rows: rows, accounts: accts}
}

// TrialBalance builds the grouped trial balance for one period. Rollup
// accounts are excluded; their balances are derivable from their leaves and
// including them would double-count the totals.
func (s *Service) TrialBalance(ctx context.Context, periodID int64) (TrialBalance, error) {
	rows, err := s.rows.ListByPeriod(ctx, periodID)
	if err != nil {
		return TrialBalance{}, err
	}
	accts, err := s.accounts.List(ctx)
	if err != nil {
		return TrialBalance{}, err
	}
	dir := accounts.NewDirectory(accts, nil)

	balances := make([]AccountBalance, 0, len(rows))
	for _, row := range rows {
		acct, err := dir.Get(row.AccountID)
		if err != nil {
			return TrialBalance{}, err
		}
		if dir.IsParent(acct.ID) {
			continue
		}
		opening := row.Balance
		if acct.Type.DebitIncreases() {
			opening = opening.Sub(row.Debits).Add(row.Credits)
		} else {
			opening = opening.Sub(row.Credits).Add(row.Debits)
		}
		balances = append(balances, AccountBalance{
			Code:    acct.Code,
			Name:    acct.Name,
			Type:    acct.Type,
			Opening: opening,
			Debit:   row.Debits,
			Credit:  row.Credits,
		})
	}
	return BuildTrialBalance(balances), nil
}

// AccountRow returns one account's trial-balance row for a period.
func (s *Service) AccountRow(ctx context.Context, accountID, periodID int64) (trialbalance.Row, error) {
	return s.rows.GetByAccountPeriod(ctx, accountID, periodID)
}

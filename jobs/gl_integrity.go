package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// GLIntegrityChecker re-proves the two standing ledger invariants: every
// posted transaction balances, and each period's trial-balance activity
// matches the distributions dated inside it. Anomalies are logged and the
// run fails so the scheduler surfaces it.
type GLIntegrityChecker struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

func NewGLIntegrityChecker(db *pgxpool.Pool, logger *slog.Logger) *GLIntegrityChecker {
	return &GLIntegrityChecker{db: db, logger: logger}
}

// Handle adapts Run to an asynq handler.
func (c *GLIntegrityChecker) Handle(ctx context.Context, t *asynq.Task) error {
	return c.Run(ctx)
}

// Run executes both checks and returns an error naming how many anomalies
// were found.
func (c *GLIntegrityChecker) Run(ctx context.Context) error {
	unbalanced, err := c.unbalancedTransactions(ctx)
	if err != nil {
		return fmt.Errorf("gl integrity: %w", err)
	}
	drifted, err := c.driftedPeriods(ctx)
	if err != nil {
		return fmt.Errorf("gl integrity: %w", err)
	}
	if len(unbalanced) == 0 && len(drifted) == 0 {
		c.logger.Info("gl integrity check passed", slog.String("job", TaskGLIntegrity))
		return nil
	}
	for _, id := range unbalanced {
		c.logger.Error("unbalanced ledger transaction", slog.Int64("transaction_id", id))
	}
	for _, id := range drifted {
		c.logger.Error("trial balance drift", slog.Int64("period_id", id))
	}
	return fmt.Errorf("gl integrity: %d unbalanced transactions, %d drifted periods",
		len(unbalanced), len(drifted))
}

func (c *GLIntegrityChecker) unbalancedTransactions(ctx context.Context) ([]int64, error) {
	rows, err := c.db.Query(ctx, `SELECT transaction_id FROM ledger_distributions
GROUP BY transaction_id HAVING SUM(debit) <> SUM(credit) ORDER BY transaction_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// driftedPeriods compares each period's leaf trial-balance activity against
// the distributions of transactions dated inside the period. Rollup rows are
// excluded; they carry balance only.
func (c *GLIntegrityChecker) driftedPeriods(ctx context.Context) ([]int64, error) {
	rows, err := c.db.Query(ctx, `SELECT p.id,
	COALESCE((SELECT SUM(tb.debits) FROM trial_balances tb
		JOIN accounts a ON a.id = tb.account_id
		WHERE tb.period_id = p.id
		  AND NOT EXISTS (SELECT 1 FROM accounts ch WHERE ch.parent_id = a.id)), 0),
	COALESCE((SELECT SUM(tb.credits) FROM trial_balances tb
		JOIN accounts a ON a.id = tb.account_id
		WHERE tb.period_id = p.id
		  AND NOT EXISTS (SELECT 1 FROM accounts ch WHERE ch.parent_id = a.id)), 0),
	COALESCE((SELECT SUM(d.debit) FROM ledger_distributions d
		JOIN ledger_transactions t ON t.id = d.transaction_id
		WHERE t.date BETWEEN p.start_date AND p.end_date), 0),
	COALESCE((SELECT SUM(d.credit) FROM ledger_distributions d
		JOIN ledger_transactions t ON t.id = d.transaction_id
		WHERE t.date BETWEEN p.start_date AND p.end_date), 0)
FROM fiscal_periods p ORDER BY p.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		var tbDebits, tbCredits, glDebits, glCredits string
		if err := rows.Scan(&id, &tbDebits, &tbCredits, &glDebits, &glCredits); err != nil {
			return nil, err
		}
		td, err := decimal.NewFromString(tbDebits)
		if err != nil {
			return nil, err
		}
		tc, err := decimal.NewFromString(tbCredits)
		if err != nil {
			return nil, err
		}
		gd, err := decimal.NewFromString(glDebits)
		if err != nil {
			return nil, err
		}
		gc, err := decimal.NewFromString(glCredits)
		if err != nil {
			return nil, err
		}
		if !td.Equal(gd) || !tc.Equal(gc) {
			ids = append(ids, id)
		}
	}
	return ids, rows.Err()
}

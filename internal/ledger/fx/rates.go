package fx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/halcyon-erp/halcyon/internal/ledger/money"
	"github.com/halcyon-erp/halcyon/internal/ledger/shared"
)

// RateService resolves conversions against the fx_rates table, using the
// latest rate on or before the effective date.
type RateService struct {
	db   *pgxpool.Pool
	base string
}

func NewRateService(db *pgxpool.Pool, baseCurrency string) *RateService {
	return &RateService{db: db, base: baseCurrency}
}

func (s *RateService) BaseCurrency() string {
	return s.base
}

func (s *RateService) Convert(ctx context.Context, amount money.Money, effectiveDate time.Time) (money.Money, error) {
	if amount.Currency == s.base {
		return amount, nil
	}
	var raw string
	err := s.db.QueryRow(ctx, `SELECT rate FROM fx_rates
WHERE from_currency=$1 AND to_currency=$2 AND rate_date <= $3
ORDER BY rate_date DESC LIMIT 1`, amount.Currency, s.base, effectiveDate).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return money.Money{}, fmt.Errorf("%w: no %s/%s rate on or before %s",
				shared.ErrConversionUnavailable, amount.Currency, s.base, effectiveDate.Format("2006-01-02"))
		}
		return money.Money{}, fmt.Errorf("%w: %v", shared.ErrConversionUnavailable, err)
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return money.Money{}, fmt.Errorf("%w: bad rate %q", shared.ErrConversionUnavailable, raw)
	}
	converted := money.New(amount.Amount.Mul(rate), s.base)
	return converted.Round(), nil
}

package mappings

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/halcyon-erp/halcyon/internal/ledger/shared"
)

type Repository interface {
	List(ctx context.Context) ([]AccountMapping, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

// List loads the whole mapping table. The table is small and consulted many
// times per batch, so the resolver indexes it in memory.
func (r *repository) List(ctx context.Context) ([]AccountMapping, error) {
	rows, err := r.db.Query(ctx, `SELECT id, type_code, category_id, site_id, account_id, created_at, updated_at FROM account_mappings`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrStoreUnavailable, err)
	}
	defer rows.Close()
	var maps []AccountMapping
	for rows.Next() {
		var m AccountMapping
		if err := rows.Scan(&m.ID, &m.TypeCode, &m.CategoryID, &m.SiteID, &m.AccountID, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		m.TypeCode = strings.TrimSpace(m.TypeCode)
		maps = append(maps, m)
	}
	return maps, rows.Err()
}

package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditAction names a recorded ledger lifecycle event.
type AuditAction string

const (
	AuditPeriodCreated  AuditAction = "period.create"
	AuditPeriodClosed   AuditAction = "period.close"
	AuditPeriodReopened AuditAction = "period.open"
	AuditPeriodDeleted  AuditAction = "period.delete"
)

// EntityFiscalPeriod is the audited entity name for fiscal periods.
const EntityFiscalPeriod = "fiscal_period"

// AuditEntry is one row in ledger_audit_log.
type AuditEntry struct {
	Action   AuditAction
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

// AuditLogger appends entries to ledger_audit_log.
type AuditLogger struct {
	pool *pgxpool.Pool
}

func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

// Record persists the entry. A zero At defers to the database clock.
func (l *AuditLogger) Record(ctx context.Context, entry AuditEntry) error {
	if l == nil {
		return errors.New("audit logger not initialised")
	}
	if entry.Action == "" || entry.Entity == "" || entry.EntityID == "" {
		return errors.New("audit entry requires action/entity/entity_id")
	}
	metaJSON, err := json.Marshal(entry.Meta)
	if err != nil {
		return err
	}
	_, err = l.pool.Exec(ctx, `INSERT INTO ledger_audit_log (action, entity, entity_id, meta, occurred_at)
VALUES ($1, $2, $3, $4, COALESCE($5, NOW()))`,
		entry.Action, entry.Entity, entry.EntityID, metaJSON, entry.At)
	return err
}

package mappings

import "time"

// AccountMapping binds an abstract posting role (for example "Receivables"
// or "FreightOut") to a concrete ledger account, optionally scoped by item
// category and/or site.
type AccountMapping struct {
	ID         int64
	TypeCode   string
	CategoryID *int64
	SiteID     *int64
	AccountID  int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

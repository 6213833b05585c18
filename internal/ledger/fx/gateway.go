package fx

import (
	"context"
	"time"

	"github.com/halcyon-erp/halcyon/internal/ledger/money"
)

// Gateway converts a money value into the base currency as of an effective
// date. The engine consumes this as an external collaborator; conversion
// failures surface as ErrConversionUnavailable and retry policy stays with
// the caller.
type Gateway interface {
	BaseCurrency() string
	Convert(ctx context.Context, amount money.Money, effectiveDate time.Time) (money.Money, error)
}

package shared

import "errors"

var (
	// ErrUnbalanced indicates total debits != total credits.
	ErrUnbalanced = errors.New("ledger: distributions must balance")
	// ErrUnresolvedMapping indicates no account map matched a posting type.
	ErrUnresolvedMapping = errors.New("ledger: account mapping not found")
	// ErrPostingToParent indicates a resolved account is a non-leaf rollup.
	ErrPostingToParent = errors.New("ledger: cannot post to a parent account")
	// ErrInvalidCategoryHierarchy indicates a cycle in category parentage.
	ErrInvalidCategoryHierarchy = errors.New("ledger: category hierarchy contains a cycle")
	// ErrInvalidAccountHierarchy indicates a cycle in account parentage.
	ErrInvalidAccountHierarchy = errors.New("ledger: account hierarchy contains a cycle")
	// ErrNoOpenTrialBalance indicates a missing trial balance row for account+period.
	ErrNoOpenTrialBalance = errors.New("ledger: no trial balance row for account and period")
	// ErrAlreadyPosted indicates the source document was posted before.
	ErrAlreadyPosted = errors.New("ledger: document already posted")
	// ErrAlreadyClosed indicates the period is not open.
	ErrAlreadyClosed = errors.New("ledger: period already closed")
	// ErrAlreadyOpen indicates the period is not closed.
	ErrAlreadyOpen = errors.New("ledger: period already open")
	// ErrPeriodFrozen indicates the period cannot transition without override.
	ErrPeriodFrozen = errors.New("ledger: period frozen")
	// ErrPeriodSequence indicates a gap, overlap, or adjacent-state conflict.
	ErrPeriodSequence = errors.New("ledger: period sequence violation")
	// ErrInvalidPeriod indicates no open period covers the posting date.
	ErrInvalidPeriod = errors.New("ledger: no open period for date")
	// ErrPeriodNotFound indicates the period does not exist.
	ErrPeriodNotFound = errors.New("ledger: period not found")
	// ErrAccountNotFound indicates a referenced account does not exist.
	ErrAccountNotFound = errors.New("ledger: account not found")
	// ErrDocumentNotFound indicates a referenced source document does not exist.
	ErrDocumentNotFound = errors.New("ledger: document not found")
	// ErrJournalNotFound indicates a missing ledger transaction.
	ErrJournalNotFound = errors.New("ledger: transaction not found")
	// ErrAccountInUse indicates the account has posted distributions.
	ErrAccountInUse = errors.New("ledger: account referenced by posted distributions")
	// ErrStoreUnavailable indicates the record store could not be reached.
	ErrStoreUnavailable = errors.New("ledger: record store unavailable")
	// ErrConversionUnavailable indicates the currency gateway could not be reached.
	ErrConversionUnavailable = errors.New("ledger: currency conversion unavailable")
)

package posting

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// DocumentError ties a posting failure to the document that caused it.
// DocumentID is zero for batch-wide failures such as a snapshot load error.
type DocumentError struct {
	DocumentID int64
	Err        error
}

func (e DocumentError) Error() string {
	if e.DocumentID == 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("document %d: %v", e.DocumentID, e.Err)
}

func (e DocumentError) Unwrap() error { return e.Err }

// BatchError reports a failed posting batch: which phase it died in and every
// document-level failure collected before the batch aborted. A batch writes
// nothing when it fails.
type BatchError struct {
	BatchID uuid.UUID
	State   State
	Failed  []DocumentError
}

func (e *BatchError) Error() string {
	msgs := make([]string, len(e.Failed))
	for i, f := range e.Failed {
		msgs[i] = f.Error()
	}
	return fmt.Sprintf("posting batch %s failed while %s: %s", e.BatchID, strings.ToLower(string(e.State)), strings.Join(msgs, "; "))
}

func (e *BatchError) Unwrap() []error {
	errs := make([]error, len(e.Failed))
	for i := range e.Failed {
		errs[i] = e.Failed[i]
	}
	return errs
}

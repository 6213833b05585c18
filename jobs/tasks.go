package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/halcyon-erp/halcyon/internal/ledger/documents"
	"github.com/halcyon-erp/halcyon/internal/ledger/posting"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskGLIntegrity re-proves ledger invariants across the whole store.
	TaskGLIntegrity = "ledger:gl_integrity"
	// TaskPostUnposted posts every pending document of one class as a batch.
	TaskPostUnposted = "ledger:post_unposted"
)

// NewGLIntegrityTask constructs the integrity-check task.
func NewGLIntegrityTask() *asynq.Task {
	return asynq.NewTask(TaskGLIntegrity, nil)
}

// PostUnpostedPayload selects the document class a posting sweep covers.
type PostUnpostedPayload struct {
	DocumentType documents.DocumentType `json:"documentType"`
}

// NewPostUnpostedTask constructs a posting sweep task.
func NewPostUnpostedTask(payload PostUnpostedPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPostUnposted, data), nil
}

// PostUnpostedHandler returns the asynq handler driving a posting sweep.
func PostUnpostedHandler(svc *posting.Service) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload PostUnpostedPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		// Sweeps always post as of the moment they run.
		_, err := svc.PostAllUnposted(ctx, payload.DocumentType, time.Time{})
		return err
	}
}

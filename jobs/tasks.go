package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskIdentityResync recomputes identity cache entries from source.
	TaskIdentityResync = "identity:resync"
)

// IdentityResyncPayload selects what to recompute. An empty PrincipalID
// means every known principal.
type IdentityResyncPayload struct {
	PrincipalID string `json:"principal_id"`
}

// NewIdentityResyncTask constructs an Asynq task.
func NewIdentityResyncTask(payload IdentityResyncPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdentityResync, data), nil
}

// IdentityResyncer is the identity service surface the resync task consumes.
type IdentityResyncer interface {
	Resync(ctx context.Context, principalID string) error
	ResyncAll(ctx context.Context) (int, error)
}

// NewIdentityResyncHandler returns the handler processing TaskIdentityResync.
func NewIdentityResyncHandler(svc IdentityResyncer) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload IdentityResyncPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if payload.PrincipalID != "" {
			if err := svc.Resync(ctx, payload.PrincipalID); err != nil {
				return fmt.Errorf("jobs: resync %s: %w", payload.PrincipalID, err)
			}
			return nil
		}
		if _, err := svc.ResyncAll(ctx); err != nil {
			return fmt.Errorf("jobs: resync all: %w", err)
		}
		return nil
	}
}

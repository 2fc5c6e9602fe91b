package jobs

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
)

// Client enqueues background tasks from the HTTP service.
type Client struct {
	inner *asynq.Client
}

// NewClient constructs a Client over the shared Redis broker.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{inner: asynq.NewClient(redisOpts)}
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	if c == nil || c.inner == nil {
		return nil
	}
	return c.inner.Close()
}

// EnqueueResync schedules an identity cache recomputation. An empty
// principal id requests a full sweep.
func (c *Client) EnqueueResync(ctx context.Context, principalID string) error {
	task, err := NewIdentityResyncTask(IdentityResyncPayload{PrincipalID: principalID})
	if err != nil {
		return err
	}
	if _, err := c.inner.EnqueueContext(ctx, task, asynq.Queue(QueueDefault)); err != nil {
		return fmt.Errorf("jobs: enqueue resync: %w", err)
	}
	return nil
}

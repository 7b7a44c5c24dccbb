package jobs

import (
    "context"
    "errors"
    "fmt"

    "github.com/hibiken/asynq"
)

// ErrJobsDisabled is returned when no asynq client is configured (Redis is
// down or JOBS_ENABLED=false).
var ErrJobsDisabled = errors.New("background jobs are disabled")

// Enqueuer submits tasks to the worker queues.
type Enqueuer interface {
    Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Client is the asynq backed Enqueuer.  A nil *Client is valid and reports
// ErrJobsDisabled.
type Client struct {
    client *asynq.Client
}

// NewClient wraps an asynq client.  c may be nil.
func NewClient(c *asynq.Client) *Client {
    if c == nil {
        return nil
    }
    return &Client{client: c}
}

func (e *Client) Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
    if e == nil || e.client == nil {
        return nil, ErrJobsDisabled
    }
    info, err := e.client.EnqueueContext(ctx, task, opts...)
    if err != nil {
        return nil, fmt.Errorf("enqueue %s: %w", task.Type(), err)
    }
    return info, nil
}

// Close releases the underlying Redis connection.
func (e *Client) Close() error {
    if e == nil || e.client == nil {
        return nil
    }
    return e.client.Close()
}

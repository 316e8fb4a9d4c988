// Package jobs defines the background tasks that back up the POS posting
// pipeline: orders whose payment committed but whose GL posting failed are
// re-posted here until they succeed.
package jobs

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypePostOrder re-runs GL posting for a paid order.
	TaskTypePostOrder = "pos:post_order"
)

// PostOrderPayload identifies the order to re-post.
type PostOrderPayload struct {
	OrderID uuid.UUID `json:"order_id"`
}

// NewPostOrderTask constructs an Asynq task.
func NewPostOrderTask(payload PostOrderPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypePostOrder, data, asynq.Queue(QueueDefault), asynq.MaxRetry(10)), nil
}

// Enqueuer schedules posting retries through Asynq. It satisfies
// pos.TaskEnqueuer.
type Enqueuer struct {
	client *asynq.Client
}

// NewEnqueuer builds an Enqueuer.
func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

// EnqueuePostOrder schedules a posting retry for the order.
func (e *Enqueuer) EnqueuePostOrder(ctx context.Context, orderID uuid.UUID) error {
	task, err := NewPostOrderTask(PostOrderPayload{OrderID: orderID})
	if err != nil {
		return err
	}
	_, err = e.client.EnqueueContext(ctx, task)
	return err
}

package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/meridian-pos/meridian/internal/accounting/shared"
	"github.com/meridian-pos/meridian/internal/pos"
)

// PostOrderJob retries GL posting for orders that completed payment without a
// successful posting.
type PostOrderJob struct {
	Service *pos.Service
	Logger  *slog.Logger
}

// NewPostOrderJob initialises the posting retry handler.
func NewPostOrderJob(service *pos.Service, logger *slog.Logger) *PostOrderJob {
	return &PostOrderJob{Service: service, Logger: logger}
}

// Handle processes TaskTypePostOrder tasks. An already-posted order is a
// success: a concurrent caller or an earlier retry got there first.
func (j *PostOrderJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload PostOrderPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	logger := j.Logger.With(slog.String("order_id", payload.OrderID.String()))

	result, err := j.Service.PostOrderToGL(ctx, payload.OrderID)
	switch {
	case err == nil:
		logger.Info("posting retry succeeded", slog.String("journal_entry", result.JournalEntry.DocNum))
		return nil
	case errors.Is(err, shared.ErrAlreadyPosted):
		logger.Info("order already posted, retry skipped")
		return nil
	case errors.Is(err, shared.ErrOrderNotFound):
		logger.Warn("order vanished, dropping posting retry")
		return asynq.SkipRetry
	default:
		// Configuration and mapping errors stay retryable: an administrator
		// fixing the setup makes a later attempt succeed.
		logger.Warn("posting retry failed", slog.Any("error", err))
		return err
	}
}

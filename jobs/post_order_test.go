package jobs

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-pos/meridian/internal/accounting"
	"github.com/meridian-pos/meridian/internal/accounting/numbering"
	"github.com/meridian-pos/meridian/internal/accounting/shared"
	"github.com/meridian-pos/meridian/internal/pos"
)

// stubRepo fails every unit of work with a fixed error, which is all the
// retry-classification tests need.
type stubRepo struct {
	txErr error
}

func (s *stubRepo) WithTx(ctx context.Context, fn func(context.Context, pos.TxRepository) error) error {
	return s.txErr
}

func (s *stubRepo) GetOrder(ctx context.Context, orderID uuid.UUID) (*pos.Order, error) {
	return nil, shared.ErrOrderNotFound
}

func (s *stubRepo) GetConfig(ctx context.Context, businessUnitID uuid.UUID) (*pos.Config, error) {
	return nil, nil
}

func (s *stubRepo) CountActiveMenuItemsWithoutMapping(ctx context.Context, businessUnitID uuid.UUID) (int, error) {
	return 0, nil
}

func (s *stubRepo) CountActivePaymentMethodsWithoutMapping(ctx context.Context, businessUnitID uuid.UUID) (int, error) {
	return 0, nil
}

func (s *stubRepo) FindOpenPeriodByDate(ctx context.Context, businessUnitID uuid.UUID, date time.Time) (accounting.Period, error) {
	return accounting.Period{}, shared.ErrNoOpenPeriod
}

func (s *stubRepo) GetJournalEntry(ctx context.Context, entryID uuid.UUID) (*accounting.JournalEntry, error) {
	return nil, nil
}

func (s *stubRepo) GetJournalLinesResolved(ctx context.Context, entryID uuid.UUID) ([]pos.JournalLineView, error) {
	return nil, nil
}

func (s *stubRepo) GetARInvoice(ctx context.Context, invoiceID uuid.UUID) (*accounting.ARInvoice, error) {
	return nil, nil
}

func (s *stubRepo) ListOrderPostingRefs(ctx context.Context, orderIDs []uuid.UUID) ([]pos.OrderPostingRef, error) {
	return nil, nil
}

func newJob(txErr error) *PostOrderJob {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	accountingSvc := pos.NewAccountingService(numbering.NewService(), logger)
	svc := pos.NewService(&stubRepo{txErr: txErr}, accountingSvc, nil, nil, logger)
	return NewPostOrderJob(svc, logger)
}

func postOrderTask(t *testing.T, orderID uuid.UUID) *asynq.Task {
	t.Helper()
	task, err := NewPostOrderTask(PostOrderPayload{OrderID: orderID})
	require.NoError(t, err)
	require.Equal(t, TaskTypePostOrder, task.Type())
	return task
}

func TestHandle_AlreadyPostedIsSuccess(t *testing.T) {
	job := newJob(shared.ErrAlreadyPosted)
	err := job.Handle(context.Background(), postOrderTask(t, uuid.New()))
	assert.NoError(t, err)
}

func TestHandle_MissingOrderDropsRetry(t *testing.T) {
	job := newJob(shared.ErrOrderNotFound)
	err := job.Handle(context.Background(), postOrderTask(t, uuid.New()))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandle_ConfigurationErrorStaysRetryable(t *testing.T) {
	cause := shared.NewConfigurationError("sales tax account is not set")
	job := newJob(cause)
	err := job.Handle(context.Background(), postOrderTask(t, uuid.New()))
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
	var configErr *shared.ConfigurationError
	assert.ErrorAs(t, err, &configErr)
}

func TestHandle_MalformedPayloadDropsTask(t *testing.T) {
	job := newJob(nil)
	task := asynq.NewTask(TaskTypePostOrder, []byte("{not json"))
	err := job.Handle(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

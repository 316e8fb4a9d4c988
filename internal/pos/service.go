package pos

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridian-pos/meridian/internal/accounting/shared"
)

// paymentEpsilon is the tolerance when comparing recorded payments to the
// order total.
var paymentEpsilon = decimal.New(1, -2) // 0.01

const fallbackWalkInCode = "WALKIN"

// TaskEnqueuer schedules a posting retry for orders whose payment completed
// but whose GL posting failed.
type TaskEnqueuer interface {
	EnqueuePostOrder(ctx context.Context, orderID uuid.UUID) error
}

// CompletionResult is the outcome of CompleteOrderPayment. Accounting is nil
// when posting was skipped or failed; the payment itself still committed.
type CompletionResult struct {
	Order      *Order         `json:"order"`
	Accounting *PostingResult `json:"accounting,omitempty"`
}

// Service orchestrates order payment completion and exposes the accounting
// read projections.
type Service struct {
	repo       Repository
	accounting *AccountingService
	enqueuer   TaskEnqueuer
	cache      *StatusCache
	logger     *slog.Logger
	now        func() time.Time
}

// NewService builds the POS service. enqueuer and cache may be nil; retries
// and caching are then disabled.
func NewService(repo Repository, accountingSvc *AccountingService, enqueuer TaskEnqueuer, cache *StatusCache, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		accounting: accountingSvc,
		enqueuer:   enqueuer,
		cache:      cache,
		logger:     logger,
		now:        time.Now,
	}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CompleteOrderPayment validates recorded payments against the order total,
// attaches the walk-in customer when no partner is set, marks the order PAID,
// and then attempts GL posting. The payment completion commits even when
// posting fails: failed postings are logged and re-queued, and stay
// discoverable through the accounting-status readers.
func (s *Service) CompleteOrderPayment(ctx context.Context, orderID uuid.UUID, autoPost bool) (*CompletionResult, error) {
	var order *Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		order, err = tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status == OrderStatusPaid {
			return shared.ErrAlreadyPaid
		}

		paid := decimal.Zero
		for _, payment := range order.Payments {
			paid = paid.Add(payment.Amount)
		}
		if paid.Sub(order.TotalAmount).Abs().GreaterThanOrEqual(paymentEpsilon) {
			return &shared.PaymentMismatchError{Paid: paid, Total: order.TotalAmount}
		}

		partnerID := order.BusinessPartnerID
		if partnerID == nil {
			cfg, err := tx.GetConfig(ctx, order.BusinessUnitID)
			if err != nil {
				return err
			}
			code := fallbackWalkInCode
			if cfg != nil && cfg.DefaultCustomerBPCode != "" {
				code = cfg.DefaultCustomerBPCode
			}
			partner, err := tx.EnsureWalkInPartner(ctx, order.BusinessUnitID, code)
			if err != nil {
				return err
			}
			partnerID = &partner.ID
		}

		paidAt := s.now()
		if err := tx.MarkOrderPaid(ctx, order.ID, paidAt, *partnerID); err != nil {
			return err
		}
		order.Status = OrderStatusPaid
		order.IsPaid = true
		order.PaidAt = &paidAt
		order.AmountPaid = paid
		order.BusinessPartnerID = partnerID
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &CompletionResult{Order: order}
	if !autoPost {
		return result, nil
	}

	// Posting runs in its own transaction so a posting failure cannot roll
	// back the committed payment. Failures are logged and retried through
	// the worker queue; they never fail the completion.
	posting, err := s.PostOrderToGL(ctx, orderID)
	if err != nil {
		s.logger.Warn("GL posting failed after payment completion",
			slog.String("order_id", orderID.String()),
			slog.Any("error", err))
		if s.enqueuer != nil {
			if enqErr := s.enqueuer.EnqueuePostOrder(ctx, orderID); enqErr != nil {
				s.logger.Error("enqueue posting retry",
					slog.String("order_id", orderID.String()),
					slog.Any("error", enqErr))
			}
		}
		return result, nil
	}
	result.Order.ARInvoiceID = orderARInvoiceID(posting)
	result.Order.JournalEntryID = &posting.JournalEntry.ID
	result.Accounting = posting
	return result, nil
}

// PostOrderToGL runs the posting engine for one order inside one unit of
// work. Used by the explicit post-to-gl endpoint, the completion flow, and
// the retry worker.
func (s *Service) PostOrderToGL(ctx context.Context, orderID uuid.UUID) (*PostingResult, error) {
	var result *PostingResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		result, err = s.accounting.PostOrderToGL(ctx, tx, order)
		return err
	})
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Bump(ctx); err != nil {
			s.logger.Warn("bump status cache", slog.Any("error", err))
		}
	}
	return result, nil
}

func orderARInvoiceID(result *PostingResult) *uuid.UUID {
	if result.ARInvoice == nil {
		return nil
	}
	return &result.ARInvoice.ID
}

package pos

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderAccountingSummary is the full posting projection for one order.
type OrderAccountingSummary struct {
	OrderID            uuid.UUID         `json:"order_id"`
	IsPaid             bool              `json:"is_paid"`
	PostedToAR         bool              `json:"posted_to_ar"`
	PostedToGL         bool              `json:"posted_to_gl"`
	ARInvoiceNumber    *string           `json:"ar_invoice_number,omitempty"`
	JournalEntryNumber *string           `json:"journal_entry_number,omitempty"`
	TotalAmount        decimal.Decimal   `json:"total_amount"`
	Tax                decimal.Decimal   `json:"tax"`
	DiscountValue      decimal.Decimal   `json:"discount_value"`
	TotalDebits        decimal.Decimal   `json:"total_debits"`
	TotalCredits       decimal.Decimal   `json:"total_credits"`
	Lines              []JournalLineView `json:"lines,omitempty"`
}

// OrderAccountingStatus is the lightweight per-order batch projection for
// dashboards and lists.
type OrderAccountingStatus struct {
	OrderID            uuid.UUID `json:"order_id"`
	Posted             bool      `json:"posted"`
	PostedToAR         bool      `json:"posted_to_ar"`
	PostedToGL         bool      `json:"posted_to_gl"`
	ARInvoiceNumber    *string   `json:"ar_invoice_number,omitempty"`
	JournalEntryNumber *string   `json:"journal_entry_number,omitempty"`
}

// GetOrderAccountingSummary resolves the order's journal entry, directly or
// through its AR invoice, and returns flags, totals, and display-ready lines.
// Partially posted orders (only AR, only JE, or neither) are tolerated.
func (s *Service) GetOrderAccountingSummary(ctx context.Context, orderID uuid.UUID) (*OrderAccountingSummary, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	summary := &OrderAccountingSummary{
		OrderID:       order.ID,
		IsPaid:        order.IsPaid,
		PostedToAR:    order.ARInvoiceID != nil,
		PostedToGL:    order.JournalEntryID != nil,
		TotalAmount:   order.TotalAmount,
		Tax:           order.Tax,
		DiscountValue: order.DiscountValue,
		TotalDebits:   decimal.Zero,
		TotalCredits:  decimal.Zero,
	}

	entryID := order.JournalEntryID
	if order.ARInvoiceID != nil {
		invoice, err := s.repo.GetARInvoice(ctx, *order.ARInvoiceID)
		if err != nil {
			return nil, err
		}
		if invoice != nil {
			summary.ARInvoiceNumber = &invoice.DocNum
			if entryID == nil {
				entryID = invoice.JournalEntryID
			}
		}
	}
	if entryID == nil {
		return summary, nil
	}

	entry, err := s.repo.GetJournalEntry(ctx, *entryID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return summary, nil
	}
	summary.JournalEntryNumber = &entry.DocNum
	lines, err := s.repo.GetJournalLinesResolved(ctx, entry.ID)
	if err != nil {
		return nil, err
	}
	summary.Lines = lines
	for _, line := range lines {
		summary.TotalDebits = summary.TotalDebits.Add(line.Debit)
		summary.TotalCredits = summary.TotalCredits.Add(line.Credit)
	}
	return summary, nil
}

// GetOrdersAccountingStatus returns the posting state of many orders at once,
// served through the versioned status cache. Orders missing from the result
// do not exist.
func (s *Service) GetOrdersAccountingStatus(ctx context.Context, orderIDs []uuid.UUID) ([]OrderAccountingStatus, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}
	load := func(ctx context.Context) (any, error) {
		refs, err := s.repo.ListOrderPostingRefs(ctx, orderIDs)
		if err != nil {
			return nil, err
		}
		statuses := make([]OrderAccountingStatus, 0, len(refs))
		for _, ref := range refs {
			statuses = append(statuses, OrderAccountingStatus{
				OrderID:            ref.OrderID,
				Posted:             ref.JournalEntryID != nil,
				PostedToAR:         ref.ARInvoiceID != nil,
				PostedToGL:         ref.JournalEntryID != nil,
				ARInvoiceNumber:    ref.ARInvoiceNumber,
				JournalEntryNumber: ref.JournalEntryNumber,
			})
		}
		return statuses, nil
	}

	key, err := s.cache.BuildKey(ctx, "pos:status", joinIDs(orderIDs))
	if err != nil {
		return nil, err
	}
	var statuses []OrderAccountingStatus
	if err := s.cache.FetchJSON(ctx, key, &statuses, load); err != nil {
		return nil, err
	}
	return statuses, nil
}

func joinIDs(ids []uuid.UUID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ",")
}

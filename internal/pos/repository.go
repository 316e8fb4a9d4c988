package pos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridian-pos/meridian/internal/accounting"
	"github.com/meridian-pos/meridian/internal/accounting/numbering"
)

// Repository is the POS data-access port. Mutating flows run through WithTx;
// everything else is a plain read against the pool.
type Repository interface {
	// WithTx runs fn inside one transaction. fn returning an error rolls
	// back every write made through the TxRepository.
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error

	// GetOrder loads the full aggregate: items with menu items, GL mappings
	// and recipes, payments with methods, and the discount.
	GetOrder(ctx context.Context, orderID uuid.UUID) (*Order, error)
	GetConfig(ctx context.Context, businessUnitID uuid.UUID) (*Config, error)

	// Validation counts for the configuration screen.
	CountActiveMenuItemsWithoutMapping(ctx context.Context, businessUnitID uuid.UUID) (int, error)
	CountActivePaymentMethodsWithoutMapping(ctx context.Context, businessUnitID uuid.UUID) (int, error)
	FindOpenPeriodByDate(ctx context.Context, businessUnitID uuid.UUID, date time.Time) (accounting.Period, error)

	// Read projections for the accounting status readers.
	GetJournalEntry(ctx context.Context, entryID uuid.UUID) (*accounting.JournalEntry, error)
	GetJournalLinesResolved(ctx context.Context, entryID uuid.UUID) ([]JournalLineView, error)
	GetARInvoice(ctx context.Context, invoiceID uuid.UUID) (*accounting.ARInvoice, error)
	ListOrderPostingRefs(ctx context.Context, orderIDs []uuid.UUID) ([]OrderPostingRef, error)
}

// TxRepository exposes the operations available inside one unit of work. It
// embeds the numbering series port so document number allocation shares the
// posting transaction.
type TxRepository interface {
	numbering.SeriesTx

	// GetOrderForUpdate loads the full aggregate under a row lock on the
	// order, serializing concurrent completion/posting attempts.
	GetOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*Order, error)
	GetConfig(ctx context.Context, businessUnitID uuid.UUID) (*Config, error)
	FindOpenPeriodByDate(ctx context.Context, businessUnitID uuid.UUID, date time.Time) (accounting.Period, error)

	InsertARInvoice(ctx context.Context, invoice *accounting.ARInvoice) error
	InsertARInvoiceLines(ctx context.Context, lines []accounting.ARInvoiceLine) error
	InsertJournalEntry(ctx context.Context, entry *accounting.JournalEntry) error
	InsertJournalLines(ctx context.Context, lines []accounting.JournalLine) error
	SetARInvoiceJournal(ctx context.Context, invoiceID, entryID uuid.UUID) error

	// LinkOrderPosting stamps the generated document ids onto the order. A
	// unique-constraint violation surfaces as shared.ErrAlreadyPosted.
	LinkOrderPosting(ctx context.Context, orderID uuid.UUID, arInvoiceID *uuid.UUID, entryID uuid.UUID) error

	MarkOrderPaid(ctx context.Context, orderID uuid.UUID, paidAt time.Time, partnerID uuid.UUID) error
	// EnsureWalkInPartner returns the canonical walk-in customer for the
	// business unit, creating it when absent. Idempotent.
	EnsureWalkInPartner(ctx context.Context, businessUnitID uuid.UUID, code string) (BusinessPartner, error)
}

// JournalLineView is a journal line joined with its account for display.
type JournalLineView struct {
	AccountCode string          `json:"account_code"`
	AccountName string          `json:"account_name"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description"`
}

// OrderPostingRef is the lightweight posting state of one order, used by the
// batch accounting-status reader.
type OrderPostingRef struct {
	OrderID            uuid.UUID  `json:"order_id"`
	IsPaid             bool       `json:"is_paid"`
	ARInvoiceID        *uuid.UUID `json:"ar_invoice_id,omitempty"`
	ARInvoiceNumber    *string    `json:"ar_invoice_number,omitempty"`
	JournalEntryID     *uuid.UUID `json:"journal_entry_id,omitempty"`
	JournalEntryNumber *string    `json:"journal_entry_number,omitempty"`
}

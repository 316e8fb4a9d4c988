package pos

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridian-pos/meridian/internal/accounting"
	"github.com/meridian-pos/meridian/internal/accounting/numbering"
	"github.com/meridian-pos/meridian/internal/accounting/shared"
)

// PostingResult carries the documents created by one posting run.
type PostingResult struct {
	ARInvoice    *accounting.ARInvoice  `json:"ar_invoice,omitempty"`
	JournalEntry *accounting.JournalEntry `json:"journal_entry"`
	TotalDebits  decimal.Decimal        `json:"total_debits"`
	TotalCredits decimal.Decimal        `json:"total_credits"`
}

// AccountingService converts paid orders into GL documents. All writes happen
// through the TxRepository passed by the caller, so the whole posting is one
// atomic unit with whatever else the caller does in that transaction.
type AccountingService struct {
	numbering *numbering.Service
	logger    *slog.Logger
	now       func() time.Time
}

// NewAccountingService builds the posting engine.
func NewAccountingService(numberingSvc *numbering.Service, logger *slog.Logger) *AccountingService {
	return &AccountingService{numbering: numberingSvc, logger: logger, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *AccountingService) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// PostOrderToGL posts a paid order: an AR invoice when configured, a balanced
// journal entry (payment debits, revenue and tax credits, discount debit,
// COGS pairs), and the link-back onto the order. Any returned error means no
// write from this call survives, provided the caller rolls back the
// transaction.
func (s *AccountingService) PostOrderToGL(ctx context.Context, tx TxRepository, order *Order) (*PostingResult, error) {
	if order == nil {
		return nil, shared.ErrOrderNotFound
	}
	if order.JournalEntryID != nil || order.ARInvoiceID != nil {
		return nil, shared.ErrAlreadyPosted
	}
	if order.Status != OrderStatusPaid {
		return nil, shared.ErrOrderNotPaid
	}

	cfg, err := tx.GetConfig(ctx, order.BusinessUnitID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, shared.NewConfigurationError("no POS configuration for business unit %s", order.BusinessUnitID)
	}
	if !cfg.AutoPostToGL {
		return nil, shared.NewConfigurationError("auto-post to GL is disabled")
	}
	if cfg.ARInvoiceSeriesID == nil {
		return nil, shared.NewConfigurationError("AR invoice numbering series is not set")
	}
	if cfg.JournalEntrySeriesID == nil {
		return nil, shared.NewConfigurationError("journal entry numbering series is not set")
	}
	if cfg.SalesTaxAccountID == nil {
		return nil, shared.NewConfigurationError("sales tax account is not set")
	}

	postingDate := s.now()
	if _, err := tx.FindOpenPeriodByDate(ctx, order.BusinessUnitID, postingDate); err != nil {
		return nil, err
	}

	result := &PostingResult{}

	if cfg.AutoCreateARInvoice {
		invoice, err := s.createARInvoice(ctx, tx, order, cfg, postingDate)
		if err != nil {
			return nil, err
		}
		result.ARInvoice = invoice
	}

	jeDocNum, err := s.numbering.Allocate(ctx, tx, *cfg.JournalEntrySeriesID)
	if err != nil {
		return nil, err
	}
	entry := &accounting.JournalEntry{
		ID:             uuid.New(),
		DocNum:         jeDocNum,
		BusinessUnitID: order.BusinessUnitID,
		PostingDate:    postingDate,
		Remarks:        fmt.Sprintf("POS order %s", order.ID),
		AuthorID:       order.UserID,
	}

	lines, totalDebits, totalCredits, err := s.buildJournalLines(order, cfg, entry.ID)
	if err != nil {
		return nil, err
	}

	cogsLines, cogsTotal := s.buildCOGSLines(order, entry.ID)
	lines = append(lines, cogsLines...)
	totalDebits = totalDebits.Add(cogsTotal)
	totalCredits = totalCredits.Add(cogsTotal)

	if err := tx.InsertJournalEntry(ctx, entry); err != nil {
		return nil, err
	}
	if err := tx.InsertJournalLines(ctx, lines); err != nil {
		return nil, err
	}
	entry.Lines = lines

	var arInvoiceID *uuid.UUID
	if result.ARInvoice != nil {
		arInvoiceID = &result.ARInvoice.ID
	}
	if err := tx.LinkOrderPosting(ctx, order.ID, arInvoiceID, entry.ID); err != nil {
		return nil, err
	}
	if result.ARInvoice != nil {
		if err := tx.SetARInvoiceJournal(ctx, result.ARInvoice.ID, entry.ID); err != nil {
			return nil, err
		}
		result.ARInvoice.JournalEntryID = &entry.ID
	}
	order.ARInvoiceID = arInvoiceID
	order.JournalEntryID = &entry.ID

	result.JournalEntry = entry
	result.TotalDebits = totalDebits
	result.TotalCredits = totalCredits
	s.logger.Info("order posted to GL",
		slog.String("order_id", order.ID.String()),
		slog.String("journal_entry", entry.DocNum),
		slog.String("total_debits", totalDebits.StringFixed(2)))
	return result, nil
}

func (s *AccountingService) createARInvoice(ctx context.Context, tx TxRepository, order *Order, cfg *Config, postingDate time.Time) (*accounting.ARInvoice, error) {
	if order.BusinessPartnerID == nil {
		return nil, shared.NewConfigurationError("order %s has no business partner", order.ID)
	}
	docNum, err := s.numbering.Allocate(ctx, tx, *cfg.ARInvoiceSeriesID)
	if err != nil {
		return nil, err
	}
	invoice := &accounting.ARInvoice{
		ID:                uuid.New(),
		DocNum:            docNum,
		BusinessUnitID:    order.BusinessUnitID,
		BusinessPartnerID: *order.BusinessPartnerID,
		PostingDate:       postingDate,
		DocumentDate:      postingDate,
		DueDate:           postingDate,
		TotalAmount:       order.TotalAmount,
		AmountPaid:        order.TotalAmount,
		Status:            accounting.ARStatusClosed,
		SettlementStatus:  accounting.SettlementSettled,
	}
	for _, item := range order.Items {
		salesAccount, err := s.salesAccountFor(item, cfg)
		if err != nil {
			return nil, err
		}
		invoice.Lines = append(invoice.Lines, accounting.ARInvoiceLine{
			ID:          uuid.New(),
			ARInvoiceID: invoice.ID,
			Description: item.MenuItem.Name,
			Quantity:    item.Quantity,
			UnitPrice:   item.PriceAtSale,
			LineTotal:   item.LineTotal(),
			GLAccountID: salesAccount,
		})
	}
	if err := tx.InsertARInvoice(ctx, invoice); err != nil {
		return nil, err
	}
	if err := tx.InsertARInvoiceLines(ctx, invoice.Lines); err != nil {
		return nil, err
	}
	return invoice, nil
}

// buildJournalLines assembles the sale lines in fixed order: payment debits,
// revenue credits, tax credit, discount debit, then applies the rounding
// adjustment to the first payment debit line.
func (s *AccountingService) buildJournalLines(order *Order, cfg *Config, entryID uuid.UUID) ([]accounting.JournalLine, decimal.Decimal, decimal.Decimal, error) {
	var lines []accounting.JournalLine
	totalDebits := decimal.Zero
	totalCredits := decimal.Zero
	firstPayment := -1

	for _, payment := range order.Payments {
		var methodAccount *uuid.UUID
		name := "payment method"
		if payment.PaymentMethod != nil {
			methodAccount = payment.PaymentMethod.GLAccountID
			name = payment.PaymentMethod.Name
		}
		account, ok := resolveAccount(methodAccount, cfg.CashAccountID)
		if !ok {
			return nil, decimal.Zero, decimal.Zero, &shared.MissingGLMappingError{Kind: "payment method", Name: name}
		}
		if firstPayment < 0 {
			firstPayment = len(lines)
		}
		lines = append(lines, accounting.JournalLine{
			ID:             uuid.New(),
			JournalEntryID: entryID,
			GLAccountID:    account,
			Debit:          payment.Amount,
			Description:    fmt.Sprintf("POS payment - %s", name),
		})
		totalDebits = totalDebits.Add(payment.Amount)
	}

	for _, item := range order.Items {
		account, err := s.salesAccountFor(item, cfg)
		if err != nil {
			return nil, decimal.Zero, decimal.Zero, err
		}
		amount := item.LineTotal()
		lines = append(lines, accounting.JournalLine{
			ID:             uuid.New(),
			JournalEntryID: entryID,
			GLAccountID:    account,
			Credit:         amount,
			Description:    fmt.Sprintf("Sales - %s", item.MenuItem.Name),
		})
		totalCredits = totalCredits.Add(amount)
	}

	if order.Tax.IsPositive() {
		lines = append(lines, accounting.JournalLine{
			ID:             uuid.New(),
			JournalEntryID: entryID,
			GLAccountID:    *cfg.SalesTaxAccountID,
			Credit:         order.Tax,
			Description:    "Sales tax",
		})
		totalCredits = totalCredits.Add(order.Tax)
	}

	if order.DiscountValue.IsPositive() {
		var override *uuid.UUID
		if order.Discount != nil {
			override = order.Discount.GLAccountID
		}
		account, ok := resolveAccount(override, cfg.DiscountAccountID)
		if !ok {
			return nil, decimal.Zero, decimal.Zero, shared.NewConfigurationError("discount account is not set")
		}
		lines = append(lines, accounting.JournalLine{
			ID:             uuid.New(),
			JournalEntryID: entryID,
			GLAccountID:    account,
			Debit:          order.DiscountValue,
			Description:    "Discount given",
		})
		totalDebits = totalDebits.Add(order.DiscountValue)
	}

	// Rounding remainder is absorbed into the tendered payment, never into
	// revenue. Without a payment line the imbalance is unrecoverable.
	if !totalDebits.Equal(totalCredits) {
		if firstPayment < 0 {
			return nil, decimal.Zero, decimal.Zero, &shared.UnbalancedEntryError{Debits: totalDebits, Credits: totalCredits}
		}
		adjustment := totalCredits.Sub(totalDebits)
		lines[firstPayment].Debit = lines[firstPayment].Debit.Add(adjustment)
		totalDebits = totalCredits
	}

	return lines, totalDebits, totalCredits, nil
}

// buildCOGSLines values recipe consumption at standard cost and appends a
// debit/credit pair per item. Items without a recipe or without a COGS and
// inventory mapping recognize no COGS; that is a known simplification, not an
// error.
func (s *AccountingService) buildCOGSLines(order *Order, entryID uuid.UUID) ([]accounting.JournalLine, decimal.Decimal) {
	var lines []accounting.JournalLine
	total := decimal.Zero
	for _, item := range order.Items {
		mi := item.MenuItem
		if mi == nil || mi.Recipe == nil || mi.GLMapping == nil {
			continue
		}
		if mi.GLMapping.COGSAccountID == nil || mi.GLMapping.InventoryAccountID == nil {
			continue
		}
		itemCogs := decimal.Zero
		for _, component := range mi.Recipe.Items {
			if component.InventoryItem == nil {
				continue
			}
			itemCogs = itemCogs.Add(component.QuantityUsed.Mul(item.Quantity).Mul(component.InventoryItem.StandardCost))
		}
		if !itemCogs.IsPositive() {
			continue
		}
		lines = append(lines,
			accounting.JournalLine{
				ID:             uuid.New(),
				JournalEntryID: entryID,
				GLAccountID:    *mi.GLMapping.COGSAccountID,
				Debit:          itemCogs,
				Description:    fmt.Sprintf("COGS - %s", mi.Name),
			},
			accounting.JournalLine{
				ID:             uuid.New(),
				JournalEntryID: entryID,
				GLAccountID:    *mi.GLMapping.InventoryAccountID,
				Credit:         itemCogs,
				Description:    fmt.Sprintf("Inventory consumption - %s", mi.Name),
			},
		)
		total = total.Add(itemCogs)
	}
	return lines, total
}

func (s *AccountingService) salesAccountFor(item OrderItem, cfg *Config) (uuid.UUID, error) {
	var primary *uuid.UUID
	name := "order item"
	if item.MenuItem != nil {
		name = item.MenuItem.Name
		if item.MenuItem.GLMapping != nil {
			primary = item.MenuItem.GLMapping.SalesAccountID
		}
	}
	account, ok := resolveAccount(primary, cfg.SalesRevenueAccountID)
	if !ok {
		return uuid.Nil, &shared.MissingGLMappingError{Kind: "menu item", Name: name}
	}
	return account, nil
}

// resolveAccount picks the primary mapping when present, otherwise the
// configured fallback.
func resolveAccount(primary, fallback *uuid.UUID) (uuid.UUID, bool) {
	if primary != nil {
		return *primary, true
	}
	if fallback != nil {
		return *fallback, true
	}
	return uuid.Nil, false
}

// Package accounting holds the general-ledger domain: accounts, journal
// entries, AR invoices, and accounting periods. Documents are created by the
// POS posting engine and read back through the repository in this package.
package accounting

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NormalBalance is the debit/credit nature of a GL account.
type NormalBalance string

const (
	NormalBalanceDebit  NormalBalance = "DEBIT"
	NormalBalanceCredit NormalBalance = "CREDIT"
)

// GLAccount is a chart-of-accounts entry. Posting references accounts but
// never mutates them.
type GLAccount struct {
	ID             uuid.UUID     `json:"id" db:"id"`
	BusinessUnitID uuid.UUID     `json:"business_unit_id" db:"business_unit_id"`
	AccountCode    string        `json:"account_code" db:"account_code"`
	Name           string        `json:"name" db:"name"`
	NormalBalance  NormalBalance `json:"normal_balance" db:"normal_balance"`
}

// JournalEntry is a balanced double-entry document.
type JournalEntry struct {
	ID             uuid.UUID     `json:"id" db:"id"`
	DocNum         string        `json:"doc_num" db:"doc_num"`
	BusinessUnitID uuid.UUID     `json:"business_unit_id" db:"business_unit_id"`
	PostingDate    time.Time     `json:"posting_date" db:"posting_date"`
	Remarks        string        `json:"remarks" db:"remarks"`
	AuthorID       *uuid.UUID    `json:"author_id,omitempty" db:"author_id"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	Lines          []JournalLine `json:"lines,omitempty" db:"-"`
}

// JournalLine carries either a debit or a credit amount, never both.
type JournalLine struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	JournalEntryID uuid.UUID       `json:"journal_entry_id" db:"journal_entry_id"`
	GLAccountID    uuid.UUID       `json:"gl_account_id" db:"gl_account_id"`
	Debit          decimal.Decimal `json:"debit" db:"debit"`
	Credit         decimal.Decimal `json:"credit" db:"credit"`
	Description    string          `json:"description" db:"description"`
}

// ARInvoiceStatus enumerates AR invoice statuses.
type ARInvoiceStatus string

const (
	ARStatusOpen   ARInvoiceStatus = "OPEN"
	ARStatusClosed ARInvoiceStatus = "CLOSED"
)

// SettlementStatus enumerates AR settlement states.
type SettlementStatus string

const (
	SettlementOpen    SettlementStatus = "OPEN"
	SettlementSettled SettlementStatus = "SETTLED"
)

// ARInvoice is an accounts-receivable document. POS-generated invoices are
// created already settled because payment was tendered at the till.
type ARInvoice struct {
	ID               uuid.UUID        `json:"id" db:"id"`
	DocNum           string           `json:"doc_num" db:"doc_num"`
	BusinessUnitID   uuid.UUID        `json:"business_unit_id" db:"business_unit_id"`
	BusinessPartnerID uuid.UUID       `json:"business_partner_id" db:"business_partner_id"`
	PostingDate      time.Time        `json:"posting_date" db:"posting_date"`
	DocumentDate     time.Time        `json:"document_date" db:"document_date"`
	DueDate          time.Time        `json:"due_date" db:"due_date"`
	TotalAmount      decimal.Decimal  `json:"total_amount" db:"total_amount"`
	AmountPaid       decimal.Decimal  `json:"amount_paid" db:"amount_paid"`
	Status           ARInvoiceStatus  `json:"status" db:"status"`
	SettlementStatus SettlementStatus `json:"settlement_status" db:"settlement_status"`
	JournalEntryID   *uuid.UUID       `json:"journal_entry_id,omitempty" db:"journal_entry_id"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`
	Lines            []ARInvoiceLine  `json:"lines,omitempty" db:"-"`
}

// ARInvoiceLine mirrors one order item on the invoice.
type ARInvoiceLine struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	ARInvoiceID uuid.UUID       `json:"ar_invoice_id" db:"ar_invoice_id"`
	Description string          `json:"description" db:"description"`
	Quantity    decimal.Decimal `json:"quantity" db:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price" db:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total" db:"line_total"`
	GLAccountID uuid.UUID       `json:"gl_account_id" db:"gl_account_id"`
}

// PeriodStatus enumerates accounting period states.
type PeriodStatus string

const (
	PeriodStatusOpen   PeriodStatus = "OPEN"
	PeriodStatusClosed PeriodStatus = "CLOSED"
)

// Period is a fiscal period window. Posting requires an OPEN period covering
// the posting date.
type Period struct {
	ID             uuid.UUID    `json:"id" db:"id"`
	BusinessUnitID uuid.UUID    `json:"business_unit_id" db:"business_unit_id"`
	StartDate      time.Time    `json:"start_date" db:"start_date"`
	EndDate        time.Time    `json:"end_date" db:"end_date"`
	Status         PeriodStatus `json:"status" db:"status"`
}

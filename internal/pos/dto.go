package pos

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CompletePaymentRequest is the body of POST /orders/{id}/complete-payment.
// AutoPostToGL defaults to true when omitted.
type CompletePaymentRequest struct {
	AutoPostToGL *bool `json:"auto_post_to_gl,omitempty"`
}

// PostToGLResponse is the body returned by POST /orders/{id}/post-to-gl.
type PostToGLResponse struct {
	Success            bool            `json:"success"`
	ARInvoiceID        *uuid.UUID      `json:"ar_invoice_id,omitempty"`
	ARInvoiceNumber    *string         `json:"ar_invoice_number,omitempty"`
	JournalEntryID     uuid.UUID       `json:"journal_entry_id"`
	JournalEntryNumber string          `json:"journal_entry_number"`
	TotalDebits        decimal.Decimal `json:"total_debits"`
	TotalCredits       decimal.Decimal `json:"total_credits"`
}

// OrdersStatusQuery captures the parsed ids parameter of the batch status
// endpoint.
type OrdersStatusQuery struct {
	IDs []string `validate:"required,min=1,max=200,dive,uuid"`
}

func newPostToGLResponse(result *PostingResult) PostToGLResponse {
	resp := PostToGLResponse{
		Success:            true,
		JournalEntryID:     result.JournalEntry.ID,
		JournalEntryNumber: result.JournalEntry.DocNum,
		TotalDebits:        result.TotalDebits,
		TotalCredits:       result.TotalCredits,
	}
	if result.ARInvoice != nil {
		resp.ARInvoiceID = &result.ARInvoice.ID
		resp.ARInvoiceNumber = &result.ARInvoice.DocNum
	}
	return resp
}

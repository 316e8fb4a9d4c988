package shared

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrOrderNotFound indicates the referenced order does not exist.
	ErrOrderNotFound = errors.New("pos: order not found")
	// ErrSeriesNotFound indicates the numbering series does not exist.
	ErrSeriesNotFound = errors.New("accounting: numbering series not found")
	// ErrAccountNotFound indicates a referenced GL account does not exist.
	ErrAccountNotFound = errors.New("accounting: gl account not found")
	// ErrAlreadyPosted indicates the order already has linked accounting documents.
	ErrAlreadyPosted = errors.New("pos: order already posted to general ledger")
	// ErrAlreadyPaid indicates payment completion was attempted twice.
	ErrAlreadyPaid = errors.New("pos: order already paid")
	// ErrOrderNotPaid indicates posting was attempted before payment completion.
	ErrOrderNotPaid = errors.New("pos: order is not paid")
	// ErrNoOpenPeriod indicates no OPEN accounting period covers the posting date.
	ErrNoOpenPeriod = errors.New("accounting: no open period for posting date")
)

// ConfigurationError reports missing POS/accounting configuration that blocks
// posting. Detail is a display-ready description of what is missing.
type ConfigurationError struct {
	Detail string
}

func (e *ConfigurationError) Error() string {
	return "pos: configuration error: " + e.Detail
}

// NewConfigurationError builds a ConfigurationError with a formatted detail.
func NewConfigurationError(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Detail: fmt.Sprintf(format, args...)}
}

// PaymentMismatchError reports that recorded payments do not sum to the order
// total. Both amounts are carried so callers can display them.
type PaymentMismatchError struct {
	Paid  decimal.Decimal
	Total decimal.Decimal
}

func (e *PaymentMismatchError) Error() string {
	return fmt.Sprintf("pos: payment mismatch: paid %s, order total %s", e.Paid.StringFixed(2), e.Total.StringFixed(2))
}

// MissingGLMappingError names the menu item or payment method that has no
// resolvable GL account and no configured default.
type MissingGLMappingError struct {
	Kind string // "menu item" or "payment method"
	Name string
}

func (e *MissingGLMappingError) Error() string {
	return fmt.Sprintf("pos: no GL account mapped for %s %q and no default configured", e.Kind, e.Name)
}

// UnbalancedEntryError reports a journal entry whose debits and credits still
// disagree after rounding adjustment.
type UnbalancedEntryError struct {
	Debits  decimal.Decimal
	Credits decimal.Decimal
}

func (e *UnbalancedEntryError) Error() string {
	return fmt.Sprintf("accounting: journal entry unbalanced: debits %s, credits %s", e.Debits.StringFixed(2), e.Credits.StringFixed(2))
}

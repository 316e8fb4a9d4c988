package pos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/meridian-pos/meridian/internal/accounting/shared"
)

// ValidationResult reports blocking issues and non-blocking warnings for a
// business unit's POS accounting configuration. Warnings never block.
type ValidationResult struct {
	IsValid  bool     `json:"is_valid"`
	Issues   []string `json:"issues"`
	Warnings []string `json:"warnings"`
}

// ConfigValidator inspects a business unit's configuration ahead of posting.
// Validate is read-only and idempotent; it is safe to call repeatedly and
// concurrently.
type ConfigValidator struct {
	repo Repository
	now  func() time.Time
}

// NewConfigValidator builds a ConfigValidator.
func NewConfigValidator(repo Repository) *ConfigValidator {
	return &ConfigValidator{repo: repo, now: time.Now}
}

// WithNow overrides the clock for testing.
func (v *ConfigValidator) WithNow(now func() time.Time) {
	if now != nil {
		v.now = now
	}
}

// Validate checks account mappings, numbering series, menu item and payment
// method coverage, and the open accounting period.
func (v *ConfigValidator) Validate(ctx context.Context, businessUnitID uuid.UUID) (*ValidationResult, error) {
	result := &ValidationResult{Issues: []string{}, Warnings: []string{}}

	cfg, err := v.repo.GetConfig(ctx, businessUnitID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		result.Issues = append(result.Issues, "POS configuration has not been set up for this business unit")
		return result, nil
	}

	if cfg.AutoPostToGL {
		if cfg.SalesRevenueAccountID == nil {
			result.Issues = append(result.Issues, "auto-posting is enabled but no default sales revenue account is configured")
		}
		if cfg.SalesTaxAccountID == nil {
			result.Issues = append(result.Issues, "auto-posting is enabled but no sales tax account is configured")
		}
		if cfg.JournalEntrySeriesID == nil {
			result.Issues = append(result.Issues, "auto-posting is enabled but no journal entry numbering series is configured")
		}
	}
	if cfg.AutoCreateARInvoice && cfg.ARInvoiceSeriesID == nil {
		result.Issues = append(result.Issues, "AR invoice creation is enabled but no AR invoice numbering series is configured")
	}

	var unmappedItems, unmappedMethods int
	var periodErr error
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		unmappedItems, err = v.repo.CountActiveMenuItemsWithoutMapping(gctx, businessUnitID)
		return err
	})
	g.Go(func() error {
		var err error
		unmappedMethods, err = v.repo.CountActivePaymentMethodsWithoutMapping(gctx, businessUnitID)
		return err
	})
	g.Go(func() error {
		_, err := v.repo.FindOpenPeriodByDate(gctx, businessUnitID, v.now())
		if errors.Is(err, shared.ErrNoOpenPeriod) {
			periodErr = err
			return nil
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if unmappedItems > 0 {
		msg := fmt.Sprintf("%d active menu item(s) have no sales account mapping", unmappedItems)
		if cfg.AutoPostToGL && cfg.SalesRevenueAccountID == nil {
			result.Issues = append(result.Issues, msg)
		} else {
			result.Warnings = append(result.Warnings, msg+"; the default sales revenue account will be used")
		}
	}
	if unmappedMethods > 0 {
		msg := fmt.Sprintf("%d active payment method(s) have no GL account mapping", unmappedMethods)
		if cfg.AutoPostToGL && cfg.CashAccountID == nil {
			result.Issues = append(result.Issues, msg)
		} else {
			result.Warnings = append(result.Warnings, msg+"; the default cash account will be used")
		}
	}
	if periodErr != nil && cfg.AutoPostToGL {
		result.Issues = append(result.Issues, "no open accounting period covers the current date")
	}

	result.IsValid = len(result.Issues) == 0
	return result, nil
}

// Package pos implements the point-of-sale back office: order payment
// completion, configuration validation, and the posting engine that turns a
// paid order into a balanced journal entry, an AR invoice, and COGS postings.
package pos

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus enumerates the order lifecycle. PAID is terminal.
type OrderStatus string

const (
	OrderStatusOpen      OrderStatus = "OPEN"
	OrderStatusPreparing OrderStatus = "PREPARING"
	OrderStatusPaid      OrderStatus = "PAID"
)

// Order is the point-of-sale transaction aggregate. It exclusively owns its
// items and payments. Once JournalEntryID is set the order cannot be posted
// again.
type Order struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	BusinessUnitID    uuid.UUID       `json:"business_unit_id" db:"business_unit_id"`
	Status            OrderStatus     `json:"status" db:"status"`
	IsPaid            bool            `json:"is_paid" db:"is_paid"`
	PaidAt            *time.Time      `json:"paid_at,omitempty" db:"paid_at"`
	Subtotal          decimal.Decimal `json:"subtotal" db:"subtotal"`
	Tax               decimal.Decimal `json:"tax" db:"tax"`
	DiscountValue     decimal.Decimal `json:"discount_value" db:"discount_value"`
	TotalAmount       decimal.Decimal `json:"total_amount" db:"total_amount"`
	AmountPaid        decimal.Decimal `json:"amount_paid" db:"amount_paid"`
	BusinessPartnerID *uuid.UUID      `json:"business_partner_id,omitempty" db:"business_partner_id"`
	ARInvoiceID       *uuid.UUID      `json:"ar_invoice_id,omitempty" db:"ar_invoice_id"`
	JournalEntryID    *uuid.UUID      `json:"journal_entry_id,omitempty" db:"journal_entry_id"`
	UserID            *uuid.UUID      `json:"user_id,omitempty" db:"user_id"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
	Items             []OrderItem     `json:"items,omitempty" db:"-"`
	Payments          []Payment       `json:"payments,omitempty" db:"-"`
	Discount          *Discount       `json:"discount,omitempty" db:"-"`
}

// OrderItem is one sold line on an order.
type OrderItem struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	OrderID     uuid.UUID       `json:"order_id" db:"order_id"`
	MenuItemID  uuid.UUID       `json:"menu_item_id" db:"menu_item_id"`
	Quantity    decimal.Decimal `json:"quantity" db:"quantity"`
	PriceAtSale decimal.Decimal `json:"price_at_sale" db:"price_at_sale"`
	MenuItem    *MenuItem       `json:"menu_item,omitempty" db:"-"`
}

// LineTotal is quantity times the captured sale price.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Quantity.Mul(i.PriceAtSale)
}

// MenuItem is a sellable product with an optional GL mapping and recipe.
type MenuItem struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	BusinessUnitID uuid.UUID       `json:"business_unit_id" db:"business_unit_id"`
	Name           string          `json:"name" db:"name"`
	Price          decimal.Decimal `json:"price" db:"price"`
	IsActive       bool            `json:"is_active" db:"is_active"`
	GLMapping      *MenuItemGLMapping `json:"gl_mapping,omitempty" db:"-"`
	Recipe         *Recipe            `json:"recipe,omitempty" db:"-"`
}

// MenuItemGLMapping resolves which GL accounts a menu item posts to.
type MenuItemGLMapping struct {
	SalesAccountID     *uuid.UUID `json:"sales_account_id,omitempty" db:"sales_account_id"`
	COGSAccountID      *uuid.UUID `json:"cogs_account_id,omitempty" db:"cogs_account_id"`
	InventoryAccountID *uuid.UUID `json:"inventory_account_id,omitempty" db:"inventory_account_id"`
}

// Recipe is the bill of materials consumed when a menu item is sold.
type Recipe struct {
	ID    uuid.UUID    `json:"id" db:"id"`
	Items []RecipeItem `json:"items,omitempty" db:"-"`
}

// RecipeItem consumes QuantityUsed of one inventory item per unit sold.
type RecipeItem struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	RecipeID        uuid.UUID       `json:"recipe_id" db:"recipe_id"`
	InventoryItemID uuid.UUID       `json:"inventory_item_id" db:"inventory_item_id"`
	QuantityUsed    decimal.Decimal `json:"quantity_used" db:"quantity_used"`
	InventoryItem   *InventoryItem  `json:"inventory_item,omitempty" db:"-"`
}

// InventoryItem carries the standard cost used for COGS valuation.
type InventoryItem struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	Name         string          `json:"name" db:"name"`
	StandardCost decimal.Decimal `json:"standard_cost" db:"standard_cost"`
}

// Payment is one tender recorded against an order.
type Payment struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	OrderID         uuid.UUID       `json:"order_id" db:"order_id"`
	PaymentMethodID uuid.UUID       `json:"payment_method_id" db:"payment_method_id"`
	Amount          decimal.Decimal `json:"amount" db:"amount"`
	PaymentMethod   *PaymentMethod  `json:"payment_method,omitempty" db:"-"`
}

// PaymentMethod owns a per-business-unit mapping to the cash/bank/clearing
// account debited when the method is used.
type PaymentMethod struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	BusinessUnitID uuid.UUID  `json:"business_unit_id" db:"business_unit_id"`
	Name           string     `json:"name" db:"name"`
	IsActive       bool       `json:"is_active" db:"is_active"`
	GLAccountID    *uuid.UUID `json:"gl_account_id,omitempty" db:"gl_account_id"`
}

// Discount applied to an order, with an optional GL account override.
type Discount struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	Name          string          `json:"name" db:"name"`
	DiscountValue decimal.Decimal `json:"discount_value" db:"discount_value"`
	GLAccountID   *uuid.UUID      `json:"gl_account_id,omitempty" db:"gl_account_id"`
}

// BusinessPartner is the customer attached to an order. Orders without one
// are walk-in sales and get the canonical walk-in partner on completion.
type BusinessPartner struct {
	ID             uuid.UUID `json:"id" db:"id"`
	BusinessUnitID uuid.UUID `json:"business_unit_id" db:"business_unit_id"`
	Code           string    `json:"code" db:"code"`
	Name           string    `json:"name" db:"name"`
}

// Config is the per-business-unit POS accounting configuration.
type Config struct {
	BusinessUnitID        uuid.UUID  `json:"business_unit_id" db:"business_unit_id"`
	AutoPostToGL          bool       `json:"auto_post_to_gl" db:"auto_post_to_gl"`
	AutoCreateARInvoice   bool       `json:"auto_create_ar_invoice" db:"auto_create_ar_invoice"`
	ARInvoiceSeriesID     *uuid.UUID `json:"ar_invoice_series_id,omitempty" db:"ar_invoice_series_id"`
	JournalEntrySeriesID  *uuid.UUID `json:"journal_entry_series_id,omitempty" db:"journal_entry_series_id"`
	SalesRevenueAccountID *uuid.UUID `json:"sales_revenue_account_id,omitempty" db:"sales_revenue_account_id"`
	SalesTaxAccountID     *uuid.UUID `json:"sales_tax_account_id,omitempty" db:"sales_tax_account_id"`
	CashAccountID         *uuid.UUID `json:"cash_account_id,omitempty" db:"cash_account_id"`
	DiscountAccountID     *uuid.UUID `json:"discount_account_id,omitempty" db:"discount_account_id"`
	DefaultCustomerBPCode string     `json:"default_customer_bp_code" db:"default_customer_bp_code"`
}

package pos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-pos/meridian/internal/accounting"
	"github.com/meridian-pos/meridian/internal/accounting/numbering"
	"github.com/meridian-pos/meridian/internal/accounting/shared"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx so aggregate loading
// can run inside or outside a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx-backed POS repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	if err := fn(ctx, &txRepository{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func (r *repository) GetOrder(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	return loadOrder(ctx, r.db, orderID, false)
}

func (r *repository) GetConfig(ctx context.Context, businessUnitID uuid.UUID) (*Config, error) {
	return loadConfig(ctx, r.db, businessUnitID)
}

func (r *repository) CountActiveMenuItemsWithoutMapping(ctx context.Context, businessUnitID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM menu_items mi
LEFT JOIN menu_item_gl_mappings m ON m.menu_item_id = mi.id
WHERE mi.business_unit_id=$1 AND mi.is_active AND (m.menu_item_id IS NULL OR m.sales_account_id IS NULL)`, businessUnitID).Scan(&count)
	return count, err
}

func (r *repository) CountActivePaymentMethodsWithoutMapping(ctx context.Context, businessUnitID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM payment_methods
WHERE business_unit_id=$1 AND is_active AND gl_account_id IS NULL`, businessUnitID).Scan(&count)
	return count, err
}

func (r *repository) FindOpenPeriodByDate(ctx context.Context, businessUnitID uuid.UUID, date time.Time) (accounting.Period, error) {
	return findOpenPeriodByDate(ctx, r.db, businessUnitID, date)
}

func (r *repository) GetJournalEntry(ctx context.Context, entryID uuid.UUID) (*accounting.JournalEntry, error) {
	var e accounting.JournalEntry
	err := r.db.QueryRow(ctx, `SELECT id, doc_num, business_unit_id, posting_date, remarks, author_id, created_at
FROM journal_entries WHERE id=$1`, entryID).
		Scan(&e.ID, &e.DocNum, &e.BusinessUnitID, &e.PostingDate, &e.Remarks, &e.AuthorID, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

func (r *repository) GetJournalLinesResolved(ctx context.Context, entryID uuid.UUID) ([]JournalLineView, error) {
	rows, err := r.db.Query(ctx, `SELECT a.account_code, a.name, l.debit, l.credit, l.description
FROM journal_lines l
JOIN gl_accounts a ON a.id = l.gl_account_id
WHERE l.journal_entry_id=$1 ORDER BY l.seq ASC`, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []JournalLineView
	for rows.Next() {
		var v JournalLineView
		if err := rows.Scan(&v.AccountCode, &v.AccountName, &v.Debit, &v.Credit, &v.Description); err != nil {
			return nil, err
		}
		lines = append(lines, v)
	}
	return lines, rows.Err()
}

func (r *repository) GetARInvoice(ctx context.Context, invoiceID uuid.UUID) (*accounting.ARInvoice, error) {
	var inv accounting.ARInvoice
	err := r.db.QueryRow(ctx, `SELECT id, doc_num, business_unit_id, business_partner_id, posting_date, document_date, due_date,
       total_amount, amount_paid, status, settlement_status, journal_entry_id, created_at
FROM ar_invoices WHERE id=$1`, invoiceID).
		Scan(&inv.ID, &inv.DocNum, &inv.BusinessUnitID, &inv.BusinessPartnerID, &inv.PostingDate, &inv.DocumentDate,
			&inv.DueDate, &inv.TotalAmount, &inv.AmountPaid, &inv.Status, &inv.SettlementStatus, &inv.JournalEntryID, &inv.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &inv, nil
}

func (r *repository) ListOrderPostingRefs(ctx context.Context, orderIDs []uuid.UUID) ([]OrderPostingRef, error) {
	rows, err := r.db.Query(ctx, `SELECT o.id, o.is_paid, o.ar_invoice_id, ai.doc_num, o.journal_entry_id, je.doc_num
FROM pos_orders o
LEFT JOIN ar_invoices ai ON ai.id = o.ar_invoice_id
LEFT JOIN journal_entries je ON je.id = o.journal_entry_id
WHERE o.id = ANY($1)`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var refs []OrderPostingRef
	for rows.Next() {
		var ref OrderPostingRef
		if err := rows.Scan(&ref.OrderID, &ref.IsPaid, &ref.ARInvoiceID, &ref.ARInvoiceNumber, &ref.JournalEntryID, &ref.JournalEntryNumber); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

type txRepository struct {
	tx pgx.Tx
}

var _ numbering.SeriesTx = (*txRepository)(nil)

func (r *txRepository) GetSeriesForUpdate(ctx context.Context, seriesID uuid.UUID) (numbering.Series, error) {
	var s numbering.Series
	err := r.tx.QueryRow(ctx, `SELECT id, business_unit_id, name, prefix, next_number, created_at, updated_at
FROM numbering_series WHERE id=$1 FOR UPDATE`, seriesID).
		Scan(&s.ID, &s.BusinessUnitID, &s.Name, &s.Prefix, &s.NextNumber, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return numbering.Series{}, shared.ErrSeriesNotFound
		}
		return numbering.Series{}, err
	}
	return s, nil
}

func (r *txRepository) IncrementSeries(ctx context.Context, seriesID uuid.UUID) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE numbering_series SET next_number = next_number + 1, updated_at = NOW() WHERE id=$1`, seriesID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrSeriesNotFound
	}
	return nil
}

func (r *txRepository) GetOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	return loadOrder(ctx, r.tx, orderID, true)
}

func (r *txRepository) GetConfig(ctx context.Context, businessUnitID uuid.UUID) (*Config, error) {
	return loadConfig(ctx, r.tx, businessUnitID)
}

func (r *txRepository) FindOpenPeriodByDate(ctx context.Context, businessUnitID uuid.UUID, date time.Time) (accounting.Period, error) {
	return findOpenPeriodByDate(ctx, r.tx, businessUnitID, date)
}

func (r *txRepository) InsertARInvoice(ctx context.Context, invoice *accounting.ARInvoice) error {
	return r.tx.QueryRow(ctx, `INSERT INTO ar_invoices (id, doc_num, business_unit_id, business_partner_id, posting_date, document_date, due_date,
       total_amount, amount_paid, status, settlement_status)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11) RETURNING created_at`,
		invoice.ID, invoice.DocNum, invoice.BusinessUnitID, invoice.BusinessPartnerID, invoice.PostingDate,
		invoice.DocumentDate, invoice.DueDate, invoice.TotalAmount, invoice.AmountPaid, invoice.Status, invoice.SettlementStatus).
		Scan(&invoice.CreatedAt)
}

func (r *txRepository) InsertARInvoiceLines(ctx context.Context, lines []accounting.ARInvoiceLine) error {
	for _, line := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO ar_invoice_lines (id, ar_invoice_id, description, quantity, unit_price, line_total, gl_account_id)
VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			line.ID, line.ARInvoiceID, line.Description, line.Quantity, line.UnitPrice, line.LineTotal, line.GLAccountID); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) InsertJournalEntry(ctx context.Context, entry *accounting.JournalEntry) error {
	return r.tx.QueryRow(ctx, `INSERT INTO journal_entries (id, doc_num, business_unit_id, posting_date, remarks, author_id)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING created_at`,
		entry.ID, entry.DocNum, entry.BusinessUnitID, entry.PostingDate, entry.Remarks, entry.AuthorID).
		Scan(&entry.CreatedAt)
}

func (r *txRepository) InsertJournalLines(ctx context.Context, lines []accounting.JournalLine) error {
	// seq is a serial column, so read-back preserves build order.
	for _, line := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO journal_lines (id, journal_entry_id, gl_account_id, debit, credit, description)
VALUES ($1,$2,$3,$4,$5,$6)`,
			line.ID, line.JournalEntryID, line.GLAccountID, line.Debit, line.Credit, line.Description); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) SetARInvoiceJournal(ctx context.Context, invoiceID, entryID uuid.UUID) error {
	_, err := r.tx.Exec(ctx, `UPDATE ar_invoices SET journal_entry_id=$2 WHERE id=$1`, invoiceID, entryID)
	return err
}

func (r *txRepository) LinkOrderPosting(ctx context.Context, orderID uuid.UUID, arInvoiceID *uuid.UUID, entryID uuid.UUID) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE pos_orders SET ar_invoice_id=$2, journal_entry_id=$3, updated_at=NOW()
WHERE id=$1 AND journal_entry_id IS NULL AND ar_invoice_id IS NULL`, orderID, arInvoiceID, entryID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "uq_pos_orders_journal_entry" {
			return shared.ErrAlreadyPosted
		}
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrAlreadyPosted
	}
	return nil
}

func (r *txRepository) MarkOrderPaid(ctx context.Context, orderID uuid.UUID, paidAt time.Time, partnerID uuid.UUID) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE pos_orders SET status='PAID', is_paid=TRUE, paid_at=$2, business_partner_id=$3, updated_at=NOW()
WHERE id=$1 AND status <> 'PAID'`, orderID, paidAt, partnerID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrAlreadyPaid
	}
	return nil
}

func (r *txRepository) EnsureWalkInPartner(ctx context.Context, businessUnitID uuid.UUID, code string) (BusinessPartner, error) {
	var bp BusinessPartner
	err := r.tx.QueryRow(ctx, `INSERT INTO business_partners (id, business_unit_id, code, name)
VALUES ($1,$2,$3,'Walk-in Customer')
ON CONFLICT (business_unit_id, code) DO UPDATE SET code = EXCLUDED.code
RETURNING id, business_unit_id, code, name`, uuid.New(), businessUnitID, code).
		Scan(&bp.ID, &bp.BusinessUnitID, &bp.Code, &bp.Name)
	return bp, err
}

// Shared loaders

func loadConfig(ctx context.Context, q querier, businessUnitID uuid.UUID) (*Config, error) {
	var cfg Config
	err := q.QueryRow(ctx, `SELECT business_unit_id, auto_post_to_gl, auto_create_ar_invoice, ar_invoice_series_id,
       journal_entry_series_id, sales_revenue_account_id, sales_tax_account_id, cash_account_id, discount_account_id, default_customer_bp_code
FROM pos_configs WHERE business_unit_id=$1`, businessUnitID).
		Scan(&cfg.BusinessUnitID, &cfg.AutoPostToGL, &cfg.AutoCreateARInvoice, &cfg.ARInvoiceSeriesID,
			&cfg.JournalEntrySeriesID, &cfg.SalesRevenueAccountID, &cfg.SalesTaxAccountID, &cfg.CashAccountID,
			&cfg.DiscountAccountID, &cfg.DefaultCustomerBPCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &cfg, nil
}

func findOpenPeriodByDate(ctx context.Context, q querier, businessUnitID uuid.UUID, date time.Time) (accounting.Period, error) {
	var p accounting.Period
	err := q.QueryRow(ctx, `SELECT id, business_unit_id, start_date, end_date, status
FROM accounting_periods WHERE business_unit_id=$1 AND status='OPEN' AND start_date <= $2 AND end_date >= $2
ORDER BY start_date DESC LIMIT 1`, businessUnitID, date).
		Scan(&p.ID, &p.BusinessUnitID, &p.StartDate, &p.EndDate, &p.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return accounting.Period{}, shared.ErrNoOpenPeriod
		}
		return accounting.Period{}, err
	}
	return p, nil
}

func loadOrder(ctx context.Context, q querier, orderID uuid.UUID, forUpdate bool) (*Order, error) {
	query := `SELECT id, business_unit_id, status, is_paid, paid_at, subtotal, tax, discount_value, total_amount, amount_paid,
       business_partner_id, ar_invoice_id, journal_entry_id, discount_id, user_id, created_at, updated_at
FROM pos_orders WHERE id=$1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var o Order
	var discountID *uuid.UUID
	err := q.QueryRow(ctx, query, orderID).
		Scan(&o.ID, &o.BusinessUnitID, &o.Status, &o.IsPaid, &o.PaidAt, &o.Subtotal, &o.Tax, &o.DiscountValue,
			&o.TotalAmount, &o.AmountPaid, &o.BusinessPartnerID, &o.ARInvoiceID, &o.JournalEntryID, &discountID,
			&o.UserID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrOrderNotFound
		}
		return nil, err
	}
	if err := loadOrderItems(ctx, q, &o); err != nil {
		return nil, err
	}
	if err := loadOrderPayments(ctx, q, &o); err != nil {
		return nil, err
	}
	if discountID != nil {
		var d Discount
		err := q.QueryRow(ctx, `SELECT id, name, discount_value, gl_account_id FROM discounts WHERE id=$1`, *discountID).
			Scan(&d.ID, &d.Name, &d.DiscountValue, &d.GLAccountID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		if err == nil {
			o.Discount = &d
		}
	}
	return &o, nil
}

func loadOrderItems(ctx context.Context, q querier, o *Order) error {
	rows, err := q.Query(ctx, `SELECT oi.id, oi.order_id, oi.menu_item_id, oi.quantity, oi.price_at_sale,
       mi.business_unit_id, mi.name, mi.price, mi.is_active, mi.recipe_id,
       m.sales_account_id, m.cogs_account_id, m.inventory_account_id
FROM pos_order_items oi
JOIN menu_items mi ON mi.id = oi.menu_item_id
LEFT JOIN menu_item_gl_mappings m ON m.menu_item_id = mi.id
WHERE oi.order_id=$1 ORDER BY oi.seq ASC`, o.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	recipeIDs := make(map[uuid.UUID][]int)
	for rows.Next() {
		var item OrderItem
		var mi MenuItem
		var recipeID *uuid.UUID
		var salesAcc, cogsAcc, invAcc *uuid.UUID
		if err := rows.Scan(&item.ID, &item.OrderID, &item.MenuItemID, &item.Quantity, &item.PriceAtSale,
			&mi.BusinessUnitID, &mi.Name, &mi.Price, &mi.IsActive, &recipeID,
			&salesAcc, &cogsAcc, &invAcc); err != nil {
			return err
		}
		mi.ID = item.MenuItemID
		if salesAcc != nil || cogsAcc != nil || invAcc != nil {
			mi.GLMapping = &MenuItemGLMapping{SalesAccountID: salesAcc, COGSAccountID: cogsAcc, InventoryAccountID: invAcc}
		}
		item.MenuItem = &mi
		o.Items = append(o.Items, item)
		if recipeID != nil {
			recipeIDs[*recipeID] = append(recipeIDs[*recipeID], len(o.Items)-1)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(recipeIDs) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(recipeIDs))
	for id := range recipeIDs {
		ids = append(ids, id)
	}
	recipes, err := loadRecipes(ctx, q, ids)
	if err != nil {
		return err
	}
	for id, idxs := range recipeIDs {
		recipe, ok := recipes[id]
		if !ok {
			continue
		}
		for _, idx := range idxs {
			o.Items[idx].MenuItem.Recipe = recipe
		}
	}
	return nil
}

func loadRecipes(ctx context.Context, q querier, recipeIDs []uuid.UUID) (map[uuid.UUID]*Recipe, error) {
	rows, err := q.Query(ctx, `SELECT ri.recipe_id, ri.id, ri.inventory_item_id, ri.quantity_used, ii.name, ii.standard_cost
FROM recipe_items ri
JOIN inventory_items ii ON ii.id = ri.inventory_item_id
WHERE ri.recipe_id = ANY($1) ORDER BY ri.seq ASC`, recipeIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	recipes := make(map[uuid.UUID]*Recipe)
	for rows.Next() {
		var recipeID uuid.UUID
		var ri RecipeItem
		var ii InventoryItem
		if err := rows.Scan(&recipeID, &ri.ID, &ri.InventoryItemID, &ri.QuantityUsed, &ii.Name, &ii.StandardCost); err != nil {
			return nil, err
		}
		ii.ID = ri.InventoryItemID
		ri.RecipeID = recipeID
		ri.InventoryItem = &ii
		recipe, ok := recipes[recipeID]
		if !ok {
			recipe = &Recipe{ID: recipeID}
			recipes[recipeID] = recipe
		}
		recipe.Items = append(recipe.Items, ri)
	}
	return recipes, rows.Err()
}

func loadOrderPayments(ctx context.Context, q querier, o *Order) error {
	rows, err := q.Query(ctx, `SELECT p.id, p.order_id, p.payment_method_id, p.amount,
       pm.business_unit_id, pm.name, pm.is_active, pm.gl_account_id
FROM pos_payments p
JOIN payment_methods pm ON pm.id = p.payment_method_id
WHERE p.order_id=$1 ORDER BY p.seq ASC`, o.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var pay Payment
		var pm PaymentMethod
		if err := rows.Scan(&pay.ID, &pay.OrderID, &pay.PaymentMethodID, &pay.Amount,
			&pm.BusinessUnitID, &pm.Name, &pm.IsActive, &pm.GLAccountID); err != nil {
			return err
		}
		pm.ID = pay.PaymentMethodID
		pay.PaymentMethod = &pm
		o.Payments = append(o.Payments, pay)
	}
	return rows.Err()
}

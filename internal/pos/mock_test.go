package pos

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridian-pos/meridian/internal/accounting"
	"github.com/meridian-pos/meridian/internal/accounting/numbering"
	"github.com/meridian-pos/meridian/internal/accounting/shared"
)

// mockRepository is an in-memory Repository with commit/rollback semantics:
// writes made inside WithTx are buffered and applied only when fn succeeds.
type mockRepository struct {
	mu sync.Mutex

	orders   map[uuid.UUID]*Order
	configs  map[uuid.UUID]*Config
	series   map[uuid.UUID]*numbering.Series
	periods  []accounting.Period
	partners map[string]BusinessPartner

	journalEntries map[uuid.UUID]*accounting.JournalEntry
	journalLines   map[uuid.UUID][]accounting.JournalLine
	arInvoices     map[uuid.UUID]*accounting.ARInvoice
	arLines        map[uuid.UUID][]accounting.ARInvoiceLine
	accounts       map[uuid.UUID]accounting.GLAccount

	unmappedMenuItems int
	unmappedMethods   int

	txErr error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		orders:         make(map[uuid.UUID]*Order),
		configs:        make(map[uuid.UUID]*Config),
		series:         make(map[uuid.UUID]*numbering.Series),
		partners:       make(map[string]BusinessPartner),
		journalEntries: make(map[uuid.UUID]*accounting.JournalEntry),
		journalLines:   make(map[uuid.UUID][]accounting.JournalLine),
		arInvoices:     make(map[uuid.UUID]*accounting.ARInvoice),
		arLines:        make(map[uuid.UUID][]accounting.ARInvoiceLine),
		accounts:       make(map[uuid.UUID]accounting.GLAccount),
	}
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if m.txErr != nil {
		return m.txErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &mockTx{repo: m, seriesDelta: make(map[uuid.UUID]int64)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (m *mockRepository) GetOrder(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok {
		return nil, shared.ErrOrderNotFound
	}
	clone := *order
	return &clone, nil
}

func (m *mockRepository) GetConfig(ctx context.Context, businessUnitID uuid.UUID) (*Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.configs[businessUnitID]
	if !ok {
		return nil, nil
	}
	clone := *cfg
	return &clone, nil
}

func (m *mockRepository) CountActiveMenuItemsWithoutMapping(ctx context.Context, businessUnitID uuid.UUID) (int, error) {
	return m.unmappedMenuItems, nil
}

func (m *mockRepository) CountActivePaymentMethodsWithoutMapping(ctx context.Context, businessUnitID uuid.UUID) (int, error) {
	return m.unmappedMethods, nil
}

func (m *mockRepository) FindOpenPeriodByDate(ctx context.Context, businessUnitID uuid.UUID, date time.Time) (accounting.Period, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findOpenPeriodLocked(businessUnitID, date)
}

func (m *mockRepository) findOpenPeriodLocked(businessUnitID uuid.UUID, date time.Time) (accounting.Period, error) {
	for _, p := range m.periods {
		if p.BusinessUnitID == businessUnitID && p.Status == accounting.PeriodStatusOpen &&
			!date.Before(p.StartDate) && !date.After(p.EndDate) {
			return p, nil
		}
	}
	return accounting.Period{}, shared.ErrNoOpenPeriod
}

func (m *mockRepository) GetJournalEntry(ctx context.Context, entryID uuid.UUID) (*accounting.JournalEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.journalEntries[entryID]
	if !ok {
		return nil, nil
	}
	clone := *entry
	return &clone, nil
}

func (m *mockRepository) GetJournalLinesResolved(ctx context.Context, entryID uuid.UUID) ([]JournalLineView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var views []JournalLineView
	for _, line := range m.journalLines[entryID] {
		view := JournalLineView{
			Debit:       line.Debit,
			Credit:      line.Credit,
			Description: line.Description,
		}
		if acc, ok := m.accounts[line.GLAccountID]; ok {
			view.AccountCode = acc.AccountCode
			view.AccountName = acc.Name
		}
		views = append(views, view)
	}
	return views, nil
}

func (m *mockRepository) GetARInvoice(ctx context.Context, invoiceID uuid.UUID) (*accounting.ARInvoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	invoice, ok := m.arInvoices[invoiceID]
	if !ok {
		return nil, nil
	}
	clone := *invoice
	return &clone, nil
}

func (m *mockRepository) ListOrderPostingRefs(ctx context.Context, orderIDs []uuid.UUID) ([]OrderPostingRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var refs []OrderPostingRef
	for _, id := range orderIDs {
		order, ok := m.orders[id]
		if !ok {
			continue
		}
		ref := OrderPostingRef{OrderID: id, IsPaid: order.IsPaid, ARInvoiceID: order.ARInvoiceID, JournalEntryID: order.JournalEntryID}
		if order.ARInvoiceID != nil {
			if inv, ok := m.arInvoices[*order.ARInvoiceID]; ok {
				ref.ARInvoiceNumber = &inv.DocNum
			}
		}
		if order.JournalEntryID != nil {
			if je, ok := m.journalEntries[*order.JournalEntryID]; ok {
				ref.JournalEntryNumber = &je.DocNum
			}
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// mockTx buffers writes until commit.
type mockTx struct {
	repo *mockRepository

	seriesDelta map[uuid.UUID]int64

	insertedEntries  []*accounting.JournalEntry
	insertedLines    []accounting.JournalLine
	insertedInvoices []*accounting.ARInvoice
	insertedARLines  []accounting.ARInvoiceLine
	invoiceJournal   map[uuid.UUID]uuid.UUID
	createdPartners  []BusinessPartner

	linkOrderID   *uuid.UUID
	linkARInvoice *uuid.UUID
	linkEntry     uuid.UUID
	paidOrderID   *uuid.UUID
	paidAt        time.Time
	paidPartnerID uuid.UUID
}

func (tx *mockTx) commit() {
	m := tx.repo
	for id, delta := range tx.seriesDelta {
		m.series[id].NextNumber += delta
	}
	for _, entry := range tx.insertedEntries {
		m.journalEntries[entry.ID] = entry
	}
	for _, line := range tx.insertedLines {
		m.journalLines[line.JournalEntryID] = append(m.journalLines[line.JournalEntryID], line)
	}
	for _, invoice := range tx.insertedInvoices {
		m.arInvoices[invoice.ID] = invoice
	}
	for _, line := range tx.insertedARLines {
		m.arLines[line.ARInvoiceID] = append(m.arLines[line.ARInvoiceID], line)
	}
	for invoiceID, entryID := range tx.invoiceJournal {
		if inv, ok := m.arInvoices[invoiceID]; ok {
			id := entryID
			inv.JournalEntryID = &id
		}
	}
	for _, bp := range tx.createdPartners {
		m.partners[bp.BusinessUnitID.String()+"/"+bp.Code] = bp
	}
	if tx.paidOrderID != nil {
		order := m.orders[*tx.paidOrderID]
		order.Status = OrderStatusPaid
		order.IsPaid = true
		paidAt := tx.paidAt
		order.PaidAt = &paidAt
		partnerID := tx.paidPartnerID
		order.BusinessPartnerID = &partnerID
	}
	if tx.linkOrderID != nil {
		order := m.orders[*tx.linkOrderID]
		order.ARInvoiceID = tx.linkARInvoice
		entryID := tx.linkEntry
		order.JournalEntryID = &entryID
	}
}

func (tx *mockTx) GetSeriesForUpdate(ctx context.Context, seriesID uuid.UUID) (numbering.Series, error) {
	series, ok := tx.repo.series[seriesID]
	if !ok {
		return numbering.Series{}, shared.ErrSeriesNotFound
	}
	clone := *series
	clone.NextNumber += tx.seriesDelta[seriesID]
	return clone, nil
}

func (tx *mockTx) IncrementSeries(ctx context.Context, seriesID uuid.UUID) error {
	if _, ok := tx.repo.series[seriesID]; !ok {
		return shared.ErrSeriesNotFound
	}
	tx.seriesDelta[seriesID]++
	return nil
}

func (tx *mockTx) GetOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	order, ok := tx.repo.orders[orderID]
	if !ok {
		return nil, shared.ErrOrderNotFound
	}
	clone := *order
	return &clone, nil
}

func (tx *mockTx) GetConfig(ctx context.Context, businessUnitID uuid.UUID) (*Config, error) {
	cfg, ok := tx.repo.configs[businessUnitID]
	if !ok {
		return nil, nil
	}
	clone := *cfg
	return &clone, nil
}

func (tx *mockTx) FindOpenPeriodByDate(ctx context.Context, businessUnitID uuid.UUID, date time.Time) (accounting.Period, error) {
	return tx.repo.findOpenPeriodLocked(businessUnitID, date)
}

func (tx *mockTx) InsertARInvoice(ctx context.Context, invoice *accounting.ARInvoice) error {
	invoice.CreatedAt = time.Now()
	clone := *invoice
	tx.insertedInvoices = append(tx.insertedInvoices, &clone)
	return nil
}

func (tx *mockTx) InsertARInvoiceLines(ctx context.Context, lines []accounting.ARInvoiceLine) error {
	tx.insertedARLines = append(tx.insertedARLines, lines...)
	return nil
}

func (tx *mockTx) InsertJournalEntry(ctx context.Context, entry *accounting.JournalEntry) error {
	entry.CreatedAt = time.Now()
	clone := *entry
	tx.insertedEntries = append(tx.insertedEntries, &clone)
	return nil
}

func (tx *mockTx) InsertJournalLines(ctx context.Context, lines []accounting.JournalLine) error {
	tx.insertedLines = append(tx.insertedLines, lines...)
	return nil
}

func (tx *mockTx) SetARInvoiceJournal(ctx context.Context, invoiceID, entryID uuid.UUID) error {
	if tx.invoiceJournal == nil {
		tx.invoiceJournal = make(map[uuid.UUID]uuid.UUID)
	}
	tx.invoiceJournal[invoiceID] = entryID
	for _, inv := range tx.insertedInvoices {
		if inv.ID == invoiceID {
			id := entryID
			inv.JournalEntryID = &id
		}
	}
	return nil
}

func (tx *mockTx) LinkOrderPosting(ctx context.Context, orderID uuid.UUID, arInvoiceID *uuid.UUID, entryID uuid.UUID) error {
	order, ok := tx.repo.orders[orderID]
	if !ok {
		return shared.ErrOrderNotFound
	}
	if order.JournalEntryID != nil {
		return shared.ErrAlreadyPosted
	}
	id := orderID
	tx.linkOrderID = &id
	tx.linkARInvoice = arInvoiceID
	tx.linkEntry = entryID
	return nil
}

func (tx *mockTx) MarkOrderPaid(ctx context.Context, orderID uuid.UUID, paidAt time.Time, partnerID uuid.UUID) error {
	order, ok := tx.repo.orders[orderID]
	if !ok {
		return shared.ErrOrderNotFound
	}
	if order.Status == OrderStatusPaid {
		return shared.ErrAlreadyPaid
	}
	id := orderID
	tx.paidOrderID = &id
	tx.paidAt = paidAt
	tx.paidPartnerID = partnerID
	return nil
}

func (tx *mockTx) EnsureWalkInPartner(ctx context.Context, businessUnitID uuid.UUID, code string) (BusinessPartner, error) {
	key := businessUnitID.String() + "/" + code
	if bp, ok := tx.repo.partners[key]; ok {
		return bp, nil
	}
	for _, bp := range tx.createdPartners {
		if bp.BusinessUnitID == businessUnitID && bp.Code == code {
			return bp, nil
		}
	}
	bp := BusinessPartner{ID: uuid.New(), BusinessUnitID: businessUnitID, Code: code, Name: "Walk-in Customer"}
	tx.createdPartners = append(tx.createdPartners, bp)
	return bp, nil
}

// mockSeriesRepo serves the numbering admin reads from the same state.
type mockSeriesRepo struct {
	repo *mockRepository
}

func (m *mockSeriesRepo) Get(ctx context.Context, seriesID uuid.UUID) (numbering.Series, error) {
	m.repo.mu.Lock()
	defer m.repo.mu.Unlock()
	series, ok := m.repo.series[seriesID]
	if !ok {
		return numbering.Series{}, shared.ErrSeriesNotFound
	}
	return *series, nil
}

func (m *mockSeriesRepo) ListByBusinessUnit(ctx context.Context, businessUnitID uuid.UUID) ([]numbering.Series, error) {
	m.repo.mu.Lock()
	defer m.repo.mu.Unlock()
	var out []numbering.Series
	for _, series := range m.repo.series {
		if series.BusinessUnitID == businessUnitID {
			out = append(out, *series)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Fixtures

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixture struct {
	repo           *mockRepository
	businessUnit   uuid.UUID
	cashAccount    uuid.UUID
	cardAccount    uuid.UUID
	revenueAccount uuid.UUID
	taxAccount     uuid.UUID
	discountAcct   uuid.UUID
	cogsAccount    uuid.UUID
	inventoryAcct  uuid.UUID
	arSeries       uuid.UUID
	jeSeries       uuid.UUID
}

func newFixture() *fixture {
	f := &fixture{
		repo:           newMockRepository(),
		businessUnit:   uuid.New(),
		cashAccount:    uuid.New(),
		cardAccount:    uuid.New(),
		revenueAccount: uuid.New(),
		taxAccount:     uuid.New(),
		discountAcct:   uuid.New(),
		cogsAccount:    uuid.New(),
		inventoryAcct:  uuid.New(),
		arSeries:       uuid.New(),
		jeSeries:       uuid.New(),
	}
	for id, meta := range map[uuid.UUID][2]string{
		f.cashAccount:    {"1100", "Cash on Hand"},
		f.cardAccount:    {"1150", "Card Clearing"},
		f.revenueAccount: {"4100", "Food Sales"},
		f.taxAccount:     {"2200", "Sales Tax Payable"},
		f.discountAcct:   {"4190", "Sales Discounts"},
		f.cogsAccount:    {"5100", "Cost of Goods Sold"},
		f.inventoryAcct:  {"1300", "Food Inventory"},
	} {
		f.repo.accounts[id] = accounting.GLAccount{ID: id, BusinessUnitID: f.businessUnit, AccountCode: meta[0], Name: meta[1]}
	}
	f.repo.series[f.arSeries] = &numbering.Series{ID: f.arSeries, BusinessUnitID: f.businessUnit, Name: "AR Invoices", Prefix: "AR-", NextNumber: 1}
	f.repo.series[f.jeSeries] = &numbering.Series{ID: f.jeSeries, BusinessUnitID: f.businessUnit, Name: "Journal Entries", Prefix: "JE-", NextNumber: 1}
	f.repo.periods = []accounting.Period{{
		ID:             uuid.New(),
		BusinessUnitID: f.businessUnit,
		StartDate:      time.Now().AddDate(0, 0, -7),
		EndDate:        time.Now().AddDate(0, 0, 7),
		Status:         accounting.PeriodStatusOpen,
	}}
	f.repo.configs[f.businessUnit] = &Config{
		BusinessUnitID:        f.businessUnit,
		AutoPostToGL:          true,
		AutoCreateARInvoice:   true,
		ARInvoiceSeriesID:     &f.arSeries,
		JournalEntrySeriesID:  &f.jeSeries,
		SalesRevenueAccountID: &f.revenueAccount,
		SalesTaxAccountID:     &f.taxAccount,
		CashAccountID:         &f.cashAccount,
		DiscountAccountID:     &f.discountAcct,
		DefaultCustomerBPCode: "WALKIN",
	}
	return f
}

func (f *fixture) config() *Config {
	return f.repo.configs[f.businessUnit]
}

// newOrder builds a paid-ready order: one menu item line and one cash payment
// matching the total.
func (f *fixture) newOrder(subtotal, tax, discount, total string) *Order {
	order := &Order{
		ID:             uuid.New(),
		BusinessUnitID: f.businessUnit,
		Status:         OrderStatusOpen,
		Subtotal:       dec(subtotal),
		Tax:            dec(tax),
		DiscountValue:  dec(discount),
		TotalAmount:    dec(total),
	}
	f.addItem(order, "Espresso", "1", subtotal, nil)
	f.addCashPayment(order, total)
	f.repo.orders[order.ID] = order
	return order
}

func (f *fixture) addItem(order *Order, name, qty, price string, recipe *Recipe) *OrderItem {
	item := OrderItem{
		ID:          uuid.New(),
		OrderID:     order.ID,
		MenuItemID:  uuid.New(),
		Quantity:    dec(qty),
		PriceAtSale: dec(price),
		MenuItem: &MenuItem{
			Name:     name,
			IsActive: true,
			GLMapping: &MenuItemGLMapping{
				SalesAccountID:     &f.revenueAccount,
				COGSAccountID:      &f.cogsAccount,
				InventoryAccountID: &f.inventoryAcct,
			},
			Recipe: recipe,
		},
	}
	item.MenuItem.ID = item.MenuItemID
	order.Items = append(order.Items, item)
	return &order.Items[len(order.Items)-1]
}

func (f *fixture) addCashPayment(order *Order, amount string) {
	methodID := uuid.New()
	order.Payments = append(order.Payments, Payment{
		ID:              uuid.New(),
		OrderID:         order.ID,
		PaymentMethodID: methodID,
		Amount:          dec(amount),
		PaymentMethod: &PaymentMethod{
			ID:             methodID,
			BusinessUnitID: order.BusinessUnitID,
			Name:           "Cash",
			IsActive:       true,
			GLAccountID:    &f.cashAccount,
		},
	})
}

func (f *fixture) markPaid(order *Order) {
	now := time.Now()
	order.Status = OrderStatusPaid
	order.IsPaid = true
	order.PaidAt = &now
	partner := BusinessPartner{ID: uuid.New(), BusinessUnitID: order.BusinessUnitID, Code: "WALKIN", Name: "Walk-in Customer"}
	f.repo.partners[order.BusinessUnitID.String()+"/WALKIN"] = partner
	order.BusinessPartnerID = &partner.ID
}

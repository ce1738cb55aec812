package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/folio/internal/clock"
	companydomain "github.com/smallbiznis/folio/internal/company/domain"
	"github.com/smallbiznis/folio/internal/company/partition"
	"github.com/smallbiznis/folio/internal/config"
	"github.com/smallbiznis/folio/internal/invoice/calc"
	invoicedomain "github.com/smallbiznis/folio/internal/invoice/domain"
	"github.com/smallbiznis/folio/internal/notify"
	"github.com/smallbiznis/folio/internal/observability/metrics"
	productdomain "github.com/smallbiznis/folio/internal/product/domain"
	"github.com/smallbiznis/folio/internal/repository"
	"github.com/smallbiznis/folio/internal/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ProductCatalog is the part of the product service invoices depend on.
type ProductCatalog interface {
	Get(ctx context.Context, companyID, id string) (*productdomain.Product, error)
	RecordUsage(ctx context.Context, productIDs []string, at time.Time) error
}

type ServiceParam struct {
	fx.In

	Collections repository.Collections
	Products    ProductCatalog
	Notifier    notify.Notifier
	Defaults    config.DocumentDefaultsSource
	Clock       clock.Clock
	Log         *zap.Logger
	GenID       *snowflake.Node
	Events      *metrics.InvoiceEvents `optional:"true"`
}

// Service owns the invoice collection. Every mutation runs under mu, which
// also makes number assignment race-free within the process.
type Service struct {
	cols     repository.Collections
	col      *store.Collection[invoicedomain.Invoice]
	products ProductCatalog
	notifier notify.Notifier
	defaults config.DocumentDefaultsSource
	clock    clock.Clock
	log      *zap.Logger
	genID    *snowflake.Node
	events   *metrics.InvoiceEvents

	mu sync.Mutex
}

func NewService(p ServiceParam) *Service {
	notifier := p.Notifier
	if notifier == nil {
		notifier = notify.NoOp{}
	}
	return &Service{
		cols:     p.Collections,
		col:      p.Collections.Invoices,
		products: p.Products,
		notifier: notifier,
		defaults: p.Defaults,
		clock:    p.Clock,
		log:      p.Log.Named("invoice.service"),
		genID:    p.GenID,
		events:   p.Events,
	}
}

func (s *Service) List(ctx context.Context, companyID string, req ListRequest) ([]View, error) {
	now := s.clock.Now()
	owned := partition.RecordsForCompany(s.load(ctx).Items, companyID, s.primaryID(ctx))

	out := make([]View, 0, len(owned))
	for _, inv := range owned {
		v := toView(inv, now)
		if req.Status != "" && v.EffectiveStatus != req.Status {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, companyID, id string) (*invoicedomain.Invoice, error) {
	id = strings.TrimSpace(id)
	primaryID := s.primaryID(ctx)
	for _, inv := range s.load(ctx).Items {
		if inv.ID == id && partition.OwnerOf(inv, primaryID) == companyID {
			out := inv.Clone()
			return &out, nil
		}
	}
	return nil, invoicedomain.ErrNotFound
}

func (s *Service) View(ctx context.Context, companyID, id string) (*View, error) {
	inv, err := s.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	v := toView(*inv, s.clock.Now())
	return &v, nil
}

func (s *Service) Create(ctx context.Context, companyID string, req CreateRequest) (*invoicedomain.Invoice, error) {
	company, err := s.company(ctx, companyID)
	if err != nil {
		return nil, err
	}
	defaults := s.defaults.Get()
	now := s.clock.Now().UTC()

	issue := dateOf(now)
	if req.IssueDate != nil && !req.IssueDate.IsZero() {
		issue = dateOf(*req.IssueDate)
	}
	// company defaults are filled in at company creation; zero is a real value
	terms := company.DefaultPaymentTermDays
	if req.PaymentTermDays != nil {
		terms = *req.PaymentTermDays
	}
	currency := firstNonEmpty(req.Currency, company.DefaultCurrency, defaults.Currency)
	taxRate := company.DefaultTaxRate
	if req.TaxRate != nil {
		taxRate = *req.TaxRate
	}

	lines, err := s.buildLineItems(ctx, company.ID, req.LineItems)
	if err != nil {
		return nil, err
	}

	inv := invoicedomain.Invoice{
		ID:              s.genID.Generate().String(),
		CompanyID:       company.ID,
		IssueDate:       issue,
		DueDate:         invoicedomain.DueDateFor(issue, terms),
		Client:          trimClient(req.Client),
		LineItems:       lines,
		Status:          invoicedomain.InvoiceStatusDraft,
		Notes:           strings.TrimSpace(req.Notes),
		PaymentTermDays: terms,
		Currency:        strings.ToUpper(currency),
		TaxRate:         taxRate,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	loaded := s.load(ctx)
	siblings := partition.RecordsForCompany(loaded.Items, company.ID, s.primaryID(ctx))
	candidate, err := calc.NextInvoiceNumber(siblings, issue.Year())
	if err != nil {
		return nil, err
	}
	if inv.Number, err = calc.ResolveNumberCollision(siblings, issue.Year(), candidate); err != nil {
		return nil, err
	}
	if err := invoicedomain.Validate(inv); err != nil {
		return nil, err
	}

	items := append(append([]invoicedomain.Invoice(nil), loaded.Items...), inv)
	if _, err := s.col.Save(ctx, items, loaded.Version); err != nil {
		return nil, err
	}

	s.recordUsage(ctx, inv.LineItems, now)
	s.events.Created(ctx, inv.Currency)
	s.log.Info("invoice created",
		zap.String("invoice_id", inv.ID),
		zap.String("number", inv.Number),
		zap.String("company_id", inv.CompanyID),
	)
	out := inv.Clone()
	return &out, nil
}

// Duplicate copies an invoice into a new draft dated today.
func (s *Service) Duplicate(ctx context.Context, companyID, id string) (*invoicedomain.Invoice, error) {
	src, err := s.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	lines := make([]LineItemInput, 0, len(src.LineItems))
	for _, l := range src.LineItems {
		price, rate := l.UnitPrice, l.TaxRate
		lines = append(lines, LineItemInput{
			ProductID:   l.ProductID,
			Description: l.Description,
			Quantity:    l.Quantity,
			Unit:        l.Unit,
			UnitPrice:   &price,
			TaxRate:     &rate,
		})
	}
	terms, rate := src.PaymentTermDays, src.TaxRate
	return s.Create(ctx, companyID, CreateRequest{
		PaymentTermDays: &terms,
		Client:          src.Client,
		LineItems:       lines,
		Notes:           src.Notes,
		Currency:        src.Currency,
		TaxRate:         &rate,
	})
}

func (s *Service) Update(ctx context.Context, companyID, id string, req UpdateRequest) (*invoicedomain.Invoice, error) {
	var lines []invoicedomain.LineItem
	if req.LineItems != nil {
		var err error
		if lines, err = s.buildLineItems(ctx, companyID, req.LineItems); err != nil {
			return nil, err
		}
	}

	return s.mutate(ctx, companyID, id, func(inv *invoicedomain.Invoice, siblings []invoicedomain.Invoice) error {
		if inv.Status.Terminal() {
			return invoicedomain.ErrInvalidTransition
		}
		if req.Number != nil {
			number := strings.TrimSpace(*req.Number)
			if calc.NumberInUse(siblings, number, inv.ID) {
				return invoicedomain.ErrDuplicateNumber
			}
			inv.Number = number
		}
		recompute := false
		if req.IssueDate != nil && !req.IssueDate.IsZero() {
			inv.IssueDate = dateOf(*req.IssueDate)
			recompute = true
		}
		if req.PaymentTermDays != nil {
			inv.PaymentTermDays = *req.PaymentTermDays
			recompute = true
		}
		if recompute {
			inv.DueDate = invoicedomain.DueDateFor(inv.IssueDate, inv.PaymentTermDays)
		}
		if req.Client != nil {
			inv.Client = trimClient(*req.Client)
		}
		if req.LineItems != nil {
			inv.LineItems = lines
		}
		if req.Notes != nil {
			inv.Notes = strings.TrimSpace(*req.Notes)
		}
		if req.Currency != nil {
			inv.Currency = strings.ToUpper(strings.TrimSpace(*req.Currency))
		}
		if req.TaxRate != nil {
			inv.TaxRate = *req.TaxRate
		}
		return nil
	})
}

// UpdateStatus applies an explicit status change and notifies the host.
// Setting the current status again is a no-op.
func (s *Service) UpdateStatus(ctx context.Context, companyID, id string, status invoicedomain.InvoiceStatus) (*invoicedomain.Invoice, error) {
	if !status.Valid() {
		return nil, invoicedomain.ErrInvalidTransition
	}

	changed := false
	var from invoicedomain.InvoiceStatus
	inv, err := s.mutate(ctx, companyID, id, func(inv *invoicedomain.Invoice, _ []invoicedomain.Invoice) error {
		if inv.Status == status {
			return errNoChange
		}
		if !invoicedomain.CanTransition(inv.Status, status) {
			return invoicedomain.ErrInvalidTransition
		}
		from = inv.Status
		now := s.clock.Now().UTC()
		switch status {
		case invoicedomain.InvoiceStatusSent:
			if inv.SentAt == nil {
				inv.SentAt = &now
			}
		case invoicedomain.InvoiceStatusPaid:
			inv.PaidAt = &now
		}
		inv.Status = status
		changed = true
		return nil
	})
	if errors.Is(err, errNoChange) {
		return s.Get(ctx, companyID, id)
	}
	if err != nil {
		return nil, err
	}

	if changed {
		s.events.Transitioned(ctx, string(from), string(status))
		if event, ok := statusEvents[status]; ok {
			s.notify(ctx, event, *inv)
		}
	}
	return inv, nil
}

func (s *Service) Delete(ctx context.Context, companyID, id string) error {
	id = strings.TrimSpace(id)
	primaryID := s.primaryID(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	loaded := s.load(ctx)
	idx := indexOwned(loaded.Items, companyID, id, primaryID)
	if idx < 0 {
		return invoicedomain.ErrNotFound
	}
	items := make([]invoicedomain.Invoice, 0, len(loaded.Items)-1)
	items = append(items, loaded.Items[:idx]...)
	items = append(items, loaded.Items[idx+1:]...)

	if _, err := s.col.Save(ctx, items, loaded.Version); err != nil {
		return err
	}
	s.log.Info("invoice deleted", zap.String("invoice_id", id))
	return nil
}

// Reminders notifies about sent invoices that are due within leadDays or
// already overdue, across all companies. Overdue is derived, never stored.
func (s *Service) Reminders(ctx context.Context) (ReminderResult, error) {
	now := s.clock.Now()
	today := dateOf(now)
	lead := s.defaults.Get().ReminderLeadDays

	res := ReminderResult{DueSoon: []string{}, Overdue: []string{}}
	for _, inv := range s.load(ctx).Items {
		switch inv.EffectiveStatus(now) {
		case invoicedomain.InvoiceStatusOverdue:
			s.notify(ctx, notify.EventOverdue, inv)
			res.Overdue = append(res.Overdue, inv.ID)
		case invoicedomain.InvoiceStatusSent:
			if !dateOf(inv.DueDate).After(today.AddDate(0, 0, lead)) {
				s.notify(ctx, notify.EventReminder, inv)
				res.DueSoon = append(res.DueSoon, inv.ID)
			}
		}
	}
	return res, nil
}

var errNoChange = errors.New("no_change")

var statusEvents = map[invoicedomain.InvoiceStatus]notify.Event{
	invoicedomain.InvoiceStatusSent:    notify.EventSent,
	invoicedomain.InvoiceStatusPaid:    notify.EventPaid,
	invoicedomain.InvoiceStatusOverdue: notify.EventOverdue,
}

func (s *Service) mutate(ctx context.Context, companyID, id string, fn func(inv *invoicedomain.Invoice, siblings []invoicedomain.Invoice) error) (*invoicedomain.Invoice, error) {
	id = strings.TrimSpace(id)
	primaryID := s.primaryID(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	loaded := s.load(ctx)
	items := append([]invoicedomain.Invoice(nil), loaded.Items...)
	idx := indexOwned(items, companyID, id, primaryID)
	if idx < 0 {
		return nil, invoicedomain.ErrNotFound
	}

	inv := items[idx].Clone()
	if err := fn(&inv, partition.RecordsForCompany(items, companyID, primaryID)); err != nil {
		return nil, err
	}
	inv.UpdatedAt = s.clock.Now().UTC()
	if err := invoicedomain.Validate(inv); err != nil {
		return nil, err
	}
	items[idx] = inv

	if _, err := s.col.Save(ctx, items, loaded.Version); err != nil {
		return nil, err
	}
	out := inv.Clone()
	return &out, nil
}

func (s *Service) buildLineItems(ctx context.Context, companyID string, inputs []LineItemInput) ([]invoicedomain.LineItem, error) {
	out := make([]invoicedomain.LineItem, 0, len(inputs))
	for _, in := range inputs {
		item := invoicedomain.LineItem{
			ID:          s.genID.Generate().String(),
			ProductID:   strings.TrimSpace(in.ProductID),
			Description: strings.TrimSpace(in.Description),
			Quantity:    in.Quantity,
			Unit:        strings.TrimSpace(in.Unit),
			UnitPrice:   decimal.Zero,
			TaxRate:     decimal.Zero,
		}
		if item.ProductID != "" && s.products != nil {
			p, err := s.products.Get(ctx, companyID, item.ProductID)
			if err != nil {
				return nil, err
			}
			if item.Description == "" {
				item.Description = p.Name
			}
			if item.Unit == "" {
				item.Unit = p.Unit
			}
			item.UnitPrice = p.UnitPrice
			item.TaxRate = p.TaxRate
		}
		if in.UnitPrice != nil {
			item.UnitPrice = *in.UnitPrice
		}
		if in.TaxRate != nil {
			item.TaxRate = *in.TaxRate
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *Service) recordUsage(ctx context.Context, lines []invoicedomain.LineItem, at time.Time) {
	if s.products == nil {
		return
	}
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		if l.ProductID != "" {
			ids = append(ids, l.ProductID)
		}
	}
	if len(ids) == 0 {
		return
	}
	if err := s.products.RecordUsage(ctx, ids, at); err != nil {
		s.log.Warn("product usage not recorded", zap.Error(err))
	}
}

func (s *Service) notify(ctx context.Context, event notify.Event, inv invoicedomain.Invoice) {
	if err := s.notifier.Notify(ctx, event, inv); err != nil {
		s.log.Warn("notification failed",
			zap.String("event", string(event)),
			zap.String("invoice_id", inv.ID),
			zap.Error(err),
		)
	}
}

func (s *Service) company(ctx context.Context, companyID string) (companydomain.Company, error) {
	for _, c := range s.cols.Companies.Load(ctx).Items {
		if c.ID == companyID {
			return c, nil
		}
	}
	return companydomain.Company{}, companydomain.ErrNotFound
}

func (s *Service) primaryID(ctx context.Context) string {
	if primary, ok := partition.ResolvePrimary(s.cols.Companies.Load(ctx).Items); ok {
		return primary.ID
	}
	return ""
}

func (s *Service) load(ctx context.Context) store.Loaded[invoicedomain.Invoice] {
	loaded := s.col.Load(ctx)
	if loaded.Diagnostic != nil {
		s.log.Warn("invoices unreadable, serving seed data", zap.Error(loaded.Diagnostic))
	}
	return loaded
}

func toView(inv invoicedomain.Invoice, now time.Time) View {
	return View{
		Invoice:         inv,
		EffectiveStatus: inv.EffectiveStatus(now),
		Totals:          calc.ComputeInvoiceTotals(inv),
	}
}

func indexOwned(items []invoicedomain.Invoice, companyID, id, primaryID string) int {
	for i, inv := range items {
		if inv.ID == id && partition.OwnerOf(inv, primaryID) == companyID {
			return i
		}
	}
	return -1
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func trimClient(c invoicedomain.Client) invoicedomain.Client {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	return c
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

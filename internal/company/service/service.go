package service

import (
	"context"
	"strings"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/folio/internal/clock"
	"github.com/smallbiznis/folio/internal/company/domain"
	"github.com/smallbiznis/folio/internal/company/partition"
	"github.com/smallbiznis/folio/internal/config"
	"github.com/smallbiznis/folio/internal/repository"
	"github.com/smallbiznis/folio/internal/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Collections repository.Collections
	Defaults    config.DocumentDefaultsSource
	Clock       clock.Clock
	Log         *zap.Logger
	GenID       *snowflake.Node
}

type Service struct {
	col      *store.Collection[domain.Company]
	defaults config.DocumentDefaultsSource
	clock    clock.Clock
	log      *zap.Logger
	genID    *snowflake.Node

	mu sync.Mutex
}

func New(p Params) domain.Service {
	return &Service{
		col:      p.Collections.Companies,
		defaults: p.Defaults,
		clock:    p.Clock,
		log:      p.Log.Named("company.service"),
		genID:    p.GenID,
	}
}

func (s *Service) List(ctx context.Context) ([]domain.Company, error) {
	return s.load(ctx).Items, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Company, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrInvalidID
	}
	items := s.load(ctx).Items
	idx := indexOf(items, id)
	if idx < 0 {
		return nil, domain.ErrNotFound
	}
	c := items[idx]
	return &c, nil
}

func (s *Service) Resolve(ctx context.Context, requestedID string) (*domain.Company, error) {
	items := s.load(ctx).Items
	if id := strings.TrimSpace(requestedID); id != "" && indexOf(items, id) < 0 {
		return nil, domain.ErrNotFound
	}
	c, ok := partition.ResolveActive(items, requestedID)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Company, error) {
	defaults := s.defaults.Get()
	now := s.clock.Now().UTC()

	c := domain.Company{
		ID:                     s.genID.Generate().String(),
		Name:                   strings.TrimSpace(req.Name),
		LegalName:              strings.TrimSpace(req.LegalName),
		TaxID:                  strings.TrimSpace(req.TaxID),
		RegistrationNumber:     strings.TrimSpace(req.RegistrationNumber),
		Email:                  strings.TrimSpace(req.Email),
		Phone:                  strings.TrimSpace(req.Phone),
		Address:                req.Address,
		Bank:                   req.Bank,
		DefaultPaymentTermDays: defaults.PaymentTermDays,
		DefaultCurrency:        defaults.Currency,
		DefaultTaxRate:         defaults.TaxRate,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if req.DefaultPaymentTermDays != nil {
		c.DefaultPaymentTermDays = *req.DefaultPaymentTermDays
	}
	if cur := strings.ToUpper(strings.TrimSpace(req.DefaultCurrency)); cur != "" {
		c.DefaultCurrency = cur
	}
	if req.DefaultTaxRate != nil {
		c.DefaultTaxRate = *req.DefaultTaxRate
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	loaded := s.load(ctx)
	items := append([]domain.Company(nil), loaded.Items...)
	if !hasPrimary(items) {
		c.IsPrimary = true
	}
	if len(items) == 0 {
		c.IsActive = true
	}
	items = append(items, c)

	if _, err := s.col.Save(ctx, items, loaded.Version); err != nil {
		return nil, err
	}
	s.log.Info("company created", zap.String("company_id", c.ID), zap.Bool("primary", c.IsPrimary))
	return &c, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateRequest) (*domain.Company, error) {
	return s.mutate(ctx, id, func(items []domain.Company, idx int) error {
		c := &items[idx]
		setString(&c.Name, req.Name)
		setString(&c.LegalName, req.LegalName)
		setString(&c.TaxID, req.TaxID)
		setString(&c.RegistrationNumber, req.RegistrationNumber)
		setString(&c.Email, req.Email)
		setString(&c.Phone, req.Phone)
		if req.Address != nil {
			c.Address = *req.Address
		}
		if req.Bank != nil {
			c.Bank = *req.Bank
		}
		if req.DefaultPaymentTermDays != nil {
			c.DefaultPaymentTermDays = *req.DefaultPaymentTermDays
		}
		if req.DefaultCurrency != nil {
			c.DefaultCurrency = strings.ToUpper(strings.TrimSpace(*req.DefaultCurrency))
		}
		if req.DefaultTaxRate != nil {
			c.DefaultTaxRate = *req.DefaultTaxRate
		}
		return c.Validate()
	})
}

// Activate marks id as the active company. Only the flags change; records
// keep their owners.
func (s *Service) Activate(ctx context.Context, id string) (*domain.Company, error) {
	return s.mutate(ctx, id, func(items []domain.Company, idx int) error {
		for i := range items {
			items[i].IsActive = i == idx
		}
		return nil
	})
}

func (s *Service) MakePrimary(ctx context.Context, id string) (*domain.Company, error) {
	return s.mutate(ctx, id, func(items []domain.Company, idx int) error {
		for i := range items {
			items[i].IsPrimary = i == idx
		}
		return nil
	})
}

// Delete removes a company. The last remaining company cannot be deleted.
// Deleting the primary promotes the first remaining company. Records owned
// by the deleted company are left in place.
func (s *Service) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	loaded := s.load(ctx)
	idx := indexOf(loaded.Items, id)
	if idx < 0 {
		return domain.ErrNotFound
	}
	if len(loaded.Items) == 1 {
		return &domain.LastCompanyError{CompanyID: id}
	}

	removed := loaded.Items[idx]
	items := make([]domain.Company, 0, len(loaded.Items)-1)
	items = append(items, loaded.Items[:idx]...)
	items = append(items, loaded.Items[idx+1:]...)

	if removed.IsPrimary || !hasPrimary(items) {
		items[0].IsPrimary = true
	}
	if removed.IsActive {
		for i := range items {
			items[i].IsActive = items[i].IsPrimary
		}
	}

	if _, err := s.col.Save(ctx, items, loaded.Version); err != nil {
		return err
	}
	s.log.Info("company deleted", zap.String("company_id", id), zap.Bool("was_primary", removed.IsPrimary))
	return nil
}

func (s *Service) mutate(ctx context.Context, id string, fn func(items []domain.Company, idx int) error) (*domain.Company, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	loaded := s.load(ctx)
	items := append([]domain.Company(nil), loaded.Items...)
	idx := indexOf(items, id)
	if idx < 0 {
		return nil, domain.ErrNotFound
	}
	if err := fn(items, idx); err != nil {
		return nil, err
	}
	items[idx].UpdatedAt = s.clock.Now().UTC()

	if _, err := s.col.Save(ctx, items, loaded.Version); err != nil {
		return nil, err
	}
	c := items[idx]
	return &c, nil
}

func (s *Service) load(ctx context.Context) store.Loaded[domain.Company] {
	loaded := s.col.Load(ctx)
	if loaded.Diagnostic != nil {
		s.log.Warn("companies unreadable, serving seed data", zap.Error(loaded.Diagnostic))
	}
	return loaded
}

func indexOf(items []domain.Company, id string) int {
	for i, c := range items {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func hasPrimary(items []domain.Company) bool {
	for _, c := range items {
		if c.IsPrimary {
			return true
		}
	}
	return false
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

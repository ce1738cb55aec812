package service

import (
	"context"
	"encoding/csv"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/folio/internal/clock"
	"github.com/smallbiznis/folio/internal/company/partition"
	"github.com/smallbiznis/folio/internal/product/domain"
	"github.com/smallbiznis/folio/internal/repository"
	"github.com/smallbiznis/folio/internal/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// CSVHeader is the first row of a product export.
var CSVHeader = []string{"Name", "Description", "Price", "Unit", "Category", "Tax%"}

type Params struct {
	fx.In

	Collections repository.Collections
	Clock       clock.Clock
	Log         *zap.Logger
	GenID       *snowflake.Node
}

type Service struct {
	cols  repository.Collections
	col   *store.Collection[domain.Product]
	clock clock.Clock
	log   *zap.Logger
	genID *snowflake.Node

	mu sync.Mutex
}

func New(p Params) domain.Service {
	return &Service{
		cols:  p.Collections,
		col:   p.Collections.Products,
		clock: p.Clock,
		log:   p.Log.Named("product.service"),
		genID: p.GenID,
	}
}

func (s *Service) List(ctx context.Context, companyID string, req domain.ListRequest) ([]domain.Product, error) {
	owned := partition.RecordsForCompany(s.load(ctx).Items, companyID, s.primaryID(ctx))

	category := strings.TrimSpace(req.Category)
	out := make([]domain.Product, 0, len(owned))
	for _, p := range owned {
		if req.ActiveOnly && !p.IsActive {
			continue
		}
		if category != "" && !strings.EqualFold(p.Category, category) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, companyID, id string) (*domain.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrInvalidID
	}
	primaryID := s.primaryID(ctx)
	for _, p := range s.load(ctx).Items {
		if p.ID == id && partition.OwnerOf(p, primaryID) == companyID {
			return &p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Service) Create(ctx context.Context, companyID string, req domain.CreateRequest) (*domain.Product, error) {
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	p := domain.Product{
		ID:          s.genID.Generate().String(),
		CompanyID:   companyID,
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		UnitPrice:   req.UnitPrice,
		Unit:        strings.TrimSpace(req.Unit),
		Category:    strings.TrimSpace(req.Category),
		TaxRate:     req.TaxRate,
		IsActive:    active,
		CreatedAt:   s.clock.Now().UTC(),
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	loaded := s.load(ctx)
	items := append(append([]domain.Product(nil), loaded.Items...), p)
	if _, err := s.col.Save(ctx, items, loaded.Version); err != nil {
		return nil, err
	}
	s.log.Info("product created", zap.String("product_id", p.ID), zap.String("company_id", companyID))
	return &p, nil
}

func (s *Service) Update(ctx context.Context, companyID, id string, req domain.UpdateRequest) (*domain.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrInvalidID
	}
	primaryID := s.primaryID(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	loaded := s.load(ctx)
	items := append([]domain.Product(nil), loaded.Items...)
	idx := s.indexOwned(items, companyID, id, primaryID)
	if idx < 0 {
		return nil, domain.ErrNotFound
	}

	p := &items[idx]
	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		p.Description = strings.TrimSpace(*req.Description)
	}
	if req.UnitPrice != nil {
		p.UnitPrice = *req.UnitPrice
	}
	if req.Unit != nil {
		p.Unit = strings.TrimSpace(*req.Unit)
	}
	if req.Category != nil {
		p.Category = strings.TrimSpace(*req.Category)
	}
	if req.TaxRate != nil {
		p.TaxRate = *req.TaxRate
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.col.Save(ctx, items, loaded.Version); err != nil {
		return nil, err
	}
	out := *p
	return &out, nil
}

// Delete removes the catalog entry. Line items that referenced it keep
// their description snapshot.
func (s *Service) Delete(ctx context.Context, companyID, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.ErrInvalidID
	}
	primaryID := s.primaryID(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	loaded := s.load(ctx)
	idx := s.indexOwned(loaded.Items, companyID, id, primaryID)
	if idx < 0 {
		return domain.ErrNotFound
	}
	items := make([]domain.Product, 0, len(loaded.Items)-1)
	items = append(items, loaded.Items[:idx]...)
	items = append(items, loaded.Items[idx+1:]...)

	_, err := s.col.Save(ctx, items, loaded.Version)
	return err
}

func (s *Service) RecordUsage(ctx context.Context, productIDs []string, at time.Time) error {
	counts := map[string]int{}
	for _, id := range productIDs {
		if id = strings.TrimSpace(id); id != "" {
			counts[id]++
		}
	}
	if len(counts) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	loaded := s.load(ctx)
	items := append([]domain.Product(nil), loaded.Items...)
	changed := false
	at = at.UTC()
	for i := range items {
		n, ok := counts[items[i].ID]
		if !ok {
			continue
		}
		items[i].UsageCount += n
		used := at
		items[i].LastUsedAt = &used
		changed = true
	}
	if !changed {
		return nil
	}
	_, err := s.col.Save(ctx, items, loaded.Version)
	return err
}

// ExportCSV writes the company's catalog with a header row. Prices and
// rates are printed as plain decimals.
func (s *Service) ExportCSV(ctx context.Context, companyID string, w io.Writer) error {
	products, err := s.List(ctx, companyID, domain.ListRequest{})
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, p := range products {
		if err := cw.Write([]string{
			p.Name,
			p.Description,
			p.UnitPrice.StringFixedBank(2),
			p.Unit,
			p.Category,
			p.TaxRate.String(),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportFileName builds a download name like "acme-gmbh-products-2026-10-16.csv".
func ExportFileName(companyName string, at time.Time) string {
	base := slug.Make(companyName)
	if base == "" {
		base = "company"
	}
	return base + "-products-" + at.UTC().Format("2006-01-02") + ".csv"
}

func (s *Service) indexOwned(items []domain.Product, companyID, id, primaryID string) int {
	for i, p := range items {
		if p.ID == id && partition.OwnerOf(p, primaryID) == companyID {
			return i
		}
	}
	return -1
}

func (s *Service) primaryID(ctx context.Context) string {
	if primary, ok := partition.ResolvePrimary(s.cols.Companies.Load(ctx).Items); ok {
		return primary.ID
	}
	return ""
}

func (s *Service) load(ctx context.Context) store.Loaded[domain.Product] {
	loaded := s.col.Load(ctx)
	if loaded.Diagnostic != nil {
		s.log.Warn("products unreadable, serving seed data", zap.Error(loaded.Diagnostic))
	}
	return loaded
}

// Package backup writes and restores point-in-time copies of every
// collection as snappy-compressed JSON files named by ULID.
package backup

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/golang/snappy"
	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/folio/internal/clock"
	companydomain "github.com/smallbiznis/folio/internal/company/domain"
	"github.com/smallbiznis/folio/internal/company/partition"
	"github.com/smallbiznis/folio/internal/config"
	invoicedomain "github.com/smallbiznis/folio/internal/invoice/domain"
	"github.com/smallbiznis/folio/internal/observability/metrics"
	"github.com/smallbiznis/folio/internal/observability/tracing"
	productdomain "github.com/smallbiznis/folio/internal/product/domain"
	"github.com/smallbiznis/folio/internal/repository"
	"github.com/smallbiznis/folio/internal/store"
	"github.com/smallbiznis/folio/internal/store/filestore"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const fileExt = ".backup"

var (
	ErrNotFound      = errors.New("backup_not_found")
	ErrInvalidHandle = errors.New("invalid_backup_handle")
	ErrIncompatible  = errors.New("backup_schema_newer_than_app")
)

// Handle identifies one backup file.
type Handle struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Size      int64     `json:"size"`
	Path      string    `json:"path"`
}

// Snapshot is the decompressed content of a backup.
type Snapshot struct {
	Timestamp      time.Time               `json:"timestamp"`
	AppVersion     string                  `json:"appVersion"`
	SchemaVersion  int                     `json:"schemaVersion"`
	Companies      []companydomain.Company `json:"companies"`
	PerCompanyData map[string]CompanyData  `json:"perCompanyData"`
}

// CompanyData holds the records owned by one company.
type CompanyData struct {
	Invoices []invoicedomain.Invoice `json:"invoices"`
	Products []productdomain.Product `json:"products"`
}

type Params struct {
	fx.In

	Collections repository.Collections
	Config      config.Config
	Clock       clock.Clock
	Log         *zap.Logger
	Metrics     *metrics.Metrics `optional:"true"`
}

type Service struct {
	cols       repository.Collections
	dir        string
	appVersion string
	clock      clock.Clock
	log        *zap.Logger
	metrics    *metrics.Metrics

	mu      sync.Mutex
	entropy io.Reader
}

func New(p Params) *Service {
	return &Service{
		cols:       p.Collections,
		dir:        p.Config.BackupDir,
		appVersion: p.Config.AppVersion,
		clock:      p.Clock,
		log:        p.Log.Named("backup.service"),
		metrics:    p.Metrics,
		entropy:    ulid.Monotonic(rand.Reader, 0),
	}
}

// Create snapshots every collection into a new backup file.
func (s *Service) Create(ctx context.Context) (h Handle, err error) {
	ctx, span := tracing.Start(ctx, "backup.create")
	defer func() {
		tracing.End(span, err)
		s.metrics.ObserveBackup("create", err)
	}()

	companies := s.cols.Companies.Load(ctx)
	products := s.cols.Products.Load(ctx)
	invoices := s.cols.Invoices.Load(ctx)
	for _, diag := range []error{companies.Diagnostic, products.Diagnostic, invoices.Diagnostic} {
		if diag != nil {
			return Handle{}, fmt.Errorf("refusing to back up unreadable data: %w", diag)
		}
	}

	primaryID := ""
	if primary, ok := partition.ResolvePrimary(companies.Items); ok {
		primaryID = primary.ID
	}

	now := s.clock.Now().UTC()
	snap := Snapshot{
		Timestamp:      now,
		AppVersion:     s.appVersion,
		SchemaVersion:  store.SchemaVersion,
		Companies:      companies.Items,
		PerCompanyData: map[string]CompanyData{},
	}
	for owner, items := range partition.GroupByCompany(invoices.Items, primaryID) {
		data := snap.PerCompanyData[owner]
		data.Invoices = items
		snap.PerCompanyData[owner] = data
	}
	for owner, items := range partition.GroupByCompany(products.Items, primaryID) {
		data := snap.PerCompanyData[owner]
		data.Products = items
		snap.PerCompanyData[owner] = data
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		return Handle{}, err
	}
	compressed := snappy.Encode(nil, raw)

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Handle{}, &store.IOError{Op: "mkdir", Path: s.dir, Err: err}
	}

	id, err := s.newID(now)
	if err != nil {
		return Handle{}, err
	}
	path := filepath.Join(s.dir, id.String()+fileExt)
	if err := filestore.WriteAtomic(ctx, path, compressed, 0o600); err != nil {
		return Handle{}, &store.IOError{Op: "backup", Path: path, Err: err}
	}

	s.log.Info("backup created",
		zap.String("backup_id", id.String()),
		zap.Int("companies", len(companies.Items)),
		zap.Int("invoices", len(invoices.Items)),
		zap.Int("products", len(products.Items)),
	)
	return Handle{ID: id.String(), CreatedAt: ulid.Time(id.Time()).UTC(), Size: int64(len(compressed)), Path: path}, nil
}

// List returns the available backups, newest first.
func (s *Service) List(ctx context.Context) ([]Handle, error) {
	_, span := tracing.Start(ctx, "backup.list")
	defer span.End()

	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return []Handle{}, nil
	}
	if err != nil {
		return nil, &store.IOError{Op: "list", Path: s.dir, Err: err}
	}

	out := make([]Handle, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, fileExt) {
			continue
		}
		id, err := ulid.ParseStrict(strings.TrimSuffix(name, fileExt))
		if err != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Handle{
			ID:        id.String(),
			CreatedAt: ulid.Time(id.Time()).UTC(),
			Size:      info.Size(),
			Path:      filepath.Join(s.dir, name),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// Read decodes the backup identified by id without restoring it.
func (s *Service) Read(id string) (Snapshot, error) {
	parsed, err := ulid.ParseStrict(strings.TrimSpace(id))
	if err != nil {
		return Snapshot{}, ErrInvalidHandle
	}
	path := filepath.Join(s.dir, parsed.String()+fileExt)
	compressed, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, &store.IOError{Op: "read", Path: path, Err: err}
	}
	raw, err := snappy.Decode(nil, compressed)
	if err != nil {
		return Snapshot{}, fmt.Errorf("decompress backup %s: %w", parsed, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode backup %s: %w", parsed, err)
	}
	if snap.SchemaVersion > store.SchemaVersion {
		return Snapshot{}, ErrIncompatible
	}
	return snap, nil
}

// Restore overwrites every collection with the backup contents. Versions
// keep increasing: a restore is an ordinary save on top of current data.
func (s *Service) Restore(ctx context.Context, id string) (err error) {
	ctx, span := tracing.Start(ctx, "backup.restore", attribute.String("backup_id", id))
	defer func() {
		tracing.End(span, err)
		s.metrics.ObserveBackup("restore", err)
	}()

	snap, err := s.Read(id)
	if err != nil {
		return err
	}
	invoices, products := snap.flatten()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := saveOver(ctx, s.cols.Companies, snap.Companies); err != nil {
		return err
	}
	if err := saveOver(ctx, s.cols.Products, products); err != nil {
		return err
	}
	if err := saveOver(ctx, s.cols.Invoices, invoices); err != nil {
		return err
	}

	s.log.Info("backup restored",
		zap.String("backup_id", id),
		zap.Time("backup_timestamp", snap.Timestamp),
		zap.String("backup_app_version", snap.AppVersion),
	)
	return nil
}

// flatten rebuilds the collections: companies in stored order first, then
// owners that are no longer companies, sorted.
func (snap Snapshot) flatten() ([]invoicedomain.Invoice, []productdomain.Product) {
	order := make([]string, 0, len(snap.PerCompanyData))
	seen := map[string]bool{}
	for _, c := range snap.Companies {
		if _, ok := snap.PerCompanyData[c.ID]; ok && !seen[c.ID] {
			order = append(order, c.ID)
			seen[c.ID] = true
		}
	}
	rest := make([]string, 0)
	for owner := range snap.PerCompanyData {
		if !seen[owner] {
			rest = append(rest, owner)
		}
	}
	sort.Strings(rest)
	order = append(order, rest...)

	invoices := []invoicedomain.Invoice{}
	products := []productdomain.Product{}
	for _, owner := range order {
		data := snap.PerCompanyData[owner]
		invoices = append(invoices, data.Invoices...)
		products = append(products, data.Products...)
	}
	return invoices, products
}

func saveOver[T any](ctx context.Context, col *store.Collection[T], items []T) error {
	current := col.Load(ctx)
	if items == nil {
		items = []T{}
	}
	_, err := col.Save(ctx, items, current.Version)
	return err
}

func (s *Service) newID(now time.Time) (ulid.ULID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.New(ulid.Timestamp(now), s.entropy)
}

var Module = fx.Module("backup.service",
	fx.Provide(New),
)

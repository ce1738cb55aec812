// Package sqlstore keeps collections as rows of a SQL database (SQLite by
// default, Postgres or MySQL when configured). Each kind is one row holding
// the whole collection, so saves stay full overwrites and the version check
// runs inside a transaction.
package sqlstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/smallbiznis/folio/internal/clock"
	obslogger "github.com/smallbiznis/folio/internal/observability/logger"
	"github.com/smallbiznis/folio/internal/store"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type collectionRow struct {
	Kind          string         `gorm:"primaryKey;type:varchar(64)"`
	SchemaVersion int            `gorm:"not null"`
	Version       int64          `gorm:"not null"`
	SavedAt       time.Time      `gorm:"not null"`
	Items         datatypes.JSON `gorm:"not null"`
}

func (collectionRow) TableName() string { return "collections" }

type quarantineRow struct {
	ID            uint           `gorm:"primaryKey;autoIncrement"`
	Kind          string         `gorm:"type:varchar(64);not null;index"`
	QuarantinedAt time.Time      `gorm:"not null"`
	Payload       datatypes.JSON `gorm:"not null"`
}

func (quarantineRow) TableName() string { return "collection_quarantine" }

type Config struct {
	Driver    string
	Path      string
	DSN       DSN
	IOTimeout time.Duration
	// Tracing installs the otelgorm plugin so statements become spans.
	Tracing bool
}

type Store struct {
	db      *gorm.DB
	path    string
	timeout time.Duration
	clock   clock.Clock
}

var (
	_ store.Backend     = (*Store)(nil)
	_ store.Quarantiner = (*Store)(nil)
)

// Open connects to the database named by cfg, creating the sqlite file
// if needed.
func Open(cfg Config, clk clock.Clock, log *zap.Logger) (*Store, error) {
	dialector, err := Dialect(cfg)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Path == "" {
		cfg.Path = normalizeDriver(cfg.Driver) + "://" + cfg.DSN.Host + "/" + cfg.DSN.Name
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: obslogger.NewGormLogger(log, obslogger.DefaultGormLoggerConfig()),
	})
	if err != nil {
		return nil, &store.IOError{Op: "open", Path: cfg.Path, Err: err}
	}
	if cfg.Tracing {
		if err := db.Use(otelgorm.NewPlugin(otelgorm.WithoutQueryVariables())); err != nil {
			return nil, fmt.Errorf("sqlstore: install tracing plugin: %w", err)
		}
	}
	return New(db, cfg, clk)
}

// New wraps an existing gorm handle and migrates the tables.
func New(db *gorm.DB, cfg Config, clk clock.Clock) (*Store, error) {
	if err := db.AutoMigrate(&collectionRow{}, &quarantineRow{}); err != nil {
		return nil, fmt.Errorf("sqlstore: migrate tables: %w", err)
	}
	if cfg.IOTimeout <= 0 {
		cfg.IOTimeout = 5 * time.Second
	}
	if clk == nil {
		clk = clock.System()
	}
	return &Store{db: db, path: cfg.Path, timeout: cfg.IOTimeout, clock: clk}, nil
}

func (s *Store) Location(kind store.Kind) string {
	return s.path + "#" + string(kind)
}

func (s *Store) Read(ctx context.Context, kind store.Kind) (store.Envelope, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	row, err := s.find(s.db.WithContext(ctx), kind)
	if err != nil {
		return store.Envelope{}, err
	}

	raw := []byte(row.Items)
	if !json.Valid(raw) || len(raw) == 0 || raw[0] != '[' {
		return store.Envelope{}, &store.DecodeError{Kind: kind, Path: s.Location(kind), Err: errors.New("stored items are not a JSON array")}
	}
	if row.SchemaVersion > store.SchemaVersion {
		return store.Envelope{}, &store.DecodeError{Kind: kind, Path: s.Location(kind), Err: fmt.Errorf("schema version %d is newer than supported %d", row.SchemaVersion, store.SchemaVersion)}
	}
	return store.Envelope{
		Kind:          kind,
		SchemaVersion: row.SchemaVersion,
		Version:       row.Version,
		SavedAt:       row.SavedAt.UTC(),
		Items:         json.RawMessage(raw),
	}, nil
}

func (s *Store) Write(ctx context.Context, kind store.Kind, env store.Envelope, expectedVersion int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	items := []byte(env.Items)
	if len(items) == 0 {
		items = []byte("[]")
	}

	var next int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current := int64(0)
		row, err := s.find(tx, kind)
		exists := err == nil
		switch {
		case exists:
			if json.Valid(row.Items) {
				current = row.Version
			}
		case errors.Is(err, store.ErrNotExist):
		default:
			return err
		}

		if current != expectedVersion {
			return &store.StaleWriteError{Kind: kind, Expected: expectedVersion, Actual: current}
		}

		next = current + 1
		replacement := collectionRow{
			Kind:          string(kind),
			SchemaVersion: env.SchemaVersion,
			Version:       next,
			SavedAt:       env.SavedAt.UTC(),
			Items:         datatypes.JSON(items),
		}
		if !exists {
			return tx.Create(&replacement).Error
		}
		return s.swap(tx, row.Version, replacement, expectedVersion)
	})
	if err != nil {
		if errors.Is(err, store.ErrConcurrentModification) || store.IsIOError(err) {
			return 0, err
		}
		// two first writes raced on the same kind
		if isDuplicateKey(err) {
			return 0, &store.StaleWriteError{Kind: kind, Expected: expectedVersion, Actual: expectedVersion + 1}
		}
		return 0, &store.IOError{Op: "write", Kind: kind, Path: s.Location(kind), Err: err}
	}
	return next, nil
}

// Quarantine copies the stored row payload into collection_quarantine.
func (s *Store) Quarantine(ctx context.Context, kind store.Kind) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	row, err := s.find(s.db.WithContext(ctx), kind)
	if err != nil {
		return "", err
	}
	payload := row.Items
	if !json.Valid(payload) {
		// keep the bytes verbatim inside a JSON string
		quoted, _ := json.Marshal(string(payload))
		payload = datatypes.JSON(quoted)
	}
	q := quarantineRow{Kind: string(kind), QuarantinedAt: s.clock.Now().UTC(), Payload: payload}
	if err := s.db.WithContext(ctx).Create(&q).Error; err != nil {
		return "", &store.IOError{Op: "quarantine", Kind: kind, Path: s.Location(kind), Err: err}
	}
	return fmt.Sprintf("%s#collection_quarantine/%d", s.path, q.ID), nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// swap replaces the row only if its stored version is still observed.
// Under READ COMMITTED two writers can both pass the version check; the
// loser's update matches no row and is reported as stale.
func (s *Store) swap(tx *gorm.DB, observed int64, row collectionRow, expectedVersion int64) error {
	res := tx.Model(&collectionRow{}).
		Where("kind = ? AND version = ?", row.Kind, observed).
		Updates(map[string]any{
			"schema_version": row.SchemaVersion,
			"version":        row.Version,
			"saved_at":       row.SavedAt,
			"items":          row.Items,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &store.StaleWriteError{Kind: store.Kind(row.Kind), Expected: expectedVersion, Actual: expectedVersion + 1}
	}
	return nil
}

func (s *Store) find(db *gorm.DB, kind store.Kind) (collectionRow, error) {
	var row collectionRow
	err := db.Where("kind = ?", string(kind)).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return collectionRow{}, store.ErrNotExist
	}
	if err != nil {
		return collectionRow{}, &store.IOError{Op: "read", Kind: kind, Path: s.Location(kind), Err: err}
	}
	return row, nil
}

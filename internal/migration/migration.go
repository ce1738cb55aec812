// Package migration upgrades stored collections between schema versions.
//
// A run reads every collection, writes a pre-migration snapshot, applies
// the pending migrations in memory and only then writes the results back.
// If any step fails nothing is written and the schema marker stays as it
// was.
package migration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/folio/internal/clock"
	"github.com/smallbiznis/folio/internal/observability/tracing"
	"github.com/smallbiznis/folio/internal/store"
	"github.com/smallbiznis/folio/internal/store/filestore"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var (
	ErrDowngrade        = errors.New("schema_downgrade_not_supported")
	ErrUnknownMigration = errors.New("unknown_migration_version")
)

// Item is one decoded record. Numbers are kept as json.Number so amounts
// round-trip byte for byte.
type Item = map[string]any

// Dataset holds every collection being migrated.
type Dataset map[store.Kind][]Item

// Env gives migrations access to shared facilities.
type Env struct {
	Now   time.Time
	NewID func() string
}

// Migration transforms a dataset to Version. Apply must be idempotent.
type Migration struct {
	Version int
	Name    string
	Apply   func(data Dataset, env Env) error
}

// Result describes a completed run.
type Result struct {
	From        int    `json:"from"`
	To          int    `json:"to"`
	Applied     []int  `json:"applied"`
	SnapshotDir string `json:"snapshotDir,omitempty"`
}

type Runner struct {
	backend    store.Backend
	dataDir    string
	appVersion string
	clock      clock.Clock
	log        *zap.Logger
	node       *snowflake.Node
	migrations []Migration
}

func NewRunner(backend store.Backend, dataDir, appVersion string, clk clock.Clock, log *zap.Logger, node *snowflake.Node, migrations ...Migration) *Runner {
	if clk == nil {
		clk = clock.System()
	}
	if log == nil {
		log = zap.NewNop()
	}
	if len(migrations) == 0 {
		migrations = Registered()
	}
	sorted := append([]Migration(nil), migrations...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })
	return &Runner{
		backend:    backend,
		dataDir:    dataDir,
		appVersion: appVersion,
		clock:      clk,
		log:        log.Named("migration"),
		node:       node,
		migrations: sorted,
	}
}

// Run brings stored data up to store.SchemaVersion. A data directory with
// neither marker nor collections is a fresh install and only gets a marker.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	marker, found, err := r.ReadMarker()
	if err != nil {
		return Result{}, err
	}
	from := marker.SchemaVersion
	if !found {
		from, err = r.detectVersion(ctx)
		if err != nil {
			return Result{}, err
		}
	}
	return r.Migrate(ctx, from, store.SchemaVersion)
}

// Migrate applies every migration with from < Version <= to, in order.
func (r *Runner) Migrate(ctx context.Context, from, to int) (res Result, err error) {
	ctx, span := tracing.Start(ctx, "migration.migrate",
		attribute.Int("from", from), attribute.Int("to", to))
	defer func() { tracing.End(span, err) }()

	res = Result{From: from, To: to, Applied: []int{}}
	if from > to {
		return res, fmt.Errorf("%w: stored schema %d, app schema %d", ErrDowngrade, from, to)
	}
	if to > store.SchemaVersion {
		return res, fmt.Errorf("%w: %d", ErrUnknownMigration, to)
	}

	pending := r.pending(from, to)
	if len(pending) == 0 {
		return res, r.writeMarker(ctx, to)
	}

	originals, data, err := r.readAll(ctx)
	if err != nil {
		return res, err
	}

	if len(originals) > 0 {
		res.SnapshotDir, err = r.snapshot(ctx, to, originals)
		if err != nil {
			return res, err
		}
	}

	env := Env{Now: r.clock.Now().UTC(), NewID: r.newID}
	for _, m := range pending {
		if err := m.Apply(data, env); err != nil {
			return Result{From: from, To: to, Applied: []int{}, SnapshotDir: res.SnapshotDir},
				fmt.Errorf("migration v%d (%s): %w", m.Version, m.Name, err)
		}
		res.Applied = append(res.Applied, m.Version)
		r.log.Info("migration applied in memory", zap.Int("version", m.Version), zap.String("name", m.Name))
	}

	if err := r.writeAll(ctx, originals, data, to); err != nil {
		return Result{From: from, To: to, Applied: []int{}, SnapshotDir: res.SnapshotDir}, err
	}
	if err := r.writeMarker(ctx, to); err != nil {
		return res, err
	}
	r.log.Info("schema migrated", zap.Int("from", from), zap.Int("to", to), zap.Ints("applied", res.Applied))
	return res, nil
}

func (r *Runner) pending(from, to int) []Migration {
	out := []Migration{}
	for _, m := range r.migrations {
		if m.Version > from && m.Version <= to {
			out = append(out, m)
		}
	}
	return out
}

// detectVersion infers the schema of data written before the marker
// existed: the lowest envelope schema version present, 0 if empty.
func (r *Runner) detectVersion(ctx context.Context) (int, error) {
	lowest := 0
	for _, kind := range store.AllKinds() {
		env, err := r.backend.Read(ctx, kind)
		if errors.Is(err, store.ErrNotExist) || r.skipUndecodable(kind, err) {
			continue
		}
		if err != nil {
			return 0, err
		}
		if lowest == 0 || env.SchemaVersion < lowest {
			lowest = env.SchemaVersion
		}
	}
	if lowest == 0 {
		return store.SchemaVersion, nil
	}
	return lowest, nil
}

// skipUndecodable reports whether err is a decode failure. Such a kind is
// left untouched so the collection load quarantines it and falls back to
// seed data.
func (r *Runner) skipUndecodable(kind store.Kind, err error) bool {
	var decodeErr *store.DecodeError
	if !errors.As(err, &decodeErr) {
		return false
	}
	r.log.Warn("skipping undecodable collection during migration",
		zap.String("kind", string(kind)),
		zap.String("path", decodeErr.Path),
		zap.Error(decodeErr.Err),
	)
	return true
}

func (r *Runner) readAll(ctx context.Context) (map[store.Kind]store.Envelope, Dataset, error) {
	originals := map[store.Kind]store.Envelope{}
	data := Dataset{}
	for _, kind := range store.AllKinds() {
		env, err := r.backend.Read(ctx, kind)
		if errors.Is(err, store.ErrNotExist) || r.skipUndecodable(kind, err) {
			data[kind] = []Item{}
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read %s before migration: %w", kind, err)
		}
		items, err := decodeItems(env.Items)
		if err != nil {
			r.skipUndecodable(kind, &store.DecodeError{Kind: kind, Path: r.backend.Location(kind), Err: err})
			data[kind] = []Item{}
			continue
		}
		originals[kind] = env
		data[kind] = items
	}
	return originals, data, nil
}

func (r *Runner) snapshot(ctx context.Context, to int, originals map[store.Kind]store.Envelope) (string, error) {
	dir := filepath.Join(r.dataDir, "migrations", "pre-v"+strconv.Itoa(to))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &store.IOError{Op: "snapshot", Path: dir, Err: err}
	}
	for kind, env := range originals {
		raw, err := store.EncodeEnvelope(env)
		if err != nil {
			return "", err
		}
		path := filepath.Join(dir, string(kind)+".json")
		if err := filestore.WriteAtomic(ctx, path, raw, 0o644); err != nil {
			return "", &store.IOError{Op: "snapshot", Kind: kind, Path: path, Err: err}
		}
	}
	return dir, nil
}

// writeAll saves every migrated kind. If a write fails, kinds already
// written are put back to their original content.
func (r *Runner) writeAll(ctx context.Context, originals map[store.Kind]store.Envelope, data Dataset, to int) error {
	type written struct {
		kind    store.Kind
		version int64
	}
	done := []written{}
	for _, kind := range store.AllKinds() {
		orig, existed := originals[kind]
		if !existed {
			continue
		}
		raw, err := json.Marshal(data[kind])
		if err != nil {
			return err
		}
		version, err := r.backend.Write(ctx, kind, store.Envelope{
			Kind:          kind,
			SchemaVersion: to,
			SavedAt:       r.clock.Now().UTC(),
			Items:         raw,
		}, orig.Version)
		if err != nil {
			for _, w := range done {
				if _, rbErr := r.backend.Write(ctx, w.kind, originals[w.kind], w.version); rbErr != nil {
					r.log.Error("rollback after failed migration write failed",
						zap.String("kind", string(w.kind)), zap.Error(rbErr))
				}
			}
			return fmt.Errorf("write %s after migration: %w", kind, err)
		}
		done = append(done, written{kind: kind, version: version})
	}
	return nil
}

func (r *Runner) newID() string {
	if r.node == nil {
		return ""
	}
	return r.node.Generate().String()
}

func decodeItems(raw json.RawMessage) ([]Item, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var items []Item
	if err := dec.Decode(&items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []Item{}
	}
	return items, nil
}

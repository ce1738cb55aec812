package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/smallbiznis/folio/internal/clock"
	"github.com/smallbiznis/folio/internal/observability/metrics"
	"github.com/smallbiznis/folio/internal/observability/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Source tells the caller where loaded items came from.
type Source string

const (
	// SourceStored means the items were decoded from stored data.
	SourceStored Source = "stored"
	// SourceSeedFirstRun means nothing was stored yet; items are seed data.
	SourceSeedFirstRun Source = "seed_first_run"
	// SourceSeedRecovered means stored data existed but could not be read;
	// items are seed data and Diagnostic holds the cause.
	SourceSeedRecovered Source = "seed_recovered"
)

// Loaded is the result of Collection.Load. Version is what the caller must
// pass back to Save.
type Loaded[T any] struct {
	Items      []T
	Version    int64
	Source     Source
	Diagnostic error
	// QuarantinePath is where undecodable data was preserved, if anywhere.
	QuarantinePath string
}

// SeedFunc returns placeholder records for a collection.
type SeedFunc[T any] func(now time.Time) []T

// Collection is a typed view over one backend kind.
type Collection[T any] struct {
	backend Backend
	kind    Kind
	seed    SeedFunc[T]
	clock   clock.Clock
	log     *zap.Logger
	metrics *metrics.Metrics
}

// CollectionOption customizes a Collection.
type CollectionOption[T any] func(*Collection[T])

func WithSeed[T any](seed SeedFunc[T]) CollectionOption[T] {
	return func(c *Collection[T]) { c.seed = seed }
}

func WithLogger[T any](log *zap.Logger) CollectionOption[T] {
	return func(c *Collection[T]) {
		if log != nil {
			c.log = log
		}
	}
}

func WithMetrics[T any](m *metrics.Metrics) CollectionOption[T] {
	return func(c *Collection[T]) { c.metrics = m }
}

func WithClock[T any](clk clock.Clock) CollectionOption[T] {
	return func(c *Collection[T]) {
		if clk != nil {
			c.clock = clk
		}
	}
}

func NewCollection[T any](backend Backend, kind Kind, opts ...CollectionOption[T]) *Collection[T] {
	c := &Collection[T]{
		backend: backend,
		kind:    kind,
		clock:   clock.System(),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.Named("store").With(zap.String("kind", string(kind)))
	return c
}

func (c *Collection[T]) Kind() Kind { return c.kind }

// Load reads the collection. It never fails: a missing collection yields
// seed data quietly, an unreadable one yields seed data plus a Diagnostic,
// a warning log, a metric, and a quarantined copy of the bad data.
func (c *Collection[T]) Load(ctx context.Context) Loaded[T] {
	ctx, span := tracing.Start(ctx, "store.load", attribute.String("kind", string(c.kind)))
	defer span.End()

	env, err := c.backend.Read(ctx, c.kind)
	if errors.Is(err, ErrNotExist) {
		c.log.Info("collection not found, using seed data")
		c.metrics.ObserveRead(string(c.kind), metrics.SourceSeedFirstRun)
		return Loaded[T]{Items: c.seedItems(), Source: SourceSeedFirstRun}
	}

	var items []T
	if err == nil {
		if decErr := json.Unmarshal(env.Items, &items); decErr != nil {
			err = &DecodeError{Kind: c.kind, Path: c.backend.Location(c.kind), Err: decErr}
		}
	}
	if err != nil {
		return c.fallback(ctx, err)
	}

	if items == nil {
		items = []T{}
	}
	c.metrics.ObserveRead(string(c.kind), metrics.SourceStored)
	return Loaded[T]{Items: items, Version: env.Version, Source: SourceStored}
}

func (c *Collection[T]) fallback(ctx context.Context, cause error) Loaded[T] {
	span := tracing.SpanFromContext(ctx)
	span.RecordError(cause)

	out := Loaded[T]{Items: c.seedItems(), Source: SourceSeedRecovered, Diagnostic: cause}

	fields := []zap.Field{
		zap.String("path", c.backend.Location(c.kind)),
		zap.Error(cause),
	}
	if q, ok := c.backend.(Quarantiner); ok && IsDecodeError(cause) {
		path, qErr := q.Quarantine(ctx, c.kind)
		if qErr != nil {
			fields = append(fields, zap.NamedError("quarantine_error", qErr))
		} else {
			out.QuarantinePath = path
			fields = append(fields, zap.String("quarantine_path", path))
		}
	}

	c.log.Warn("collection unreadable, substituting seed data", fields...)
	c.metrics.ObserveRead(string(c.kind), metrics.SourceSeedRecovery)
	return out
}

// Save rewrites the whole collection. expectedVersion is the Version from
// the Load the items are based on. Errors are never swallowed: I/O problems
// come back as *IOError, stale versions as ErrConcurrentModification.
func (c *Collection[T]) Save(ctx context.Context, items []T, expectedVersion int64) (version int64, err error) {
	ctx, span := tracing.Start(ctx, "store.save", attribute.String("kind", string(c.kind)))
	defer func() { tracing.End(span, err) }()

	start := time.Now()
	if items == nil {
		items = []T{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		c.metrics.ObserveWrite(string(c.kind), metrics.WriteResultError, time.Since(start))
		return 0, err
	}

	version, err = c.backend.Write(ctx, c.kind, Envelope{
		Kind:          c.kind,
		SchemaVersion: SchemaVersion,
		SavedAt:       c.clock.Now(),
		Items:         raw,
	}, expectedVersion)

	switch {
	case err == nil:
		c.metrics.ObserveWrite(string(c.kind), metrics.WriteResultOK, time.Since(start))
		c.log.Debug("collection saved", zap.Int64("version", version), zap.Int("items", len(items)))
	case errors.Is(err, ErrConcurrentModification):
		c.metrics.ObserveWrite(string(c.kind), metrics.WriteResultStale, time.Since(start))
		c.log.Warn("stale collection write rejected", zap.Int64("expected_version", expectedVersion), zap.Error(err))
	default:
		c.metrics.ObserveWrite(string(c.kind), metrics.WriteResultError, time.Since(start))
		c.log.Error("collection save failed", zap.Error(err))
	}
	return version, err
}

func (c *Collection[T]) seedItems() []T {
	if c.seed == nil {
		return []T{}
	}
	items := c.seed(c.clock.Now())
	if items == nil {
		return []T{}
	}
	return items
}

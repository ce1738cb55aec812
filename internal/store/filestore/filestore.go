// Package filestore keeps one JSON file per collection kind in a data
// directory. Every write goes to a temporary file in the same directory and
// is renamed over the target, so a crash never leaves a truncated file.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/smallbiznis/folio/internal/clock"
	"github.com/smallbiznis/folio/internal/store"
	"go.uber.org/zap"
)

const (
	fileExt         = ".json"
	quarantineInfix = ".corrupt-"
	defaultTimeout  = 5 * time.Second
)

type Config struct {
	Dir       string
	IOTimeout time.Duration
	FileMode  os.FileMode
}

type Store struct {
	dir     string
	timeout time.Duration
	mode    os.FileMode
	clock   clock.Clock
	log     *zap.Logger

	locks sync.Map // store.Kind -> *sync.Mutex
}

var (
	_ store.Backend     = (*Store)(nil)
	_ store.Quarantiner = (*Store)(nil)
)

func New(cfg Config, clk clock.Clock, log *zap.Logger) (*Store, error) {
	if cfg.Dir == "" {
		return nil, errors.New("filestore: data directory is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, &store.IOError{Op: "mkdir", Path: cfg.Dir, Err: err}
	}
	if cfg.IOTimeout <= 0 {
		cfg.IOTimeout = defaultTimeout
	}
	if cfg.FileMode == 0 {
		cfg.FileMode = 0o644
	}
	if clk == nil {
		clk = clock.System()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		dir:     cfg.Dir,
		timeout: cfg.IOTimeout,
		mode:    cfg.FileMode,
		clock:   clk,
		log:     log.Named("filestore"),
	}, nil
}

// Dir returns the data directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) Location(kind store.Kind) string {
	return filepath.Join(s.dir, string(kind)+fileExt)
}

func (s *Store) Read(ctx context.Context, kind store.Kind) (store.Envelope, error) {
	path := s.Location(kind)

	var raw []byte
	err := s.withTimeout(ctx, func(context.Context) error {
		var readErr error
		raw, readErr = os.ReadFile(path)
		return readErr
	})
	if errors.Is(err, fs.ErrNotExist) {
		return store.Envelope{}, store.ErrNotExist
	}
	if err != nil {
		return store.Envelope{}, &store.IOError{Op: "read", Kind: kind, Path: path, Err: err}
	}

	env, err := store.DecodeEnvelope(kind, raw)
	if err != nil {
		return store.Envelope{}, &store.DecodeError{Kind: kind, Path: path, Err: err}
	}
	return env, nil
}

func (s *Store) Write(ctx context.Context, kind store.Kind, env store.Envelope, expectedVersion int64) (int64, error) {
	mu := s.lock(kind)
	mu.Lock()
	defer mu.Unlock()

	current, err := s.currentVersion(ctx, kind)
	if err != nil {
		return 0, err
	}
	if current != expectedVersion {
		return 0, &store.StaleWriteError{Kind: kind, Expected: expectedVersion, Actual: current}
	}

	env.Kind = kind
	env.Version = current + 1
	data, err := store.EncodeEnvelope(env)
	if err != nil {
		return 0, fmt.Errorf("encode %s: %w", kind, err)
	}

	path := s.Location(kind)
	if err := s.withTimeout(ctx, func(ctx context.Context) error {
		return WriteAtomic(ctx, path, data, s.mode)
	}); err != nil {
		return 0, &store.IOError{Op: "write", Kind: kind, Path: path, Err: err}
	}
	return env.Version, nil
}

// Quarantine copies the current file aside as "<kind>.json.corrupt-<ts>"
// and returns the copy's path.
func (s *Store) Quarantine(ctx context.Context, kind store.Kind) (string, error) {
	mu := s.lock(kind)
	mu.Lock()
	defer mu.Unlock()

	src := s.Location(kind)
	dst := src + quarantineInfix + s.clock.Now().UTC().Format("20060102T150405.000000000Z")

	err := s.withTimeout(ctx, func(ctx context.Context) error {
		raw, err := os.ReadFile(src)
		if err != nil {
			return err
		}
		return WriteAtomic(ctx, dst, raw, s.mode)
	})
	if err != nil {
		return "", &store.IOError{Op: "quarantine", Kind: kind, Path: src, Err: err}
	}
	s.log.Warn("quarantined unreadable collection", zap.String("kind", string(kind)), zap.String("path", dst))
	return dst, nil
}

// currentVersion is 0 for a missing or undecodable file; callers that got
// seed data after a decode failure may overwrite it.
func (s *Store) currentVersion(ctx context.Context, kind store.Kind) (int64, error) {
	env, err := s.Read(ctx, kind)
	switch {
	case err == nil:
		return env.Version, nil
	case errors.Is(err, store.ErrNotExist), store.IsDecodeError(err):
		return 0, nil
	default:
		return 0, err
	}
}

func (s *Store) lock(kind store.Kind) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(kind, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// withTimeout bounds fn by the configured I/O timeout. fn runs on the
// caller's goroutine and must check the bounded context before any
// irreversible step, so a reported failure never lands on disk.
func (s *Store) withTimeout(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}

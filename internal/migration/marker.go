package migration

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/smallbiznis/folio/internal/store"
	"github.com/smallbiznis/folio/internal/store/filestore"
)

const markerFile = "schema.json"

// Marker records the schema version the data directory was last migrated to.
type Marker struct {
	SchemaVersion int       `json:"schemaVersion"`
	AppVersion    string    `json:"appVersion"`
	MigratedAt    time.Time `json:"migratedAt"`
}

func (r *Runner) markerPath() string {
	return filepath.Join(r.dataDir, markerFile)
}

// ReadMarker returns the stored marker and whether one exists.
func (r *Runner) ReadMarker() (Marker, bool, error) {
	raw, err := os.ReadFile(r.markerPath())
	if errors.Is(err, os.ErrNotExist) {
		return Marker{}, false, nil
	}
	if err != nil {
		return Marker{}, false, &store.IOError{Op: "read", Path: r.markerPath(), Err: err}
	}
	var m Marker
	if err := json.Unmarshal(raw, &m); err != nil {
		return Marker{}, false, &store.DecodeError{Path: r.markerPath(), Err: err}
	}
	return m, true, nil
}

func (r *Runner) writeMarker(ctx context.Context, version int) error {
	current, found, err := r.ReadMarker()
	if err == nil && found && current.SchemaVersion == version {
		return nil
	}
	raw, err := json.MarshalIndent(Marker{
		SchemaVersion: version,
		AppVersion:    r.appVersion,
		MigratedAt:    r.clock.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(r.dataDir, 0o755); err != nil {
		return &store.IOError{Op: "mkdir", Path: r.dataDir, Err: err}
	}
	if err := filestore.WriteAtomic(ctx, r.markerPath(), append(raw, '\n'), 0o644); err != nil {
		return &store.IOError{Op: "write", Path: r.markerPath(), Err: err}
	}
	return nil
}

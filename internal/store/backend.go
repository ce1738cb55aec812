package store

import "context"

// Backend reads and writes raw collection envelopes.
//
// Read returns ErrNotExist when nothing was ever written, a *DecodeError
// for undecodable data and an *IOError when the medium fails.
//
// Write replaces the whole collection when the stored version equals
// expectedVersion (0 for a collection that does not exist or cannot be
// decoded) and returns the new version. A mismatch yields a
// *StaleWriteError. Writes never leave a partially written collection.
type Backend interface {
	Read(ctx context.Context, kind Kind) (Envelope, error)
	Write(ctx context.Context, kind Kind, env Envelope, expectedVersion int64) (int64, error)
	Location(kind Kind) string
}

// Quarantiner preserves undecodable data before it gets overwritten.
type Quarantiner interface {
	Quarantine(ctx context.Context, kind Kind) (string, error)
}

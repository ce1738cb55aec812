package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Envelope is the on-disk shape of a collection. Field order is fixed by
// the struct so saved files diff cleanly.
type Envelope struct {
	Kind          Kind            `json:"kind"`
	SchemaVersion int             `json:"schemaVersion"`
	Version       int64           `json:"version"`
	SavedAt       time.Time       `json:"savedAt"`
	Items         json.RawMessage `json:"items"`
}

// EncodeEnvelope serializes env deterministically with two-space indent.
func EncodeEnvelope(env Envelope) ([]byte, error) {
	if len(env.Items) == 0 {
		env.Items = json.RawMessage("[]")
	}
	env.SavedAt = env.SavedAt.UTC()
	out, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

// DecodeEnvelope parses stored bytes. A bare JSON array is accepted as a
// legacy (schema 1, version 0) collection written before envelopes existed.
func DecodeEnvelope(kind Kind, raw []byte) (Envelope, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Envelope{}, errors.New("empty collection file")
	}

	if trimmed[0] == '[' {
		if !json.Valid(trimmed) {
			return Envelope{}, errors.New("invalid legacy collection array")
		}
		return Envelope{Kind: kind, SchemaVersion: 1, Items: json.RawMessage(trimmed)}, nil
	}

	var env Envelope
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	if err := dec.Decode(&env); err != nil {
		return Envelope{}, err
	}
	if env.Kind != "" && env.Kind != kind {
		return Envelope{}, fmt.Errorf("collection kind mismatch: file holds %q", env.Kind)
	}
	if env.SchemaVersion > SchemaVersion {
		return Envelope{}, fmt.Errorf("schema version %d is newer than supported %d", env.SchemaVersion, SchemaVersion)
	}
	if len(env.Items) == 0 || string(env.Items) == "null" {
		env.Items = json.RawMessage("[]")
	}
	if env.Items[0] != '[' {
		return Envelope{}, errors.New("collection items must be an array")
	}
	env.Kind = kind
	return env, nil
}

// Package file provides a JSON-file implementation of persist.Persister.
// The document mirrors the in-memory aggregate: four top-level mappings
// (ips, passwords, tokens, commands) suitable for round-trip reload.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/torwart-dev/torwart/pkg/credstore"
	"github.com/torwart-dev/torwart/pkg/debug"
	"github.com/torwart-dev/torwart/pkg/persist"
)

// Persister reads and writes the credential store as a single JSON file.
type Persister struct {
	path string
}

// Ensure Persister implements persist.Persister at compile time.
var _ persist.Persister = (*Persister)(nil)

// New creates a file persister for the given path.
func New(path string) *Persister {
	return &Persister{path: path}
}

// Load reads and deserializes the store file. A missing file or a file
// that fails to parse yields an empty aggregate; the parse failure is
// logged since it usually means the file was edited by hand.
func (p *Persister) Load(_ context.Context) (*credstore.Credentials, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("credential store file unreadable, starting empty",
				"path", p.path, "error", err)
		}
		return credstore.New(), nil
	}

	creds := credstore.New()
	if err := json.Unmarshal(data, creds); err != nil {
		slog.Warn("credential store file malformed, starting empty",
			"path", p.path, "error", err)
		return credstore.New(), nil
	}
	creds.Normalize()
	return creds, nil
}

// Save serializes the snapshot and overwrites the store file wholesale.
// The write goes to a temp file first and is moved into place, so a crash
// mid-write never leaves a truncated store behind.
func (p *Persister) Save(_ context.Context, creds *credstore.Credentials) error {
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding credential store: %w", err)
	}
	data = append(data, '\n')

	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, p.path); err != nil {
		return fmt.Errorf("replacing %s: %w", p.path, err)
	}
	debug.Log("persist", "store written", "path", p.path, "bytes", len(data))
	return nil
}

// Package persist defines the durability boundary of the credential store.
//
// Adapters (file, postgres) serialize the whole aggregate and overwrite the
// previous state wholesale; there are no partial writes. Load never fails
// construction: a missing or malformed source yields an empty aggregate so
// startup cannot be wedged by a bad store file.
package persist

import (
	"context"

	"github.com/torwart-dev/torwart/pkg/credstore"
)

// Persister loads and saves credential store snapshots.
type Persister interface {
	// Load reads the persisted state. A missing or unreadable source
	// yields an empty aggregate, not an error; errors are reserved for
	// genuinely broken backends (e.g. an unreachable database).
	Load(ctx context.Context) (*credstore.Credentials, error)

	// Save overwrites the persisted state with the given snapshot.
	Save(ctx context.Context, creds *credstore.Credentials) error
}

// Noop is the persister used when no durable path is configured. Load
// yields an empty aggregate and Save silently discards the snapshot.
type Noop struct{}

// Ensure Noop implements Persister at compile time.
var _ Persister = Noop{}

func (Noop) Load(context.Context) (*credstore.Credentials, error) {
	return credstore.New(), nil
}

func (Noop) Save(context.Context, *credstore.Credentials) error {
	return nil
}

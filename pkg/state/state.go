// Package state persists change-detection records between runs. Two backends are provided,
// a human-readable JSON file and SQLite. Both treat the record mapping as a whole: Load returns
// everything, Save replaces everything.
package state

import (
	"context"
	"fmt"

	"github.com/draftcoreservices-svg/immigration-intel-brief/pkg/domain"
)

// Backend names accepted by New
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Store loads and saves the full record mapping
type Store interface {
	Load(ctx context.Context) domain.Records
	Save(ctx context.Context, records domain.Records) error
	Close() error
}

// Params selects and configures a backend
type Params struct {
	Backend string // file (default) or sqlite
	Path    string // state file location for the file backend
	DSN     string // sqlite data source name
}

// New makes a store for the requested backend
func New(ctx context.Context, p Params) (Store, error) {
	switch p.Backend {
	case "", BackendFile:
		return NewFileStore(p.Path), nil
	case BackendSQLite:
		store, err := NewSQLiteStore(ctx, p.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite state: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown state backend %q", p.Backend)
	}
}

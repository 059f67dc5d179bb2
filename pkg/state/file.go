package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/go-pkgz/lgr"

	"github.com/draftcoreservices-svg/immigration-intel-brief/pkg/domain"
)

// DefaultPath is the state file location used when none is configured
const DefaultPath = ".cache/state.json"

// FileStore keeps records in a single JSON document {"items": {...}}
type FileStore struct {
	path string
}

type fileDocument struct {
	Items domain.Records `json:"items"`
}

// NewFileStore makes a store backed by the file at path
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultPath
	}
	return &FileStore{path: path}
}

// Load reads the state file. Missing, empty or unreadable files give an empty mapping.
func (s *FileStore) Load(_ context.Context) domain.Records {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		log.Printf("[DEBUG] no state file at %s, starting empty", s.path)
		return domain.Records{}
	}
	if err != nil {
		log.Printf("[WARN] can't read state file %s, starting empty: %v", s.path, err)
		return domain.Records{}
	}

	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		log.Printf("[WARN] can't parse state file %s, starting empty: %v", s.path, err)
		return domain.Records{}
	}
	if doc.Items == nil {
		return domain.Records{}
	}
	log.Printf("[DEBUG] loaded %d state records from %s", len(doc.Items), s.path)
	return doc.Items
}

// Save writes records to a temp file next to the target and renames it over the target
func (s *FileStore) Save(_ context.Context, records domain.Records) error {
	if records == nil {
		records = domain.Records{}
	}
	data, err := json.MarshalIndent(fileDocument{Items: records}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	log.Printf("[DEBUG] saved %d state records to %s", len(records), s.path)
	return nil
}

// Close is a no-op for the file backend
func (s *FileStore) Close() error { return nil }

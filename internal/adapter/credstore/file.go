// Package credstore is the local persistent store for the credential pair and
// the denormalized identity fields used to reconstruct a session offline.
package credstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adilkhan-s/bikerent-client/internal/domain/models"
)

// ErrNotFound means no credentials are persisted.
var ErrNotFound = errors.New("no stored credentials")

// FileStore keeps the whole credential record in a single JSON file.
// One record, one file: clearing removes everything at once, so a partial
// clear (tokens gone, identity flags left behind) cannot happen.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the persisted credential record.
func (s *FileStore) Load() (*models.Credentials, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	var creds models.Credentials
	if err := json.Unmarshal(raw, &creds); err != nil {
		return nil, fmt.Errorf("decode credentials: %w", err)
	}

	if creds.AccessToken == "" {
		return nil, ErrNotFound
	}

	return &creds, nil
}

// Save persists the record atomically: write to a temp file in the same
// directory, then rename over the target.
func (s *FileStore) Save(creds *models.Credentials) error {
	if creds == nil {
		return errors.New("nil credentials")
	}

	raw, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("chmod credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace credentials: %w", err)
	}

	return nil
}

// Clear removes the record. Idempotent.
func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}

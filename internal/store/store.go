// Package store is the persisted settings store: a file-backed key-value
// layer under the application data directory holding the merchant config,
// the product list, the activation session and the license history. It is
// the single writer for the one merchant profile a data directory serves;
// a mutex serializes writes because HTTP handlers share the process.
//
// Values are JSON files written atomically (temp file + rename). The
// activation session is additionally encrypted at rest, see crypto.go.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// ErrNotFound is returned by Get when no value exists under the key.
var ErrNotFound = errors.New("store: key not found")

// keyRe restricts keys to names that map safely onto filenames.
var keyRe = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// Store is a file-backed KV store rooted at a data directory.
type Store struct {
	dir    string
	logger *slog.Logger
	mu     sync.Mutex
}

// New opens (creating if needed) a store rooted at dir.
func New(dir string, logger *slog.Logger) (*Store, error) {
	if dir == "" {
		return nil, errors.New("store: data directory is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create data directory: %w", err)
	}
	return &Store{
		dir:    dir,
		logger: logger.With(slog.String("component", "store")),
	}, nil
}

// Get unmarshals the value stored under key into v. Returns ErrNotFound
// when the key has never been written.
func (s *Store) Get(key string, v any) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return fmt.Errorf("store: read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("store: decode %s: %w", key, err)
	}
	return nil
}

// Put marshals v and writes it under key atomically.
func (s *Store) Put(key string, v any) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeAtomic(path, data); err != nil {
		return fmt.Errorf("store: write %s: %w", key, err)
	}
	s.logger.Debug("value persisted", slog.String("key", key), slog.Int("size_bytes", len(data)))
	return nil
}

// Delete removes the value under key. Deleting an absent key is a no-op.
func (s *Store) Delete(key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("store: delete %s: %w", key, err)
	}
	return nil
}

// Keys lists every stored key in sorted order.
func (s *Store) Keys() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("store: list keys: %w", err)
	}
	var keys []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		keys = append(keys, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) path(key string) (string, error) {
	if !keyRe.MatchString(key) {
		return "", fmt.Errorf("store: invalid key %q", key)
	}
	return filepath.Join(s.dir, key+".json"), nil
}

// writeAtomic writes via a temp file and rename so readers never observe a
// partially written value.
func (s *Store) writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

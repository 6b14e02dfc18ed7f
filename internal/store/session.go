package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"zapcatalog/pkg/contracts/domain"
)

// Well-known keys of the settings store.
const (
	KeyConfig   = "config"
	KeyProducts = "products"
	KeyHistory  = "license_history"
)

// sessionFile holds the encrypted activation record, outside the plain JSON
// KV namespace because its content is sealed.
const sessionFile = "session.dat"

// SaveSession seals the activation record and persists it. Called once on
// successful activation.
func (s *Store) SaveSession(passphrase string, session domain.ActivationSession) error {
	plaintext, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("store: encode session: %w", err)
	}
	sealed, err := seal(passphrase, plaintext)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeAtomic(filepath.Join(s.dir, sessionFile), sealed); err != nil {
		return fmt.Errorf("store: write session: %w", err)
	}
	s.logger.Info("activation session persisted", slog.String("email", session.Email))
	return nil
}

// LoadSession reads and unseals the activation record. Returns ErrNotFound
// when no activation has happened yet; a damaged or wrongly-keyed record
// surfaces as ErrSealedCorrupted so the caller can force re-activation.
func (s *Store) LoadSession(passphrase string) (domain.ActivationSession, error) {
	var session domain.ActivationSession

	sealed, err := os.ReadFile(filepath.Join(s.dir, sessionFile))
	if err != nil {
		if os.IsNotExist(err) {
			return session, fmt.Errorf("%w: activation session", ErrNotFound)
		}
		return session, fmt.Errorf("store: read session: %w", err)
	}

	plaintext, err := open(passphrase, sealed)
	if err != nil {
		return session, err
	}
	if err := json.Unmarshal(plaintext, &session); err != nil {
		return session, ErrSealedCorrupted
	}
	return session, nil
}

// ClearSession removes the activation record. This is the logout teardown;
// clearing an absent session is a no-op.
func (s *Store) ClearSession() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(filepath.Join(s.dir, sessionFile)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("store: clear session: %w", err)
	}
	s.logger.Info("activation session cleared")
	return nil
}

// AppendHistory adds a record to the administrative license audit log.
func (s *Store) AppendHistory(record domain.LicenseHistoryRecord) error {
	records, err := s.History()
	if err != nil {
		return err
	}
	if record.IssuedAt.IsZero() {
		record.IssuedAt = time.Now().UTC()
	}
	records = append(records, record)
	return s.Put(KeyHistory, records)
}

// History returns every issued-license record, oldest first. An absent log
// is an empty history, not an error.
func (s *Store) History() ([]domain.LicenseHistoryRecord, error) {
	var records []domain.LicenseHistoryRecord
	if err := s.Get(KeyHistory, &records); err != nil {
		if errors.Is(err, ErrNotFound) {
			return []domain.LicenseHistoryRecord{}, nil
		}
		return nil, err
	}
	return records, nil
}

// SaveCatalog persists config and product list as one logical update.
func (s *Store) SaveCatalog(data domain.StoreData) error {
	if err := s.Put(KeyConfig, data.Config); err != nil {
		return err
	}
	return s.Put(KeyProducts, data.Products)
}

// LoadCatalog assembles the full StoreData from the persisted config and
// products. Missing pieces come back as zero values so a fresh profile
// starts from an empty catalog.
func (s *Store) LoadCatalog() (domain.StoreData, error) {
	var data domain.StoreData

	if err := s.Get(KeyConfig, &data.Config); err != nil && !errors.Is(err, ErrNotFound) {
		return data, err
	}
	if err := s.Get(KeyProducts, &data.Products); err != nil && !errors.Is(err, ErrNotFound) {
		return data, err
	}
	if data.Products == nil {
		data.Products = []domain.Product{}
	}
	return data, nil
}

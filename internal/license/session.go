package license

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"zapcatalog/internal/store"
	"zapcatalog/pkg/contracts/domain"
)

// ErrNotActivated is returned by session operations when no activation
// record exists.
var ErrNotActivated = errors.New("license: no activation on this profile")

// SessionManager owns the explicit activation session: read once from the
// store at startup, replaced on activation, cleared on logout. It replaces
// ambient license lookups scattered through call sites; handlers hold the
// manager and re-verify on every sensitive entry point rather than caching
// validity.
type SessionManager struct {
	authority  *Authority
	store      *store.Store
	passphrase string
	logger     *slog.Logger

	mu      sync.RWMutex
	current *domain.ActivationSession
}

// NewSessionManager loads any persisted activation record. A corrupted
// record is discarded (the merchant re-activates) rather than failing
// startup.
func NewSessionManager(authority *Authority, st *store.Store, passphrase string, logger *slog.Logger) (*SessionManager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	m := &SessionManager{
		authority:  authority,
		store:      st,
		passphrase: passphrase,
		logger:     logger.With(slog.String("component", "session_manager")),
	}

	session, err := st.LoadSession(passphrase)
	switch {
	case err == nil:
		m.current = &session
		m.logger.Info("activation session loaded", slog.String("email", session.Email))
	case errors.Is(err, store.ErrNotFound):
		m.logger.Info("no activation session on this profile")
	case errors.Is(err, store.ErrSealedCorrupted):
		m.logger.Warn("activation session corrupted, discarding")
		if err := st.ClearSession(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("license: load session: %w", err)
	}
	return m, nil
}

// Activate verifies the key against the email and, when valid, persists the
// session. Invalid and expired keys come back as the VerifyResult without a
// session being written.
func (m *SessionManager) Activate(email, token string) (VerifyResult, error) {
	result := m.authority.Verify(email, token)
	if !result.Valid {
		return result, nil
	}

	session := domain.ActivationSession{
		Email:       email,
		Token:       token,
		ActivatedAt: time.Now().UTC(),
	}
	if err := m.store.SaveSession(m.passphrase, session); err != nil {
		return result, err
	}

	m.mu.Lock()
	m.current = &session
	m.mu.Unlock()
	return result, nil
}

// Current returns the activation session, if any.
func (m *SessionManager) Current() (domain.ActivationSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return domain.ActivationSession{}, false
	}
	return *m.current, true
}

// Status re-verifies the session key against the wall clock. Callers invoke
// this on every sensitive entry point: a session that was valid an hour ago
// may have expired since.
func (m *SessionManager) Status() (domain.LicenseStatus, VerifyResult) {
	session, ok := m.Current()
	if !ok {
		return domain.LicenseStatusNotActivated, VerifyResult{}
	}
	result := m.authority.Verify(session.Email, session.Token)
	switch {
	case result.Valid:
		return domain.LicenseStatusActive, result
	case result.Expired:
		return domain.LicenseStatusExpired, result
	default:
		return domain.LicenseStatusInvalid, result
	}
}

// Logout clears the persisted record and the in-memory session.
func (m *SessionManager) Logout() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return ErrNotActivated
	}
	if err := m.store.ClearSession(); err != nil {
		return err
	}
	m.current = nil
	return nil
}

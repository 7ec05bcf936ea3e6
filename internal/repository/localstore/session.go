package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/arklim/sentinel-identity/internal/core/domain"
)

// SessionStore implements port.SessionStore on the file store. A session that
// fails to decode is discarded rather than surfaced: on a shared device a
// corrupt projection must behave exactly like an absent one.
type SessionStore struct {
	store *Store
}

// NewSessionStore wires a session store backed by the store.
func NewSessionStore(store *Store) *SessionStore {
	return &SessionStore{store: store}
}

// Load returns the persisted session projection, or nil when absent.
func (s *SessionStore) Load(_ context.Context) (*domain.Session, error) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	raw, err := os.ReadFile(s.store.path(sessionFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(raw, &session); err != nil || session.AccountID == "" {
		s.store.log.Warn("discarding corrupt session record", zap.Error(err))
		if removeErr := os.Remove(s.store.path(sessionFile)); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			return nil, fmt.Errorf("discard corrupt session: %w", removeErr)
		}
		return nil, nil
	}

	if session.History == nil {
		session.History = []domain.VerificationResult{}
	}
	if session.DeviceHistory == nil {
		session.DeviceHistory = []domain.DeviceFingerprint{}
	}

	return &session, nil
}

// Save overwrites the session projection.
func (s *SessionStore) Save(_ context.Context, session domain.Session) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	return s.store.writeRecord(sessionFile, session)
}

// Clear removes the session projection entirely.
func (s *SessionStore) Clear(_ context.Context) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	if err := os.Remove(s.store.path(sessionFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear session: %w", err)
	}

	return nil
}

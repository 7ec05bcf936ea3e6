package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/arklim/sentinel-identity/internal/core/domain"
	"github.com/arklim/sentinel-identity/internal/core/port"
	"github.com/arklim/sentinel-identity/internal/repository"
)

// ErrNoSession indicates no account is currently authenticated.
var ErrNoSession = errors.New("no active session")

// SessionService owns the single "currently authenticated account"
// projection. The projection is always derived from the account table; after
// any account mutation the caller refreshes it so UI reads never see stale
// verification or device data.
type SessionService struct {
	accounts port.AccountRepository
	sessions port.SessionStore
}

// NewSessionService constructs a session service.
func NewSessionService(accounts port.AccountRepository, sessions port.SessionStore) *SessionService {
	return &SessionService{accounts: accounts, sessions: sessions}
}

// Bootstrap loads the persisted session projection. Absent and corrupt
// sessions both yield (nil, nil); the store discards corrupt records itself.
func (s *SessionService) Bootstrap(ctx context.Context) (*domain.Session, error) {
	session, err := s.sessions.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return session, nil
}

// Login replaces the session projection with the supplied account view.
func (s *SessionService) Login(ctx context.Context, session domain.Session) error {
	if session.AccountID == "" {
		return fmt.Errorf("session account id is required")
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Logout discards the session entirely. Nothing of the projection survives;
// on a shared device a logged-out session must leave no PII behind.
func (s *SessionService) Logout(ctx context.Context) error {
	if err := s.sessions.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Refresh re-reads the account record and overwrites the projection. It is a
// no-op when the persisted session belongs to a different account.
func (s *SessionService) Refresh(ctx context.Context, accountID string) (*domain.Session, error) {
	current, err := s.sessions.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if current == nil || current.AccountID != accountID {
		return current, nil
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// The account vanished underneath the session; drop the session.
			if clearErr := s.sessions.Clear(ctx); clearErr != nil {
				return nil, fmt.Errorf("clear orphaned session: %w", clearErr)
			}
			return nil, nil
		}
		return nil, fmt.Errorf("reload account: %w", err)
	}

	session := domain.NewSession(*account)
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	return &session, nil
}

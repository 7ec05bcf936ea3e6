package port

import (
	"context"

	"github.com/arklim/sentinel-identity/internal/core/domain"
)

// AccountRepository exposes persistence behavior for accounts. Mutating
// operations read, modify and write the whole table and must serialize per
// account to avoid lost updates.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	// Mutate applies fn to the account with the given id inside the store's
	// critical section, so composite read-modify-write updates cannot race.
	Mutate(ctx context.Context, id string, fn func(*domain.Account) error) (*domain.Account, error)
}

// SessionStore persists the single session projection.
type SessionStore interface {
	Load(ctx context.Context) (*domain.Session, error)
	Save(ctx context.Context, session domain.Session) error
	Clear(ctx context.Context) error
}

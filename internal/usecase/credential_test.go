package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/arklim/sentinel-identity/internal/core/domain"
	"github.com/arklim/sentinel-identity/internal/repository"
)

// stubAccountRepo is an in-memory port.AccountRepository shared by the tests
// in this package.
type stubAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
}

func newStubAccountRepo() *stubAccountRepo {
	return &stubAccountRepo{accounts: make(map[string]*domain.Account)}
}

func (r *stubAccountRepo) Create(_ context.Context, account domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.accounts {
		if existing.Email == account.Email {
			return repository.ErrDuplicate
		}
	}
	stored := account
	r.accounts[account.ID] = &stored
	return nil
}

func (r *stubAccountRepo) GetByID(_ context.Context, id string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *account
	return &copied, nil
}

func (r *stubAccountRepo) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, account := range r.accounts {
		if account.Email == email {
			copied := *account
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubAccountRepo) Mutate(_ context.Context, id string, fn func(*domain.Account) error) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if err := fn(account); err != nil {
		return nil, err
	}
	copied := *account
	return &copied, nil
}

// stubSessionStore is an in-memory port.SessionStore.
type stubSessionStore struct {
	mu      sync.Mutex
	session *domain.Session
}

func (s *stubSessionStore) Load(context.Context) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, nil
	}
	copied := *s.session
	return &copied, nil
}

func (s *stubSessionStore) Save(_ context.Context, session domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = &session
	return nil
}

func (s *stubSessionStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
	return nil
}

func newPermissiveCredentialService(t *testing.T, repo *stubAccountRepo) *CredentialService {
	t.Helper()
	svc, err := NewCredentialService(repo, domain.DigestAlgoArgon2id, nil)
	if err != nil {
		t.Fatalf("NewCredentialService failed: %v", err)
	}
	return svc
}

func TestCredentialService_RegisterAndAuthenticate(t *testing.T) {
	repo := newStubAccountRepo()
	svc := newPermissiveCredentialService(t, repo)
	ctx := context.Background()

	session, err := svc.Register(ctx, "Alice", "alice@domain.example", "secret1")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if session.AccountID == "" {
		t.Fatalf("expected generated account id")
	}
	if session.IsVerified {
		t.Fatalf("new account must start unverified")
	}
	if len(session.History) != 0 || len(session.DeviceHistory) != 0 {
		t.Fatalf("new account must have empty histories: %+v", session)
	}

	stored, err := repo.GetByID(ctx, session.AccountID)
	if err != nil {
		t.Fatalf("stored account not found: %v", err)
	}
	if stored.PasswordDigest == "secret1" {
		t.Fatalf("password stored in the clear")
	}

	authed, err := svc.Authenticate(ctx, "alice@domain.example", "secret1")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if authed.AccountID != session.AccountID {
		t.Fatalf("authenticated wrong account: %s", authed.AccountID)
	}
}

func TestCredentialService_RegisterDuplicateEmail(t *testing.T) {
	repo := newStubAccountRepo()
	svc := newPermissiveCredentialService(t, repo)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "Alice", "alice@domain.example", "secret1"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	_, err := svc.Register(ctx, "Other Alice", "alice@domain.example", "secret2")
	if !errors.Is(err, ErrDuplicateAccount) {
		t.Fatalf("expected ErrDuplicateAccount, got %v", err)
	}
}

func TestCredentialService_AuthenticateRejections(t *testing.T) {
	repo := newStubAccountRepo()
	svc := newPermissiveCredentialService(t, repo)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "Alice", "alice@domain.example", "secret1"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	// Wrong password and unknown email collapse into the same error.
	if _, err := svc.Authenticate(ctx, "alice@domain.example", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "nobody@domain.example", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestCredentialService_AuthenticateHonorsStoredDigestAlgo(t *testing.T) {
	repo := newStubAccountRepo()
	legacySvc, err := NewCredentialService(repo, domain.DigestAlgoLegacy, nil)
	if err != nil {
		t.Fatalf("NewCredentialService failed: %v", err)
	}
	ctx := context.Background()

	session, err := legacySvc.Register(ctx, "Old Timer", "old@domain.example", "secret1")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	// A service defaulting to argon2 must still verify the legacy record.
	svc := newPermissiveCredentialService(t, repo)
	authed, err := svc.Authenticate(ctx, "old@domain.example", "secret1")
	if err != nil {
		t.Fatalf("Authenticate against legacy digest failed: %v", err)
	}
	if authed.AccountID != session.AccountID {
		t.Fatalf("authenticated wrong account")
	}
}

func TestCredentialService_AppendVerificationResult(t *testing.T) {
	repo := newStubAccountRepo()
	svc := newPermissiveCredentialService(t, repo)
	ctx := context.Background()

	session, err := svc.Register(ctx, "Alice", "alice@domain.example", "secret1")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	low := domain.VerificationResult{ID: "res-1", RiskLevel: domain.RiskLevelLow}
	if err := svc.AppendVerificationResult(ctx, session.AccountID, low); err != nil {
		t.Fatalf("AppendVerificationResult failed: %v", err)
	}

	high := domain.VerificationResult{ID: "res-2", RiskLevel: domain.RiskLevelHigh}
	if err := svc.AppendVerificationResult(ctx, session.AccountID, high); err != nil {
		t.Fatalf("AppendVerificationResult failed: %v", err)
	}

	stored, err := repo.GetByID(ctx, session.AccountID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !stored.IsVerified {
		t.Fatalf("verified flag must survive a later high-risk result")
	}
	if len(stored.History) != 2 || stored.History[0].ID != "res-2" {
		t.Fatalf("history must be newest-first: %+v", stored.History)
	}
	if stored.LatestResult == nil || stored.LatestResult.ID != "res-2" {
		t.Fatalf("latest result not updated")
	}
}

func TestCredentialService_RegisterEnforcesPasswordPolicy(t *testing.T) {
	repo := newStubAccountRepo()
	svc, err := NewCredentialService(repo, domain.DigestAlgoArgon2id, rejectAllValidator{})
	if err != nil {
		t.Fatalf("NewCredentialService failed: %v", err)
	}

	_, err = svc.Register(context.Background(), "Alice", "alice@domain.example", "weak")
	if !errors.Is(err, ErrPasswordPolicyViolation) {
		t.Fatalf("expected ErrPasswordPolicyViolation, got %v", err)
	}
}

type rejectAllValidator struct{}

func (rejectAllValidator) Validate(string) error { return errors.New("too weak") }

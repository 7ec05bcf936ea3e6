package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"

	"github.com/arklim/sentinel-identity/internal/core/domain"
	"github.com/arklim/sentinel-identity/internal/core/port"
	"github.com/arklim/sentinel-identity/internal/infra/security"
	"github.com/arklim/sentinel-identity/internal/repository"
)

var (
	// ErrDuplicateAccount indicates an account with the same email already exists.
	ErrDuplicateAccount = errors.New("account already exists")
	// ErrInvalidCredentials indicates the provided email or password are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrPasswordPolicyViolation indicates the password does not satisfy the registration policy.
	ErrPasswordPolicyViolation = errors.New("password does not meet complexity requirements")
)

// CredentialService is the sole authority for durable account records: it
// owns registration, authentication, and the two history merges.
type CredentialService struct {
	accounts  port.AccountRepository
	hashers   map[domain.DigestAlgo]port.PasswordHasher
	algo      domain.DigestAlgo
	validator port.PasswordPolicyValidator
}

// NewCredentialService constructs a credential service. algo selects the
// digest for new accounts; stored records always verify against the algo
// they were written with. A nil validator disables the password policy.
func NewCredentialService(accounts port.AccountRepository, algo domain.DigestAlgo, validator port.PasswordPolicyValidator) (*CredentialService, error) {
	hashers := map[domain.DigestAlgo]port.PasswordHasher{
		domain.DigestAlgoArgon2id: security.Argon2Hasher{},
		domain.DigestAlgoLegacy:   security.LegacyHasher{},
	}
	if _, ok := hashers[algo]; !ok {
		return nil, fmt.Errorf("unsupported digest algo %q", algo)
	}
	if validator == nil {
		validator = security.PermissivePasswordValidator()
	}
	return &CredentialService{
		accounts:  accounts,
		hashers:   hashers,
		algo:      algo,
		validator: validator,
	}, nil
}

// Register creates a new account and returns its sanitized projection. It
// never starts a session.
func (s *CredentialService) Register(ctx context.Context, name, email, password string) (domain.Session, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" {
		return domain.Session{}, fmt.Errorf("name is required")
	}
	if email == "" {
		return domain.Session{}, fmt.Errorf("email is required")
	}
	if password == "" {
		return domain.Session{}, fmt.Errorf("password is required")
	}

	if err := s.validator.Validate(password); err != nil {
		return domain.Session{}, fmt.Errorf("%w: %v", ErrPasswordPolicyViolation, err)
	}

	digest, err := s.hashers[s.algo].Hash(password)
	if err != nil {
		return domain.Session{}, fmt.Errorf("derive credential digest: %w", err)
	}

	account := domain.Account{
		ID:             uuid.NewString(),
		Name:           name,
		Email:          email,
		PasswordDigest: digest,
		DigestAlgo:     s.algo,
		History:        []domain.VerificationResult{},
		DeviceHistory:  []domain.DeviceFingerprint{},
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return domain.Session{}, ErrDuplicateAccount
		}
		return domain.Session{}, fmt.Errorf("create account: %w", err)
	}

	return domain.NewSession(account), nil
}

// Authenticate validates credentials and returns the account's sanitized
// projection. Unknown email and wrong password yield the same error so the
// response does not reveal which accounts exist.
func (s *CredentialService) Authenticate(ctx context.Context, email, password string) (domain.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return domain.Session{}, ErrInvalidCredentials
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Session{}, ErrInvalidCredentials
		}
		return domain.Session{}, fmt.Errorf("lookup account: %w", err)
	}

	hasher, ok := s.hashers[account.DigestAlgo]
	if !ok {
		return domain.Session{}, fmt.Errorf("account uses unsupported digest algo %q", account.DigestAlgo)
	}

	match, err := hasher.Verify(password, account.PasswordDigest)
	if err != nil {
		return domain.Session{}, fmt.Errorf("verify credential: %w", err)
	}
	if !match {
		return domain.Session{}, ErrInvalidCredentials
	}

	return domain.NewSession(*account), nil
}

// AppendVerificationResult records a completed analysis on the account.
func (s *CredentialService) AppendVerificationResult(ctx context.Context, accountID string, result domain.VerificationResult) error {
	_, err := s.accounts.Mutate(ctx, accountID, func(account *domain.Account) error {
		account.ApplyVerificationResult(result)
		return nil
	})
	if err != nil {
		return fmt.Errorf("append verification result: %w", err)
	}
	return nil
}

// MergeDeviceFingerprint folds a collected fingerprint into the account's
// device history under the dedup/retention policy.
func (s *CredentialService) MergeDeviceFingerprint(ctx context.Context, accountID string, fp domain.DeviceFingerprint) error {
	_, err := s.accounts.Mutate(ctx, accountID, func(account *domain.Account) error {
		account.MergeDeviceFingerprint(fp)
		return nil
	})
	if err != nil {
		return fmt.Errorf("merge device fingerprint: %w", err)
	}
	return nil
}

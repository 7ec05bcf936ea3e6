package port

import "context"

// PasswordHasher derives and verifies credential digests.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password string, encoded string) (bool, error)
}

// PasswordPolicyValidator enforces password strength requirements at
// registration time.
type PasswordPolicyValidator interface {
	Validate(password string) error
}

// IPResolver resolves the device's public IP address.
type IPResolver interface {
	PublicIP(ctx context.Context) (string, error)
}

package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"

	"golang.org/x/crypto/argon2"
)

const (
	saltLength          = 16
	argonTime    uint32 = 1
	argonMemory  uint32 = 64 * 1024
	argonThreads uint8  = 4
	argonKeyLen  uint32 = 32
)

// Argon2Hasher derives salted Argon2id digests. This is the hasher new
// accounts get; the stored string is encoded as "salt:hash" with both
// components base64-encoded.
type Argon2Hasher struct{}

// Hash generates an Argon2id digest for the provided password.
func (Argon2Hasher) Hash(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	encodedSalt := base64.StdEncoding.EncodeToString(salt)
	encodedHash := base64.StdEncoding.EncodeToString(hash)

	return fmt.Sprintf("%s:%s", encodedSalt, encodedHash), nil
}

// Verify compares the provided password against a stored Argon2id digest.
func (Argon2Hasher) Verify(password, encoded string) (bool, error) {
	if password == "" || encoded == "" {
		return false, nil
	}

	parts := strings.Split(encoded, ":")
	if len(parts) != 2 {
		return false, fmt.Errorf("invalid password digest format")
	}

	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false, fmt.Errorf("decode salt: %w", err)
	}

	storedHash, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false, fmt.Errorf("decode hash: %w", err)
	}

	computed := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, uint32(len(storedHash)))

	if subtle.ConstantTimeCompare(computed, storedHash) == 1 {
		return true, nil
	}

	return false, nil
}

// LegacyHasher reproduces the original client's unsalted 32-bit string hash
// so tables written by it remain verifiable. It is NOT a password hash in any
// meaningful sense and must never be used for new deployments.
type LegacyHasher struct{}

// Hash derives the legacy digest: a 32-bit shift/add accumulator over the
// password's UTF-16 code units, rendered as lowercase hex (sign included).
func (LegacyHasher) Hash(password string) (string, error) {
	return legacyDigest(password), nil
}

// Verify recomputes the legacy digest and compares exactly.
func (LegacyHasher) Verify(password, encoded string) (bool, error) {
	if encoded == "" {
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(legacyDigest(password)), []byte(encoded)) == 1, nil
}

func legacyDigest(password string) string {
	var hash int32
	for _, unit := range utf16.Encode([]rune(password)) {
		hash = (hash << 5) - hash + int32(unit)
	}

	v := int64(hash)
	if v < 0 {
		return "-" + strconv.FormatInt(-v, 16)
	}
	return strconv.FormatInt(v, 16)
}

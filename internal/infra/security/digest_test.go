package security

import (
	"strings"
	"testing"
)

func TestLegacyDigest_KnownVectors(t *testing.T) {
	cases := []struct {
		password string
		want     string
	}{
		{"", "0"},
		{"a", "61"},
		{"ab", "c21"},
		{"hello", "5e918d2"},
		// Accumulator overflow lands exactly on the 32-bit minimum.
		{"polygenelubricants", "-80000000"},
	}

	for _, tc := range cases {
		if got := legacyDigest(tc.password); got != tc.want {
			t.Fatalf("legacyDigest(%q) = %q, want %q", tc.password, got, tc.want)
		}
	}
}

func TestLegacyHasher_Verify(t *testing.T) {
	hasher := LegacyHasher{}

	digest, err := hasher.Hash("secret1")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	match, err := hasher.Verify("secret1", digest)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !match {
		t.Fatalf("digest must verify against its own password")
	}

	match, err = hasher.Verify("secret2", digest)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if match {
		t.Fatalf("wrong password must not verify")
	}

	if match, _ := hasher.Verify("anything", ""); match {
		t.Fatalf("empty stored digest must never verify")
	}
}

func TestArgon2Hasher_RoundTrip(t *testing.T) {
	hasher := Argon2Hasher{}

	digest, err := hasher.Hash("secret1")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if !strings.Contains(digest, ":") {
		t.Fatalf("digest must be salt:hash encoded, got %q", digest)
	}
	if strings.Contains(digest, "secret1") {
		t.Fatalf("digest leaks the password")
	}

	match, err := hasher.Verify("secret1", digest)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !match {
		t.Fatalf("digest must verify against its own password")
	}

	match, err = hasher.Verify("secret2", digest)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if match {
		t.Fatalf("wrong password must not verify")
	}
}

func TestArgon2Hasher_SaltsAreUnique(t *testing.T) {
	hasher := Argon2Hasher{}

	first, err := hasher.Hash("secret1")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	second, err := hasher.Hash("secret1")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if first == second {
		t.Fatalf("two digests of the same password must differ")
	}
}

func TestArgon2Hasher_RejectsMalformedDigest(t *testing.T) {
	hasher := Argon2Hasher{}

	if _, err := hasher.Verify("secret1", "not-a-digest"); err == nil {
		t.Fatalf("expected error for digest without separator")
	}
	if _, err := hasher.Verify("secret1", "!!!:!!!"); err == nil {
		t.Fatalf("expected error for undecodable digest")
	}

	match, err := hasher.Verify("", "whatever:whatever")
	if err != nil || match {
		t.Fatalf("empty password must short-circuit to no match, got match=%v err=%v", match, err)
	}
}

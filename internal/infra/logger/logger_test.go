package logger

import (
	"context"
	"testing"
)

func TestMaskEmail(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"john.doe@example.com", "joh***@example.com"},
		{"ab@x.example", "ab***@x.example"},
		{"not-an-email", "***"},
		{"", ""},
	}

	for _, tc := range cases {
		if got := MaskEmail(tc.in); got != tc.want {
			t.Fatalf("MaskEmail(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMaskIP(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"192.168.1.100", "192.168.*.*"},
		{"2001:db8:85a3:8d3:1319:8a2e:370:7348", "2001:db8:85a3:8d3:*:*:*:*"},
		{"Hidden / Protected", "***"},
		{"", ""},
	}

	for _, tc := range cases {
		if got := MaskIP(tc.in); got != tc.want {
			t.Fatalf("MaskIP(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMaskString(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"secret123", "se***23"},
		{"abcd", "***"},
		{"", ""},
	}

	for _, tc := range cases {
		if got := MaskString(tc.in); got != tc.want {
			t.Fatalf("MaskString(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestWithContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), RequestIDKey{}, "req-1")

	if got := requestIDFromContext(ctx); got != "req-1" {
		t.Fatalf("requestIDFromContext = %q, want %q", got, "req-1")
	}
	if got := requestIDFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty request id, got %q", got)
	}

	// Usable before and after New initializes the singleton.
	if WithContext(ctx) == nil {
		t.Fatalf("WithContext returned nil logger")
	}

	log, err := New("test")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if log == nil || WithContext(ctx) == nil {
		t.Fatalf("singleton logger not usable")
	}
}

package oracle

import (
	"context"
	"testing"
)

func TestUnavailable_AlwaysErrors(t *testing.T) {
	if _, err := (Unavailable{}).Analyze(context.Background(), "doc", "selfie"); err == nil {
		t.Fatalf("expected error from unavailable oracle")
	}
}

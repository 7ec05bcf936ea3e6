package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/arklim/sentinel-identity/internal/core/domain"
)

type stubAssistantOracle struct {
	reply string
	err   error

	gotMessage string
	gotContext string
	gotHistory []domain.ChatMessage
}

func (o *stubAssistantOracle) Reply(_ context.Context, history []domain.ChatMessage, message, contextHint string) (string, error) {
	o.gotHistory = history
	o.gotMessage = message
	o.gotContext = contextHint
	return o.reply, o.err
}

func TestAssistantService_ForwardsConversation(t *testing.T) {
	oracle := &stubAssistantOracle{reply: "Upload a clear photo of your ID."}
	svc := NewAssistantService(oracle, nil)

	history := []domain.ChatMessage{{Role: domain.ChatRoleUser, Text: "hi"}}
	reply := svc.Send(context.Background(), history, "what now?", "User is about to upload their ID document.")
	if reply != "Upload a clear photo of your ID." {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if oracle.gotMessage != "what now?" || len(oracle.gotHistory) != 1 {
		t.Fatalf("conversation not forwarded: message=%q history=%d", oracle.gotMessage, len(oracle.gotHistory))
	}
	if oracle.gotContext == "" {
		t.Fatalf("context hint not forwarded")
	}
}

func TestAssistantService_FallbackOnMissingOracle(t *testing.T) {
	svc := NewAssistantService(nil, nil)

	if reply := svc.Send(context.Background(), nil, "hello", ""); reply != assistantFallbackReply {
		t.Fatalf("unexpected reply: %q", reply)
	}
}

func TestAssistantService_FallbackOnOracleError(t *testing.T) {
	svc := NewAssistantService(&stubAssistantOracle{err: errors.New("connection reset")}, nil)

	if reply := svc.Send(context.Background(), nil, "hello", ""); reply != assistantFallbackReply {
		t.Fatalf("unexpected reply: %q", reply)
	}
}

func TestAssistantService_FallbackOnEmptyReply(t *testing.T) {
	svc := NewAssistantService(&stubAssistantOracle{}, nil)

	if reply := svc.Send(context.Background(), nil, "hello", ""); reply != assistantEmptyReply {
		t.Fatalf("unexpected reply: %q", reply)
	}
}

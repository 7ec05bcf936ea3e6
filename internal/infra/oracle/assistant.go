package oracle

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/arklim/sentinel-identity/internal/core/domain"
)

const assistantInstruction = `You are IDENTITY AGENT, a helpful AI support assistant for an Identity Verification (KYC) app.

Guidelines:
- Keep answers short, friendly, and professional.
- If the user has camera issues, suggest checking browser permissions or lighting.
- If the user asks about security, assure them data is encrypted locally.
- Do not make up fake IDs.`

// AssistantClient implements port.AssistantOracle against the Gemini API.
type AssistantClient struct {
	client *genai.Client
	model  string
}

// NewAssistantClient constructs the assistant oracle adapter.
func NewAssistantClient(ctx context.Context, apiKey, model string) (*AssistantClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("assistant oracle API key is required")
	}
	if model == "" {
		model = "gemini-3-flash-preview"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &AssistantClient{client: client, model: model}, nil
}

// Reply sends the conversation plus context to the model and returns the
// reply text.
func (c *AssistantClient) Reply(ctx context.Context, history []domain.ChatMessage, message, contextHint string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Current User Context: %s\n\nChat History:\n", contextHint)
	for _, msg := range history {
		fmt.Fprintf(&b, "%s: %s\n", msg.Role, msg.Text)
	}
	fmt.Fprintf(&b, "\nUser: %s", message)

	contents := []*genai.Content{
		genai.NewContentFromText(b.String(), genai.RoleUser),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(assistantInstruction, genai.RoleUser),
	})
	if err != nil {
		return "", fmt.Errorf("generate reply: %w", err)
	}

	return strings.TrimSpace(resp.Text()), nil
}

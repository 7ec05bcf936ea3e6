package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/arklim/sentinel-identity/internal/core/domain"
)

const analysisPrompt = `You are an expert Forensic Document Examiner and Biometric AI.

**TASK**: Validate the Identity Document (Input 1) and compare it with the Selfie (Input 2).

**STEP 1: STRICT DOCUMENT STRUCTURE VALIDATION**
Analyze Input 1. It MUST be a valid Government ID.
Check against strict layout rules for these supported types:

1. **Aadhaar Card (India)**:
   - Must show "Government of India".
   - Look for the National Emblem (Ashoka Pillar).
   - Format: 12-digit number (XXXX XXXX XXXX).
   - Check for "Aadhaar" logo.

2. **PAN Card (India)**:
   - Header: "INCOME TAX DEPARTMENT".
   - Look for the ITD Hologram/Logo.
   - Format: 10-character alphanumeric (e.g., ABCDE1234F).

3. **Voter ID (India - EPIC)**:
   - Header: "ELECTION COMMISSION OF INDIA".
   - Look for the 10-digit alphanumeric EPIC number.

4. **Passport / Driving License**:
   - Must follow standard International (ICAO) or State layouts.
   - Look for State Emblems and official seals.

**CRITICAL FAILURE CONDITIONS (Score = 100, Risk = HIGH)**:
- **Invalid Type**: If the image is a Credit Card, Student ID, Gym Card, or random photo -> **REJECT IMMEDIATELY**.
- **Bad Structure**: Missing headers, wrong fonts, alignment errors (e.g., name floating outside text fields).
- **Tampering**: Text looks "pasted on" (digital artifacts), mismatched background noise.

**STEP 2: BIOMETRIC MATCHING (If Document is Valid)**
- Compare facial landmarks (eyes, nose, jaw) between ID and Selfie.
- **Tolerance**: Ignore hair, glasses, makeup, and aging. Focus on bone structure.
- **Liveness**: Ensure Selfie is NOT a photo of a screen (Moire patterns) or a printout.

**OUTPUT INSTRUCTIONS**:
- If Document is invalid, set 'documentType' to 'Unknown' or 'Invalid', riskLevel to 'High', and riskScore to 100.
- In 'fraudChecks', explicitly include: "Document Type Validation", "Structure & Layout Check", "Hologram/Emblem Detection".

Return strict JSON.`

// analysisSchema constrains the model to the VerificationResult wire shape.
func analysisSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"riskLevel": {Type: genai.TypeString, Enum: []string{"Low", "Medium", "High"}},
			"riskScore": {Type: genai.TypeNumber, Description: "A score from 0 to 100. 100 = Fraud/Invalid ID."},
			"faceMatchScore": {Type: genai.TypeNumber, Description: "Similarity score (0-100). Tolerant of age/style changes."},
			"extractedData": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"fullName":       {Type: genai.TypeString},
					"documentNumber": {Type: genai.TypeString},
					"dateOfBirth":    {Type: genai.TypeString},
					"expiryDate":     {Type: genai.TypeString},
					"issuingCountry": {Type: genai.TypeString},
					"documentType":   {Type: genai.TypeString, Description: "Detected type: Aadhaar, PAN, Voter ID, Passport, DL, or 'Unknown'"},
				},
				Required: []string{"fullName", "documentNumber", "documentType"},
			},
			"fraudChecks": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"check":   {Type: genai.TypeString, Description: "e.g., 'Document Structure Validity', 'Hologram Check'"},
						"passed":  {Type: genai.TypeBoolean},
						"details": {Type: genai.TypeString},
					},
				},
			},
			"reasoning": {Type: genai.TypeString, Description: "Detailed forensic summary of document validity and biometric match."},
		},
		Required: []string{"riskLevel", "riskScore", "faceMatchScore", "extractedData", "fraudChecks", "reasoning"},
	}
}

// AnalysisClient implements port.AnalysisOracle against the Gemini API.
type AnalysisClient struct {
	client *genai.Client
	model  string
}

// NewAnalysisClient constructs the analysis oracle adapter.
func NewAnalysisClient(ctx context.Context, apiKey, model string) (*AnalysisClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("analysis oracle API key is required")
	}
	if model == "" {
		model = "gemini-3-pro-preview"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &AnalysisClient{client: client, model: model}, nil
}

// Analyze submits the document and selfie images for forensic assessment and
// decodes the structured verdict.
func (c *AnalysisClient) Analyze(ctx context.Context, documentImage, selfieImage string) (*domain.VerificationResult, error) {
	docMIME, docData, err := decodeImage(documentImage)
	if err != nil {
		return nil, fmt.Errorf("document image: %w", err)
	}
	selfieMIME, selfieData, err := decodeImage(selfieImage)
	if err != nil {
		return nil, fmt.Errorf("selfie image: %w", err)
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(analysisPrompt),
			genai.NewPartFromBytes(docData, docMIME),
			genai.NewPartFromBytes(selfieData, selfieMIME),
		}, genai.RoleUser),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   analysisSchema(),
		ThinkingConfig:   &genai.ThinkingConfig{ThinkingBudget: genai.Ptr[int32](2048)},
	})
	if err != nil {
		return nil, fmt.Errorf("generate analysis: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("empty analysis response")
	}
	text = stripCodeFence(text)

	var result domain.VerificationResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, fmt.Errorf("decode analysis response: %w", err)
	}

	result.ID = uuid.NewString()
	result.Timestamp = time.Now().UTC()

	return &result, nil
}

// stripCodeFence removes a markdown fence the model occasionally wraps
// around otherwise valid JSON.
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

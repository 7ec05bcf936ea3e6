package domain

import "time"

// RiskLevel classifies an analysis outcome.
type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "Low"
	RiskLevelMedium RiskLevel = "Medium"
	RiskLevelHigh   RiskLevel = "High"
)

// ExtractedData holds the document fields recovered by the analysis oracle.
// FullName, DocumentNumber and DocumentType are always populated; the rest
// depend on the document type.
type ExtractedData struct {
	FullName       string `json:"fullName"`
	DocumentNumber string `json:"documentNumber"`
	DocumentType   string `json:"documentType"`
	DateOfBirth    string `json:"dateOfBirth,omitempty"`
	ExpiryDate     string `json:"expiryDate,omitempty"`
	IssuingCountry string `json:"issuingCountry,omitempty"`
}

// FraudCheck is a single named forensic check with its verdict.
type FraudCheck struct {
	Check   string `json:"check"`
	Passed  bool   `json:"passed"`
	Details string `json:"details"`
}

// VerificationResult is one completed analysis-oracle output for a single
// document+selfie pair. Results are immutable once created.
type VerificationResult struct {
	ID             string       `json:"id"`
	Timestamp      time.Time    `json:"timestamp"`
	RiskLevel      RiskLevel    `json:"riskLevel"`
	RiskScore      int          `json:"riskScore"`
	FaceMatchScore int          `json:"faceMatchScore"`
	ExtractedData  ExtractedData `json:"extractedData"`
	FraudChecks    []FraudCheck `json:"fraudChecks"`
	Reasoning      string       `json:"reasoning"`
}

// FlowPhase enumerates the verification state machine's phases.
type FlowPhase string

const (
	FlowPhaseIdle               FlowPhase = "idle"
	FlowPhaseScanningDocument   FlowPhase = "scanning_document"
	FlowPhaseCapturingBiometric FlowPhase = "capturing_biometric"
	FlowPhaseAnalyzing          FlowPhase = "analyzing"
	FlowPhaseCompleted          FlowPhase = "completed"
	FlowPhaseFailed             FlowPhase = "failed"
)

// Terminal reports whether the phase ends the current attempt.
func (p FlowPhase) Terminal() bool {
	return p == FlowPhaseCompleted || p == FlowPhaseFailed
}

// FlowState is a snapshot of the orchestrator's working set.
type FlowState struct {
	Phase         FlowPhase           `json:"phase"`
	DocumentImage string              `json:"-"`
	SelfieImage   string              `json:"-"`
	Result        *VerificationResult `json:"result,omitempty"`
	Error         string              `json:"error,omitempty"`
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/arklim/sentinel-identity/internal/core/domain"
	"github.com/arklim/sentinel-identity/internal/core/port"
)

var (
	// ErrMissingDocument indicates a selfie was supplied before any document image.
	ErrMissingDocument = errors.New("document image missing")
	// ErrAnalysisInProgress indicates an oracle call is already in flight for this flow.
	ErrAnalysisInProgress = errors.New("analysis already in progress")
	// ErrAnalysisUnavailable indicates the analysis oracle failed or is unreachable.
	ErrAnalysisUnavailable = errors.New("analysis unavailable")
	// ErrInvalidPhase indicates the requested event is not legal in the current phase.
	ErrInvalidPhase = errors.New("not allowed in current phase")
)

// VerificationFlowConfig tunes the state machine.
type VerificationFlowConfig struct {
	// ScanDelay is the document-scan feedback pause before the flow
	// auto-advances to the selfie step. Zero or negative advances
	// synchronously.
	ScanDelay time.Duration
	// AnalysisTimeout bounds the oracle call. Zero or negative means no
	// deadline, which leaves a hung call in Analyzing indefinitely.
	AnalysisTimeout time.Duration
}

// VerificationFlow drives one verification attempt through
// Idle → ScanningDocument → CapturingBiometric → Analyzing → Completed/Failed.
// At most one oracle call is in flight per flow; the Analyzing phase is the
// guard. A flow is bound to at most one account; results for a bound flow
// are persisted through the credential store and the session refreshed
// before the caller sees Completed.
type VerificationFlow struct {
	oracle      port.AnalysisOracle
	credentials *CredentialService
	sessions    *SessionService
	log         *zap.Logger
	cfg         VerificationFlowConfig

	accountID string

	mu            sync.Mutex
	phase         domain.FlowPhase
	documentImage string
	selfieImage   string
	result        *domain.VerificationResult
	lastError     string
	scanTimer     *time.Timer
}

// NewVerificationFlow constructs a flow bound to accountID. An empty
// accountID yields an anonymous flow whose results are not persisted.
func NewVerificationFlow(
	oracle port.AnalysisOracle,
	credentials *CredentialService,
	sessions *SessionService,
	accountID string,
	cfg VerificationFlowConfig,
	log *zap.Logger,
) *VerificationFlow {
	if log == nil {
		log = zap.NewNop()
	}
	return &VerificationFlow{
		oracle:      oracle,
		credentials: credentials,
		sessions:    sessions,
		accountID:   accountID,
		cfg:         cfg,
		log:         log,
		phase:       domain.FlowPhaseIdle,
	}
}

// State returns a snapshot of the flow's working set.
func (f *VerificationFlow) State() domain.FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()

	return domain.FlowState{
		Phase:         f.phase,
		DocumentImage: f.documentImage,
		SelfieImage:   f.selfieImage,
		Result:        f.result,
		Error:         f.lastError,
	}
}

// SubmitDocument stores the captured document image and enters the scanning
// phase. The flow auto-advances to the selfie step after the scan delay.
func (f *VerificationFlow) SubmitDocument(_ context.Context, image string) error {
	if image == "" {
		return fmt.Errorf("document image is required")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.phase == domain.FlowPhaseAnalyzing {
		return ErrAnalysisInProgress
	}
	if f.phase != domain.FlowPhaseIdle {
		return fmt.Errorf("%w: submit document during %s", ErrInvalidPhase, f.phase)
	}

	f.documentImage = image
	f.phase = domain.FlowPhaseScanningDocument

	if f.cfg.ScanDelay <= 0 {
		f.phase = domain.FlowPhaseCapturingBiometric
		return nil
	}

	f.scanTimer = time.AfterFunc(f.cfg.ScanDelay, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.phase == domain.FlowPhaseScanningDocument {
			f.phase = domain.FlowPhaseCapturingBiometric
		}
	})

	return nil
}

// SubmitSelfie stores the selfie image and runs the analysis. The call
// blocks until the oracle resolves or the analysis timeout fires.
func (f *VerificationFlow) SubmitSelfie(ctx context.Context, image string) (*domain.VerificationResult, error) {
	if image == "" {
		return nil, fmt.Errorf("selfie image is required")
	}

	f.mu.Lock()
	if f.phase == domain.FlowPhaseAnalyzing {
		f.mu.Unlock()
		return nil, ErrAnalysisInProgress
	}
	if f.phase != domain.FlowPhaseCapturingBiometric {
		phase := f.phase
		f.mu.Unlock()
		return nil, fmt.Errorf("%w: submit selfie during %s", ErrInvalidPhase, phase)
	}
	if f.documentImage == "" {
		// Never reach the oracle without a document.
		f.phase = domain.FlowPhaseFailed
		f.lastError = "identity document missing; restart the verification"
		f.mu.Unlock()
		return nil, ErrMissingDocument
	}

	documentImage := f.documentImage
	f.selfieImage = image
	f.phase = domain.FlowPhaseAnalyzing
	f.mu.Unlock()

	analysisCtx := ctx
	if f.cfg.AnalysisTimeout > 0 {
		var cancel context.CancelFunc
		analysisCtx, cancel = context.WithTimeout(ctx, f.cfg.AnalysisTimeout)
		defer cancel()
	}

	result, err := f.oracle.Analyze(analysisCtx, documentImage, image)
	if err != nil {
		f.mu.Lock()
		f.phase = domain.FlowPhaseFailed
		f.lastError = fmt.Sprintf("verification failed: %v", err)
		f.mu.Unlock()
		f.log.Warn("analysis oracle failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrAnalysisUnavailable, err)
	}

	f.persist(ctx, *result)

	f.mu.Lock()
	f.phase = domain.FlowPhaseCompleted
	f.result = result
	f.lastError = ""
	f.mu.Unlock()

	return result, nil
}

// persist writes the result through the credential store and refreshes the
// session projection. Persistence problems do not fail the attempt; the
// result is still surfaced to the user, and nothing previously stored is
// touched.
func (f *VerificationFlow) persist(ctx context.Context, result domain.VerificationResult) {
	if f.accountID == "" || f.credentials == nil {
		return
	}

	if err := f.credentials.AppendVerificationResult(ctx, f.accountID, result); err != nil {
		f.log.Error("persist verification result", zap.Error(err))
		return
	}
	if f.sessions != nil {
		if _, err := f.sessions.Refresh(ctx, f.accountID); err != nil {
			f.log.Error("refresh session after verification", zap.Error(err))
		}
	}
}

// Reset returns a finished or aborted attempt to Idle, clearing captured
// images, result, and error. Resetting while an oracle call is in flight is
// rejected.
func (f *VerificationFlow) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.phase == domain.FlowPhaseAnalyzing {
		return ErrAnalysisInProgress
	}

	if f.scanTimer != nil {
		f.scanTimer.Stop()
		f.scanTimer = nil
	}

	f.phase = domain.FlowPhaseIdle
	f.documentImage = ""
	f.selfieImage = ""
	f.result = nil
	f.lastError = ""

	return nil
}

// ContextHint summarizes the flow for the assistant oracle.
func (f *VerificationFlow) ContextHint(session *domain.Session) string {
	f.mu.Lock()
	phase := f.phase
	lastError := f.lastError
	f.mu.Unlock()

	switch phase {
	case domain.FlowPhaseIdle:
		if session != nil {
			status := "Unverified"
			if session.IsVerified {
				status = "Verified"
			}
			return fmt.Sprintf("User %s is on the dashboard. Verification status: %s.", session.Name, status)
		}
		return "User is about to upload their ID document."
	case domain.FlowPhaseScanningDocument:
		return "User's ID document is being scanned."
	case domain.FlowPhaseCapturingBiometric:
		return "User is taking a selfie for biometric matching."
	case domain.FlowPhaseAnalyzing:
		return "User is waiting for AI analysis."
	case domain.FlowPhaseFailed:
		return fmt.Sprintf("User encountered an error: %s", lastError)
	default:
		return "User is reviewing their results."
	}
}

// FlowRegistry hands out one verification flow per account. The HTTP surface
// uses it so concurrent requests for the same account share a flow instance
// and its single-oracle-call invariant.
type FlowRegistry struct {
	oracle      port.AnalysisOracle
	credentials *CredentialService
	sessions    *SessionService
	cfg         VerificationFlowConfig
	log         *zap.Logger

	mu    sync.Mutex
	flows map[string]*VerificationFlow
}

// NewFlowRegistry constructs a registry.
func NewFlowRegistry(
	oracle port.AnalysisOracle,
	credentials *CredentialService,
	sessions *SessionService,
	cfg VerificationFlowConfig,
	log *zap.Logger,
) *FlowRegistry {
	return &FlowRegistry{
		oracle:      oracle,
		credentials: credentials,
		sessions:    sessions,
		cfg:         cfg,
		log:         log,
		flows:       make(map[string]*VerificationFlow),
	}
}

// FlowFor returns the flow bound to accountID, creating it on first use.
func (r *FlowRegistry) FlowFor(accountID string) *VerificationFlow {
	r.mu.Lock()
	defer r.mu.Unlock()

	if flow, ok := r.flows[accountID]; ok {
		return flow
	}

	flow := NewVerificationFlow(r.oracle, r.credentials, r.sessions, accountID, r.cfg, r.log)
	r.flows[accountID] = flow
	return flow
}

// Drop removes the flow bound to accountID, typically on logout.
func (r *FlowRegistry) Drop(accountID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.flows, accountID)
}

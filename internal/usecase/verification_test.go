package usecase

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/arklim/sentinel-identity/internal/core/domain"
)

// stubOracle is a scriptable port.AnalysisOracle.
type stubOracle struct {
	calls   atomic.Int32
	result  *domain.VerificationResult
	err     error
	barrier chan struct{}
}

func (o *stubOracle) Analyze(ctx context.Context, documentImage, selfieImage string) (*domain.VerificationResult, error) {
	o.calls.Add(1)
	if o.barrier != nil {
		select {
		case <-o.barrier:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if o.err != nil {
		return nil, o.err
	}
	return o.result, nil
}

func boundFlow(t *testing.T, oracle *stubOracle, repo *stubAccountRepo, store *stubSessionStore, accountID string) *VerificationFlow {
	t.Helper()
	credentials := newPermissiveCredentialService(t, repo)
	sessions := NewSessionService(repo, store)
	return NewVerificationFlow(oracle, credentials, sessions, accountID, VerificationFlowConfig{}, nil)
}

func registerAndLogin(t *testing.T, repo *stubAccountRepo, store *stubSessionStore) string {
	t.Helper()
	ctx := context.Background()
	svc := newPermissiveCredentialService(t, repo)
	session, err := svc.Register(ctx, "Alice", "alice@domain.example", "secret1")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := NewSessionService(repo, store).Login(ctx, session); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	return session.AccountID
}

func TestVerificationFlow_SuccessPathPersistsResult(t *testing.T) {
	repo := newStubAccountRepo()
	store := &stubSessionStore{}
	accountID := registerAndLogin(t, repo, store)

	oracle := &stubOracle{result: &domain.VerificationResult{
		ID:        "res-1",
		RiskLevel: domain.RiskLevelLow,
		RiskScore: 10,
	}}
	flow := boundFlow(t, oracle, repo, store, accountID)
	ctx := context.Background()

	if err := flow.SubmitDocument(ctx, "data:image/jpeg;base64,doc"); err != nil {
		t.Fatalf("SubmitDocument failed: %v", err)
	}
	// Zero scan delay advances synchronously.
	if state := flow.State(); state.Phase != domain.FlowPhaseCapturingBiometric {
		t.Fatalf("expected capturing_biometric, got %s", state.Phase)
	}

	result, err := flow.SubmitSelfie(ctx, "data:image/jpeg;base64,selfie")
	if err != nil {
		t.Fatalf("SubmitSelfie failed: %v", err)
	}
	if result.ID != "res-1" {
		t.Fatalf("unexpected result: %+v", result)
	}

	state := flow.State()
	if state.Phase != domain.FlowPhaseCompleted {
		t.Fatalf("expected completed, got %s", state.Phase)
	}
	if state.Result == nil || state.Error != "" {
		t.Fatalf("completed state inconsistent: %+v", state)
	}

	stored, err := repo.GetByID(ctx, accountID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !stored.IsVerified || len(stored.History) != 1 {
		t.Fatalf("result not persisted: %+v", stored)
	}

	// The session projection must reflect the mutation before the caller
	// sees Completed.
	session, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if session == nil || !session.IsVerified || len(session.History) != 1 {
		t.Fatalf("session not refreshed: %+v", session)
	}
}

func TestVerificationFlow_SelfieWithoutDocument(t *testing.T) {
	oracle := &stubOracle{}
	flow := NewVerificationFlow(oracle, nil, nil, "", VerificationFlowConfig{}, nil)
	ctx := context.Background()

	_, err := flow.SubmitSelfie(ctx, "selfie")
	if !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("selfie from idle: expected ErrInvalidPhase, got %v", err)
	}
	if oracle.calls.Load() != 0 {
		t.Fatalf("oracle must not be called without a document")
	}
}

func TestVerificationFlow_MissingDocumentFailsWithoutAnalysis(t *testing.T) {
	oracle := &stubOracle{result: &domain.VerificationResult{ID: "res-1", RiskLevel: domain.RiskLevelLow}}
	flow := NewVerificationFlow(oracle, nil, nil, "", VerificationFlowConfig{}, nil)

	// A capture phase without a stored document can only arise from a client
	// driving the steps out of order; the guard must hold regardless.
	flow.mu.Lock()
	flow.phase = domain.FlowPhaseCapturingBiometric
	flow.mu.Unlock()

	_, err := flow.SubmitSelfie(context.Background(), "selfie")
	if !errors.Is(err, ErrMissingDocument) {
		t.Fatalf("expected ErrMissingDocument, got %v", err)
	}
	if oracle.calls.Load() != 0 {
		t.Fatalf("oracle must not be reached without a document")
	}

	state := flow.State()
	if state.Phase != domain.FlowPhaseFailed {
		t.Fatalf("expected failed, got %s", state.Phase)
	}
	if state.Error == "" {
		t.Fatalf("failed state must carry an error message")
	}
}

func TestVerificationFlow_FailedOracle(t *testing.T) {
	oracle := &stubOracle{err: errors.New("quota exhausted")}
	flow := NewVerificationFlow(oracle, nil, nil, "", VerificationFlowConfig{}, nil)
	ctx := context.Background()

	if err := flow.SubmitDocument(ctx, "doc"); err != nil {
		t.Fatalf("SubmitDocument failed: %v", err)
	}

	_, err := flow.SubmitSelfie(ctx, "selfie")
	if !errors.Is(err, ErrAnalysisUnavailable) {
		t.Fatalf("expected ErrAnalysisUnavailable, got %v", err)
	}

	state := flow.State()
	if state.Phase != domain.FlowPhaseFailed {
		t.Fatalf("expected failed, got %s", state.Phase)
	}
	if state.Error == "" {
		t.Fatalf("failed state must carry an error message")
	}
}

func TestVerificationFlow_RejectsConcurrentAnalysis(t *testing.T) {
	barrier := make(chan struct{})
	oracle := &stubOracle{
		result:  &domain.VerificationResult{ID: "res-1", RiskLevel: domain.RiskLevelLow},
		barrier: barrier,
	}
	flow := NewVerificationFlow(oracle, nil, nil, "", VerificationFlowConfig{}, nil)
	ctx := context.Background()

	if err := flow.SubmitDocument(ctx, "doc"); err != nil {
		t.Fatalf("SubmitDocument failed: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := flow.SubmitSelfie(ctx, "selfie")
		done <- err
	}()

	// Wait until the first call is parked inside the oracle.
	deadline := time.After(2 * time.Second)
	for flow.State().Phase != domain.FlowPhaseAnalyzing {
		select {
		case <-deadline:
			t.Fatalf("flow never entered analyzing")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if _, err := flow.SubmitSelfie(ctx, "selfie"); !errors.Is(err, ErrAnalysisInProgress) {
		t.Fatalf("second selfie: expected ErrAnalysisInProgress, got %v", err)
	}
	if err := flow.Reset(); !errors.Is(err, ErrAnalysisInProgress) {
		t.Fatalf("reset while analyzing: expected ErrAnalysisInProgress, got %v", err)
	}
	if err := flow.SubmitDocument(ctx, "doc"); !errors.Is(err, ErrAnalysisInProgress) {
		t.Fatalf("document while analyzing: expected ErrAnalysisInProgress, got %v", err)
	}

	close(barrier)
	if err := <-done; err != nil {
		t.Fatalf("first selfie failed: %v", err)
	}
	if oracle.calls.Load() != 1 {
		t.Fatalf("expected exactly one oracle call, got %d", oracle.calls.Load())
	}
}

func TestVerificationFlow_ScanDelayAdvancesAsynchronously(t *testing.T) {
	flow := NewVerificationFlow(&stubOracle{}, nil, nil, "", VerificationFlowConfig{
		ScanDelay: 10 * time.Millisecond,
	}, nil)

	if err := flow.SubmitDocument(context.Background(), "doc"); err != nil {
		t.Fatalf("SubmitDocument failed: %v", err)
	}
	if state := flow.State(); state.Phase != domain.FlowPhaseScanningDocument {
		t.Fatalf("expected scanning_document immediately, got %s", state.Phase)
	}

	deadline := time.After(2 * time.Second)
	for flow.State().Phase != domain.FlowPhaseCapturingBiometric {
		select {
		case <-deadline:
			t.Fatalf("flow never advanced past scanning")
		default:
			time.Sleep(time.Millisecond)
		}
	}
}

func TestVerificationFlow_ResetReturnsToIdle(t *testing.T) {
	oracle := &stubOracle{result: &domain.VerificationResult{ID: "res-1", RiskLevel: domain.RiskLevelLow}}
	flow := NewVerificationFlow(oracle, nil, nil, "", VerificationFlowConfig{}, nil)
	ctx := context.Background()

	if err := flow.SubmitDocument(ctx, "doc"); err != nil {
		t.Fatalf("SubmitDocument failed: %v", err)
	}
	if _, err := flow.SubmitSelfie(ctx, "selfie"); err != nil {
		t.Fatalf("SubmitSelfie failed: %v", err)
	}

	if err := flow.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	state := flow.State()
	if state.Phase != domain.FlowPhaseIdle || state.DocumentImage != "" || state.SelfieImage != "" || state.Result != nil || state.Error != "" {
		t.Fatalf("reset left residue: %+v", state)
	}

	// A fresh attempt is possible after reset.
	if err := flow.SubmitDocument(ctx, "doc2"); err != nil {
		t.Fatalf("SubmitDocument after reset failed: %v", err)
	}
}

func TestVerificationFlow_AnonymousFlowDoesNotPersist(t *testing.T) {
	repo := newStubAccountRepo()
	store := &stubSessionStore{}
	accountID := registerAndLogin(t, repo, store)

	oracle := &stubOracle{result: &domain.VerificationResult{ID: "res-1", RiskLevel: domain.RiskLevelLow}}
	flow := boundFlow(t, oracle, repo, store, "")
	ctx := context.Background()

	if err := flow.SubmitDocument(ctx, "doc"); err != nil {
		t.Fatalf("SubmitDocument failed: %v", err)
	}
	if _, err := flow.SubmitSelfie(ctx, "selfie"); err != nil {
		t.Fatalf("SubmitSelfie failed: %v", err)
	}

	stored, err := repo.GetByID(ctx, accountID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if len(stored.History) != 0 {
		t.Fatalf("anonymous flow must not touch account records: %+v", stored)
	}
}

func TestVerificationFlow_ContextHint(t *testing.T) {
	flow := NewVerificationFlow(&stubOracle{}, nil, nil, "", VerificationFlowConfig{}, nil)

	if hint := flow.ContextHint(nil); hint != "User is about to upload their ID document." {
		t.Fatalf("unexpected idle hint: %q", hint)
	}

	session := &domain.Session{Name: "Alice", IsVerified: true}
	if hint := flow.ContextHint(session); hint != "User Alice is on the dashboard. Verification status: Verified." {
		t.Fatalf("unexpected dashboard hint: %q", hint)
	}

	if err := flow.SubmitDocument(context.Background(), "doc"); err != nil {
		t.Fatalf("SubmitDocument failed: %v", err)
	}
	if hint := flow.ContextHint(nil); hint != "User is taking a selfie for biometric matching." {
		t.Fatalf("unexpected biometric hint: %q", hint)
	}
}

func TestFlowRegistry_SharesFlowPerAccount(t *testing.T) {
	registry := NewFlowRegistry(&stubOracle{}, nil, nil, VerificationFlowConfig{}, nil)

	first := registry.FlowFor("acc-1")
	if registry.FlowFor("acc-1") != first {
		t.Fatalf("same account must share one flow")
	}
	if registry.FlowFor("acc-2") == first {
		t.Fatalf("distinct accounts must not share flows")
	}

	registry.Drop("acc-1")
	if registry.FlowFor("acc-1") == first {
		t.Fatalf("dropped flow must be replaced on next use")
	}
}

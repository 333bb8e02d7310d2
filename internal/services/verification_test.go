package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bankportal/backend/internal/engine"
	"github.com/bankportal/backend/internal/models"
	"github.com/bankportal/backend/pkg/utils"
	"gorm.io/gorm"
)

type failingEngine struct{}

func (failingEngine) GenerateTurn(context.Context, engine.TurnRequest) (*engine.TurnResult, error) {
	return nil, errors.New("upstream down")
}

func seedEmployee(t *testing.T, db *gorm.DB, active bool) models.Employee {
	t.Helper()

	hash, err := utils.HashPassword("password123")
	if err != nil {
		t.Fatalf("failed hashing password: %v", err)
	}

	employee := models.Employee{
		EmployeeID:   "WB001",
		PasswordHash: hash,
		Name:         "John Adebayo",
		Role:         "Loan Officer",
		IsActive:     active,
	}
	if err := db.Create(&employee).Error; err != nil {
		t.Fatalf("failed creating employee: %v", err)
	}
	return employee
}

func newVerificationEnv(t *testing.T, eng engine.Engine, maxTurns int) (*VerificationService, *gorm.DB) {
	t.Helper()

	db := setupTestDB(t)
	pending := NewPendingStore()
	sessions := NewSessionService(db, time.Hour)
	otp := NewOTPIssuer("static", "832194", 5*time.Minute)
	audit := NewAuditService(db, nil)

	svc := NewVerificationService(db, pending, sessions, eng, otp, audit, nil, maxTurns, 5*time.Second)
	return svc, db
}

func TestSubmitCredentialsRejectsBadInput(t *testing.T) {
	svc, db := newVerificationEnv(t, engine.NewScriptedEngine(), 20)
	seedEmployee(t, db, true)

	if err := svc.SubmitCredentials(context.Background(), "sid-1", "WB001", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if err := svc.SubmitCredentials(context.Background(), "sid-1", "WB999", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown employee, got %v", err)
	}
}

func TestSubmitCredentialsRejectsInactiveAccount(t *testing.T) {
	svc, db := newVerificationEnv(t, engine.NewScriptedEngine(), 20)
	seedEmployee(t, db, false)

	err := svc.SubmitCredentials(context.Background(), "sid-1", "WB001", "password123")
	if !errors.Is(err, ErrInactiveAccount) {
		t.Fatalf("expected ErrInactiveAccount, got %v", err)
	}
}

func TestStepOrderIsEnforced(t *testing.T) {
	svc, db := newVerificationEnv(t, engine.NewScriptedEngine(engine.DefaultScript()...), 20)
	seedEmployee(t, db, true)

	sid := "sid-order"

	// Steps before credentials are state errors.
	if err := svc.SubmitOneTimeCode(sid, "832194"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for OTP before credentials, got %v", err)
	}
	if _, err := svc.SubmitVerificationTurn(context.Background(), sid, "hello", engine.Metadata{}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for turn before credentials, got %v", err)
	}

	if err := svc.SubmitCredentials(context.Background(), sid, "WB001", "password123"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Skipping the OTP step is a state error.
	if _, err := svc.SubmitVerificationTurn(context.Background(), sid, "hello", engine.Metadata{}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for turn before OTP, got %v", err)
	}

	if err := svc.SubmitOneTimeCode(sid, "832194"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Re-submitting the OTP after it already passed is a state error.
	if err := svc.SubmitOneTimeCode(sid, "832194"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for repeated OTP, got %v", err)
	}
}

func TestWrongOneTimeCode(t *testing.T) {
	svc, db := newVerificationEnv(t, engine.NewScriptedEngine(), 20)
	seedEmployee(t, db, true)

	sid := "sid-otp"
	if err := svc.SubmitCredentials(context.Background(), sid, "WB001", "password123"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.SubmitOneTimeCode(sid, "000000"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}

	// A wrong code does not consume the attempt; the right one still works.
	if err := svc.SubmitOneTimeCode(sid, "832194"); err != nil {
		t.Fatalf("expected correct code to verify after a miss, got %v", err)
	}
}

func advanceToSecurityStep(t *testing.T, svc *VerificationService, sid string) {
	t.Helper()

	if err := svc.SubmitCredentials(context.Background(), sid, "WB001", "password123"); err != nil {
		t.Fatalf("failed credentials step: %v", err)
	}
	if err := svc.SubmitOneTimeCode(sid, "832194"); err != nil {
		t.Fatalf("failed OTP step: %v", err)
	}
}

func TestFullGrantFlow(t *testing.T) {
	svc, db := newVerificationEnv(t, engine.NewScriptedEngine(engine.DefaultScript()...), 20)
	employee := seedEmployee(t, db, true)

	sid := "sid-grant"
	advanceToSecurityStep(t, svc, sid)

	messages := []string{
		"Hi, I'm doing well today",
		"Planning to clear the loan queue this morning",
		"Yes, that's me",
	}

	var final *TurnOutcome
	for i, msg := range messages {
		outcome, err := svc.SubmitVerificationTurn(context.Background(), sid, msg, engine.Metadata{})
		if err != nil {
			t.Fatalf("turn %d failed: %v", i+1, err)
		}
		final = outcome
	}

	if final.Outcome != engine.OutcomeGranted {
		t.Fatalf("expected granted outcome, got %q", final.Outcome)
	}
	if final.Token == "" {
		t.Fatal("expected a session token on grant")
	}
	if final.Employee == nil || final.Employee.EmployeeID != "WB001" {
		t.Fatalf("expected employee on grant, got %+v", final.Employee)
	}

	// The minted token resolves to a live session.
	session, err := svc.Sessions.Get(final.Token)
	if err != nil {
		t.Fatalf("failed resolving token: %v", err)
	}
	if session == nil || session.EmployeeID != employee.ID {
		t.Fatalf("expected session for employee, got %+v", session)
	}

	// The pending attempt is gone; further turns are state errors.
	if _, err := svc.SubmitVerificationTurn(context.Background(), sid, "another", engine.Metadata{}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState after grant, got %v", err)
	}

	// Login shows up in the activity feed via the async audit pipeline.
	waitForCount(t, db, &models.Activity{}, "action = ?", []interface{}{"login"}, 1)
}

func TestDeniedKeepsAttemptOpen(t *testing.T) {
	svc, db := newVerificationEnv(t, engine.NewScriptedEngine(engine.TurnResult{
		Reply:   "I can't confirm that. ACCESS DENIED",
		Verdict: &engine.Verdict{Progress: engine.ProgressCompleted, Access: engine.AccessDenied},
	}), 20)
	seedEmployee(t, db, true)

	sid := "sid-denied"
	advanceToSecurityStep(t, svc, sid)

	outcome, err := svc.SubmitVerificationTurn(context.Background(), sid, "um, hello?", engine.Metadata{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Outcome != engine.OutcomeDenied {
		t.Fatalf("expected denied outcome, got %q", outcome.Outcome)
	}
	if outcome.Token != "" {
		t.Fatal("denied outcome must not mint a token")
	}

	// The attempt stays open at the security step; the caller may try again.
	if _, err := svc.SubmitVerificationTurn(context.Background(), sid, "let me try again", engine.Metadata{}); err != nil {
		t.Fatalf("expected attempt to remain open after denial, got %v", err)
	}
}

func TestEngineFailureLeavesTranscriptUntouched(t *testing.T) {
	svc, db := newVerificationEnv(t, failingEngine{}, 20)
	seedEmployee(t, db, true)

	sid := "sid-fail"
	advanceToSecurityStep(t, svc, sid)

	_, err := svc.SubmitVerificationTurn(context.Background(), sid, "hello", engine.Metadata{})
	if !errors.Is(err, ErrEngineUnavailable) {
		t.Fatalf("expected ErrEngineUnavailable, got %v", err)
	}

	attempt, ok := svc.Pending.Get(sid)
	if !ok {
		t.Fatal("expected attempt to survive an engine failure")
	}
	if len(attempt.Transcript) != 0 || attempt.UserTurns != 0 {
		t.Fatalf("expected no transcript state after failure, got %d turns", len(attempt.Transcript))
	}

	// Once the engine recovers the same turn goes through.
	svc.Engine = engine.NewScriptedEngine(engine.DefaultScript()...)
	outcome, err := svc.SubmitVerificationTurn(context.Background(), sid, "hello", engine.Metadata{})
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if outcome.Outcome != engine.OutcomePending {
		t.Fatalf("expected pending outcome, got %q", outcome.Outcome)
	}

	attempt, _ = svc.Pending.Get(sid)
	if len(attempt.Transcript) != 2 {
		t.Fatalf("expected user and agent turns recorded together, got %d", len(attempt.Transcript))
	}
}

func TestTurnCapForcesReject(t *testing.T) {
	svc, db := newVerificationEnv(t, engine.NewScriptedEngine(engine.TurnResult{
		Reply:   "Tell me more.",
		Verdict: &engine.Verdict{Progress: engine.ProgressInProgress},
	}), 2)
	seedEmployee(t, db, true)

	sid := "sid-cap"
	advanceToSecurityStep(t, svc, sid)

	for i := 0; i < 2; i++ {
		if _, err := svc.SubmitVerificationTurn(context.Background(), sid, "still me", engine.Metadata{}); err != nil {
			t.Fatalf("turn %d failed: %v", i+1, err)
		}
	}

	_, err := svc.SubmitVerificationTurn(context.Background(), sid, "one more", engine.Metadata{})
	if !errors.Is(err, ErrVerificationTimeout) {
		t.Fatalf("expected ErrVerificationTimeout at the cap, got %v", err)
	}

	// The attempt is discarded; the caller must restart from credentials.
	if _, err := svc.SubmitVerificationTurn(context.Background(), sid, "hello?", engine.Metadata{}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState after forced reject, got %v", err)
	}
}

func TestNewCredentialsReplacePendingAttempt(t *testing.T) {
	svc, db := newVerificationEnv(t, engine.NewScriptedEngine(engine.DefaultScript()...), 20)
	seedEmployee(t, db, true)

	sid := "sid-restart"
	advanceToSecurityStep(t, svc, sid)

	// Logging in again drops the attempt back to the OTP step.
	if err := svc.SubmitCredentials(context.Background(), sid, "WB001", "password123"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.SubmitVerificationTurn(context.Background(), sid, "hello", engine.Metadata{}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState after restart, got %v", err)
	}
}

func TestThreadKeysAreSessionScoped(t *testing.T) {
	svc, db := newVerificationEnv(t, engine.NewScriptedEngine(engine.DefaultScript()...), 20)
	seedEmployee(t, db, true)

	if err := svc.SubmitCredentials(context.Background(), "sid-a", "WB001", "password123"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.SubmitCredentials(context.Background(), "sid-b", "WB001", "password123"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	a, _ := svc.Pending.Get("sid-a")
	b, _ := svc.Pending.Get("sid-b")
	if a.ThreadKey == "" || a.ThreadKey == b.ThreadKey {
		t.Fatalf("expected distinct per-session thread keys, got %q and %q", a.ThreadKey, b.ThreadKey)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	svc, _ := newVerificationEnv(t, engine.NewScriptedEngine(), 20)

	if err := svc.Logout("wbp_unknown_token"); err != nil {
		t.Fatalf("expected logout of unknown token to succeed, got %v", err)
	}
}

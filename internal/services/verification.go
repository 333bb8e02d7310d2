package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bankportal/backend/internal/engine"
	"github.com/bankportal/backend/internal/models"
	"github.com/bankportal/backend/internal/notify"
	"github.com/bankportal/backend/pkg/logger"
	"github.com/bankportal/backend/pkg/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VerificationService owns the three-step login protocol:
//
//	UNAUTHENTICATED -> CREDENTIALS_VERIFIED -> OTP_VERIFIED -> AUTHENTICATED
//
// Step one checks credentials against the employee directory, step two checks
// a one-time code, step three is a conversational identity check driven by
// the engine. Any failed validation rejects the current attempt; the caller
// may start over from credentials.
type VerificationService struct {
	DB       *gorm.DB
	Pending  *PendingStore
	Sessions *SessionService
	Engine   engine.Engine
	OTP      *OTPIssuer
	Audit    *AuditService
	Notifier notify.Notifier

	MaxTurns      int
	EngineTimeout time.Duration
}

func NewVerificationService(
	db *gorm.DB,
	pending *PendingStore,
	sessions *SessionService,
	eng engine.Engine,
	otp *OTPIssuer,
	audit *AuditService,
	notifier notify.Notifier,
	maxTurns int,
	engineTimeout time.Duration,
) *VerificationService {
	if maxTurns <= 0 {
		maxTurns = 20
	}
	if engineTimeout <= 0 {
		engineTimeout = 30 * time.Second
	}
	return &VerificationService{
		DB:            db,
		Pending:       pending,
		Sessions:      sessions,
		Engine:        eng,
		OTP:           otp,
		Audit:         audit,
		Notifier:      notifier,
		MaxTurns:      maxTurns,
		EngineTimeout: engineTimeout,
	}
}

// SubmitCredentials validates step one and opens a pending attempt at
// CREDENTIALS_VERIFIED, replacing any prior attempt for this caller session.
func (s *VerificationService) SubmitCredentials(ctx context.Context, callerSID, employeeNumber, password string) error {
	var employee models.Employee
	err := s.DB.First(&employee, "employee_id = ?", employeeNumber).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}

	if !utils.CheckPassword(password, employee.PasswordHash) {
		return ErrInvalidCredentials
	}
	if !employee.IsActive {
		return ErrInactiveAccount
	}

	code, secret, expiresAt, err := s.OTP.Issue(employee.EmployeeID)
	if err != nil {
		return err
	}

	s.Pending.Put(callerSID, &PendingAuth{
		EmployeeID:     employee.ID,
		EmployeeNumber: employee.EmployeeID,
		EmployeeName:   employee.Name,
		Step:           StepCredentialsVerified,
		ThreadKey:      uuid.New().String(),
		OTPSecret:      secret,
		OTPExpiresAt:   expiresAt,
		CreatedAt:      time.Now(),
	})

	s.deliverCode(ctx, &employee, code)

	logger.Info("auth_credentials_verified", map[string]interface{}{
		"employee_id": employee.EmployeeID,
	})
	return nil
}

// deliverCode sends the one-time code out of band. Static demo codes are not
// delivered; the user already knows them.
func (s *VerificationService) deliverCode(ctx context.Context, employee *models.Employee, code string) {
	if s.Notifier == nil || s.OTP.Mode != "totp" || employee.Phone == "" {
		return
	}
	body := fmt.Sprintf("Your BankPortal verification code is %s. It expires in %d minutes.",
		code, int(s.OTP.Validity.Minutes()))
	if err := s.Notifier.Send(ctx, employee.Phone, body); err != nil {
		logger.Error("otp_delivery_failed", err, map[string]interface{}{
			"employee_id": employee.EmployeeID,
		})
	}
}

// SubmitOneTimeCode validates step two. The attempt must be exactly at
// CREDENTIALS_VERIFIED: submitting a code before credentials, or again after
// it already succeeded, is a state error.
func (s *VerificationService) SubmitOneTimeCode(callerSID, code string) error {
	attempt, ok := s.Pending.Get(callerSID)
	if !ok {
		return ErrInvalidState
	}

	attempt.Lock()
	defer attempt.Unlock()

	if attempt.Step != StepCredentialsVerified {
		return ErrInvalidState
	}

	if !s.OTP.Verify(attempt, code) {
		return ErrInvalidCode
	}

	attempt.Step = StepOTPVerified

	logger.Info("auth_otp_verified", map[string]interface{}{
		"employee_id": attempt.EmployeeNumber,
	})
	return nil
}

// TurnOutcome is the result of one conversational verification turn.
type TurnOutcome struct {
	Reply    string
	Outcome  engine.Outcome
	Token    string
	Employee *models.Employee
}

// SubmitVerificationTurn drives step three. The user's message and the
// agent's reply are appended to the transcript together only after the
// engine call succeeds, so an engine failure leaves no half-recorded
// exchange and the same turn can be retried. Turns for one attempt are
// serialized; unrelated attempts proceed in parallel.
func (s *VerificationService) SubmitVerificationTurn(ctx context.Context, callerSID, text string, metadata engine.Metadata) (*TurnOutcome, error) {
	attempt, ok := s.Pending.Get(callerSID)
	if !ok {
		return nil, ErrInvalidState
	}

	attempt.Lock()
	defer attempt.Unlock()

	if attempt.Step != StepOTPVerified {
		return nil, ErrInvalidState
	}

	if attempt.UserTurns >= s.MaxTurns {
		// Force-reject: the conversation is not converging.
		s.Pending.Delete(callerSID)
		logger.Warn("verification_turn_cap_reached", map[string]interface{}{
			"employee_id": attempt.EmployeeNumber,
			"turns":       attempt.UserTurns,
		})
		return nil, ErrVerificationTimeout
	}

	metadata.EmployeeID = attempt.EmployeeNumber
	if metadata.Name == "" {
		metadata.Name = attempt.EmployeeName
	}

	userTurn := engine.Turn{Role: engine.RoleUser, Content: text, Timestamp: time.Now()}

	transcript := make([]engine.Turn, len(attempt.Transcript), len(attempt.Transcript)+1)
	copy(transcript, attempt.Transcript)
	transcript = append(transcript, userTurn)

	engineCtx, cancel := context.WithTimeout(ctx, s.EngineTimeout)
	defer cancel()

	result, err := s.Engine.GenerateTurn(engineCtx, engine.TurnRequest{
		Instruction: engine.SecurityAgentInstruction,
		Transcript:  transcript,
		Metadata:    metadata,
		ThreadKey:   attempt.ThreadKey,
	})
	if err != nil {
		logger.Error("verification_engine_failed", err, map[string]interface{}{
			"employee_id": attempt.EmployeeNumber,
		})
		return nil, fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}

	agentTurn := engine.Turn{Role: engine.RoleAgent, Content: result.Reply, Timestamp: time.Now()}
	attempt.Transcript = append(attempt.Transcript, userTurn, agentTurn)
	attempt.UserTurns++

	outcome := engine.DeriveOutcome(result)

	logger.Info("verification_turn", map[string]interface{}{
		"employee_id": attempt.EmployeeNumber,
		"turn":        attempt.UserTurns,
		"outcome":     string(outcome),
	})

	if outcome != engine.OutcomeGranted {
		// Denied and partial keep the attempt open at OTP_VERIFIED; the
		// caller may send further turns or abandon the attempt.
		return &TurnOutcome{Reply: result.Reply, Outcome: outcome}, nil
	}

	return s.completeGrant(callerSID, attempt, result.Reply)
}

func (s *VerificationService) completeGrant(callerSID string, attempt *PendingAuth, reply string) (*TurnOutcome, error) {
	var employee models.Employee
	if err := s.DB.First(&employee, "id = ?", attempt.EmployeeID).Error; err != nil {
		return nil, fmt.Errorf("loading employee after grant: %w", err)
	}

	token, _, err := s.Sessions.Create(employee.ID)
	if err != nil {
		return nil, fmt.Errorf("minting session token: %w", err)
	}

	s.Pending.Delete(callerSID)

	s.Audit.LogAsync(AuditEntry{
		EmployeeID: &employee.ID,
		Action:     "auth.login",
	})

	logger.Info("auth_completed", map[string]interface{}{
		"employee_id": employee.EmployeeID,
	})

	return &TurnOutcome{
		Reply:    reply,
		Outcome:  engine.OutcomeGranted,
		Token:    token,
		Employee: &employee,
	}, nil
}

// Abandon drops the caller's pending attempt, if any.
func (s *VerificationService) Abandon(callerSID string) {
	s.Pending.Delete(callerSID)
}

// Logout deletes the session token. Absence is not an error.
func (s *VerificationService) Logout(token string) error {
	session, err := s.Sessions.Get(token)
	if err != nil {
		return err
	}
	if session != nil {
		s.Audit.LogAsync(AuditEntry{
			EmployeeID: &session.EmployeeID,
			Action:     "auth.logout",
		})
	}
	return s.Sessions.Delete(token)
}

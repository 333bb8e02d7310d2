package services

import (
	"sync"
	"time"

	"github.com/bankportal/backend/internal/engine"
	"github.com/google/uuid"
)

type AuthStep int

const (
	StepCredentialsVerified AuthStep = iota + 1
	StepOTPVerified
)

// PendingAuth is one in-flight login attempt, owned by exactly one caller
// session. The transcript lives only for the lifetime of the attempt and is
// never persisted.
type PendingAuth struct {
	// mu serializes verification turns for this attempt. It is held across
	// the engine call so the transcript can never interleave; unrelated
	// caller sessions are unaffected.
	mu sync.Mutex

	EmployeeID     uuid.UUID
	EmployeeNumber string
	EmployeeName   string
	Step           AuthStep

	// ThreadKey scopes any engine-side memory to this attempt.
	ThreadKey string

	OTPSecret    string
	OTPExpiresAt time.Time

	Transcript []engine.Turn
	UserTurns  int
	CreatedAt  time.Time
}

func (p *PendingAuth) Lock()   { p.mu.Lock() }
func (p *PendingAuth) Unlock() { p.mu.Unlock() }

// PendingStore holds pending login attempts keyed by caller SID. State is
// process-local by design; durable tokens live in the session store.
type PendingStore struct {
	mu       sync.RWMutex
	attempts map[string]*PendingAuth
}

func NewPendingStore() *PendingStore {
	return &PendingStore{attempts: make(map[string]*PendingAuth)}
}

// Put installs the attempt for the caller, overwriting any prior attempt:
// only one login is in flight per caller session.
func (s *PendingStore) Put(callerSID string, attempt *PendingAuth) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[callerSID] = attempt
}

func (s *PendingStore) Get(callerSID string) (*PendingAuth, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempt, ok := s.attempts[callerSID]
	return attempt, ok
}

func (s *PendingStore) Delete(callerSID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attempts, callerSID)
}

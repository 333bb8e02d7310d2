// Package engine defines the Conversation Engine contract used by the
// verification flow. The engine is an opaque text-completion service: given
// the authoritative transcript, a system instruction and side-channel
// metadata, it produces the next conversational turn and, when it can, a
// structured verdict. The controller never relies on engine-side memory.
package engine

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable indicates the engine call failed or timed out. Callers may
// retry the same turn; no transcript state was recorded.
var ErrUnavailable = errors.New("conversation engine unavailable")

type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Turn is one entry in a verification transcript.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Metadata is the out-of-band signal forwarded with each verification turn.
type Metadata struct {
	EmployeeID    string `json:"employeeId,omitempty"`
	Name          string `json:"name,omitempty"`
	IP            string `json:"ip,omitempty"`
	Location      string `json:"location,omitempty"`
	Device        string `json:"device,omitempty"`
	Browser       string `json:"browser,omitempty"`
	OS            string `json:"os,omitempty"`
	NetworkHealth string `json:"networkHealth,omitempty"`
}

type Progress string

const (
	ProgressInProgress Progress = "IN_PROGRESS"
	ProgressCompleted  Progress = "COMPLETED"
)

type Access string

const (
	AccessGranted Access = "GRANTED"
	AccessDenied  Access = "DENIED"
	AccessPartial Access = "PARTIAL"
)

// Verdict is the structured outcome emitted by the engine alongside its
// reply. It is transient: only the most recent verdict for a session counts.
type Verdict struct {
	Progress Progress `json:"progress"`
	Access   Access   `json:"access"`
}

// TurnRequest carries everything the engine needs for one turn. ThreadKey is
// scoped to a single pending-auth session so engine-side memory, if any,
// never bleeds across users.
type TurnRequest struct {
	Instruction string
	Transcript  []Turn
	Metadata    Metadata
	ThreadKey   string
}

// TurnResult is the engine's reply. Verdict is nil when the engine produced
// plain text only; callers then fall back to marker scanning.
type TurnResult struct {
	Reply   string
	Verdict *Verdict
}

type Engine interface {
	GenerateTurn(ctx context.Context, req TurnRequest) (*TurnResult, error)
}

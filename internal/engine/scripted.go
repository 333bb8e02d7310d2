package engine

import (
	"context"
	"fmt"
	"sync"
)

// ScriptedEngine replays a fixed sequence of turns. It backs the demo mode
// when no API key is configured and serves as the test double for the
// verification flow.
type ScriptedEngine struct {
	mu      sync.Mutex
	script  []TurnResult
	cursors map[string]int
}

// NewScriptedEngine builds an engine that replays the given results in order,
// tracked per thread key. When the script runs out the last entry repeats;
// an empty script yields a neutral in-progress question.
func NewScriptedEngine(script ...TurnResult) *ScriptedEngine {
	return &ScriptedEngine{
		script:  script,
		cursors: make(map[string]int),
	}
}

// DefaultScript is the offline demo conversation: two probing questions, then
// a grant once the user has engaged for three turns.
func DefaultScript() []TurnResult {
	return []TurnResult{
		{
			Reply:   "Hi! Quick check before I let you in. How has your day been so far?",
			Verdict: &Verdict{Progress: ProgressInProgress, Access: AccessDenied},
		},
		{
			Reply:   "Good to hear. What are you planning to get done this morning?",
			Verdict: &Verdict{Progress: ProgressInProgress, Access: AccessDenied},
		},
		{
			Reply:   "Thanks for confirming. Everything matches up well. You're all set! ACCESS GRANTED",
			Verdict: &Verdict{Progress: ProgressCompleted, Access: AccessGranted},
		},
	}
}

func (s *ScriptedEngine) GenerateTurn(_ context.Context, req TurnRequest) (*TurnResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.script) == 0 {
		return &TurnResult{
			Reply:   fmt.Sprintf("Tell me a bit more, %s.", req.Metadata.Name),
			Verdict: &Verdict{Progress: ProgressInProgress, Access: AccessDenied},
		}, nil
	}

	idx := s.cursors[req.ThreadKey]
	if idx >= len(s.script) {
		idx = len(s.script) - 1
	}
	s.cursors[req.ThreadKey] = idx + 1

	result := s.script[idx]
	if result.Verdict != nil {
		v := *result.Verdict
		result.Verdict = &v
	}
	return &result, nil
}

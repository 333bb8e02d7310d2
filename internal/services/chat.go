package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bankportal/backend/internal/engine"
	"github.com/bankportal/backend/pkg/logger"
)

// ChatService runs the "Work Padi" daily-conversation agent that builds an
// employee's communication profile. Conversations are keyed by the sender's
// WhatsApp address; transcripts are process-local, like the verification
// transcripts.
type ChatService struct {
	Engine        engine.Engine
	EngineTimeout time.Duration

	mu          sync.Mutex
	transcripts map[string][]engine.Turn
}

func NewChatService(eng engine.Engine, engineTimeout time.Duration) *ChatService {
	if engineTimeout <= 0 {
		engineTimeout = 30 * time.Second
	}
	return &ChatService{
		Engine:        eng,
		EngineTimeout: engineTimeout,
		transcripts:   make(map[string][]engine.Turn),
	}
}

// Exchange appends the sender's message, asks the engine for the next turn
// and returns the reply. Each sender has an independent thread.
func (s *ChatService) Exchange(ctx context.Context, from, name, message string) (string, error) {
	s.mu.Lock()
	transcript := make([]engine.Turn, len(s.transcripts[from]), len(s.transcripts[from])+1)
	copy(transcript, s.transcripts[from])
	s.mu.Unlock()

	userTurn := engine.Turn{Role: engine.RoleUser, Content: message, Timestamp: time.Now()}
	transcript = append(transcript, userTurn)

	engineCtx, cancel := context.WithTimeout(ctx, s.EngineTimeout)
	defer cancel()

	result, err := s.Engine.GenerateTurn(engineCtx, engine.TurnRequest{
		Instruction: engine.WorkPadiInstruction,
		Transcript:  transcript,
		Metadata:    engine.Metadata{Name: name},
		ThreadKey:   "chat:" + from,
	})
	if err != nil {
		logger.Error("chat_engine_failed", err, map[string]interface{}{"from": from})
		return "", fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}

	agentTurn := engine.Turn{Role: engine.RoleAgent, Content: result.Reply, Timestamp: time.Now()}

	s.mu.Lock()
	s.transcripts[from] = append(s.transcripts[from], userTurn, agentTurn)
	s.mu.Unlock()

	return result.Reply, nil
}

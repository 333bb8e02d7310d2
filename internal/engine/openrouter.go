package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bankportal/backend/pkg/logger"
)

const (
	defaultTimeout = 30 * time.Second

	// retryBaseDelay is the base delay for exponential backoff.
	retryBaseDelay = 500 * time.Millisecond

	// maxResponseSize caps response bodies to guard against runaway replies.
	maxResponseSize = 4 * 1024 * 1024
)

// ErrNotConfigured indicates the API key is not set.
var ErrNotConfigured = errors.New("engine API key not configured")

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

// structuredReply is the JSON object the instruction asks the model to emit.
type structuredReply struct {
	Progress string `json:"progress"`
	Access   string `json:"access"`
	Response string `json:"response"`
}

// OpenRouterEngine calls an OpenRouter-compatible chat completions endpoint.
type OpenRouterEngine struct {
	apiKey     string
	baseURL    string
	model      string
	maxRetries int
	httpClient *http.Client
}

type OpenRouterOption func(*OpenRouterEngine)

func WithBaseURL(url string) OpenRouterOption {
	return func(e *OpenRouterEngine) { e.baseURL = strings.TrimRight(url, "/") }
}

func WithModel(model string) OpenRouterOption {
	return func(e *OpenRouterEngine) { e.model = model }
}

func WithTimeout(timeout time.Duration) OpenRouterOption {
	return func(e *OpenRouterEngine) { e.httpClient.Timeout = timeout }
}

func WithMaxRetries(n int) OpenRouterOption {
	return func(e *OpenRouterEngine) { e.maxRetries = n }
}

func NewOpenRouterEngine(apiKey string, opts ...OpenRouterOption) *OpenRouterEngine {
	e := &OpenRouterEngine{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    "https://openrouter.ai/api/v1",
		model:      "anthropic/claude-3-haiku",
		maxRetries: 2,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *OpenRouterEngine) GenerateTurn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	if e.apiKey == "" {
		return nil, ErrNotConfigured
	}

	messages := make([]chatMessage, 0, len(req.Transcript)+2)
	messages = append(messages, chatMessage{Role: "system", Content: req.Instruction})

	if ctxMsg := metadataContext(req.Metadata); ctxMsg != "" {
		messages = append(messages, chatMessage{Role: "system", Content: ctxMsg})
	}

	for _, turn := range req.Transcript {
		role := "user"
		if turn.Role == RoleAgent {
			role = "assistant"
		}
		messages = append(messages, chatMessage{Role: role, Content: turn.Content})
	}

	body, err := json.Marshal(chatRequest{
		Model:       e.model,
		Messages:    messages,
		Temperature: 0.7,
		MaxTokens:   512,
	})
	if err != nil {
		return nil, err
	}

	content, err := e.complete(ctx, body)
	if err != nil {
		return nil, err
	}

	return parseReply(content), nil
}

func (e *OpenRouterEngine) complete(ctx context.Context, body []byte) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			delay := retryBaseDelay << (attempt - 1)
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
			case <-time.After(delay):
			}
		}

		content, retryable, err := e.doRequest(ctx, body)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if !retryable {
			break
		}
		logger.Warn("engine_request_retry", map[string]interface{}{
			"attempt": attempt + 1,
			"error":   err.Error(),
		})
	}
	return "", fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func (e *OpenRouterEngine) doRequest(ctx context.Context, body []byte) (content string, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", true, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", true, err
	}

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return "", retryable, fmt.Errorf("engine returned HTTP %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", false, fmt.Errorf("decoding engine response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", false, fmt.Errorf("engine returned no choices")
	}

	return parsed.Choices[0].Message.Content, false, nil
}

// parseReply extracts the structured verdict when the model honored the JSON
// format, otherwise returns the raw text so the caller can fall back to
// marker scanning.
func parseReply(content string) *TurnResult {
	trimmed := strings.TrimSpace(content)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var structured structuredReply
	if err := json.Unmarshal([]byte(trimmed), &structured); err == nil && structured.Response != "" {
		result := &TurnResult{Reply: structured.Response}
		if structured.Progress != "" && structured.Access != "" {
			result.Verdict = &Verdict{
				Progress: Progress(strings.ToUpper(structured.Progress)),
				Access:   Access(strings.ToUpper(structured.Access)),
			}
		}
		return result
	}

	return &TurnResult{Reply: content}
}

func metadataContext(m Metadata) string {
	parts := make([]string, 0, 8)
	add := func(label, value string) {
		if value != "" {
			parts = append(parts, label+": "+value)
		}
	}
	add("Employee ID", m.EmployeeID)
	add("Name", m.Name)
	add("IP", m.IP)
	add("Location", m.Location)
	add("Device", m.Device)
	add("Browser", m.Browser)
	add("OS", m.OS)
	add("Network health", m.NetworkHealth)

	if len(parts) == 0 {
		return ""
	}
	return "Metadata observed for this request:\n" + strings.Join(parts, "\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

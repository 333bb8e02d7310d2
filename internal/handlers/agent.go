package handlers

import (
	"strings"

	"github.com/bankportal/backend/internal/engine"
	"github.com/bankportal/backend/internal/middleware"
	"github.com/bankportal/backend/internal/notify"
	"github.com/bankportal/backend/internal/services"
	"github.com/bankportal/backend/pkg/logger"
	"github.com/bankportal/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type AgentHandler struct {
	Verification *services.VerificationService
	Chat         *services.ChatService
	Notifier     notify.Notifier
}

func NewAgentHandler(verification *services.VerificationService, chat *services.ChatService, notifier notify.Notifier) *AgentHandler {
	return &AgentHandler{Verification: verification, Chat: chat, Notifier: notifier}
}

type securityTurnRequest struct {
	Message string `json:"message"`
	clientMetadata
}

// SecurityTurn is step three of the protocol: one free-form exchange with
// the verification agent. The response status tells the client whether to
// keep talking ("pending"), give up ("denied") or proceed with the issued
// token ("granted").
func (h *AgentHandler) SecurityTurn(c *fiber.Ctx) error {
	var req securityTurnRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		return utils.Error(c, fiber.StatusBadRequest, "message is required")
	}

	sid := middleware.GetCallerSID(c)
	outcome, err := h.Verification.SubmitVerificationTurn(c.Context(), sid, req.Message, req.clientMetadata.toEngine(c))
	if err != nil {
		return authError(c, err)
	}

	payload := fiber.Map{
		"message": outcome.Reply,
		"status":  statusLabel(outcome.Outcome),
	}
	if outcome.Outcome == engine.OutcomeGranted {
		payload["token"] = outcome.Token
		payload["employee"] = outcome.Employee
	}

	return utils.Success(c, fiber.StatusOK, payload)
}

func statusLabel(outcome engine.Outcome) string {
	switch outcome {
	case engine.OutcomeGranted:
		return "granted"
	case engine.OutcomeDenied:
		return "denied"
	case engine.OutcomePartial:
		return "partial"
	default:
		return "pending"
	}
}

// ChatWebhook receives inbound WhatsApp messages from the messaging
// provider as form posts. The reply goes back out of band through the
// notifier, so the webhook itself just acknowledges receipt.
func (h *AgentHandler) ChatWebhook(c *fiber.Ctx) error {
	from := strings.TrimSpace(c.FormValue("From"))
	body := strings.TrimSpace(c.FormValue("Body"))
	name := strings.TrimSpace(c.FormValue("ProfileName"))

	if from == "" || body == "" {
		return utils.Error(c, fiber.StatusBadRequest, "From and Body are required")
	}

	reply, err := h.Chat.Exchange(c.Context(), from, name, body)
	if err != nil {
		logger.Error("chat_exchange_failed", err, map[string]interface{}{"from": from})
		return c.SendStatus(fiber.StatusNoContent)
	}

	if h.Notifier != nil {
		if err := h.Notifier.Send(c.Context(), from, reply); err != nil {
			logger.Error("chat_reply_send_failed", err, map[string]interface{}{"from": from})
		}
	}

	return c.SendStatus(fiber.StatusNoContent)
}

package handlers

import (
	"strings"

	"github.com/bankportal/backend/internal/middleware"
	"github.com/bankportal/backend/internal/services"
	"github.com/bankportal/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	Verification *services.VerificationService
}

func NewAuthHandler(verification *services.VerificationService) *AuthHandler {
	return &AuthHandler{Verification: verification}
}

type loginRequest struct {
	EmployeeID string `json:"employeeId"`
	Password   string `json:"password"`
}

// Login is step one of the protocol. Success does not authenticate; it
// opens a pending attempt and tells the client to proceed to the OTP step.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.EmployeeID = strings.TrimSpace(req.EmployeeID)
	if req.EmployeeID == "" || req.Password == "" {
		return utils.Error(c, fiber.StatusBadRequest, "employeeId and password are required")
	}

	sid := middleware.GetCallerSID(c)
	if err := h.Verification.SubmitCredentials(c.Context(), sid, req.EmployeeID, req.Password); err != nil {
		return authError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"nextStep": "otp",
		"message":  "Credentials verified. Enter the one-time code sent to your registered device.",
	})
}

type verifyOTPRequest struct {
	OTP string `json:"otp"`
}

// VerifyOTP is step two. The attempt must currently sit at the
// credentials-verified step; anything else is rejected.
func (h *AuthHandler) VerifyOTP(c *fiber.Ctx) error {
	var req verifyOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.OTP = strings.TrimSpace(req.OTP)
	if req.OTP == "" {
		return utils.Error(c, fiber.StatusBadRequest, "otp is required")
	}

	sid := middleware.GetCallerSID(c)
	if err := h.Verification.SubmitOneTimeCode(sid, req.OTP); err != nil {
		return authError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"nextStep": "security",
		"message":  "Code accepted. Complete the security conversation to finish signing in.",
	})
}

// Logout deletes the bearer session if one exists and drops any pending
// attempt for this caller. It always succeeds.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if token := middleware.GetCurrentToken(c); token != "" {
		if err := h.Verification.Logout(token); err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "failed to end session")
		}
	}

	h.Verification.Abandon(middleware.GetCallerSID(c))

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"message": "Logged out",
	})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	employee := middleware.GetCurrentEmployee(c)
	if employee == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "not authenticated")
	}
	return utils.Success(c, fiber.StatusOK, employee)
}

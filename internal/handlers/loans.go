package handlers

import (
	"github.com/bankportal/backend/internal/middleware"
	"github.com/bankportal/backend/internal/models"
	"github.com/bankportal/backend/internal/services"
	"github.com/bankportal/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type LoansHandler struct {
	DB    *gorm.DB
	Audit *services.AuditService
}

func NewLoansHandler(db *gorm.DB, audit *services.AuditService) *LoansHandler {
	return &LoansHandler{DB: db, Audit: audit}
}

func (h *LoansHandler) ListPending(c *fiber.Ctx) error {
	var loans []models.LoanApplication
	if err := h.DB.Where("status = ?", models.ApprovalStatusPending).
		Order("created_at ASC").
		Find(&loans).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing loan applications")
	}
	return utils.Success(c, fiber.StatusOK, loans)
}

func (h *LoansHandler) Approve(c *fiber.Ctx) error {
	return h.decide(c, models.ApprovalStatusApproved, "loan.approve")
}

func (h *LoansHandler) Reject(c *fiber.Ctx) error {
	return h.decide(c, models.ApprovalStatusRejected, "loan.reject")
}

// decide moves a pending application to a terminal status. Decisions on
// already-decided applications are rejected rather than overwritten.
func (h *LoansHandler) decide(c *fiber.Ctx, status models.ApprovalStatus, action string) error {
	loanID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid loan id")
	}

	var loan models.LoanApplication
	if err := h.DB.First(&loan, "id = ?", loanID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "loan application not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching loan application")
	}

	if loan.Status != models.ApprovalStatusPending {
		return utils.Error(c, fiber.StatusConflict, "loan application already decided")
	}

	if err := h.DB.Model(&loan).Update("status", status).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating loan application")
	}

	employee := middleware.GetCurrentEmployee(c)
	h.Audit.LogAsync(services.AuditEntry{
		EmployeeID: &employee.ID,
		Action:     action,
		Details:    map[string]interface{}{"loan_number": loan.LoanNumber},
		IPAddress:  c.IP(),
	})

	return utils.Success(c, fiber.StatusOK, loan)
}

package handlers

import (
	"github.com/bankportal/backend/internal/middleware"
	"github.com/bankportal/backend/internal/models"
	"github.com/bankportal/backend/internal/services"
	"github.com/bankportal/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type TransfersHandler struct {
	DB    *gorm.DB
	Audit *services.AuditService
}

func NewTransfersHandler(db *gorm.DB, audit *services.AuditService) *TransfersHandler {
	return &TransfersHandler{DB: db, Audit: audit}
}

func (h *TransfersHandler) ListPending(c *fiber.Ctx) error {
	var transfers []models.TransferRequest
	if err := h.DB.Where("status = ?", models.ApprovalStatusPending).
		Order("created_at ASC").
		Find(&transfers).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing transfer requests")
	}
	return utils.Success(c, fiber.StatusOK, transfers)
}

func (h *TransfersHandler) Approve(c *fiber.Ctx) error {
	return h.decide(c, models.ApprovalStatusApproved, "transfer.approve")
}

func (h *TransfersHandler) Reject(c *fiber.Ctx) error {
	return h.decide(c, models.ApprovalStatusRejected, "transfer.reject")
}

func (h *TransfersHandler) decide(c *fiber.Ctx, status models.ApprovalStatus, action string) error {
	transferID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid transfer id")
	}

	var transfer models.TransferRequest
	if err := h.DB.First(&transfer, "id = ?", transferID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "transfer request not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching transfer request")
	}

	if transfer.Status != models.ApprovalStatusPending {
		return utils.Error(c, fiber.StatusConflict, "transfer request already decided")
	}

	if err := h.DB.Model(&transfer).Update("status", status).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating transfer request")
	}

	employee := middleware.GetCurrentEmployee(c)
	h.Audit.LogAsync(services.AuditEntry{
		EmployeeID: &employee.ID,
		Action:     action,
		Details:    map[string]interface{}{"transaction_number": transfer.TransactionNumber},
		IPAddress:  c.IP(),
	})

	return utils.Success(c, fiber.StatusOK, transfer)
}

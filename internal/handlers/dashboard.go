package handlers

import (
	"github.com/bankportal/backend/internal/models"
	"github.com/bankportal/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type DashboardHandler struct {
	DB *gorm.DB
}

func NewDashboardHandler(db *gorm.DB) *DashboardHandler {
	return &DashboardHandler{DB: db}
}

// Stats summarizes the approval queues for the dashboard header. The
// transaction volume and customer count are demo fixtures; the portal does
// not own those ledgers.
func (h *DashboardHandler) Stats(c *fiber.Ctx) error {
	var pendingLoans int64
	if err := h.DB.Model(&models.LoanApplication{}).
		Where("status = ?", models.ApprovalStatusPending).
		Count(&pendingLoans).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting pending loans")
	}

	var pendingTransfers int64
	if err := h.DB.Model(&models.TransferRequest{}).
		Where("status = ?", models.ApprovalStatusPending).
		Count(&pendingTransfers).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting pending transfers")
	}

	var loansProcessed int64
	if err := h.DB.Model(&models.LoanApplication{}).
		Where("status <> ?", models.ApprovalStatusPending).
		Count(&loansProcessed).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting processed loans")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"pendingApprovals":  pendingLoans + pendingTransfers,
		"loansProcessed":    loansProcessed,
		"totalTransactions": "₦2.4M",
		"activeCustomers":   1247,
	})
}

package handlers

import (
	"github.com/bankportal/backend/internal/middleware"
	"github.com/bankportal/backend/internal/models"
	"github.com/bankportal/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type ActivitiesHandler struct {
	DB *gorm.DB
}

func NewActivitiesHandler(db *gorm.DB) *ActivitiesHandler {
	return &ActivitiesHandler{DB: db}
}

func (h *ActivitiesHandler) List(c *fiber.Ctx) error {
	employee := middleware.GetCurrentEmployee(c)

	limit := c.QueryInt("limit", 10)
	if limit < 1 || limit > 100 {
		limit = 10
	}

	var activities []models.Activity
	if err := h.DB.Where("employee_id = ?", employee.ID).
		Order("created_at DESC").
		Limit(limit).
		Find(&activities).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing activities")
	}

	return utils.Success(c, fiber.StatusOK, activities)
}

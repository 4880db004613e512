package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/visahub/crm-service/internal/auth"
	"github.com/visahub/crm-service/internal/service"
	apperrors "github.com/visahub/crm-service/pkg/util"
)

// DashboardHandler serves aggregated stats.
type DashboardHandler struct {
	dashboard *service.DashboardService
}

// NewDashboardHandler constructs handler.
func NewDashboardHandler(dashboard *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// Stats GET /dashboard/stats.
func (h *DashboardHandler) Stats(c *fiber.Ctx) error {
	actor, ok := auth.ProfileFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	stats, err := h.dashboard.Stats(c.Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}

package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/visahub/crm-service/internal/api/dto"
	"github.com/visahub/crm-service/internal/observability"
	"github.com/visahub/crm-service/internal/service"
	apperrors "github.com/visahub/crm-service/pkg/util"
)

// InquiryHandler accepts unauthenticated website inquiries.
type InquiryHandler struct {
	leads   *service.LeadService
	metrics *observability.Metrics
}

// NewInquiryHandler constructs handler.
func NewInquiryHandler(leads *service.LeadService, metrics *observability.Metrics) *InquiryHandler {
	return &InquiryHandler{leads: leads, metrics: metrics}
}

// Submit POST /inquiries.
func (h *InquiryHandler) Submit(c *fiber.Ctx) error {
	var req dto.InquiryRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	lead, err := h.leads.CreateLead(c.Context(), nil, req.ToInput())
	if err != nil {
		return err
	}
	h.metrics.RecordLeadCreated()
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewLeadResponse(lead)})
}

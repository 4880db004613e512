package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/visahub/crm-service/internal/api/dto"
	"github.com/visahub/crm-service/internal/auth"
	"github.com/visahub/crm-service/internal/domain"
	"github.com/visahub/crm-service/internal/observability"
	"github.com/visahub/crm-service/internal/service"
	apperrors "github.com/visahub/crm-service/pkg/util"
)

// AppointmentsHandler manages appointment scheduling endpoints.
type AppointmentsHandler struct {
	appointments *service.AppointmentService
	metrics      *observability.Metrics
}

// NewAppointmentsHandler constructs handler.
func NewAppointmentsHandler(appointments *service.AppointmentService, metrics *observability.Metrics) *AppointmentsHandler {
	return &AppointmentsHandler{appointments: appointments, metrics: metrics}
}

// CreateAppointment POST /appointments.
func (h *AppointmentsHandler) CreateAppointment(c *fiber.Ctx) error {
	actor, ok := auth.ProfileFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateAppointmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	appointment, err := h.appointments.Create(c.Context(), actor, req.ToInput())
	if err != nil {
		return err
	}
	h.metrics.RecordAppointmentScheduled()
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewAppointmentResponse(appointment)})
}

// ListAppointments GET /appointments.
func (h *AppointmentsHandler) ListAppointments(c *fiber.Ctx) error {
	actor, ok := auth.ProfileFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	appointments, err := h.appointments.List(c.Context(), actor, parseAppointmentQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAppointmentListResponse(appointments)})
}

// GetAppointment GET /appointments/:id.
func (h *AppointmentsHandler) GetAppointment(c *fiber.Ctx) error {
	actor, ok := auth.ProfileFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	appointment, err := h.appointments.Get(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAppointmentResponse(appointment)})
}

// UpdateAppointment PATCH /appointments/:id.
func (h *AppointmentsHandler) UpdateAppointment(c *fiber.Ctx) error {
	actor, ok := auth.ProfileFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateAppointmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	appointment, err := h.appointments.Update(c.Context(), actor, c.Params("id"), req.ToPatch())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAppointmentResponse(appointment)})
}

// UpdateAppointmentStatus POST /appointments/:id/status.
func (h *AppointmentsHandler) UpdateAppointmentStatus(c *fiber.Ctx) error {
	actor, ok := auth.ProfileFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateAppointmentStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	appointment, err := h.appointments.UpdateStatus(c.Context(), actor, c.Params("id"), domain.AppointmentStatus(req.Status))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAppointmentResponse(appointment)})
}

func parseAppointmentQuery(c *fiber.Ctx) service.AppointmentListFilter {
	filter := service.AppointmentListFilter{}
	if leadID := c.Query("lead_id"); leadID != "" {
		filter.LeadID = &leadID
	}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.AppointmentStatus(strings.TrimSpace(part)))
		}
	}
	if from := parseTime(c.Query("scheduled_from")); from != nil {
		filter.ScheduledFrom = from
	}
	if to := parseTime(c.Query("scheduled_to")); to != nil {
		filter.ScheduledTo = to
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

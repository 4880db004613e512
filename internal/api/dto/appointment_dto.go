package dto

import (
	"time"

	"github.com/visahub/crm-service/internal/domain"
	"github.com/visahub/crm-service/internal/service"
)

// CreateAppointmentRequest books a consultation slot.
type CreateAppointmentRequest struct {
	LeadID          string    `json:"lead_id"`
	ConsultantID    *string   `json:"consultant_id,omitempty"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	DurationMinutes int       `json:"duration_minutes,omitempty"`
	Notes           *string   `json:"notes,omitempty"`
}

// ToInput converts the request into a service input.
func (r CreateAppointmentRequest) ToInput() service.AppointmentCreateInput {
	return service.AppointmentCreateInput{
		LeadID:          r.LeadID,
		ConsultantID:    r.ConsultantID,
		ScheduledAt:     r.ScheduledAt,
		DurationMinutes: r.DurationMinutes,
		Notes:           r.Notes,
	}
}

// UpdateAppointmentRequest carries reschedule edits.
type UpdateAppointmentRequest struct {
	ConsultantID    *string    `json:"consultant_id,omitempty"`
	ScheduledAt     *time.Time `json:"scheduled_at,omitempty"`
	DurationMinutes *int       `json:"duration_minutes,omitempty"`
	Notes           *string    `json:"notes,omitempty"`
}

// ToPatch converts the request into a service patch.
func (r UpdateAppointmentRequest) ToPatch() service.AppointmentPatch {
	return service.AppointmentPatch{
		ConsultantID:    r.ConsultantID,
		ScheduledAt:     r.ScheduledAt,
		DurationMinutes: r.DurationMinutes,
		Notes:           r.Notes,
	}
}

// UpdateAppointmentStatusRequest transitions the appointment lifecycle.
type UpdateAppointmentStatusRequest struct {
	Status string `json:"status"`
}

// AppointmentResponse is the wire representation of an appointment.
type AppointmentResponse struct {
	ID              string    `json:"id"`
	LeadID          string    `json:"lead_id"`
	ConsultantID    *string   `json:"consultant_id,omitempty"`
	CreatedBy       string    `json:"created_by"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	DurationMinutes int       `json:"duration_minutes"`
	Notes           *string   `json:"notes,omitempty"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewAppointmentResponse maps a domain appointment.
func NewAppointmentResponse(appointment *domain.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:              appointment.ID,
		LeadID:          appointment.LeadID,
		ConsultantID:    appointment.ConsultantID,
		CreatedBy:       appointment.CreatedBy,
		ScheduledAt:     appointment.ScheduledAt,
		DurationMinutes: appointment.DurationMinutes,
		Notes:           appointment.Notes,
		Status:          string(appointment.Status),
		CreatedAt:       appointment.CreatedAt,
		UpdatedAt:       appointment.UpdatedAt,
	}
}

// NewAppointmentListResponse maps an appointment slice.
func NewAppointmentListResponse(appointments []domain.Appointment) []AppointmentResponse {
	result := make([]AppointmentResponse, 0, len(appointments))
	for i := range appointments {
		result = append(result, NewAppointmentResponse(&appointments[i]))
	}
	return result
}

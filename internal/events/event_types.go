package events

import (
	"time"

	"github.com/visahub/crm-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventLeadCreated              EventType = "lead_created"
	EventLeadAssigned             EventType = "lead_assigned"
	EventLeadStatusChanged        EventType = "lead_status_changed"
	EventLeadRemarkAdded          EventType = "lead_remark_added"
	EventLeadDeleted              EventType = "lead_deleted"
	EventAppointmentScheduled     EventType = "appointment_scheduled"
	EventAppointmentStatusChanged EventType = "appointment_status_changed"
)

// Actor encapsulates actor metadata for an event. ProfileID is nil for
// system-generated events such as public inquiries.
type Actor struct {
	ProfileID *string      `json:"profile_id,omitempty"`
	Role      *domain.Role `json:"role,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	LeadID    string      `json:"lead_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// LeadCreatedPayload payload.
type LeadCreatedPayload struct {
	FullName string              `json:"full_name"`
	Email    string              `json:"email"`
	Source   string              `json:"source"`
	Priority domain.LeadPriority `json:"priority"`
}

// LeadAssignedPayload payload.
type LeadAssignedPayload struct {
	AgentID   string `json:"agent_id"`
	AgentName string `json:"agent_name"`
}

// LeadStatusChangedPayload payload.
type LeadStatusChangedPayload struct {
	OldStatus domain.LeadStatus `json:"old_status"`
	NewStatus domain.LeadStatus `json:"new_status"`
}

// LeadRemarkAddedPayload payload.
type LeadRemarkAddedPayload struct {
	Preview string `json:"preview"`
}

// AppointmentScheduledPayload payload.
type AppointmentScheduledPayload struct {
	AppointmentID string    `json:"appointment_id"`
	ConsultantID  *string   `json:"consultant_id,omitempty"`
	ScheduledAt   time.Time `json:"scheduled_at"`
}

// AppointmentStatusChangedPayload payload.
type AppointmentStatusChangedPayload struct {
	AppointmentID string                   `json:"appointment_id"`
	OldStatus     domain.AppointmentStatus `json:"old_status"`
	NewStatus     domain.AppointmentStatus `json:"new_status"`
}

package dto

import (
	"time"

	"github.com/visahub/crm-service/internal/domain"
	"github.com/visahub/crm-service/internal/service"
)

// CreateLeadRequest is the staff-facing lead creation payload.
type CreateLeadRequest struct {
	FullName          string  `json:"full_name"`
	Email             string  `json:"email"`
	Phone             *string `json:"phone,omitempty"`
	CountryOfInterest *string `json:"country_of_interest,omitempty"`
	VisaType          *string `json:"visa_type,omitempty"`
	Message           *string `json:"message,omitempty"`
	Priority          string  `json:"priority,omitempty"`
	AssignedAgentID   *string `json:"assigned_agent_id,omitempty"`
}

// ToInput converts the request into a service input.
func (r CreateLeadRequest) ToInput() service.LeadCreateInput {
	return service.LeadCreateInput{
		FullName:          r.FullName,
		Email:             r.Email,
		Phone:             r.Phone,
		CountryOfInterest: r.CountryOfInterest,
		VisaType:          r.VisaType,
		Message:           r.Message,
		Priority:          domain.LeadPriority(r.Priority),
		AssignedAgentID:   r.AssignedAgentID,
		Source:            "dashboard",
	}
}

// InquiryRequest is the public website inquiry payload.
type InquiryRequest struct {
	FullName          string  `json:"full_name"`
	Email             string  `json:"email"`
	Phone             *string `json:"phone,omitempty"`
	CountryOfInterest *string `json:"country_of_interest,omitempty"`
	VisaType          *string `json:"visa_type,omitempty"`
	Message           *string `json:"message,omitempty"`
}

// ToInput converts the inquiry into a service input.
func (r InquiryRequest) ToInput() service.LeadCreateInput {
	return service.LeadCreateInput{
		FullName:          r.FullName,
		Email:             r.Email,
		Phone:             r.Phone,
		CountryOfInterest: r.CountryOfInterest,
		VisaType:          r.VisaType,
		Message:           r.Message,
		Source:            "website",
	}
}

// UpdateLeadRequest carries partial lead edits. Absent fields are left
// untouched.
type UpdateLeadRequest struct {
	FullName          *string `json:"full_name,omitempty"`
	Email             *string `json:"email,omitempty"`
	Phone             *string `json:"phone,omitempty"`
	CountryOfInterest *string `json:"country_of_interest,omitempty"`
	VisaType          *string `json:"visa_type,omitempty"`
	Message           *string `json:"message,omitempty"`
	Priority          *string `json:"priority,omitempty"`
	Status            *string `json:"status,omitempty"`
}

// ToPatch converts the request into a service patch.
func (r UpdateLeadRequest) ToPatch() service.LeadPatch {
	patch := service.LeadPatch{
		FullName:          r.FullName,
		Email:             r.Email,
		Phone:             r.Phone,
		CountryOfInterest: r.CountryOfInterest,
		VisaType:          r.VisaType,
		Message:           r.Message,
	}
	if r.Priority != nil {
		priority := domain.LeadPriority(*r.Priority)
		patch.Priority = &priority
	}
	if r.Status != nil {
		status := domain.LeadStatus(*r.Status)
		patch.Status = &status
	}
	return patch
}

// AssignLeadRequest binds a lead to an agent.
type AssignLeadRequest struct {
	AgentID string `json:"agent_id"`
}

// UpdateLeadStatusRequest transitions the lead lifecycle.
type UpdateLeadStatusRequest struct {
	Status string `json:"status"`
}

// AddRemarkRequest appends a note to the timeline.
type AddRemarkRequest struct {
	Text string `json:"text"`
}

// LeadResponse is the wire representation of a lead.
type LeadResponse struct {
	ID                string    `json:"id"`
	FullName          string    `json:"full_name"`
	Email             string    `json:"email"`
	Phone             *string   `json:"phone,omitempty"`
	CountryOfInterest *string   `json:"country_of_interest,omitempty"`
	VisaType          *string   `json:"visa_type,omitempty"`
	Message           *string   `json:"message,omitempty"`
	Status            string    `json:"status"`
	Priority          string    `json:"priority"`
	AssignedAgentID   *string   `json:"assigned_agent_id,omitempty"`
	Source            string    `json:"source"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// NewLeadResponse maps a domain lead.
func NewLeadResponse(lead *domain.Lead) LeadResponse {
	return LeadResponse{
		ID:                lead.ID,
		FullName:          lead.FullName,
		Email:             lead.Email,
		Phone:             lead.Phone,
		CountryOfInterest: lead.CountryOfInterest,
		VisaType:          lead.VisaType,
		Message:           lead.Message,
		Status:            string(lead.Status),
		Priority:          string(lead.Priority),
		AssignedAgentID:   lead.AssignedAgentID,
		Source:            lead.Source,
		CreatedAt:         lead.CreatedAt,
		UpdatedAt:         lead.UpdatedAt,
	}
}

// NewLeadListResponse maps a lead slice.
func NewLeadListResponse(leads []domain.Lead) []LeadResponse {
	result := make([]LeadResponse, 0, len(leads))
	for i := range leads {
		result = append(result, NewLeadResponse(&leads[i]))
	}
	return result
}

// TimelineEntryResponse is the wire representation of a timeline entry.
type TimelineEntryResponse struct {
	ID        string    `json:"id"`
	LeadID    string    `json:"lead_id"`
	UserID    *string   `json:"user_id,omitempty"`
	EntryType string    `json:"entry_type"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTimelineResponse maps timeline entries.
func NewTimelineResponse(entries []domain.TimelineEntry) []TimelineEntryResponse {
	result := make([]TimelineEntryResponse, 0, len(entries))
	for _, entry := range entries {
		result = append(result, TimelineEntryResponse{
			ID:        entry.ID,
			LeadID:    entry.LeadID,
			UserID:    entry.UserID,
			EntryType: string(entry.EntryType),
			Notes:     entry.Notes,
			CreatedAt: entry.CreatedAt,
		})
	}
	return result
}

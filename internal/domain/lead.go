package domain

import "time"

// LeadStatus enumerates lifecycle states for leads.
type LeadStatus string

const (
	LeadStatusNew                   LeadStatus = "new"
	LeadStatusContacted             LeadStatus = "contacted"
	LeadStatusInterested            LeadStatus = "interested"
	LeadStatusQualified             LeadStatus = "qualified"
	LeadStatusAppointmentScheduled  LeadStatus = "appointment_scheduled"
	LeadStatusConsultationCompleted LeadStatus = "consultation_completed"
	LeadStatusConverted             LeadStatus = "converted"
	LeadStatusRejected              LeadStatus = "rejected"
)

// LeadPriority enumerates follow-up urgency.
type LeadPriority string

const (
	LeadPriorityLow    LeadPriority = "low"
	LeadPriorityMedium LeadPriority = "medium"
	LeadPriorityHigh   LeadPriority = "high"
	LeadPriorityUrgent LeadPriority = "urgent"
)

// Valid reports whether the status is a known value.
func (s LeadStatus) Valid() bool {
	_, ok := leadStatusRank[s]
	return ok
}

// Terminal reports whether no further transitions are allowed.
func (s LeadStatus) Terminal() bool {
	return s == LeadStatusConverted || s == LeadStatusRejected
}

// Valid reports whether the priority is a known value.
func (p LeadPriority) Valid() bool {
	switch p {
	case LeadPriorityLow, LeadPriorityMedium, LeadPriorityHigh, LeadPriorityUrgent:
		return true
	}
	return false
}

// leadStatusRank orders the qualification pipeline. Transitions only move
// forward; rejected is reachable from any non-terminal state.
var leadStatusRank = map[LeadStatus]int{
	LeadStatusNew:                   0,
	LeadStatusContacted:             1,
	LeadStatusInterested:            2,
	LeadStatusQualified:             3,
	LeadStatusAppointmentScheduled:  4,
	LeadStatusConsultationCompleted: 5,
	LeadStatusConverted:             6,
	LeadStatusRejected:              7,
}

// CanTransitionTo validates a lead status change. Skipping forward through
// the pipeline is allowed; moving backward is not.
func (s LeadStatus) CanTransitionTo(next LeadStatus) bool {
	if s.Terminal() || !next.Valid() || next == s {
		return false
	}
	return leadStatusRank[next] > leadStatusRank[s]
}

// Lead is the aggregate for a prospective client inquiry.
type Lead struct {
	ID                string
	FullName          string
	Email             string
	Phone             *string
	CountryOfInterest *string
	VisaType          *string
	Message           *string
	Status            LeadStatus
	Priority          LeadPriority
	AssignedAgentID   *string
	Source            string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

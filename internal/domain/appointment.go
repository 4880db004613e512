package domain

import "time"

// AppointmentStatus enumerates appointment lifecycle states.
type AppointmentStatus string

const (
	AppointmentStatusScheduled   AppointmentStatus = "scheduled"
	AppointmentStatusCompleted   AppointmentStatus = "completed"
	AppointmentStatusCancelled   AppointmentStatus = "cancelled"
	AppointmentStatusRescheduled AppointmentStatus = "rescheduled"
)

// Valid reports whether the status is a known value.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusScheduled, AppointmentStatusCompleted,
		AppointmentStatusCancelled, AppointmentStatusRescheduled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed.
func (s AppointmentStatus) Terminal() bool {
	return s == AppointmentStatusCompleted || s == AppointmentStatusCancelled
}

var allowedAppointmentTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentStatusScheduled:   {AppointmentStatusCompleted, AppointmentStatusCancelled, AppointmentStatusRescheduled},
	AppointmentStatusRescheduled: {AppointmentStatusScheduled, AppointmentStatusCancelled},
	AppointmentStatusCompleted:   {},
	AppointmentStatusCancelled:   {},
}

// CanTransitionTo validates an appointment status change.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	for _, candidate := range allowedAppointmentTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// DefaultAppointmentDuration is applied when no duration is supplied.
const DefaultAppointmentDuration = 60

// Appointment is a scheduled meeting between a lead and a consultant.
type Appointment struct {
	ID              string
	LeadID          string
	ConsultantID    *string
	CreatedBy       string
	ScheduledAt     time.Time
	DurationMinutes int
	Notes           *string
	Status          AppointmentStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

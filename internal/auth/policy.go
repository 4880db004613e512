package auth

import "github.com/visahub/crm-service/internal/domain"

// LeadScope restricts which leads an actor may see. Exactly one of the
// restriction fields is set for non-admin actors.
type LeadScope struct {
	All             bool
	AssignedAgentID *string
	ConsultantID    *string
}

// AppointmentScope restricts which appointments an actor may see.
type AppointmentScope struct {
	All          bool
	ConsultantID *string
	AgentID      *string
}

// VisibleLeadScope is the single source of lead visibility rules:
// admins see everything, agents see their assigned leads, consultants see
// leads referenced by their own appointments.
func VisibleLeadScope(actor *domain.Profile) LeadScope {
	switch actor.Role {
	case domain.RoleAdmin:
		return LeadScope{All: true}
	case domain.RoleConsultant:
		return LeadScope{ConsultantID: &actor.ID}
	default:
		return LeadScope{AssignedAgentID: &actor.ID}
	}
}

// VisibleAppointmentScope is the single source of appointment visibility
// rules: admins see everything, consultants their own appointments, agents
// the appointments of their assigned leads.
func VisibleAppointmentScope(actor *domain.Profile) AppointmentScope {
	switch actor.Role {
	case domain.RoleAdmin:
		return AppointmentScope{All: true}
	case domain.RoleConsultant:
		return AppointmentScope{ConsultantID: &actor.ID}
	default:
		return AppointmentScope{AgentID: &actor.ID}
	}
}

// CanViewLeadDirect resolves visibility for a loaded lead without extra
// queries. Consultant visibility depends on appointment links and must be
// resolved by the caller; this returns false for consultants.
func CanViewLeadDirect(actor *domain.Profile, lead *domain.Lead) bool {
	switch actor.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleAgent:
		return lead.AssignedAgentID != nil && *lead.AssignedAgentID == actor.ID
	default:
		return false
	}
}

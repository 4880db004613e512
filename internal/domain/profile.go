package domain

import "time"

// Role enumerates staff roles within the consultancy.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleAgent      Role = "agent"
	RoleConsultant Role = "consultant"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleAgent, RoleConsultant:
		return true
	}
	return false
}

// CanOwnLeads reports whether a profile with this role may be set as a
// lead's assigned agent.
func (r Role) CanOwnLeads() bool {
	return r == RoleAgent || r == RoleAdmin
}

// Profile models an authenticated staff identity.
type Profile struct {
	ID           string
	FullName     string
	Email        string
	PasswordHash string
	Role         Role
	AvatarURL    *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

package domain

import "time"

// StaffRole enumerates field-service operator roles.
type StaffRole string

const (
	StaffRoleTechnician StaffRole = "TECHNICIAN"
	StaffRoleCSO        StaffRole = "CSO"
	StaffRoleDispatcher StaffRole = "DISPATCHER"
	StaffRoleAdmin      StaffRole = "ADMIN"
)

// StaffMember models a technician, customer service officer, dispatcher or administrator.
type StaffMember struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         StaffRole
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Actor returns the identity recorded in follow-up history.
func (s *StaffMember) Actor() Actor {
	return Actor{ID: s.ID, Name: s.Name}
}

// HasRole reports whether the staff member holds one of roles.
func (s *StaffMember) HasRole(roles ...StaffRole) bool {
	if s == nil {
		return false
	}
	for _, r := range roles {
		if s.Role == r {
			return true
		}
	}
	return false
}

package domain

import "time"

// Token represents issued authentication token metadata.
type Token struct {
	ID        string
	StaffID   string
	Role      StaffRole
	ExpiresAt time.Time
	IssuedAt  time.Time
}

package entity

import "time"

const (
	RoleAdmin     = "admin"
	RoleOrganizer = "organizer"

	OrganizerActive   = "active"
	OrganizerInactive = "inactive"
)

// Organizer is a back-office account. Passwords are stored as bcrypt hashes.
type Organizer struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         string
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsActiveAdmin reports whether the organizer may run the notification functions.
func (o *Organizer) IsActiveAdmin() bool {
	return o != nil && o.Role == RoleAdmin && o.Status == OrganizerActive
}

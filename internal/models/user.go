package models

import "time"

// User represents a registered player or staff member. Staff (instructors and
// coordinators) authenticate with username and password; students are
// identified by name, course and group and are registered on first login.
type User struct {
	ID           string
	Type         string
	Name         string
	Username     string
	PasswordHash string
	Email        string
	Course       string
	Group        string
	CreatedAt    time.Time
}

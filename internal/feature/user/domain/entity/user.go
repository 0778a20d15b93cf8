// Package entity defines the domain entities for the user feature.
package entity

import "time"

// User represents a registered user in the system.
type User struct {
	// ID is the unique identifier for the user.
	ID uint `gorm:"primaryKey"`

	// Email is the user's email address used for authentication.
	// It is stored lowercased and trimmed and must be unique across all users.
	Email string `gorm:"uniqueIndex;size:255;not null"`

	// Password is the bcrypt hash of the user's password.
	// It never leaves the service layer.
	Password string `gorm:"size:255;not null"`

	FirstName string `gorm:"size:100;not null"`
	LastName  string `gorm:"size:100;not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// FullName returns "FirstName LastName".
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

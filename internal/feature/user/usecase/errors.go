// Package usecase implements the business logic for the user feature.
package usecase

import "errors"

var (
	// ErrUserNotFound is returned when a user cannot be found by email or ID.
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailAlreadyExists is returned when attempting to create a user with an email that already exists.
	ErrEmailAlreadyExists = errors.New("email already exists")

	// ErrInvalidPassword is returned when the current password supplied for a change does not match.
	ErrInvalidPassword = errors.New("current password is incorrect")

	// ErrWeakPassword is returned when a new password does not meet the minimum length.
	ErrWeakPassword = errors.New("password must be at least 8 characters long")
)

// Package usecase implements the business logic for the auth feature.
package usecase

import "errors"

var (
	// ErrInvalidCredentials is returned by Login for an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrTokenNotRevocable is returned by Logout when the token carries no token id.
	ErrTokenNotRevocable = errors.New("token cannot be revoked")
)

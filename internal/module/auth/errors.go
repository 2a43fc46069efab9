package auth

import "errors"

// Token verification errors.
var (
	ErrMissingToken       = errors.New("missing token")
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidTokenClaims = errors.New("invalid token claims")
	ErrMissingSecret      = errors.New("token secret not configured")
)

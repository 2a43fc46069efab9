package initiator

import (
	"context"
	"strings"

	"github.com/praxis/server/internal/module/auth"
)

// Session is the authenticated user context the initiator reads from.
type Session struct {
	AccessToken string
	UserID      string
	Email       string
	FullName    string
	CPF         string
	Cellphone   string
}

// SessionSource returns the current session, or ErrNoSession.
type SessionSource interface {
	Session(ctx context.Context) (*Session, error)
}

// SessionFunc adapts a function to SessionSource.
type SessionFunc func(ctx context.Context) (*Session, error)

// Session implements SessionSource.
func (f SessionFunc) Session(ctx context.Context) (*Session, error) {
	return f(ctx)
}

// TokenSession reads the session profile from an identity-provider access token.
type TokenSession struct {
	token string
}

// NewTokenSession creates a TokenSession for token.
func NewTokenSession(token string) *TokenSession {
	return &TokenSession{token: strings.TrimSpace(token)}
}

// Session implements SessionSource.
func (s *TokenSession) Session(context.Context) (*Session, error) {
	if s.token == "" {
		return nil, ErrNoSession
	}
	claims, err := auth.ReadClaims(s.token)
	if err != nil {
		return nil, err
	}
	return &Session{
		AccessToken: s.token,
		UserID:      claims.UserID(),
		Email:       claims.Email,
		FullName:    claims.UserMetadata.FullName,
		CPF:         claims.UserMetadata.CPF,
		Cellphone:   claims.UserMetadata.Cellphone,
	}, nil
}

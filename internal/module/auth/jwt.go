package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// UserMetadata is the profile block the identity provider embeds in session tokens.
type UserMetadata struct {
	FullName  string `json:"full_name,omitempty"`
	CPF       string `json:"cpf,omitempty"`
	Cellphone string `json:"cellphone,omitempty"`
}

// Claims are the session token claims issued by the identity provider.
// The subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
	Email        string       `json:"email,omitempty"`
	Role         string       `json:"role,omitempty"`
	UserMetadata UserMetadata `json:"user_metadata"`
}

// UserID returns the user id carried in the subject claim.
func (c *Claims) UserID() string {
	return c.Subject
}

// Config holds session token settings.
type Config struct {
	Secret   string
	Issuer   string
	Audience string
}

// Verifier checks HS256 session tokens issued by the identity provider.
type Verifier struct {
	config Config
	parser *jwt.Parser
}

// NewVerifier creates a new Verifier.
func NewVerifier(cfg Config) *Verifier {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	return &Verifier{config: cfg, parser: jwt.NewParser(opts...)}
}

// Verify validates the token signature and registered claims and returns its claims.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}
	if v.config.Secret == "" {
		return nil, ErrMissingSecret
	}

	claims := &Claims{}
	token, err := v.parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(v.config.Secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidTokenClaims
	}
	return claims, nil
}

// Signer issues session tokens with the same secret the Verifier checks.
// The identity provider owns issuance in production; `mage token` uses the
// signer to mint development tokens for cmd/subscribe.
type Signer struct {
	config Config
	ttl    time.Duration
}

// NewSigner creates a new Signer.
func NewSigner(cfg Config, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Signer{config: cfg, ttl: ttl}
}

// Sign issues a token for userID with the given email and profile.
func (s *Signer) Sign(userID, email string, meta UserMetadata) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
		Email:        email,
		Role:         "authenticated",
		UserMetadata: meta,
	}
	if s.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{s.config.Audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// ReadClaims decodes token claims without checking the signature.
// Clients use it to read their own session profile; servers must use Verifier.
func ReadClaims(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, ErrInvalidTokenClaims
	}
	return claims, nil
}

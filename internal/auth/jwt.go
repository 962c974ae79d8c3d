package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const sessionTokenType = "session"

var (
	ErrMalformed    = errors.New("malformed session token")
	ErrBadSignature = errors.New("session token signature mismatch")
	ErrExpired      = errors.New("session token expired")
)

type Claims struct {
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// SubjectID is the id of the user the token was issued to.
func (c *Claims) SubjectID() string {
	return c.Subject
}

type Token struct {
	Raw       string
	ID        string
	ExpiresAt time.Time
}

// Manager issues and verifies HS256 session tokens. The secret is fixed at
// construction time and never leaves the struct.
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*Manager)

// WithClock replaces time.Now for issuing and verifying.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

func NewManager(secret []byte, ttl time.Duration, opts ...Option) (*Manager, error) {
	if len(secret) == 0 {
		return nil, errors.New("session secret must not be empty")
	}
	if ttl <= 0 {
		return nil, errors.New("session ttl must be positive")
	}

	m := &Manager{
		secret: append([]byte(nil), secret...),
		ttl:    ttl,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

func (m *Manager) Issue(subjectID string) (Token, error) {
	if subjectID == "" {
		return Token{}, errors.New("subject id is required")
	}

	now := m.now().UTC()
	expiresAt := now.Add(m.ttl)
	jti := uuid.NewString()

	claims := Claims{
		TokenType: sessionTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign session token: %w", err)
	}

	// NumericDate truncates to seconds; report what the token actually says.
	return Token{Raw: raw, ID: jti, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Verify returns the claims of a valid token. Failures are always one of
// ErrMalformed, ErrBadSignature or ErrExpired.
func (m *Manager) Verify(raw string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, classify(err)
	}

	if !token.Valid {
		return nil, ErrMalformed
	}

	if claims.TokenType != sessionTokenType || claims.Subject == "" || claims.ID == "" {
		return nil, ErrMalformed
	}

	return claims, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrBadSignature
	default:
		return ErrMalformed
	}
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/videochat/internal/domain/user"
)

// ErrInvalidCredentials covers both an unknown email and a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

type UserStore interface {
	Create(ctx context.Context, name, email, passwordHash string) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) bool
}

type TokenCodec interface {
	Issue(subjectID string) (Token, error)
	Verify(raw string) (*Claims, error)
}

type LoginResult struct {
	User  user.Profile
	Token Token
}

type Service struct {
	users   UserStore
	hasher  PasswordHasher
	tokens  TokenCodec
	revoker Revoker

	// compared against when the email is unknown so both failure paths cost one bcrypt run
	dummyDigest string
}

// NewService wires the login flow. revoker may be nil, in which case logout
// leaves issued tokens valid until they expire.
func NewService(users UserStore, hasher PasswordHasher, tokens TokenCodec, revoker Revoker) (*Service, error) {
	dummy, err := hasher.Hash("videochat-timing-equalizer")
	if err != nil {
		return nil, fmt.Errorf("prepare dummy digest: %w", err)
	}

	return &Service{
		users:       users,
		hasher:      hasher,
		tokens:      tokens,
		revoker:     revoker,
		dummyDigest: dummy,
	}, nil
}

func (s *Service) Register(ctx context.Context, name, email, password string) (user.Profile, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return user.Profile{}, err
	}

	u, err := s.users.Create(ctx, name, email, hash)
	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			return user.Profile{}, user.ErrEmailTaken
		}
		return user.Profile{}, fmt.Errorf("create user: %w", err)
	}

	return u.Profile(), nil
}

func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			s.hasher.Verify(password, s.dummyDigest)
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("lookup user: %w", err)
	}

	if !s.hasher.Verify(password, u.PasswordHash) {
		return LoginResult{}, ErrInvalidCredentials
	}

	tok, err := s.tokens.Issue(u.ID)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue session token: %w", err)
	}

	return LoginResult{User: u.Profile(), Token: tok}, nil
}

func (s *Service) CurrentIdentity(ctx context.Context, subjectID string) (user.Profile, error) {
	u, err := s.users.GetByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.Profile{}, user.ErrNotFound
		}
		return user.Profile{}, fmt.Errorf("lookup user: %w", err)
	}

	return u.Profile(), nil
}

// Logout denylists the token when a revoker is configured. Without one it
// does nothing and the caller only clears the cookie. Invalid tokens are
// ignored: there is nothing to revoke.
func (s *Service) Logout(ctx context.Context, raw string) error {
	if s.revoker == nil || raw == "" {
		return nil
	}

	claims, err := s.tokens.Verify(raw)
	if err != nil {
		return nil
	}

	if err := s.revoker.Revoke(ctx, claims.ID, claims.SubjectID(), claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}

	return nil
}

// RevocationEnabled reports whether logout invalidates tokens server-side.
func (s *Service) RevocationEnabled() bool {
	return s.revoker != nil
}

// Revoker keeps a denylist of token ids until the tokens would have expired anyway.
type Revoker interface {
	Revoke(ctx context.Context, tokenID, userID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

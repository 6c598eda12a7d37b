// Package auth is the identity provider: sign-up, sign-in, sign-out and
// token resolution. The ledger never inspects credentials; it only ever
// sees the owner id this package resolves from a session token.
package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/badoux/checkmail"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUserNotFound       = errors.New("user not found")
)

// Identity is the authenticated principal. Its ID is the owner key for
// every ledger operation.
type Identity struct {
	ID    string
	Email string
}

// User is the stored account record.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// UserRepository is the persistence port for accounts, implemented by
// internal/storage.
type UserRepository interface {
	// CreateUser inserts u, failing with ErrEmailTaken on duplicates.
	CreateUser(ctx context.Context, u User) error
	// FindUserByEmail fails with ErrUserNotFound when absent.
	FindUserByEmail(ctx context.Context, email string) (User, error)
	FindUserByID(ctx context.Context, id string) (User, error)
}

// Service implements the identity provider over a user repository and a
// JWT manager. Signed-out tokens go into an in-memory revocation set that
// is pruned as entries pass their natural expiry.
type Service struct {
	repo UserRepository
	jwt  *JWTManager

	mu      sync.Mutex
	revoked map[string]time.Time // token -> expiry
}

func NewService(repo UserRepository, jwtManager *JWTManager) *Service {
	return &Service{
		repo:    repo,
		jwt:     jwtManager,
		revoked: make(map[string]time.Time),
	}
}

// SignUp registers a new account. The email must be well-formed and the
// password at least 8 characters.
func (s *Service) SignUp(ctx context.Context, email, password string) (Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := checkmail.ValidateFormat(email); err != nil {
		return Identity{}, ErrInvalidEmail
	}
	if len(password) < 8 {
		return Identity{}, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Identity{}, err
	}
	u := User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return Identity{}, err
	}
	return Identity{ID: u.ID, Email: u.Email}, nil
}

// SignIn verifies credentials and issues a session token. Unknown emails
// and wrong passwords return the same error so accounts cannot be
// enumerated.
func (s *Service) SignIn(ctx context.Context, email, password string) (Identity, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.repo.FindUserByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return Identity{}, "", ErrInvalidCredentials
	}
	if err != nil {
		return Identity{}, "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return Identity{}, "", ErrInvalidCredentials
	}
	token, err := s.jwt.Generate(u.ID)
	if err != nil {
		return Identity{}, "", err
	}
	return Identity{ID: u.ID, Email: u.Email}, token, nil
}

// SignOut revokes a session token. Revoking an already-invalid token is a
// no-op.
func (s *Service) SignOut(token string) {
	_, expiresAt, err := s.jwt.Validate(token)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[token] = expiresAt
	s.pruneLocked()
}

// CurrentIdentity resolves a session token to the identity it belongs to.
func (s *Service) CurrentIdentity(ctx context.Context, token string) (Identity, error) {
	s.mu.Lock()
	_, isRevoked := s.revoked[token]
	s.pruneLocked()
	s.mu.Unlock()
	if isRevoked {
		return Identity{}, ErrInvalidToken
	}

	userID, _, err := s.jwt.Validate(token)
	if err != nil {
		return Identity{}, err
	}
	u, err := s.repo.FindUserByID(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		return Identity{}, ErrInvalidToken
	}
	if err != nil {
		return Identity{}, err
	}
	return Identity{ID: u.ID, Email: u.Email}, nil
}

// pruneLocked drops revocation entries whose tokens have expired anyway.
// Caller holds s.mu.
func (s *Service) pruneLocked() {
	now := time.Now()
	for t, exp := range s.revoked {
		if now.After(exp) {
			delete(s.revoked, t)
		}
	}
}

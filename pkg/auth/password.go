package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/natvps/panel/pkg/logger"
)

// User is the part of an account the password flow needs.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
}

// UserStorage is implemented by internal/store.Users through an adapter
// in cmd/panel. FindByEmail returns ErrUserNotFound for an unknown email.
type UserStorage interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, user *User) error
}

// PasswordAuthenticator checks and creates password credentials.
type PasswordAuthenticator interface {
	Register(ctx context.Context, name, email, password string, isAdmin bool) (*User, error)
	Authenticate(ctx context.Context, email, password string) (*User, error)
}

const (
	minPasswordLength = 8
	maxPasswordLength = 72 // bcrypt ignores anything longer
)

type passwordService struct {
	storage    UserStorage
	bcryptCost int
	logger     *slog.Logger
	dummyHash  []byte
}

// PasswordOption configures the password service.
type PasswordOption func(*passwordService)

// WithBcryptCost sets the bcrypt cost for new hashes.
func WithBcryptCost(cost int) PasswordOption {
	return func(s *passwordService) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.bcryptCost = cost
		}
	}
}

// WithPasswordLogger sets the logger.
func WithPasswordLogger(l *slog.Logger) PasswordOption {
	return func(s *passwordService) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewPasswordService creates a password authenticator.
func NewPasswordService(storage UserStorage, opts ...PasswordOption) PasswordAuthenticator {
	s := &passwordService{
		storage:    storage,
		bcryptCost: bcrypt.DefaultCost,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}

	// Compared against when the email is unknown.
	hash, err := bcrypt.GenerateFromPassword([]byte("panel-timing-equalizer"), s.bcryptCost)
	if err != nil {
		panic(fmt.Sprintf("auth: failed to prepare dummy hash: %v", err))
	}
	s.dummyHash = hash
	return s
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a user with a bcrypt-hashed password.
func (s *passwordService) Register(ctx context.Context, name, email, password string, isAdmin bool) (*User, error) {
	email = NormalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return nil, ErrWeakPassword
	}

	_, err := s.storage.FindByEmail(ctx, email)
	if err == nil {
		return nil, ErrEmailAlreadyExists
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: string(hash),
		IsAdmin:      isAdmin,
	}
	if err := s.storage.Create(ctx, user); err != nil {
		if errors.Is(err, ErrEmailAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.InfoContext(ctx, "user registered",
		logger.Component("auth"),
		logger.UserID(user.ID),
	)
	return user, nil
}

// Authenticate verifies email and password. Any mismatch is
// ErrInvalidCredentials; a wrong password for a known email is a
// *CredentialsError wrapping it. Storage failures are returned wrapped.
func (s *passwordService) Authenticate(ctx context.Context, email, password string) (*User, error) {
	email = NormalizeEmail(email)

	user, err := s.storage.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, &CredentialsError{UserID: user.ID}
	}
	return user, nil
}

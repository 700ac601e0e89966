// Package services – UserService
//
// This file implements the UserService, which manages account registration
// and credential verification. Passwords are digested with a keyed hash
// before they reach the repository; the plain text is never stored or
// logged. Service-level errors (ErrEmailTaken, ErrInvalidCredentials) are
// returned for predictable cases so handlers can map them to HTTP results
// consistently.
package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/go-search-backend/internal/domain"
	"github.com/tbourn/go-search-backend/internal/repo"
)

// UserRepo defines the repository contract required by UserService.
type UserRepo interface {
	// CreateUser inserts a new user row.
	CreateUser(ctx context.Context, db *gorm.DB, u *domain.User) error

	// GetUserByEmail fetches a user by unique email.
	GetUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error)
}

// UserService provides account operations: registration and login.
type UserService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the user repository used by this service.
	Repo UserRepo

	// HashKey is mixed into password digests.
	HashKey string
}

// NewUserService constructs a UserService.
func NewUserService(db *gorm.DB, r UserRepo, hashKey string) *UserService {
	return &UserService{DB: db, Repo: r, HashKey: hashKey}
}

// Register creates a new account. The email is trimmed and lower-cased
// before the uniqueness check; the password is stored as a keyed digest.
// Returns ErrInvalidInput when a field is blank and ErrEmailTaken when
// the email is already registered.
func (s *UserService) Register(ctx context.Context, name, email, password string) (*domain.User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return nil, ErrInvalidInput
	}

	if _, err := s.Repo.GetUserByEmail(ctx, s.DB, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	u := &domain.User{
		Name:     name,
		Email:    email,
		Password: HashString(password, s.HashKey),
	}
	if err := s.Repo.CreateUser(ctx, s.DB, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login verifies the credentials and returns the matching user.
// Returns ErrUserNotFound for an unknown email and ErrInvalidCredentials
// when the password digest does not match.
func (s *UserService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	u, err := s.Repo.GetUserByEmail(ctx, s.DB, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	digest := HashString(password, s.HashKey)
	if subtle.ConstantTimeCompare([]byte(digest), []byte(u.Password)) != 1 {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

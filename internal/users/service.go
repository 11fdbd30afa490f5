package users

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode"

	"calldesk-platform/internal/audit"
	"calldesk-platform/internal/auth"
	"calldesk-platform/internal/config"
	"calldesk-platform/internal/rbac"

	"github.com/google/uuid"
)

var ErrBadCredentials = errors.New("invalid phone number or password")

const minPasswordLen = 8

// Service implements signup/login and profile reads.
type Service struct {
	repo  Repository
	auth  *auth.Manager
	audit *audit.Service
	clock func() time.Time

	initialCredit int64
}

func NewService(repo Repository, authManager *auth.Manager, auditSvc *audit.Service, cfg config.CreditsConfig) *Service {
	initial := cfg.InitialCredit
	if initial <= 0 {
		initial = 1000
	}
	return &Service{
		repo:          repo,
		auth:          authManager,
		audit:         auditSvc,
		clock:         time.Now,
		initialCredit: initial,
	}
}

// SignUp registers an account with the initial credit grant.
func (s *Service) SignUp(ctx context.Context, name, phone, password string) (User, error) {
	if name == "" {
		return User{}, fmt.Errorf("%w: name is required", ErrInvalidArgument)
	}
	if !isTenDigits(phone) {
		return User{}, fmt.Errorf("%w: phone number must be 10 digits", ErrInvalidArgument)
	}
	if len(password) < minPasswordLen {
		return User{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidArgument, minPasswordLen)
	}

	if _, err := s.repo.GetByPhone(ctx, phone); err == nil {
		return User{}, ErrPhoneTaken
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, fmt.Errorf("users: signup lookup: %w", err)
	}

	digest, err := auth.HashPassword(password)
	if err != nil {
		return User{}, fmt.Errorf("users: hash password: %w", err)
	}

	u := User{
		ID:           uuid.NewString(),
		Name:         name,
		PhoneNumber:  phone,
		PasswordHash: digest,
		Role:         rbac.RoleUser,
		Credit:       s.initialCredit,
		SignupTime:   s.clock().UTC(),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return User{}, fmt.Errorf("users: create: %w", err)
	}

	if s.audit != nil {
		_ = s.audit.Append(ctx, audit.Event{
			Type:    audit.EventTypeSignup,
			UserID:  u.ID,
			Message: "account created",
		})
	}
	return u, nil
}

// Login verifies credentials, stamps last_login and issues a token pair.
func (s *Service) Login(ctx context.Context, phone, password string) (User, auth.TokenPair, error) {
	if phone == "" || password == "" {
		return User{}, auth.TokenPair{}, ErrBadCredentials
	}

	u, err := s.repo.GetByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, auth.TokenPair{}, ErrBadCredentials
		}
		return User{}, auth.TokenPair{}, fmt.Errorf("users: login lookup: %w", err)
	}

	if err := auth.VerifyPassword(password, u.PasswordHash); err != nil {
		if errors.Is(err, auth.ErrWrongPassword) {
			return User{}, auth.TokenPair{}, ErrBadCredentials
		}
		return User{}, auth.TokenPair{}, fmt.Errorf("users: verify password: %w", err)
	}

	now := s.clock().UTC()
	// Best-effort; a failed stamp must not block the login.
	if err := s.repo.UpdateLastLogin(ctx, u.ID, now); err == nil {
		u.LastLogin = &now
	}

	pair, err := s.auth.IssuePair(now, u.ID, u.Role)
	if err != nil {
		return User{}, auth.TokenPair{}, fmt.Errorf("users: issue tokens: %w", err)
	}

	if s.audit != nil {
		_ = s.audit.Append(ctx, audit.Event{
			Type:    audit.EventTypeLogin,
			UserID:  u.ID,
			Message: "login",
		})
	}
	return u, pair, nil
}

// Get returns an account by id.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	if id == "" {
		return User{}, ErrInvalidArgument
	}
	return s.repo.GetByID(ctx, id)
}

func isTenDigits(number string) bool {
	if len(number) != 10 {
		return false
	}
	for _, r := range number {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

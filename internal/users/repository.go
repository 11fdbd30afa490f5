package users

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("user not found")
	ErrPhoneTaken      = errors.New("phone number already registered")
	ErrInvalidArgument = errors.New("invalid argument")
)

// Repository abstracts account persistence. PhoneNumber is the login key
// and must be unique.
type Repository interface {
	Create(ctx context.Context, u User) error
	GetByID(ctx context.Context, id string) (User, error)
	GetByPhone(ctx context.Context, phone string) (User, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
}

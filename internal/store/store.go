package store

import (
	"context"
	"errors"
	"time"

	"github.com/chitrakala/auth-service/internal/models"
)

// ErrUserExists is returned by CreateUser when the phone number is already
// registered. Concurrent get-or-create callers retry the lookup on it.
var ErrUserExists = errors.New("user already exists")

// ErrUserNotFound is returned by mutations that require an existing user.
var ErrUserNotFound = errors.New("user not found")

// Store is the persistence backend for users and sessions. Point lookups
// return (nil, nil) when the record is absent; callers cannot distinguish an
// expired session from one that never existed.
//
// Three implementations exist: postgres (durable), dynamo (durable) and
// memory (the fallback used when no durable store is reachable). All expose
// identical record shapes so callers are backend-agnostic.
type Store interface {
	CreateUser(ctx context.Context, phoneNumber string) (*models.User, error)
	GetUserByPhone(ctx context.Context, phoneNumber string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdateUserLanguage(ctx context.Context, id, language string) error

	CreateSession(ctx context.Context, userID, token string, expiresAt time.Time) (*models.Session, error)
	GetSessionByToken(ctx context.Context, token string) (*models.Session, error)
	DeleteSession(ctx context.Context, token string) error

	Ping(ctx context.Context) error
	Close() error
}

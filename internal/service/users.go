package service

import (
	"context"
	"errors"

	"github.com/chitrakala/auth-service/internal/models"
	"github.com/chitrakala/auth-service/internal/store"
	"github.com/sirupsen/logrus"
)

// Users is the directory of identities keyed by phone number.
type Users struct {
	store  store.Store
	logger *logrus.Logger
}

func NewUsers(st store.Store, logger *logrus.Logger) *Users {
	return &Users{store: st, logger: logger}
}

// GetOrCreate looks the phone number up and creates the user on a miss.
// Concurrent requests for the same unseen number can both pass the lookup
// and race on the unique-phone constraint; the loser retries the lookup
// once instead of failing the flow.
func (u *Users) GetOrCreate(ctx context.Context, phoneNumber string) (*models.User, error) {
	user, err := u.store.GetUserByPhone(ctx, phoneNumber)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}

	user, err = u.store.CreateUser(ctx, phoneNumber)
	if errors.Is(err, store.ErrUserExists) {
		return u.store.GetUserByPhone(ctx, phoneNumber)
	}
	if err != nil {
		u.logger.WithError(err).Error("Failed to create user")
		return nil, err
	}
	return user, nil
}

func (u *Users) FindByID(ctx context.Context, id string) (*models.User, error) {
	return u.store.GetUserByID(ctx, id)
}

func (u *Users) UpdateLanguage(ctx context.Context, id, language string) error {
	return u.store.UpdateUserLanguage(ctx, id, language)
}

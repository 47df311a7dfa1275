package store

import (
	"context"
	"sync"
	"time"

	"github.com/chitrakala/auth-service/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// MemoryStore is the fallback backend: mutex-guarded in-process maps with
// the same record shapes as the durable backends. State does not survive a
// restart.
type MemoryStore struct {
	mu              sync.RWMutex
	usersByID       map[string]models.User
	userIDByPhone   map[string]string
	sessionsByToken map[string]models.Session
	logger          *logrus.Logger
}

func NewMemoryStore(logger *logrus.Logger) *MemoryStore {
	return &MemoryStore{
		usersByID:       make(map[string]models.User),
		userIDByPhone:   make(map[string]string),
		sessionsByToken: make(map[string]models.Session),
		logger:          logger,
	}
}

func (s *MemoryStore) CreateUser(ctx context.Context, phoneNumber string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.userIDByPhone[phoneNumber]; ok {
		return nil, ErrUserExists
	}

	now := time.Now()
	user := models.User{
		ID:          uuid.New().String(),
		PhoneNumber: phoneNumber,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	s.usersByID[user.ID] = user
	s.userIDByPhone[phoneNumber] = user.ID

	copied := user
	return &copied, nil
}

func (s *MemoryStore) GetUserByPhone(ctx context.Context, phoneNumber string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.userIDByPhone[phoneNumber]
	if !ok {
		return nil, nil
	}

	user := s.usersByID[id]
	return &user, nil
}

func (s *MemoryStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.usersByID[id]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (s *MemoryStore) UpdateUserLanguage(ctx context.Context, id, language string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.usersByID[id]
	if !ok {
		return ErrUserNotFound
	}

	user.Language = language
	user.UpdatedAt = time.Now()
	s.usersByID[id] = user
	return nil
}

func (s *MemoryStore) CreateSession(ctx context.Context, userID, token string, expiresAt time.Time) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := models.Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}

	s.sessionsByToken[token] = session

	copied := session
	return &copied, nil
}

// GetSessionByToken enforces expiry lazily: an expired session is reported
// as absent but stays in the map until deleted.
func (s *MemoryStore) GetSessionByToken(ctx context.Context, token string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessionsByToken[token]
	if !ok {
		return nil, nil
	}
	if session.Expired(time.Now()) {
		return nil, nil
	}
	return &session, nil
}

func (s *MemoryStore) DeleteSession(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessionsByToken, token)
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

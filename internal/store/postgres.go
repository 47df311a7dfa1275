package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/chitrakala/auth-service/internal/config"
	"github.com/chitrakala/auth-service/internal/models"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// PostgresStore is the relational backend. Every logical operation runs a
// single statement against the pool; database/sql acquires a pooled
// connection per call and releases it on every exit path.
type PostgresStore struct {
	db     *sql.DB
	logger *logrus.Logger
}

func NewPostgresStore(cfg *config.PostgresConfig, logger *logrus.Logger) (*PostgresStore, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConns)

	return &PostgresStore{db: db, logger: logger}, nil
}

// EnsureSchema creates the users and sessions tables if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			phone_number VARCHAR(15) UNIQUE NOT NULL,
			language VARCHAR(10),
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID REFERENCES users(id) ON DELETE CASCADE,
			token VARCHAR(255) UNIQUE NOT NULL,
			expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	s.logger.Info("Database schema ensured")
	return nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, phoneNumber string) (*models.User, error) {
	var user models.User
	var language sql.NullString

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (phone_number, created_at, updated_at)
		VALUES ($1, NOW(), NOW())
		RETURNING id, phone_number, language, created_at, updated_at`,
		phoneNumber,
	).Scan(&user.ID, &user.PhoneNumber, &language, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return nil, ErrUserExists
		}
		s.logger.WithError(err).Error("Failed to create user")
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	user.Language = language.String
	return &user, nil
}

func (s *PostgresStore) GetUserByPhone(ctx context.Context, phoneNumber string) (*models.User, error) {
	return s.getUser(ctx, `
		SELECT id, phone_number, language, created_at, updated_at
		FROM users WHERE phone_number = $1`, phoneNumber)
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.getUser(ctx, `
		SELECT id, phone_number, language, created_at, updated_at
		FROM users WHERE id = $1`, id)
}

func (s *PostgresStore) getUser(ctx context.Context, query, arg string) (*models.User, error) {
	var user models.User
	var language sql.NullString

	err := s.db.QueryRowContext(ctx, query, arg).
		Scan(&user.ID, &user.PhoneNumber, &language, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		s.logger.WithError(err).Error("Failed to get user")
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user.Language = language.String
	return &user, nil
}

func (s *PostgresStore) UpdateUserLanguage(ctx context.Context, id, language string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET language = $1, updated_at = NOW() WHERE id = $2`,
		language, id,
	)
	if err != nil {
		s.logger.WithError(err).Error("Failed to update user language")
		return fmt.Errorf("failed to update user language: %w", err)
	}

	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *PostgresStore) CreateSession(ctx context.Context, userID, token string, expiresAt time.Time) (*models.Session, error) {
	var session models.Session

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO sessions (user_id, token, expires_at, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, user_id, token, expires_at, created_at`,
		userID, token, expiresAt,
	).Scan(&session.ID, &session.UserID, &session.Token, &session.ExpiresAt, &session.CreatedAt)

	if err != nil {
		s.logger.WithError(err).Error("Failed to create session")
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &session, nil
}

// GetSessionByToken enforces expiry lazily in the WHERE clause: an expired
// row is reported as absent, indistinguishable from one that never existed.
func (s *PostgresStore) GetSessionByToken(ctx context.Context, token string) (*models.Session, error) {
	var session models.Session

	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, token, expires_at, created_at
		FROM sessions WHERE token = $1 AND expires_at > NOW()`,
		token,
	).Scan(&session.ID, &session.UserID, &session.Token, &session.ExpiresAt, &session.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		s.logger.WithError(err).Error("Failed to get session")
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return &session, nil
}

func (s *PostgresStore) DeleteSession(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = $1`, token); err != nil {
		s.logger.WithError(err).Error("Failed to delete session")
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

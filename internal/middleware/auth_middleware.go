package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/chitrakala/auth-service/internal/service"
	"github.com/sirupsen/logrus"
)

type AuthMiddleware struct {
	sessions *service.Sessions
	logger   *logrus.Logger
}

func NewAuthMiddleware(sessions *service.Sessions, logger *logrus.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		sessions: sessions,
		logger:   logger,
	}
}

// RequireAuth resolves the bearer token to a live session and stashes the
// session and owning user id in the request context. Missing, unknown and
// expired tokens all produce the same 401.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.respondUnauthorized(w, "No token provided")
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			m.respondUnauthorized(w, "Invalid authorization header format")
			return
		}

		token := parts[1]

		session, err := m.sessions.FindByToken(r.Context(), token)
		if err != nil {
			m.logger.WithError(err).Error("Failed to resolve session")
			m.respondUnauthorized(w, "Invalid or expired token")
			return
		}
		if session == nil {
			m.respondUnauthorized(w, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), "session", session)
		ctx = context.WithValue(ctx, "user_id", session.UserID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) respondUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":{"code":"UNAUTHORIZED","message":"` + message + `"}}`))
}

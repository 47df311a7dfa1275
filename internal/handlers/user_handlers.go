package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/chitrakala/auth-service/internal/models"
	"github.com/chitrakala/auth-service/internal/service"
	"github.com/chitrakala/auth-service/internal/store"
	"github.com/sirupsen/logrus"
)

type UserHandlers struct {
	users  *service.Users
	logger *logrus.Logger
}

func NewUserHandlers(users *service.Users, logger *logrus.Logger) *UserHandlers {
	return &UserHandlers{users: users, logger: logger}
}

type ProfileResponse struct {
	Success bool         `json:"success"`
	User    *models.User `json:"user"`
}

type UpdateLanguageRequest struct {
	Language string `json:"language"`
}

func (h *UserHandlers) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("user_id").(string)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
		return
	}

	user, err := h.users.FindByID(r.Context(), userID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get user profile")
		respondWithError(w, http.StatusInternalServerError, "PROFILE_FAILED", "Failed to get user profile")
		return
	}
	if user == nil {
		respondWithError(w, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
		return
	}

	respondWithJSON(w, http.StatusOK, ProfileResponse{
		Success: true,
		User:    user,
	})
}

func (h *UserHandlers) UpdateLanguage(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("user_id").(string)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
		return
	}

	var req UpdateLanguageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	language := strings.TrimSpace(req.Language)
	if language == "" {
		respondWithError(w, http.StatusBadRequest, "MISSING_LANGUAGE", "Language is required")
		return
	}

	if err := h.users.UpdateLanguage(r.Context(), userID, language); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			respondWithError(w, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
			return
		}
		h.logger.WithError(err).Error("Failed to update language")
		respondWithError(w, http.StatusInternalServerError, "LANGUAGE_UPDATE_FAILED", "Failed to update language")
		return
	}

	respondWithJSON(w, http.StatusOK, MessageResponse{
		Success: true,
		Message: "Language updated successfully",
	})
}

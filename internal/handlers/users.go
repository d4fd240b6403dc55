package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/friendmap/backend/internal/logging"
	"github.com/friendmap/backend/internal/models"
	"github.com/friendmap/backend/internal/repositories"
)

// UserHandler implements account registration and profile endpoints.
type UserHandler struct {
	Users   UserStore
	Limiter RateLimiter
	NowFunc func() time.Time
}

// Add handles GET /addUser requests.
func (h UserHandler) Add(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Users == nil {
		logger.Error("user store unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "user services unavailable"})
		return
	}

	if !allowRequest(h.Limiter, r, "addUser") {
		respondJSON(ctx, w, http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
		return
	}

	userName := strings.TrimSpace(r.URL.Query().Get("user_name"))
	if userName == "" {
		logger.Warn("addUser missing user name")
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "must provide user name"})
		return
	}

	displayName := strings.TrimSpace(r.URL.Query().Get("display_name"))
	if displayName == "" {
		displayName = userName
	}

	now := h.now()
	user := models.User{
		ID:          uuid.NewString(),
		UserName:    userName,
		DisplayName: displayName,
		Sharing:     true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			logger.Warn("addUser existing account", "userName", userName)
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "user already exists"})
			return
		}
		logger.Error("addUser failed to create user", "userName", userName, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to create user"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "signed up"})
}

// Name handles GET /getName requests.
func (h UserHandler) Name(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Users == nil {
		logger.Error("user store unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "user services unavailable"})
		return
	}

	userName := strings.TrimSpace(r.URL.Query().Get("user_name"))
	if userName == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "must provide user name"})
		return
	}

	user, err := h.Users.FindByUserName(ctx, userName)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "no such user"})
			return
		}
		logger.Error("getName lookup failed", "userName", userName, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to look up user"})
		return
	}

	name := user.DisplayName
	if name == "" {
		name = user.UserName
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"name": name})
}

// Toggle handles GET /toggle requests, flipping the user's location sharing.
func (h UserHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Users == nil {
		logger.Error("user store unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "user services unavailable"})
		return
	}

	userName := strings.TrimSpace(r.URL.Query().Get("user_name"))
	if userName == "" {
		logger.Warn("toggle missing user name")
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "must provide user name"})
		return
	}

	sharing, err := h.Users.ToggleSharing(ctx, userName)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "user doesn't exist"})
			return
		}
		logger.Error("toggle failed", "userName", userName, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to toggle sharing"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"status": "toggled", "sharing": sharing})
}

func (h UserHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

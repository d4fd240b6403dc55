package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/friendmap/backend/internal/authz"
	"github.com/friendmap/backend/internal/logging"
	"github.com/friendmap/backend/internal/models"
	"github.com/friendmap/backend/internal/repositories"
)

// LocationHandler implements position reporting and friend lookup endpoints.
type LocationHandler struct {
	Users      UserStore
	Friends    FriendStore
	Locations  LocationStore
	History    HistoryRecorder
	Authorizer LocationAuthorizer
	Limiter    RateLimiter
	Validate   *validator.Validate
	NowFunc    func() time.Time
}

// Register handles POST /registerLocation requests. History persistence is
// handed to the background recorder; a full history queue must not fail the
// position update itself.
func (h LocationHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Locations == nil {
		logger.Error("location store unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "location services unavailable"})
		return
	}

	if !allowRequest(h.Limiter, r, "registerLocation") {
		respondJSON(ctx, w, http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
		return
	}

	userName := strings.TrimSpace(r.URL.Query().Get("user_name"))
	if userName == "" {
		logger.Warn("registerLocation missing user name")
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "must provide user name"})
		return
	}
	ctx = logging.WithUserName(ctx, userName)

	var loc models.Location
	if err := json.NewDecoder(r.Body).Decode(&loc); err != nil {
		logger.Warn("registerLocation invalid payload", "userName", userName, "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid location body"})
		return
	}

	if err := h.validate().Struct(loc); err != nil {
		logger.Warn("registerLocation payload failed validation", "userName", userName, "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid location payload"})
		return
	}

	if loc.RecordedAt.IsZero() {
		loc.RecordedAt = h.now()
	}

	if err := h.Locations.Set(ctx, userName, loc); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "no such user"})
			return
		}
		logger.Error("registerLocation failed", "userName", userName, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to update location"})
		return
	}

	if h.History != nil {
		if err := h.History.Enqueue(ctx, userName, loc); err != nil {
			logger.Warn("location history enqueue failed", "userName", userName, "error", err)
		}
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "updated"})
}

// Lookup handles GET /lookup requests. Visibility is decided by the
// authorization policy: the requester must have the friend on their list and
// the friend must have sharing enabled.
func (h LocationHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Users == nil || h.Friends == nil || h.Locations == nil || h.Authorizer == nil {
		logger.Error("lookup dependencies unavailable",
			"hasUsers", h.Users != nil,
			"hasFriends", h.Friends != nil,
			"hasLocations", h.Locations != nil,
			"hasAuthorizer", h.Authorizer != nil,
		)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "lookup services unavailable"})
		return
	}

	userName := strings.TrimSpace(r.URL.Query().Get("user_name"))
	friendName := strings.TrimSpace(r.URL.Query().Get("friend_name"))
	if userName == "" || friendName == "" {
		logger.Warn("lookup missing user name or friend name")
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "must provide user name and friend name"})
		return
	}

	ctx, span := logging.StartSpan(logging.WithUserName(ctx, userName), "location-lookup")
	defer span.End()
	logger = logging.FromContext(ctx)

	friends, err := h.Friends.ListFriends(ctx, userName)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "no such user"})
			return
		}
		logger.Error("lookup friend list failed", "userName", userName, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to look up friends"})
		return
	}

	target, err := h.Users.FindByUserName(ctx, friendName)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "no such user"})
			return
		}
		logger.Error("lookup target fetch failed", "friendName", friendName, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to look up user"})
		return
	}

	allowed, err := h.Authorizer.Allow(ctx, authz.LookupInput{
		Requester: userName,
		Friend:    friendName,
		Friends:   friends,
		Sharing:   target.Sharing,
	})
	if err != nil {
		logger.Error("lookup authorization failed", "userName", userName, "friendName", friendName, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to authorize lookup"})
		return
	}
	if !allowed {
		logger.Warn("lookup denied", "userName", userName, "friendName", friendName)
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "not authorized to view this user's location"})
		return
	}

	loc, err := h.Locations.Get(ctx, friendName)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "no location registered"})
			return
		}
		logger.Error("lookup location fetch failed", "friendName", friendName, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to fetch location"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, loc)
}

func (h LocationHandler) validate() *validator.Validate {
	if h.Validate != nil {
		return h.Validate
	}
	return validator.New()
}

func (h LocationHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

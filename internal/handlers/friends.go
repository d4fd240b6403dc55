package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/friendmap/backend/internal/logging"
	"github.com/friendmap/backend/internal/repositories"
)

// FriendHandler provides friend-list endpoints.
type FriendHandler struct {
	Friends FriendStore
}

type listFriendsResponse struct {
	Friends []string `json:"friends"`
}

// List handles GET /getFriends requests. The response shape is the contract
// the mobile client's list sync decodes.
func (h FriendHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Friends == nil {
		logger.Error("friend store unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "friend services unavailable"})
		return
	}

	userName := strings.TrimSpace(r.URL.Query().Get("user_name"))
	if userName == "" {
		logger.Warn("getFriends missing user name")
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "must provide user name"})
		return
	}

	friends, err := h.Friends.ListFriends(logging.WithUserName(ctx, userName), userName)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "no such user"})
			return
		}
		logger.Error("getFriends failed", "userName", userName, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to list friends"})
		return
	}

	if friends == nil {
		friends = []string{}
	}

	respondJSON(ctx, w, http.StatusOK, listFriendsResponse{Friends: friends})
}

// Add handles GET /addFriend requests.
func (h FriendHandler) Add(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Friends == nil {
		logger.Error("friend store unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "friend services unavailable"})
		return
	}

	userName := strings.TrimSpace(r.URL.Query().Get("user_name"))
	friendName := strings.TrimSpace(r.URL.Query().Get("friend_name"))
	if userName == "" || friendName == "" {
		logger.Warn("addFriend missing user name or friend name")
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "must provide user name and friend name"})
		return
	}

	if userName == friendName {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "cannot add yourself as a friend"})
		return
	}

	if err := h.Friends.AddFriend(ctx, userName, friendName); err != nil {
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "cannot add friend, user does not exist"})
		case errors.Is(err, repositories.ErrConflict):
			respondJSON(ctx, w, http.StatusConflict, map[string]string{"error": "already on friends list"})
		default:
			logger.Error("addFriend failed", "userName", userName, "friendName", friendName, "error", err)
			respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to add friend"})
		}
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "added"})
}

// Delete handles GET /deleteFriend requests.
func (h FriendHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Friends == nil {
		logger.Error("friend store unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "friend services unavailable"})
		return
	}

	userName := strings.TrimSpace(r.URL.Query().Get("user_name"))
	friendName := strings.TrimSpace(r.URL.Query().Get("friend_name"))
	if userName == "" || friendName == "" {
		logger.Warn("deleteFriend missing user name or friend name")
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "must provide user name and friend name"})
		return
	}

	if err := h.Friends.RemoveFriend(ctx, userName, friendName); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "friend does not exist"})
			return
		}
		logger.Error("deleteFriend failed", "userName", userName, "friendName", friendName, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to delete friend"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "removed"})
}

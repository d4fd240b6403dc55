package handlers

import (
	"context"
	"io"

	"github.com/friendmap/backend/internal/authz"
	"github.com/friendmap/backend/internal/models"
)

// UserStore captures the persistence operations required by the user handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByUserName(ctx context.Context, userName string) (models.User, error)
	ToggleSharing(ctx context.Context, userName string) (bool, error)
}

// FriendStore captures operations required by the friend-list handlers.
type FriendStore interface {
	ListFriends(ctx context.Context, userName string) ([]string, error)
	AddFriend(ctx context.Context, userName, friendName string) error
	RemoveFriend(ctx context.Context, userName, friendName string) error
}

// LocationStore captures persistence for current positions.
type LocationStore interface {
	Set(ctx context.Context, userName string, loc models.Location) error
	Get(ctx context.Context, userName string) (models.Location, error)
}

// BuildingStore captures lookups for indoor-positioning venues.
type BuildingStore interface {
	FindByName(ctx context.Context, name string) (models.Building, error)
	FloorImageKey(ctx context.Context, buildingName string, level int) (string, error)
}

// HistoryRecorder schedules background persistence of the location trail.
type HistoryRecorder interface {
	Enqueue(ctx context.Context, userName string, loc models.Location) error
}

// FloorPlanFetcher streams stored floor-plan images.
type FloorPlanFetcher interface {
	Fetch(ctx context.Context, key string) (io.ReadCloser, string, error)
}

// LocationAuthorizer decides whether a lookup may see a friend's location.
type LocationAuthorizer interface {
	Allow(ctx context.Context, input authz.LookupInput) (bool, error)
}

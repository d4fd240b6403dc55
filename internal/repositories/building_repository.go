package repositories

import (
	"context"

	"github.com/friendmap/backend/internal/models"
)

// BuildingRepository defines data access for indoor-positioning venues.
type BuildingRepository interface {
	FindByName(ctx context.Context, name string) (models.Building, error)
	FloorImageKey(ctx context.Context, buildingName string, level int) (string, error)
}

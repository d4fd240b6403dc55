package repositories

import (
	"context"

	"github.com/friendmap/backend/internal/models"
)

// LocationRepository defines data access for current positions and the
// append-only history trail.
type LocationRepository interface {
	Set(ctx context.Context, userName string, loc models.Location) error
	Get(ctx context.Context, userName string) (models.Location, error)
	AppendHistory(ctx context.Context, userName string, loc models.Location) error
}

package repositories

import (
	"context"

	"github.com/friendmap/backend/internal/models"
)

// UserRepository defines data access for user accounts.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	FindByUserName(ctx context.Context, userName string) (models.User, error)
	ToggleSharing(ctx context.Context, userName string) (bool, error)
}

package app

import (
	"github.com/friendmap/backend/internal/authz"
	"github.com/friendmap/backend/internal/db"
	"github.com/friendmap/backend/internal/handlers"
	"github.com/friendmap/backend/internal/locations"
	"github.com/friendmap/backend/internal/repositories"
)

// buildDependencies wires together concrete implementations used by the HTTP handlers.
func buildDependencies(
	pool db.Pool,
	policy *authz.LocationPolicy,
	recorder *locations.Recorder,
	floorPlans handlers.FloorPlanFetcher,
	limiter handlers.RateLimiter,
) handlers.Dependencies {
	return handlers.Dependencies{
		Users:      repositories.NewPostgresUserRepository(pool),
		Friends:    repositories.NewPostgresFriendRepository(pool),
		Locations:  repositories.NewPostgresLocationRepository(pool),
		Buildings:  repositories.NewPostgresBuildingRepository(pool),
		FloorPlans: floorPlans,
		History:    recorder,
		Authorizer: policy,
		Limiter:    limiter,
	}
}

package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/friendmap/backend/internal/db"
	"github.com/friendmap/backend/internal/models"
)

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, user_name, display_name, sharing, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, user.ID, user.UserName, user.DisplayName, user.Sharing, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByUserName fetches a user by their opaque identity.
func (r *PostgresUserRepository) FindByUserName(ctx context.Context, userName string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, user_name, display_name, sharing, created_at, updated_at
        FROM users
        WHERE user_name = $1
    `, userName)

	var user models.User
	if err := row.Scan(&user.ID, &user.UserName, &user.DisplayName, &user.Sharing, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user by name: %w", err)
	}

	return user, nil
}

// ToggleSharing flips the user's location-sharing flag and returns the new value.
func (r *PostgresUserRepository) ToggleSharing(ctx context.Context, userName string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        UPDATE users
        SET sharing = NOT sharing, updated_at = $2
        WHERE user_name = $1
        RETURNING sharing
    `, userName, time.Now().UTC())

	var sharing bool
	if err := row.Scan(&sharing); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("toggle sharing: %w", err)
	}

	return sharing, nil
}

// PostgresFriendRepository provides PostgreSQL-backed persistence for friend lists.
type PostgresFriendRepository struct {
	pool db.Pool
}

// NewPostgresFriendRepository constructs a friend repository backed by PostgreSQL.
func NewPostgresFriendRepository(pool db.Pool) *PostgresFriendRepository {
	return &PostgresFriendRepository{pool: pool}
}

// ListFriends returns the user's friend list in insertion order. An unknown
// user yields ErrNotFound, distinguishing it from an empty list.
func (r *PostgresFriendRepository) ListFriends(ctx context.Context, userName string) ([]string, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var exists bool
	if err := conn.QueryRow(ctx, `
        SELECT EXISTS (SELECT 1 FROM users WHERE user_name = $1)
    `, userName).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check user exists: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	rows, err := conn.Query(ctx, `
        SELECT friend_name
        FROM friendships
        WHERE user_name = $1
        ORDER BY created_at, friend_name
    `, userName)
	if err != nil {
		return nil, fmt.Errorf("query friendships: %w", err)
	}
	defer rows.Close()

	friends := []string{}
	for rows.Next() {
		var friend string
		if err := rows.Scan(&friend); err != nil {
			return nil, fmt.Errorf("scan friendship: %w", err)
		}
		friends = append(friends, friend)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate friendships: %w", err)
	}

	return friends, nil
}

// AddFriend appends friendName to the user's list.
func (r *PostgresFriendRepository) AddFriend(ctx context.Context, userName, friendName string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO friendships (user_name, friend_name, created_at)
        VALUES ($1, $2, $3)
    `, userName, friendName, time.Now().UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrConflict
			case "23503":
				return ErrNotFound
			}
		}
		return fmt.Errorf("insert friendship: %w", err)
	}

	return nil
}

// RemoveFriend deletes friendName from the user's list.
func (r *PostgresFriendRepository) RemoveFriend(ctx context.Context, userName, friendName string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM friendships
        WHERE user_name = $1 AND friend_name = $2
    `, userName, friendName)
	if err != nil {
		return fmt.Errorf("delete friendship: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// PostgresLocationRepository provides PostgreSQL-backed persistence for positions.
type PostgresLocationRepository struct {
	pool db.Pool
}

// NewPostgresLocationRepository constructs a location repository backed by PostgreSQL.
func NewPostgresLocationRepository(pool db.Pool) *PostgresLocationRepository {
	return &PostgresLocationRepository{pool: pool}
}

// Set stores the user's most recent position, replacing any prior one.
func (r *PostgresLocationRepository) Set(ctx context.Context, userName string, loc models.Location) error {
	payload, err := json.Marshal(loc)
	if err != nil {
		return fmt.Errorf("encode location: %w", err)
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO locations (user_name, payload, updated_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (user_name)
        DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at
    `, userName, payload, time.Now().UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrNotFound
		}
		return fmt.Errorf("upsert location: %w", err)
	}

	return nil
}

// Get loads the user's most recent position.
func (r *PostgresLocationRepository) Get(ctx context.Context, userName string) (models.Location, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Location{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var payload []byte
	row := conn.QueryRow(ctx, `
        SELECT payload
        FROM locations
        WHERE user_name = $1
    `, userName)
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Location{}, ErrNotFound
		}
		return models.Location{}, fmt.Errorf("select location: %w", err)
	}

	var loc models.Location
	if err := json.Unmarshal(payload, &loc); err != nil {
		return models.Location{}, fmt.Errorf("decode location: %w", err)
	}

	return loc, nil
}

// AppendHistory records a position in the append-only trail.
func (r *PostgresLocationRepository) AppendHistory(ctx context.Context, userName string, loc models.Location) error {
	payload, err := json.Marshal(loc)
	if err != nil {
		return fmt.Errorf("encode location: %w", err)
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	recordedAt := loc.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}

	_, err = conn.Exec(ctx, `
        INSERT INTO location_history (id, user_name, payload, recorded_at)
        VALUES ($1, $2, $3, $4)
    `, uuid.NewString(), userName, payload, recordedAt)
	if err != nil {
		return fmt.Errorf("insert location history: %w", err)
	}

	return nil
}

// PostgresBuildingRepository provides PostgreSQL-backed persistence for venues.
type PostgresBuildingRepository struct {
	pool db.Pool
}

// NewPostgresBuildingRepository constructs a building repository backed by PostgreSQL.
func NewPostgresBuildingRepository(pool db.Pool) *PostgresBuildingRepository {
	return &PostgresBuildingRepository{pool: pool}
}

// FindByName loads a building and its floors by name.
func (r *PostgresBuildingRepository) FindByName(ctx context.Context, name string) (models.Building, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Building{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, name, address, latitude, longitude
        FROM buildings
        WHERE name = $1
    `, name)

	var building models.Building
	if err := row.Scan(&building.ID, &building.Name, &building.Address, &building.Latitude, &building.Longitude); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Building{}, ErrNotFound
		}
		return models.Building{}, fmt.Errorf("select building: %w", err)
	}

	rows, err := conn.Query(ctx, `
        SELECT level, image_key
        FROM floors
        WHERE building_id = $1
        ORDER BY level
    `, building.ID)
	if err != nil {
		return models.Building{}, fmt.Errorf("query floors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var floor models.Floor
		if err := rows.Scan(&floor.Level, &floor.ImageKey); err != nil {
			return models.Building{}, fmt.Errorf("scan floor: %w", err)
		}
		building.Floors = append(building.Floors, floor)
	}

	if err := rows.Err(); err != nil {
		return models.Building{}, fmt.Errorf("iterate floors: %w", err)
	}

	return building, nil
}

// FloorImageKey resolves the storage key for a building level's floor plan.
func (r *PostgresBuildingRepository) FloorImageKey(ctx context.Context, buildingName string, level int) (string, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return "", fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT f.image_key
        FROM floors f
        JOIN buildings b ON b.id = f.building_id
        WHERE b.name = $1 AND f.level = $2
    `, buildingName, level)

	var key string
	if err := row.Scan(&key); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("select floor image key: %w", err)
	}

	return key, nil
}

var _ UserRepository = (*PostgresUserRepository)(nil)
var _ FriendRepository = (*PostgresFriendRepository)(nil)
var _ LocationRepository = (*PostgresLocationRepository)(nil)
var _ BuildingRepository = (*PostgresBuildingRepository)(nil)

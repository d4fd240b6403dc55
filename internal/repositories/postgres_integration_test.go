package repositories

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/cockroachdb/cockroach-go/v2/testserver"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/friendmap/backend/internal/models"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	server, err := testserver.NewTestServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "start cockroach test server: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, server.PGURL().String())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to cockroach test server: %v\n", err)
		server.Stop()
		os.Exit(1)
	}

	if err := applyMigrations(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "apply migrations: %v\n", err)
		pool.Close()
		server.Stop()
		os.Exit(1)
	}

	testPool = pool

	code := m.Run()

	pool.Close()
	server.Stop()

	os.Exit(code)
}

func TestPostgresUserRepository_CreateFindAndToggle(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresUserRepository(testPool)

	user := models.User{
		ID:          uuid.NewString(),
		UserName:    "alice@example.com",
		DisplayName: "Alice",
		Sharing:     true,
		CreatedAt:   time.Now().UTC().Truncate(time.Millisecond),
		UpdatedAt:   time.Now().UTC().Truncate(time.Millisecond),
	}

	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	dup := user
	dup.ID = uuid.NewString()
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict creating duplicate user name, got %v", err)
	}

	fetched, err := repo.FindByUserName(ctx, user.UserName)
	if err != nil {
		t.Fatalf("find by user name: %v", err)
	}

	if fetched.ID != user.ID || fetched.DisplayName != user.DisplayName || !fetched.Sharing {
		t.Fatalf("unexpected user fetched: %+v", fetched)
	}

	sharing, err := repo.ToggleSharing(ctx, user.UserName)
	if err != nil {
		t.Fatalf("toggle sharing: %v", err)
	}
	if sharing {
		t.Fatalf("expected sharing off after first toggle")
	}

	sharing, err = repo.ToggleSharing(ctx, user.UserName)
	if err != nil {
		t.Fatalf("toggle sharing back: %v", err)
	}
	if !sharing {
		t.Fatalf("expected sharing on after second toggle")
	}

	if _, err := repo.ToggleSharing(ctx, "missing@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound toggling missing user, got %v", err)
	}

	if _, err := repo.FindByUserName(ctx, "missing@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing user, got %v", err)
	}
}

func TestPostgresFriendRepository_AddListAndRemove(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	userRepo := NewPostgresUserRepository(testPool)
	owner := createTestUser(t, userRepo, "owner@example.com")

	repo := NewPostgresFriendRepository(testPool)

	if err := repo.AddFriend(ctx, owner.UserName, "b@example.com"); err != nil {
		t.Fatalf("add first friend: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	if err := repo.AddFriend(ctx, owner.UserName, "a@example.com"); err != nil {
		t.Fatalf("add second friend: %v", err)
	}

	if err := repo.AddFriend(ctx, owner.UserName, "b@example.com"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on duplicate friendship, got %v", err)
	}

	if err := repo.AddFriend(ctx, "ghost@example.com", "b@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound adding friend to unknown user, got %v", err)
	}

	friends, err := repo.ListFriends(ctx, owner.UserName)
	if err != nil {
		t.Fatalf("list friends: %v", err)
	}

	// Insertion order, not lexical order.
	if len(friends) != 2 || friends[0] != "b@example.com" || friends[1] != "a@example.com" {
		t.Fatalf("unexpected friend list: %v", friends)
	}

	if _, err := repo.ListFriends(ctx, "ghost@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound listing unknown user, got %v", err)
	}

	if err := repo.RemoveFriend(ctx, owner.UserName, "b@example.com"); err != nil {
		t.Fatalf("remove friend: %v", err)
	}

	friends, err = repo.ListFriends(ctx, owner.UserName)
	if err != nil {
		t.Fatalf("list friends after remove: %v", err)
	}
	if len(friends) != 1 || friends[0] != "a@example.com" {
		t.Fatalf("unexpected friend list after remove: %v", friends)
	}

	if err := repo.RemoveFriend(ctx, owner.UserName, "b@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound removing absent friendship, got %v", err)
	}
}

func TestPostgresLocationRepository_SetGetAndHistory(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	userRepo := NewPostgresUserRepository(testPool)
	user := createTestUser(t, userRepo, "walker@example.com")

	repo := NewPostgresLocationRepository(testPool)

	outdoor := models.Location{
		Kind:       models.LocationKindGPS,
		Latitude:   43.4729,
		Longitude:  -80.5400,
		RecordedAt: time.Now().UTC().Truncate(time.Millisecond),
	}

	if err := repo.Set(ctx, user.UserName, outdoor); err != nil {
		t.Fatalf("set location: %v", err)
	}

	loaded, err := repo.Get(ctx, user.UserName)
	if err != nil {
		t.Fatalf("get location: %v", err)
	}
	if loaded.Kind != models.LocationKindGPS || loaded.Latitude != outdoor.Latitude {
		t.Fatalf("unexpected location loaded: %+v", loaded)
	}

	indoor := models.Location{
		Kind:     models.LocationKindIndoor,
		Building: "Engineering",
		Floor:    3,
		X:        12.5,
		Y:        40.25,
	}

	if err := repo.Set(ctx, user.UserName, indoor); err != nil {
		t.Fatalf("replace location: %v", err)
	}

	loaded, err = repo.Get(ctx, user.UserName)
	if err != nil {
		t.Fatalf("get replaced location: %v", err)
	}
	if loaded.Kind != models.LocationKindIndoor || loaded.Building != "Engineering" || loaded.Floor != 3 {
		t.Fatalf("expected latest location to win, got %+v", loaded)
	}

	if err := repo.Set(ctx, "ghost@example.com", outdoor); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
	}

	if _, err := repo.Get(ctx, "ghost@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound getting unknown user, got %v", err)
	}

	if err := repo.AppendHistory(ctx, user.UserName, outdoor); err != nil {
		t.Fatalf("append history: %v", err)
	}
	if err := repo.AppendHistory(ctx, user.UserName, indoor); err != nil {
		t.Fatalf("append second history entry: %v", err)
	}

	conn, err := testPool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire connection: %v", err)
	}
	defer conn.Release()

	var count int
	if err := conn.QueryRow(ctx, `SELECT count(*) FROM location_history WHERE user_name = $1`, user.UserName).Scan(&count); err != nil {
		t.Fatalf("count history: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 history rows, got %d", count)
	}
}

func TestPostgresBuildingRepository_FindAndFloorKey(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	conn, err := testPool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire connection: %v", err)
	}

	buildingID := uuid.NewString()
	if _, err := conn.Exec(ctx, `
        INSERT INTO buildings (id, name, address, latitude, longitude)
        VALUES ($1, 'Engineering', '1 Campus Way', 43.4729, -80.54)
    `, buildingID); err != nil {
		conn.Release()
		t.Fatalf("insert building: %v", err)
	}
	if _, err := conn.Exec(ctx, `
        INSERT INTO floors (building_id, level, image_key)
        VALUES ($1, 2, 'floorplans/engineering/2.png'), ($1, 1, 'floorplans/engineering/1.png')
    `, buildingID); err != nil {
		conn.Release()
		t.Fatalf("insert floors: %v", err)
	}
	conn.Release()

	repo := NewPostgresBuildingRepository(testPool)

	building, err := repo.FindByName(ctx, "Engineering")
	if err != nil {
		t.Fatalf("find building: %v", err)
	}
	if building.Name != "Engineering" || len(building.Floors) != 2 {
		t.Fatalf("unexpected building: %+v", building)
	}
	if building.Floors[0].Level != 1 || building.Floors[1].Level != 2 {
		t.Fatalf("expected floors ordered by level, got %+v", building.Floors)
	}

	if _, err := repo.FindByName(ctx, "Nowhere"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown building, got %v", err)
	}

	key, err := repo.FloorImageKey(ctx, "Engineering", 2)
	if err != nil {
		t.Fatalf("floor image key: %v", err)
	}
	if key != "floorplans/engineering/2.png" {
		t.Fatalf("unexpected image key: %s", key)
	}

	if _, err := repo.FloorImageKey(ctx, "Engineering", 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown floor, got %v", err)
	}
}

func applyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrationsDir := filepath.Join("..", "..", "migrations")
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		contents, err := os.ReadFile(filepath.Join(migrationsDir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}

		if _, err := pool.Exec(ctx, string(contents)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
	}

	return nil
}

func resetDatabase(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	conn, err := testPool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire connection: %v", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "TRUNCATE TABLE friendships, locations, location_history, floors, buildings, users CASCADE"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}

func createTestUser(t *testing.T, repo *PostgresUserRepository, userName string) models.User {
	t.Helper()
	user := models.User{
		ID:        uuid.NewString(),
		UserName:  userName,
		Sharing:   true,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("create test user: %v", err)
	}
	return user
}

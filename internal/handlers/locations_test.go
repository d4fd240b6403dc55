package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/friendmap/backend/internal/authz"
	"github.com/friendmap/backend/internal/models"
	"github.com/friendmap/backend/internal/repositories"
)

type inMemoryLocationStore struct {
	known     map[string]struct{}
	locations map[string]models.Location
}

func newInMemoryLocationStore(users ...string) *inMemoryLocationStore {
	known := make(map[string]struct{}, len(users))
	for _, u := range users {
		known[u] = struct{}{}
	}
	return &inMemoryLocationStore{known: known, locations: make(map[string]models.Location)}
}

func (s *inMemoryLocationStore) Set(_ context.Context, userName string, loc models.Location) error {
	if _, ok := s.known[userName]; !ok {
		return repositories.ErrNotFound
	}
	s.locations[userName] = loc
	return nil
}

func (s *inMemoryLocationStore) Get(_ context.Context, userName string) (models.Location, error) {
	loc, ok := s.locations[userName]
	if !ok {
		return models.Location{}, repositories.ErrNotFound
	}
	return loc, nil
}

type stubLocationStore struct {
	setErr error
	getErr error
	loc    models.Location
}

func (s *stubLocationStore) Set(context.Context, string, models.Location) error {
	return s.setErr
}

func (s *stubLocationStore) Get(context.Context, string) (models.Location, error) {
	if s.getErr != nil {
		return models.Location{}, s.getErr
	}
	return s.loc, nil
}

type recordingHistory struct {
	entries []models.Location
	err     error
}

func (r *recordingHistory) Enqueue(_ context.Context, _ string, loc models.Location) error {
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, loc)
	return nil
}

type stubAuthorizer struct {
	allow bool
	err   error
	input authz.LookupInput
}

func (s *stubAuthorizer) Allow(_ context.Context, input authz.LookupInput) (bool, error) {
	s.input = input
	return s.allow, s.err
}

func gpsBody(t *testing.T, lat, lon float64) []byte {
	t.Helper()
	body, err := json.Marshal(models.Location{Kind: models.LocationKindGPS, Latitude: lat, Longitude: lon})
	if err != nil {
		t.Fatalf("marshal location: %v", err)
	}
	return body
}

func TestLocationHandlerRegister(t *testing.T) {
	store := newInMemoryLocationStore("alice")
	history := &recordingHistory{}
	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	handler := LocationHandler{
		Locations: store,
		History:   history,
		NowFunc:   func() time.Time { return now },
	}

	req := httptest.NewRequest(http.MethodPost, "/registerLocation?user_name=alice", bytes.NewReader(gpsBody(t, 40.0, -74.0)))
	rec := httptest.NewRecorder()

	handler.Register(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}

	loc, ok := store.locations["alice"]
	if !ok {
		t.Fatalf("expected location to be stored")
	}
	if loc.Latitude != 40.0 || loc.Longitude != -74.0 {
		t.Fatalf("unexpected stored location: %+v", loc)
	}
	if loc.RecordedAt != now {
		t.Fatalf("expected recordedAt to default to NowFunc")
	}

	if len(history.entries) != 1 {
		t.Fatalf("expected one history entry got %d", len(history.entries))
	}
}

func TestLocationHandlerRegisterHistoryFailureIsNonFatal(t *testing.T) {
	store := newInMemoryLocationStore("alice")
	handler := LocationHandler{
		Locations: store,
		History:   &recordingHistory{err: errors.New("queue full")},
	}

	req := httptest.NewRequest(http.MethodPost, "/registerLocation?user_name=alice", bytes.NewReader(gpsBody(t, 1, 2)))
	rec := httptest.NewRecorder()

	handler.Register(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("history failure must not fail the update, got status %d", rec.Code)
	}
	if _, ok := store.locations["alice"]; !ok {
		t.Fatalf("expected location to be stored despite history failure")
	}
}

func TestLocationHandlerRegisterFailures(t *testing.T) {
	valid := gpsBody(t, 40.0, -74.0)

	cases := []struct {
		name       string
		handler    LocationHandler
		target     string
		body       []byte
		wantStatus int
	}{
		{"missingStore", LocationHandler{}, "/registerLocation?user_name=alice", valid, http.StatusInternalServerError},
		{"rateLimited", LocationHandler{Locations: newInMemoryLocationStore("alice"), Limiter: denyAllLimiter{}}, "/registerLocation?user_name=alice", valid, http.StatusTooManyRequests},
		{"missingName", LocationHandler{Locations: newInMemoryLocationStore("alice")}, "/registerLocation", valid, http.StatusBadRequest},
		{"badJSON", LocationHandler{Locations: newInMemoryLocationStore("alice")}, "/registerLocation?user_name=alice", []byte("{"), http.StatusBadRequest},
		{"missingKind", LocationHandler{Locations: newInMemoryLocationStore("alice")}, "/registerLocation?user_name=alice", []byte(`{"latitude":40,"longitude":-74}`), http.StatusBadRequest},
		{"latitudeOutOfRange", LocationHandler{Locations: newInMemoryLocationStore("alice")}, "/registerLocation?user_name=alice", gpsBody(t, 91, 0), http.StatusBadRequest},
		{"unknownUser", LocationHandler{Locations: newInMemoryLocationStore()}, "/registerLocation?user_name=ghost", valid, http.StatusBadRequest},
		{"internal", LocationHandler{Locations: &stubLocationStore{setErr: errors.New("boom")}}, "/registerLocation?user_name=alice", valid, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tc.target, bytes.NewReader(tc.body))
			rec := httptest.NewRecorder()

			tc.handler.Register(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected status %d got %d", tc.wantStatus, rec.Code)
			}
		})
	}
}

func lookupHandler(users UserStore, friends FriendStore, locs LocationStore, auth LocationAuthorizer) LocationHandler {
	return LocationHandler{Users: users, Friends: friends, Locations: locs, Authorizer: auth}
}

func TestLocationHandlerLookup(t *testing.T) {
	users := newInMemoryUserStore()
	users.users["bob"] = models.User{UserName: "bob", Sharing: true}

	friends := newInMemoryFriendStore()
	friends.friends["alice"] = []string{"bob"}

	locs := newInMemoryLocationStore("bob")
	recorded := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	locs.locations["bob"] = models.Location{Kind: models.LocationKindGPS, Latitude: 40, Longitude: -74, RecordedAt: recorded}

	auth := &stubAuthorizer{allow: true}
	handler := lookupHandler(users, friends, locs, auth)

	req := httptest.NewRequest(http.MethodGet, "/lookup?user_name=alice&friend_name=bob", nil)
	rec := httptest.NewRecorder()

	handler.Lookup(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}

	var resp models.Location
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Latitude != 40 || resp.Longitude != -74 {
		t.Fatalf("unexpected location payload: %+v", resp)
	}

	// The policy must be evaluated against the target's sharing flag and the
	// requester's friend list, not the requester's own settings.
	if auth.input.Requester != "alice" || auth.input.Friend != "bob" {
		t.Fatalf("unexpected policy input: %+v", auth.input)
	}
	if !auth.input.Sharing {
		t.Fatalf("expected policy input to carry the target's sharing flag")
	}
	if len(auth.input.Friends) != 1 || auth.input.Friends[0] != "bob" {
		t.Fatalf("expected policy input to carry the requester's friend list, got %+v", auth.input.Friends)
	}
}

func TestLocationHandlerLookupDenied(t *testing.T) {
	users := newInMemoryUserStore()
	users.users["bob"] = models.User{UserName: "bob", Sharing: false}

	friends := newInMemoryFriendStore()
	friends.friends["alice"] = []string{"bob"}

	locs := newInMemoryLocationStore("bob")
	locs.locations["bob"] = models.Location{Kind: models.LocationKindGPS}

	handler := lookupHandler(users, friends, locs, &stubAuthorizer{allow: false})

	req := httptest.NewRequest(http.MethodGet, "/lookup?user_name=alice&friend_name=bob", nil)
	rec := httptest.NewRecorder()

	handler.Lookup(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestLocationHandlerLookupFailures(t *testing.T) {
	okUsers := func() *inMemoryUserStore {
		s := newInMemoryUserStore()
		s.users["bob"] = models.User{UserName: "bob", Sharing: true}
		return s
	}
	okFriends := func() *inMemoryFriendStore {
		s := newInMemoryFriendStore()
		s.friends["alice"] = []string{"bob"}
		return s
	}

	cases := []struct {
		name       string
		handler    LocationHandler
		target     string
		wantStatus int
	}{
		{"missingDeps", LocationHandler{}, "/lookup?user_name=alice&friend_name=bob", http.StatusInternalServerError},
		{"missingParams", lookupHandler(okUsers(), okFriends(), newInMemoryLocationStore(), &stubAuthorizer{allow: true}), "/lookup?user_name=alice", http.StatusBadRequest},
		{"unknownRequester", lookupHandler(okUsers(), newInMemoryFriendStore(), newInMemoryLocationStore(), &stubAuthorizer{allow: true}), "/lookup?user_name=ghost&friend_name=bob", http.StatusBadRequest},
		{"unknownTarget", lookupHandler(newInMemoryUserStore(), okFriends(), newInMemoryLocationStore(), &stubAuthorizer{allow: true}), "/lookup?user_name=alice&friend_name=ghost", http.StatusBadRequest},
		{"policyError", lookupHandler(okUsers(), okFriends(), newInMemoryLocationStore(), &stubAuthorizer{err: errors.New("rego eval")}), "/lookup?user_name=alice&friend_name=bob", http.StatusInternalServerError},
		{"noLocation", lookupHandler(okUsers(), okFriends(), newInMemoryLocationStore("bob"), &stubAuthorizer{allow: true}), "/lookup?user_name=alice&friend_name=bob", http.StatusBadRequest},
		{"locationError", lookupHandler(okUsers(), okFriends(), &stubLocationStore{getErr: errors.New("boom")}, &stubAuthorizer{allow: true}), "/lookup?user_name=alice&friend_name=bob", http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			rec := httptest.NewRecorder()

			tc.handler.Lookup(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected status %d got %d", tc.wantStatus, rec.Code)
			}
		})
	}
}

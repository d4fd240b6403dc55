package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes wires HTTP handlers into the provided router. The endpoint
// names and parameter conventions form the wire contract the mobile client's
// query service is built against.
func RegisterRoutes(r *mux.Router, deps Dependencies) {
	health := HealthHandler{}
	users := UserHandler{Users: deps.Users, Limiter: deps.Limiter}
	friends := FriendHandler{Friends: deps.Friends}
	locations := LocationHandler{
		Users:      deps.Users,
		Friends:    deps.Friends,
		Locations:  deps.Locations,
		History:    deps.History,
		Authorizer: deps.Authorizer,
		Limiter:    deps.Limiter,
	}
	buildings := BuildingHandler{Buildings: deps.Buildings, FloorPlans: deps.FloorPlans}

	r.HandleFunc("/healthz", health.Handle).Methods(http.MethodGet)
	r.HandleFunc("/addUser", users.Add).Methods(http.MethodGet)
	r.HandleFunc("/getName", users.Name).Methods(http.MethodGet)
	r.HandleFunc("/toggle", users.Toggle).Methods(http.MethodGet)
	r.HandleFunc("/getFriends", friends.List).Methods(http.MethodGet)
	r.HandleFunc("/addFriend", friends.Add).Methods(http.MethodGet)
	r.HandleFunc("/deleteFriend", friends.Delete).Methods(http.MethodGet)
	r.HandleFunc("/registerLocation", locations.Register).Methods(http.MethodPost)
	r.HandleFunc("/lookup", locations.Lookup).Methods(http.MethodGet)
	r.HandleFunc("/getBuildingMetadata", buildings.Metadata).Methods(http.MethodGet)
	r.HandleFunc("/getFloorImage", buildings.FloorImage).Methods(http.MethodGet)
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users      UserStore
	Friends    FriendStore
	Locations  LocationStore
	Buildings  BuildingStore
	FloorPlans FloorPlanFetcher
	History    HistoryRecorder
	Authorizer LocationAuthorizer
	Limiter    RateLimiter
}

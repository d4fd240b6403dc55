package models

import "time"

// User represents an account within the FriendMap platform. UserName is the
// opaque identity friends use to reference each other (an email address in
// practice); DisplayName is what gets rendered in a friend list row.
type User struct {
	ID          string
	UserName    string
	DisplayName string
	Sharing     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Location kinds. A location is either an outdoor GPS fix or an indoor
// position resolved against a building floor plan.
const (
	LocationKindGPS    = "gps"
	LocationKindIndoor = "indoor"
)

// Location is a user's most recent reported position.
type Location struct {
	Kind string `json:"kind" validate:"required,oneof=gps indoor"`

	// GPS fields, meaningful when Kind == "gps".
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
	Altitude  float64 `json:"altitude,omitempty"`

	// Indoor fields, meaningful when Kind == "indoor".
	Building string  `json:"building,omitempty"`
	Floor    int     `json:"floor,omitempty"`
	X        float64 `json:"x,omitempty"`
	Y        float64 `json:"y,omitempty"`

	RecordedAt time.Time `json:"recordedAt,omitempty"`
}

// Building describes an indoor-positioning venue and its floor plans.
type Building struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Floors    []Floor `json:"floors"`
}

// Floor is a single level of a building with a stored floor-plan image.
type Floor struct {
	Level    int    `json:"level"`
	ImageKey string `json:"imageKey"`
}

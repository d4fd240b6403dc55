package friendsync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Location mirrors the wire shape accepted by POST /registerLocation.
type Location struct {
	Kind      string  `json:"kind"`
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
	Altitude  float64 `json:"altitude,omitempty"`
	Building  string  `json:"building,omitempty"`
	Floor     int     `json:"floor,omitempty"`
	X         float64 `json:"x,omitempty"`
	Y         float64 `json:"y,omitempty"`
}

// Building mirrors the metadata returned by GET /getBuildingMetadata.
type Building struct {
	Name      string  `json:"name"`
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Floors    []struct {
		Level int `json:"level"`
	} `json:"floors"`
}

// QueryService is an HTTP client for the FriendMap backend. All methods honor
// context cancellation; failures are reported through the TransportError,
// ServerError and DecodeError taxonomy so callers can distinguish them.
type QueryService struct {
	baseURL string
	http    *http.Client
}

// NewQueryService constructs a client against the provided base URL. A nil
// http.Client gets a default with a conservative timeout.
func NewQueryService(baseURL string, client *http.Client) *QueryService {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &QueryService{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    client,
	}
}

// GetFriends fetches the friend list for the given user identity. The list is
// returned in server order; a missing "friends" key is a DecodeError.
func (s *QueryService) GetFriends(ctx context.Context, userIdentity string) ([]string, error) {
	body, err := s.get(ctx, "/getFriends", url.Values{"user_name": {userIdentity}})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Friends *[]string `json:"friends"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &DecodeError{Err: err}
	}
	if payload.Friends == nil {
		return nil, &DecodeError{Err: errors.New(`missing "friends" field`)}
	}
	return *payload.Friends, nil
}

// GetName resolves the display name for a single friend identifier.
func (s *QueryService) GetName(ctx context.Context, id string) (string, error) {
	body, err := s.get(ctx, "/getName", url.Values{"user_name": {id}})
	if err != nil {
		return "", err
	}

	var payload struct {
		Name *string `json:"name"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", &DecodeError{Err: err}
	}
	if payload.Name == nil {
		return "", &DecodeError{Err: errors.New(`missing "name" field`)}
	}
	return *payload.Name, nil
}

// RegisterLocation reports the user's current position to the backend.
func (s *QueryService) RegisterLocation(ctx context.Context, userIdentity string, loc Location) error {
	encoded, err := json.Marshal(loc)
	if err != nil {
		return &DecodeError{Err: err}
	}

	endpoint := fmt.Sprintf("%s/registerLocation?%s", s.baseURL, url.Values{"user_name": {userIdentity}}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return &TransportError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &ServerError{Status: resp.StatusCode}
	}
	return nil
}

// GetBuildingMetadata fetches venue metadata by building name. An unknown
// building yields (nil, nil) rather than an error.
func (s *QueryService) GetBuildingMetadata(ctx context.Context, name string) (*Building, error) {
	body, err := s.get(ctx, "/getBuildingMetadata", url.Values{"name": {name}})
	if err != nil {
		var serverErr *ServerError
		if errors.As(err, &serverErr) && serverErr.Status == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}

	var building Building
	if err := json.Unmarshal(body, &building); err != nil {
		return nil, &DecodeError{Err: err}
	}
	return &building, nil
}

// GetFloorImage fetches the floor-plan image for a building level. An unknown
// building or floor yields (nil, nil).
func (s *QueryService) GetFloorImage(ctx context.Context, building string, floor int) ([]byte, error) {
	body, err := s.get(ctx, "/getFloorImage", url.Values{
		"building": {building},
		"floor":    {strconv.Itoa(floor)},
	})
	if err != nil {
		var serverErr *ServerError
		if errors.As(err, &serverErr) && serverErr.Status == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return body, nil
}

func (s *QueryService) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	endpoint := fmt.Sprintf("%s%s?%s", s.baseURL, path, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &ServerError{Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	return body, nil
}

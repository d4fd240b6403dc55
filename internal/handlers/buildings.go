package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/friendmap/backend/internal/logging"
	"github.com/friendmap/backend/internal/repositories"
	"github.com/friendmap/backend/internal/storage"
)

// BuildingHandler serves indoor-positioning venue metadata and floor plans.
type BuildingHandler struct {
	Buildings  BuildingStore
	FloorPlans FloorPlanFetcher
}

// Metadata handles GET /getBuildingMetadata requests.
func (h BuildingHandler) Metadata(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Buildings == nil {
		logger.Error("building store unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "building services unavailable"})
		return
	}

	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "must provide building name"})
		return
	}

	building, err := h.Buildings.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "no such building"})
			return
		}
		logger.Error("getBuildingMetadata failed", "name", name, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to look up building"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, building)
}

// FloorImage handles GET /getFloorImage requests, streaming the stored
// floor-plan image for a building level.
func (h BuildingHandler) FloorImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Buildings == nil || h.FloorPlans == nil {
		logger.Error("floor plan dependencies unavailable", "hasBuildings", h.Buildings != nil, "hasFloorPlans", h.FloorPlans != nil)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "floor plan services unavailable"})
		return
	}

	buildingName := strings.TrimSpace(r.URL.Query().Get("building"))
	floorParam := strings.TrimSpace(r.URL.Query().Get("floor"))
	if buildingName == "" || floorParam == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "must provide building and floor"})
		return
	}

	level, err := strconv.Atoi(floorParam)
	if err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "floor must be an integer"})
		return
	}

	key, err := h.Buildings.FloorImageKey(ctx, buildingName, level)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "no such floor"})
			return
		}
		logger.Error("floor image key lookup failed", "building", buildingName, "floor", level, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to look up floor"})
		return
	}

	body, contentType, err := h.FloorPlans.Fetch(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "floor plan missing"})
			return
		}
		logger.Error("floor image fetch failed", "key", key, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to fetch floor plan"})
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", contentType)
	if _, err := io.Copy(w, body); err != nil {
		logger.Error("stream floor image", "key", key, "error", err)
	}
}

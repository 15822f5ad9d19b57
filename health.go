package livetrack

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

type apiHandler struct {
	engine *Engine
}

type healthResponse struct {
	Status          string `json:"status"`
	TrackedEntities int    `json:"tracked_entities"`
}

func (h *apiHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	resp := healthResponse{
		Status:          "ok",
		TrackedEntities: len(h.engine.Entities()),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *apiHandler) handleListEntities(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	ids := h.engine.Entities()
	if ids == nil {
		ids = []string{}
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"entities": ids})
}

type estimateResponse struct {
	EntityID    string  `json:"entity_id"`
	Value       float64 `json:"value"`
	Phase       string  `json:"phase"`
	TimestampMS int64   `json:"timestamp_ms"`
}

func (h *apiHandler) handleEstimate(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityID")
	value, phase, ok := h.engine.Estimate(entityID)
	if !ok {
		http.Error(w, "unknown entity", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(estimateResponse{
		EntityID:    entityID,
		Value:       value,
		Phase:       phase.String(),
		TimestampMS: time.Now().UnixMilli(),
	})
}

type startRequest struct {
	EntityID  string `json:"entity_id"`
	VehicleID string `json:"vehicle_id"`
	RouteID   string `json:"route_id"`
	Segment   struct {
		StartID    string `json:"start_id"`
		EndID      string `json:"end_id"`
		StartEpoch int64  `json:"start_epoch"`
		EndEpoch   int64  `json:"end_epoch"`
	} `json:"segment"`
}

func (h *apiHandler) handleStart(w http.ResponseWriter, r *http.Request) {
	var body startRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.VehicleID == "" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	ref, err := BuildEntityRef(body.RouteID, body.VehicleID)
	if err != nil {
		http.Error(w, "route geometry unavailable", http.StatusUnprocessableEntity)
		return
	}
	if body.EntityID != "" {
		ref.EntityID = body.EntityID
	}
	ref.Segment = Segment{
		StartID:    body.Segment.StartID,
		EndID:      body.Segment.EndID,
		StartEpoch: body.Segment.StartEpoch,
		EndEpoch:   body.Segment.EndEpoch,
	}
	if err := h.engine.Start(ref); err != nil {
		http.Error(w, "failed to start tracking", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]string{"entity_id": ref.EntityID})
}

func (h *apiHandler) handleVisibility(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityID")
	var body struct {
		Visible bool `json:"visible"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	h.engine.SetVisible(entityID, body.Visible)
	w.WriteHeader(http.StatusNoContent)
}

func (h *apiHandler) handleStop(w http.ResponseWriter, r *http.Request) {
	h.engine.Stop(chi.URLParam(r, "entityID"))
	w.WriteHeader(http.StatusNoContent)
}

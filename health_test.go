package livetrack

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/theoremus-urban-solutions/livetrack/track"
)

func apiRouter(e *Engine) http.Handler {
	r := chi.NewRouter()
	h := &apiHandler{engine: e}
	r.Get("/api/health", h.handleHealth)
	r.Get("/api/entities", h.handleListEntities)
	r.Post("/api/entities", h.handleStart)
	r.Get("/api/entities/{entityID}/estimate", h.handleEstimate)
	r.Post("/api/entities/{entityID}/visibility", h.handleVisibility)
	r.Delete("/api/entities/{entityID}", h.handleStop)
	return r
}

func startTestEntity(t *testing.T, e *Engine, entityID string) {
	t.Helper()
	if err := e.Start(EntityRef{EntityID: entityID, VehicleID: "train-7"}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(e.Shutdown)
}

func TestHandleHealth(t *testing.T) {
	fetcher := &fakeFetcher{snaps: map[string]track.Snapshot{
		"train-7": movingSnapshot(0.4),
	}}
	e := NewEngine(testOptions(), fetcher, nil)
	startTestEntity(t, e, "ent-1")
	router := apiRouter(e)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp healthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if resp.Status != "ok" || resp.TrackedEntities != 1 {
		t.Errorf("unexpected health response: %+v", resp)
	}
}

func TestHandleListEntities(t *testing.T) {
	fetcher := &fakeFetcher{snaps: map[string]track.Snapshot{
		"train-7": movingSnapshot(0.4),
	}}
	e := NewEngine(testOptions(), fetcher, nil)
	router := apiRouter(e)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/entities", nil))
	if !strings.Contains(rec.Body.String(), `"entities":[]`) {
		t.Errorf("empty engine should list no entities, got %s", rec.Body.String())
	}

	startTestEntity(t, e, "ent-1")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/entities", nil))
	if !strings.Contains(rec.Body.String(), `"ent-1"`) {
		t.Errorf("expected ent-1 in listing, got %s", rec.Body.String())
	}
}

func TestHandleEstimate(t *testing.T) {
	fetcher := &fakeFetcher{snaps: map[string]track.Snapshot{
		"train-7": movingSnapshot(0.4),
	}}
	e := NewEngine(testOptions(), fetcher, nil)
	startTestEntity(t, e, "ent-1")
	router := apiRouter(e)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/entities/ent-1/estimate", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Error("estimate responses must not be cached")
	}
	var resp estimateResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if resp.EntityID != "ent-1" {
		t.Errorf("unexpected entity id %q", resp.EntityID)
	}
	if resp.Value < 0 || resp.Value > 1 {
		t.Errorf("estimate %f out of range", resp.Value)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/entities/nope/estimate", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown entity should 404, got %d", rec.Code)
	}
}

func TestHandleStart(t *testing.T) {
	fetcher := &fakeFetcher{snaps: map[string]track.Snapshot{
		"train-7": movingSnapshot(0.4),
	}}
	e := NewEngine(testOptions(), fetcher, nil)
	t.Cleanup(e.Shutdown)
	router := apiRouter(e)

	body := `{
		"entity_id": "ent-1",
		"vehicle_id": "train-7",
		"segment": {"start_id": "A", "end_id": "B"}
	}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/entities", strings.NewReader(body)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"ent-1"`) {
		t.Errorf("response should echo the entity id, got %s", rec.Body.String())
	}
	if len(e.Entities()) != 1 {
		t.Errorf("expected 1 tracked entity, got %d", len(e.Entities()))
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/entities", strings.NewReader(`{}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing vehicle_id should 400, got %d", rec.Code)
	}
}

func TestHandleVisibility(t *testing.T) {
	fetcher := &fakeFetcher{snaps: map[string]track.Snapshot{
		"train-7": movingSnapshot(0.4),
	}}
	e := NewEngine(testOptions(), fetcher, nil)
	startTestEntity(t, e, "ent-1")
	router := apiRouter(e)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/entities/ent-1/visibility", strings.NewReader(`{"visible": false}`))
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/entities/ent-1/visibility", strings.NewReader("not json"))
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body should 400, got %d", rec.Code)
	}
}

func TestHandleStop(t *testing.T) {
	fetcher := &fakeFetcher{snaps: map[string]track.Snapshot{
		"train-7": movingSnapshot(0.4),
	}}
	e := NewEngine(testOptions(), fetcher, nil)
	startTestEntity(t, e, "ent-1")
	router := apiRouter(e)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/entities/ent-1", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if len(e.Entities()) != 0 {
		t.Error("entity should be gone after DELETE")
	}
}

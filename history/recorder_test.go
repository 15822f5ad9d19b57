package history

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/theoremus-urban-solutions/livetrack/geo"
	"github.com/theoremus-urban-solutions/livetrack/track"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Connect(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}
	return db
}

func TestConnectCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "test.db")
	db, err := Connect(path)
	if err != nil {
		t.Fatalf("Connect should create parent directories: %v", err)
	}
	_ = db.Close()
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	if err := db.EnsureSchema(context.Background()); err != nil {
		t.Errorf("second EnsureSchema failed: %v", err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	rec, err := StartSession(ctx, db, "entity-1", "L1")
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if rec.SessionID() == "" {
		t.Fatal("session id should be set")
	}

	progress := 0.42
	snap := track.Snapshot{
		PositionedAt:     1_700_000_000,
		Coordinate:       &geo.Point{Lon: 2.17, Lat: 41.39},
		ProgressFraction: &progress,
		StopID:           "stop-B",
		VehicleState:     track.StateInTransit,
	}
	if err := rec.RecordObservation(ctx, snap, 0.45); err != nil {
		t.Fatalf("RecordObservation failed: %v", err)
	}
	if err := rec.RecordPass(ctx, "stop-B", 0.45); err != nil {
		t.Fatalf("RecordPass failed: %v", err)
	}
	if err := rec.CloseSession(ctx); err != nil {
		t.Fatalf("CloseSession failed: %v", err)
	}

	var count int
	if err := db.conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM observations WHERE session_id = ?", rec.SessionID(),
	).Scan(&count); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 observation, got %d", count)
	}

	var state, observedAt string
	var anchor float64
	if err := db.conn.QueryRowContext(ctx,
		"SELECT vehicle_state, anchor_value, observed_at FROM observations WHERE session_id = ?", rec.SessionID(),
	).Scan(&state, &anchor, &observedAt); err != nil {
		t.Fatalf("observation query failed: %v", err)
	}
	if state != "in_transit" || anchor != 0.45 {
		t.Errorf("unexpected observation row: state=%q anchor=%f", state, anchor)
	}
	if observedAt != "2023-11-14T22:13:20Z" {
		t.Errorf("observed_at should render the fix timestamp, got %q", observedAt)
	}

	var stoppedAt *string
	if err := db.conn.QueryRowContext(ctx,
		"SELECT stopped_at FROM sessions WHERE session_id = ?", rec.SessionID(),
	).Scan(&stoppedAt); err != nil {
		t.Fatalf("session query failed: %v", err)
	}
	if stoppedAt == nil || *stoppedAt == "" {
		t.Error("closed session should have a stopped_at timestamp")
	}
}

func TestRecordObservationWithoutOptionalFields(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	rec, err := StartSession(ctx, db, "entity-1", "")
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	snap := track.Snapshot{PositionedAt: 1_700_000_000, VehicleState: track.StateUnknown}
	if err := rec.RecordObservation(ctx, snap, 0); err != nil {
		t.Errorf("bare snapshot should still record: %v", err)
	}
}

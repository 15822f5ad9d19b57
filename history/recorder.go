package history

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/theoremus-urban-solutions/livetrack/track"
	"github.com/theoremus-urban-solutions/livetrack/utils"
)

// Recorder writes one tracking session's observations and waypoint passes.
type Recorder struct {
	db        *DB
	sessionID string
	entityID  string
}

// StartSession creates a session row and returns a Recorder bound to it.
func StartSession(ctx context.Context, db *DB, entityID, routeID string) (*Recorder, error) {
	sessionID := uuid.New().String()
	db.writeMu.Lock()
	defer db.writeMu.Unlock()
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO sessions (session_id, entity_id, route_id, started_at) VALUES (?, ?, ?, ?)",
		sessionID, entityID, routeID, utils.Iso8601Now(),
	)
	if err != nil {
		return nil, fmt.Errorf("history: failed to create session: %w", err)
	}
	return &Recorder{db: db, sessionID: sessionID, entityID: entityID}, nil
}

// SessionID returns the session's identifier.
func (r *Recorder) SessionID() string { return r.sessionID }

// RecordObservation stores one accepted snapshot together with the anchor
// value it reconciled to.
func (r *Recorder) RecordObservation(ctx context.Context, s track.Snapshot, anchorValue float64) error {
	var lat, lon, progress any
	if s.Coordinate != nil {
		lat = s.Coordinate.Lat
		lon = s.Coordinate.Lon
	}
	if s.ProgressFraction != nil {
		progress = *s.ProgressFraction
	}
	r.db.writeMu.Lock()
	defer r.db.writeMu.Unlock()
	_, err := r.db.conn.ExecContext(ctx, `
		INSERT INTO observations (
			session_id, positioned_at, observed_at, progress, latitude, longitude,
			stop_id, vehicle_state, anchor_value, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.sessionID, s.PositionedAt, utils.Iso8601FromUnixSeconds(s.PositionedAt),
		progress, lat, lon,
		s.StopID, s.VehicleState.String(), anchorValue,
		utils.Iso8601Now(),
	)
	if err != nil {
		return fmt.Errorf("history: failed to record observation: %w", err)
	}
	return nil
}

// RecordPass stores the moment the published estimate crossed a waypoint.
func (r *Recorder) RecordPass(ctx context.Context, waypointID string, progress float64) error {
	r.db.writeMu.Lock()
	defer r.db.writeMu.Unlock()
	_, err := r.db.conn.ExecContext(ctx,
		"INSERT INTO waypoint_passes (session_id, waypoint_id, passed_at, progress) VALUES (?, ?, ?, ?)",
		r.sessionID, waypointID, utils.Iso8601Now(), progress,
	)
	if err != nil {
		return fmt.Errorf("history: failed to record pass: %w", err)
	}
	return nil
}

// CloseSession stamps the session's end time.
func (r *Recorder) CloseSession(ctx context.Context) error {
	r.db.writeMu.Lock()
	defer r.db.writeMu.Unlock()
	_, err := r.db.conn.ExecContext(ctx,
		"UPDATE sessions SET stopped_at = ? WHERE session_id = ?",
		utils.Iso8601Now(), r.sessionID,
	)
	if err != nil {
		return fmt.Errorf("history: failed to close session: %w", err)
	}
	return nil
}

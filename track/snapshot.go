package track

import (
	"github.com/theoremus-urban-solutions/livetrack/geo"
)

// VehicleState is the reported movement state of the tracked vehicle.
type VehicleState int

const (
	StateUnknown VehicleState = iota
	StateScheduled
	StateInTransit
	StateApproaching
	StateArrivedAt
)

// String returns the wire name of the state.
func (s VehicleState) String() string {
	switch s {
	case StateScheduled:
		return "scheduled"
	case StateInTransit:
		return "in_transit"
	case StateApproaching:
		return "approaching"
	case StateArrivedAt:
		return "arrived_at"
	default:
		return "unknown"
	}
}

// Moving reports whether the state indicates active movement.
func (s VehicleState) Moving() bool {
	return s == StateInTransit || s == StateApproaching
}

// Snapshot is a single authoritative observation of a vehicle. No field
// besides PositionedAt is guaranteed present; the Reconciler degrades
// gracefully when progress and coordinate are both missing.
type Snapshot struct {
	PositionedAt int64 // epoch seconds, observation time

	Coordinate       *geo.Point
	ProgressFraction *float64 // [0,1], distance along the current segment

	StopID            string // waypoint the vehicle state refers to, if any
	SegmentStartID    string
	SegmentEndID      string
	SegmentStartEpoch int64 // epoch seconds, 0 when undeclared
	SegmentEndEpoch   int64

	VehicleState VehicleState
}

// Anchor is the last reconciled (value, timestamp) pair the clock
// extrapolates from. Values are progress fractions; Rate is fraction per
// millisecond. Ceiling caps extrapolated growth until arrival is confirmed.
type Anchor struct {
	Value       float64
	TimestampMS int64
	Rate        float64
	Ceiling     float64
}

// EstimateAt evaluates the anchor's extrapolation at the given wall time.
func (a Anchor) EstimateAt(nowMS int64) float64 {
	elapsed := nowMS - a.TimestampMS
	if elapsed < 0 {
		elapsed = 0
	}
	v := a.Value + float64(elapsed)*a.Rate
	ceil := a.Ceiling
	if ceil <= 0 {
		ceil = 1
	}
	if v > ceil {
		v = ceil
	}
	if v < 0 {
		v = 0
	}
	return v
}

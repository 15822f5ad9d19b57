package track

import (
	"math"
	"testing"
)

func TestVehicleStateString(t *testing.T) {
	tests := []struct {
		state    VehicleState
		expected string
	}{
		{StateUnknown, "unknown"},
		{StateScheduled, "scheduled"},
		{StateInTransit, "in_transit"},
		{StateApproaching, "approaching"},
		{StateArrivedAt, "arrived_at"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.state.String(); got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestVehicleStateMoving(t *testing.T) {
	moving := map[VehicleState]bool{
		StateUnknown:     false,
		StateScheduled:   false,
		StateInTransit:   true,
		StateApproaching: true,
		StateArrivedAt:   false,
	}
	for state, want := range moving {
		if got := state.Moving(); got != want {
			t.Errorf("%s: expected Moving()=%v, got %v", state, want, got)
		}
	}
}

func TestAnchorEstimateAt(t *testing.T) {
	tests := []struct {
		name     string
		anchor   Anchor
		nowMS    int64
		expected float64
	}{
		{
			name:     "no elapsed time",
			anchor:   Anchor{Value: 0.4, TimestampMS: 1000, Rate: 1e-4, Ceiling: 0.95},
			nowMS:    1000,
			expected: 0.4,
		},
		{
			name:     "linear growth",
			anchor:   Anchor{Value: 0.4, TimestampMS: 1000, Rate: 1e-4, Ceiling: 0.95},
			nowMS:    2000,
			expected: 0.5,
		},
		{
			name:     "clamped at ceiling",
			anchor:   Anchor{Value: 0.4, TimestampMS: 1000, Rate: 1e-3, Ceiling: 0.95},
			nowMS:    1_000_000,
			expected: 0.95,
		},
		{
			name:     "clock skew never rewinds",
			anchor:   Anchor{Value: 0.4, TimestampMS: 1000, Rate: 1e-4, Ceiling: 0.95},
			nowMS:    500,
			expected: 0.4,
		},
		{
			name:     "zero ceiling defaults to 1",
			anchor:   Anchor{Value: 0.99, TimestampMS: 0, Rate: 1e-3},
			nowMS:    100_000,
			expected: 1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.anchor.EstimateAt(tt.nowMS)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("expected %f, got %f", tt.expected, got)
			}
		})
	}
}

func TestAnchorEstimateMonotonic(t *testing.T) {
	a := Anchor{Value: 0.2, TimestampMS: 0, Rate: 5e-7, Ceiling: 0.95}
	prev := a.EstimateAt(0)
	for ms := int64(0); ms <= 2_000_000; ms += 10_000 {
		v := a.EstimateAt(ms)
		if v < prev {
			t.Fatalf("estimate decreased at %d ms: %f < %f", ms, v, prev)
		}
		prev = v
	}
	if prev != 0.95 {
		t.Errorf("long extrapolation should saturate at the ceiling, got %f", prev)
	}
}

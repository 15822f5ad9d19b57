package track

import (
	"errors"
	"sync"
	"time"

	"github.com/theoremus-urban-solutions/livetrack/geo"
)

// ErrUnresolvableSnapshot is returned when a snapshot carries neither a
// progress fraction nor a projectable coordinate nor a usable segment
// window. The previous anchor keeps free-running.
var ErrUnresolvableSnapshot = errors.New("track: snapshot resolves to no position")

// Phase is the reconciler's lifecycle state for one tracked vehicle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseTracking
	PhaseStopped
	PhaseFaulted
)

func (p Phase) String() string {
	switch p {
	case PhaseTracking:
		return "tracking"
	case PhaseStopped:
		return "stopped"
	case PhaseFaulted:
		return "faulted"
	default:
		return "idle"
	}
}

// ReconcilerConfig carries the smoothing constants. The defaults were chosen
// empirically, not derived from a model; treat them as tuning knobs.
type ReconcilerConfig struct {
	CatchUpFactor      float64       // applied when the server is ahead of the local estimate
	CorrectionFactor   float64       // applied when the server is behind beyond the dead-band
	DeadBand           float64       // fraction window within which discrepancies are ignored
	ArrivalCeiling     float64       // extrapolation cap until arrival is confirmed
	MinSlopePerMS      float64       // minimum non-zero rate while the vehicle is moving
	MinSegmentDuration time.Duration // floor for the declared segment window
}

// DefaultReconcilerConfig returns the production smoothing constants.
func DefaultReconcilerConfig() ReconcilerConfig {
	return ReconcilerConfig{
		CatchUpFactor:      0.5,
		CorrectionFactor:   0.3,
		DeadBand:           0.05,
		ArrivalCeiling:     0.95,
		MinSlopePerMS:      5e-7,
		MinSegmentDuration: 30 * time.Second,
	}
}

// Reconciler owns the anchor for one tracked vehicle. Apply is called with
// each authoritative snapshot; EstimateAt is called by the clock between
// snapshots. Both are safe for concurrent use.
type Reconciler struct {
	mu  sync.Mutex
	cfg ReconcilerConfig

	index *geo.PathIndex // optional; needed only for coordinate snapshots

	phase         Phase
	anchor        Anchor
	segmentEndID  string // destination waypoint of the current segment
	stoppedAtID   string // waypoint the vehicle is held at while PhaseStopped
	onPhaseChange func(Phase)
}

// NewReconciler creates a Reconciler in PhaseIdle. index may be nil when the
// feed always reports progress fractions directly.
func NewReconciler(cfg ReconcilerConfig, index *geo.PathIndex) *Reconciler {
	if cfg.CatchUpFactor <= 0 {
		cfg = DefaultReconcilerConfig()
	}
	return &Reconciler{cfg: cfg, index: index, phase: PhaseIdle}
}

// OnPhaseChange registers a callback fired on every phase transition.
// The callback runs with the reconciler unlocked.
func (r *Reconciler) OnPhaseChange(fn func(Phase)) {
	r.mu.Lock()
	r.onPhaseChange = fn
	r.mu.Unlock()
}

// Phase returns the current lifecycle phase.
func (r *Reconciler) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// Anchor returns a copy of the current anchor.
func (r *Reconciler) Anchor() Anchor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.anchor
}

// EstimateAt evaluates the current extrapolation at the given wall time.
func (r *Reconciler) EstimateAt(nowMS int64) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.anchor.EstimateAt(nowMS)
}

// Apply reconciles one authoritative snapshot against the local estimate and
// installs the resulting anchor. Unresolvable snapshots leave the previous
// anchor free-running and move the reconciler to PhaseFaulted.
func (r *Reconciler) Apply(s Snapshot, nowMS int64) (Anchor, error) {
	r.mu.Lock()

	// Arrival wins over every other rule: hold at the stop, no drift.
	if stopID, ok := r.arrivedAtDestination(s); ok {
		r.anchor = Anchor{Value: 1, TimestampMS: nowMS, Rate: 0, Ceiling: 1}
		r.segmentEndID = s.SegmentEndID
		r.stoppedAtID = stopID
		a := r.anchor
		fire := r.setPhaseLocked(PhaseStopped)
		r.mu.Unlock()
		fire()
		return a, nil
	}

	raw, ok := r.resolve(s)
	if !ok {
		fire := r.setPhaseLocked(PhaseFaulted)
		r.mu.Unlock()
		fire()
		return Anchor{}, ErrUnresolvableSnapshot
	}

	segmentChanged := s.SegmentEndID != "" && s.SegmentEndID != r.segmentEndID
	leavingStop := r.phase == PhaseStopped && s.SegmentEndID != "" && s.SegmentEndID != r.stoppedAtID

	value := raw
	anchorTS := nowMS
	switch {
	case r.phase == PhaseIdle, segmentChanged, leavingStop:
		// The reference frame changed (or this is the first fix): no smoothing.
	case r.phase == PhaseStopped:
		// Same destination while stopped: stay put.
		a := r.anchor
		r.mu.Unlock()
		return a, nil
	default:
		// Observations arrive late; compare in the observation's time frame
		// and anchor there, so progress accrued since then is never rewound.
		obsMS := s.PositionedAt * 1000
		if obsMS <= 0 || obsMS > nowMS {
			obsMS = nowMS
		}
		local := r.anchor.EstimateAt(obsMS)
		diff := raw - local
		switch {
		case diff > r.cfg.DeadBand:
			value = local + diff*r.cfg.CatchUpFactor
		case diff < -r.cfg.DeadBand:
			value = local + diff*r.cfg.CorrectionFactor
		default:
			// In agreement: keep extrapolating from the existing anchor.
			a := r.anchor
			fire := r.setPhaseLocked(PhaseTracking)
			r.mu.Unlock()
			fire()
			return a, nil
		}
		anchorTS = obsMS
	}

	ceiling := r.cfg.ArrivalCeiling
	rate := 0.0
	if s.VehicleState.Moving() {
		rate = r.slope(value, ceiling, s)
	}

	if s.SegmentEndID != "" {
		r.segmentEndID = s.SegmentEndID
	}
	r.stoppedAtID = ""
	r.anchor = Anchor{Value: value, TimestampMS: anchorTS, Rate: rate, Ceiling: ceiling}
	a := r.anchor
	fire := r.setPhaseLocked(PhaseTracking)
	r.mu.Unlock()
	fire()
	return a, nil
}

// arrivedAtDestination reports whether the snapshot declares arrival at the
// destination of the current (or its own) segment.
func (r *Reconciler) arrivedAtDestination(s Snapshot) (string, bool) {
	if s.VehicleState != StateArrivedAt {
		return "", false
	}
	stopID := s.StopID
	if stopID == "" {
		stopID = s.SegmentEndID
	}
	if stopID == "" {
		return "", false
	}
	dest := s.SegmentEndID
	if dest == "" {
		dest = r.segmentEndID
	}
	if dest == "" || stopID != dest {
		return "", false
	}
	return stopID, true
}

// resolve turns a snapshot into a raw progress fraction. Preference order:
// declared fraction, projected coordinate, declared segment time window.
func (r *Reconciler) resolve(s Snapshot) (float64, bool) {
	if s.ProgressFraction != nil {
		return clampFraction(*s.ProgressFraction), true
	}
	if s.Coordinate != nil && r.index != nil {
		proj := r.index.Project(*s.Coordinate)
		startM, errS := r.index.WaypointDistance(s.SegmentStartID)
		endM, errE := r.index.WaypointDistance(s.SegmentEndID)
		if errS == nil && errE == nil && endM > startM {
			return clampFraction((proj.DistanceM - startM) / (endM - startM)), true
		}
		if r.index.TotalM() > 0 {
			return clampFraction(proj.DistanceM / r.index.TotalM()), true
		}
	}
	if s.SegmentStartEpoch > 0 && s.SegmentEndEpoch > s.SegmentStartEpoch {
		frac := float64(s.PositionedAt-s.SegmentStartEpoch) / float64(s.SegmentEndEpoch-s.SegmentStartEpoch)
		return clampFraction(frac), true
	}
	return 0, false
}

// slope derives the extrapolation rate so the estimate reaches the ceiling
// roughly when the declared segment window closes, never slower than the
// configured minimum while moving.
func (r *Reconciler) slope(value, ceiling float64, s Snapshot) float64 {
	windowMS := (s.SegmentEndEpoch - s.SegmentStartEpoch) * 1000
	if minMS := r.cfg.MinSegmentDuration.Milliseconds(); windowMS < minMS {
		windowMS = minMS
	}
	rate := (ceiling - value) / float64(windowMS)
	if rate < 0 {
		rate = 0
	}
	if rate > 0 && rate < r.cfg.MinSlopePerMS {
		rate = r.cfg.MinSlopePerMS
	}
	if rate == 0 && value < ceiling {
		rate = r.cfg.MinSlopePerMS
	}
	return rate
}

// setPhaseLocked updates the phase and returns the callback to fire after
// unlocking; the caller must hold the mutex.
func (r *Reconciler) setPhaseLocked(p Phase) func() {
	if p == r.phase {
		return func() {}
	}
	r.phase = p
	fn := r.onPhaseChange
	if fn == nil {
		return func() {}
	}
	return func() { fn(p) }
}

func clampFraction(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

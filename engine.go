package livetrack

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/theoremus-urban-solutions/livetrack/config"
	"github.com/theoremus-urban-solutions/livetrack/geo"
	"github.com/theoremus-urban-solutions/livetrack/history"
	"github.com/theoremus-urban-solutions/livetrack/poll"
	"github.com/theoremus-urban-solutions/livetrack/track"
)

// Fetcher is the transport the engine pulls snapshots through.
type Fetcher interface {
	FetchSnapshot(ctx context.Context, vehicleID string) (track.Snapshot, error)
}

// Listener receives the engine's published output.
type Listener interface {
	OnEstimate(entityID string, value float64, timestampMS int64)
	OnPhaseChange(entityID string, phase track.Phase)
}

// Segment declares the sub-span of the route the vehicle currently runs,
// including the window over which progress should reach 1.0.
type Segment struct {
	StartID    string
	EndID      string
	StartEpoch int64
	EndEpoch   int64
}

// EntityRef identifies a vehicle to track and the route geometry to track
// it against.
type EntityRef struct {
	EntityID  string
	VehicleID string
	RouteID   string
	Index     *geo.PathIndex // may be nil for fraction-only feeds
	Segment   Segment
}

// Options are the engine's tuning knobs, normally built from configuration.
type Options struct {
	Tick       time.Duration
	Reconciler track.ReconcilerConfig
	Intervals  poll.Intervals
}

// OptionsFromConfig converts the YAML engine section into Options.
func OptionsFromConfig(cfg config.EngineConfig) Options {
	rc := track.DefaultReconcilerConfig()
	if s := cfg.Smoothing; s.CatchUpFactor > 0 {
		rc.CatchUpFactor = s.CatchUpFactor
		rc.CorrectionFactor = s.CorrectionFactor
		rc.DeadBand = s.DeadBand
		rc.ArrivalCeiling = s.ArrivalCeiling
		rc.MinSegmentDuration = time.Duration(s.MinSegmentDurationS) * time.Second
	}
	iv := poll.DefaultIntervals()
	if r := cfg.Refresh; r.BaseS > 0 {
		iv.Base = time.Duration(r.BaseS) * time.Second
		iv.Approaching = time.Duration(r.ApproachingS) * time.Second
		iv.Stopped = time.Duration(r.StoppedS) * time.Second
		iv.Stale = time.Duration(r.StaleS) * time.Second
		iv.Scheduled = time.Duration(r.ScheduledS) * time.Second
		iv.Min = time.Duration(r.MinS) * time.Second
		iv.Max = time.Duration(r.MaxS) * time.Second
		iv.MaxBackoff = time.Duration(r.MaxBackoffS) * time.Second
		iv.MaxFailures = r.MaxFailures
		iv.ProximityThreshold = r.Proximity
		iv.StaleAfter = time.Duration(r.StaleAfterS) * time.Second
	}
	tick := 750 * time.Millisecond
	if cfg.TickMS > 0 {
		tick = time.Duration(cfg.TickMS) * time.Millisecond
	}
	return Options{Tick: tick, Reconciler: rc, Intervals: iv}
}

// TrackedEntity bundles the per-vehicle state the engine owns: reconciler,
// clock, scheduler, and the optional history recorder. Everything is created
// by Start and destroyed together by Stop.
type TrackedEntity struct {
	ref        EntityRef
	reconciler *track.Reconciler
	clock      *track.Clock
	scheduler  *poll.Scheduler
	recorder   *history.Recorder

	mu      sync.Mutex
	segment Segment
}

// Engine tracks any number of independent vehicles. Each tracked entity has
// its own reconciler, animation clock and poll scheduler; there is no
// cross-entity coupling.
type Engine struct {
	opts    Options
	fetcher Fetcher
	db      *history.DB // nil disables recording

	mu        sync.Mutex
	listeners []Listener
	entities  map[string]*TrackedEntity
}

// NewEngine creates an engine. db may be nil to disable history recording.
func NewEngine(opts Options, fetcher Fetcher, db *history.DB) *Engine {
	if opts.Tick <= 0 {
		opts.Tick = 750 * time.Millisecond
	}
	return &Engine{
		opts:     opts,
		fetcher:  fetcher,
		db:       db,
		entities: map[string]*TrackedEntity{},
	}
}

// AddListener registers a listener for all tracked entities.
func (e *Engine) AddListener(l Listener) {
	e.mu.Lock()
	e.listeners = append(e.listeners, l)
	e.mu.Unlock()
}

// Start begins tracking the referenced vehicle: creates its reconciler,
// clock and scheduler, and fires an immediate first fetch. Starting an
// already-tracked entity is a no-op.
func (e *Engine) Start(ref EntityRef) error {
	e.mu.Lock()
	if _, ok := e.entities[ref.EntityID]; ok {
		e.mu.Unlock()
		return nil
	}
	ent := &TrackedEntity{ref: ref, segment: ref.Segment}
	ent.reconciler = track.NewReconciler(e.opts.Reconciler, ref.Index)
	ent.reconciler.OnPhaseChange(func(p track.Phase) {
		e.notifyPhase(ref.EntityID, p)
	})
	ent.clock = track.NewClock(e.opts.Tick, ent.reconciler.EstimateAt, func(v float64, ts int64) {
		e.notifyEstimate(ref.EntityID, v, ts)
	})
	ent.scheduler = poll.NewScheduler(e.opts.Intervals,
		func(ctx context.Context) (track.Snapshot, error) {
			snap, err := e.fetcher.FetchSnapshot(ctx, ref.VehicleID)
			if err != nil {
				return track.Snapshot{}, err
			}
			return ent.decorate(snap), nil
		},
		func(snap track.Snapshot) { e.applySnapshot(ent, snap) },
	)
	if e.db != nil {
		rec, err := history.StartSession(context.Background(), e.db, ref.EntityID, ref.RouteID)
		if err != nil {
			log.Printf("engine: history disabled for %s: %v", ref.EntityID, err)
		} else {
			ent.recorder = rec
		}
	}
	e.entities[ref.EntityID] = ent
	e.mu.Unlock()

	go ent.clock.Run()
	ent.scheduler.Start()
	log.Printf("engine: tracking %s (vehicle %s, route %s)", ref.EntityID, ref.VehicleID, ref.RouteID)
	return nil
}

// Stop destroys the tracked entity: cancels polling and any in-flight fetch,
// stops the clock, closes the history session, and discards all state.
func (e *Engine) Stop(entityID string) {
	e.mu.Lock()
	ent, ok := e.entities[entityID]
	if ok {
		delete(e.entities, entityID)
	}
	e.mu.Unlock()
	if !ok {
		return
	}
	ent.scheduler.Stop()
	ent.clock.Close()
	if ent.recorder != nil {
		if err := ent.recorder.CloseSession(context.Background()); err != nil {
			log.Printf("engine: %v", err)
		}
	}
	log.Printf("engine: stopped tracking %s", entityID)
}

// SetVisible suspends or resumes one entity's clock and scheduler together.
// Hidden entities neither tick nor poll; becoming visible publishes and
// fetches immediately.
func (e *Engine) SetVisible(entityID string, visible bool) {
	e.mu.Lock()
	ent, ok := e.entities[entityID]
	e.mu.Unlock()
	if !ok {
		return
	}
	ent.scheduler.SetVisible(visible)
	ent.clock.SetVisible(visible)
}

// SetSegment updates the declared segment for subsequent snapshots, used
// when the surrounding system advances the vehicle to its next leg.
func (e *Engine) SetSegment(entityID string, seg Segment) {
	e.mu.Lock()
	ent, ok := e.entities[entityID]
	e.mu.Unlock()
	if !ok {
		return
	}
	ent.mu.Lock()
	ent.segment = seg
	ent.mu.Unlock()
}

// Estimate returns the current extrapolated value and phase for an entity.
func (e *Engine) Estimate(entityID string) (float64, track.Phase, bool) {
	e.mu.Lock()
	ent, ok := e.entities[entityID]
	e.mu.Unlock()
	if !ok {
		return 0, track.PhaseIdle, false
	}
	return ent.reconciler.EstimateAt(time.Now().UnixMilli()), ent.reconciler.Phase(), true
}

// Entities lists the ids of all currently tracked entities.
func (e *Engine) Entities() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, 0, len(e.entities))
	for id := range e.entities {
		ids = append(ids, id)
	}
	return ids
}

// Shutdown stops every tracked entity.
func (e *Engine) Shutdown() {
	for _, id := range e.Entities() {
		e.Stop(id)
	}
}

// applySnapshot runs the reconciler on a fetched snapshot and forces an
// immediate publish. Unresolvable snapshots are logged and dropped; the
// previous anchor keeps free-running.
func (e *Engine) applySnapshot(ent *TrackedEntity, snap track.Snapshot) {
	anchor, err := ent.reconciler.Apply(snap, time.Now().UnixMilli())
	if err != nil {
		log.Printf("engine: %s: snapshot discarded: %v", ent.ref.EntityID, err)
		return
	}
	ent.clock.Refresh()
	if ent.recorder != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := ent.recorder.RecordObservation(ctx, snap, anchor.Value); err != nil {
			log.Printf("engine: %v", err)
		}
		if snap.VehicleState == track.StateArrivedAt && snap.StopID != "" {
			if err := ent.recorder.RecordPass(ctx, snap.StopID, anchor.Value); err != nil {
				log.Printf("engine: %v", err)
			}
		}
	}
}

// decorate stamps the entity's declared segment onto snapshots the feed
// left bare.
func (ent *TrackedEntity) decorate(snap track.Snapshot) track.Snapshot {
	ent.mu.Lock()
	seg := ent.segment
	ent.mu.Unlock()
	if snap.SegmentStartID == "" {
		snap.SegmentStartID = seg.StartID
	}
	if snap.SegmentEndID == "" {
		snap.SegmentEndID = seg.EndID
	}
	if snap.SegmentStartEpoch == 0 {
		snap.SegmentStartEpoch = seg.StartEpoch
	}
	if snap.SegmentEndEpoch == 0 {
		snap.SegmentEndEpoch = seg.EndEpoch
	}
	return snap
}

func (e *Engine) notifyEstimate(entityID string, v float64, ts int64) {
	e.mu.Lock()
	listeners := append([]Listener(nil), e.listeners...)
	e.mu.Unlock()
	for _, l := range listeners {
		l.OnEstimate(entityID, v, ts)
	}
}

func (e *Engine) notifyPhase(entityID string, p track.Phase) {
	e.mu.Lock()
	listeners := append([]Listener(nil), e.listeners...)
	e.mu.Unlock()
	for _, l := range listeners {
		l.OnPhaseChange(entityID, p)
	}
}

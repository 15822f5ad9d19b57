package poll

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/theoremus-urban-solutions/livetrack/track"
	"github.com/theoremus-urban-solutions/livetrack/utils"
)

// FetchFunc performs one authoritative fetch. It must honor ctx cancellation.
type FetchFunc func(ctx context.Context) (track.Snapshot, error)

// ApplyFunc receives every successfully fetched snapshot, in order.
type ApplyFunc func(track.Snapshot)

// Scheduler owns the refresh cadence for one tracked vehicle. It issues at
// most one fetch at a time; starting a new fetch cancels the previous one,
// and a cancelled fetch's result is never applied.
type Scheduler struct {
	iv    Intervals
	fetch FetchFunc
	apply ApplyFunc
	now   func() time.Time

	mu       sync.Mutex
	running  bool
	visible  bool
	failures int
	gen      uint64
	timer    *time.Timer
	cancel   context.CancelFunc

	lastState         track.VehicleState
	lastProgress      float64
	lastObservedEpoch int64
}

// NewScheduler creates an inert scheduler; call Start to begin polling.
func NewScheduler(iv Intervals, fetch FetchFunc, apply ApplyFunc) *Scheduler {
	if iv.Base <= 0 {
		iv = DefaultIntervals()
	}
	return &Scheduler{iv: iv, fetch: fetch, apply: apply, now: time.Now, visible: true}
}

// Start begins polling with an immediate fetch. Calling Start on a running
// scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()
	s.fireNow()
}

// Stop cancels any pending timer and in-flight fetch. The scheduler becomes
// inert until Start is called again.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.running = false
	s.gen++
	s.stopTimerLocked()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// SetVisible suspends scheduling entirely while hidden (no timer armed, any
// in-flight fetch cancelled) and fetches immediately on becoming visible.
func (s *Scheduler) SetVisible(visible bool) {
	s.mu.Lock()
	was := s.visible
	s.visible = visible
	if !visible {
		s.gen++
		s.stopTimerLocked()
		cancel := s.cancel
		s.cancel = nil
		s.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		return
	}
	running := s.running
	s.mu.Unlock()
	if running && !was {
		s.fireNow()
	}
}

// ConsecutiveFailures returns the current capped failure count.
func (s *Scheduler) ConsecutiveFailures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures
}

// fireNow cancels any in-flight fetch and issues a fresh one.
func (s *Scheduler) fireNow() {
	s.mu.Lock()
	if !s.running || !s.visible {
		s.mu.Unlock()
		return
	}
	s.stopTimerLocked()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()

	go s.run(ctx, gen)
}

// run performs one fetch attempt and schedules the next one. The generation
// check guarantees a superseded or cancelled attempt mutates nothing.
func (s *Scheduler) run(ctx context.Context, gen uint64) {
	snap, err := s.fetch(ctx)

	s.mu.Lock()
	if gen != s.gen || !s.running {
		s.mu.Unlock()
		return
	}
	if err != nil {
		if ctx.Err() != nil {
			// cancelled, not a failure
			s.mu.Unlock()
			return
		}
		s.failures++
		if s.iv.MaxFailures > 0 && s.failures > s.iv.MaxFailures {
			s.failures = s.iv.MaxFailures
		}
		delay := s.iv.Backoff(s.failures)
		log.Printf("poll: fetch failed (attempt %d, retry in %s): %v", s.failures, delay, err)
		s.scheduleLocked(delay)
		s.mu.Unlock()
		return
	}

	s.failures = 0
	s.lastState = snap.VehicleState
	if snap.ProgressFraction != nil {
		s.lastProgress = *snap.ProgressFraction
	}
	if snap.PositionedAt > 0 {
		s.lastObservedEpoch = snap.PositionedAt
	}
	age := utils.StaleAge(s.lastObservedEpoch, s.now())
	delay := s.iv.Next(s.lastState, s.lastProgress, age) + s.iv.Jitter()
	s.scheduleLocked(delay)
	apply := s.apply
	s.mu.Unlock()

	if apply != nil {
		apply(snap)
	}
}

// scheduleLocked arms the next fetch; the caller must hold the mutex.
// Nothing is armed while hidden or stopped.
func (s *Scheduler) scheduleLocked(delay time.Duration) {
	s.stopTimerLocked()
	if !s.running || !s.visible {
		return
	}
	s.timer = time.AfterFunc(delay, s.fireNow)
}

func (s *Scheduler) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

package poll

import (
	"math/rand"
	"time"

	"github.com/theoremus-urban-solutions/livetrack/track"
)

// Intervals is the refresh cadence table. Each entry is the interval used
// while the matching condition holds; when several apply, the shortest wins.
type Intervals struct {
	Base        time.Duration // default while tracking
	Approaching time.Duration // vehicle approaching, or progress past the proximity threshold
	Stopped     time.Duration // vehicle held at a stop
	Stale       time.Duration // last observation older than StaleAfter
	Scheduled   time.Duration // not yet live, schedule only

	Min time.Duration // floor for any selected interval
	Max time.Duration // ceiling for any selected interval

	ProximityThreshold float64       // progress fraction past which Approaching applies
	StaleAfter         time.Duration // observation age past which Stale applies

	MaxBackoff  time.Duration // ceiling for exponential failure backoff
	MaxFailures int           // failure count cap
	JitterMax   time.Duration // upper bound of the random jitter added on success
}

// DefaultIntervals returns the production cadence table.
func DefaultIntervals() Intervals {
	return Intervals{
		Base:               30 * time.Second,
		Approaching:        10 * time.Second,
		Stopped:            20 * time.Second,
		Stale:              15 * time.Second,
		Scheduled:          60 * time.Second,
		Min:                5 * time.Second,
		Max:                120 * time.Second,
		ProximityThreshold: 0.80,
		StaleAfter:         60 * time.Second,
		MaxBackoff:         120 * time.Second,
		MaxFailures:        6,
		JitterMax:          500 * time.Millisecond,
	}
}

// Next selects the interval for the current vehicle condition: the minimum
// of every applicable table entry, clamped to [Min, Max].
func (iv Intervals) Next(state track.VehicleState, progress float64, observationAge time.Duration) time.Duration {
	d := iv.Base
	apply := func(candidate time.Duration) {
		if candidate > 0 && candidate < d {
			d = candidate
		}
	}
	switch state {
	case track.StateApproaching:
		apply(iv.Approaching)
	case track.StateArrivedAt:
		apply(iv.Stopped)
	case track.StateScheduled:
		// Scheduled is the one entry that lengthens the cadence.
		if iv.Scheduled > d {
			d = iv.Scheduled
		}
	}
	if progress >= iv.ProximityThreshold {
		apply(iv.Approaching)
	}
	if iv.StaleAfter > 0 && observationAge > iv.StaleAfter {
		apply(iv.Stale)
	}
	if d < iv.Min {
		d = iv.Min
	}
	if iv.Max > 0 && d > iv.Max {
		d = iv.Max
	}
	return d
}

// Backoff returns the delay after the given consecutive failure count:
// Base * 2^(failures-1), capped at MaxBackoff.
func (iv Intervals) Backoff(failures int) time.Duration {
	if failures < 1 {
		failures = 1
	}
	if iv.MaxFailures > 0 && failures > iv.MaxFailures {
		failures = iv.MaxFailures
	}
	d := iv.Base << (failures - 1)
	if iv.MaxBackoff > 0 && d > iv.MaxBackoff {
		d = iv.MaxBackoff
	}
	return d
}

// Jitter returns a random duration in [0, JitterMax).
func (iv Intervals) Jitter() time.Duration {
	if iv.JitterMax <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(iv.JitterMax)))
}

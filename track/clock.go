package track

import (
	"sync"
	"time"
)

// EstimateFunc evaluates the current extrapolation at a wall time in
// epoch milliseconds.
type EstimateFunc func(nowMS int64) float64

// PublishFunc receives every changed estimate with its timestamp.
type PublishFunc func(value float64, nowMS int64)

// Clock is the fixed-tick animation loop. On each tick it evaluates the
// estimate source and publishes the value if it changed since the last
// publish. While hidden it does not tick at all; becoming visible again
// publishes a fresh value immediately rather than replaying missed ticks.
type Clock struct {
	interval time.Duration
	estimate EstimateFunc
	publish  PublishFunc

	mu        sync.Mutex
	visible   bool
	last      float64
	published bool

	wake   chan struct{}
	done   chan struct{}
	closed sync.Once
}

// NewClock creates a clock with the given tick period. Intervals below 100ms
// are raised to 100ms.
func NewClock(interval time.Duration, estimate EstimateFunc, publish PublishFunc) *Clock {
	if interval < 100*time.Millisecond {
		interval = 100 * time.Millisecond
	}
	return &Clock{
		interval: interval,
		estimate: estimate,
		publish:  publish,
		visible:  true,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Run drives the tick loop until Close is called. It is meant to run in its
// own goroutine; one clock supports exactly one Run.
func (c *Clock) Run() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	active := true
	for {
		select {
		case <-c.done:
			return
		case <-c.wake:
			if c.isVisible() {
				if !active {
					ticker.Reset(c.interval)
					active = true
				}
				c.tick()
			} else if active {
				ticker.Stop()
				active = false
			}
		case <-ticker.C:
			// A tick buffered before Stop can still arrive.
			if c.isVisible() {
				c.tick()
			}
		}
	}
}

// SetVisible suspends or resumes ticking. Hiding stops the ticker entirely;
// resuming restarts it and publishes immediately.
func (c *Clock) SetVisible(visible bool) {
	c.mu.Lock()
	changed := c.visible != visible
	c.visible = visible
	c.mu.Unlock()
	if changed {
		select {
		case c.wake <- struct{}{}:
		default:
		}
	}
}

// Refresh forces a publish on the next loop iteration regardless of the tick
// schedule, used when a snapshot has just been accepted. While hidden it is
// a no-op.
func (c *Clock) Refresh() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Close stops the loop. Safe to call more than once.
func (c *Clock) Close() {
	c.closed.Do(func() { close(c.done) })
}

func (c *Clock) isVisible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visible
}

func (c *Clock) tick() {
	nowMS := time.Now().UnixMilli()
	v := c.estimate(nowMS)
	c.mu.Lock()
	changed := !c.published || v != c.last
	c.last = v
	c.published = true
	c.mu.Unlock()
	if changed {
		c.publish(v, nowMS)
	}
}

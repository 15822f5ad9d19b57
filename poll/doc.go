// Package poll decides when the next authoritative fetch happens.
//
// The interval is a table lookup over the vehicle's last known state and
// proximity, with the minimum applicable entry winning, floored and
// ceilinged to configured bounds. Successes get bounded random jitter so
// many tracked vehicles do not align; failures back off exponentially.
// At most one fetch is ever in flight per scheduler, and a cancelled
// fetch's late result is discarded without touching any state.
package poll

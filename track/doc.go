// Package track reconciles sparse authoritative position snapshots into a
// smooth, continuously advancing progress estimate.
//
// This package handles:
// - Parsing-agnostic Snapshot observations (coordinate, progress fraction,
//   segment window, vehicle state; any field may be missing)
// - The Reconciler state machine that turns each snapshot plus the current
//   local extrapolation into a new anchor and extrapolation rate
// - The Clock, a fixed-tick loop that derives and publishes the estimate
//   between snapshots and suspends while the consumer is hidden
//
// The published estimate is a progress fraction in [0,1] along the tracked
// segment. The Reconciler never lets the estimate jump visibly: forward
// disagreements are halved, backward corrections are damped harder, and
// near-equal readings are ignored entirely.
package track

// Package geo builds searchable indexes over route geometry.
//
// A PathIndex is derived once from an ordered list of coordinates and is
// immutable afterwards. It supports projecting an observed coordinate onto
// the path (distance along path plus residual error) and the inverse,
// resolving a distance back to a coordinate. Named waypoints (stops) are
// projected once at build time.
package geo

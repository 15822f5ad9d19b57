package geo

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	// ErrInvalidPath is returned when a path has fewer than two points.
	ErrInvalidPath = errors.New("geo: path needs at least 2 points")
	// ErrWaypointNotFound is returned when a waypoint id is unknown to the index.
	ErrWaypointNotFound = errors.New("geo: waypoint not found")
)

// Point is a geographic coordinate, longitude first.
type Point struct {
	Lon float64
	Lat float64
}

// Waypoint is a named location (typically a stop) near the path.
type Waypoint struct {
	ID    string
	Coord Point
}

// PathIndex is an immutable index over a route polyline: the points, the
// cumulative arc length in meters at each point, and the distance along the
// path of every known waypoint.
type PathIndex struct {
	points    []Point
	cumM      []float64
	totalM    float64
	waypointM map[string]float64
}

// BuildIndex constructs a PathIndex from an ordered polyline and an optional
// set of named waypoints. Waypoints are projected onto the path once, here.
func BuildIndex(points []Point, waypoints []Waypoint) (*PathIndex, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("%w (got %d)", ErrInvalidPath, len(points))
	}
	idx := &PathIndex{
		points:    append([]Point(nil), points...),
		cumM:      make([]float64, len(points)),
		waypointM: make(map[string]float64, len(waypoints)),
	}
	for i := 1; i < len(points); i++ {
		idx.cumM[i] = idx.cumM[i-1] + HaversineM(points[i-1].Lat, points[i-1].Lon, points[i].Lat, points[i].Lon)
	}
	idx.totalM = idx.cumM[len(idx.cumM)-1]
	for _, wp := range waypoints {
		p := idx.Project(wp.Coord)
		idx.waypointM[wp.ID] = p.DistanceM
	}
	return idx, nil
}

// TotalM returns the path's total arc length in meters.
func (x *PathIndex) TotalM() float64 { return x.totalM }

// Points returns the number of polyline points in the index.
func (x *PathIndex) Points() int { return len(x.points) }

// WaypointDistance returns the distance along the path of a named waypoint,
// clamped to [0, TotalM] at build time.
func (x *PathIndex) WaypointDistance(id string) (float64, error) {
	d, ok := x.waypointM[id]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrWaypointNotFound, id)
	}
	return d, nil
}

// PointAt returns the coordinate at a given distance along the path.
// Distances outside [0, TotalM] are clamped to the endpoints.
func (x *PathIndex) PointAt(distM float64) Point {
	if distM <= 0 {
		return x.points[0]
	}
	if distM >= x.totalM {
		return x.points[len(x.points)-1]
	}
	// Bracketing segment: first point whose cumulative length reaches distM.
	i := sort.SearchFloat64s(x.cumM, distM)
	if i == 0 {
		return x.points[0]
	}
	prev := x.cumM[i-1]
	next := x.cumM[i]
	t := 0.0
	if next > prev {
		t = (distM - prev) / (next - prev)
	}
	a := x.points[i-1]
	b := x.points[i]
	return Point{
		Lon: a.Lon + t*(b.Lon-a.Lon),
		Lat: a.Lat + t*(b.Lat-a.Lat),
	}
}

// HaversineM returns the great-circle distance between two coordinates in meters.
func HaversineM(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371000.0
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	la1 := lat1 * math.Pi / 180
	la2 := lat2 * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(la1)*math.Cos(la2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}

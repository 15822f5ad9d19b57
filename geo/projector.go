package geo

import "math"

// Projection is the result of projecting a coordinate onto a path.
type Projection struct {
	SegmentIndex int     // index of the polyline segment the foot lies on
	Fraction     float64 // fraction along that segment, clamped to [0,1]
	DistanceM    float64 // distance along the path of the projected foot
	ResidualM    float64 // distance from the input point to the foot
}

// Project finds the nearest location on the path to the given point.
// Every segment is examined; the one with the smallest residual wins, with
// ties resolved by the first segment encountered so identical inputs always
// produce identical results.
func (x *PathIndex) Project(p Point) Projection {
	best := Projection{SegmentIndex: 0, Fraction: 0, DistanceM: 0, ResidualM: math.MaxFloat64}
	for i := 0; i < len(x.points)-1; i++ {
		a := x.points[i]
		b := x.points[i+1]
		t := projectFraction(a, b, p)
		tc := t
		if tc < 0 {
			tc = 0
		} else if tc > 1 {
			tc = 1
		}
		foot := Point{
			Lon: a.Lon + tc*(b.Lon-a.Lon),
			Lat: a.Lat + tc*(b.Lat-a.Lat),
		}
		residual := HaversineM(p.Lat, p.Lon, foot.Lat, foot.Lon)
		if residual < best.ResidualM {
			best = Projection{
				SegmentIndex: i,
				Fraction:     tc,
				DistanceM:    x.cumM[i] + tc*(x.cumM[i+1]-x.cumM[i]),
				ResidualM:    residual,
			}
		}
	}
	return best
}

// projectFraction computes the unclamped scalar projection of p onto the
// segment a→b in a planar approximation centered on the segment's mean
// latitude. Good enough for corridor-length segments.
func projectFraction(a, b, p Point) float64 {
	const R = 6371000.0
	meanLat := (a.Lat + b.Lat) / 2 * math.Pi / 180
	ax := a.Lon * math.Pi / 180 * math.Cos(meanLat) * R
	ay := a.Lat * math.Pi / 180 * R
	bx := b.Lon * math.Pi / 180 * math.Cos(meanLat) * R
	by := b.Lat * math.Pi / 180 * R
	px := p.Lon * math.Pi / 180 * math.Cos(meanLat) * R
	py := p.Lat * math.Pi / 180 * R

	dx := bx - ax
	dy := by - ay
	denom := dx*dx + dy*dy
	if denom <= 0 {
		return 0
	}
	return ((px-ax)*dx + (py-ay)*dy) / denom
}

package livetrack

import (
	"github.com/theoremus-urban-solutions/livetrack/config"
	"github.com/theoremus-urban-solutions/livetrack/geo"
)

// BuildEntityRef resolves a configured route's geometry into a tracking
// reference for one vehicle. An empty routeID selects the first configured
// route; with no geometry configured the vehicle is tracked by progress
// fraction only.
func BuildEntityRef(routeID, vehicleID string) (EntityRef, error) {
	ref := EntityRef{EntityID: vehicleID, VehicleID: vehicleID}
	route, ok := config.SelectRoute(routeID)
	if !ok {
		return ref, nil
	}
	ref.RouteID = route.ID
	if route.ShapesPath == "" {
		return ref, nil
	}
	points, err := geo.LoadShapeFile(route.ShapesPath, route.ShapeID)
	if err != nil {
		return EntityRef{}, err
	}
	waypoints := make([]geo.Waypoint, 0, len(route.Waypoints))
	for _, wp := range route.Waypoints {
		waypoints = append(waypoints, geo.Waypoint{ID: wp.ID, Coord: geo.Point{Lon: wp.Lon, Lat: wp.Lat}})
	}
	index, err := geo.BuildIndex(points, waypoints)
	if err != nil {
		return EntityRef{}, err
	}
	ref.Index = index
	return ref, nil
}

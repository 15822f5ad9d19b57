package feed

import (
	"encoding/json"
	"strings"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/theoremus-urban-solutions/livetrack/geo"
	"github.com/theoremus-urban-solutions/livetrack/track"
)

// ParseVehicle decodes a raw feed payload and extracts the snapshot for one
// vehicle id. The protobuf decode is tried first, then the JSON rendering.
func ParseVehicle(data []byte, vehicleID string) (track.Snapshot, bool) {
	msg := &gtfs.FeedMessage{}
	if err := proto.Unmarshal(data, msg); err == nil && len(msg.Entity) > 0 {
		return snapshotFromFeedMessage(msg, vehicleID)
	}
	return snapshotFromJSON(data, vehicleID)
}

func snapshotFromFeedMessage(msg *gtfs.FeedMessage, vehicleID string) (track.Snapshot, bool) {
	var headerTS int64
	if msg.Header != nil && msg.Header.Timestamp != nil {
		headerTS = int64(*msg.Header.Timestamp)
	}
	for _, entity := range msg.Entity {
		veh := entity.Vehicle
		if veh == nil {
			continue
		}
		if veh.Vehicle == nil || veh.Vehicle.Id == nil || *veh.Vehicle.Id != vehicleID {
			continue
		}
		snap := track.Snapshot{PositionedAt: headerTS}
		if veh.Timestamp != nil && *veh.Timestamp > 0 {
			snap.PositionedAt = int64(*veh.Timestamp)
		}
		if veh.Position != nil && veh.Position.Latitude != nil && veh.Position.Longitude != nil {
			snap.Coordinate = &geo.Point{
				Lon: float64(*veh.Position.Longitude),
				Lat: float64(*veh.Position.Latitude),
			}
		}
		if veh.StopId != nil {
			snap.StopID = *veh.StopId
		}
		if veh.CurrentStatus != nil {
			snap.VehicleState = stateFromStatus(veh.CurrentStatus.String())
		}
		return snap, true
	}
	return track.Snapshot{}, false
}

// epochSeconds tolerates the number-vs-string timestamp encodings seen
// across JSON feed renderings.
type epochSeconds int64

func (e *epochSeconds) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*e = 0
		return nil
	}
	var v int64
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return err
	}
	*e = epochSeconds(v)
	return nil
}

// jsonFeed mirrors the subset of the GTFS-RT JSON rendering the engine
// consumes. Some agencies serve this instead of protobuf.
type jsonFeed struct {
	Header struct {
		Timestamp epochSeconds `json:"timestamp"`
	} `json:"header"`
	Entity []struct {
		Vehicle struct {
			Position struct {
				Latitude  *float64 `json:"latitude"`
				Longitude *float64 `json:"longitude"`
			} `json:"position"`
			StopID        string       `json:"stopId"`
			CurrentStatus string       `json:"currentStatus"`
			Timestamp     epochSeconds `json:"timestamp"`
			Vehicle       struct {
				ID string `json:"id"`
			} `json:"vehicle"`
		} `json:"vehicle"`
	} `json:"entity"`
}

func snapshotFromJSON(data []byte, vehicleID string) (track.Snapshot, bool) {
	var f jsonFeed
	if err := json.Unmarshal(data, &f); err != nil {
		return track.Snapshot{}, false
	}
	for _, entity := range f.Entity {
		veh := entity.Vehicle
		if veh.Vehicle.ID != vehicleID {
			continue
		}
		snap := track.Snapshot{PositionedAt: int64(f.Header.Timestamp)}
		if veh.Timestamp > 0 {
			snap.PositionedAt = int64(veh.Timestamp)
		}
		if veh.Position.Latitude != nil && veh.Position.Longitude != nil {
			snap.Coordinate = &geo.Point{Lon: *veh.Position.Longitude, Lat: *veh.Position.Latitude}
		}
		snap.StopID = veh.StopID
		snap.VehicleState = stateFromStatus(veh.CurrentStatus)
		return snap, true
	}
	return track.Snapshot{}, false
}

// stateFromStatus maps the GTFS-RT stop status names onto vehicle states.
func stateFromStatus(status string) track.VehicleState {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "STOPPED_AT":
		return track.StateArrivedAt
	case "IN_TRANSIT_TO":
		return track.StateInTransit
	case "INCOMING_AT":
		return track.StateApproaching
	case "":
		return track.StateUnknown
	default:
		return track.StateUnknown
	}
}

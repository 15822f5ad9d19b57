// Package feed fetches and parses GTFS-Realtime vehicle positions into
// track.Snapshot observations.
//
// Both the protobuf wire format and the JSON rendering some agencies serve
// are supported; the protobuf decode is attempted first. Requests carry a
// cache-busting query parameter and no-store headers so intermediaries never
// serve a stale position.
package feed

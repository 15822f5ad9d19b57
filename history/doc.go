// Package history records accepted snapshots and waypoint passes to an
// embedded SQLite database, one session per tracking start. The engine does
// not read this data back; it exists for later analysis and is entirely
// optional.
package history

package utils

import (
	"time"
)

// Iso8601Now returns the current time in ISO8601 format
func Iso8601Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// Iso8601FromUnixSeconds converts Unix timestamp to ISO8601 format
func Iso8601FromUnixSeconds(sec int64) string {
	return time.Unix(sec, 0).UTC().Format(time.RFC3339)
}

// StaleAge returns how far in the past an epoch-seconds observation lies,
// zero for observations in the future or unset (0) timestamps.
func StaleAge(observedEpoch int64, now time.Time) time.Duration {
	if observedEpoch <= 0 {
		return 0
	}
	age := now.Sub(time.Unix(observedEpoch, 0))
	if age < 0 {
		return 0
	}
	return age
}

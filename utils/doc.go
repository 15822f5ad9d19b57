// Package utils provides internal utility functions for the livetrack engine.
// This package is not intended to be imported by external code.
package utils

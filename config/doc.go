// Package config handles application configuration loading and validation.
//
// Configuration is loaded from config.yml and validated using struct tags.
// Defaults for the smoothing constants and the refresh cadence table are
// applied before validation, so an empty file yields a working engine.
package config

package config

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port           int      `yaml:"port" validate:"gt=0"`
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

// FeedConfig contains the vehicle positions feed configuration.
type FeedConfig struct {
	URL       string `yaml:"url" validate:"omitempty,url"`
	TimeoutMS int    `yaml:"timeoutMS" validate:"gte=0"`
}

// RouteConfig describes one trackable route: its geometry source and the
// ordered waypoints (stops) along it.
type RouteConfig struct {
	ID         string           `yaml:"id" validate:"required"`
	ShapesPath string           `yaml:"shapesPath"`
	ShapeID    string           `yaml:"shapeID"`
	Waypoints  []WaypointConfig `yaml:"waypoints" validate:"dive"`
}

// WaypointConfig is a named stop location on a route.
type WaypointConfig struct {
	ID  string  `yaml:"id" validate:"required"`
	Lat float64 `yaml:"lat" validate:"gte=-90,lte=90"`
	Lon float64 `yaml:"lon" validate:"gte=-180,lte=180"`
}

// SmoothingConfig carries the reconciler's tuning constants. These were
// chosen empirically; zero values fall back to the engine defaults.
type SmoothingConfig struct {
	CatchUpFactor       float64 `yaml:"catchUpFactor" validate:"gte=0,lte=1"`
	CorrectionFactor    float64 `yaml:"correctionFactor" validate:"gte=0,lte=1"`
	DeadBand            float64 `yaml:"deadBand" validate:"gte=0,lte=1"`
	ArrivalCeiling      float64 `yaml:"arrivalCeiling" validate:"gte=0,lte=1"`
	MinSegmentDurationS int     `yaml:"minSegmentDurationS" validate:"gte=0"`
}

// RefreshConfig carries the poll cadence table, in seconds.
type RefreshConfig struct {
	BaseS        int     `yaml:"baseS" validate:"gte=0"`
	ApproachingS int     `yaml:"approachingS" validate:"gte=0"`
	StoppedS     int     `yaml:"stoppedS" validate:"gte=0"`
	StaleS       int     `yaml:"staleS" validate:"gte=0"`
	ScheduledS   int     `yaml:"scheduledS" validate:"gte=0"`
	MinS         int     `yaml:"minS" validate:"gte=0"`
	MaxS         int     `yaml:"maxS" validate:"gte=0"`
	MaxBackoffS  int     `yaml:"maxBackoffS" validate:"gte=0"`
	MaxFailures  int     `yaml:"maxFailures" validate:"gte=0"`
	Proximity    float64 `yaml:"proximity" validate:"gte=0,lte=1"`
	StaleAfterS  int     `yaml:"staleAfterS" validate:"gte=0"`
}

// EngineConfig groups the estimation engine settings.
type EngineConfig struct {
	TickMS    int             `yaml:"tickMS" validate:"gte=0"`
	Smoothing SmoothingConfig `yaml:"smoothing"`
	Refresh   RefreshConfig   `yaml:"refresh"`
}

// HistoryConfig configures the optional snapshot/pass recorder.
type HistoryConfig struct {
	DatabasePath string `yaml:"databasePath"`
	Enabled      bool   `yaml:"enabled"`
}

// AppConfig is the root configuration structure.
type AppConfig struct {
	Server  ServerConfig  `yaml:"server" validate:"required"`
	Feed    FeedConfig    `yaml:"feed"`
	Engine  EngineConfig  `yaml:"engine"`
	History HistoryConfig `yaml:"history"`
	Routes  []RouteConfig `yaml:"routes"`
}

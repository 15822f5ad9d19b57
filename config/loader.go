package config

import (
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the global application configuration
var Config AppConfig

// LoadAppConfig loads and validates the application configuration from config.yml
func LoadAppConfig() error {
	paths := []string{"config.yml", "./config/config.yml"}
	if p := os.Getenv("LIVETRACK_CONFIG"); p != "" {
		paths = append([]string{p}, paths...)
	}
	var data []byte
	var err error
	for _, p := range paths {
		data, err = os.ReadFile(p)
		if err == nil {
			break
		}
	}
	if err != nil {
		return err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return err
	}
	applyDefaults(&cfg)
	v := validator.New()
	if err := v.Struct(cfg.Server); err != nil {
		return err
	}
	// routes are optional; if present validate each
	for _, r := range cfg.Routes {
		if err := v.Struct(r); err != nil {
			return err
		}
	}
	Config = cfg
	applyEnvOverrides(&Config)
	return nil
}

// SelectRoute chooses a route by id; fallback to first.
func SelectRoute(id string) (RouteConfig, bool) {
	if id != "" {
		for _, r := range Config.Routes {
			if r.ID == id {
				return r, true
			}
		}
	}
	if len(Config.Routes) > 0 {
		return Config.Routes[0], true
	}
	return RouteConfig{}, false
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 16182
	}
	if cfg.Feed.TimeoutMS == 0 {
		cfg.Feed.TimeoutMS = 15000
	}
	if cfg.Engine.TickMS == 0 {
		cfg.Engine.TickMS = 750
	}
	s := &cfg.Engine.Smoothing
	if s.CatchUpFactor == 0 {
		s.CatchUpFactor = 0.5
	}
	if s.CorrectionFactor == 0 {
		s.CorrectionFactor = 0.3
	}
	if s.DeadBand == 0 {
		s.DeadBand = 0.05
	}
	if s.ArrivalCeiling == 0 {
		s.ArrivalCeiling = 0.95
	}
	if s.MinSegmentDurationS == 0 {
		s.MinSegmentDurationS = 30
	}
	r := &cfg.Engine.Refresh
	if r.BaseS == 0 {
		r.BaseS = 30
	}
	if r.ApproachingS == 0 {
		r.ApproachingS = 10
	}
	if r.StoppedS == 0 {
		r.StoppedS = 20
	}
	if r.StaleS == 0 {
		r.StaleS = 15
	}
	if r.ScheduledS == 0 {
		r.ScheduledS = 60
	}
	if r.MinS == 0 {
		r.MinS = 5
	}
	if r.MaxS == 0 {
		r.MaxS = 120
	}
	if r.MaxBackoffS == 0 {
		r.MaxBackoffS = 120
	}
	if r.MaxFailures == 0 {
		r.MaxFailures = 6
	}
	if r.Proximity == 0 {
		r.Proximity = 0.8
	}
	if r.StaleAfterS == 0 {
		r.StaleAfterS = 60
	}
	if cfg.History.DatabasePath == "" {
		cfg.History.DatabasePath = "./data/livetrack.db"
	}
}

// applyEnvOverrides lets deployment environments override the file values.
func applyEnvOverrides(cfg *AppConfig) {
	if v := os.Getenv("LIVETRACK_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("LIVETRACK_FEED_URL"); v != "" {
		cfg.Feed.URL = v
	}
	if v := os.Getenv("LIVETRACK_DATABASE"); v != "" {
		cfg.History.DatabasePath = v
	}
}

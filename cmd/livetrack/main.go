package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/joho/godotenv"

	lib "github.com/theoremus-urban-solutions/livetrack"
	"github.com/theoremus-urban-solutions/livetrack/config"
	"github.com/theoremus-urban-solutions/livetrack/feed"
	"github.com/theoremus-urban-solutions/livetrack/history"
	"github.com/theoremus-urban-solutions/livetrack/track"
)

func main() {
	routeID := flag.String("route", "", "route id from config.routes[] (default: first)")
	vehicleID := flag.String("vehicle", "", "vehicle id to track at startup")
	feedURL := flag.String("feedURL", "", "vehicle positions feed URL (overrides config)")
	noHistory := flag.Bool("noHistory", false, "disable the SQLite history recorder")
	flag.Parse()

	// .env overrides for deployment; missing files are fine.
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")

	lib.InitLogging()
	if err := config.LoadAppConfig(); err != nil {
		log.Fatalf("config: %v", err)
	}
	cfg := config.Config
	if *feedURL != "" {
		cfg.Feed.URL = *feedURL
	}

	var db *history.DB
	if cfg.History.Enabled && !*noHistory {
		var err error
		db, err = history.Connect(cfg.History.DatabasePath)
		if err != nil {
			log.Fatalf("history: %v", err)
		}
		defer db.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = db.EnsureSchema(ctx)
		cancel()
		if err != nil {
			log.Fatalf("history: %v", err)
		}
	}

	client := feed.NewClient(cfg.Feed.URL, time.Duration(cfg.Feed.TimeoutMS)*time.Millisecond)
	engine := lib.NewEngine(lib.OptionsFromConfig(cfg.Engine), client, db)
	engine.AddListener(logListener{})

	if *vehicleID != "" {
		ref, err := lib.BuildEntityRef(*routeID, *vehicleID)
		if err != nil {
			log.Fatalf("route: %v", err)
		}
		if err := engine.Start(ref); err != nil {
			log.Fatalf("engine: %v", err)
		}
	}

	lib.StartServer(cfg.Server, engine)
	lib.HandleGracefulShutdown(engine)
}

type logListener struct{}

func (logListener) OnEstimate(entityID string, value float64, timestampMS int64) {
	log.Printf("estimate %s: %.4f", entityID, value)
}

func (logListener) OnPhaseChange(entityID string, phase track.Phase) {
	log.Printf("phase %s: %s", entityID, phase)
}

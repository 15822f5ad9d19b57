package livetrack

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/theoremus-urban-solutions/livetrack/config"
)

var server *http.Server

// StartServer exposes the engine over HTTP: health, the list of tracked
// entities, per-entity estimates, and start/stop/visibility controls.
func StartServer(cfg config.ServerConfig, engine *Engine) {
	r := chi.NewRouter()
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	h := &apiHandler{engine: engine}
	r.Get("/api/health", h.handleHealth)
	r.Get("/api/entities", h.handleListEntities)
	r.Post("/api/entities", h.handleStart)
	r.Get("/api/entities/{entityID}/estimate", h.handleEstimate)
	r.Post("/api/entities/{entityID}/visibility", h.handleVisibility)
	r.Delete("/api/entities/{entityID}", h.handleStop)

	addr := fmt.Sprintf(":%d", cfg.Port)
	server = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()
	log.Printf("server listening on %s", addr)
}

// HandleGracefulShutdown blocks until SIGINT/SIGTERM, then drains the HTTP
// server and stops every tracked entity.
func HandleGracefulShutdown(engine *Engine) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	log.Printf("shutdown signal received")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if server != nil {
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("server shutdown error: %v", err)
		} else {
			log.Printf("server shut down successfully")
		}
	}
	if engine != nil {
		engine.Shutdown()
	}
}

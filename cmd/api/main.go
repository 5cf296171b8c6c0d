package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"optiroute/internal/api"
	"optiroute/internal/config"
	"optiroute/internal/engine"
	"optiroute/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	st, closeStore, err := openStore(cfg)
	if err != nil {
		log.Fatalf("failed to init store: %v", err)
	}
	defer closeStore()

	if cfg.SeedPath != "" {
		seed, err := store.LoadSeed(cfg.SeedPath)
		if err != nil {
			log.Fatalf("seed: %v", err)
		}
		if err := store.Seed(context.Background(), st, seed); err != nil {
			log.Fatalf("seed: %v", err)
		}
		log.Printf("seeded store path=%s locations=%d deliveries=%d", cfg.SeedPath, len(seed.CityMap.Locations), len(seed.Deliveries))
	}

	var broker api.EventBroker
	if cfg.RedisURL != "" {
		rb, err := api.NewRedisBroker(cfg.RedisURL)
		if err != nil {
			log.Printf("redis broker unavailable, using in-process broker: %v", err)
		} else {
			defer rb.Close()
			broker = rb
		}
	}

	runner := engine.NewRunner(engine.New(cfg.Engine), cfg.MaxConcurrency, cfg.EngineTimeout)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewServer(st, runner, broker, cfg).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.EngineTimeout + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("API listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

// openStore uses Postgres when DATABASE_URL is set and memory otherwise.
func openStore(cfg config.Config) (store.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Printf("store=memory")
		return store.NewMemory(), func() {}, nil
	}
	pg, err := store.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Migrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := pg.Migrate(ctx); err != nil {
			_ = pg.Close()
			return nil, nil, err
		}
	}
	log.Printf("store=postgres migrate=%t", cfg.Migrate)
	return pg, func() { _ = pg.Close() }, nil
}

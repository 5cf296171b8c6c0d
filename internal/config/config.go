// Package config reads process settings from the environment, an optional
// .env file and an optional YAML file of engine tunables.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"optiroute/internal/opt"
)

type Config struct {
	Port           string
	DatabaseURL    string
	Migrate        bool
	RedisURL       string
	SeedPath       string
	EngineConfig   string
	EngineTimeout  time.Duration
	MaxConcurrency int64
	RateRPS        float64
	RateBurst      int

	// Engine holds the solver tunables after the YAML overlay.
	Engine opt.Config
}

// Load reads .env (when present) and then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: .env ignored: %v", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function so tests can avoid the
// process environment.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}
	c := Config{
		Port:         get("PORT", "8080"),
		DatabaseURL:  get("DATABASE_URL", ""),
		Migrate:      get("DB_MIGRATE", "true") != "false",
		RedisURL:     get("REDIS_URL", ""),
		SeedPath:     get("SEED_PATH", ""),
		EngineConfig: get("ENGINE_CONFIG", ""),
		Engine:       opt.DefaultConfig(),
	}

	var err error
	if c.EngineTimeout, err = time.ParseDuration(get("ENGINE_TIMEOUT", "10s")); err != nil {
		return c, fmt.Errorf("ENGINE_TIMEOUT: %w", err)
	}
	if c.MaxConcurrency, err = strconv.ParseInt(get("ENGINE_MAX_CONCURRENCY", "4"), 10, 64); err != nil {
		return c, fmt.Errorf("ENGINE_MAX_CONCURRENCY: %w", err)
	}
	if c.RateRPS, err = strconv.ParseFloat(get("RATE_RPS", "0"), 64); err != nil {
		return c, fmt.Errorf("RATE_RPS: %w", err)
	}
	if c.RateBurst, err = strconv.Atoi(get("RATE_BURST", "20")); err != nil {
		return c, fmt.Errorf("RATE_BURST: %w", err)
	}
	if c.EngineConfig != "" {
		if c.Engine, err = LoadEngine(c.EngineConfig); err != nil {
			return c, err
		}
	}
	return c, nil
}

// LoadEngine overlays the YAML file at path on the default tunables. Keys
// missing from the file keep their defaults.
func LoadEngine(path string) (opt.Config, error) {
	cfg := opt.DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("engine config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("engine config %s: %w", path, err)
	}
	return cfg, nil
}

// Package config centralizes all application configuration into typed structs.
//
// Go Learning Note — Configuration Management:
// Defaults live in struct tags and in NewDefaultConfig. Load reads the same
// structs from environment variables with "github.com/kelseyhightower/envconfig",
// which parses durations ("1s", "10m"), numbers and booleans for us. The
// routesim CLI reads its YAML scenario file with "github.com/spf13/viper"
// (see scenario.go).
//
// Using typed structs (not raw strings/maps) gives you compile-time safety
// and IDE autocompletion. This is strongly preferred in Go over untyped config.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is the top-level configuration container. Grouping related settings
// into sub-structs keeps the config organized as the application grows.
type Config struct {
	Server     ServerConfig
	Simulation SimulationConfig
	Routing    RoutingConfig
	Redis      RedisConfig
	Geo        GeoConfig
	Delivery   DeliveryConfig
	Pricing    PricingConfig
	Log        LogConfig
}

// ServerConfig holds HTTP server settings.
//
// Go Learning Note — time.Duration:
// Go uses time.Duration (an int64 of nanoseconds) instead of raw integers for
// timeouts and intervals. This prevents unit confusion: you write
// "10 * time.Second" which is self-documenting, rather than guessing whether
// "10" means seconds, milliseconds, or something else.
type ServerConfig struct {
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"10s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"10s"`
	Environment     string        `envconfig:"ENVIRONMENT" default:"development"`
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// SimulationConfig controls the simulated courier: its constant speed and
// how often a position update is emitted.
type SimulationConfig struct {
	SpeedKmh       float64       `envconfig:"SIM_SPEED_KMH" default:"30"`
	UpdateInterval time.Duration `envconfig:"SIM_UPDATE_INTERVAL" default:"1s"`
}

// RoutingConfig points at an OSRM-compatible routing service. Fetched
// routes are cached for CacheTTL.
type RoutingConfig struct {
	OSRMBaseURL string        `envconfig:"OSRM_BASE_URL" default:"https://router.project-osrm.org"`
	Timeout     time.Duration `envconfig:"OSRM_TIMEOUT" default:"5s"`
	CacheTTL    time.Duration `envconfig:"ROUTE_CACHE_TTL" default:"10m"`
}

// RedisConfig is only used when Enabled; otherwise caches and locks stay in
// memory.
type RedisConfig struct {
	Enabled  bool   `envconfig:"REDIS_ENABLED" default:"false"`
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GeoConfig controls geohash encoding precision. Precision 6 ≈ 1.2 km cells,
// precision 7 ≈ 150 m cells. Higher precision means smaller cells and more
// accurate proximity queries, but a smaller 3x3 search area.
type GeoConfig struct {
	GeohashPrecision int     `envconfig:"GEOHASH_PRECISION" default:"6"`
	NearbyRadiusKm   float64 `envconfig:"NEARBY_RADIUS_KM" default:"5"`
}

type DeliveryConfig struct {
	StepLockTTL time.Duration `envconfig:"STEP_LOCK_TTL" default:"15s"`
}

// PricingConfig defines the delivery fee parameters.
// Fee = BaseFee + DistanceKm*PerKmRate, clamped to at least MinimumFee.
type PricingConfig struct {
	BaseFee    float64 `envconfig:"PRICING_BASE_FEE" default:"2.00"`
	PerKmRate  float64 `envconfig:"PRICING_PER_KM_RATE" default:"0.80"`
	MinimumFee float64 `envconfig:"PRICING_MINIMUM_FEE" default:"3.50"`
}

type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"`
}

// NewDefaultConfig returns a Config populated with the same defaults Load
// applies when no environment variable is set.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Environment:     "development",
		},
		Simulation: SimulationConfig{
			SpeedKmh:       30,
			UpdateInterval: time.Second,
		},
		Routing: RoutingConfig{
			OSRMBaseURL: "https://router.project-osrm.org",
			Timeout:     5 * time.Second,
			CacheTTL:    10 * time.Minute,
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: 6379,
		},
		Geo: GeoConfig{
			GeohashPrecision: 6,
			NearbyRadiusKm:   5.0,
		},
		Delivery: DeliveryConfig{
			StepLockTTL: 15 * time.Second,
		},
		Pricing: PricingConfig{
			BaseFee:    2.00,
			PerKmRate:  0.80,
			MinimumFee: 3.50,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all runtime tuning, sourced from the environment with an
// optional .env file on top.
type Config struct {
	ListenAddr string `env:"GEOCOIN_ADDR" envDefault:":8788"`
	DBPath     string `env:"GEOCOIN_DB" envDefault:"geocoin.db"`
	SaveSlot   string `env:"GEOCOIN_SLOT" envDefault:"default"`

	// Seed is the generator's starting counter. Same seed, same world.
	Seed int64 `env:"GEOCOIN_SEED" envDefault:"1234"`
	// TileSize is the angular cell edge length in degrees.
	TileSize float64 `env:"GEOCOIN_TILE_SIZE" envDefault:"0.0001"`
	// SpawnProbability is the per-cell chance of a cache, evaluated once
	// per coordinate in visit order.
	SpawnProbability float64 `env:"GEOCOIN_SPAWN_PROB" envDefault:"0.1"`
	// MaxCoinsPerCache bounds the minted batch size.
	MaxCoinsPerCache int `env:"GEOCOIN_MAX_COINS" envDefault:"10"`
	// NeighborhoodRadius is how far around the player cells materialize.
	NeighborhoodRadius int `env:"GEOCOIN_RADIUS" envDefault:"8"`

	HomeLat float64 `env:"GEOCOIN_HOME_LAT" envDefault:"36.98949"`
	HomeLng float64 `env:"GEOCOIN_HOME_LNG" envDefault:"-122.06277"`

	// TrackFile optionally points at a JSON [[lat,lng],...] file replayed
	// as the position source. Empty means no sensor is available.
	TrackFile string `env:"GEOCOIN_TRACK" envDefault:""`
	// TrackIntervalMs is the replay cadence.
	TrackIntervalMs int `env:"GEOCOIN_TRACK_INTERVAL_MS" envDefault:"1000"`
}

// Load reads the configuration from the environment. A missing .env file
// is not an error.
func Load() (Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if cfg.SpawnProbability < 0 || cfg.SpawnProbability > 1 {
		return Config{}, fmt.Errorf("GEOCOIN_SPAWN_PROB must be in [0,1], got %g", cfg.SpawnProbability)
	}
	if cfg.MaxCoinsPerCache < 1 {
		return Config{}, fmt.Errorf("GEOCOIN_MAX_COINS must be at least 1, got %d", cfg.MaxCoinsPerCache)
	}
	if cfg.TileSize <= 0 {
		return Config{}, fmt.Errorf("GEOCOIN_TILE_SIZE must be positive, got %g", cfg.TileSize)
	}
	return cfg, nil
}

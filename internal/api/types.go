package api

import "geocoin/internal/world"

// Error is a structured error response with context.
type Error struct {
	Type      string         `json:"type"`
	Message   string         `json:"message"`
	Context   map[string]any `json:"context,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

// Error implements the error interface
func (e Error) Error() string {
	return e.Message
}

// Error types mapped from core error kinds.
const (
	ErrTypeInvalidCoordinate = "invalid_coordinate"
	ErrTypeNotFound          = "not_found"
	ErrTypeInvalidTarget     = "invalid_target"
	ErrTypeSensorUnavailable = "sensor_unavailable"
	ErrTypeValidation        = "validation_error"
	ErrTypeInternal          = "internal_error"
)

// PlayerState is the player portion of a state response.
type PlayerState struct {
	Row   int            `json:"row"`
	Col   int            `json:"col"`
	Coins []world.CoinID `json:"coins"`
}

// CacheState is one materialized cache near the player, with the cell's
// geographic bounds for rendering.
type CacheState struct {
	Cell  string         `json:"cell"`
	South float64        `json:"south"`
	West  float64        `json:"west"`
	North float64        `json:"north"`
	East  float64        `json:"east"`
	Coins []world.CoinID `json:"coins"`
}

// StateResponse is the full render-ready session state.
type StateResponse struct {
	Player       PlayerState  `json:"player"`
	Path         [][2]float64 `json:"path"`
	Caches       []CacheState `json:"caches"`
	SensorActive bool         `json:"sensor_active"`
}

// CollectRequest names one coin to take from a cache.
type CollectRequest struct {
	Cell string `json:"cell"`
	Coin string `json:"coin"`
}

// DepositRequest names held coins to drop into a cache.
type DepositRequest struct {
	Cell  string   `json:"cell"`
	Coins []string `json:"coins"`
}

// ResetRequest guards the reset action; the confirmation prompt lives in
// the client, the API just requires its result.
type ResetRequest struct {
	Confirm bool `json:"confirm"`
}

// SensorRequest toggles position tracking.
type SensorRequest struct {
	Enabled bool `json:"enabled"`
}

// SensorResponse reports the tracking state after a toggle.
type SensorResponse struct {
	Active bool `json:"active"`
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Uptime    string `json:"uptime"`
	Timestamp string `json:"timestamp"`
}

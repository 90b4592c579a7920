package engine

import (
	"fmt"
	"math"

	"geocoin/internal/grid"
)

// CoinID identifies one minted coin. IDs encode the cache coordinate and
// the coin's position in its mint batch, so they are unique per cache and
// stable for a given batch size.
type CoinID string

// Generator produces the deterministic draw sequence that decides cache
// spawns and coin batch sizes. It owns its counter: there is no package
// level state, and two generators seeded alike produce identical sequences.
// Draws are order-dependent — the counter is shared across all cells — so
// callers must consume them in a fixed first-visit order.
type Generator struct {
	seed      int64
	counter   int64
	spawnProb float64
	maxBatch  int
}

// NewGenerator creates a generator seeded at seed with the given spawn
// probability and maximum coins per minted batch.
func NewGenerator(seed int64, spawnProb float64, maxBatch int) (*Generator, error) {
	if spawnProb < 0 || spawnProb > 1 {
		return nil, fmt.Errorf("spawn probability must be in [0,1], got %g", spawnProb)
	}
	if maxBatch < 1 {
		return nil, fmt.Errorf("max batch size must be at least 1, got %d", maxBatch)
	}
	return &Generator{seed: seed, counter: seed, spawnProb: spawnProb, maxBatch: maxBatch}, nil
}

// Advance increments the counter and returns the next draw in [0,1).
// The value is the fractional part of sin(counter)*10000 — pure in the
// counter, so the same call sequence always yields the same outputs.
func (g *Generator) Advance() float64 {
	g.counter++
	s := math.Sin(float64(g.counter)) * 10000
	return s - math.Floor(s)
}

// Counter returns the generator's current position in its sequence.
func (g *Generator) Counter() int64 { return g.counter }

// Seek moves the generator to an absolute position, for restoring a
// persisted session.
func (g *Generator) Seek(counter int64) { g.counter = counter }

// Reset rewinds the generator to its seed.
func (g *Generator) Reset() { g.counter = g.seed }

// MaxBatch returns the upper bound on coins per minted batch.
func (g *Generator) MaxBatch() int { return g.maxBatch }

// ShouldSpawn consumes one draw and reports whether a cache spawns at the
// coordinate. The comparison is strict: a draw exactly equal to the spawn
// probability does not spawn. Call at most once per coordinate.
func (g *Generator) ShouldSpawn(c grid.Coordinate) (bool, error) {
	if err := c.Validate(); err != nil {
		return false, err
	}
	return g.Advance() < g.spawnProb, nil
}

// MintCoinBatch consumes one draw to pick a coin count in [1, MaxBatch]
// and mints that many coins for the coordinate. IDs are "<i>:<j>#<serial>"
// with serials counting from zero in mint order.
func (g *Generator) MintCoinBatch(c grid.Coordinate) ([]CoinID, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	count := 1 + int(math.Floor(g.Advance()*float64(g.maxBatch)))
	if count > g.maxBatch {
		count = g.maxBatch
	}
	coins := make([]CoinID, count)
	for k := range coins {
		coins[k] = CoinID(fmt.Sprintf("%d:%d#%d", c.I, c.J, k))
	}
	return coins, nil
}

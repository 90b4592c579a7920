package world

import (
	"slices"

	"geocoin/internal/engine"
	"geocoin/internal/grid"
)

// CoinID aliases the engine's coin identifier for callers that only deal
// with the world layer.
type CoinID = engine.CoinID

// Cache holds the coins currently resident in one grid cell. Its initial
// contents come from the generator at first visit; after that it is plain
// mutable state, decoupled from the draw sequence.
type Cache struct {
	Coord grid.Coordinate
	Coins []CoinID
}

// Contains reports whether the coin is resident in this cache.
func (c *Cache) Contains(id CoinID) bool {
	return slices.Contains(c.Coins, id)
}

// remove takes the coin out of the cache, preserving order of the rest.
func (c *Cache) remove(id CoinID) bool {
	idx := slices.Index(c.Coins, id)
	if idx < 0 {
		return false
	}
	c.Coins = slices.Delete(c.Coins, idx, idx+1)
	return true
}

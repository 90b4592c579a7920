package world

import "geocoin/internal/grid"

// View is the rendering collaborator. The session pushes state changes out
// through it and holds no reference into rendering internals; a map layer,
// a terminal, or nothing at all can sit behind it.
type View interface {
	// CacheChanged fires when a cache spawns or its contents change.
	CacheChanged(cell *grid.Cell, coins []CoinID)
	// PlayerMoved fires after every movement with the new cell and the
	// full movement path for trail rendering.
	PlayerMoved(cell *grid.Cell, path [][2]float64)
	// WorldReset fires when the session is reset to a fresh world.
	WorldReset()
}

// NopView discards all updates. Used headless and in tests.
type NopView struct{}

func (NopView) CacheChanged(*grid.Cell, []CoinID)    {}
func (NopView) PlayerMoved(*grid.Cell, [][2]float64) {}
func (NopView) WorldReset()                          {}

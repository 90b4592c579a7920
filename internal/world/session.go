package world

import (
	"fmt"
	"slices"

	"geocoin/internal/engine"
	"geocoin/internal/grid"
)

// Player is the session's moving actor: a grid position and the coins it
// carries. Mutated only by movement and collect/deposit.
type Player struct {
	Coord grid.Coordinate
	Coins []CoinID
}

// CacheInfo is a read-only projection of one materialized cache, handed to
// callers that render or report state.
type CacheInfo struct {
	Cell  *grid.Cell
	Coins []CoinID
}

// Session owns the authoritative game state: the generator handle, the
// mapping from coordinate to cache contents, the player, and the movement
// history. Cells are materialized lazily through the generator; once a
// cell's spawn decision is made it is remembered for good — a nil entry in
// the cache map records "no cache here" so the draw is never repeated.
//
// All mutations are discrete and non-overlapping; the session itself does
// no locking. Callers that take events from concurrent sources serialize
// them before they get here.
type Session struct {
	board  *grid.Board
	gen    *engine.Generator
	view   View
	home   grid.Coordinate
	caches map[grid.Coordinate]*Cache
	player Player
	path   [][2]float64
}

// NewSession creates a fresh session homed at the cell containing
// (homeLat, homeLng) and materializes the starting neighborhood.
func NewSession(board *grid.Board, gen *engine.Generator, view View, homeLat, homeLng float64) (*Session, error) {
	if view == nil {
		view = NopView{}
	}
	home, err := board.CellAt(homeLat, homeLng)
	if err != nil {
		return nil, err
	}
	s := &Session{
		board:  board,
		gen:    gen,
		view:   view,
		home:   home.Coordinate,
		caches: make(map[grid.Coordinate]*Cache),
		player: Player{Coord: home.Coordinate, Coins: []CoinID{}},
	}
	lat, lng := home.Center()
	s.path = [][2]float64{{lat, lng}}
	if err := s.materializeAround(home.Coordinate); err != nil {
		return nil, err
	}
	return s, nil
}

// Board returns the session's grid board.
func (s *Session) Board() *grid.Board { return s.board }

// Home returns the starting coordinate.
func (s *Session) Home() grid.Coordinate { return s.home }

// Player returns a copy of the player state.
func (s *Session) Player() Player {
	return Player{Coord: s.player.Coord, Coins: slices.Clone(s.player.Coins)}
}

// Path returns a copy of the movement history.
func (s *Session) Path() [][2]float64 {
	return slices.Clone(s.path)
}

// Nearby lists the materialized caches in the neighborhood around the
// player, in the board's row-major order.
func (s *Session) Nearby() []CacheInfo {
	var out []CacheInfo
	for _, cell := range s.board.Neighborhood(s.player.Coord) {
		if cache, ok := s.caches[cell.Coordinate]; ok && cache != nil {
			out = append(out, CacheInfo{Cell: cell, Coins: slices.Clone(cache.Coins)})
		}
	}
	return out
}

// GetOrCreate returns the cache state for a coordinate, deciding it via the
// generator on first visit. Seen cells — including ones that rolled "no
// cache" — return their recorded state without consuming a draw. The bool
// is false for no-cache cells.
func (s *Session) GetOrCreate(c grid.Coordinate) (*Cache, bool, error) {
	if err := c.Validate(); err != nil {
		return nil, false, err
	}
	if cache, seen := s.caches[c]; seen {
		return cache, cache != nil, nil
	}
	spawn, err := s.gen.ShouldSpawn(c)
	if err != nil {
		return nil, false, err
	}
	if !spawn {
		s.caches[c] = nil
		return nil, false, nil
	}
	coins, err := s.gen.MintCoinBatch(c)
	if err != nil {
		return nil, false, err
	}
	cache := &Cache{Coord: c, Coins: coins}
	s.caches[c] = cache
	s.view.CacheChanged(s.board.Cell(c), slices.Clone(cache.Coins))
	return cache, true, nil
}

// Collect moves a coin from the cache at the coordinate to the player.
// The coordinate must name an already-materialized cache: visit order is
// owned by movement, and collect never triggers a spawn decision. A coin
// the cache does not hold yields ErrNotFound and changes nothing.
func (s *Session) Collect(c grid.Coordinate, id CoinID) error {
	if err := c.Validate(); err != nil {
		return err
	}
	cache := s.caches[c]
	if cache == nil {
		return fmt.Errorf("%w: no cache at %s", ErrNotFound, c)
	}
	if !cache.remove(id) {
		return fmt.Errorf("%w: coin %s not in cache %s", ErrNotFound, id, c)
	}
	s.player.Coins = append(s.player.Coins, id)
	s.view.CacheChanged(s.board.Cell(c), slices.Clone(cache.Coins))
	return nil
}

// Deposit moves coins held by the player into the cache at the coordinate.
// Depositing to a cell with no cache is not permitted and fails with
// ErrInvalidTarget; a coin the player does not hold fails with ErrNotFound
// before any state changes.
func (s *Session) Deposit(c grid.Coordinate, ids ...CoinID) error {
	if err := c.Validate(); err != nil {
		return err
	}
	cache := s.caches[c]
	if cache == nil {
		return fmt.Errorf("%w: %s", ErrInvalidTarget, c)
	}
	// Coins are unique, so a repeated id can never be satisfied; catching
	// it here keeps the all-or-nothing contract below.
	seen := make(map[CoinID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return fmt.Errorf("%w: coin %s listed twice", ErrNotFound, id)
		}
		seen[id] = true
		if !slices.Contains(s.player.Coins, id) {
			return fmt.Errorf("%w: player does not hold %s", ErrNotFound, id)
		}
	}
	for _, id := range ids {
		idx := slices.Index(s.player.Coins, id)
		s.player.Coins = slices.Delete(s.player.Coins, idx, idx+1)
		cache.Coins = append(cache.Coins, id)
	}
	s.view.CacheChanged(s.board.Cell(c), slices.Clone(cache.Coins))
	return nil
}

// MoveBy shifts the player by whole cells and materializes the new
// neighborhood.
func (s *Session) MoveBy(di, dj int) error {
	next := grid.Coordinate{I: s.player.Coord.I + di, J: s.player.Coord.J + dj}
	return s.moveTo(next)
}

// MoveTo places the player at the cell containing the given position.
// Sensor callbacks land here, each treated as one serialized move event.
func (s *Session) MoveTo(lat, lng float64) error {
	cell, err := s.board.CellAt(lat, lng)
	if err != nil {
		return err
	}
	return s.moveTo(cell.Coordinate)
}

func (s *Session) moveTo(next grid.Coordinate) error {
	if err := s.validateNeighborhood(next); err != nil {
		return err
	}
	s.player.Coord = next
	cell := s.board.Cell(next)
	lat, lng := cell.Center()
	s.path = append(s.path, [2]float64{lat, lng})
	if err := s.materializeAround(next); err != nil {
		return err
	}
	s.view.PlayerMoved(cell, slices.Clone(s.path))
	return nil
}

// validateNeighborhood rejects a center whose surrounding cells would fall
// outside the representable index range. Checked before any state mutates,
// so a move or restore either lands whole or not at all.
func (s *Session) validateNeighborhood(center grid.Coordinate) error {
	if err := center.Validate(); err != nil {
		return err
	}
	r := s.board.Radius()
	corners := []grid.Coordinate{
		{I: center.I - r, J: center.J - r},
		{I: center.I + r, J: center.J + r},
	}
	for _, c := range corners {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// materializeAround walks the neighborhood in the board's row-major order,
// deciding any still-unvisited cells. The order is load-bearing: the
// generator counter is shared, so a different walk produces a different
// world.
func (s *Session) materializeAround(center grid.Coordinate) error {
	for _, cell := range s.board.Neighborhood(center) {
		if _, _, err := s.GetOrCreate(cell.Coordinate); err != nil {
			return err
		}
	}
	return nil
}

// Reset rewinds the session to a fresh world: generator back at its seed,
// all cache state and markers dropped, player emptied and homed, movement
// history cleared. The neighborhood walk that follows reproduces the
// fresh-session world exactly.
func (s *Session) Reset() error {
	s.gen.Reset()
	s.caches = make(map[grid.Coordinate]*Cache)
	s.player = Player{Coord: s.home, Coins: []CoinID{}}
	cell := s.board.Cell(s.home)
	lat, lng := cell.Center()
	s.path = [][2]float64{{lat, lng}}
	if err := s.materializeAround(s.home); err != nil {
		return err
	}
	s.view.WorldReset()
	return nil
}

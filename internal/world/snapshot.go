package world

import (
	"encoding/json"
	"fmt"
	"slices"

	"geocoin/internal/grid"
)

// Snapshot is the complete serializable projection of a session. The field
// names and the string-encoded cache mementos are the persisted wire shape;
// previously saved data must stay loadable, so they do not change.
// RNGCounter and NoCacheCells are later additions — decoders treat their
// absence as zero values and fall back accordingly.
type Snapshot struct {
	Row          int               `json:"row"`
	Col          int               `json:"col"`
	Coins        []CoinID          `json:"coins"`
	CacheStates  map[string]string `json:"cacheStates"`
	MovementPath [][2]float64      `json:"movementPath"`
	RNGCounter   int64             `json:"rngCounter,omitempty"`
	NoCacheCells []string          `json:"noCacheCells,omitempty"`
}

// cacheMemento is the per-cell wire shape, itself JSON-encoded into a
// string inside CacheStates.
type cacheMemento struct {
	I       int      `json:"i"`
	J       int      `json:"j"`
	CoinIDs []CoinID `json:"coinIds"`
}

// EncodeSnapshot renders a snapshot to its persisted byte form. The output
// is deterministic: map keys marshal sorted and all slices keep insertion
// order, so equal state always encodes to equal bytes.
func EncodeSnapshot(s Snapshot) ([]byte, error) {
	return json.Marshal(s)
}

// DecodeSnapshot parses persisted bytes back into a Snapshot. Malformed
// input yields ErrDecode; missing fields are simply zero values and are
// defaulted at restore time.
func DecodeSnapshot(b []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return s, nil
}

// Snapshot projects the session's full state for persistence.
func (s *Session) Snapshot() (Snapshot, error) {
	snap := Snapshot{
		Row:          s.player.Coord.I,
		Col:          s.player.Coord.J,
		Coins:        slices.Clone(s.player.Coins),
		CacheStates:  make(map[string]string),
		MovementPath: slices.Clone(s.path),
		RNGCounter:   s.gen.Counter(),
	}
	if snap.Coins == nil {
		snap.Coins = []CoinID{}
	}
	for coord, cache := range s.caches {
		if cache == nil {
			snap.NoCacheCells = append(snap.NoCacheCells, coord.Key())
			continue
		}
		m, err := json.Marshal(cacheMemento{I: coord.I, J: coord.J, CoinIDs: cache.Coins})
		if err != nil {
			return Snapshot{}, fmt.Errorf("encode cache %s: %w", coord, err)
		}
		snap.CacheStates[coord.Key()] = string(m)
	}
	slices.Sort(snap.NoCacheCells)
	return snap, nil
}

// Restore replaces all session state from a snapshot. Missing fields fall
// back to defaults — empty coin lists, the snapshot coordinate's cell
// center as the path start, a rewound generator — rather than failing;
// persisted data may predate the current schema. Structurally broken cache
// mementos yield ErrDecode and leave the session untouched.
func (s *Session) Restore(snap Snapshot) error {
	coord := grid.Coordinate{I: snap.Row, J: snap.Col}
	// The neighborhood walk below must not be able to fail once state has
	// been swapped in, so the whole radius is validated up front.
	if err := s.validateNeighborhood(coord); err != nil {
		return fmt.Errorf("%w: player coordinate: %v", ErrDecode, err)
	}

	caches := make(map[grid.Coordinate]*Cache)
	for key, raw := range snap.CacheStates {
		c, err := grid.ParseKey(key)
		if err != nil {
			return fmt.Errorf("%w: cache key %q", ErrDecode, key)
		}
		var m cacheMemento
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return fmt.Errorf("%w: cache %q: %v", ErrDecode, key, err)
		}
		coins := m.CoinIDs
		if coins == nil {
			coins = []CoinID{}
		}
		caches[c] = &Cache{Coord: c, Coins: coins}
	}
	for _, key := range snap.NoCacheCells {
		c, err := grid.ParseKey(key)
		if err != nil {
			return fmt.Errorf("%w: no-cache key %q", ErrDecode, key)
		}
		if _, ok := caches[c]; !ok {
			caches[c] = nil
		}
	}

	s.caches = caches
	s.player = Player{Coord: coord, Coins: slices.Clone(snap.Coins)}
	if s.player.Coins == nil {
		s.player.Coins = []CoinID{}
	}
	if len(snap.MovementPath) > 0 {
		s.path = slices.Clone(snap.MovementPath)
	} else {
		lat, lng := s.board.Cell(coord).Center()
		s.path = [][2]float64{{lat, lng}}
	}
	if snap.RNGCounter > 0 {
		s.gen.Seek(snap.RNGCounter)
	} else {
		s.gen.Reset()
	}
	if err := s.materializeAround(coord); err != nil {
		return err
	}
	s.view.PlayerMoved(s.board.Cell(coord), slices.Clone(s.path))
	return nil
}

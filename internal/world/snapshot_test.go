package world

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"geocoin/internal/grid"
)

func TestSnapshotRoundTrip(t *testing.T) {
	sess := newTestSession(t)
	if err := sess.Collect(testCacheCoord, "-1:1#1"); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if err := sess.MoveBy(1, 0); err != nil {
		t.Fatalf("MoveBy: %v", err)
	}

	snap, err := sess.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	payload, err := EncodeSnapshot(snap)
	if err != nil {
		t.Fatalf("EncodeSnapshot: %v", err)
	}
	decoded, err := DecodeSnapshot(payload)
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}

	// Restoring into a second session yields an observationally equal one.
	other := newTestSession(t)
	if err := other.Restore(decoded); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	restored, err := other.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	restoredBytes, _ := EncodeSnapshot(restored)
	if !bytes.Equal(payload, restoredBytes) {
		t.Errorf("restore(serialize()) not equivalent:\n%s\n%s", payload, restoredBytes)
	}

	if got := other.Player().Coins; len(got) != 1 || got[0] != "-1:1#1" {
		t.Errorf("restored player coins = %v, want [-1:1#1]", got)
	}
	if other.Player().Coord != (grid.Coordinate{I: 1, J: 0}) {
		t.Errorf("restored player at %v, want 1,0", other.Player().Coord)
	}
}

func TestEncodeDeterministic(t *testing.T) {
	sess := newTestSession(t)
	snap, _ := sess.Snapshot()
	b1, _ := EncodeSnapshot(snap)
	b2, _ := EncodeSnapshot(snap)
	if !bytes.Equal(b1, b2) {
		t.Error("encoding the same snapshot twice produced different bytes")
	}
}

func TestDecodeGarbage(t *testing.T) {
	if _, err := DecodeSnapshot([]byte("not json at all")); !errors.Is(err, ErrDecode) {
		t.Errorf("DecodeSnapshot(garbage) = %v, want ErrDecode", err)
	}
}

func TestRestorePartialSnapshot(t *testing.T) {
	// An old save may carry only the player position; everything else
	// defaults instead of failing.
	snap, err := DecodeSnapshot([]byte(`{"row":2,"col":3}`))
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}

	sess := newTestSession(t)
	if err := sess.Restore(snap); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	player := sess.Player()
	if player.Coord != (grid.Coordinate{I: 2, J: 3}) {
		t.Errorf("player at %v, want 2,3", player.Coord)
	}
	if len(player.Coins) != 0 {
		t.Errorf("player coins = %v, want empty", player.Coins)
	}
	if path := sess.Path(); len(path) != 1 {
		t.Errorf("path has %d entries, want the single default start", len(path))
	}
}

func TestRestoreLegacyWireShape(t *testing.T) {
	// The original persisted shape: no rngCounter, no noCacheCells, cache
	// cells as string-encoded mementos.
	memento, _ := json.Marshal(cacheMemento{I: 4, J: -2, CoinIDs: []CoinID{"4:-2#0", "4:-2#1"}})
	legacy := map[string]any{
		"row":          4,
		"col":          -2,
		"coins":        []string{"0:0#0"},
		"cacheStates":  map[string]string{"4,-2": string(memento)},
		"movementPath": [][2]float64{{0.00005, 0.00005}, {0.00045, -0.00015}},
	}
	payload, _ := json.Marshal(legacy)

	snap, err := DecodeSnapshot(payload)
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}
	sess := newTestSession(t)
	if err := sess.Restore(snap); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	cache, ok, err := sess.GetOrCreate(grid.Coordinate{I: 4, J: -2})
	if err != nil || !ok {
		t.Fatalf("restored cache missing: ok=%v err=%v", ok, err)
	}
	if len(cache.Coins) != 2 || cache.Coins[0] != "4:-2#0" {
		t.Errorf("restored cache coins = %v", cache.Coins)
	}
	if got := sess.Player().Coins; len(got) != 1 || got[0] != "0:0#0" {
		t.Errorf("restored player coins = %v, want [0:0#0]", got)
	}
	if len(sess.Path()) != 2 {
		t.Errorf("restored path has %d entries, want 2", len(sess.Path()))
	}
}

func TestRestoreRejectsBrokenMementos(t *testing.T) {
	sess := newTestSession(t)
	before, _ := sess.Snapshot()

	tests := []Snapshot{
		{Row: 0, Col: 0, CacheStates: map[string]string{"not-a-key": `{"i":0,"j":0,"coinIds":[]}`}},
		{Row: 0, Col: 0, CacheStates: map[string]string{"1,1": "not json"}},
		{Row: 0, Col: 0, NoCacheCells: []string{"bogus"}},
		{Row: grid.MaxIndex + 1, Col: 0},
		// Representable player coordinate whose neighborhood is not:
		// the restore must fail before any state is swapped in.
		{Row: grid.MaxIndex, Col: 0},
	}
	for i, snap := range tests {
		if err := sess.Restore(snap); !errors.Is(err, ErrDecode) {
			t.Errorf("case %d: Restore = %v, want ErrDecode", i, err)
		}
	}

	// Failed restores leave the session as it was.
	after, _ := sess.Snapshot()
	b1, _ := EncodeSnapshot(before)
	b2, _ := EncodeSnapshot(after)
	if !bytes.Equal(b1, b2) {
		t.Error("failed restore mutated session state")
	}
}

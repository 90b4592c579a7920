package world

import "errors"

var (
	// ErrNotFound reports a collect (or deposit) naming a coin the holder
	// does not have — already taken, or never minted there.
	ErrNotFound = errors.New("coin not found")

	// ErrInvalidTarget reports a deposit aimed at a cell with no cache.
	ErrInvalidTarget = errors.New("no cache at target cell")

	// ErrDecode reports malformed persisted snapshot bytes. Callers recover
	// by starting a fresh session; it is never fatal.
	ErrDecode = errors.New("snapshot decode failed")
)

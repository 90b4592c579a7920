package grid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidCoordinate indicates malformed or out-of-range grid indices.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// MaxIndex bounds grid indices so that every cell maps to a representable
// geographic position at the smallest supported tile size (1e-4 degrees).
const MaxIndex = 1_800_000

// Coordinate identifies one cell on the fixed-size tiling of geographic
// space. I grows northward (latitude), J grows eastward (longitude).
type Coordinate struct {
	I int `json:"i"`
	J int `json:"j"`
}

// Key returns the canonical "i,j" form used as a map key and on the wire.
func (c Coordinate) Key() string {
	return fmt.Sprintf("%d,%d", c.I, c.J)
}

func (c Coordinate) String() string { return c.Key() }

// Validate rejects indices outside the representable range.
func (c Coordinate) Validate() error {
	if c.I < -MaxIndex || c.I > MaxIndex || c.J < -MaxIndex || c.J > MaxIndex {
		return fmt.Errorf("%w: %d,%d out of range", ErrInvalidCoordinate, c.I, c.J)
	}
	return nil
}

// ParseKey parses the canonical "i,j" form back into a Coordinate.
func ParseKey(key string) (Coordinate, error) {
	parts := strings.Split(key, ",")
	if len(parts) != 2 {
		return Coordinate{}, fmt.Errorf("%w: key %q", ErrInvalidCoordinate, key)
	}
	i, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: key %q", ErrInvalidCoordinate, key)
	}
	j, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: key %q", ErrInvalidCoordinate, key)
	}
	c := Coordinate{I: i, J: j}
	if err := c.Validate(); err != nil {
		return Coordinate{}, err
	}
	return c, nil
}

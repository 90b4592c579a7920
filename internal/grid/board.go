package grid

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Cell is the flyweight for one grid cell: its coordinate plus its
// geographic bounds, computed once and shared by everyone who looks it up.
type Cell struct {
	Coordinate
	South float64
	West  float64
	North float64
	East  float64
}

// Center returns the geographic midpoint of the cell.
func (c *Cell) Center() (lat, lng float64) {
	return (c.South + c.North) / 2, (c.West + c.East) / 2
}

// Board maps continuous geographic positions onto the discrete cell grid.
// Cells are interned so repeated lookups of the same coordinate return the
// same *Cell. Tile arithmetic runs on decimals: dividing a latitude by a
// tile size like 1e-4 in binary floats puts positions that sit exactly on a
// cell edge into the wrong cell.
type Board struct {
	tile   decimal.Decimal
	radius int
	cells  map[Coordinate]*Cell
}

// NewBoard creates a board with the given angular tile size (degrees) and
// neighborhood radius (cells).
func NewBoard(tileSize float64, radius int) (*Board, error) {
	if tileSize <= 0 {
		return nil, fmt.Errorf("tile size must be positive, got %g", tileSize)
	}
	if radius < 0 {
		return nil, fmt.Errorf("neighborhood radius must be non-negative, got %d", radius)
	}
	return &Board{
		tile:   decimal.NewFromFloat(tileSize),
		radius: radius,
		cells:  make(map[Coordinate]*Cell),
	}, nil
}

// TileSize returns the angular edge length of one cell in degrees.
func (b *Board) TileSize() float64 {
	f, _ := b.tile.Float64()
	return f
}

// Radius returns the neighborhood radius in cells.
func (b *Board) Radius() int { return b.radius }

// CellAt returns the interned cell containing the given position.
// Positions must be finite and land inside the representable index range;
// sensor fixes are untrusted input and a NaN must not take the grid down.
func (b *Board) CellAt(lat, lng float64) (*Cell, error) {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lng) || math.IsInf(lng, 0) {
		return nil, fmt.Errorf("%w: non-finite position (%g, %g)", ErrInvalidCoordinate, lat, lng)
	}
	i := decimal.NewFromFloat(lat).Div(b.tile).Floor().IntPart()
	j := decimal.NewFromFloat(lng).Div(b.tile).Floor().IntPart()
	if i < -MaxIndex || i > MaxIndex || j < -MaxIndex || j > MaxIndex {
		return nil, fmt.Errorf("%w: position (%g, %g) outside the grid", ErrInvalidCoordinate, lat, lng)
	}
	return b.Cell(Coordinate{I: int(i), J: int(j)}), nil
}

// Cell returns the interned cell for a coordinate, creating it on first use.
func (b *Board) Cell(c Coordinate) *Cell {
	if cell, ok := b.cells[c]; ok {
		return cell
	}
	south := decimal.NewFromInt(int64(c.I)).Mul(b.tile)
	west := decimal.NewFromInt(int64(c.J)).Mul(b.tile)
	cell := &Cell{
		Coordinate: c,
		South:      south.InexactFloat64(),
		West:       west.InexactFloat64(),
		North:      south.Add(b.tile).InexactFloat64(),
		East:       west.Add(b.tile).InexactFloat64(),
	}
	b.cells[c] = cell
	return cell
}

// Neighborhood enumerates the cells within the board radius around center
// in row-major order (south to north, west to east). This ordering is the
// canonical first-visit order for spawn decisions; callers that materialize
// cells must walk it unchanged or worlds stop being reproducible.
func (b *Board) Neighborhood(center Coordinate) []*Cell {
	cells := make([]*Cell, 0, (2*b.radius+1)*(2*b.radius+1))
	for di := -b.radius; di <= b.radius; di++ {
		for dj := -b.radius; dj <= b.radius; dj++ {
			cells = append(cells, b.Cell(Coordinate{I: center.I + di, J: center.J + dj}))
		}
	}
	return cells
}

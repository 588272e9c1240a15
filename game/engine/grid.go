package engine

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Grid is an immutable Size x Size board stored row-major.
// The zero value is an empty grid.
type Grid struct {
	cells [Cells]int
}

// NewGrid returns an empty grid
func NewGrid() Grid {
	return Grid{}
}

// FromRows builds a grid from nested rows, validating shape and tile values
func FromRows(rows [][]int) (Grid, error) {
	var g Grid
	if len(rows) != Size {
		return Grid{}, fmt.Errorf("%w: want %d rows, got %d", ErrInvalidGrid, Size, len(rows))
	}
	for r, row := range rows {
		if len(row) != Size {
			return Grid{}, fmt.Errorf("%w: row %d has %d cells, want %d", ErrInvalidGrid, r, len(row), Size)
		}
		for c, v := range row {
			if !IsTileValue(v) {
				return Grid{}, fmt.Errorf("%w: cell (%d,%d) holds %d", ErrInvalidGrid, r, c, v)
			}
			g.cells[r*Size+c] = v
		}
	}
	return g, nil
}

// MustFromRows is FromRows for literals; it panics on a malformed grid
func MustFromRows(rows [][]int) Grid {
	g, err := FromRows(rows)
	if err != nil {
		panic(fmt.Sprintf("engine: %v", err))
	}
	return g
}

// IsTileValue reports whether v may be stored in a cell: 0 or a power of two
// in [2, MaxTileValue]
func IsTileValue(v int) bool {
	return v == 0 || (v >= 2 && v <= MaxTileValue && v&(v-1) == 0)
}

// Rows returns a fresh copy of the grid as nested rows
func (g Grid) Rows() [][]int {
	rows := make([][]int, Size)
	for r := range rows {
		rows[r] = make([]int, Size)
		copy(rows[r], g.cells[r*Size:(r+1)*Size])
	}
	return rows
}

// At returns the value at (row, col)
func (g Grid) At(row, col int) int {
	checkBounds(row, col)
	return g.cells[row*Size+col]
}

// With returns a copy of g with (row, col) set to v
func (g Grid) With(row, col, v int) Grid {
	checkBounds(row, col)
	if !IsTileValue(v) {
		panic(fmt.Sprintf("engine: invalid tile value %d", v))
	}
	g.cells[row*Size+col] = v
	return g
}

// EmptyCells lists empty positions in row-major order
func (g Grid) EmptyCells() []Position {
	var empty []Position
	for i, v := range g.cells {
		if v == 0 {
			empty = append(empty, Position{Row: i / Size, Col: i % Size})
		}
	}
	return empty
}

// Full reports whether no cell is empty
func (g Grid) Full() bool {
	for _, v := range g.cells {
		if v == 0 {
			return false
		}
	}
	return true
}

// Sum returns the total of all tile values
func (g Grid) Sum() int {
	sum := 0
	for _, v := range g.cells {
		sum += v
	}
	return sum
}

// MaxTile returns the largest tile on the grid, or 0 if empty
func (g Grid) MaxTile() int {
	max := 0
	for _, v := range g.cells {
		if v > max {
			max = v
		}
	}
	return max
}

// Equal reports whether both grids hold the same tiles
func (g Grid) Equal(other Grid) bool {
	return g.cells == other.cells
}

// String renders the grid as fixed-width text, one row per line, "." for empty
func (g Grid) String() string {
	var b strings.Builder
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			v := g.cells[r*Size+c]
			if v == 0 {
				b.WriteString(fmt.Sprintf("%6s", "."))
			} else {
				b.WriteString(fmt.Sprintf("%6d", v))
			}
		}
		if r < Size-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// MarshalJSON encodes the grid as nested rows
func (g Grid) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.Rows())
}

// UnmarshalJSON decodes nested rows, rejecting malformed grids
func (g *Grid) UnmarshalJSON(data []byte) error {
	var rows [][]int
	if err := json.Unmarshal(data, &rows); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidGrid, err)
	}
	parsed, err := FromRows(rows)
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

func checkBounds(row, col int) {
	if row < 0 || row >= Size || col < 0 || col >= Size {
		panic(fmt.Sprintf("engine: position (%d,%d) outside %dx%d grid", row, col, Size, Size))
	}
}

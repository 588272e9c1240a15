package engine

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// Size is the side length of the square grid.
	Size = 4
	// Cells is the number of cells in a grid.
	Cells = Size * Size

	// SpawnValue is the value of every newly placed tile.
	SpawnValue = 2
	// StartTiles is the number of tiles placed by NewGame.
	StartTiles = 2
	// MaxTileValue is the largest value a cell may hold. Tiles at the cap do
	// not merge, so doubling never overflows.
	MaxTileValue = 1 << 30
)

var (
	ErrInvalidDirection = errors.New("invalid direction")
	ErrInvalidGrid      = errors.New("invalid grid")
)

// Position identifies a cell by row and column, both zero-based
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Direction is one of the four moves
type Direction int

const (
	Left Direction = iota + 1
	Right
	Up
	Down
)

var directionNames = map[Direction]string{
	Left:  "left",
	Right: "right",
	Up:    "up",
	Down:  "down",
}

// Directions returns the four moves in a fixed order
func Directions() []Direction {
	return []Direction{Left, Right, Up, Down}
}

// ParseDirection converts a user token into a Direction.
// It accepts the full names and their first letter, case-insensitively.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left", "l":
		return Left, nil
	case "right", "r":
		return Right, nil
	case "up", "u":
		return Up, nil
	case "down", "d":
		return Down, nil
	}
	return 0, fmt.Errorf("%w: %q (use left, right, up or down)", ErrInvalidDirection, s)
}

// Valid reports whether d is one of the four moves
func (d Direction) Valid() bool {
	return d >= Left && d <= Down
}

func (d Direction) String() string {
	if name, ok := directionNames[d]; ok {
		return name
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// MarshalText encodes the direction as its name
func (d Direction) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDirection, int(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText decodes any token accepted by ParseDirection
func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MoveOutcome is the result of applying one move to a grid
type MoveOutcome struct {
	Grid     Grid      `json:"grid"`
	Points   int       `json:"points"`
	Terminal bool      `json:"terminal"`
	Changed  bool      `json:"changed"`
	Spawned  *Position `json:"spawned,omitempty"` // nil when nothing moved
}

// State is the caller-owned game session: the current grid plus bookkeeping.
// The engine never stores a State; it only computes the next one.
type State struct {
	Grid     Grid `json:"grid"`
	Score    int  `json:"score"`
	Moves    int  `json:"moves"` // moves that changed the grid
	GameOver bool `json:"game_over"`
}

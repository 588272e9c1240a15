package engine

import (
	"errors"
	"fmt"
	"sort"
)

// CanMove reports whether moving g toward d would change it
func CanMove(g Grid, d Direction) bool {
	if !d.Valid() {
		return false
	}
	next, _ := Slide(g, d)
	return !next.Equal(g)
}

// PossibleMoves returns every direction that changes g
func PossibleMoves(g Grid) []Direction {
	var possible []Direction
	for _, d := range Directions() {
		if CanMove(g, d) {
			possible = append(possible, d)
		}
	}
	return possible
}

// TileCount is one bucket of a tile histogram
type TileCount struct {
	Value int `json:"value"`
	Count int `json:"count"`
}

// TileHistogram counts the tiles of each value, smallest value first.
// Empty cells are not counted.
func TileHistogram(g Grid) []TileCount {
	counts := make(map[int]int)
	for _, v := range g.cells {
		if v != 0 {
			counts[v]++
		}
	}
	histogram := make([]TileCount, 0, len(counts))
	for v, n := range counts {
		histogram = append(histogram, TileCount{Value: v, Count: n})
	}
	sort.Slice(histogram, func(i, j int) bool {
		return histogram[i].Value < histogram[j].Value
	})
	return histogram
}

// ValidateState checks a state loaded from outside the engine for consistency
func ValidateState(s State) error {
	var errs []error
	if s.Score < 0 {
		errs = append(errs, fmt.Errorf("score must be non-negative, got %d", s.Score))
	}
	// Every merge scores an even value.
	if s.Score%2 != 0 {
		errs = append(errs, fmt.Errorf("score must be even, got %d", s.Score))
	}
	if s.Moves < 0 {
		errs = append(errs, fmt.Errorf("moves must be non-negative, got %d", s.Moves))
	}
	if s.GameOver && !IsTerminal(s.Grid) {
		errs = append(errs, errors.New("game_over is set but moves remain"))
	}
	if !s.GameOver && IsTerminal(s.Grid) {
		errs = append(errs, errors.New("grid is terminal but game_over is not set"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("state validation: %w", errors.Join(errs...))
	}
	return nil
}

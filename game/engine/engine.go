package engine

import (
	"fmt"
	"math/rand/v2"
	"sync"
)

// Source is the randomness the engine needs to place tiles.
// *rand.Rand from math/rand/v2 satisfies it.
type Source interface {
	IntN(n int) int
}

// lockedSource serializes access to a Source that is not goroutine-safe
type lockedSource struct {
	mu  sync.Mutex
	src Source
}

func (s *lockedSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.IntN(n)
}

// Engine applies the game rules. It keeps no game state between calls;
// its only field is the random source, so one Engine can serve any number
// of concurrent games.
type Engine struct {
	rng Source
}

// New creates an engine drawing tile positions from src
func New(src Source) *Engine {
	if src == nil {
		panic("engine: nil random source")
	}
	if _, ok := src.(*lockedSource); !ok {
		src = &lockedSource{src: src}
	}
	return &Engine{rng: src}
}

// NewSeeded creates an engine with a deterministic PCG source
func NewSeeded(seed uint64) *Engine {
	return New(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

// NewRandom creates an engine seeded from the runtime's random state
func NewRandom() *Engine {
	return New(rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
}

// NewGame returns an empty grid with StartTiles tiles of value 2 and a score of 0
func (e *Engine) NewGame() (Grid, int) {
	g := NewGrid()
	for i := 0; i < StartTiles; i++ {
		g, _ = e.spawnTile(g)
	}
	return g, 0
}

// NewState starts a fresh caller-side game state
func (e *Engine) NewState() State {
	g, score := e.NewGame()
	return State{Grid: g, Score: score}
}

// ApplyMove slides g toward d, spawns a tile if anything changed, and reports
// whether the resulting grid is terminal. The input grid is never modified.
func (e *Engine) ApplyMove(g Grid, d Direction) (MoveOutcome, error) {
	if !d.Valid() {
		return MoveOutcome{Grid: g}, fmt.Errorf("%w: %s", ErrInvalidDirection, d)
	}

	next, points := Slide(g, d)
	outcome := MoveOutcome{Grid: next, Points: points}

	if !next.Equal(g) {
		spawned, pos := e.spawnTile(next)
		outcome.Grid = spawned
		outcome.Changed = true
		outcome.Spawned = &pos
	}

	outcome.Terminal = IsTerminal(outcome.Grid)
	return outcome, nil
}

// Advance applies d to the caller's state and returns the next state.
// Score accumulates merge points, Moves counts grid-changing moves, and
// GameOver never goes back to false once set.
func (e *Engine) Advance(s State, d Direction) (State, MoveOutcome, error) {
	outcome, err := e.ApplyMove(s.Grid, d)
	if err != nil {
		return s, outcome, err
	}

	next := s
	next.Grid = outcome.Grid
	next.Score += outcome.Points
	if outcome.Changed {
		next.Moves++
	}
	next.GameOver = s.GameOver || outcome.Terminal
	return next, outcome, nil
}

// IsTerminal reports whether g is full and has no mergeable horizontal or
// vertical neighbours.
func IsTerminal(g Grid) bool {
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			v := g.cells[r*Size+c]
			if v == 0 {
				return false
			}
			if c+1 < Size && canMerge(v, g.cells[r*Size+c+1]) {
				return false
			}
			if r+1 < Size && canMerge(v, g.cells[(r+1)*Size+c]) {
				return false
			}
		}
	}
	return true
}

// spawnTile places SpawnValue on a uniformly random empty cell.
// Callers only spawn after a move that changed the grid, so a full grid
// here is a broken invariant.
func (e *Engine) spawnTile(g Grid) (Grid, Position) {
	empty := g.EmptyCells()
	if len(empty) == 0 {
		panic("engine: spawn on full grid")
	}
	pos := empty[e.rng.IntN(len(empty))]
	return g.With(pos.Row, pos.Col, SpawnValue), pos
}

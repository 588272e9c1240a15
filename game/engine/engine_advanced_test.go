package engine

import (
	"sync"
	"testing"
)

// playout drives a game with a fixed direction cycle and checks the grid
// invariants after every move. It returns the final state.
func playout(t *testing.T, eng *Engine, maxMoves int) State {
	t.Helper()
	state := eng.NewState()
	cycle := []Direction{Left, Down, Right, Down, Up}

	for i := 0; i < maxMoves && !state.GameOver; i++ {
		d := cycle[i%len(cycle)]
		if !CanMove(state.Grid, d) {
			moves := PossibleMoves(state.Grid)
			if len(moves) == 0 {
				t.Errorf("no possible moves on a non-terminal grid:\n%s", state.Grid)
				return state
			}
			d = moves[0]
		}

		prev := state
		next, out, err := eng.Advance(state, d)
		if err != nil {
			t.Errorf("Advance(%s) failed: %v", d, err)
			return state
		}
		if !out.Changed {
			t.Errorf("CanMove(%s) was true but nothing changed", d)
			return state
		}
		if next.Score-prev.Score != out.Points {
			t.Errorf("score delta %d does not match points %d", next.Score-prev.Score, out.Points)
		}
		if next.Grid.Sum() != prev.Grid.Sum()+SpawnValue {
			t.Errorf("sum %d, want %d", next.Grid.Sum(), prev.Grid.Sum()+SpawnValue)
		}
		if _, err := FromRows(next.Grid.Rows()); err != nil {
			t.Errorf("engine produced an invalid grid: %v", err)
		}
		if err := ValidateState(next); err != nil {
			t.Errorf("engine produced an inconsistent state: %v", err)
		}
		state = next
	}
	return state
}

func TestPlayout_Invariants(t *testing.T) {
	for seed := uint64(0); seed < 20; seed++ {
		final := playout(t, NewSeeded(seed), 20000)
		if !final.GameOver {
			t.Errorf("seed %d: game did not end within 20000 moves", seed)
		}
		if final.GameOver != IsTerminal(final.Grid) {
			t.Errorf("seed %d: GameOver=%v but IsTerminal=%v", seed, final.GameOver, IsTerminal(final.Grid))
		}
	}
}

func TestPlayout_DeterministicForSeed(t *testing.T) {
	a := playout(t, NewSeeded(1234), 300)
	b := playout(t, NewSeeded(1234), 300)
	if !a.Grid.Equal(b.Grid) || a.Score != b.Score || a.Moves != b.Moves {
		t.Errorf("same seed diverged: %+v vs %+v", a, b)
	}
}

func TestEngine_ConcurrentGames(t *testing.T) {
	eng := NewSeeded(7)
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			playout(t, eng, 500)
		}()
	}
	wg.Wait()
}

func TestPossibleMoves(t *testing.T) {
	g := MustFromRows([][]int{
		{2, 0, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
	})
	moves := PossibleMoves(g)
	if len(moves) != 2 || moves[0] != Right || moves[1] != Down {
		t.Errorf("Expected [right down], got %v", moves)
	}

	if moves := PossibleMoves(MustFromRows(checkerboard())); len(moves) != 0 {
		t.Errorf("Expected no moves on a terminal grid, got %v", moves)
	}
	if CanMove(g, Direction(0)) {
		t.Error("Expected invalid direction not to move")
	}
}

func TestValidateState(t *testing.T) {
	fresh := NewSeeded(1).NewState()
	if err := ValidateState(fresh); err != nil {
		t.Errorf("Expected fresh state to be valid, got %v", err)
	}

	terminal := State{Grid: MustFromRows(checkerboard()), Score: 64, GameOver: true}
	if err := ValidateState(terminal); err != nil {
		t.Errorf("Expected finished state to be valid, got %v", err)
	}

	tests := []struct {
		name  string
		state State
	}{
		{"negative score", State{Grid: fresh.Grid, Score: -4}},
		{"odd score", State{Grid: fresh.Grid, Score: 3}},
		{"negative moves", State{Grid: fresh.Grid, Moves: -1}},
		{"game over with moves left", State{Grid: fresh.Grid, GameOver: true}},
		{"terminal grid still playing", State{Grid: MustFromRows(checkerboard())}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateState(tt.state); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

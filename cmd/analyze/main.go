// Command analyze prints quick, human-readable heuristics about persisted
// sessions in the sessions directory (default "sessions", or the first
// argument). For each session it summarizes the board, where the largest tile
// sits, which moves are still open, and how the recorded moves were spent.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/wricardo/mcp-training/game2048/game/engine"
	"github.com/wricardo/mcp-training/game2048/game/session"
)

// DirectionStats aggregates recorded moves in one direction
type DirectionStats struct {
	Moves   int
	Blocked int
	Points  int
}

// Analysis is the summary of one session file
type Analysis struct {
	ID        string
	Game      int
	BestScore int
	State     engine.State

	MaxTile       int
	MaxInCorner   bool
	EmptyCells    int
	Histogram     []engine.TileCount
	PossibleMoves []engine.Direction

	TotalMoves   int
	GamesPlayed  int
	ByDirection  map[engine.Direction]*DirectionStats
	BiggestMerge int
}

func main() {
	sessionsDir := "sessions"
	if len(os.Args) > 1 {
		sessionsDir = os.Args[1]
	}

	files, err := filepath.Glob(filepath.Join(sessionsDir, "*.json"))
	if err != nil {
		fmt.Printf("Error finding session files: %v\n", err)
		os.Exit(1)
	}

	for _, file := range files {
		fmt.Printf("\n=== Analyzing %s ===\n", filepath.Base(file))
		a, err := analyzeSession(file)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}
		printAnalysis(os.Stdout, a)
	}
}

func analyzeSession(path string) (*Analysis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	sess, err := session.DecodeSessionData(data)
	if err != nil {
		return nil, err
	}

	grid := sess.GameState.Grid
	a := &Analysis{
		ID:            sess.ID,
		Game:          sess.Game,
		BestScore:     sess.BestScore,
		State:         sess.GameState,
		MaxTile:       grid.MaxTile(),
		MaxInCorner:   maxInCorner(grid),
		EmptyCells:    len(grid.EmptyCells()),
		Histogram:     engine.TileHistogram(grid),
		PossibleMoves: engine.PossibleMoves(grid),
		TotalMoves:    len(sess.MoveHistory),
		ByDirection:   make(map[engine.Direction]*DirectionStats),
	}

	games := make(map[int]bool)
	for _, entry := range sess.MoveHistory {
		games[entry.Game] = true
		dir, err := engine.ParseDirection(entry.Direction)
		if err != nil {
			continue
		}
		stats, ok := a.ByDirection[dir]
		if !ok {
			stats = &DirectionStats{}
			a.ByDirection[dir] = stats
		}
		stats.Moves++
		stats.Points += entry.Points
		if !entry.Changed {
			stats.Blocked++
		}
		a.BiggestMerge = max(a.BiggestMerge, entry.Points)
	}
	a.GamesPlayed = len(games)

	return a, nil
}

// maxInCorner reports whether some corner holds the largest tile
func maxInCorner(g engine.Grid) bool {
	top := g.MaxTile()
	if top == 0 {
		return false
	}
	last := engine.Size - 1
	for _, p := range []engine.Position{{Row: 0, Col: 0}, {Row: 0, Col: last}, {Row: last, Col: 0}, {Row: last, Col: last}} {
		if g.At(p.Row, p.Col) == top {
			return true
		}
	}
	return false
}

func printAnalysis(w io.Writer, a *Analysis) {
	fmt.Fprintf(w, "Session: %s (game %d)\n", a.ID, a.Game)
	fmt.Fprintf(w, "%s\n", a.State.Grid)
	fmt.Fprintf(w, "Score: %d  Best: %d  Moves: %d\n", a.State.Score, a.BestScore, a.State.Moves)
	fmt.Fprintf(w, "Max tile: %d  Empty cells: %d\n", a.MaxTile, a.EmptyCells)

	fmt.Fprint(w, "Tiles:")
	for _, tc := range a.Histogram {
		fmt.Fprintf(w, " %d×%d", tc.Value, tc.Count)
	}
	fmt.Fprintln(w)

	if a.MaxInCorner {
		fmt.Fprintf(w, "✅ Largest tile is in a corner\n")
	} else if a.MaxTile > 0 {
		fmt.Fprintf(w, "⚠️  Largest tile is not in a corner\n")
	}

	switch {
	case a.State.GameOver:
		fmt.Fprintf(w, "💀 Game over\n")
	case len(a.PossibleMoves) == 1:
		fmt.Fprintf(w, "⚠️  CRITICAL: only %s changes the board\n", a.PossibleMoves[0])
	default:
		fmt.Fprintf(w, "Open moves: %v\n", a.PossibleMoves)
	}

	if a.TotalMoves == 0 {
		fmt.Fprintf(w, "No recorded moves\n")
		return
	}
	fmt.Fprintf(w, "Recorded moves: %d across %d games, biggest merge +%d\n", a.TotalMoves, a.GamesPlayed, a.BiggestMerge)
	for _, d := range engine.Directions() {
		stats, ok := a.ByDirection[d]
		if !ok {
			continue
		}
		fmt.Fprintf(w, "  %-5s %4d moves, %3d blocked, %6d points\n", d, stats.Moves, stats.Blocked, stats.Points)
	}
}

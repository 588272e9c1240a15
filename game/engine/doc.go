// Package engine provides the core rules of the 2048 sliding-tile game.
//
// The engine package implements:
//   - An immutable 4x4 Grid value (0 = empty, otherwise a power of two)
//   - Directional moves: sliding, merging, scoring and tile spawning
//   - Terminal (no-more-moves) detection
//   - A small caller-side State for score and move bookkeeping
//
// Core Types:
//
// Grid is a fixed-size value; every operation returns a new Grid and never
// mutates its input, so callers may keep old grids around freely. Direction
// is a closed enumeration of the four moves. Engine owns the random Source
// used to place new tiles and is safe for concurrent use.
//
// Usage:
//
//	eng := engine.NewSeeded(42)
//	grid, score := eng.NewGame()
//
//	out, err := eng.ApplyMove(grid, engine.Left)
//	if err != nil {
//		log.Fatal(err)
//	}
//	score += out.Points
//	if out.Terminal {
//		fmt.Println("game over")
//	}
//
// Game Rules:
//
// A move compacts every line toward the chosen edge and merges each pair of
// equal neighbours once, scoring the merged value. If anything moved, a new
// tile of value 2 appears on a random empty cell. The game is over when the
// grid is full and no two horizontal or vertical neighbours are equal.
package engine

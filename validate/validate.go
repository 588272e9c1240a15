// Command validate checks persisted session files written by the game
// server. For every *.json file in the sessions directory (default
// "sessions", or the first argument) it checks:
//   - JSON structure, session id and a consistent game state
//   - Game counter and best score against the current game
//   - Move history numbering and game tags
//   - That the last recorded move of the current game matches the board
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/mcp-training/game2048/game/engine"
	"github.com/wricardo/mcp-training/game2048/game/service"
	"github.com/wricardo/mcp-training/game2048/game/session"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// validateSession loads and validates a single session file.
func validateSession(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	sess, err := session.DecodeSessionData(data)
	if err != nil {
		result.fail("Invalid session: %v", err)
		return result
	}

	state := sess.GameState

	if want := strings.TrimSuffix(result.File, ".json"); !strings.EqualFold(sess.ID, want) {
		result.fail("Session id %q does not match file name", sess.ID)
	}
	if sess.Game < 1 {
		result.fail("game must be at least 1, got %d", sess.Game)
	}
	if sess.BestScore < state.Score {
		result.fail("best_score (%d) is below the current score (%d)", sess.BestScore, state.Score)
	}

	history := validateHistory(sess.MoveHistory, sess.Game, state)
	if !history.Valid {
		result.Valid = false
	}
	result.Errors = append(result.Errors, history.Errors...)

	// Add informational data
	if result.Valid {
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Session: %s (game %d)", sess.ID, sess.Game))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Score: %d (best %d), moves: %d", state.Score, sess.BestScore, state.Moves))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Tiles: %s", formatHistogram(engine.TileHistogram(state.Grid))))
		if state.GameOver {
			result.Errors = append(result.Errors, "✓ Status: game over")
		} else {
			result.Errors = append(result.Errors, fmt.Sprintf("✓ Status: playing, %d possible moves", len(engine.PossibleMoves(state.Grid))))
		}
	}

	return result
}

// validateHistory checks move numbering and game tags, and that the moves of
// the current game agree with its state.
func validateHistory(history []service.MoveHistoryEntry, game int, state engine.State) ValidationResult {
	result := ValidationResult{
		Valid:  true,
		Errors: []string{},
	}

	prevGame := 0
	changed := 0
	var last *service.MoveHistoryEntry
	for i := range history {
		entry := &history[i]
		if entry.MoveNumber != i+1 {
			result.fail("Move %d has move_number %d", i+1, entry.MoveNumber)
		}
		if entry.Game < prevGame || entry.Game > game {
			result.fail("Move %d belongs to game %d, out of order", i+1, entry.Game)
		}
		if _, err := engine.ParseDirection(entry.Direction); err != nil {
			result.fail("Move %d: %v", i+1, err)
		}
		prevGame = entry.Game

		if entry.Game == game {
			last = entry
			if entry.Changed {
				changed++
			}
		}
	}

	if changed != state.Moves {
		result.fail("State counts %d moves but history has %d for game %d", state.Moves, changed, game)
	}

	if last != nil {
		if last.ScoreAfter != state.Score {
			result.fail("Last move scored %d but state has %d", last.ScoreAfter, state.Score)
		}
		if last.MaxTile != state.Grid.MaxTile() {
			result.fail("Last move reached tile %d but board max is %d", last.MaxTile, state.Grid.MaxTile())
		}
		if last.GameOver != state.GameOver {
			result.fail("Last move game_over=%v but state game_over=%v", last.GameOver, state.GameOver)
		}
	}

	if result.Valid {
		result.Errors = append(result.Errors, fmt.Sprintf("✓ History: %d moves across %d games", len(history), game))
	}
	return result
}

func formatHistogram(histogram []engine.TileCount) string {
	if len(histogram) == 0 {
		return "none"
	}
	parts := make([]string, len(histogram))
	for i, tc := range histogram {
		parts[i] = fmt.Sprintf("%d×%d", tc.Value, tc.Count)
	}
	return strings.Join(parts, " ")
}

// main scans the sessions directory for *.json files and validates each one,
// printing a concise report and exiting with non-zero status if any are invalid.
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
	if len(files) == 0 {
		fmt.Printf("No session files in %s\n", sessionsDir)
		return
	}

	allValid := true
	for _, file := range files {
		result := validateSession(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Println("  ❌ " + err)
				}
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All sessions are valid!")
	} else {
		fmt.Println("❌ Some sessions have errors")
		os.Exit(1)
	}
}

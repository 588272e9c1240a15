package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wricardo/mcp-training/game2048/game/engine"
	"github.com/wricardo/mcp-training/game2048/game/service"
	"github.com/wricardo/mcp-training/game2048/game/session"
)

// playedSession plays a few games through the real service and returns the
// directory and id of the persisted session.
func playedSession(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	persistence, err := session.NewFilePersistence(dir)
	if err != nil {
		t.Fatalf("NewFilePersistence failed: %v", err)
	}
	svc := service.NewGameService(session.NewManagerWithPersistence(persistence), engine.NewSeeded(9))
	ctx := context.Background()

	info, err := svc.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if _, err := svc.BulkMove(ctx, info.ID, []string{"left", "down", "right", "down", "up", "left"}, false); err != nil {
		t.Fatalf("BulkMove failed: %v", err)
	}
	if _, err := svc.BulkMove(ctx, info.ID, []string{"down", "left", "left"}, true); err != nil {
		t.Fatalf("BulkMove with reset failed: %v", err)
	}
	return dir, info.ID
}

func writeSessionFile(t *testing.T, dir, id string, mutate func(map[string]any)) string {
	t.Helper()
	path := filepath.Join(dir, id+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read session: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Failed to decode session: %v", err)
	}
	mutate(doc)
	out, _ := json.Marshal(doc)
	if err := os.WriteFile(path, out, 0644); err != nil {
		t.Fatalf("Failed to write session: %v", err)
	}
	return path
}

func hasError(result ValidationResult, fragment string) bool {
	for _, e := range result.Errors {
		if strings.Contains(e, fragment) {
			return true
		}
	}
	return false
}

func TestValidateSession_PlayedSession(t *testing.T) {
	dir, id := playedSession(t)

	result := validateSession(filepath.Join(dir, id+".json"))
	if !result.Valid {
		t.Fatalf("Expected valid session, got errors: %v", result.Errors)
	}
	if result.File != id+".json" {
		t.Errorf("Expected file name %s.json, got %s", id, result.File)
	}
	if !hasError(result, "✓ History: 9 moves across 2 games") {
		t.Errorf("Expected history summary, got %v", result.Errors)
	}
	if !hasError(result, "✓ Tiles: ") {
		t.Errorf("Expected tile summary, got %v", result.Errors)
	}
}

func TestValidateSession_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]any)
		want   string
	}{
		{
			name:   "best score below score",
			mutate: func(doc map[string]any) { doc["best_score"] = 0.0; doc["game_state"].(map[string]any)["score"] = 8.0 },
			want:   "best_score",
		},
		{
			name:   "game counter zero",
			mutate: func(doc map[string]any) { doc["game"] = 0.0 },
			want:   "game must be at least 1",
		},
		{
			name: "move count mismatch",
			mutate: func(doc map[string]any) {
				doc["game_state"].(map[string]any)["moves"] = 99.0
			},
			want: "State counts 99 moves",
		},
		{
			name: "renumbered history",
			mutate: func(doc map[string]any) {
				doc["move_history"].([]any)[0].(map[string]any)["move_number"] = 5.0
			},
			want: "move_number 5",
		},
		{
			name: "unknown direction",
			mutate: func(doc map[string]any) {
				doc["move_history"].([]any)[0].(map[string]any)["direction"] = "sideways"
			},
			want: "invalid direction",
		},
		{
			name: "game from the future",
			mutate: func(doc map[string]any) {
				doc["move_history"].([]any)[0].(map[string]any)["game"] = 7.0
			},
			want: "out of order",
		},
		{
			name: "score drift",
			mutate: func(doc map[string]any) {
				h := doc["move_history"].([]any)
				h[len(h)-1].(map[string]any)["score_after"] = 123456.0
			},
			want: "Last move scored 123456",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, id := playedSession(t)
			path := writeSessionFile(t, dir, id, tt.mutate)

			result := validateSession(path)
			if result.Valid {
				t.Fatal("Expected invalid session")
			}
			if !hasError(result, tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, result.Errors)
			}
		})
	}
}

func TestValidateSession_CorruptFiles(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"invalid JSON", `{"id": "ab12", invalid}`, "Invalid session"},
		{"missing id", `{"game": 1, "game_state": {"grid": [[0,0,0,0],[0,0,0,0],[0,0,0,0],[0,0,0,0]]}}`, "missing id"},
		{"bad tile", `{"id": "ab12", "game_state": {"grid": [[3,0,0,0],[0,0,0,0],[0,0,0,0],[0,0,0,0]]}}`, "Invalid session"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "ab12.json")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("Failed to write file: %v", err)
			}

			result := validateSession(path)
			if result.Valid {
				t.Fatal("Expected invalid session")
			}
			if !hasError(result, tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, result.Errors)
			}
		})
	}
}

func TestValidateSession_MissingFile(t *testing.T) {
	result := validateSession(filepath.Join(t.TempDir(), "nope.json"))
	if result.Valid || !hasError(result, "Failed to read file") {
		t.Errorf("Expected read failure, got %+v", result)
	}
}

func TestValidateSession_IDMismatch(t *testing.T) {
	dir, id := playedSession(t)
	renamed := filepath.Join(dir, "other.json")
	if err := os.Rename(filepath.Join(dir, id+".json"), renamed); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}

	result := validateSession(renamed)
	if result.Valid || !hasError(result, "does not match file name") {
		t.Errorf("Expected id mismatch, got %v", result.Errors)
	}
}

func TestValidateHistory_FreshGame(t *testing.T) {
	state := engine.NewSeeded(1).NewState()
	result := validateHistory(nil, 1, state)
	if !result.Valid {
		t.Errorf("Expected empty history to be valid, got %v", result.Errors)
	}
}

func TestFormatHistogram(t *testing.T) {
	got := formatHistogram([]engine.TileCount{{Value: 2, Count: 3}, {Value: 8, Count: 1}})
	if got != "2×3 8×1" {
		t.Errorf("Unexpected histogram %q", got)
	}
	if formatHistogram(nil) != "none" {
		t.Error("Expected none for an empty board")
	}
}

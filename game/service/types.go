package service

import (
	"time"

	"github.com/wricardo/mcp-training/game2048/game/engine"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string        `json:"id"`
	CreatedAt      time.Time     `json:"created_at"`
	LastAccessedAt time.Time     `json:"last_accessed_at"`
	Game           int           `json:"game"`
	BestScore      int           `json:"best_score"`
	GameState      *engine.State `json:"game_state"`
}

// MoveResult contains the result of a move operation
type MoveResult struct {
	Success       bool             `json:"success"` // the board changed
	Direction     string           `json:"direction"`
	Points        int              `json:"points"`
	Spawned       *engine.Position `json:"spawned,omitempty"`
	GameState     *engine.State    `json:"game_state"`
	Message       string           `json:"message"`
	Events        []GameEvent      `json:"events,omitempty"`
	PossibleMoves []string         `json:"possible_moves"`
}

// BulkMoveResult contains the result of multiple moves
type BulkMoveResult struct {
	// Summary
	MovesExecuted  int           `json:"moves_executed"` // moves applied, including ones that changed nothing
	MovesChanged   int           `json:"moves_changed"`
	RequestedMoves int           `json:"requested_moves"`
	Success        bool          `json:"success"`
	GameState      *engine.State `json:"game_state"`
	Events         []GameEvent   `json:"events"`
	StoppedReason  string        `json:"stopped_reason,omitempty"`
	StopReasonCode string        `json:"stop_reason_code,omitempty"` // invalid_direction|game_over
	StoppedOnMove  int           `json:"stopped_on_move,omitempty"`  // 1-based index of the move that caused stop
	Truncated      bool          `json:"truncated,omitempty"`
	Limit          int           `json:"limit,omitempty"`

	// Start/end snapshot
	StartScore   int `json:"start_score"`
	EndScore     int `json:"end_score"`
	ScoreDelta   int `json:"score_delta"`
	StartMaxTile int `json:"start_max_tile"`
	EndMaxTile   int `json:"end_max_tile"`

	// Per-step compact trace (only for this call)
	Steps []StepInfo `json:"steps,omitempty"`

	GameOver      bool     `json:"game_over"`
	Message       string   `json:"message,omitempty"`
	PossibleMoves []string `json:"possible_moves"`
}

// StepInfo is a compact record for each executed move in the bulk call
type StepInfo struct {
	Idx        int              `json:"idx"`
	Dir        string           `json:"dir"`
	Points     int              `json:"points"`
	Changed    bool             `json:"changed"`
	ScoreAfter int              `json:"score_after"`
	Spawned    *engine.Position `json:"spawned,omitempty"`
	GameOver   bool             `json:"game_over,omitempty"`
}

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	Type      string    `json:"type"` // "move", "merge", "blocked", "new_tile", "game_over", "reset"
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Points    int       `json:"points,omitempty"`
}

// MoveHistoryEntry records one applied move. MoveNumber counts every
// recorded move in the session, Game says which game it belongs to.
type MoveHistoryEntry struct {
	MoveNumber int              `json:"move_number"`
	Game       int              `json:"game"`
	Direction  string           `json:"direction"`
	Points     int              `json:"points"`
	Changed    bool             `json:"changed"`
	Spawned    *engine.Position `json:"spawned,omitempty"`
	ScoreAfter int              `json:"score_after"`
	MaxTile    int              `json:"max_tile"`
	GameOver   bool             `json:"game_over"`
	Timestamp  time.Time        `json:"timestamp"`
}

// HistoryOptions configures move history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated move history
type HistoryResponse struct {
	Moves       []MoveHistoryEntry `json:"moves"`
	TotalMoves  int                `json:"total_moves"`
	Page        int                `json:"page"`
	PageSize    int                `json:"page_size"`
	TotalPages  int                `json:"total_pages"`
	HasNext     bool               `json:"has_next"`
	HasPrevious bool               `json:"has_previous"`
}

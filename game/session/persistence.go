package session

import (
	"time"

	"github.com/wricardo/mcp-training/game2048/game/engine"
	"github.com/wricardo/mcp-training/game2048/game/service"
)

// SessionPersistence defines the interface for persisting sessions
type SessionPersistence interface {
	// Save persists a session to storage
	Save(session *service.Session) error

	// Load retrieves a session from storage by ID
	Load(id string) (*service.Session, error)

	// Delete removes a session from storage
	Delete(id string) error

	// ListAll returns all persisted session IDs
	ListAll() ([]string, error)

	// Exists checks if a session exists in storage
	Exists(id string) bool
}

// PersistedSessionData represents the JSON structure for persisted sessions
type PersistedSessionData struct {
	ID             string                     `json:"id"`
	CreatedAt      time.Time                  `json:"created_at"`
	LastAccessedAt time.Time                  `json:"last_accessed_at"`
	Game           int                        `json:"game"`
	BestScore      int                        `json:"best_score"`
	GameState      engine.State               `json:"game_state"`
	MoveHistory    []service.MoveHistoryEntry `json:"move_history"`
}

func toPersisted(s *service.Session) PersistedSessionData {
	history := s.History
	if history == nil {
		history = []service.MoveHistoryEntry{}
	}
	return PersistedSessionData{
		ID:             s.ID,
		CreatedAt:      s.CreatedAt,
		LastAccessedAt: s.LastAccessedAt,
		Game:           s.Game,
		BestScore:      s.BestScore,
		GameState:      s.State,
		MoveHistory:    history,
	}
}

func (d PersistedSessionData) session() *service.Session {
	return &service.Session{
		ID:             canonicalID(d.ID),
		State:          d.GameState,
		History:        d.MoveHistory,
		Game:           d.Game,
		BestScore:      d.BestScore,
		CreatedAt:      d.CreatedAt,
		LastAccessedAt: d.LastAccessedAt,
	}
}

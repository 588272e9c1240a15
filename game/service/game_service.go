package service

import (
	"context"
	"errors"
	"time"

	"github.com/wricardo/mcp-training/game2048/game/engine"
)

var (
	// ErrSessionNotFound is returned when no session matches the given ID.
	ErrSessionNotFound = errors.New("session not found")
	// ErrGameOver is returned by moves on a finished game when strict mode is on.
	ErrGameOver = errors.New("game is over")
	// ErrNoMoves is returned by BulkMove when the move list is empty.
	ErrNoMoves = errors.New("no moves provided")
)

// MaxBulkMoves caps the number of moves a single BulkMove call executes.
const MaxBulkMoves = 50

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game Operations
	Move(ctx context.Context, sessionID, direction string, reset bool) (*MoveResult, error)
	BulkMove(ctx context.Context, sessionID string, moves []string, reset bool) (*BulkMoveResult, error)
	Reset(ctx context.Context, sessionID string) (*engine.State, error)

	// Game State
	GetGameState(ctx context.Context, sessionID string) (*engine.State, error)
	GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, state engine.State) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id string, state engine.State) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// Session represents an active game session. Game counts the games started
// in the session; History spans all of them.
type Session struct {
	ID             string
	State          engine.State
	History        []MoveHistoryEntry
	Game           int
	BestScore      int
	CreatedAt      time.Time
	LastAccessedAt time.Time
}

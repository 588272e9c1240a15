package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wricardo/mcp-training/game2048/game/engine"
	"github.com/wricardo/mcp-training/game2048/telemetry"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	engine   *engine.Engine
	strict   bool
	logger   zerolog.Logger
	tracer   trace.Tracer
	mu       sync.RWMutex
}

// Option configures a game service
type Option func(*gameServiceImpl)

// WithStrictGameOver makes moves on a finished game fail with ErrGameOver
// instead of returning an unchanged outcome.
func WithStrictGameOver(strict bool) Option {
	return func(s *gameServiceImpl) { s.strict = strict }
}

// WithLogger sets the service logger
func WithLogger(logger zerolog.Logger) Option {
	return func(s *gameServiceImpl) { s.logger = logger }
}

// WithTracer sets the tracer used for service spans
func WithTracer(tracer trace.Tracer) Option {
	return func(s *gameServiceImpl) { s.tracer = tracer }
}

// NewGameService creates a new game service instance. All sessions share eng.
func NewGameService(sessions SessionManager, eng *engine.Engine, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions: sessions,
		engine:   eng,
		logger:   log.With().Str("component", "service").Logger(),
		tracer:   telemetry.Tracer("service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession creates a new game session
func (s *gameServiceImpl) CreateSession(ctx context.Context) (*SessionInfo, error) {
	_, span := s.tracer.Start(ctx, "GameService.CreateSession")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Let session manager generate a proper 4-character ID
	sess, err := s.sessions.Create("", s.engine.NewState())
	if err != nil {
		return nil, fail(span, fmt.Errorf("failed to create session: %w", err))
	}
	span.SetAttributes(attribute.String("session.id", sess.ID))
	s.logger.Info().Str("session", sess.ID).Msg("session created")

	return sessionInfo(sess), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	_, span := s.startSpan(ctx, "GameService.GetSession", sessionID)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, fail(span, err)
	}

	s.sessions.UpdateLastAccessed(sessionID)
	return sessionInfo(sess), nil
}

// ListSessions returns all active sessions, oldest first
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	_, span := s.tracer.Start(ctx, "GameService.ListSessions")
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, sessionInfo(sess))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	span.SetAttributes(attribute.Int("sessions.count", len(result)))
	return result, nil
}

// DeleteSession removes a session and its persisted copy
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	_, span := s.startSpan(ctx, "GameService.DeleteSession", sessionID)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return fail(span, fmt.Errorf("delete session %s: %w", sessionID, err))
	}
	s.logger.Info().Str("session", sessionID).Msg("session deleted")
	return nil
}

// Move executes a single move, optionally starting a new game first
func (s *gameServiceImpl) Move(ctx context.Context, sessionID, direction string, reset bool) (*MoveResult, error) {
	_, span := s.startSpan(ctx, "GameService.Move", sessionID)
	defer span.End()
	span.SetAttributes(attribute.String("move.direction", direction), attribute.Bool("move.reset", reset))

	// Reject bad input before touching the session
	dir, err := engine.ParseDirection(direction)
	if err != nil {
		return nil, fail(span, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, fail(span, err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	events := []GameEvent{}
	if reset {
		events = append(events, s.resetSession(sess))
	}

	wasOver := sess.State.GameOver
	if wasOver && s.strict {
		return nil, fail(span, fmt.Errorf("session %s: %w", sessionID, ErrGameOver))
	}

	out, err := s.advance(sess, dir)
	if err != nil {
		return nil, fail(span, err)
	}
	events = append(events, moveEvents(dir, out, sess.State, wasOver)...)

	span.SetAttributes(
		attribute.Int("move.points", out.Points),
		attribute.Bool("move.changed", out.Changed),
		attribute.Bool("game.over", sess.State.GameOver),
	)
	s.logger.Debug().
		Str("session", sessionID).
		Stringer("direction", dir).
		Int("points", out.Points).
		Int("score", sess.State.Score).
		Bool("changed", out.Changed).
		Msg("move applied")

	state := sess.State
	result := &MoveResult{
		Success:       out.Changed,
		Direction:     dir.String(),
		Points:        out.Points,
		Spawned:       out.Spawned,
		GameState:     &state,
		Message:       moveMessage(dir, out, state, wasOver),
		Events:        events,
		PossibleMoves: possibleMoves(state.Grid),
	}

	// Auto-save session after move
	s.save(sessionID, "move")

	return result, nil
}

// BulkMove executes up to MaxBulkMoves moves in order. It stops at the first
// invalid direction or once the game is over; moves before the stop stay applied.
func (s *gameServiceImpl) BulkMove(ctx context.Context, sessionID string, moves []string, reset bool) (*BulkMoveResult, error) {
	_, span := s.startSpan(ctx, "GameService.BulkMove", sessionID)
	defer span.End()
	span.SetAttributes(attribute.Int("bulk.requested", len(moves)), attribute.Bool("move.reset", reset))

	if len(moves) == 0 {
		return nil, fail(span, ErrNoMoves)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, fail(span, err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	result := &BulkMoveResult{
		RequestedMoves: len(moves),
		Success:        true,
		Events:         []GameEvent{},
	}
	if reset {
		result.Events = append(result.Events, s.resetSession(sess))
	}

	if len(moves) > MaxBulkMoves {
		moves = moves[:MaxBulkMoves]
		result.Truncated = true
		result.Limit = MaxBulkMoves
	}

	result.StartScore = sess.State.Score
	result.StartMaxTile = sess.State.Grid.MaxTile()

	for i, token := range moves {
		if sess.State.GameOver {
			result.Success = false
			result.StoppedReason = fmt.Sprintf("game over before move %d (%s)", i+1, token)
			result.StopReasonCode = "game_over"
			result.StoppedOnMove = i + 1
			break
		}

		dir, err := engine.ParseDirection(token)
		if err != nil {
			result.Success = false
			result.StoppedReason = err.Error()
			result.StopReasonCode = "invalid_direction"
			result.StoppedOnMove = i + 1
			break
		}

		out, err := s.advance(sess, dir)
		if err != nil {
			return nil, fail(span, err)
		}
		result.MovesExecuted++
		if out.Changed {
			result.MovesChanged++
		}
		result.Events = append(result.Events, moveEvents(dir, out, sess.State, false)...)
		result.Steps = append(result.Steps, StepInfo{
			Idx:        i + 1,
			Dir:        dir.String(),
			Points:     out.Points,
			Changed:    out.Changed,
			ScoreAfter: sess.State.Score,
			Spawned:    out.Spawned,
			GameOver:   sess.State.GameOver,
		})
	}

	// Finalize snapshots
	state := sess.State
	result.GameState = &state
	result.EndScore = state.Score
	result.EndMaxTile = state.Grid.MaxTile()
	result.ScoreDelta = state.Score - result.StartScore
	result.GameOver = state.GameOver
	result.PossibleMoves = possibleMoves(state.Grid)
	if state.GameOver {
		result.Message = fmt.Sprintf("Game over! Final score: %d, best tile %d", state.Score, result.EndMaxTile)
		if result.StopReasonCode == "" && result.MovesExecuted < len(moves) {
			result.StopReasonCode = "game_over"
		}
	} else {
		result.Message = fmt.Sprintf("Executed %d of %d moves, score %d", result.MovesExecuted, result.RequestedMoves, state.Score)
	}

	span.SetAttributes(
		attribute.Int("bulk.executed", result.MovesExecuted),
		attribute.Int("bulk.score_delta", result.ScoreDelta),
		attribute.String("bulk.stop_reason", result.StopReasonCode),
	)

	// Auto-save session after bulk moves
	s.save(sessionID, "bulk move")

	return result, nil
}

// Reset starts a new game in the session
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.State, error) {
	_, span := s.startSpan(ctx, "GameService.Reset", sessionID)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, fail(span, err)
	}

	s.sessions.UpdateLastAccessed(sessionID)
	s.resetSession(sess)

	// Auto-save session after reset
	s.save(sessionID, "reset")

	state := sess.State
	return &state, nil
}

// GetGameState retrieves the current game state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.State, error) {
	_, span := s.startSpan(ctx, "GameService.GetGameState", sessionID)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, fail(span, err)
	}

	s.sessions.UpdateLastAccessed(sessionID)
	state := sess.State
	return &state, nil
}

// GetMoveHistory returns paginated move history
func (s *gameServiceImpl) GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	_, span := s.startSpan(ctx, "GameService.GetMoveHistory", sessionID)
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, fail(span, err)
	}

	history := sess.History
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order != "asc" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := min(start+opts.Limit, total)

	moves := []MoveHistoryEntry{}
	if start < total {
		if opts.Order == "desc" {
			// Most recent first
			for i := total - 1 - start; i >= total-end; i-- {
				moves = append(moves, history[i])
			}
		} else {
			moves = append(moves, history[start:end]...)
		}
	}

	return &HistoryResponse{
		Moves:       moves,
		TotalMoves:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

func (s *gameServiceImpl) getSession(id string) (*Session, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", id, err)
	}
	return sess, nil
}

// advance applies one move to the session and records it. Moves on a
// finished game are not recorded.
func (s *gameServiceImpl) advance(sess *Session, dir engine.Direction) (engine.MoveOutcome, error) {
	wasOver := sess.State.GameOver
	next, out, err := s.engine.Advance(sess.State, dir)
	if err != nil {
		return out, err
	}
	sess.State = next
	if next.Score > sess.BestScore {
		sess.BestScore = next.Score
	}
	if wasOver {
		return out, nil
	}

	sess.History = append(sess.History, MoveHistoryEntry{
		MoveNumber: len(sess.History) + 1,
		Game:       sess.Game,
		Direction:  dir.String(),
		Points:     out.Points,
		Changed:    out.Changed,
		Spawned:    out.Spawned,
		ScoreAfter: next.Score,
		MaxTile:    next.Grid.MaxTile(),
		GameOver:   next.GameOver,
		Timestamp:  time.Now(),
	})
	return out, nil
}

func (s *gameServiceImpl) resetSession(sess *Session) GameEvent {
	sess.State = s.engine.NewState()
	sess.Game++
	return GameEvent{
		Type:      "reset",
		Message:   fmt.Sprintf("Game %d started", sess.Game),
		Timestamp: time.Now(),
	}
}

func (s *gameServiceImpl) save(sessionID, after string) {
	if err := s.sessions.Save(sessionID); err != nil {
		s.logger.Warn().Err(err).Str("session", sessionID).Msgf("failed to persist session after %s", after)
	}
}

func (s *gameServiceImpl) startSpan(ctx context.Context, name, sessionID string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("session.id", sessionID)))
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func sessionInfo(sess *Session) *SessionInfo {
	state := sess.State
	return &SessionInfo{
		ID:             sess.ID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		Game:           sess.Game,
		BestScore:      sess.BestScore,
		GameState:      &state,
	}
}

func possibleMoves(g engine.Grid) []string {
	moves := []string{}
	for _, d := range engine.PossibleMoves(g) {
		moves = append(moves, d.String())
	}
	return moves
}

// moveEvents generates events from a move
func moveEvents(dir engine.Direction, out engine.MoveOutcome, state engine.State, wasOver bool) []GameEvent {
	now := time.Now()
	if wasOver {
		return nil
	}
	if !out.Changed {
		events := []GameEvent{{
			Type:      "blocked",
			Message:   fmt.Sprintf("Nothing moved %s", dir),
			Timestamp: now,
		}}
		if out.Terminal {
			events = append(events, gameOverEvent(state, now))
		}
		return events
	}

	events := []GameEvent{{
		Type:      "move",
		Message:   fmt.Sprintf("Moved %s", dir),
		Timestamp: now,
	}}
	if out.Points > 0 {
		events = append(events, GameEvent{
			Type:      "merge",
			Message:   fmt.Sprintf("Merged tiles for %d points (score %d)", out.Points, state.Score),
			Timestamp: now,
			Points:    out.Points,
		})
	}
	if out.Spawned != nil {
		events = append(events, GameEvent{
			Type:      "new_tile",
			Message:   fmt.Sprintf("New %d at (%d,%d)", engine.SpawnValue, out.Spawned.Row, out.Spawned.Col),
			Timestamp: now,
		})
	}
	if out.Terminal {
		events = append(events, gameOverEvent(state, now))
	}
	return events
}

func gameOverEvent(state engine.State, at time.Time) GameEvent {
	return GameEvent{
		Type:      "game_over",
		Message:   fmt.Sprintf("Game over! Final score: %d, best tile %d", state.Score, state.Grid.MaxTile()),
		Timestamp: at,
	}
}

func moveMessage(dir engine.Direction, out engine.MoveOutcome, state engine.State, wasOver bool) string {
	switch {
	case wasOver:
		return fmt.Sprintf("Game is over (final score %d). Reset to play again", state.Score)
	case out.Terminal:
		return fmt.Sprintf("Game over! Final score: %d, best tile %d", state.Score, state.Grid.MaxTile())
	case !out.Changed:
		return fmt.Sprintf("Nothing moved %s", dir)
	case out.Points > 0:
		return fmt.Sprintf("Moved %s, merged for %d points", dir, out.Points)
	default:
		return fmt.Sprintf("Moved %s", dir)
	}
}

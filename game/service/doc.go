// Package service provides the business logic layer for the 2048 game server.
//
// The service package implements:
//   - Multi-session game management
//   - Move parsing, application and bulk execution
//   - Session lifecycle management
//   - Move history tracking
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session storage, retrieval, and lifecycle.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the grid engine. The engine is stateless apart from its random source, so a
// single *engine.Engine serves every session; each Session carries its own
// engine.State, best score and move history.
//
// Usage:
//
//	eng := engine.NewRandom()
//	sessionMgr := session.NewManager()
//	gameService := service.NewGameService(sessionMgr, eng)
//
//	// Create a new session
//	sessionInfo, err := gameService.CreateSession(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Execute moves
//	result, err := gameService.Move(ctx, sessionInfo.ID, "left", false)
//
// Finished games:
//
// A move on a finished game returns an unchanged result by default. With
// WithStrictGameOver(true) it fails with ErrGameOver instead.
package service

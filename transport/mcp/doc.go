// Package mcp exposes the 2048 game to AI agents over the Model Context
// Protocol.
//
// Client is a thin proxy: every tool call becomes a REST request against the
// api package, and the JSON reply is rendered as text with the board drawn by
// engine.Grid.String.
//
// Tools:
//   - create_session, list_sessions, get_session
//   - game_state: board, score, move count and the moves that would change it
//   - move: one slide, optional reset first
//   - bulk_move: up to service.MaxBulkMoves slides, with a per-step summary
//   - reset_game: start the next game in a session
//   - move_history: paginated history, newest first
//   - game_instructions: rules and strategy notes
//
// The same server is used for the HTTP /mcp endpoint and for stdio:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp

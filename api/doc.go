// Package api provides the HTTP REST API for the 2048 game server.
//
// Endpoints:
//
// Health:
//   - GET /api/health - Liveness probe
//
// Session Management:
//   - POST /api/sessions - Create new session with a fresh board
//   - GET /api/sessions - List sessions (?sort=created|accessed|score&order=asc|desc&limit=N)
//   - GET /api/sessions/{id} - Get specific session
//   - DELETE /api/sessions/{id} - Delete session
//
// Game Operations:
//   - GET /api/sessions/{id}/state - Current board, score and move count
//   - GET /api/sessions/{id}/board - Board rendered as plain text
//   - POST /api/sessions/{id}/move - {"direction": "left", "reset": false}
//   - POST /api/sessions/{id}/bulk-move - {"moves": ["left", "up"], "reset": false}
//   - POST /api/sessions/{id}/reset - Start a new game in the session
//   - GET /api/sessions/{id}/history - Move history (?page=1&limit=20&order=desc)
//
// WebSocket:
//   - GET /ws?session={id} - Stream state updates for a session
//
// Errors are returned as JSON:
//
//	{"error": "session ab12: session not found"}
//
// with 400 for bad directions or bodies, 404 for unknown sessions, 409 when a
// strict server rejects a move on a finished game and 500 otherwise.
package api

// Package websocket streams 2048 board updates to browsers and bots.
//
// The package uses a hub-and-spoke model where a central Hub owns all
// subscriptions in its Run loop. Each client connection gets a read pump and
// a write pump goroutine; the write pump also sends keepalive pings.
//
// Message Protocol:
//
// Every frame is one JSON Message:
//
//	{"session_id":"ab12","event":"state_update","game_state":{"grid":[[2,0,0,0],...],"score":0,"moves":0,"game_over":false}}
//
// Custom events carry a "data" field instead of "game_state". Incoming
// frames are read and discarded.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//
//	// in an HTTP handler, after checking the session exists
//	hub.ServeWS(w, r, sessionID, state)
//
//	// after every move
//	hub.BroadcastToSession(sessionID, result.GameState)
//
// Broadcasts never block the caller: when the hub's queue is full the
// message is dropped and logged. A client whose own buffer is full is
// disconnected.
package websocket

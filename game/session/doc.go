// Package session provides session management for the 2048 game server.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Unique session ID generation
//   - Session lifecycle management
//   - Session cleanup and expiration
//   - Optional JSON file persistence
//
// Core Types:
//
// Manager is the main session manager that handles all session operations.
// FilePersistence stores each session as <id>.json in a directory; loaded
// files are checked with engine.ValidateState before they are trusted.
//
// Session Identifiers:
//
// Generated IDs are 4 lowercase hex characters. Lookups are case-insensitive.
// Caller-supplied IDs may only use letters, digits, '-' and '_' since they
// double as file names.
//
// Usage:
//
//	persistence, err := session.NewFilePersistence("sessions")
//	if err != nil {
//		log.Fatal(err)
//	}
//	manager := session.NewManagerWithPersistence(persistence)
//	if err := manager.LoadPersistedSessions(); err != nil {
//		log.Fatal(err)
//	}
//
//	sess, err := manager.Create("", eng.NewState())
//
// Cleanup:
//
// CleanupExpiredSessions drops idle sessions from memory. Persisted copies
// stay on disk and are reloaded on the next Get.
package session

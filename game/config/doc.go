// Package config provides process configuration for the 2048 game server.
//
// The config package handles:
//   - Loading a .env file when one is present
//   - Parsing typed settings from environment variables
//   - Validating the result before the server starts
//
// Environment Variables:
//
// Server settings use the GAME2048_ prefix (GAME2048_PORT, GAME2048_HOST,
// GAME2048_SESSIONS_DIR, ...). Tunnel settings keep the names ngrok users
// already know (NGROK_ENABLED, NGROK_AUTHTOKEN, NGROK_DOMAIN).
//
// Usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(cfg.Addr())
//
// Command-line flags are applied on top of the loaded values by the main
// package, so a flag always wins over the environment.
package config

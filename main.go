// Command game2048 starts the 2048 game server.
//
// It supports two modes:
//  1. "serve" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Settings come from GAME2048_* environment variables (and an optional .env
// file); command line flags override them.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/mcp-training/game2048/api"
	"github.com/wricardo/mcp-training/game2048/game/config"
	"github.com/wricardo/mcp-training/game2048/game/engine"
	"github.com/wricardo/mcp-training/game2048/game/service"
	"github.com/wricardo/mcp-training/game2048/game/session"
	"github.com/wricardo/mcp-training/game2048/logging"
	"github.com/wricardo/mcp-training/game2048/telemetry"
	"github.com/wricardo/mcp-training/game2048/transport/mcp"
	"github.com/wricardo/mcp-training/game2048/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "2048 Game Server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		log.Fatal().Err(err).Msg("exiting")
	}
}

// newCommand builds the command tree. The root command runs serve.
func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "game2048",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "env-file", Usage: "Optional .env file to load before reading GAME2048_* variables", Value: ".env"},
			&cli.StringFlag{Name: "host", Usage: "HTTP server host"},
			&cli.IntFlag{Name: "port", Usage: "HTTP server port"},
			&cli.StringFlag{Name: "sessions-dir", Usage: "Directory for persisted sessions"},
			&cli.BoolFlag{Name: "no-persist", Usage: "Keep sessions in memory only"},
			&cli.Uint64Flag{Name: "seed", Usage: "Seed for tile placement (0 picks a random seed)"},
			&cli.StringFlag{Name: "log-level", Usage: "Log level (debug, info, warn, error)"},
			&cli.BoolFlag{Name: "pretty", Usage: "Human-readable console logs"},
			&cli.BoolFlag{Name: "strict", Usage: "Reject moves on finished games with 409"},
			&cli.BoolFlag{Name: "telemetry", Usage: "Export traces over OTLP/HTTP"},
			&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel"},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token (or NGROK_AUTHTOKEN)"},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)"},
		},
		Action: runServe,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run HTTP server with API, WebSocket, and MCP endpoint",
				Action: runServe,
			},
			{
				Name:    "mcp",
				Aliases: []string{"stdio-mcp"},
				Usage:   "Run MCP stdio server, reusing a running API server when one answers",
				Action:  runStdioMCP,
			},
		},
	}
}

// loadConfig reads the environment and applies any flags that were set.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	var files []string
	if f := cmd.String("env-file"); f != "" {
		files = append(files, f)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return nil, err
	}

	if cmd.IsSet("host") {
		cfg.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Port = cmd.Int("port")
	}
	if cmd.IsSet("sessions-dir") {
		cfg.SessionsDir = cmd.String("sessions-dir")
	}
	if cmd.Bool("no-persist") {
		cfg.Persist = false
	}
	if cmd.IsSet("seed") {
		cfg.Seed = cmd.Uint64("seed")
	}
	if cmd.IsSet("log-level") {
		cfg.LogLevel = cmd.String("log-level")
	}
	if cmd.Bool("pretty") {
		cfg.LogPretty = true
	}
	if cmd.Bool("strict") {
		cfg.StrictGameOver = true
	}
	if cmd.Bool("telemetry") {
		cfg.Telemetry = true
	}
	if cmd.Bool("ngrok") {
		cfg.Ngrok.Enabled = true
	}
	if cmd.IsSet("ngrok-auth") {
		cfg.Ngrok.AuthToken = cmd.String("ngrok-auth")
	}
	if cmd.IsSet("ngrok-domain") {
		cfg.Ngrok.Domain = cmd.String("ngrok-domain")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// app holds everything a running mode needs
type app struct {
	cfg      *config.Config
	sessions *session.Manager
	service  service.GameService
}

// setup loads configuration and wires logging, tracing, the engine, the
// session store and the game service. The returned shutdown flushes traces
// and saves sessions.
func setup(ctx context.Context, cmd *cli.Command) (*app, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	logging.Setup(cfg.LogLevel, cfg.LogPretty)
	log.Info().Str("version", Version).Str("command", cmd.Name).Msgf("Starting %s", AppName)

	var shutdownTracing func(context.Context) error
	if cfg.Telemetry {
		shutdownTracing, err = telemetry.Setup(ctx, Version)
		if err != nil {
			log.Warn().Err(err).Msg("telemetry disabled")
		}
	}

	a, err := newApp(cfg)
	if err != nil {
		return nil, nil, err
	}

	shutdown := func() {
		if err := a.sessions.SaveAllSessions(); err != nil {
			log.Warn().Err(err).Msg("failed to save sessions on shutdown")
		}
		if shutdownTracing != nil {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(flushCtx); err != nil {
				log.Warn().Err(err).Msg("failed to flush traces")
			}
		}
	}
	return a, shutdown, nil
}

// newApp wires the engine, session manager and game service for cfg.
func newApp(cfg *config.Config) (*app, error) {
	var eng *engine.Engine
	if cfg.Seed != 0 {
		eng = engine.NewSeeded(cfg.Seed)
		log.Info().Uint64("seed", cfg.Seed).Msg("using seeded tile placement")
	} else {
		eng = engine.NewRandom()
	}

	var sessionManager *session.Manager
	if cfg.Persist {
		persistence, err := session.NewFilePersistence(cfg.SessionsDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create session persistence: %w", err)
		}
		sessionManager = session.NewManagerWithPersistence(persistence)

		// Load persisted sessions on startup
		if err := sessionManager.LoadPersistedSessions(); err != nil {
			log.Warn().Err(err).Msg("failed to load persisted sessions")
		}
	} else {
		sessionManager = session.NewManager()
	}

	gameService := service.NewGameService(sessionManager, eng,
		service.WithStrictGameOver(cfg.StrictGameOver),
	)

	return &app{cfg: cfg, sessions: sessionManager, service: gameService}, nil
}

// newHandler mounts the REST API, the WebSocket endpoint and /mcp on one router.
func newHandler(gameService service.GameService, hub *websocket.Hub, mcpClient *mcp.Client) http.Handler {
	apiServer := api.NewServer(gameService, hub)
	if mcpClient != nil {
		apiServer.Router().Handle("/mcp", mcpHandler(mcpClient)).Methods("POST")
	}
	return apiServer
}

// mcpHandler answers single JSON-RPC messages posted to /mcp
func mcpHandler(mcpClient *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// runServe starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled, it also provisions a public tunnel.
func runServe(ctx context.Context, cmd *cli.Command) error {
	a, shutdown, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer shutdown()
	cfg := a.cfg

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Create WebSocket hub
	hub := websocket.NewHub()
	go hub.Run(ctx)

	addr := cfg.Addr()
	handler := newHandler(a.service, hub, mcp.NewClient(cfg.BaseURL()))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	errc := make(chan error, 1)

	// Start regular HTTP server
	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Info().
			Str("addr", addr).
			Str("api", fmt.Sprintf("http://%s/api", addr)).
			Str("websocket", fmt.Sprintf("ws://%s/ws?session=<session_id>", addr)).
			Str("mcp", fmt.Sprintf("http://%s/mcp", addr)).
			Msg("HTTP server listening")

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	// Start ngrok tunnel if enabled
	if cfg.Ngrok.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, cfg.Ngrok, handler)
		}()
	}

	// Background maintenance
	go sessionCleanupRoutine(ctx, a.sessions, cfg.CleanupInterval, cfg.SessionTTL)
	if cfg.Persist {
		go filesystemSyncRoutine(ctx, a.sessions, cfg.SyncInterval)
	}

	// Wait for shutdown signal or a server failure
	var runErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down...")
	case runErr = <-errc:
	}
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("HTTP server shutdown error")
	}

	// Wait for all goroutines to finish
	wg.Wait()
	log.Info().Msg("Server stopped")
	return runErr
}

// runNgrok serves handler through an ngrok tunnel until ctx is done
func runNgrok(ctx context.Context, cfg config.NgrokConfig, handler http.Handler) {
	if cfg.AuthToken == "" {
		log.Warn().Msg("Ngrok enabled but no auth token provided (use --ngrok-auth or NGROK_AUTHTOKEN)")
		return
	}

	log.Info().Msg("Starting ngrok tunnel...")

	// Configure ngrok endpoint
	var tunnel ngrokConfig.Tunnel
	if cfg.Domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.Domain))
		log.Info().Str("domain", cfg.Domain).Msg("Using custom ngrok domain")
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(cfg.AuthToken))
	if err != nil {
		log.Error().Err(err).Msg("Failed to start ngrok tunnel")
		return
	}

	ngrokURL := tun.URL()
	log.Info().
		Str("url", ngrokURL).
		Str("api", ngrokURL+"/api").
		Str("mcp", ngrokURL+"/mcp").
		Msg("Ngrok tunnel established")

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close ngrok tunnel")
		}
	}()

	// Serve HTTP through ngrok tunnel
	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		log.Error().Err(err).Msg("Ngrok server error")
	}
	log.Info().Msg("Ngrok tunnel closed")
}

// sessionCleanupRoutine periodically removes sessions that have not been accessed
// within ttl.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, every, ttl time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			manager.CleanupExpiredSessions(ttl)
		}
	}
}

// filesystemSyncRoutine periodically reconciles memory with the sessions directory.
func filesystemSyncRoutine(ctx context.Context, manager *session.Manager, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			syncSessions(manager)
		}
	}
}

// syncSessions drops sessions whose files were deleted and picks up new files.
func syncSessions(manager *session.Manager) {
	persistence := manager.Persistence()
	if persistence == nil {
		return
	}

	pruned := 0
	for _, s := range manager.List() {
		if !persistence.Exists(s.ID) {
			// File deleted, remove from memory
			if err := manager.DeleteFromMemory(s.ID); err == nil {
				pruned++
			}
		}
	}
	if pruned > 0 {
		log.Info().Int("pruned", pruned).Msg("filesystem sync removed orphaned sessions from memory")
	}

	if err := manager.LoadPersistedSessions(); err != nil {
		log.Warn().Err(err).Msg("filesystem sync failed to load sessions")
	}
}

// runStdioMCP runs an MCP stdio server.
// It reuses a running API server at the configured address; if none answers, it
// starts an internal HTTP API on a random loopback port and targets that.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	a, shutdown, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer shutdown()

	baseURL := a.cfg.BaseURL()
	if !apiAvailable(ctx, baseURL) {
		log.Info().Str("url", baseURL).Msg("No external API server found, starting internal HTTP server")

		internalURL, stopInternal, err := startInternalServer(ctx, a.service)
		if err != nil {
			return err
		}
		defer stopInternal()
		baseURL = internalURL
	} else {
		log.Info().Str("url", baseURL).Msg("External API server found, using it for MCP")
	}

	mcpClient := mcp.NewClient(baseURL)
	log.Info().Str("api", baseURL).Msg("MCP stdio server ready")

	// Run MCP stdio server (blocking)
	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

// apiAvailable reports whether a game API answers its health check at baseURL
func apiAvailable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/health", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// startInternalServer serves the API on a random loopback port and returns its base URL.
func startInternalServer(ctx context.Context, gameService service.GameService) (string, func(), error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, fmt.Errorf("failed to get available port: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	hub := websocket.NewHub()
	go hub.Run(ctx)

	httpServer := &http.Server{Handler: newHandler(gameService, hub, nil)}
	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Internal HTTP server error")
		}
	}()

	stop := func() {
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}

	baseURL := "http://" + listener.Addr().String()
	log.Info().Str("url", baseURL).Msg("Internal HTTP server started for MCP stdio")
	return baseURL, stop, nil
}

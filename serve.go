package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/mcp-training/gridworld/api"
	"github.com/wricardo/mcp-training/gridworld/game/config"
	"github.com/wricardo/mcp-training/gridworld/game/engine"
	"github.com/wricardo/mcp-training/gridworld/game/service"
	"github.com/wricardo/mcp-training/gridworld/game/session"
	"github.com/wricardo/mcp-training/gridworld/render"
	"github.com/wricardo/mcp-training/gridworld/transport/mcp"
	"github.com/wricardo/mcp-training/gridworld/transport/websocket"
)

// services bundles what the HTTP surfaces are built from
type services struct {
	game     service.GameService
	sessions *session.Manager
	renderer *render.Renderer
}

// initializeServices wires session/config managers, the game service and the
// optional frame renderer.
func initializeServices(configDir, assetDir string) (*services, error) {
	configManager, err := config.NewManager(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	sessionManager := session.NewManager()

	s := &services{
		game:     service.NewGameService(sessionManager, configManager),
		sessions: sessionManager,
	}

	if assetDir != "" {
		assets, err := render.LoadAssets(assetDir, engine.DefaultAssetNames)
		if err != nil {
			return nil, fmt.Errorf("failed to load sprites: %w", err)
		}
		if s.renderer, err = render.NewRenderer(0, assets); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// newHandler combines the REST API, the WebSocket feed and the /mcp endpoint
func newHandler(s *services, hub *websocket.Hub, baseURL string) http.Handler {
	var opts []api.Option
	if s.renderer != nil {
		opts = append(opts, api.WithRenderer(s.renderer))
	}
	apiServer := api.NewServer(s.game, hub, opts...)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.Handle("/mcp", mcpHandler(mcp.NewClient(baseURL)))
	return mainRouter
}

// mcpHandler answers JSON-RPC requests posted to /mcp
func mcpHandler(client *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := client.GetMCPServer().HandleMessage(r.Context(), body)

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
	setupLogging(cmd)
	log.Printf("Starting %s v%s", AppName, Version)

	s, err := initializeServices(cmd.String("config-dir"), cmd.String("asset-dir"))
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := websocket.NewHub()
	go hub.Run(ctx)

	ttl, interval := cmd.Duration("session-ttl"), cmd.Duration("cleanup-interval")
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if interval <= 0 {
		interval = time.Hour
	}
	go sessionCleanupRoutine(ctx, s.sessions, interval, ttl)

	addr := fmt.Sprintf("%s:%d", cmd.String("host"), int(cmd.Int("port")))
	handler := newHandler(s, hub, "http://"+addr)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	errs := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Printf("HTTP server listening on %s", addr)
		log.Printf("REST API: http://%s/api", addr)
		log.Printf("WebSocket: ws://%s/ws?session=<session_id>", addr)
		log.Printf("MCP endpoint: http://%s/mcp", addr)
		if s.renderer != nil {
			log.Printf("Frames: http://%s/api/sessions/<session_id>/frame.png", addr)
		}

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errs <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	if cmd.Bool("ngrok") {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, handler, cmd.String("ngrok-auth"), cmd.String("ngrok-domain"))
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Println("Received shutdown signal. Shutting down...")
	case runErr = <-errs:
		stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	wg.Wait()
	log.Println("Server stopped")
	return runErr
}

// runNgrok serves handler through an ngrok tunnel until ctx is done
func runNgrok(ctx context.Context, handler http.Handler, authToken, domain string) {
	if authToken == "" {
		log.Println("WARNING: Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	log.Println("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		log.Printf("Using custom ngrok domain: %s", domain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		log.Printf("Failed to start ngrok tunnel: %v", err)
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Printf("Failed to close ngrok tunnel: %v", err)
		}
	}()

	ngrokURL := tun.URL()
	log.Printf("🚀 Ngrok tunnel established: %s", ngrokURL)
	log.Printf("  REST API (ngrok): %s/api", ngrokURL)
	log.Printf("  WebSocket (ngrok): %s/ws?session=<session_id>", ngrokURL)
	log.Printf("  MCP endpoint (ngrok): %s/mcp", ngrokURL)

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed {
		log.Printf("Ngrok server error: %v", err)
	}
	log.Println("Ngrok tunnel closed")
}

// sessionCleanupRoutine periodically removes sessions that have not been accessed
// within ttl.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(ttl); removed > 0 {
				log.Printf("Cleaned up %d expired sessions", removed)
			}
		}
	}
}

// apiReachable reports whether a REST API answers health checks at baseURL
func apiReachable(baseURL string) bool {
	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(baseURL + "/api/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// runMCP runs an MCP stdio server. It reuses the external API at --api-url
// when it is reachable; otherwise it starts an internal HTTP API on a random
// loopback port and targets that.
func runMCP(ctx context.Context, cmd *cli.Command) error {
	setupLogging(cmd)
	// stdout belongs to the MCP protocol
	log.SetOutput(os.Stderr)

	externalURL := cmd.String("api-url")
	log.Printf("Checking for external API server at %s...", externalURL)

	baseURL := externalURL
	if apiReachable(externalURL) {
		log.Printf("External API server found at %s, using it for MCP", externalURL)
	} else {
		log.Printf("No external API server found, starting internal HTTP server")

		s, err := initializeServices(cmd.String("config-dir"), cmd.String("asset-dir"))
		if err != nil {
			return fmt.Errorf("failed to initialize services: %w", err)
		}

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}
		internalAddr := listener.Addr().String()
		baseURL = "http://" + internalAddr

		hub := websocket.NewHub()
		go hub.Run(ctx)

		httpServer := &http.Server{Handler: newHandler(s, hub, baseURL)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
				log.Printf("Internal HTTP server error: %v", err)
			}
		}()
		defer httpServer.Close()

		log.Printf("Internal HTTP server on %s for MCP stdio", internalAddr)
	}

	mcpClient := mcp.NewClient(baseURL)
	log.Printf("MCP stdio server ready (API: %s)", baseURL)

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

// Command gobblets starts the Gobblets game server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "mcp" – runs an MCP stdio server against a running API, or an internal one if none answers
//
// Flags control host/port, preset and result directories, clock cadence,
// debug logging and optional ngrok tunneling for easy external access
// during development. Every flag can also be set from the environment or a
// .env file.
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
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/gobblets/api"
	"github.com/wricardo/gobblets/game/clock"
	"github.com/wricardo/gobblets/game/config"
	"github.com/wricardo/gobblets/game/engine"
	"github.com/wricardo/gobblets/game/service"
	"github.com/wricardo/gobblets/game/session"
	"github.com/wricardo/gobblets/transport/mcp"
	"github.com/wricardo/gobblets/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Gobblets Server"
)

const (
	janitorInterval = time.Hour
	shutdownTimeout = 10 * time.Second
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", err)
	}

	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newCommand builds the command tree. Root flags are shared by every
// subcommand.
func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "gobblets",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "host",
				Value:   "localhost",
				Usage:   "HTTP server host",
				Sources: cli.EnvVars("HOST"),
			},
			&cli.IntFlag{
				Name:    "port",
				Value:   8080,
				Usage:   "HTTP server port",
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "configs",
				Usage:   "Directory containing time-control presets",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.StringFlag{
				Name:    "default-config",
				Usage:   "Preset used when a session is created without one",
				Sources: cli.EnvVars("DEFAULT_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "results-dir",
				Value:   "results",
				Usage:   "Directory where finished matches are archived",
				Sources: cli.EnvVars("RESULTS_DIR"),
			},
			&cli.DurationFlag{
				Name:    "tick",
				Value:   clock.DefaultInterval,
				Usage:   "Clock cadence for timed games",
				Sources: cli.EnvVars("TICK_INTERVAL"),
			},
			&cli.DurationFlag{
				Name:    "preview-delay",
				Value:   engine.DefaultPreviewDelay,
				Usage:   "How long a cell must be hovered before its stack is shown",
				Sources: cli.EnvVars("PREVIEW_DELAY"),
			},
			&cli.DurationFlag{
				Name:    "session-max-age",
				Value:   24 * time.Hour,
				Usage:   "Idle time after which a session is closed",
				Sources: cli.EnvVars("SESSION_MAX_AGE"),
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "Enable debug logging",
				Sources: cli.EnvVars("DEBUG"),
			},
			&cli.BoolFlag{
				Name:    "ngrok",
				Usage:   "Enable ngrok tunnel",
				Sources: cli.EnvVars("NGROK_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "ngrok-auth",
				Usage:   "Ngrok auth token",
				Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "ngrok-domain",
				Usage:   "Custom ngrok domain (optional)",
				Sources: cli.EnvVars("NGROK_DOMAIN"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint",
				Action:  runServer,
			},
			{
				Name:    "mcp",
				Aliases: []string{"stdio-mcp", "mcp-stdio"},
				Usage:   "Run MCP stdio server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "api-url",
						Value:   "http://localhost:8080",
						Usage:   "REST API to proxy; an internal one starts if it does not answer",
						Sources: cli.EnvVars("GOBBLETS_API_URL"),
					},
				},
				Action: runMCP,
			},
		},
		Action: runServer,
	}
}

// options is the parsed flag set shared by both modes
type options struct {
	host          string
	port          int
	configDir     string
	defaultConfig string
	resultsDir    string
	tick          time.Duration
	previewDelay  time.Duration
	sessionMaxAge time.Duration
	debug         bool
}

func optionsFrom(cmd *cli.Command) options {
	return options{
		host:          cmd.String("host"),
		port:          cmd.Int("port"),
		configDir:     cmd.String("config-dir"),
		defaultConfig: cmd.String("default-config"),
		resultsDir:    cmd.String("results-dir"),
		tick:          cmd.Duration("tick"),
		previewDelay:  cmd.Duration("preview-delay"),
		sessionMaxAge: cmd.Duration("session-max-age"),
		debug:         cmd.Bool("debug"),
	}
}

func (o options) addr() string {
	return fmt.Sprintf("%s:%d", o.host, o.port)
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// app holds the wired services of one process
type app struct {
	logger   *zap.Logger
	configs  *config.Manager
	sessions *session.Manager
	hub      *websocket.Hub
	service  service.GameService
}

// newApp wires the config, session and result managers, the game service
// and the websocket hub.
func newApp(opts options, logger *zap.Logger) (*app, error) {
	configs, err := config.NewManager(opts.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}
	if opts.defaultConfig != "" {
		if err := configs.SetDefault(opts.defaultConfig); err != nil {
			return nil, fmt.Errorf("failed to set default config: %w", err)
		}
	}

	results, err := session.NewFileResultStore(opts.resultsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create result store: %w", err)
	}

	sessions := session.NewManager(session.WithLogger(logger.Named("sessions")))

	hub := websocket.NewHub(
		websocket.WithLogger(logger.Named("ws")),
		websocket.WithPreviewDelay(opts.previewDelay),
	)

	svc := service.NewGameService(sessions, configs,
		service.WithLogger(logger.Named("service")),
		service.WithNotifier(hub),
		service.WithClockInterval(opts.tick),
		service.WithResultStore(results),
	)
	hub.SetService(svc)

	return &app{
		logger:   logger,
		configs:  configs,
		sessions: sessions,
		hub:      hub,
		service:  svc,
	}, nil
}

// routes mounts the REST API and WebSocket handlers, plus an /mcp endpoint
// whose tools proxy to baseURL
func (a *app) routes(baseURL string) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", api.NewServer(a.service, a.hub, api.WithLogger(a.logger.Named("api"))))
	mux.HandleFunc("/mcp", mcpHandler(mcp.NewClient(baseURL)))
	return mux
}

// mcpHandler serves single JSON-RPC messages over HTTP POST
func mcpHandler(client *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
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

// runServer starts the HTTP server with REST API, WebSocket hub and the /mcp
// endpoint, and runs until SIGINT or SIGTERM.
func runServer(ctx context.Context, cmd *cli.Command) error {
	opts := optionsFrom(cmd)

	logger, err := newLogger(opts.debug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	a, err := newApp(opts, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := opts.addr()
	handler := a.routes("http://" + addr)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("starting",
		zap.String("app", AppName),
		zap.String("version", Version),
		zap.String("config_dir", opts.configDir),
		zap.String("results_dir", opts.resultsDir),
		zap.Duration("tick", opts.tick),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.hub.Run(gctx)
	})

	g.Go(func() error {
		return a.sessions.RunJanitor(gctx, janitorInterval, opts.sessionMaxAge)
	})

	g.Go(func() error {
		return a.reloadOnHangup(gctx, opts.defaultConfig)
	})

	g.Go(func() error {
		logger.Info("HTTP server listening",
			zap.String("api", "http://"+addr+"/api"),
			zap.String("websocket", "ws://"+addr+"/ws?session=<session_id>"),
			zap.String("mcp", "http://"+addr+"/mcp"),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if cmd.Bool("ngrok") {
		g.Go(func() error {
			return serveNgrok(gctx, cmd, handler, logger.Named("ngrok"))
		})
	}

	err = g.Wait()
	a.sessions.CloseAll()
	logger.Info("server stopped")
	return err
}

// reloadOnHangup drops the preset cache on SIGHUP so edited files are read
// again by the next session
func (a *app) reloadOnHangup(ctx context.Context, defaultConfig string) error {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-hup:
			a.reload(defaultConfig)
		}
	}
}

func (a *app) reload(defaultConfig string) {
	if err := a.configs.RefreshCache(); err != nil {
		a.logger.Error("failed to reload presets", zap.Error(err))
		return
	}
	if defaultConfig != "" {
		if err := a.configs.SetDefault(defaultConfig); err != nil {
			a.logger.Error("failed to restore default preset", zap.String("config", defaultConfig), zap.Error(err))
			return
		}
	}
	a.logger.Info("presets reloaded", zap.String("default", a.configs.GetDefault().Name))
}

// serveNgrok exposes handler through an ngrok tunnel until ctx is done. A
// tunnel that cannot be established is logged, not fatal.
func serveNgrok(ctx context.Context, cmd *cli.Command, handler http.Handler, logger *zap.Logger) error {
	authToken := cmd.String("ngrok-auth")
	if authToken == "" {
		logger.Warn("ngrok enabled but no auth token provided (use --ngrok-auth or NGROK_AUTHTOKEN)")
		return nil
	}

	var tunnel ngrokConfig.Tunnel
	if domain := cmd.String("ngrok-domain"); domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		logger.Info("using custom ngrok domain", zap.String("domain", domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		logger.Error("failed to start ngrok tunnel", zap.Error(err))
		return nil
	}

	ngrokURL := tun.URL()
	logger.Info("ngrok tunnel established",
		zap.String("url", ngrokURL),
		zap.String("api", ngrokURL+"/api"),
		zap.String("websocket", ngrokURL+"/ws?session=<session_id>"),
		zap.String("mcp", ngrokURL+"/mcp"),
	)

	srv := &http.Server{Handler: handler}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	if err := srv.Serve(tun); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("ngrok server error", zap.Error(err))
	}
	logger.Info("ngrok tunnel closed")
	return nil
}

// apiAvailable reports whether a Gobblets API answers at baseURL
func apiAvailable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
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

// runMCP runs an MCP stdio server. It reuses the API at --api-url when it
// answers; otherwise it starts an internal API on a random loopback port.
// Logs go to stderr so stdout stays reserved for the protocol.
func runMCP(ctx context.Context, cmd *cli.Command) error {
	opts := optionsFrom(cmd)

	logger, err := newLogger(opts.debug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	baseURL := cmd.String("api-url")
	if apiAvailable(ctx, baseURL) {
		logger.Info("using external API server", zap.String("url", baseURL))
		return mcp.NewClient(baseURL).Serve()
	}

	logger.Info("no external API server found, starting internal HTTP server")

	a, err := newApp(opts, logger)
	if err != nil {
		return err
	}
	defer a.sessions.CloseAll()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to get available port: %w", err)
	}
	internalURL := "http://" + listener.Addr().String()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.hub.Run(ctx)

	httpServer := &http.Server{Handler: a.routes(internalURL)}
	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("internal HTTP server error", zap.Error(err))
		}
	}()
	defer httpServer.Close()

	logger.Info("MCP stdio server ready", zap.String("api", internalURL))
	return mcp.NewClient(internalURL).Serve()
}

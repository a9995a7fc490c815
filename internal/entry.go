// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	slogmulti "github.com/samber/slog-multi"
	"golang.org/x/sync/errgroup"

	"github.com/starford/saffi/internal/api"
	"github.com/starford/saffi/internal/content"
	"github.com/starford/saffi/internal/mcpserver"
	"github.com/starford/saffi/internal/pageservice"
	"github.com/starford/saffi/internal/site"
	"github.com/starford/saffi/internal/sse"
)

const defaultVersion = "dev"

func newApplication(opts []Option) (*application, error) {
	app := &application{version: defaultVersion, logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// newLogger builds the JSON logger. When a log file is configured every
// record is also written there.
func newLogger(cfg ApplicationConfig, out io.Writer) (*slog.Logger, func() error, error) {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	console := slog.NewJSONHandler(out, opts)
	if cfg.LogFile == "" {
		return slog.New(console), func() error { return nil }, nil
	}

	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return slog.New(slogmulti.Fanout(console, slog.NewJSONHandler(f, opts))), f.Close, nil
}

func bootstrapConfig(cfg *Config) content.BootstrapConfig {
	return content.BootstrapConfig{
		Root:       cfg.Content.Path,
		ThemesPath: cfg.Content.ThemesPath,
		Drafts:     cfg.Content.Drafts,
		LightTheme: cfg.Content.LightTheme,
		DarkTheme:  cfg.Content.DarkTheme,
		Debounce:   cfg.Watcher.Debounce,
		Buffer:     cfg.Watcher.Buffer,
	}
}

// newRouter mounts the site, the JSON API, health checks and optionally MCP.
// Everything besides content lives under an underscore prefix.
func newRouter(state *content.State, broker *sse.Broker, mcp *mcpserver.Server, logger *slog.Logger) (http.Handler, error) {
	s, err := site.New(state.Content, site.Options{CSS: state.Theme.CSS(), Events: broker}, logger)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/_health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, "ok")
	})
	r.Get("/_health/ready", func(w http.ResponseWriter, _ *http.Request) {
		if !state.Watcher.Healthy() {
			writeStatus(w, http.StatusServiceUnavailable, "watcher stopped")
			return
		}
		writeStatus(w, http.StatusOK, "ok")
	})

	r.Mount("/_api", api.NewRouter(pageservice.NewService(state.Content), broker))
	if mcp != nil {
		r.Handle("/_mcp", mcp.HTTPHandler())
	}
	r.Mount("/", s.Routes())

	return r, nil
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = fmt.Fprintf(w, `{"status":%q}`, status)
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger, closeLog, err := newLogger(cfg.App, app.logOutput)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("content_path", cfg.Content.Path),
		slog.String("themes_path", cfg.Content.ThemesPath),
		slog.Bool("drafts", cfg.Content.Drafts),
		slog.Bool("mcp", cfg.MCP.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	broker := sse.NewBroker(0)
	defer broker.Close()

	g, gCtx := errgroup.WithContext(ctx)

	state, err := content.Bootstrap(gCtx, bootstrapConfig(cfg), logger, broker.PublishContentEvent)
	if err != nil {
		return err
	}
	defer state.Close()
	logger.Info("Content loaded", slog.Int("nodes", state.Content.Len()))

	var mcp *mcpserver.Server
	if cfg.MCP.Enabled {
		mcp = mcpserver.New(pageservice.NewService(state.Content), app.version)
	}
	handler, err := newRouter(state, broker, mcp, logger)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// SSE streams never finish on their own.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP loads and watches the content root and serves MCP on stdin/stdout
// until the client disconnects. Logs go to stderr unless redirected.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}

	logger, closeLog, err := newLogger(app.config.App, app.logOutput)
	if err != nil {
		return err
	}
	defer closeLog()

	state, err := content.Bootstrap(ctx, bootstrapConfig(app.config), logger, nil)
	if err != nil {
		return err
	}
	defer state.Close()

	logger.Info("Serving MCP on stdio", slog.Int("nodes", state.Content.Len()))
	return mcpserver.New(pageservice.NewService(state.Content), app.version).ServeStdio()
}

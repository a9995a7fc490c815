package internal

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/saffi/internal/content"
	"github.com/starford/saffi/internal/mcpserver"
	"github.com/starford/saffi/internal/pageservice"
	"github.com/starford/saffi/internal/sse"
	"github.com/starford/saffi/internal/testutil"
)

func testRouter(t *testing.T, withMCP bool) (http.Handler, *content.State) {
	t.Helper()
	dir := testutil.ContentDir(t)
	testutil.WriteFile(t, dir, "_index.md", testutil.Page("Home", "welcome"))
	testutil.WriteFile(t, dir, "blog/2024-01-01-first.md", testutil.Post(false, `"go"`, "one"))

	cfg := NewDefaultConfig()
	cfg.Content.Path = dir
	cfg.Content.ThemesPath = testutil.WriteThemes(t)
	cfg.Content.LightTheme = testutil.LightTheme
	cfg.Content.DarkTheme = testutil.DarkTheme

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	state, err := content.Bootstrap(context.Background(), bootstrapConfig(cfg), logger, nil)
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	t.Cleanup(func() { _ = state.Close() })

	broker := sse.NewBroker(0)
	t.Cleanup(broker.Close)

	var mcp *mcpserver.Server
	if withMCP {
		mcp = mcpserver.New(pageservice.NewService(state.Content), "test")
	}
	h, err := newRouter(state, broker, mcp, logger)
	if err != nil {
		t.Fatalf("newRouter: %v", err)
	}
	return h, state
}

func serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestRouter_Mounts(t *testing.T) {
	h, _ := testRouter(t, false)

	tests := []struct {
		path   string
		status int
		want   string
	}{
		{"/_health/live", http.StatusOK, `{"status":"ok"}`},
		{"/_health/ready", http.StatusOK, `{"status":"ok"}`},
		{"/", http.StatusOK, "<title>Home</title>"},
		{"/blog/2024-01-01-first", http.StatusOK, "first"},
		{"/_theme.css", http.StatusOK, ".chroma"},
		{"/_api/pages/blog/2024-01-01-first", http.StatusOK, `"kind":"post"`},
		{"/_api/tags/go", http.StatusOK, `"total":1`},
		{"/_mcp", http.StatusNotFound, ""},
		{"/nope", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := serve(h, http.MethodGet, tt.path)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d", w.Code, tt.status)
			}
			if !strings.Contains(w.Body.String(), tt.want) {
				t.Errorf("body missing %q:\n%s", tt.want, w.Body.String())
			}
		})
	}
}

func TestRouter_ReadyReflectsWatcher(t *testing.T) {
	h, state := testRouter(t, false)
	if err := state.Close(); err != nil {
		t.Fatal(err)
	}
	w := serve(h, http.MethodGet, "/_health/ready")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
	if w := serve(h, http.MethodGet, "/_health/live"); w.Code != http.StatusOK {
		t.Errorf("live status = %d", w.Code)
	}
}

func TestRouter_MCPMounted(t *testing.T) {
	h, _ := testRouter(t, true)
	if w := serve(h, http.MethodGet, "/_mcp"); w.Code == http.StatusNotFound {
		t.Error("mcp endpoint not mounted")
	}
}

func TestNewLogger_FansOutToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saffi.log")
	var console bytes.Buffer

	logger, closeLog, err := newLogger(ApplicationConfig{LogLevel: slog.LevelInfo, LogFile: path}, &console)
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("content loaded", slog.Int("nodes", 3))
	if err := closeLog(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for name, out := range map[string]string{"console": console.String(), "file": string(data)} {
		if !strings.Contains(out, `"msg":"content loaded"`) || strings.Contains(out, "hidden") {
			t.Errorf("%s output = %q", name, out)
		}
	}
}

func TestNewLogger_BadFile(t *testing.T) {
	cfg := ApplicationConfig{LogFile: filepath.Join(t.TempDir(), "missing", "saffi.log")}
	if _, _, err := newLogger(cfg, io.Discard); err == nil {
		t.Error("expected error for unwritable log file")
	}
}

func TestRun_RequiresConfig(t *testing.T) {
	if err := Run(context.Background()); err == nil {
		t.Error("expected error without config")
	}
	if err := RunMCP(context.Background()); err == nil {
		t.Error("expected error without config")
	}
}

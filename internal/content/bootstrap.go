package content

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/saffi/internal/markdown"
	"github.com/starford/saffi/internal/storage"
)

// BootstrapConfig describes where content and themes live and how the
// watcher batches events.
type BootstrapConfig struct {
	Root       string
	ThemesPath string
	Drafts     bool
	LightTheme string
	DarkTheme  string
	Debounce   time.Duration
	Buffer     int
}

// State is a loaded, watched content root.
type State struct {
	Content *Store
	Theme   *markdown.Theme
	Watcher *Watcher
}

// Close stops the watcher.
func (s *State) Close() error { return s.Watcher.Close() }

// Bootstrap loads the highlighting themes, indexes the whole content root
// and starts watching it. Any failure here is fatal to startup; individual
// content files that fail to load are only logged.
func Bootstrap(ctx context.Context, cfg BootstrapConfig, logger *slog.Logger, cb EventCallback) (*State, error) {
	set, err := markdown.LoadThemeSet(cfg.ThemesPath)
	if err != nil {
		return nil, fmt.Errorf("content: bootstrap: %w", err)
	}
	theme, err := markdown.NewTheme(set, cfg.LightTheme, cfg.DarkTheme)
	if err != nil {
		return nil, fmt.Errorf("content: bootstrap: %w", err)
	}

	fsys, err := storage.NewFS(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("content: bootstrap: %w", err)
	}
	store := NewStore(fsys, markdown.NewRenderer(theme), cfg.Drafts, logger)
	if _, err := store.LoadAll(); err != nil {
		return nil, fmt.Errorf("content: bootstrap: %w", err)
	}

	w, err := StartWatcher(ctx, store, WatcherConfig{Debounce: cfg.Debounce, Buffer: cfg.Buffer}, logger, cb)
	if err != nil {
		return nil, fmt.Errorf("content: bootstrap: watch %s: %w", fsys.Root(), err)
	}
	return &State{Content: store, Theme: theme, Watcher: w}, nil
}

package markdown

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
)

// ThemeSet holds the highlighting styles found in a themes directory, keyed by
// style name.
type ThemeSet map[string]*chroma.Style

// LoadThemeSet parses every chroma XML style file in dir.
func LoadThemeSet(dir string) (ThemeSet, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("markdown: read themes dir: %w", err)
	}
	set := make(ThemeSet)
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".xml") {
			continue
		}
		style, err := loadStyle(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		set[style.Name] = style
	}
	return set, nil
}

func loadStyle(path string) (*chroma.Style, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("markdown: open theme: %w", err)
	}
	defer f.Close()
	style, err := chroma.NewXMLStyle(f)
	if err != nil {
		return nil, fmt.Errorf("markdown: parse theme %s: %w", path, err)
	}
	return style, nil
}

// Names returns the sorted style names in the set.
func (s ThemeSet) Names() []string {
	out := make([]string, 0, len(s))
	for name := range s {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// MissingThemeError is returned when a configured style is not in the set.
type MissingThemeError struct {
	Name      string
	Available []string
}

func (e *MissingThemeError) Error() string {
	return fmt.Sprintf("theme set does not contain a theme named %q (have %v)", e.Name, e.Available)
}

// Theme is a light/dark pair of highlighting styles with their generated CSS.
type Theme struct {
	Light *chroma.Style
	Dark  *chroma.Style
	css   string
}

// NewTheme picks the light and dark styles out of set and renders the CSS
// for class-based highlighting. Dark rules apply under prefers-color-scheme.
func NewTheme(set ThemeSet, light, dark string) (*Theme, error) {
	lightStyle, ok := set[light]
	if !ok {
		return nil, &MissingThemeError{Name: light, Available: set.Names()}
	}
	darkStyle, ok := set[dark]
	if !ok {
		return nil, &MissingThemeError{Name: dark, Available: set.Names()}
	}

	formatter := chromahtml.New(chromahtml.WithClasses(true))
	var css bytes.Buffer
	if err := formatter.WriteCSS(&css, lightStyle); err != nil {
		return nil, fmt.Errorf("markdown: generate css for %s: %w", light, err)
	}
	css.WriteString("@media (prefers-color-scheme: dark) {\n")
	if err := formatter.WriteCSS(&css, darkStyle); err != nil {
		return nil, fmt.Errorf("markdown: generate css for %s: %w", dark, err)
	}
	css.WriteString("}\n")

	return &Theme{Light: lightStyle, Dark: darkStyle, css: css.String()}, nil
}

// CSS returns the stylesheet for highlighted code blocks.
func (t *Theme) CSS() string { return t.css }

// Package testutil provides shared test helpers for building content trees
// and highlighting themes on disk.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// Theme names written by WriteThemes.
const (
	LightTheme = "test-light"
	DarkTheme  = "test-dark"
)

const lightXML = `<style name="test-light">
  <entry type="Background" style="bg:#ffffff"/>
  <entry type="Keyword" style="#0000ff bold"/>
  <entry type="LiteralString" style="#008000"/>
</style>
`

const darkXML = `<style name="test-dark">
  <entry type="Background" style="#abb2bf bg:#282c34"/>
  <entry type="Keyword" style="#c678dd"/>
  <entry type="LiteralString" style="#98c379"/>
</style>
`

// WriteThemes creates a themes directory holding a light and a dark chroma
// style and returns its path.
func WriteThemes(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	WriteFile(t, dir, "light.xml", lightXML)
	WriteFile(t, dir, "dark.xml", darkXML)
	return dir
}

// WriteFile writes content to rel under root, creating parent directories,
// and returns the absolute path.
func WriteFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

// ContentDir returns a fresh content root. Symlinks are resolved so paths
// reported by the filesystem compare equal to it.
func ContentDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return dir
}

// Post returns a single-segment post document.
func Post(draft bool, tags string, body string) string {
	d := "false"
	if draft {
		d = "true"
	}
	return "---\ndraft = " + d + "\ntags = [" + tags + "]\n---\n" + body
}

// Page returns a page document with the given title.
func Page(title, body string) string {
	return "---\ntitle = \"" + title + "\"\n---\n" + body
}

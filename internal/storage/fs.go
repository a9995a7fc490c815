package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// ErrOutsideRoot is returned for paths that do not live under the content root.
var ErrOutsideRoot = errors.New("path is not relative to the content root")

// ignoreFiles are read from the content root to build the walk's ignore rules.
var ignoreFiles = []string{".gitignore", ".ignore"}

// FS is the content root on the local file system.
type FS struct {
	root   string // absolute path to content directory
	ignore *ignore.GitIgnore
}

// NewFS creates a new FS rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	gi, err := loadIgnore(abs)
	if err != nil {
		return nil, err
	}
	return &FS{root: abs, ignore: gi}, nil
}

func loadIgnore(root string) (*ignore.GitIgnore, error) {
	var lines []string
	for _, name := range ignoreFiles {
		data, err := os.ReadFile(filepath.Join(root, name))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("storage: read %s: %w", name, err)
		}
		lines = append(lines, strings.Split(string(data), "\n")...)
	}
	if len(lines) == 0 {
		return nil, nil
	}
	return ignore.CompileIgnoreLines(lines...), nil
}

// Root returns the absolute content root.
func (f *FS) Root() string { return f.root }

// Rel returns path relative to the content root. Relative inputs are taken
// as already relative; absolute inputs outside the root are rejected.
func (f *FS) Rel(path string) (string, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(f.root, path)
	}
	rel, err := filepath.Rel(f.root, filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	return rel, nil
}

// safePath resolves a relative path against the content root and rejects
// any result that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	abs := filepath.Join(f.root, cleaned)
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("storage: path escapes content root: %s", rel)
	}
	return abs, nil
}

// Read returns the raw bytes of a content file.
func (f *FS) Read(rel string) ([]byte, error) {
	abs, err := f.safePath(rel)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", rel, err)
	}
	return data, nil
}

// Ignored reports whether rel is hidden (any dot-prefixed component) or
// matched by the root ignore files.
func (f *FS) Ignored(rel string, isDir bool) bool {
	if rel == "." || rel == "" {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	if f.ignore == nil {
		return false
	}
	p := filepath.ToSlash(rel)
	if isDir {
		p += "/"
	}
	return f.ignore.MatchesPath(p)
}

// WalkFunc receives every entry visited by Walk. A non-nil err reports an
// entry that could not be read; info is nil in that case.
type WalkFunc func(path string, info fs.FileInfo, err error)

// Walk visits the root and everything below it that is not ignored. Only a
// failure to read the root itself stops the walk and is returned.
func (f *FS) Walk(fn WalkFunc) error {
	return filepath.WalkDir(f.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if p == f.root {
				return fmt.Errorf("storage: walk root: %w", walkErr)
			}
			fn(p, nil, walkErr)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel, _ := filepath.Rel(f.root, p)
		if f.Ignored(rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			fn(p, nil, err)
			return nil
		}
		fn(p, info, nil)
		return nil
	})
}

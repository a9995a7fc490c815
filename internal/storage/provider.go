// Package storage is the read side of the content root: path resolution,
// file reads and an ignore-aware directory walk.
package storage

// Provider is the interface the content loader reads through.
type Provider interface {
	// Root returns the absolute content root.
	Root() string
	// Rel returns path relative to the content root.
	Rel(path string) (string, error)
	// Read returns the raw bytes of the file at rel (relative to the root).
	Read(rel string) ([]byte, error)
	// Ignored reports whether rel is excluded from content.
	Ignored(rel string, isDir bool) bool
	// Walk visits every non-ignored entry below the root.
	Walk(fn WalkFunc) error
}

// Verify *FS satisfies Provider at compile time.
var _ Provider = (*FS)(nil)

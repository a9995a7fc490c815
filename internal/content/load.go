package content

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/starford/saffi/internal/checksum"
	"github.com/starford/saffi/internal/frontmatter"
	"github.com/starford/saffi/internal/names"
)

const indexStem = "_index"

// dateLayout is the prefix that marks a markdown file as a post.
const dateLayout = "2006-01-02"

var markdownExts = map[string]bool{".md": true, ".markdown": true}

var (
	ErrNotRelative    = errors.New("path is not under the content root")
	ErrNoExtension    = errors.New("file has no extension")
	ErrNoFileName     = errors.New("file has no name")
	ErrNonUTF8Path    = errors.New("path is not valid UTF-8")
	ErrNonUTF8Content = errors.New("file content is not valid UTF-8")
)

// LoadError reports a content file that could not be indexed.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string { return fmt.Sprintf("load %s: %v", e.Path, e.Err) }

func (e *LoadError) Unwrap() error { return e.Err }

type kind int

const (
	kindPage kind = iota
	kindIndex
	kindPost
)

// location is where a markdown file lands in the index.
type location struct {
	key  Key
	kind kind
	date time.Time
}

// LoadStats summarizes a LoadAll pass.
type LoadStats struct {
	Loaded int
	Failed int
}

// LoadAll walks the content root and loads every entry that is not ignored.
// Per-entry failures are logged and counted; only a failure to walk the root
// itself is returned.
func (s *Store) LoadAll() (LoadStats, error) {
	var stats LoadStats
	err := s.fs.Walk(func(path string, info fs.FileInfo, err error) {
		if err != nil {
			s.logger.Warn("content: walk failed", slog.String("path", path), slog.String("error", err.Error()))
			stats.Failed++
			return
		}
		if err := s.Load(path, info); err != nil {
			s.logger.Warn("content: load failed", slog.String("path", path), slog.String("error", err.Error()))
			stats.Failed++
			return
		}
		if !info.IsDir() {
			stats.Loaded++
		}
	})
	if err != nil {
		return stats, fmt.Errorf("content: load all: %w", err)
	}
	s.logger.Info("content: loaded",
		slog.Int("files", stats.Loaded),
		slog.Int("failed", stats.Failed),
		slog.Int("nodes", s.Len()))
	return stats, nil
}

// Load indexes the file or directory at path. Directories are validated
// as groups; markdown files are parsed, rendered and swapped into the index.
// Files that are not markdown, ignored or nested too deep are skipped
// without error.
func (s *Store) Load(path string, info fs.FileInfo) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	rel, err := s.relative(path)
	if err != nil {
		return err
	}
	if s.fs.Ignored(rel, info.IsDir()) {
		return nil
	}
	if info.IsDir() {
		return s.loadDir(rel)
	}
	if !info.Mode().IsRegular() {
		s.logger.Debug("content: skipping non-regular file", slog.String("path", rel))
		return nil
	}

	loc, ok, err := s.locate(rel)
	if err != nil || !ok {
		return err
	}

	data, err := s.fs.Read(rel)
	if err != nil {
		return &LoadError{Path: rel, Err: err}
	}
	sum := checksum.Sum(data)
	if prev, ok := s.checksum(loc.key); ok && prev == sum {
		s.logger.Debug("content: unchanged", slog.String("path", rel))
		return nil
	}
	if !utf8.Valid(data) {
		return &LoadError{Path: rel, Err: ErrNonUTF8Content}
	}

	node, err := s.build(loc, string(data))
	if err != nil {
		return &LoadError{Path: rel, Err: err}
	}
	if node == nil {
		s.logger.Info("content: skipping draft", slog.String("path", rel))
	}
	s.commit(loc.key, node, sum)
	return nil
}

// Remove drops whatever path contributed to the index. A markdown file
// removes its node; a top-level directory removes its whole group.
func (s *Store) Remove(path string) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	rel, err := s.relative(path)
	if err != nil {
		return err
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	ext := filepath.Ext(rel)

	if ext == "" && len(parts) == 1 && rel != "." {
		g, err := names.ParseGroupName(parts[0])
		if err != nil {
			return nil
		}
		if n := s.removeGroup(g); n > 0 {
			s.logger.Debug("content: removed group", slog.String("group", g.String()), slog.Int("nodes", n))
		}
		return nil
	}
	if !markdownExts[ext] {
		return nil
	}

	loc, ok, err := s.locate(rel)
	if err != nil || !ok {
		return err
	}
	s.commit(loc.key, nil, "")
	s.logger.Debug("content: removed", slog.String("path", rel))
	return nil
}

func (s *Store) relative(path string) (string, error) {
	if !utf8.ValidString(path) {
		return "", &LoadError{Path: path, Err: ErrNonUTF8Path}
	}
	rel, err := s.fs.Rel(path)
	if err != nil {
		return "", &LoadError{Path: path, Err: ErrNotRelative}
	}
	return rel, nil
}

func (s *Store) loadDir(rel string) error {
	if rel == "." {
		return nil
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) > 1 {
		s.logger.Warn("content: skipping nested directory", slog.String("path", rel))
		return nil
	}
	if _, err := names.ParseGroupName(parts[0]); err != nil {
		return &LoadError{Path: rel, Err: err}
	}
	return nil
}

// locate maps rel to its key. ok is false for files that are not content.
func (s *Store) locate(rel string) (location, bool, error) {
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) > 2 {
		s.logger.Warn("content: skipping nested file", slog.String("path", rel))
		return location{}, false, nil
	}

	g := names.Root
	if len(parts) == 2 {
		var err error
		if g, err = names.ParseGroupName(parts[0]); err != nil {
			return location{}, false, &LoadError{Path: rel, Err: err}
		}
	}

	file := parts[len(parts)-1]
	ext := filepath.Ext(file)
	if ext == "" {
		return location{}, false, &LoadError{Path: rel, Err: ErrNoExtension}
	}
	stem := strings.TrimSuffix(file, ext)
	if stem == "" {
		return location{}, false, &LoadError{Path: rel, Err: ErrNoFileName}
	}
	if !markdownExts[ext] {
		s.logger.Info("content: skipping non-markdown file", slog.String("path", rel))
		return location{}, false, nil
	}

	var loc location
	if stem == indexStem {
		loc.kind = kindIndex
		loc.key = Key{Group: g, Page: s.indexName(g)}
		return loc, true, nil
	}

	p, err := names.ParsePageName(stem)
	if err != nil {
		return location{}, false, &LoadError{Path: rel, Err: err}
	}
	loc.key = Key{Group: g, Page: p}
	if date, ok := postDate(stem); ok {
		loc.kind, loc.date = kindPost, date
	}
	return loc, true, nil
}

// postDate reports whether stem begins with a calendar date.
func postDate(stem string) (time.Time, bool) {
	if len(stem) < len(dateLayout) {
		return time.Time{}, false
	}
	d, err := time.Parse(dateLayout, stem[:len(dateLayout)])
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// build parses and renders doc. A nil node means the document is a draft
// and drafts are off.
func (s *Store) build(loc location, doc string) (Node, error) {
	if loc.kind != kindPost {
		md, body, err := frontmatter.ParsePage(doc)
		if err != nil {
			return nil, err
		}
		if md.Draft && !s.drafts {
			return nil, nil
		}
		html, err := s.render.Render(body)
		if err != nil {
			return nil, err
		}
		return &Page{Title: md.Title, HTML: html}, nil
	}

	post, err := frontmatter.ParsePost(doc, loc.date)
	if err != nil {
		return nil, err
	}
	tags := uniqueTags(post.Tags)

	if !post.IsThread() {
		e := post.Entries[0]
		if e.Draft && !s.drafts {
			return nil, nil
		}
		html, err := s.render.Render(e.Body)
		if err != nil {
			return nil, err
		}
		return &SinglePost{Draft: e.Draft, Tags: tags, Date: e.Date, HTML: html}, nil
	}

	thread := &ThreadPost{Tags: tags}
	for _, e := range post.Entries {
		if e.Draft && !s.drafts {
			continue
		}
		html, err := s.render.Render(e.Body)
		if err != nil {
			return nil, err
		}
		thread.Entries = append(thread.Entries, ThreadEntry{Draft: e.Draft, Date: e.Date, HTML: html})
	}
	if len(thread.Entries) == 0 {
		return nil, nil
	}
	return thread, nil
}

func uniqueTags(tags []names.TagName) []names.TagName {
	seen := make(map[names.TagName]bool, len(tags))
	out := make([]names.TagName, 0, len(tags))
	for _, t := range tags {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

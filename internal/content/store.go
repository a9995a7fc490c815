// Package content holds the in-memory content index: every page and post
// under the content root, rendered to HTML and grouped by directory and tag.
package content

import (
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/starford/saffi/internal/apperr"
	"github.com/starford/saffi/internal/names"
	"github.com/starford/saffi/internal/storage"
)

// Renderer turns a markdown body into HTML.
type Renderer interface {
	Render(src string) (string, error)
}

type entry struct {
	node Node
	sum  string
}

type group struct {
	index    names.PageName
	hasIndex bool
	members  map[names.PageName]struct{}
}

func (g *group) empty() bool { return !g.hasIndex && len(g.members) == 0 }

// Store is the content index. Queries may run concurrently with each other
// and with a load; loads are serialized.
type Store struct {
	fs     storage.Provider
	render Renderer
	drafts bool
	logger *slog.Logger

	// loadMu is held for a whole load or removal. indexIDs is only touched
	// under it.
	loadMu   sync.Mutex
	indexIDs map[names.GroupName]names.PageName

	mu     sync.RWMutex
	nodes  map[Key]entry
	groups map[names.GroupName]*group
	tags   map[names.TagName]map[Key]struct{}
}

// NewStore returns an empty store reading from fs. With drafts set, draft
// pages, posts and thread entries are indexed instead of skipped.
func NewStore(fs storage.Provider, render Renderer, drafts bool, logger *slog.Logger) *Store {
	return &Store{
		fs:       fs,
		render:   render,
		drafts:   drafts,
		logger:   logger,
		indexIDs: make(map[names.GroupName]names.PageName),
		nodes:    make(map[Key]entry),
		groups:   make(map[names.GroupName]*group),
		tags:     make(map[names.TagName]map[Key]struct{}),
	}
}

// Drafts reports whether the store indexes drafts.
func (s *Store) Drafts() bool { return s.drafts }

// indexName returns the stable index page name for g, allocating it on first use.
func (s *Store) indexName(g names.GroupName) names.PageName {
	if p, ok := s.indexIDs[g]; ok {
		return p
	}
	p := names.NewIndexPageName()
	s.indexIDs[g] = p
	return p
}

// commit replaces whatever is stored at key with node. A nil node only
// removes. Group and tag membership change in the same critical section.
func (s *Store) commit(key Key, node Node, sum string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.unlinkLocked(key)
	if node == nil {
		return
	}

	s.nodes[key] = entry{node: node, sum: sum}
	g, ok := s.groups[key.Group]
	if !ok {
		g = &group{members: make(map[names.PageName]struct{})}
		s.groups[key.Group] = g
	}
	if key.Page.IsIndex() {
		g.index, g.hasIndex = key.Page, true
	} else {
		g.members[key.Page] = struct{}{}
	}
	if post, ok := node.(Post); ok {
		for _, t := range post.PostTags() {
			members, ok := s.tags[t]
			if !ok {
				members = make(map[Key]struct{})
				s.tags[t] = members
			}
			members[key] = struct{}{}
		}
	}
}

func (s *Store) unlinkLocked(key Key) {
	old, ok := s.nodes[key]
	if !ok {
		return
	}
	delete(s.nodes, key)

	if g, ok := s.groups[key.Group]; ok {
		if key.Page.IsIndex() {
			g.hasIndex = false
		} else {
			delete(g.members, key.Page)
		}
		if g.empty() {
			delete(s.groups, key.Group)
		}
	}
	if post, ok := old.node.(Post); ok {
		for _, t := range post.PostTags() {
			members := s.tags[t]
			delete(members, key)
			if len(members) == 0 {
				delete(s.tags, t)
			}
		}
	}
}

// removeGroup drops every node of g.
func (s *Store) removeGroup(g names.GroupName) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var keys []Key
	for k := range s.nodes {
		if k.Group == g {
			keys = append(keys, k)
		}
	}
	for _, k := range keys {
		s.unlinkLocked(k)
	}
	return len(keys)
}

// checksum returns the stored digest for key.
func (s *Store) checksum(key Key) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.nodes[key]
	return e.sum, ok
}

// Index returns the index page of group g.
func (s *Store) Index(g names.GroupName) (PageRef, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexLocked(g)
}

func (s *Store) indexLocked(g names.GroupName) (PageRef, bool) {
	grp, ok := s.groups[g]
	if !ok || !grp.hasIndex {
		return PageRef{}, false
	}
	key := Key{Group: g, Page: grp.index}
	page, ok := s.nodes[key].node.(*Page)
	if !ok {
		return PageRef{}, false
	}
	return PageRef{Key: key, Page: *page}, true
}

// Page returns the node named p in group g.
func (s *Store) Page(g names.GroupName, p names.PageName) (NodeRef, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key := Key{Group: g, Page: p}
	e, ok := s.nodes[key]
	if !ok {
		return NodeRef{}, false
	}
	return NodeRef{Key: key, Node: e.node}, true
}

// Tag returns the posts carrying t, newest first.
func (s *Store) Tag(t names.TagName) (TagRef, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	members, ok := s.tags[t]
	if !ok {
		return TagRef{}, false
	}
	ref := TagRef{Name: t, Posts: make([]NodeRef, 0, len(members))}
	for k := range members {
		ref.Posts = append(ref.Posts, NodeRef{Key: k, Node: s.nodes[k].node})
	}
	sortRefs(ref.Posts)
	return ref, true
}

// Group returns group g with its index page and members.
func (s *Store) Group(g names.GroupName) (GroupRef, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	grp, ok := s.groups[g]
	if !ok {
		return GroupRef{}, false
	}
	ref := GroupRef{Name: g, Members: make([]NodeRef, 0, len(grp.members))}
	if idx, ok := s.indexLocked(g); ok {
		ref.Index = &idx
	}
	for p := range grp.members {
		k := Key{Group: g, Page: p}
		ref.Members = append(ref.Members, NodeRef{Key: k, Node: s.nodes[k].node})
	}
	sortRefs(ref.Members)
	return ref, true
}

// Groups lists the groups holding at least one node, root first.
func (s *Store) Groups() []names.GroupName {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]names.GroupName, 0, len(s.groups))
	for g := range s.groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsRoot() != out[j].IsRoot() {
			return out[i].IsRoot()
		}
		return out[i].String() < out[j].String()
	})
	return out
}

// Tags lists every tag carried by at least one post.
func (s *Store) Tags() []names.TagName {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]names.TagName, 0, len(s.tags))
	for t := range s.tags {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the number of indexed nodes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// Resolve maps a public path to a node. "" and "/" are the root index,
// "name" is a root page or else the index of group name, and "group/page"
// is a page inside a group.
func (s *Store) Resolve(public string) (NodeRef, error) {
	public = strings.Trim(public, "/")
	if public == "" {
		return s.resolveIndex(names.Root)
	}
	parts := strings.Split(public, "/")
	switch len(parts) {
	case 1:
		if p, err := names.ParsePageName(parts[0]); err == nil {
			if ref, ok := s.Page(names.Root, p); ok {
				return ref, nil
			}
		}
		g, err := names.ParseGroupName(parts[0])
		if err != nil {
			return NodeRef{}, apperr.ErrNotFound
		}
		return s.resolveIndex(g)
	case 2:
		g, err := names.ParseGroupName(parts[0])
		if err != nil {
			return NodeRef{}, apperr.ErrNotFound
		}
		p, err := names.ParsePageName(parts[1])
		if err != nil {
			return NodeRef{}, apperr.ErrNotFound
		}
		if ref, ok := s.Page(g, p); ok {
			return ref, nil
		}
	}
	return NodeRef{}, apperr.ErrNotFound
}

func (s *Store) resolveIndex(g names.GroupName) (NodeRef, error) {
	idx, ok := s.Index(g)
	if !ok {
		return NodeRef{}, apperr.ErrNotFound
	}
	page := idx.Page
	return NodeRef{Key: idx.Key, Node: &page}, nil
}

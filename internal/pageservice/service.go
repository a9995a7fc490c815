// Package pageservice turns content index snapshots into plain,
// JSON-friendly views shared by the JSON API and the MCP tools.
package pageservice

import (
	"context"
	"fmt"

	"github.com/starford/saffi/internal/apperr"
	"github.com/starford/saffi/internal/content"
	"github.com/starford/saffi/internal/names"
)

const dateLayout = "2006-01-02"

// Node kinds reported in views.
const (
	KindPage   = "page"
	KindIndex  = "index"
	KindPost   = "post"
	KindThread = "thread"
)

// PageDetail is the full representation of one node.
type PageDetail struct {
	Path    string        `json:"path"`
	Kind    string        `json:"kind"`
	Title   string        `json:"title,omitempty"`
	Date    string        `json:"date,omitempty"`
	Draft   bool          `json:"draft,omitempty"`
	Tags    []string      `json:"tags,omitempty"`
	HTML    string        `json:"html,omitempty"`
	Entries []EntryDetail `json:"entries,omitempty"`
}

// EntryDetail is one entry of a thread.
type EntryDetail struct {
	Date  string `json:"date"`
	Draft bool   `json:"draft,omitempty"`
	HTML  string `json:"html"`
}

// ListItem is a lightweight node reference in listings.
type ListItem struct {
	Path  string   `json:"path"`
	Kind  string   `json:"kind"`
	Title string   `json:"title,omitempty"`
	Date  string   `json:"date,omitempty"`
	Tags  []string `json:"tags,omitempty"`
}

// GroupDetail is a group's index page and a page of its members.
type GroupDetail struct {
	Name    string      `json:"name"`
	Index   *PageDetail `json:"index,omitempty"`
	Members []ListItem  `json:"members"`
	Total   int         `json:"total"`
}

// TagDetail is a tag and a page of the posts carrying it, newest first.
type TagDetail struct {
	Name  string     `json:"name"`
	Posts []ListItem `json:"posts"`
	Total int        `json:"total"`
}

// Reader is the part of the content index the service needs.
type Reader interface {
	Resolve(public string) (content.NodeRef, error)
	Group(g names.GroupName) (content.GroupRef, bool)
	Tag(t names.TagName) (content.TagRef, bool)
	Groups() []names.GroupName
	Tags() []names.TagName
}

// Service answers read queries against the content index.
type Service struct {
	reader Reader
}

// NewService creates a new page service.
func NewService(reader Reader) *Service {
	return &Service{reader: reader}
}

// GetPage resolves a public path ("" for the home page).
func (s *Service) GetPage(_ context.Context, path string) (*PageDetail, error) {
	ref, err := s.reader.Resolve(path)
	if err != nil {
		return nil, err
	}
	d := Detail(ref)
	return &d, nil
}

// GetGroup returns group name ("" for the root group) with members paged
// by limit and offset. A non-positive limit returns every member.
func (s *Service) GetGroup(_ context.Context, name string, limit, offset int) (*GroupDetail, error) {
	g := names.Root
	if name != "" {
		var err error
		if g, err = names.ParseGroupName(name); err != nil {
			return nil, fmt.Errorf("%w: %w", apperr.ErrInvalidName, err)
		}
	}
	ref, ok := s.reader.Group(g)
	if !ok {
		return nil, apperr.ErrNotFound
	}
	out := &GroupDetail{Name: name, Total: len(ref.Members)}
	if ref.Index != nil {
		page := ref.Index.Page
		d := Detail(content.NodeRef{Key: ref.Index.Key, Node: &page})
		out.Index = &d
	}
	out.Members = items(paginate(ref.Members, limit, offset))
	return out, nil
}

// GetTag returns the posts tagged name, paged by limit and offset.
func (s *Service) GetTag(_ context.Context, name string, limit, offset int) (*TagDetail, error) {
	t, err := names.ParseTagName(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrInvalidName, err)
	}
	ref, ok := s.reader.Tag(t)
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &TagDetail{
		Name:  name,
		Posts: items(paginate(ref.Posts, limit, offset)),
		Total: len(ref.Posts),
	}, nil
}

// ListGroups returns every non-empty group name; the root group is "".
func (s *Service) ListGroups(_ context.Context) []string {
	groups := s.reader.Groups()
	out := make([]string, len(groups))
	for i, g := range groups {
		out[i] = g.String()
	}
	return out
}

// ListTags returns every tag in use.
func (s *Service) ListTags(_ context.Context) []string {
	tags := s.reader.Tags()
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = t.String()
	}
	return out
}

// Detail builds the full view of a node.
func Detail(ref content.NodeRef) PageDetail {
	d := PageDetail{Path: ref.Key.PublicPath()}
	switch n := ref.Node.(type) {
	case *content.Page:
		d.Kind = KindPage
		if ref.Key.Page.IsIndex() {
			d.Kind = KindIndex
		}
		d.Title, d.HTML = n.Title, n.HTML
	case *content.SinglePost:
		d.Kind = KindPost
		d.Date = n.Date.Format(dateLayout)
		d.Draft, d.Tags, d.HTML = n.Draft, tagStrings(n.Tags), n.HTML
	case *content.ThreadPost:
		d.Kind = KindThread
		d.Date = n.PostDate().Format(dateLayout)
		d.Tags = tagStrings(n.Tags)
		d.Entries = make([]EntryDetail, len(n.Entries))
		for i, e := range n.Entries {
			d.Entries[i] = EntryDetail{Date: e.Date.Format(dateLayout), Draft: e.Draft, HTML: e.HTML}
		}
	}
	return d
}

// Item builds the listing view of a node.
func Item(ref content.NodeRef) ListItem {
	d := Detail(ref)
	return ListItem{Path: d.Path, Kind: d.Kind, Title: d.Title, Date: d.Date, Tags: d.Tags}
}

func items(refs []content.NodeRef) []ListItem {
	out := make([]ListItem, len(refs))
	for i, r := range refs {
		out[i] = Item(r)
	}
	return out
}

func paginate[T any](s []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(s) {
		return []T{}
	}
	s = s[offset:]
	if limit > 0 && limit < len(s) {
		s = s[:limit]
	}
	return s
}

func tagStrings(tags []names.TagName) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = t.String()
	}
	return out
}

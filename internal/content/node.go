package content

import (
	"sort"
	"time"

	"github.com/starford/saffi/internal/names"
)

// Key identifies a node: the group it belongs to and its name in that group.
type Key struct {
	Group names.GroupName
	Page  names.PageName
}

// String renders the key as a slash-separated public path.
func (k Key) String() string {
	if k.Group.IsRoot() {
		return k.Page.String()
	}
	return k.Group.String() + "/" + k.Page.String()
}

// PublicPath is the URL path of the node without a leading slash. Index
// pages live at their group's path.
func (k Key) PublicPath() string {
	if k.Page.IsIndex() {
		return k.Group.String()
	}
	return k.String()
}

// Node is a loaded page or post. The set of implementations is closed:
// *Page, *SinglePost and *ThreadPost. Nodes are never modified once stored;
// a reload replaces the whole node.
type Node interface {
	isNode()
}

// Post is implemented by the two post shapes.
type Post interface {
	Node
	PostTags() []names.TagName
	PostDate() time.Time
}

// Page is an ordinary page or a group index page.
type Page struct {
	Title string
	HTML  string
}

// SinglePost is a post file with one frontmatter block.
type SinglePost struct {
	Draft bool
	Tags  []names.TagName
	Date  time.Time
	HTML  string
}

// ThreadPost is a post file with several dated entries sharing one tag set.
type ThreadPost struct {
	Tags    []names.TagName
	Entries []ThreadEntry
}

// ThreadEntry is one dated section of a thread, in document order.
type ThreadEntry struct {
	Draft bool
	Date  time.Time
	HTML  string
}

func (*Page) isNode()       {}
func (*SinglePost) isNode() {}
func (*ThreadPost) isNode() {}

func (p *SinglePost) PostTags() []names.TagName { return p.Tags }
func (p *SinglePost) PostDate() time.Time       { return p.Date }

func (p *ThreadPost) PostTags() []names.TagName { return p.Tags }

// PostDate is the date of the thread's first entry.
func (p *ThreadPost) PostDate() time.Time {
	if len(p.Entries) == 0 {
		return time.Time{}
	}
	return p.Entries[0].Date
}

// PageRef is a snapshot of a page and its key.
type PageRef struct {
	Key  Key
	Page Page
}

// NodeRef is a snapshot of any node and its key.
type NodeRef struct {
	Key  Key
	Node Node
}

// GroupRef is a snapshot of a group: its index page, if any, and its other
// members ordered newest post first, then pages by key.
type GroupRef struct {
	Name    names.GroupName
	Index   *PageRef
	Members []NodeRef
}

// TagRef is a snapshot of a tag and the posts carrying it, newest first.
type TagRef struct {
	Name  names.TagName
	Posts []NodeRef
}

func nodeDate(n Node) time.Time {
	if p, ok := n.(Post); ok {
		return p.PostDate()
	}
	return time.Time{}
}

func sortRefs(refs []NodeRef) {
	sort.Slice(refs, func(i, j int) bool {
		di, dj := nodeDate(refs[i].Node), nodeDate(refs[j].Node)
		if !di.Equal(dj) {
			return di.After(dj)
		}
		return refs[i].Key.String() < refs[j].Key.String()
	})
}

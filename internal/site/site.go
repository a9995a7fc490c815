// Package site serves the content index as HTML pages.
package site

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/saffi/internal/content"
	"github.com/starford/saffi/internal/names"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = []string{"node", "group", "tag", "notfound"}

const dateLayout = "2006-01-02"

// Reader is the part of the content index the site renders from.
type Reader interface {
	Page(g names.GroupName, p names.PageName) (content.NodeRef, bool)
	Group(g names.GroupName) (content.GroupRef, bool)
	Tag(t names.TagName) (content.TagRef, bool)
}

// Options configures a Site.
type Options struct {
	// CSS is served at /_theme.css.
	CSS string
	// Events, when set, is mounted at /_events and every page subscribes
	// to it to reload itself.
	Events http.Handler
}

// Site renders pages, posts, groups and tags.
type Site struct {
	reader Reader
	opts   Options
	logger *slog.Logger
	pages  map[string]*template.Template
}

// New parses the page templates.
func New(reader Reader, opts Options, logger *slog.Logger) (*Site, error) {
	layout, err := template.ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("site: parse layout: %w", err)
	}
	pages := make(map[string]*template.Template, len(pageTemplates))
	for _, name := range pageTemplates {
		t, err := layout.Clone()
		if err != nil {
			return nil, fmt.Errorf("site: clone layout: %w", err)
		}
		if t, err = t.ParseFS(templateFS, "templates/"+name+".html"); err != nil {
			return nil, fmt.Errorf("site: parse %s: %w", name, err)
		}
		pages[name] = t
	}
	return &Site{reader: reader, opts: opts, logger: logger, pages: pages}, nil
}

// Routes returns the site router. Everything that is not content lives
// under an underscore prefix, which no group or page name can start with.
func (s *Site) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/_theme.css", s.themeCSS)
	if s.opts.Events != nil {
		r.Get("/_events", s.opts.Events.ServeHTTP)
	}
	r.Get("/_tags/{tag}", s.tag)
	r.Get("/", s.home)
	r.Get("/{name}", s.name)
	r.Get("/{group}/{page}", s.page)
	r.NotFound(s.notFound)
	return r
}

type view struct {
	Title      string
	Path       string
	LiveReload bool
	Article    *article
	Members    []link
}

type article struct {
	Title   string
	Date    string
	Draft   bool
	Tags    []string
	Entries []entry
}

type entry struct {
	Date  string
	Draft bool
	HTML  template.HTML
}

type link struct {
	Href  string
	Title string
	Date  string
}

func (s *Site) themeCSS(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	_, _ = w.Write([]byte(s.opts.CSS))
}

func (s *Site) home(w http.ResponseWriter, r *http.Request) {
	s.group(w, r, names.Root)
}

// name serves a root page, or else the group of that name.
func (s *Site) name(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "name")
	if p, err := names.ParsePageName(raw); err == nil {
		if ref, ok := s.reader.Page(names.Root, p); ok {
			s.node(w, r, ref)
			return
		}
	}
	g, err := names.ParseGroupName(raw)
	if err != nil || raw == "" {
		s.notFound(w, r)
		return
	}
	s.group(w, r, g)
}

func (s *Site) page(w http.ResponseWriter, r *http.Request) {
	g, err := names.ParseGroupName(chi.URLParam(r, "group"))
	if err != nil {
		s.notFound(w, r)
		return
	}
	p, err := names.ParsePageName(chi.URLParam(r, "page"))
	if err != nil {
		s.notFound(w, r)
		return
	}
	ref, ok := s.reader.Page(g, p)
	if !ok {
		s.notFound(w, r)
		return
	}
	s.node(w, r, ref)
}

func (s *Site) node(w http.ResponseWriter, _ *http.Request, ref content.NodeRef) {
	a := articleFor(ref)
	s.render(w, http.StatusOK, "node", &view{Title: a.Title, Article: &a})
}

func (s *Site) group(w http.ResponseWriter, r *http.Request, g names.GroupName) {
	ref, ok := s.reader.Group(g)
	if !ok {
		s.notFound(w, r)
		return
	}
	v := &view{Title: g.String(), Members: links(ref.Members)}
	if ref.Index != nil {
		page := ref.Index.Page
		a := articleFor(content.NodeRef{Key: ref.Index.Key, Node: &page})
		v.Title, v.Article = a.Title, &a
	}
	s.render(w, http.StatusOK, "group", v)
}

func (s *Site) tag(w http.ResponseWriter, r *http.Request) {
	t, err := names.ParseTagName(chi.URLParam(r, "tag"))
	if err != nil {
		s.notFound(w, r)
		return
	}
	ref, ok := s.reader.Tag(t)
	if !ok {
		s.notFound(w, r)
		return
	}
	s.render(w, http.StatusOK, "tag", &view{Title: t.String(), Members: links(ref.Posts)})
}

func (s *Site) notFound(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusNotFound, "notfound", &view{Title: "not found", Path: r.URL.Path})
}

func (s *Site) render(w http.ResponseWriter, status int, name string, v *view) {
	v.LiveReload = s.opts.Events != nil
	var buf bytes.Buffer
	if err := s.pages[name].ExecuteTemplate(&buf, "layout", v); err != nil {
		s.logger.Error("site: render failed", slog.String("template", name), slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// articleFor flattens any node into an article. Pages and single posts
// become one entry; thread entries keep their order.
func articleFor(ref content.NodeRef) article {
	switch n := ref.Node.(type) {
	case *content.Page:
		return article{Title: n.Title, Entries: []entry{{HTML: template.HTML(n.HTML)}}}
	case *content.SinglePost:
		return article{
			Title:   postTitle(ref.Key),
			Date:    n.Date.Format(dateLayout),
			Draft:   n.Draft,
			Tags:    tagStrings(n.Tags),
			Entries: []entry{{HTML: template.HTML(n.HTML)}},
		}
	case *content.ThreadPost:
		a := article{
			Title:   postTitle(ref.Key),
			Date:    n.PostDate().Format(dateLayout),
			Tags:    tagStrings(n.Tags),
			Entries: make([]entry, len(n.Entries)),
		}
		for i, e := range n.Entries {
			a.Entries[i] = entry{Date: e.Date.Format(dateLayout), Draft: e.Draft, HTML: template.HTML(e.HTML)}
		}
		return a
	}
	return article{Title: ref.Key.String()}
}

func links(refs []content.NodeRef) []link {
	out := make([]link, len(refs))
	for i, ref := range refs {
		l := link{Href: "/" + ref.Key.PublicPath()}
		switch n := ref.Node.(type) {
		case *content.Page:
			l.Title = n.Title
		case content.Post:
			l.Title = postTitle(ref.Key)
			l.Date = n.PostDate().Format(dateLayout)
		}
		out[i] = l
	}
	return out
}

// postTitle turns "2024-01-02-hello-world" into "hello world".
func postTitle(k content.Key) string {
	name := k.Page.String()
	if len(name) >= len(dateLayout) {
		name = strings.TrimPrefix(name[len(dateLayout):], "-")
	}
	if name == "" {
		return k.Page.String()
	}
	return strings.ReplaceAll(name, "-", " ")
}

func tagStrings(tags []names.TagName) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = t.String()
	}
	return out
}

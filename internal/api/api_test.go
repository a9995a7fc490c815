package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/starford/saffi/internal/content"
	"github.com/starford/saffi/internal/pageservice"
	"github.com/starford/saffi/internal/storage"
	"github.com/starford/saffi/internal/testutil"
)

type plainRenderer struct{}

func (plainRenderer) Render(src string) (string, error) { return src, nil }

// testEnv builds a content tree, loads it and returns the API router.
func testEnv(t *testing.T) http.Handler {
	t.Helper()
	dir := testutil.ContentDir(t)
	testutil.WriteFile(t, dir, "_index.md", testutil.Page("Home", "welcome"))
	testutil.WriteFile(t, dir, "about.md", testutil.Page("About", "me"))
	testutil.WriteFile(t, dir, "blog/2024-01-01-first.md", testutil.Post(false, `"go"`, "one"))
	testutil.WriteFile(t, dir, "blog/2024-02-01-second.md", testutil.Post(false, `"go"`, "two"))

	fsys, err := storage.NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	store := content.NewStore(fsys, plainRenderer{}, false, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	if _, err := store.LoadAll(); err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	return NewRouter(pageservice.NewService(store), nil)
}

func get(t *testing.T, h http.Handler, path string, v any) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if v != nil && w.Code == http.StatusOK {
		if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
			t.Fatalf("decode %s: %v (%s)", path, err, w.Body.String())
		}
	}
	return w.Code
}

func TestGetPage(t *testing.T) {
	router := testEnv(t)

	var home PageDetail
	if code := get(t, router, "/pages", &home); code != http.StatusOK {
		t.Fatalf("home status = %d", code)
	}
	if home.Title != "Home" || home.Kind != pageservice.KindIndex {
		t.Errorf("home = %+v", home)
	}

	var post PageDetail
	if code := get(t, router, "/pages/blog/2024-01-01-first", &post); code != http.StatusOK {
		t.Fatalf("post status = %d", code)
	}
	if post.Kind != pageservice.KindPost || post.Date != "2024-01-01" || len(post.Tags) != 1 {
		t.Errorf("post = %+v", post)
	}

	var encoded PageDetail
	if code := get(t, router, "/pages/blog%2F2024-02-01-second", &encoded); code != http.StatusOK {
		t.Fatalf("encoded status = %d", code)
	}
	if encoded.Path != "blog/2024-02-01-second" {
		t.Errorf("encoded path = %q", encoded.Path)
	}

	if code := get(t, router, "/pages/nope", nil); code != http.StatusNotFound {
		t.Errorf("missing status = %d, want 404", code)
	}
}

func TestGroups(t *testing.T) {
	router := testEnv(t)

	var list GroupListResponse
	get(t, router, "/groups", &list)
	if len(list.Groups) != 2 || list.Groups[0] != "" || list.Groups[1] != "blog" {
		t.Errorf("groups = %v", list.Groups)
	}

	var blog GroupDetail
	if code := get(t, router, "/groups/blog?limit=1", &blog); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if blog.Total != 2 || len(blog.Members) != 1 || blog.Members[0].Path != "blog/2024-02-01-second" {
		t.Errorf("blog = %+v", blog)
	}
	if blog.Index != nil {
		t.Error("blog has no index page")
	}

	var root GroupDetail
	if code := get(t, router, "/groups/_root", &root); code != http.StatusOK {
		t.Fatalf("root status = %d", code)
	}
	if root.Index == nil || root.Index.Title != "Home" || root.Total != 1 {
		t.Errorf("root = %+v", root)
	}

	if code := get(t, router, "/groups/Nope", nil); code != http.StatusBadRequest {
		t.Errorf("invalid group status = %d, want 400", code)
	}
	if code := get(t, router, "/groups/notes", nil); code != http.StatusNotFound {
		t.Errorf("missing group status = %d, want 404", code)
	}
}

func TestTags(t *testing.T) {
	router := testEnv(t)

	var list TagListResponse
	get(t, router, "/tags", &list)
	if len(list.Tags) != 1 || list.Tags[0] != "go" {
		t.Errorf("tags = %v", list.Tags)
	}

	var tag TagDetail
	if code := get(t, router, "/tags/go", &tag); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if tag.Total != 2 || tag.Posts[0].Date != "2024-02-01" {
		t.Errorf("tag = %+v", tag)
	}

	if code := get(t, router, "/tags/rust", nil); code != http.StatusNotFound {
		t.Errorf("missing tag status = %d, want 404", code)
	}
	if code := get(t, router, "/tags/Go1", nil); code != http.StatusBadRequest {
		t.Errorf("invalid tag status = %d, want 400", code)
	}
}

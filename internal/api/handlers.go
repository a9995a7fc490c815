package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/saffi/internal/apperr"
	"github.com/starford/saffi/internal/pageservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *pageservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *pageservice.Service) *Handler {
	return &Handler{svc: svc}
}

// pagePath extracts the public page path from the URL (everything after
// /pages/). Encoded slashes are accepted.
func pagePath(r *http.Request) string {
	raw := strings.Trim(chi.URLParam(r, "*"), "/")
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func paging(r *http.Request) (limit, offset int) {
	q := r.URL.Query()
	limit, _ = strconv.Atoi(q.Get("limit"))
	offset, _ = strconv.Atoi(q.Get("offset"))
	return limit, offset
}

// writeError maps service errors to status codes.
func writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrInvalidName):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// GetPage handles GET /_api/pages/*. An empty path is the home page.
func (h *Handler) GetPage(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.GetPage(r.Context(), pagePath(r))
	if err != nil {
		writeError(w, "get page", err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// ListGroups handles GET /_api/groups.
func (h *Handler) ListGroups(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, GroupListResponse{Groups: h.svc.ListGroups(r.Context())})
}

// GetRootGroup handles GET /_api/groups/_root. The underscore cannot appear in a group name.
func (h *Handler) GetRootGroup(w http.ResponseWriter, r *http.Request) {
	h.writeGroup(w, r, "")
}

// GetGroup handles GET /_api/groups/{group}.
func (h *Handler) GetGroup(w http.ResponseWriter, r *http.Request) {
	h.writeGroup(w, r, chi.URLParam(r, "group"))
}

func (h *Handler) writeGroup(w http.ResponseWriter, r *http.Request, name string) {
	limit, offset := paging(r)
	g, err := h.svc.GetGroup(r.Context(), name, limit, offset)
	if err != nil {
		writeError(w, "get group", err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// ListTags handles GET /_api/tags.
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, TagListResponse{Tags: h.svc.ListTags(r.Context())})
}

// GetTag handles GET /_api/tags/{tag}.
func (h *Handler) GetTag(w http.ResponseWriter, r *http.Request) {
	limit, offset := paging(r)
	tag, err := h.svc.GetTag(r.Context(), chi.URLParam(r, "tag"), limit, offset)
	if err != nil {
		writeError(w, "get tag", err)
		return
	}
	writeJSON(w, http.StatusOK, tag)
}

// Package api implements the read-only JSON content API using chi.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/saffi/internal/pageservice"
)

// NewRouter creates a chi router with all API routes mounted.
// sseHandler, if non-nil, is mounted at GET /events so API clients can follow content changes.
func NewRouter(svc *pageservice.Service, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()

	r.Get("/pages", h.GetPage)
	r.Get("/pages/*", h.GetPage)

	r.Get("/groups", h.ListGroups)
	r.Get("/groups/_root", h.GetRootGroup)
	r.Get("/groups/{group}", h.GetGroup)

	r.Get("/tags", h.ListTags)
	r.Get("/tags/{tag}", h.GetTag)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/othala/internal/docservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group;
// when it also implements EventPublisher the handlers broadcast through it.
func NewRouter(svc *docservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	events, _ := sseHandler.(EventPublisher)
	h := NewHandler(svc, events)
	ah := NewAttachmentHandler(svc.Manager())

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Document folder CRUD.
	r.Get("/documents", h.ListDocuments)
	r.Post("/documents", h.CreateDocument)
	r.Post("/documents/move", h.MoveDocument)
	r.Get("/documents/*", h.GetDocument)
	r.Put("/documents/*", h.UpdateDocument)
	r.Delete("/documents/*", h.DeleteDocument)

	// Folder metadata.
	r.Get("/metadata/*", h.Metadata)

	// Consolidation.
	r.Post("/consolidate", h.Consolidate)

	// Search.
	r.Get("/search", h.Search)

	// Attachments.
	r.Post("/attachments", ah.Upload)
	r.Get("/attachments/*", ah.ServeFile)

	// SSE endpoint (protected by the same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}

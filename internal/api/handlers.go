package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/othala/internal/docservice"
	"github.com/starford/othala/internal/index"
	"github.com/starford/othala/internal/models"
)

// EventPublisher receives document change notifications for broadcast to
// connected SSE clients.
type EventPublisher interface {
	PublishDocumentEvent(kind, path string)
}

// Handler holds API route handlers.
type Handler struct {
	svc    *docservice.Service
	events EventPublisher
}

// NewHandler creates a new Handler. events may be nil when no broadcast
// channel is wired.
func NewHandler(svc *docservice.Service, events EventPublisher) *Handler {
	return &Handler{svc: svc, events: events}
}

// folderPath extracts the document folder path from the URL wildcard.
// Supports encoded slashes from OpenAPI clients (e.g. Development%2FAPI-Doc).
func folderPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListDocuments handles GET /api/documents.
//
//	@Summary		List document folders with optional pagination and filtering
//	@Tags			documents
//	@Produce		json
//	@Param			limit		query		int		false	"Page size"
//	@Param			offset		query		int		false	"Page offset"
//	@Param			category	query		string	false	"Filter by category"
//	@Param			sort		query		string	false	"Sort field"	Enums(updated_at, title, path)
//	@Success		200			{object}	DocumentListResponse
//	@Security		BearerAuth
//	@Router			/documents [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.ListDocuments(r.Context(), limit, offset, q.Get("category"), q.Get("sort"))
	if err != nil {
		writeError(w, "list documents", err)
		return
	}
	if items == nil {
		items = []models.DocumentSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": items,
		"total":     total,
	})
}

// GetDocument handles GET /api/documents/*.
//
//	@Summary		Get a single document folder by path
//	@Tags			documents
//	@Produce		json
//	@Param			path	path		string	true	"Document folder path"
//	@Success		200		{object}	DocumentDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{path} [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	folder := folderPath(r)
	if folder == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	doc, err := h.svc.GetDocument(r.Context(), folder)
	if err != nil {
		writeError(w, "get document", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// CreateDocument handles POST /api/documents.
//
//	@Summary		Create a new document folder
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateDocumentRequest	true	"Document to create"
//	@Success		201		{object}	DocumentDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents [post]
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req CreateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Title == "" || req.Category == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("title and category are required"))
		return
	}
	doc, err := h.svc.CreateDocument(r.Context(), req.Title, req.Category, req.Content)
	if err != nil {
		writeError(w, "create document", err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// UpdateDocument handles PUT /api/documents/*.
//
//	@Summary		Update document content with optimistic concurrency
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			path		path	string					true	"Document folder path"
//	@Param			If-Match	header	string					false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body	UpdateDocumentRequest	true	"Updated content"
//	@Success		200			{object}	DocumentDetail
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{path} [put]
func (h *Handler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	folder := folderPath(r)
	if folder == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	var req UpdateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}

	// Strip surrounding quotes if present (standard ETag format).
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	doc, err := h.svc.UpdateContent(r.Context(), folder, req.Content, ifMatch)
	if err != nil {
		writeError(w, "update document", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// DeleteDocument handles DELETE /api/documents/*.
//
//	@Summary		Delete a document folder and all its attachments
//	@Tags			documents
//	@Param			path	path	string	true	"Document folder path"
//	@Success		204		"Document deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{path} [delete]
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	folder := folderPath(r)
	if folder == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.svc.DeleteDocument(r.Context(), folder); err != nil {
		writeError(w, "delete document", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MoveDocument handles POST /api/documents/move.
//
//	@Summary		Move a document folder, content and attachments together
//	@Tags			documents
//	@Accept			json
//	@Success		204		"Document moved"
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/move [post]
func (h *Handler) MoveDocument(w http.ResponseWriter, r *http.Request) {
	var req MoveDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Source == "" || req.Target == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("source and target are required"))
		return
	}
	if err := h.svc.MoveDocument(r.Context(), req.Source, req.Target); err != nil {
		writeError(w, "move document", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Metadata handles GET /api/metadata/*.
//
//	@Summary		Get document folder metadata
//	@Tags			documents
//	@Produce		json
//	@Param			path	path		string	true	"Document folder path"
//	@Success		200		{object}	MetadataResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/metadata/{path} [get]
func (h *Handler) Metadata(w http.ResponseWriter, r *http.Request) {
	folder := folderPath(r)
	if folder == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	meta, err := h.svc.Metadata(r.Context(), folder)
	if err != nil {
		writeError(w, "metadata", err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

// Consolidate handles POST /api/consolidate.
//
//	@Summary		Merge several document folders into one
//	@Tags			consolidate
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ConsolidateRequest	true	"Folders, topic, strategy"
//	@Success		200		{object}	ConsolidateResponse
//	@Failure		400		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/consolidate [post]
func (h *Handler) Consolidate(w http.ResponseWriter, r *http.Request) {
	var req ConsolidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	res, err := h.svc.Consolidate(r.Context(), req.DocumentFolders, req.Topic, req.Strategy, req.DryRun)
	if err != nil {
		writeError(w, "consolidate", err)
		return
	}
	if h.events != nil && res.ConsolidatedFolder != "" {
		h.events.PublishDocumentEvent("consolidated", res.ConsolidatedFolder)
	}
	writeJSON(w, http.StatusOK, res)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across documents
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	if results == nil {
		results = []index.SearchResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
	})
}

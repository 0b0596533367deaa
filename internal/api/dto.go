package api

import (
	"github.com/starford/othala/internal/consolidate"
	"github.com/starford/othala/internal/docservice"
	"github.com/starford/othala/internal/index"
	"github.com/starford/othala/internal/models"
)

// CreateDocumentRequest is the request body for creating a document folder.
type CreateDocumentRequest struct {
	Title    string `json:"title" example:"API Documentation" validate:"required"`
	Category string `json:"category" example:"Development" validate:"required"`
	Content  string `json:"content" example:"# API Documentation\nBody" validate:"required"`
}

// UpdateDocumentRequest is the request body for updating document content.
type UpdateDocumentRequest struct {
	Content string `json:"content" example:"# Updated\nContent" validate:"required"`
}

// MoveDocumentRequest is the request body for moving a document folder.
type MoveDocumentRequest struct {
	Source string `json:"source" example:"Development/API-Doc" validate:"required"`
	Target string `json:"target" example:"Archive/API-Doc" validate:"required"`
}

// ConsolidateRequest is the request body for a consolidation run.
type ConsolidateRequest struct {
	DocumentFolders []string `json:"document_folders" validate:"required"`
	Topic           string   `json:"topic" example:"Dev Guide" validate:"required"`
	Strategy        string   `json:"strategy" example:"simple_merge"`
	DryRun          bool     `json:"dry_run"`
}

// DocumentDetail is the full document response type (aliased from the domain layer).
type DocumentDetail = docservice.DocumentDetail

// DocumentListResponse wraps paginated document listings.
type DocumentListResponse struct {
	Documents []models.DocumentSummary `json:"documents" validate:"required"`
	Total     int                      `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// ConsolidateResponse is the consolidation result (aliased from the engine).
type ConsolidateResponse = consolidate.Result

// MetadataResponse is a document folder's metadata.
type MetadataResponse = models.DocumentFolderMetadata

// AttachmentUploadResponse is returned after a successful attachment upload.
type AttachmentUploadResponse struct {
	Filename string `json:"filename" example:"diagram.png" validate:"required"`
	Folder   string `json:"folder" example:"Development/API-Doc" validate:"required"`
	Size     int64  `json:"size" example:"12345" validate:"required"`
	Markdown string `json:"markdown" example:"![diagram.png](images/diagram.png)" validate:"required"`
}

// Package docservice coordinates the document folder manager, the
// consolidation engine, and the search index for the transport layers.
package docservice

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/checksum"
	"github.com/starford/othala/internal/consolidate"
	"github.com/starford/othala/internal/docfolder"
	"github.com/starford/othala/internal/index"
	"github.com/starford/othala/internal/markdown"
	"github.com/starford/othala/internal/models"
)

// DocumentDetail is the full representation of a document folder.
type DocumentDetail struct {
	Path      string    `json:"path"`
	Name      string    `json:"name"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	Content   string    `json:"content"`
	Checksum  string    `json:"checksum"`
	Images    []string  `json:"images"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Service coordinates manager, engine, and index operations.
type Service struct {
	mgr        *docfolder.Manager
	db         index.DocumentIndex
	engineOpts consolidate.Options
}

// NewService creates a new document service. engineOpts supplies the
// consolidation defaults (target category, similarity threshold); its DryRun
// field is overridden per call.
func NewService(mgr *docfolder.Manager, db index.DocumentIndex, engineOpts consolidate.Options) *Service {
	return &Service{mgr: mgr, db: db, engineOpts: engineOpts}
}

// Manager returns the underlying folder manager for collaborators that need
// direct folder access.
func (s *Service) Manager() *docfolder.Manager {
	return s.mgr
}

// GetDocument reads a document folder and builds its full representation.
func (s *Service) GetDocument(_ context.Context, folder string) (*DocumentDetail, error) {
	content, err := s.mgr.DocumentContent(folder)
	if err != nil {
		return nil, err
	}
	return s.buildDetail(folder, content)
}

// CreateDocument creates a new document folder and indexes it.
func (s *Service) CreateDocument(_ context.Context, title, category, content string) (*DocumentDetail, error) {
	folder, err := s.mgr.CreateDocumentFolder(title, category, content)
	if err != nil {
		return nil, err
	}
	if err := s.indexFolder(folder, content); err != nil {
		return nil, err
	}
	return s.buildDetail(folder, content)
}

// UpdateContent overwrites a document's primary content file with optimistic
// concurrency: a non-empty ifMatch must equal the current content checksum.
func (s *Service) UpdateContent(_ context.Context, folder, content, ifMatch string) (*DocumentDetail, error) {
	existing, err := s.mgr.DocumentContent(folder)
	if err != nil {
		return nil, err
	}
	if ifMatch != "" && ifMatch != checksum.Sum([]byte(existing)) {
		return nil, fmt.Errorf("docservice: %w: checksum mismatch", apperr.ErrConflict)
	}
	if err := s.mgr.UpdateDocumentContent(folder, content); err != nil {
		return nil, err
	}
	if err := s.indexFolder(folder, content); err != nil {
		return nil, err
	}
	return s.buildDetail(folder, content)
}

// DeleteDocument removes a document folder from disk and index.
func (s *Service) DeleteDocument(_ context.Context, folder string) error {
	if err := s.mgr.DeleteDocumentFolder(folder); err != nil {
		return err
	}
	return s.db.DeleteDocument(folder)
}

// MoveDocument moves a document folder and updates the index accordingly.
func (s *Service) MoveDocument(_ context.Context, src, dst string) error {
	if err := s.mgr.MoveDocumentFolder(src, dst); err != nil {
		return err
	}
	if err := s.db.DeleteDocument(src); err != nil {
		return err
	}
	content, err := s.mgr.DocumentContent(dst)
	if err != nil {
		return err
	}
	return s.indexFolder(dst, content)
}

// ListDocuments returns paginated documents with an optional category filter.
func (s *Service) ListDocuments(_ context.Context, limit, offset int, category, sort string) ([]models.DocumentSummary, int, error) {
	rows, total, err := s.db.ListDocuments(limit, offset, category, sort)
	if err != nil {
		return nil, 0, err
	}
	items := make([]models.DocumentSummary, len(rows))
	for i, r := range rows {
		items[i] = models.DocumentSummary{
			Path:      r.Path,
			Title:     r.Title,
			Category:  r.Category,
			Checksum:  r.Checksum,
			UpdatedAt: r.UpdatedAt,
		}
	}
	return items, total, nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// Metadata derives a folder's metadata from the file system.
func (s *Service) Metadata(_ context.Context, folder string) (*models.DocumentFolderMetadata, error) {
	return s.mgr.Metadata(folder)
}

// Consolidate merges the given document folders under a new topic folder.
// With dryRun nothing is written; the merged content is still returned. A
// materialized result is indexed before returning.
func (s *Service) Consolidate(ctx context.Context, folders []string, topic, strategyTag string, dryRun bool) (*consolidate.Result, error) {
	opts := s.engineOpts
	opts.DryRun = dryRun
	engine := consolidate.New(s.mgr, opts)

	if strategyTag == "" {
		strategyTag = opts.DefaultStrategy
	}
	res, err := engine.Consolidate(ctx, folders, topic, consolidate.ParseStrategy(strategyTag))
	if err != nil {
		return nil, err
	}
	if res.ConsolidatedFolder != "" {
		if err := s.indexFolder(res.ConsolidatedFolder, res.MergedContent); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// indexFolder parses content and upserts the folder into the index.
func (s *Service) indexFolder(folder, content string) error {
	doc := markdown.Parse([]byte(content))
	title := doc.Title
	if title == "" {
		title = markdown.HumanizeName(path.Base(folder))
	}
	category := path.Base(path.Dir(folder))
	if category == "." {
		category = ""
	}
	return s.db.UpsertDocument(index.DocumentRow{
		Path:      folder,
		Title:     title,
		Category:  category,
		Checksum:  checksum.Sum([]byte(content)),
		UpdatedAt: time.Now(),
	}, doc.Body)
}

// buildDetail constructs a DocumentDetail from content without re-reading it.
func (s *Service) buildDetail(folder, content string) (*DocumentDetail, error) {
	meta, err := s.mgr.Metadata(folder)
	if err != nil {
		return nil, err
	}
	doc := markdown.Parse([]byte(content))
	title := doc.Title
	if title == "" {
		title = markdown.HumanizeName(meta.Name)
	}
	images, err := s.listImages(folder)
	if err != nil {
		return nil, err
	}
	return &DocumentDetail{
		Path:      meta.Path,
		Name:      meta.Name,
		Title:     title,
		Category:  meta.Category,
		Content:   content,
		Checksum:  checksum.Sum([]byte(content)),
		Images:    images,
		UpdatedAt: meta.ModifiedAt,
	}, nil
}

// listImages returns the file names in the folder's attachments directory.
func (s *Service) listImages(folder string) ([]string, error) {
	store := s.mgr.Store()
	dir := path.Join(folder, docfolder.ImagesDirName)
	out := []string{}
	if !store.DirExists(dir) {
		return out, nil
	}
	entries, err := store.ListDir(dir)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if !e.IsDir() {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

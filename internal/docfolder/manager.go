// Package docfolder recognizes, enumerates, and atomically manipulates
// document folders: a directory holding exactly one primary content file and
// an attachments directory, treated as one unit. It is the sole authority on
// what counts as a document.
package docfolder

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/folderstore"
	"github.com/starford/othala/internal/models"
)

const (
	// ImagesDirName is the fixed name of the attachments directory.
	ImagesDirName = "images"
	// legacyMainFile is accepted for folders that predate the
	// <folder-name>.md naming convention.
	legacyMainFile = "index.md"
)

// Manager manipulates document folders on top of a folderstore.Store.
// All paths are relative to the library root, e.g. "Development/API-Doc".
type Manager struct {
	store *folderstore.Store
}

// NewManager creates a Manager over the given store.
func NewManager(store *folderstore.Store) *Manager {
	return &Manager{store: store}
}

// Store exposes the underlying store for collaborators that serve raw files.
func (m *Manager) Store() *folderstore.Store {
	return m.store
}

// mainFileCandidates returns the primary content file names to probe, in
// priority order. Both naming conventions live here and nowhere else.
func mainFileCandidates(folderName string) []string {
	return []string{folderName + ".md", legacyMainFile}
}

// MainDocumentFile resolves the primary content file of the folder at rel.
// It returns the file path relative to the library root and true, or ""
// and false when no candidate exists. It never returns an error.
func (m *Manager) MainDocumentFile(rel string) (string, bool) {
	name := path.Base(filepath.ToSlash(rel))
	if name == "." || name == "/" || name == "" {
		return "", false
	}
	for _, candidate := range mainFileCandidates(name) {
		p := path.Join(filepath.ToSlash(rel), candidate)
		if m.store.FileExists(p) {
			return p, true
		}
	}
	return "", false
}

// IsDocumentFolder reports whether rel is a valid document folder: a
// directory containing a primary content file. The attachments directory is
// not required. A missing path is simply false.
func (m *Manager) IsDocumentFolder(rel string) bool {
	if !m.store.DirExists(rel) {
		return false
	}
	_, ok := m.MainDocumentFile(rel)
	return ok
}

// ImagesFolder returns the attachments directory path of the folder at rel.
// With createIfMissing it creates the directory; creation is idempotent and
// "already exists" is never an error.
func (m *Manager) ImagesFolder(rel string, createIfMissing bool) (string, error) {
	dir := path.Join(filepath.ToSlash(rel), ImagesDirName)
	if createIfMissing {
		if err := m.store.MkdirAll(dir); err != nil {
			return "", err
		}
	}
	return dir, nil
}

// DocumentContent reads the primary content file of the folder at rel.
func (m *Manager) DocumentContent(rel string) (string, error) {
	mainFile, ok := m.MainDocumentFile(rel)
	if !ok {
		return "", fmt.Errorf("docfolder: %w: no document at %s", apperr.ErrNotFound, rel)
	}
	data, err := m.store.ReadFile(mainFile)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// UpdateDocumentContent overwrites the primary content file in place.
// Attachments are not touched.
func (m *Manager) UpdateDocumentContent(rel, content string) error {
	mainFile, ok := m.MainDocumentFile(rel)
	if !ok {
		return fmt.Errorf("docfolder: %w: no document at %s", apperr.ErrNotFound, rel)
	}
	return m.store.WriteFile(mainFile, []byte(content))
}

// CreateDocumentFolder creates <category>/<sanitized title>/ with the primary
// content file and an empty attachments directory. It fails with ErrConflict
// when the target folder already exists.
func (m *Manager) CreateDocumentFolder(title, category, content string) (string, error) {
	if strings.TrimSpace(title) == "" {
		return "", fmt.Errorf("docfolder: %w: title is required", apperr.ErrInvalidArgument)
	}
	if strings.TrimSpace(category) == "" {
		return "", fmt.Errorf("docfolder: %w: category is required", apperr.ErrInvalidArgument)
	}
	name := SanitizeFolderName(title)
	catName := SanitizeFolderName(category)

	folder := path.Join(catName, name)
	if m.store.DirExists(folder) {
		return "", fmt.Errorf("docfolder: %w: folder already exists: %s", apperr.ErrConflict, folder)
	}
	if err := m.store.MkdirAll(folder); err != nil {
		return "", err
	}
	if err := m.store.WriteFile(path.Join(folder, name+".md"), []byte(content)); err != nil {
		return "", err
	}
	if _, err := m.ImagesFolder(folder, true); err != nil {
		return "", err
	}
	return folder, nil
}

// MoveDocumentFolder atomically moves the whole folder, content file and
// attachments together, from src to dst.
func (m *Manager) MoveDocumentFolder(src, dst string) error {
	if !m.IsDocumentFolder(src) {
		return fmt.Errorf("docfolder: %w: not a document folder: %s", apperr.ErrNotFound, src)
	}
	if m.store.DirExists(dst) {
		return fmt.Errorf("docfolder: %w: target already exists: %s", apperr.ErrConflict, dst)
	}
	if err := m.store.MoveTree(src, dst); err != nil {
		return err
	}
	// The primary content file is named after the folder; a rename to a new
	// folder name must carry the convention along.
	srcName := path.Base(filepath.ToSlash(src))
	dstName := path.Base(filepath.ToSlash(dst))
	if srcName != dstName {
		old := path.Join(filepath.ToSlash(dst), srcName+".md")
		if m.store.FileExists(old) {
			if err := m.store.MoveTree(old, path.Join(filepath.ToSlash(dst), dstName+".md")); err != nil {
				return err
			}
		}
	}
	return nil
}

// DeleteDocumentFolder removes the whole subtree: content file, attachments
// directory, everything. Nothing is left behind.
func (m *Manager) DeleteDocumentFolder(rel string) error {
	if !m.IsDocumentFolder(rel) {
		return fmt.Errorf("docfolder: %w: not a document folder: %s", apperr.ErrNotFound, rel)
	}
	return m.store.RemoveTree(rel)
}

// FindDocumentFolders walks the tree under root (library-relative; "" for the
// whole library). A directory is classified as a document folder as soon as
// IsDocumentFolder is true for it and is then not descended into, so its
// attachments directory is never reported as a document itself.
func (m *Manager) FindDocumentFolders(root string, recursive bool) ([]string, error) {
	if root != "" && m.IsDocumentFolder(root) {
		return []string{filepath.ToSlash(path.Clean(root))}, nil
	}
	var out []string
	if err := m.collectFolders(root, recursive, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *Manager) collectFolders(dir string, recursive bool, out *[]string) error {
	entries, err := m.store.ListDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		sub := path.Join(filepath.ToSlash(dir), e.Name())
		if m.IsDocumentFolder(sub) {
			*out = append(*out, sub)
			continue
		}
		if recursive {
			if err := m.collectFolders(sub, true, out); err != nil {
				return err
			}
		}
	}
	return nil
}

// Metadata derives a folder's metadata: category from the parent directory
// name, timestamps from file-system stat info, image count from the
// attachments directory listing.
func (m *Manager) Metadata(rel string) (*models.DocumentFolderMetadata, error) {
	mainFile, ok := m.MainDocumentFile(rel)
	if !ok {
		return nil, fmt.Errorf("docfolder: %w: not a document folder: %s", apperr.ErrNotFound, rel)
	}
	clean := filepath.ToSlash(path.Clean(rel))
	name := path.Base(clean)
	category := path.Base(path.Dir(clean))
	if category == "." || category == "/" {
		category = ""
	}

	folderInfo, err := m.store.Stat(clean)
	if err != nil {
		return nil, err
	}
	fileInfo, err := m.store.Stat(mainFile)
	if err != nil {
		return nil, err
	}

	imageCount := 0
	imagesDir := path.Join(clean, ImagesDirName)
	if m.store.DirExists(imagesDir) {
		entries, err := m.store.ListDir(imagesDir)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if !e.IsDir() {
				imageCount++
			}
		}
	}

	return &models.DocumentFolderMetadata{
		Path:       clean,
		Name:       name,
		Category:   category,
		MainFile:   mainFile,
		ImageCount: imageCount,
		CreatedAt:  folderInfo.ModTime(),
		ModifiedAt: fileInfo.ModTime(),
	}, nil
}

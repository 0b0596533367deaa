package api

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/starford/othala/internal/docfolder"
)

const maxUploadBytes = 50 << 20 // 50 MB

// AttachmentHandler serves and accepts attachment files. Every attachment
// lives inside some document folder's images directory; there is no shared
// attachment pool.
type AttachmentHandler struct {
	mgr *docfolder.Manager
}

// NewAttachmentHandler creates a handler over the folder manager.
func NewAttachmentHandler(mgr *docfolder.Manager) *AttachmentHandler {
	return &AttachmentHandler{mgr: mgr}
}

// safeName validates that the filename is a plain name (no path separators,
// no traversal).
func safeName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("filename is required")
	}
	cleaned := filepath.Clean(name)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("invalid filename: %s", name)
	}
	return cleaned, nil
}

// ServeFile handles GET /api/attachments/*, where the wildcard is
// "<folder path>/images/<filename>".
func (h *AttachmentHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	rel := folderPath(r)
	dir, file := path.Split(rel)
	dir = strings.TrimSuffix(dir, "/")
	if path.Base(dir) != docfolder.ImagesDirName {
		http.Error(w, "not an attachment path", http.StatusBadRequest)
		return
	}
	folder := path.Dir(dir)
	if !h.mgr.IsDocumentFolder(folder) {
		http.NotFound(w, r)
		return
	}
	if _, err := safeName(file); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	abs, err := h.mgr.Store().Abs(rel)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, statErr := os.Stat(abs); os.IsNotExist(statErr) {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, abs)
}

// Upload handles POST /api/attachments (multipart/form-data, fields "folder"
// and "file"). The file lands in the folder's images directory, which is
// created on demand.
func (h *AttachmentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	folder := r.FormValue("folder")
	if folder == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'folder' field"))
		return
	}
	if !h.mgr.IsDocumentFolder(folder) {
		writeJSON(w, http.StatusNotFound, errorBody("not a document folder: "+folder))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	name, err := safeName(header.Filename)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	imagesDir, err := h.mgr.ImagesFolder(folder, true)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to create images dir"))
		return
	}

	abs, err := h.mgr.Store().Abs(path.Join(imagesDir, name))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	dst, err := os.Create(abs)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to create file"))
		return
	}
	defer dst.Close()

	written, err := io.Copy(dst, file)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to write file"))
		return
	}

	writeJSON(w, http.StatusCreated, AttachmentUploadResponse{
		Filename: name,
		Folder:   folder,
		Size:     written,
		Markdown: fmt.Sprintf("![%s](images/%s)", name, name),
	})
}

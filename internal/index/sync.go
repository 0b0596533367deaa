package index

import (
	"log/slog"
	"path"
	"time"

	"github.com/starford/othala/internal/checksum"
	"github.com/starford/othala/internal/docfolder"
	"github.com/starford/othala/internal/markdown"
)

// Sync walks the library and brings the index up to date:
//   - new/changed document folders are parsed and upserted
//   - folders removed from disk are deleted from the index
func Sync(db *DB, mgr *docfolder.Manager, logger *slog.Logger) error {
	folders, err := mgr.FindDocumentFolders("", true)
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(folders))
	for _, folder := range folders {
		disk[folder] = struct{}{}

		content, err := mgr.DocumentContent(folder)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", folder), slog.String("error", err.Error()))
			continue
		}
		cs := checksum.Sum([]byte(content))
		if checksums[folder] == cs {
			continue
		}

		if err := indexFolder(db, folder, content, cs); err != nil {
			logger.Warn("sync: index failed", slog.String("path", folder), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", folder))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteDocument(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// indexFolder parses content and upserts the folder into the DB.
func indexFolder(db *DB, folder, content, cs string) error {
	doc := markdown.Parse([]byte(content))
	title := doc.Title
	if title == "" {
		title = markdown.HumanizeName(path.Base(folder))
	}
	category := path.Base(path.Dir(folder))
	if category == "." {
		category = ""
	}
	return db.UpsertDocument(DocumentRow{
		Path:      folder,
		Title:     title,
		Category:  category,
		Checksum:  cs,
		UpdatedAt: time.Now(),
	}, doc.Body)
}

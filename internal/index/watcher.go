package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/othala/internal/checksum"
	"github.com/starford/othala/internal/docfolder"
)

// EventCallback is called after a watcher-driven index change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, path string)

// Watch starts an fsnotify watcher on the library root and processes file
// change events until ctx is cancelled. Events on a primary content file are
// attributed to its document folder. It calls cb (if non-nil) after each
// successful index mutation.
//
// New directories created at runtime are automatically added to the watch
// list. Remove and rename events trigger a debounced reconciliation pass
// that drops stale index entries and picks up moved folders.
func Watch(ctx context.Context, db *DB, mgr *docfolder.Manager, libraryRoot string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, libraryRoot); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", libraryRoot))

	// reconcileTimer debounces reconciliation after removes and renames.
	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcile(db, mgr, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			// New directories: watch them and index documents already inside.
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					}
					scheduleReconcile()
					continue
				}
			}

			// Only content files matter from here on.
			if !strings.HasSuffix(absPath, ".md") {
				continue
			}

			folder, ok := folderOf(libraryRoot, absPath)
			if !ok {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				if !mgr.IsDocumentFolder(folder) {
					continue
				}
				content, readErr := mgr.DocumentContent(folder)
				if readErr != nil {
					logger.Warn("watcher: read failed", slog.String("path", folder), slog.String("error", readErr.Error()))
					continue
				}
				kind := "updated"
				if ev.Op&fsnotify.Create != 0 {
					kind = "created"
				}
				if idxErr := indexFolder(db, folder, content, checksum.Sum([]byte(content))); idxErr != nil {
					logger.Warn("watcher: index failed", slog.String("path", folder), slog.String("error", idxErr.Error()))
					continue
				}
				logger.Debug("watcher: indexed", slog.String("path", folder), slog.String("op", kind))
				if cb != nil {
					cb(kind, folder)
				}

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// The folder may be gone entirely or just renamed; a
				// reconciliation pass sorts out both.
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// folderOf maps a content file's absolute path to its library-relative
// document folder path.
func folderOf(libraryRoot, absFile string) (string, bool) {
	rel, err := filepath.Rel(libraryRoot, filepath.Dir(absFile))
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// reconcile does a lightweight sync using batch lookups: index entries
// without a folder on disk are removed, and on-disk folders whose checksum
// differs are re-indexed.
func reconcile(db *DB, mgr *docfolder.Manager, logger *slog.Logger, cb EventCallback) {
	checksums, err := db.AllChecksums()
	if err != nil {
		logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}

	folders, err := mgr.FindDocumentFolders("", true)
	if err != nil {
		logger.Warn("reconcile: find folders failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]struct{}, len(folders))
	for _, folder := range folders {
		disk[folder] = struct{}{}
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if delErr := db.DeleteDocument(p); delErr == nil {
				logger.Debug("reconcile: removed stale", slog.String("path", p))
				if cb != nil {
					cb("deleted", p)
				}
			}
		}
	}

	for _, folder := range folders {
		content, readErr := mgr.DocumentContent(folder)
		if readErr != nil {
			continue
		}
		cs := checksum.Sum([]byte(content))
		if checksums[folder] == cs {
			continue
		}
		if idxErr := indexFolder(db, folder, content, cs); idxErr == nil {
			logger.Debug("reconcile: indexed", slog.String("path", folder))
			if cb != nil {
				cb("created", folder)
			}
		}
	}
}

// addDirsRecursive adds dir and every subdirectory to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.IsDir() {
			return nil
		}
		if p != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(p)
	})
}

// Package folderstore is the low-level file-system primitive under the
// document folder layer. All paths are relative to the library root and are
// resolved through a traversal guard before touching the disk.
package folderstore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// Store provides file and directory operations rooted at the library directory.
type Store struct {
	root string // absolute path to library directory
}

// New creates a Store rooted at the given directory. The directory must
// already exist.
func New(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("folderstore: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("folderstore: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("folderstore: root is not a directory: %s", abs)
	}
	return &Store{root: abs}, nil
}

// Root returns the absolute library root path.
func (s *Store) Root() string {
	return s.root
}

// Abs resolves a relative path against the library root and rejects any
// result that escapes it (directory traversal).
func (s *Store) Abs(rel string) (string, error) {
	if rel == "" {
		return s.root, nil
	}
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("folderstore: absolute paths not allowed: %s", rel)
	}
	joined := filepath.Join(s.root, cleaned)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("folderstore: resolve path: %w", err)
	}
	// Ensure the resolved path is still under root.
	if !strings.HasPrefix(abs, s.root+string(os.PathSeparator)) && abs != s.root {
		return "", fmt.Errorf("folderstore: path escapes library root: %s", rel)
	}
	return abs, nil
}

// DirExists reports whether rel resolves to an existing directory.
func (s *Store) DirExists(rel string) bool {
	abs, err := s.Abs(rel)
	if err != nil {
		return false
	}
	info, err := os.Stat(abs)
	return err == nil && info.IsDir()
}

// FileExists reports whether rel resolves to an existing regular file.
func (s *Store) FileExists(rel string) bool {
	abs, err := s.Abs(rel)
	if err != nil {
		return false
	}
	info, err := os.Stat(abs)
	return err == nil && info.Mode().IsRegular()
}

// Stat returns file info for rel.
func (s *Store) Stat(rel string) (os.FileInfo, error) {
	abs, err := s.Abs(rel)
	if err != nil {
		return nil, err
	}
	return os.Stat(abs)
}

// ListDir returns the directory entries of rel.
func (s *Store) ListDir(rel string) ([]os.DirEntry, error) {
	abs, err := s.Abs(rel)
	if err != nil {
		return nil, err
	}
	return os.ReadDir(abs)
}

// MkdirAll creates the directory rel and any missing parents. An already
// existing directory is not an error.
func (s *Store) MkdirAll(rel string) error {
	abs, err := s.Abs(rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return fmt.Errorf("folderstore: mkdir %s: %w", rel, err)
	}
	return nil
}

// ReadFile returns the raw bytes of a file in the library.
func (s *Store) ReadFile(rel string) ([]byte, error) {
	abs, err := s.Abs(rel)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("folderstore: read %s: %w", rel, err)
	}
	return data, nil
}

// WriteFile atomically writes content: tmp file → fsync → rename.
func (s *Store) WriteFile(rel string, content []byte) error {
	abs, err := s.Abs(rel)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("folderstore: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".othala-tmp-*")
	if err != nil {
		return fmt.Errorf("folderstore: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("folderstore: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("folderstore: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("folderstore: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("folderstore: rename: %w", err)
	}
	success = true
	return nil
}

// RemoveTree recursively removes the directory rel and everything under it.
func (s *Store) RemoveTree(rel string) error {
	abs, err := s.Abs(rel)
	if err != nil {
		return err
	}
	if abs == s.root {
		return fmt.Errorf("folderstore: refusing to remove library root")
	}
	if err := os.RemoveAll(abs); err != nil {
		return fmt.Errorf("folderstore: remove %s: %w", rel, err)
	}
	return nil
}

// MoveTree renames the directory src to dst. When the rename fails because
// src and dst are on different file systems it falls back to copying the
// whole subtree and then removing the source. If the final removal fails the
// copied target is left in place and the error is returned: a leftover
// duplicate is preferable to data loss.
func (s *Store) MoveTree(src, dst string) error {
	absSrc, err := s.Abs(src)
	if err != nil {
		return err
	}
	absDst, err := s.Abs(dst)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(absDst), 0o755); err != nil {
		return fmt.Errorf("folderstore: mkdir for move: %w", err)
	}

	if err := os.Rename(absSrc, absDst); err == nil {
		return nil
	} else if !isCrossDevice(err) {
		return fmt.Errorf("folderstore: move: %w", err)
	}

	// Cross-device fallback: copy everything first, remove source last.
	if err := copyTree(absSrc, absDst); err != nil {
		_ = os.RemoveAll(absDst)
		return fmt.Errorf("folderstore: move fallback copy: %w", err)
	}
	if err := os.RemoveAll(absSrc); err != nil {
		return fmt.Errorf("folderstore: move fallback: source not removed, target kept at %s: %w", dst, err)
	}
	return nil
}

// isCrossDevice reports whether a rename failed because source and target
// live on different file systems.
func isCrossDevice(err error) bool {
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) {
		return false
	}
	return errors.Is(linkErr.Err, syscall.EXDEV)
}

// copyTree recursively copies the directory src to dst, preserving file modes.
func copyTree(src, dst string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return err
	}
	for _, e := range entries {
		from := filepath.Join(src, e.Name())
		to := filepath.Join(dst, e.Name())
		if e.IsDir() {
			if err := copyTree(from, to); err != nil {
				return err
			}
			continue
		}
		if err := copyFile(from, to); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

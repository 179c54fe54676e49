// Package filestore persists whole-file snapshots with backup-on-change.
//
// A save writes the new content to a temporary sibling, syncs it, compares it
// with the current canonical file and then promotes it with a rename. When the
// content changed the previous canonical file is archived under a timestamped
// name; when it did not, the previous file is simply replaced.
package filestore

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"vintage-stats/internal/constants"
)

const archiveTimeLayout = "20060102T150405.000000000"

type Outcome int

const (
	// Bootstrap means no canonical file existed before this save.
	Bootstrap Outcome = iota
	Unchanged
	Changed
)

func (o Outcome) String() string {
	switch o {
	case Bootstrap:
		return "bootstrap"
	case Unchanged:
		return "unchanged"
	case Changed:
		return "changed"
	default:
		return "unknown"
	}
}

type Result struct {
	Path       string
	Outcome    Outcome
	ArchivedTo string
}

// Store saves files under a clock so archive names are testable.
type Store struct {
	now func() time.Time
}

func New() *Store {
	return &Store{now: time.Now}
}

func NewWithClock(now func() time.Time) *Store {
	return &Store{now: now}
}

// Read returns the canonical file content. A missing file yields fs.ErrNotExist.
func (s *Store) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *Store) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (s *Store) Save(path string, data []byte) (Result, error) {
	result := Result{Path: path}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, constants.DirMode); err != nil {
		return result, fmt.Errorf("filestore: create directory %q: %w", dir, err)
	}

	tmpPath, err := writeTemp(path, data)
	if err != nil {
		return result, err
	}

	previous, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		result.Outcome = Bootstrap
	case err != nil:
		_ = os.Remove(tmpPath)
		return result, fmt.Errorf("filestore: read %q: %w", path, err)
	case bytes.Equal(previous, data):
		result.Outcome = Unchanged
	default:
		result.Outcome = Changed
		archive := s.ArchivePath(path)
		if err := os.Rename(path, archive); err != nil {
			_ = os.Remove(tmpPath)
			return result, fmt.Errorf("filestore: archive %q: %w", path, err)
		}
		result.ArchivedTo = archive
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return result, fmt.Errorf("filestore: promote %q: %w", path, err)
	}
	return result, nil
}

// ArchivePath is "<dir>/<stem>_<timestamp><ext>" for path.
func (s *Store) ArchivePath(path string) string {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	stamp := s.now().UTC().Format(archiveTimeLayout)
	candidate := fmt.Sprintf("%s_%s%s", stem, stamp, ext)
	for i := 1; ; i++ {
		if _, err := os.Stat(candidate); err != nil {
			return candidate
		}
		candidate = fmt.Sprintf("%s_%s_%d%s", stem, stamp, i, ext)
	}
}

// Archives lists archived siblings of path, oldest first.
func (s *Store) Archives(path string) ([]string, error) {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	matches, err := filepath.Glob(stem + "_*" + ext)
	if err != nil {
		return nil, err
	}
	var archives []string
	for _, m := range matches {
		if strings.HasPrefix(strings.TrimPrefix(m, stem+"_"), "new") {
			continue
		}
		archives = append(archives, m)
	}
	return archives, nil
}

func writeTemp(path string, data []byte) (string, error) {
	ext := filepath.Ext(path)
	pattern := strings.TrimSuffix(filepath.Base(path), ext) + "_new*" + ext
	f, err := os.CreateTemp(filepath.Dir(path), pattern)
	if err != nil {
		return "", fmt.Errorf("filestore: create temp file: %w", err)
	}
	tmpPath := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("filestore: write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("filestore: sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("filestore: close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, constants.FileMode); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("filestore: chmod temp file: %w", err)
	}
	return tmpPath, nil
}

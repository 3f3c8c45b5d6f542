package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileStore keeps each entry as <dir>/<namespace>/<key><ext>. Entries are
// written to a temporary file and renamed into place, so readers never see a
// partial write and concurrent writers of one key need no lock.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	trimmed := strings.TrimSpace(dir)
	if trimmed == "" {
		return nil, errors.New("cache dir is required")
	}
	for _, ns := range []Namespace{NamespaceHTML, NamespaceText, NamespaceResults} {
		if err := os.MkdirAll(filepath.Join(trimmed, string(ns)), 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir %q: %w", ns, err)
		}
	}
	return &FileStore{dir: trimmed}, nil
}

func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(ns Namespace, key string) (string, error) {
	if err := ns.validate(); err != nil {
		return "", err
	}
	if err := validateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, string(ns), key+ns.extension()), nil
}

func (s *FileStore) Exists(_ context.Context, ns Namespace, key string) (bool, error) {
	path, err := s.path(ns, key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat cache entry: %w", err)
}

func (s *FileStore) Read(_ context.Context, ns Namespace, key string) ([]byte, error) {
	path, err := s.path(ns, key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read cache entry: %w", err)
	}
	return data, nil
}

func (s *FileStore) Write(_ context.Context, ns Namespace, key string, data []byte) error {
	path, err := s.path(ns, key)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+key+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp cache file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename cache file: %w", err)
	}
	return nil
}

// Prune removes entries last modified before olderThan, plus any temp files
// left behind by interrupted writes.
func (s *FileStore) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	removed := 0
	for _, ns := range []Namespace{NamespaceHTML, NamespaceText, NamespaceResults} {
		entries, err := os.ReadDir(filepath.Join(s.dir, string(ns)))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return removed, fmt.Errorf("list cache dir %q: %w", ns, err)
		}
		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				return removed, err
			}
			if entry.IsDir() {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			if !info.ModTime().Before(olderThan) {
				continue
			}
			if err := os.Remove(filepath.Join(s.dir, string(ns), entry.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return removed, fmt.Errorf("remove cache entry: %w", err)
			}
			removed++
		}
	}
	return removed, nil
}

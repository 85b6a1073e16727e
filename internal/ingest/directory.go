package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FSSource serves documents from a local directory tree.
type FSSource struct {
	root       string
	skipHidden bool
	log        *slog.Logger
}

var _ Source = (*FSSource)(nil)

func NewFSSource(root string, skipHidden bool, logger *slog.Logger) *FSSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSSource{root: root, skipHidden: skipHidden, log: logger}
}

func (s *FSSource) Name() string { return "fs" }

func (s *FSSource) Root() string { return s.root }

// Read accepts an absolute path, or a path relative to the source root.
func (s *FSSource) Read(ctx context.Context, locator string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := locator
	if !filepath.IsAbs(path) && s.root != "" {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = filepath.Join(s.root, locator)
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		s.log.Error("ingest.fs.read_error", "locator", locator, "error", err)
		return nil, fmt.Errorf("read %s: %w", locator, err)
	}
	s.log.Debug("ingest.fs.read_ok", "locator", locator, "bytes", len(data))
	return data, nil
}

func (s *FSSource) List(ctx context.Context) ([]string, error) {
	paths, stats, err := ListDocuments(ctx, s.root, s.skipHidden)
	if err != nil {
		return nil, err
	}
	s.log.Info("ingest.fs.list_ok",
		"root", s.root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"hidden", stats.Hidden,
		"failed", stats.Failed,
	)
	return paths, nil
}

// ListDocuments walks root and returns the PDF paths under it, sorted.
// Unreadable entries are counted in stats and skipped.
func ListDocuments(ctx context.Context, root string, skipHidden bool) ([]string, DirStats, error) {
	var stats DirStats
	if strings.TrimSpace(root) == "" {
		return nil, stats, errors.New("root path is required")
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, stats, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, stats, fmt.Errorf("%s is not a directory", root)
	}

	var out []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			stats.Hidden++
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !allowedPath(path) {
			return nil
		}
		stats.Matched++
		out = append(out, path)
		return nil
	})
	if err != nil {
		return out, stats, fmt.Errorf("walk: %w", err)
	}
	sort.Strings(out)
	return out, stats, nil
}

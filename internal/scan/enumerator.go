// Package scan enumerates candidate interface and statement files under the
// project root. Enumeration is a pure read: no caching, no content
// inspection, just extension and exclusion filtering.
package scan

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/Greenplumwine/mbnav/internal/config"
	"github.com/Greenplumwine/mbnav/internal/debug"
	"github.com/Greenplumwine/mbnav/internal/types"
)

// Enumerator walks the workspace for files of the two tracked extensions.
type Enumerator struct {
	cfg      *config.Config
	excludes []string
}

// NewEnumerator creates an enumerator for the configured workspace.
func NewEnumerator(cfg *config.Config) *Enumerator {
	excludes := make([]string, 0, len(cfg.Exclude))
	for _, pattern := range cfg.Exclude {
		if cfg.Scan.IncludeTestDirs && strings.Contains(pattern, "/test/") {
			continue
		}
		excludes = append(excludes, pattern)
	}
	return &Enumerator{cfg: cfg, excludes: excludes}
}

// InterfaceFiles returns candidate .java files. A limit <= 0 means unbounded
// (full rescan); UI-triggered quick checks pass the configured cap.
func (e *Enumerator) InterfaceFiles(ctx context.Context, limit int) ([]string, error) {
	return e.enumerate(ctx, types.InterfaceExt, limit)
}

// StatementFiles returns candidate .xml files under the same rules.
func (e *Enumerator) StatementFiles(ctx context.Context, limit int) ([]string, error) {
	return e.enumerate(ctx, types.StatementExt, limit)
}

// errLimitReached stops the walk early once enough results are collected.
var errLimitReached = filepath.SkipAll

func (e *Enumerator) enumerate(ctx context.Context, ext string, limit int) ([]string, error) {
	root := e.cfg.Project.Root
	var results []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && e.excludedDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if !strings.EqualFold(filepath.Ext(path), ext) {
			return nil
		}
		if e.excludedFile(rel) {
			return nil
		}
		if info, err := d.Info(); err == nil && info.Size() > e.cfg.Scan.MaxFileSize {
			debug.LogResolve("skipping oversized file %s (%d bytes)\n", path, info.Size())
			return nil
		}

		results = append(results, path)
		if limit > 0 && len(results) >= limit {
			return errLimitReached
		}
		return nil
	})

	if err != nil && err != errLimitReached {
		return results, err
	}
	return results, nil
}

// excludedDir matches directory paths against the exclusion patterns with the
// trailing /** stripped, so "**/target/**" prunes the target directory itself.
func (e *Enumerator) excludedDir(rel string) bool {
	for _, pattern := range e.excludes {
		dirPattern := strings.TrimSuffix(pattern, "/**")
		if matched, _ := doublestar.Match(dirPattern, rel); matched {
			return true
		}
	}
	return false
}

func (e *Enumerator) excludedFile(rel string) bool {
	for _, pattern := range e.excludes {
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return true
		}
	}
	return false
}

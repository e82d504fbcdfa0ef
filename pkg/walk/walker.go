// Package walk enumerates the files under a source root that are eligible
// for import rewriting.
package walk

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/src-d/enry/v2"

	"github.com/Sumatoshi-tech/relimport/pkg/config"
)

// gitDir is never descended into.
const gitDir = ".git"

// Options configures a [Walker].
type Options struct {
	// Extensions are the file name suffixes to visit.
	Extensions []string
	// SkipVendor skips directories enry classifies as vendored (node_modules, vendor, ...).
	SkipVendor bool
	// MaxFileSize skips files larger than this many bytes. Zero means no limit.
	MaxFileSize uint64
}

// OptionsFromConfig derives walker options from the loaded configuration.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	maxSize, err := cfg.MaxFileSizeBytes()
	if err != nil {
		return Options{}, err
	}

	return Options{
		Extensions:  cfg.Extensions,
		SkipVendor:  cfg.SkipVendor,
		MaxFileSize: maxSize,
	}, nil
}

// Stats counts what a walk saw.
type Stats struct {
	Visited int
	Skipped int
}

// VisitFunc is called once per eligible file.
type VisitFunc func(ctx context.Context, path string) error

// Walker recursively visits eligible files under a root.
type Walker struct {
	opts   Options
	logger *slog.Logger
}

// New creates a Walker. A nil logger discards debug output.
func New(opts Options, logger *slog.Logger) *Walker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Walker{opts: opts, logger: logger}
}

// Walk visits every eligible file under root in lexical order. A missing or
// unreadable root yields no files and no error. A root that is a symlink to a
// directory is followed, and visited paths keep root as their prefix. Walk
// stops early when ctx is canceled or visit returns an error.
func (w *Walker) Walk(ctx context.Context, root string, visit VisitFunc) (Stats, error) {
	var stats Stats

	walkRoot, err := resolveRoot(root)
	if err != nil {
		return stats, fmt.Errorf("walk %s: %w", root, err)
	}

	err = filepath.WalkDir(walkRoot, func(path string, entry fs.DirEntry, walkErr error) error {
		skip, skipErr := w.ShouldSkip(walkRoot, path, entry, walkErr)
		if skip || skipErr != nil {
			return skipErr
		}

		if w.tooLarge(path, entry) {
			stats.Skipped++

			return nil
		}

		ctxErr := ctx.Err()
		if ctxErr != nil {
			return ctxErr
		}

		stats.Visited++

		return visit(ctx, underRoot(root, walkRoot, path))
	})
	if err != nil {
		return stats, fmt.Errorf("walk %s: %w", root, err)
	}

	return stats, nil
}

// resolveRoot returns the directory a symlinked root points to. Any other
// root, including a missing or dangling one, is returned unchanged.
func resolveRoot(root string) (string, error) {
	info, err := os.Lstat(root)
	if err != nil || info.Mode()&fs.ModeSymlink == 0 {
		return root, nil //nolint:nilerr // WalkDir reports a missing root itself.
	}

	target, err := filepath.EvalSymlinks(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return root, nil
		}

		return "", fmt.Errorf("resolve root: %w", err)
	}

	return target, nil
}

// underRoot rewrites a path found below walkRoot to sit below root.
func underRoot(root, walkRoot, path string) string {
	if root == walkRoot {
		return path
	}

	rel, err := filepath.Rel(walkRoot, path)
	if err != nil {
		return path
	}

	return filepath.Join(root, rel)
}

// ShouldSkip decides whether a walk entry should be skipped. Directories are
// always skipped as targets; a non-nil error aborts or prunes the walk.
func (w *Walker) ShouldSkip(root, path string, entry fs.DirEntry, walkErr error) (bool, error) {
	if walkErr != nil {
		if errors.Is(walkErr, fs.ErrPermission) || errors.Is(walkErr, fs.ErrNotExist) {
			w.logger.Debug("skipping unreadable path", "path", path, "error", walkErr)

			if entry != nil && entry.IsDir() {
				return true, filepath.SkipDir
			}

			return true, nil
		}

		return false, walkErr
	}

	if entry == nil {
		return true, nil
	}

	if entry.IsDir() {
		return true, w.pruneDir(root, path, entry)
	}

	if !w.HasExtension(entry.Name()) {
		return true, nil
	}

	if entry.Type()&fs.ModeSymlink != 0 {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			return true, nil
		}
	} else if !entry.Type().IsRegular() {
		return true, nil
	}

	return false, nil
}

// HasExtension reports whether name ends in one of the configured extensions.
func (w *Walker) HasExtension(name string) bool {
	for _, ext := range w.opts.Extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}

	return false
}

func (w *Walker) pruneDir(root, path string, entry fs.DirEntry) error {
	if entry.Name() == gitDir {
		return filepath.SkipDir
	}

	if !w.opts.SkipVendor || path == root {
		return nil
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		return nil //nolint:nilerr // an unrelatable path is simply not vendored.
	}

	if enry.IsVendor(filepath.ToSlash(rel) + "/") {
		w.logger.Debug("skipping vendored directory", "path", path)

		return filepath.SkipDir
	}

	return nil
}

func (w *Walker) tooLarge(path string, entry fs.DirEntry) bool {
	if w.opts.MaxFileSize == 0 {
		return false
	}

	info, err := entry.Info()
	if err != nil {
		return false
	}

	if info.Size() < 0 || uint64(info.Size()) <= w.opts.MaxFileSize {
		return false
	}

	w.logger.Debug("skipping large file", "path", path, "size", info.Size(), "limit", w.opts.MaxFileSize)

	return true
}

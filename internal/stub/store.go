// Package stub manages the on-disk formatter stubs: one directory per table
// instance, one Starlark file per column. Stubs are generated from built-in
// per-type defaults, are safe to hand-edit, and are never silently
// overwritten once they exist.
package stub

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"regexp"

	"github.com/frameless-media/datatables/internal/column"
	"github.com/frameless-media/datatables/internal/fieldtype"
	"github.com/frameless-media/datatables/pkg/core"
)

// ArtifactExt is the file extension of formatter stubs.
const ArtifactExt = ".star"

// backupPrefix marks a stub that failed the structural check and was set
// aside before regeneration. The operator's content is preserved there.
const backupPrefix = "_"

// formatDefRe is the structural recognition check: a stub must define a
// top-level format function to be loadable.
var formatDefRe = regexp.MustCompile(`(?m)^def\s+format\s*\(`)

// Store generates, locates and deletes formatter stubs under one base
// directory.
type Store struct {
	baseDir    string
	classifier *fieldtype.Classifier
	logger     *slog.Logger
}

// NewStore creates a store rooted at baseDir.
func NewStore(baseDir string, classifier *fieldtype.Classifier, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)}))
	}
	return &Store{baseDir: baseDir, classifier: classifier, logger: logger}
}

// BaseDir returns the root of the stub tree.
func (s *Store) BaseDir() string { return s.baseDir }

// PathFor returns the stub path for a table/column pair. Pure: the same
// inputs always produce the same path, and it is exactly where
// EnsureArtifact writes and the loader reads.
func (s *Store) PathFor(tableName, columnSlug string) string {
	return filepath.Join(s.baseDir, column.Slugify(tableName), columnSlug+ArtifactExt)
}

// TableDir returns the per-table stub directory.
func (s *Store) TableDir(tableName string) string {
	return filepath.Join(s.baseDir, column.Slugify(tableName))
}

// EnsureArtifact creates the stub for a column if it does not exist yet.
// Idempotent: an existing file is left untouched, whatever its content.
// Columns that cannot be classified are skipped without error.
func (s *Store) EnsureArtifact(tableName string, def column.Definition) error {
	if def.Slug == "" {
		return nil
	}
	path := s.PathFor(tableName, def.Slug)

	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return &core.ArtifactError{Op: "stat", Path: path, Err: err}
	}

	typ, ok := s.classifier.Classify(def.SourceName)
	if !ok {
		s.logger.Debug("skipping stub for unclassifiable column",
			"table", tableName, "source", def.SourceName)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &core.ArtifactError{Op: "create", Path: filepath.Dir(path), Err: err}
	}

	content := Render(typ, def)
	if err := os.WriteFile(path, []byte(content), 0o664); err != nil {
		return &core.ArtifactError{Op: "create", Path: path, Err: err}
	}

	s.logger.Info("wrote formatter stub", "path", path, "type", string(typ))
	return nil
}

// LooksLikeFormatter reports whether stub content passes the structural
// recognition check.
func LooksLikeFormatter(content []byte) bool {
	return formatDefRe.Match(content)
}

// UpgradeIfLegacy checks an existing stub against the structural format and,
// when it does not look like a formatter, renames it to a backup and
// regenerates the default. Returns true when an upgrade happened. A missing
// stub is a no-op.
func (s *Store) UpgradeIfLegacy(tableName string, def column.Definition) (bool, error) {
	path := s.PathFor(tableName, def.Slug)

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, &core.ArtifactError{Op: "read", Path: path, Err: err}
	}
	if LooksLikeFormatter(raw) {
		return false, nil
	}

	backup := filepath.Join(filepath.Dir(path), backupPrefix+filepath.Base(path))
	if err := os.Rename(path, backup); err != nil {
		return false, &core.ArtifactError{Op: "rename", Path: path, Err: err}
	}
	s.logger.Warn("backed up legacy stub", "path", path, "backup", backup)

	if err := s.EnsureArtifact(tableName, def); err != nil {
		return true, err
	}
	return true, nil
}

// DeleteTableDir removes the whole per-table stub directory. A missing
// directory is not an error; deletion cascades from instance deletion and
// module uninstall, which may race with another delete.
func (s *Store) DeleteTableDir(tableName string) error {
	dir := s.TableDir(tableName)
	if err := os.RemoveAll(dir); err != nil {
		return &core.ArtifactError{Op: "delete", Path: dir, Err: err}
	}
	s.logger.Info("deleted stub directory", "dir", dir)
	return nil
}

// DeleteAll removes the entire stub tree, for uninstall.
func (s *Store) DeleteAll() error {
	if err := os.RemoveAll(s.baseDir); err != nil {
		return &core.ArtifactError{Op: "delete", Path: s.baseDir, Err: err}
	}
	return nil
}

// ListArtifacts returns the stub filenames present for a table, mainly for
// the doctor/clean surfaces. A missing directory yields an empty list.
func (s *Store) ListArtifacts(tableName string) ([]string, error) {
	entries, err := os.ReadDir(s.TableDir(tableName))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list stubs: %w", err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ArtifactExt {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

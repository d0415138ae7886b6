package document

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"TrendingDigest/internal/domain"
	"TrendingDigest/internal/ports"
)

// FileUpdater reads the page once, splices the anchor and writes it back in
// full through a temporary file in the same directory.
type FileUpdater struct {
	path     string
	anchorID string
	logger   *slog.Logger
}

var _ ports.DocumentUpdater = (*FileUpdater)(nil)

// NewFileUpdater targets the element with anchorID inside the file at path.
func NewFileUpdater(path, anchorID string, log *slog.Logger) *FileUpdater {
	return &FileUpdater{path: path, anchorID: anchorID, logger: log}
}

// Update leaves the file untouched when fragments is empty or the anchor is
// absent; only the latter is an error.
func (u *FileUpdater) Update(ctx context.Context, fragments []string) (domain.DocumentOutcome, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if len(fragments) == 0 {
		u.warn("no fragments to write, document left unchanged", "path", u.path)
		return domain.DocumentSkippedEmpty, nil
	}

	original, err := os.ReadFile(u.path)
	if err != nil {
		return "", fmt.Errorf("read document %s: %w", u.path, err)
	}

	updated, err := Splice(original, u.anchorID, fragments)
	if err != nil {
		return domain.DocumentAnchorMissing, fmt.Errorf("%s: %w", u.path, err)
	}

	if err := writeFileAtomic(u.path, updated); err != nil {
		return "", fmt.Errorf("write document %s: %w", u.path, err)
	}

	u.info("document updated", "path", u.path, "anchor", u.anchorID, "fragments", len(fragments))
	return domain.DocumentWritten, nil
}

func writeFileAtomic(path string, data []byte) error {
	perm := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

func (u *FileUpdater) info(msg string, args ...any) {
	if u.logger != nil {
		u.logger.Info(msg, args...)
	}
}

func (u *FileUpdater) warn(msg string, args ...any) {
	if u.logger != nil {
		u.logger.Warn(msg, args...)
	}
}

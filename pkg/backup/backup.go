// Package backup archives a file into a timestamped sibling before it gets overwritten.
//
// A backup of dir/name.ext lands in dir/archive/name_YYYYMMDDHHMMSS.ext. Timestamps have whole second
// granularity, so a second backup within the same second replaces the first.
package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gookit/goutil/fsutil"
	"github.com/ivanehh/datapipe/pkg/fsops"
	"github.com/ivanehh/datapipe/pkg/logging"
)

const (
	ArchiveDir      = "archive"
	TimestampLayout = "20060102150405"
)

type Option func(*Manager)

// WithClock replaces time.Now as the source of backup timestamps
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

func WithLogger(l *logging.Logger) Option {
	return func(m *Manager) {
		m.log = l
	}
}

type Manager struct {
	now func() time.Time
	log *logging.Logger
}

func New(opts ...Option) *Manager {
	m := &Manager{now: time.Now, log: logging.Discard()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create copies path into its archive directory and returns the copy's path.
// A missing path is a no-op returning "" unless raiseIfMissing is set, in which case it fails with fsops.ErrNotFound.
func (m *Manager) Create(path string, raiseIfMissing bool) (string, error) {
	if !fsutil.PathExists(path) {
		if raiseIfMissing {
			return "", fmt.Errorf("%w: no file found at %s", fsops.ErrNotFound, path)
		}
		return "", nil
	}

	dir, stem, suffix := split(path)
	archive := fsops.NewPathBuilder(dir, ArchiveDir)
	if err := archive.Create(); err != nil {
		return "", fmt.Errorf("failed to create backup for %s: %w", path, err)
	}
	dst := filepath.Join(archive.Path(), stem+"_"+m.now().Format(TimestampLayout)+suffix)
	if err := copyFile(path, dst); err != nil {
		return "", fmt.Errorf("%w: failed to create backup for %s: %w", fsops.ErrIO, path, err)
	}
	m.log.Debug("backup created", "source", path, "backup", dst)
	return dst, nil
}

// List returns the existing backups of path, oldest first
func (m *Manager) List(path string) ([]string, error) {
	dir, stem, suffix := split(path)
	ff, err := fsops.NewFileFilter(
		fsops.WithGlobPattern(escapeGlob(stem)+"_"+strings.Repeat("[0-9]", len(TimestampLayout))+escapeGlob(suffix)),
		fsops.SetLoc(filepath.Join(dir, ArchiveDir)),
	)
	if err != nil {
		return nil, err
	}
	return ff.Filter()
}

// split breaks path into directory, stem and suffix; a leading dot belongs to the stem
func split(path string) (string, string, string) {
	base := filepath.Base(path)
	suffix := filepath.Ext(base)
	stem := strings.TrimSuffix(base, suffix)
	if stem == "" {
		stem, suffix = base, ""
	}
	return filepath.Dir(path), stem, suffix
}

// copyFile copies src byte for byte and carries over its permissions and modification time.
// A failed copy removes whatever part of dst it wrote.
func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			os.Remove(dst)
		}
	}()
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return err
	}
	return os.Chtimes(dst, time.Now(), info.ModTime())
}

func escapeGlob(s string) string {
	return strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`).Replace(s)
}

package fsops

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"
)

type FileFilterOption func(*FileFilter) error

// FileFilter selects files in a set of directories by glob pattern and, optionally, by age
type FileFilter struct {
	pattern string
	maxAge  time.Duration
	dir     []string
}

func WithGlobPattern(p string) FileFilterOption {
	return func(ff *FileFilter) error {
		if _, err := filepath.Match(p, ""); err != nil {
			return fmt.Errorf("bad glob pattern %q: %w", p, err)
		}
		ff.pattern = p
		return nil
	}
}

// WithFileAge keeps only files modified within d of now
func WithFileAge(d time.Duration) FileFilterOption {
	return func(ff *FileFilter) error {
		ff.maxAge = d
		return nil
	}
}

func SetLoc(loc ...string) FileFilterOption {
	return func(ff *FileFilter) error {
		ff.dir = loc
		return nil
	}
}

func NewFileFilter(opts ...FileFilterOption) (*FileFilter, error) {
	ff := &FileFilter{pattern: "*"}
	for _, opt := range opts {
		err := opt(ff)
		if err != nil {
			return nil, err
		}
	}
	return ff, nil
}

func (ff *FileFilter) SetDirs(d ...string) {
	ff.dir = d
}

// Filter returns the sorted paths of matching regular files; directories that do not exist are skipped
func (ff *FileFilter) Filter() ([]string, error) {
	var matches []string
	cutoff := time.Now().Add(-ff.maxAge)
	for _, d := range ff.dir {
		found, err := fs.Glob(os.DirFS(d), ff.pattern)
		if err != nil {
			return nil, err
		}
		for _, m := range found {
			full := filepath.Join(d, m)
			finfo, err := os.Stat(full)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					continue
				}
				return nil, fmt.Errorf("%w: %s: %w", ErrIO, full, err)
			}
			if !finfo.Mode().IsRegular() {
				continue
			}
			if ff.maxAge != 0 && finfo.ModTime().Before(cutoff) {
				continue
			}
			matches = append(matches, full)
		}
	}
	slices.Sort(matches)
	return matches, nil
}

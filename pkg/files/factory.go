package files

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ivanehh/datapipe"
)

var ErrUnsupportedFileType = errors.New("unsupported file type")

// Constructor binds a handler to a file; it must not perform any I/O
type Constructor func(filename string) datapipe.FileHandler

type FactoryOption func(*Factory)

// Factory resolves file handlers by extension; its registry cannot change once NewFactory returns
type Factory struct {
	handlers map[string]Constructor
}

// WithHandler registers c for ext, replacing any earlier registration of the same extension
func WithHandler(ext string, c Constructor) FactoryOption {
	return func(f *Factory) {
		f.handlers[normalizeExt(ext)] = c
	}
}

// NewFactory returns a factory knowing json and csv plus whatever the options add
func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{
		handlers: map[string]Constructor{
			"json": func(fn string) datapipe.FileHandler { return NewJSONHandler(fn) },
			"csv":  func(fn string) datapipe.FileHandler { return NewCSVHandler(fn) },
		},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Extended returns a factory with every handler of this package registered
func Extended(opts ...FactoryOption) *Factory {
	all := []FactoryOption{
		WithHandler("yaml", func(fn string) datapipe.FileHandler { return NewYAMLHandler(fn) }),
		WithHandler("yml", func(fn string) datapipe.FileHandler { return NewYAMLHandler(fn) }),
		WithHandler("toml", func(fn string) datapipe.FileHandler { return NewTOMLHandler(fn) }),
		WithHandler("xls", func(fn string) datapipe.FileHandler { return NewSpreadsheetHandler(fn) }),
		WithHandler("xlsx", func(fn string) datapipe.FileHandler { return NewSpreadsheetHandler(fn) }),
		WithHandler("tsv", func(fn string) datapipe.FileHandler { return NewSpreadsheetHandler(fn) }),
		WithHandler("sqlite", func(fn string) datapipe.FileHandler { return NewSQLiteHandler(fn) }),
		WithHandler("db", func(fn string) datapipe.FileHandler { return NewSQLiteHandler(fn) }),
	}
	return NewFactory(append(all, opts...)...)
}

// Handler returns the handler registered for extension, bound to filename
func (f *Factory) Handler(extension, filename string) (datapipe.FileHandler, error) {
	c, ok := f.handlers[normalizeExt(extension)]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrUnsupportedFileType, extension)
	}
	return c(filename), nil
}

// ForPath picks the handler from the suffix of path
func (f *Factory) ForPath(path string) (datapipe.FileHandler, error) {
	return f.Handler(filepath.Ext(path), path)
}

// Extensions lists the registered extensions in sorted order
func (f *Factory) Extensions() []string {
	exts := make([]string, 0, len(f.handlers))
	for ext := range f.handlers {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

// Read reads path with the handler matching its suffix
func Read(path string) (any, error) {
	h, err := NewFactory().ForPath(path)
	if err != nil {
		return nil, err
	}
	return h.Read()
}

// Save writes data to every path in order and stops at the first failure
func Save(data any, paths ...string) error {
	f := NewFactory()
	for _, p := range paths {
		h, err := f.ForPath(p)
		if err != nil {
			return err
		}
		if err := h.Save(data); err != nil {
			return err
		}
	}
	return nil
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

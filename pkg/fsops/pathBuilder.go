package fsops

import (
	"fmt"
	"os"
	"path/filepath"
)

// PathBuilder assembles a directory path piece by piece and creates it on demand
type PathBuilder struct {
	path string
}

func NewPathBuilder(components ...string) *PathBuilder {
	return &PathBuilder{path: filepath.Join(components...)}
}

// Add appends components to the path; it returns the builder for chaining
func (pb *PathBuilder) Add(components ...string) *PathBuilder {
	pb.path = filepath.Join(append([]string{pb.path}, components...)...)
	return pb
}

// Create makes the directory and any missing parents; an existing directory is not an error
func (pb *PathBuilder) Create() error {
	if err := os.MkdirAll(pb.path, 0o755); err != nil {
		return fmt.Errorf("%w: creating %s: %w", ErrIO, pb.path, err)
	}
	return nil
}

func (pb *PathBuilder) Path() string {
	return pb.path
}

func (pb *PathBuilder) String() string {
	return pb.path
}

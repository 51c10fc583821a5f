package files

import (
	"fmt"

	"github.com/ivanehh/datapipe/pkg/fsops"
	"gopkg.in/yaml.v3"
)

type YAMLHandler struct {
	filename string
}

func NewYAMLHandler(filename string) *YAMLHandler {
	return &YAMLHandler{filename: filename}
}

func (h *YAMLHandler) Read() (any, error) {
	b, err := readFile(h.filename)
	if err != nil {
		return nil, err
	}
	var v any
	if err := yaml.Unmarshal(b, &v); err != nil {
		return nil, malformed(h.filename, "yaml", err)
	}
	return v, nil
}

func (h *YAMLHandler) Save(data any) error {
	b, err := yaml.Marshal(plainNumbers(data))
	if err != nil {
		return fmt.Errorf("%w: encoding %s: %w", fsops.ErrIO, h.filename, err)
	}
	return writeFile(h.filename, b)
}

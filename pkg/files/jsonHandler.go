package files

import (
	"encoding/json"
	"fmt"

	"github.com/ivanehh/datapipe/pkg/fsops"
)

// JSONHandler stores a value as a single indented JSON document
type JSONHandler struct {
	filename string
}

func NewJSONHandler(filename string) *JSONHandler {
	return &JSONHandler{filename: filename}
}

func (h *JSONHandler) Filename() string {
	return h.filename
}

func (h *JSONHandler) Read() (any, error) {
	b, err := readFile(h.filename)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, malformed(h.filename, "json", err)
	}
	return v, nil
}

func (h *JSONHandler) Save(data any) error {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encoding %s: %w", fsops.ErrIO, h.filename, err)
	}
	return writeFile(h.filename, append(b, '\n'))
}

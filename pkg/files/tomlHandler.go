package files

import (
	"bytes"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/ivanehh/datapipe/pkg/fsops"
)

// TOMLHandler stores mappings as TOML documents; TOML cannot represent a top-level list or scalar
type TOMLHandler struct {
	filename string
}

func NewTOMLHandler(filename string) *TOMLHandler {
	return &TOMLHandler{filename: filename}
}

func (h *TOMLHandler) Read() (any, error) {
	b, err := readFile(h.filename)
	if err != nil {
		return nil, err
	}
	v := map[string]any{}
	if _, err := toml.Decode(string(b), &v); err != nil {
		return nil, malformed(h.filename, "toml", err)
	}
	return v, nil
}

func (h *TOMLHandler) Save(data any) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(plainNumbers(data)); err != nil {
		return fmt.Errorf("%w: encoding %s: %w", fsops.ErrIO, h.filename, err)
	}
	return writeFile(h.filename, buf.Bytes())
}

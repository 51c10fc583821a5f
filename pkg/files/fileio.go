package files

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/ivanehh/datapipe/pkg/fsops"
)

func readFile(filename string) ([]byte, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", fsops.ErrNotFound, filename)
		}
		return nil, fmt.Errorf("%w: reading %s: %w", fsops.ErrIO, filename, err)
	}
	return b, nil
}

func writeFile(filename string, b []byte) error {
	if err := os.WriteFile(filename, b, 0o644); err != nil {
		return fmt.Errorf("%w: writing %s: %w", fsops.ErrIO, filename, err)
	}
	return nil
}

func ensureExists(filename string) error {
	if _, err := os.Stat(filename); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", fsops.ErrNotFound, filename)
		}
		return fmt.Errorf("%w: %s: %w", fsops.ErrIO, filename, err)
	}
	return nil
}

func malformed(filename, format string, err error) error {
	return fmt.Errorf("%w: malformed %s in %s: %w", fsops.ErrIO, format, filename, err)
}

// plainNumbers replaces json.Number values with int64, or float64 when they are not integral,
// for encoders that would otherwise write them as strings
func plainNumbers(v any) any {
	switch val := v.(type) {
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = plainNumbers(item)
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(val))
		for idx, item := range val {
			out[idx] = plainNumbers(item).(map[string]any)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for idx, item := range val {
			out[idx] = plainNumbers(item)
		}
		return out
	default:
		return v
	}
}

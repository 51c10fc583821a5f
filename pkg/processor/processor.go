// Package processor holds response processors that reshape decoded API payloads before they are stored.
package processor

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gookit/goutil/maputil"
	"github.com/ivanehh/datapipe"
	"github.com/tidwall/gjson"
)

var ErrFieldNotFound = errors.New("field not found in response")

// JSON passes the decoded body through unchanged
type JSON struct{}

func (JSON) ProcessResponse(raw any) (any, error) {
	return raw, nil
}

// Func adapts a plain function to a response processor
type Func func(raw any) (any, error)

func (f Func) ProcessResponse(raw any) (any, error) {
	return f(raw)
}

// FieldExtractor pulls a single value out of the response by gjson path, e.g. "data.items" or "results.#.id".
// Numbers in the extracted value come back as json.Number.
type FieldExtractor struct {
	path string
}

func NewFieldExtractor(path string) *FieldExtractor {
	return &FieldExtractor{path: path}
}

func (fe *FieldExtractor) ProcessResponse(raw any) (any, error) {
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response for extraction: %w", err)
	}
	res := gjson.GetBytes(b, fe.path)
	if !res.Exists() {
		return nil, fmt.Errorf("%w: %s", ErrFieldNotFound, fe.path)
	}
	dec := json.NewDecoder(strings.NewReader(res.Raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("failed to decode extracted %s: %w", fe.path, err)
	}
	return v, nil
}

// Flattener turns nested objects into a single level keyed by dotted paths; other shapes pass through
type Flattener struct{}

func (Flattener) ProcessResponse(raw any) (any, error) {
	switch v := raw.(type) {
	case map[string]any:
		return maputil.Flatten(v), nil
	case []any:
		out := make([]any, len(v))
		for idx, item := range v {
			if m, ok := item.(map[string]any); ok {
				out[idx] = maputil.Flatten(m)
				continue
			}
			out[idx] = item
		}
		return out, nil
	default:
		return raw, nil
	}
}

// Chain runs processors in order, feeding each result to the next
type Chain []datapipe.ResponseProcessor

func (c Chain) ProcessResponse(raw any) (any, error) {
	var err error
	for _, p := range c {
		if raw, err = p.ProcessResponse(raw); err != nil {
			return nil, err
		}
	}
	return raw, nil
}

package processor

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivanehh/datapipe"
)

var (
	_ datapipe.ResponseProcessor = JSON{}
	_ datapipe.ResponseProcessor = Func(nil)
	_ datapipe.ResponseProcessor = (*FieldExtractor)(nil)
	_ datapipe.ResponseProcessor = Flattener{}
	_ datapipe.ResponseProcessor = Chain{}
)

func TestJSONIsIdentity(t *testing.T) {
	raw := map[string]any{"key": "value"}
	got, err := JSON{}.ProcessResponse(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

func TestFieldExtractor(t *testing.T) {
	raw := map[string]any{
		"data": map[string]any{
			"items": []any{
				map[string]any{"id": json.Number("1"), "name": "a"},
				map[string]any{"id": json.Number("2"), "name": "b"},
			},
		},
	}

	got, err := NewFieldExtractor("data.items").ProcessResponse(raw)
	require.NoError(t, err)
	assert.Equal(t, raw["data"].(map[string]any)["items"], got)

	got, err = NewFieldExtractor("data.items.#.name").ProcessResponse(raw)
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, got)

	_, err = NewFieldExtractor("data.missing").ProcessResponse(raw)
	assert.ErrorIs(t, err, ErrFieldNotFound)
}

func TestFieldExtractorKeepsLargeIntegers(t *testing.T) {
	raw := map[string]any{"page": map[string]any{
		"ids":   []any{json.Number("9007199254740993")},
		"ratio": float64(0.5),
	}}

	got, err := NewFieldExtractor("page.ids").ProcessResponse(raw)
	require.NoError(t, err)
	assert.Equal(t, []any{json.Number("9007199254740993")}, got)

	got, err = NewFieldExtractor("page.ratio").ProcessResponse(raw)
	require.NoError(t, err)
	assert.Equal(t, json.Number("0.5"), got)
}

func TestFlattener(t *testing.T) {
	got, err := Flattener{}.ProcessResponse(map[string]any{
		"a": map[string]any{"b": "x"},
		"c": "y",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a.b": "x", "c": "y"}, got)

	got, err = Flattener{}.ProcessResponse([]any{map[string]any{"a": map[string]any{"b": "x"}}, "plain"})
	require.NoError(t, err)
	assert.Equal(t, []any{map[string]any{"a.b": "x"}, "plain"}, got)

	got, err = Flattener{}.ProcessResponse("scalar")
	require.NoError(t, err)
	assert.Equal(t, "scalar", got)
}

func TestChain(t *testing.T) {
	boom := errors.New("boom")
	chain := Chain{
		NewFieldExtractor("payload"),
		Flattener{},
		Func(func(raw any) (any, error) {
			m := raw.(map[string]any)
			m["seen"] = true
			return m, nil
		}),
	}
	got, err := chain.ProcessResponse(map[string]any{"payload": map[string]any{"x": map[string]any{"y": "z"}}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x.y": "z", "seen": true}, got)

	_, err = Chain{Func(func(any) (any, error) { return nil, boom }), JSON{}}.ProcessResponse(nil)
	assert.ErrorIs(t, err, boom)
}

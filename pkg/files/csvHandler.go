package files

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/ivanehh/datapipe/pkg/fsops"
)

var errRowShape = errors.New("csv rows must be lists of values or keyed records")

// CSVHandler reads and writes rows verbatim; a header is just the first row
type CSVHandler struct {
	filename string
}

func NewCSVHandler(filename string) *CSVHandler {
	return &CSVHandler{filename: filename}
}

func (h *CSVHandler) Filename() string {
	return h.filename
}

// Read returns every row, the header included, as [][]string
func (h *CSVHandler) Read() (any, error) {
	return h.Rows()
}

func (h *CSVHandler) Rows() ([][]string, error) {
	b, err := readFile(h.filename)
	if err != nil {
		return nil, err
	}
	r := csv.NewReader(bytes.NewReader(b))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, malformed(h.filename, "csv", err)
	}
	if rows == nil {
		rows = [][]string{}
	}
	return rows, nil
}

// Records keys every row after the header by the header's column names
func (h *CSVHandler) Records() ([]map[string]string, error) {
	rows, err := h.Rows()
	if err != nil {
		return nil, err
	}
	records := make([]map[string]string, 0, len(rows))
	if len(rows) == 0 {
		return records, nil
	}
	header := rows[0]
	for _, row := range rows[1:] {
		rec := make(map[string]string, len(header))
		for idx, col := range header {
			if idx < len(row) {
				rec[col] = row[idx]
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

/*
Save writes data as csv rows.

Rows that Read could not return unchanged are rejected before anything is written: a row
without fields, and fields holding a CR LF pair, which the reader folds into a bare LF.
A row holding one empty field is written as a quoted empty string so it is not read back as a blank line.
*/
func (h *CSVHandler) Save(data any) error {
	rows, err := toRows(data)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", fsops.ErrIO, h.filename, err)
	}
	if err := checkRows(rows); err != nil {
		return fmt.Errorf("%w: %s: %w", fsops.ErrIO, h.filename, err)
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, row := range rows {
		if len(row) == 1 && row[0] == "" {
			w.Flush()
			buf.WriteString("\"\"\n")
			continue
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("%w: encoding %s: %w", fsops.ErrIO, h.filename, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("%w: encoding %s: %w", fsops.ErrIO, h.filename, err)
	}
	return writeFile(h.filename, buf.Bytes())
}

func checkRows(rows [][]string) error {
	for idx, row := range rows {
		if len(row) == 0 {
			return fmt.Errorf("%w: row %d has no fields", errRowShape, idx)
		}
		for col, field := range row {
			if strings.Contains(field, "\r\n") {
				return fmt.Errorf("%w: row %d field %d holds a CR LF line break", errRowShape, idx, col)
			}
		}
	}
	return nil
}

// toRows converts the shapes produced by handlers and json decoding into csv rows
func toRows(data any) ([][]string, error) {
	switch v := data.(type) {
	case [][]string:
		return v, nil
	case []map[string]string:
		recs := make([]map[string]any, len(v))
		for idx, r := range v {
			recs[idx] = make(map[string]any, len(r))
			for k, val := range r {
				recs[idx][k] = val
			}
		}
		return recordRows(recs), nil
	case []map[string]any:
		return recordRows(v), nil
	case map[string]any:
		return recordRows([]map[string]any{v}), nil
	case []any:
		return anyRows(v)
	default:
		return nil, fmt.Errorf("%w: got %T", errRowShape, data)
	}
}

func anyRows(items []any) ([][]string, error) {
	if len(items) == 0 {
		return [][]string{}, nil
	}
	if _, ok := items[0].(map[string]any); ok {
		recs := make([]map[string]any, len(items))
		for idx, item := range items {
			rec, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: row %d is %T", errRowShape, idx, item)
			}
			recs[idx] = rec
		}
		return recordRows(recs), nil
	}
	rows := make([][]string, len(items))
	for idx, item := range items {
		switch row := item.(type) {
		case []any:
			rows[idx] = make([]string, len(row))
			for col, cell := range row {
				rows[idx][col] = cellString(cell)
			}
		case []string:
			rows[idx] = row
		default:
			return nil, fmt.Errorf("%w: row %d is %T", errRowShape, idx, item)
		}
	}
	return rows, nil
}

// recordRows writes a sorted header built from the union of keys followed by one row per record
func recordRows(recs []map[string]any) [][]string {
	var header []string
	for _, r := range recs {
		for k := range r {
			if !slices.Contains(header, k) {
				header = append(header, k)
			}
		}
	}
	slices.Sort(header)
	rows := make([][]string, 0, len(recs)+1)
	rows = append(rows, header)
	for _, r := range recs {
		row := make([]string, len(header))
		for idx, col := range header {
			if val, ok := r[col]; ok {
				row[idx] = cellString(val)
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func cellString(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

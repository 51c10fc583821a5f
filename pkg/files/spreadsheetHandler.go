package files

import (
	"errors"
	"fmt"
	"slices"

	"github.com/ivanehh/datapipe/pkg/fsops"
	"github.com/pbnjay/grate"
	_ "github.com/pbnjay/grate/simple"
	_ "github.com/pbnjay/grate/xls"
	_ "github.com/pbnjay/grate/xlsx"
)

var ErrReadOnly = errors.New("format is read-only")

// SpreadsheetHandler reads the first sheet of xls, xlsx and tsv files
type SpreadsheetHandler struct {
	filename string
}

func NewSpreadsheetHandler(filename string) *SpreadsheetHandler {
	return &SpreadsheetHandler{filename: filename}
}

// Read returns the rows of the first sheet as [][]string
func (h *SpreadsheetHandler) Read() (any, error) {
	if err := ensureExists(h.filename); err != nil {
		return nil, err
	}
	source, err := grate.Open(h.filename)
	if err != nil {
		return nil, malformed(h.filename, "spreadsheet", err)
	}
	defer source.Close()

	sheets, err := source.List()
	if err != nil {
		return nil, malformed(h.filename, "spreadsheet", err)
	}
	rows := [][]string{}
	if len(sheets) == 0 {
		return rows, nil
	}
	data, err := source.Get(sheets[0])
	if err != nil {
		return nil, malformed(h.filename, "spreadsheet", err)
	}
	for data.Next() {
		rows = append(rows, slices.Clone(data.Strings()))
	}
	return rows, nil
}

func (h *SpreadsheetHandler) Save(any) error {
	return fmt.Errorf("%w: %w: %s", fsops.ErrIO, ErrReadOnly, h.filename)
}

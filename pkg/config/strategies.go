package config

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ivanehh/datapipe/pkg/db"
	"github.com/ivanehh/datapipe/pkg/files"
	"github.com/ivanehh/datapipe/pkg/fsops"
)

var (
	errNotMapping = errors.New("document is not a mapping")
	errNoGroup    = errors.New("no configuration table found")
	errFlatCSV    = errors.New("csv config needs a header with key and value columns")
)

type JSONStrategy struct {
	path string
}

func NewJSONStrategy(path string) *JSONStrategy {
	return &JSONStrategy{path: path}
}

func (s *JSONStrategy) ReadConfig() (map[string]any, error) {
	v, err := files.NewJSONHandler(s.path).Read()
	if err != nil {
		return nil, err
	}
	return asMapping(s.path, v)
}

type YAMLStrategy struct {
	path string
}

func NewYAMLStrategy(path string) *YAMLStrategy {
	return &YAMLStrategy{path: path}
}

func (s *YAMLStrategy) ReadConfig() (map[string]any, error) {
	v, err := files.NewYAMLHandler(s.path).Read()
	if err != nil {
		return nil, err
	}
	return asMapping(s.path, v)
}

func asMapping(path string, v any) (map[string]any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s holds %T", errNotMapping, path, v)
	}
	return m, nil
}

// CSVStrategy reads a two column key,value table; every other row layout is rejected
type CSVStrategy struct {
	handler *files.CSVHandler
}

func NewCSVStrategy(path string) *CSVStrategy {
	return &CSVStrategy{handler: files.NewCSVHandler(path)}
}

// Records returns the rows keyed by the header, without requiring the key,value layout
func (s *CSVStrategy) Records() ([]map[string]string, error) {
	return s.handler.Records()
}

func (s *CSVStrategy) ReadConfig() (map[string]any, error) {
	rows, err := s.handler.Rows()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", errFlatCSV, s.handler.Filename())
	}
	header := rows[0]
	if len(header) != 2 || strings.TrimSpace(header[0]) != "key" || strings.TrimSpace(header[1]) != "value" {
		return nil, fmt.Errorf("%w: %s has header %v", errFlatCSV, s.handler.Filename(), header)
	}
	config := make(map[string]any, len(rows)-1)
	for idx, row := range rows[1:] {
		if len(row) != 2 {
			return nil, fmt.Errorf("%w: %s row %d has %d fields", errFlatCSV, s.handler.Filename(), idx+2, len(row))
		}
		config[row[0]] = row[1]
	}
	return config, nil
}

/*
TOMLStrategy reads a declarative TOML configuration.

The first top level table in the document is the configuration group. Its plain keys become
top level entries and each of its sub tables becomes a mapping of that table's plain keys;
tables nested any deeper are dropped. Keys starting with an underscore are private and skipped.
*/
type TOMLStrategy struct {
	path string
}

func NewTOMLStrategy(path string) *TOMLStrategy {
	return &TOMLStrategy{path: path}
}

func (s *TOMLStrategy) ReadConfig() (map[string]any, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", fsops.ErrNotFound, s.path)
		}
		return nil, fmt.Errorf("%w: reading %s: %w", fsops.ErrIO, s.path, err)
	}
	doc := map[string]any{}
	md, err := toml.Decode(string(b), &doc)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed toml in %s: %w", fsops.ErrIO, s.path, err)
	}
	for _, key := range md.Keys() {
		if len(key) != 1 || md.Type(key...) != "Hash" {
			continue
		}
		group, _ := doc[key[0]].(map[string]any)
		return publicEntries(group, true), nil
	}
	return nil, fmt.Errorf("%w in %s", errNoGroup, s.path)
}

func publicEntries(table map[string]any, descend bool) map[string]any {
	out := make(map[string]any, len(table))
	for k, v := range table {
		if strings.HasPrefix(k, "_") {
			continue
		}
		switch val := v.(type) {
		case map[string]any:
			if descend {
				out[k] = publicEntries(val, false)
			}
		case []map[string]any:
			// arrays of tables go with the deeper tables
		default:
			out[k] = val
		}
	}
	return out
}

// DBStrategy reads name,value rows from a table of any database pkg/db can open
type DBStrategy struct {
	source db.Source
	table  string
}

func NewDBStrategy(source db.Source, table string) *DBStrategy {
	return &DBStrategy{source: source, table: table}
}

func (s *DBStrategy) ReadConfig() (map[string]any, error) {
	if !validIdentifier(s.table) {
		return nil, fmt.Errorf("invalid config table name %q", s.table)
	}
	ctx := context.Background()
	database, err := db.New(ctx, s.source)
	if err != nil {
		return nil, err
	}
	defer database.Close()

	type entry struct {
		name, value string
	}
	entries, err := db.QueryRows(ctx, database, "SELECT name, value FROM "+s.table, func(r *sql.Rows) (entry, error) {
		var e entry
		if err := r.Scan(&e.name, &e.value); err != nil {
			return e, err
		}
		return e, nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading config table %s: %w", s.table, err)
	}
	config := make(map[string]any, len(entries))
	for _, e := range entries {
		config[e.name] = e.value
	}
	return config, nil
}

func validIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for idx, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && idx > 0:
		default:
			return false
		}
	}
	return true
}

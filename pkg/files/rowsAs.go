package files

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

func columnKey(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
}

/*
RowsAs converts tabular rows, header first, into a []T; T must be a struct with 'df' tags.

Header cells and tags are compared lower-cased with spaces removed, so the tag "unitprice" matches
a "Unit Price" column. Tagged fields without a matching column keep their zero value. Supported
field kinds are string, bool, integers and floats; a cell that does not parse is an error.
*/
func RowsAs[T any](rows [][]string) ([]T, error) {
	if len(rows) == 0 {
		return []T{}, nil
	}
	st := reflect.TypeFor[T]()
	if st.Kind() != reflect.Struct {
		return nil, fmt.Errorf("rows can only be converted into structs, not %s", st)
	}

	columns := make(map[string]int, len(rows[0]))
	for idx, h := range rows[0] {
		columns[columnKey(h)] = idx
	}
	fields := make(map[int]int)
	for i := 0; i < st.NumField(); i++ {
		tag := st.Field(i).Tag.Get("df")
		if tag == "" || tag == "-" {
			continue
		}
		if cid, ok := columns[columnKey(tag)]; ok {
			fields[i] = cid
		}
	}

	result := make([]T, len(rows)-1)
	for ridx, row := range rows[1:] {
		sv := reflect.ValueOf(&result[ridx]).Elem()
		for fid, cid := range fields {
			if cid >= len(row) {
				continue
			}
			if err := setField(sv.Field(fid), row[cid]); err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", ridx+2, rows[0][cid], err)
			}
		}
	}
	return result, nil
}

func setField(field reflect.Value, cell string) error {
	cell = strings.TrimSpace(cell)
	switch field.Kind() {
	case reflect.String:
		field.SetString(cell)
	case reflect.Bool:
		if cell == "" {
			return nil
		}
		v, err := strconv.ParseBool(cell)
		if err != nil {
			return err
		}
		field.SetBool(v)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if cell == "" {
			return nil
		}
		v, err := strconv.ParseInt(cell, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(v)
	case reflect.Float32, reflect.Float64:
		if cell == "" {
			return nil
		}
		v, err := strconv.ParseFloat(cell, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetFloat(v)
	default:
		return fmt.Errorf("unsupported field kind %s", field.Kind())
	}
	return nil
}

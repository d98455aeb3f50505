/*
 * Copyright 2025 The Data Quality Monitor Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
package dataset

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Type identifies the logical type of a column or cell.
type Type string

const (
	TypeString   Type = "string"
	TypeInteger  Type = "integer"
	TypeFloat    Type = "float"
	TypeBoolean  Type = "boolean"
	TypeDatetime Type = "datetime"
	TypeUnknown  Type = "unknown"
)

// Column describes a single named, typed column.
type Column struct {
	Name string
	Type Type
}

// Dataset is an ordered sequence of named, typed columns and an ordered
// sequence of rows. It is loaded once per pipeline run and never
// mutated afterwards. Cell values are one of: nil, string, int64,
// float64, bool, time.Time.
type Dataset struct {
	Name    string
	Columns []Column
	Rows    [][]any
}

// RowCount returns the number of rows.
func (d *Dataset) RowCount() int {
	return len(d.Rows)
}

// ColumnNames returns the ordered column names.
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	return names
}

// ColumnIndex resolves a column name to its position.
func (d *Dataset) ColumnIndex(name string) (int, bool) {
	for i, c := range d.Columns {
		if c.Name == name {
			return i, true
		}
	}
	return 0, false
}

// ColumnValues returns the cell values of one column in row order.
func (d *Dataset) ColumnValues(idx int) []any {
	values := make([]any, len(d.Rows))
	for i, row := range d.Rows {
		values[i] = row[idx]
	}
	return values
}

// CellType reports the logical type of a single cell value. Nil cells
// have no type.
func CellType(v any) Type {
	switch v.(type) {
	case string:
		return TypeString
	case int64:
		return TypeInteger
	case float64:
		return TypeFloat
	case bool:
		return TypeBoolean
	case time.Time:
		return TypeDatetime
	default:
		return TypeUnknown
	}
}

// FormatCell renders a cell value as a comparable string.
func FormatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", val)
	}
}

var datetimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseDatetime(s string) (time.Time, bool) {
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// newFromStrings builds a typed Dataset from raw string cells, as read
// from CSV. Empty cells become nil. Each column is promoted to the
// narrowest type that fits every non-empty cell, falling back to string.
func newFromStrings(name string, header []string, raw [][]string) *Dataset {
	columns := make([]Column, len(header))
	rows := make([][]any, len(raw))
	for i := range raw {
		rows[i] = make([]any, len(header))
	}

	for col, colName := range header {
		colType := inferStringColumnType(col, raw)
		columns[col] = Column{Name: colName, Type: colType}
		for i, rec := range raw {
			cell := ""
			if col < len(rec) {
				cell = strings.TrimSpace(rec[col])
			}
			if cell == "" {
				rows[i][col] = nil
				continue
			}
			rows[i][col] = coerceCell(cell, colType)
		}
	}

	return &Dataset{Name: name, Columns: columns, Rows: rows}
}

func inferStringColumnType(col int, raw [][]string) Type {
	sawValue := false
	couldBe := map[Type]bool{
		TypeInteger:  true,
		TypeFloat:    true,
		TypeBoolean:  true,
		TypeDatetime: true,
	}
	for _, rec := range raw {
		if col >= len(rec) {
			continue
		}
		cell := strings.TrimSpace(rec[col])
		if cell == "" {
			continue
		}
		sawValue = true
		if _, err := strconv.ParseInt(cell, 10, 64); err != nil {
			couldBe[TypeInteger] = false
		}
		if _, err := strconv.ParseFloat(cell, 64); err != nil {
			couldBe[TypeFloat] = false
		}
		lower := strings.ToLower(cell)
		if lower != "true" && lower != "false" {
			couldBe[TypeBoolean] = false
		}
		if _, ok := parseDatetime(cell); !ok {
			couldBe[TypeDatetime] = false
		}
	}
	if !sawValue {
		return TypeString
	}
	for _, t := range []Type{TypeInteger, TypeFloat, TypeBoolean, TypeDatetime} {
		if couldBe[t] {
			return t
		}
	}
	return TypeString
}

func coerceCell(cell string, t Type) any {
	switch t {
	case TypeInteger:
		n, _ := strconv.ParseInt(cell, 10, 64)
		return n
	case TypeFloat:
		f, _ := strconv.ParseFloat(cell, 64)
		return f
	case TypeBoolean:
		return strings.EqualFold(cell, "true")
	case TypeDatetime:
		t, _ := parseDatetime(cell)
		return t
	default:
		return cell
	}
}

// unifyColumns assigns each column the common type of its non-nil
// cells, normalising integral float64 cells (as produced by JSON
// decoding) to int64 when the whole column is integral.
func unifyColumns(ds *Dataset) {
	for col := range ds.Columns {
		allIntegral := true
		var seen Type
		mixed := false
		empty := true
		for _, row := range ds.Rows {
			v := row[col]
			if v == nil {
				continue
			}
			empty = false
			t := CellType(v)
			if f, ok := v.(float64); !ok || f != float64(int64(f)) {
				allIntegral = false
			}
			if seen == "" {
				seen = t
			} else if seen != t {
				mixed = true
			}
		}
		switch {
		case empty:
			ds.Columns[col].Type = TypeString
		case mixed:
			ds.Columns[col].Type = TypeUnknown
		case seen == TypeFloat && allIntegral:
			for _, row := range ds.Rows {
				if f, ok := row[col].(float64); ok {
					row[col] = int64(f)
				}
			}
			ds.Columns[col].Type = TypeInteger
		default:
			ds.Columns[col].Type = seen
		}
	}
}

// Package dataset provides the tabular data model for datasage: immutable
// named tables, CSV ingestion, and the binding table that exposes datasets
// to candidate programs.
package dataset

import (
	"math"
	"strconv"
	"strings"
)

// ColumnType is the inferred type of a column.
type ColumnType string

const (
	TypeString ColumnType = "string"
	TypeInt    ColumnType = "int"
	TypeFloat  ColumnType = "float"
	TypeBool   ColumnType = "bool"
)

// Column describes one named, typed column.
type Column struct {
	Name string
	Type ColumnType
}

// Table is an immutable-once-loaded tabular value: ordered named typed
// columns and ordered rows. Transformations build new tables; nothing is
// written back.
type Table struct {
	name    string
	columns []Column
	rows    [][]string
}

// New builds a table from column names and row-major string cells, inferring
// a type per column. Rows shorter than the header are padded, longer ones
// truncated.
func New(name string, columnNames []string, rows [][]string) *Table {
	normalized := make([][]string, len(rows))
	for i, row := range rows {
		r := make([]string, len(columnNames))
		copy(r, row)
		normalized[i] = r
	}

	columns := make([]Column, len(columnNames))
	for i, cn := range columnNames {
		columns[i] = Column{Name: cn, Type: inferColumnType(normalized, i)}
	}

	return &Table{name: name, columns: columns, rows: normalized}
}

// Name returns the table's name.
func (t *Table) Name() string { return t.name }

// Columns returns the ordered column descriptors.
func (t *Table) Columns() []Column {
	out := make([]Column, len(t.columns))
	copy(out, t.columns)
	return out
}

// ColumnNames returns the ordered column names.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// RowCount returns the number of rows.
func (t *Table) RowCount() int { return len(t.rows) }

// ColumnCount returns the number of columns.
func (t *Table) ColumnCount() int { return len(t.columns) }

// Row returns row i. The returned slice must not be mutated.
func (t *Table) Row(i int) []string { return t.rows[i] }

// Rows returns all rows. The inner slices must not be mutated.
func (t *Table) Rows() [][]string {
	out := make([][]string, len(t.rows))
	copy(out, t.rows)
	return out
}

// ColumnIndex returns the index of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool { return t.ColumnIndex(name) >= 0 }

// Value returns the cell at (row, column name), or "" when out of range.
func (t *Table) Value(row int, column string) string {
	idx := t.ColumnIndex(column)
	if idx < 0 || row < 0 || row >= len(t.rows) {
		return ""
	}
	return t.rows[row][idx]
}

// Strings returns all values of the named column in row order.
func (t *Table) Strings(column string) []string {
	idx := t.ColumnIndex(column)
	if idx < 0 {
		return nil
	}
	out := make([]string, len(t.rows))
	for i, row := range t.rows {
		out[i] = row[idx]
	}
	return out
}

// Floats returns the numeric values of the named column, one per row.
// Blank and unparsable cells become NaN so indices stay aligned with the
// table's rows.
func (t *Table) Floats(column string) []float64 {
	idx := t.ColumnIndex(column)
	if idx < 0 {
		return nil
	}
	out := make([]float64, len(t.rows))
	for i, row := range t.rows {
		cell := strings.TrimSpace(row[idx])
		if cell == "" {
			out[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(normalizeNumber(cell), 64)
		if err != nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = v
	}
	return out
}

// FindColumn returns the first column whose lower-cased name contains any of
// the given keywords. Generated programs use this for tolerant column
// lookup instead of guessing exact header spelling.
func (t *Table) FindColumn(keywords ...string) string {
	for _, c := range t.columns {
		lower := strings.ToLower(c.Name)
		for _, kw := range keywords {
			if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
				return c.Name
			}
		}
	}
	return ""
}

// inferColumnType votes a type for column idx across all non-blank cells.
func inferColumnType(rows [][]string, idx int) ColumnType {
	sawAny := false
	allInt, allFloat, allBool := true, true, true

	for _, row := range rows {
		cell := strings.TrimSpace(row[idx])
		if cell == "" {
			continue
		}
		sawAny = true

		if allInt {
			if _, err := strconv.ParseInt(normalizeNumber(cell), 10, 64); err != nil {
				allInt = false
			}
		}
		if allFloat {
			if _, err := strconv.ParseFloat(normalizeNumber(cell), 64); err != nil {
				allFloat = false
			}
		}
		if allBool {
			switch strings.ToLower(cell) {
			case "true", "false", "yes", "no":
			default:
				allBool = false
			}
		}
		if !allInt && !allFloat && !allBool {
			break
		}
	}

	switch {
	case !sawAny:
		return TypeString
	case allInt:
		return TypeInt
	case allFloat:
		return TypeFloat
	case allBool:
		return TypeBool
	default:
		return TypeString
	}
}

// normalizeNumber strips thousands separators so "51,666.67" parses.
func normalizeNumber(s string) string {
	if strings.Count(s, ",") > 0 && strings.Count(s, ".") <= 1 {
		return strings.ReplaceAll(s, ",", "")
	}
	return s
}

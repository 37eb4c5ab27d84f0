package dataset

import (
	"math"
	"strings"
)

// ColumnSchema describes one column for prompt construction and the schema
// endpoint: type, missing-value count, and a few example values.
type ColumnSchema struct {
	Name     string
	Type     ColumnType
	Missing  int
	Examples []string
}

// NumericStats summarizes a numeric column.
type NumericStats struct {
	Min   float64
	Max   float64
	Mean  float64
	Count int
}

// Schema is the full structural description of one table: shape, per-column
// schemas, sample rows, and numeric summary statistics. It carries at most
// maxSampleRows of data.
type Schema struct {
	Table      string
	Rows       int
	Cols       int
	Columns    []ColumnSchema
	SampleRows [][]string
	Stats      map[string]NumericStats
}

const (
	maxSampleRows     = 5
	maxColumnExamples = 3
)

// BuildSchema computes the schema of a table.
func BuildSchema(t *Table) *Schema {
	s := &Schema{
		Table: t.Name(),
		Rows:  t.RowCount(),
		Cols:  t.ColumnCount(),
		Stats: make(map[string]NumericStats),
	}

	for _, col := range t.Columns() {
		cs := ColumnSchema{Name: col.Name, Type: col.Type}
		for _, cell := range t.Strings(col.Name) {
			if strings.TrimSpace(cell) == "" {
				cs.Missing++
			} else if len(cs.Examples) < maxColumnExamples {
				cs.Examples = append(cs.Examples, cell)
			}
		}
		s.Columns = append(s.Columns, cs)

		if col.Type == TypeInt || col.Type == TypeFloat {
			if stats, ok := numericStats(t.Floats(col.Name)); ok {
				s.Stats[col.Name] = stats
			}
		}
	}

	n := t.RowCount()
	if n > maxSampleRows {
		n = maxSampleRows
	}
	for i := 0; i < n; i++ {
		row := make([]string, t.ColumnCount())
		copy(row, t.Row(i))
		s.SampleRows = append(s.SampleRows, row)
	}
	return s
}

// numericStats summarizes the parseable values, skipping NaN cells.
func numericStats(values []float64) (NumericStats, bool) {
	var stats NumericStats
	sum := 0.0
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if stats.Count == 0 || v < stats.Min {
			stats.Min = v
		}
		if stats.Count == 0 || v > stats.Max {
			stats.Max = v
		}
		sum += v
		stats.Count++
	}
	if stats.Count == 0 {
		return NumericStats{}, false
	}
	stats.Mean = sum / float64(stats.Count)
	return stats, true
}

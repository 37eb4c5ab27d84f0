package dataset

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"datasage/internal/logging"
)

// LoadReport records what the smart loader did to a file: every cleanup
// step, any structural warnings, and the shape before and after.
type LoadReport struct {
	Filename     string
	Steps        []string
	Warnings     []string
	OriginalRows int
	OriginalCols int
	FinalRows    int
	FinalCols    int
}

func (r *LoadReport) step(format string, args ...interface{}) {
	r.Steps = append(r.Steps, fmt.Sprintf(format, args...))
}

// LoadCSV reads CSV data and builds a cleaned Table. It sniffs the
// separator, detects a shifted header row, trims column names, names blank
// columns, and drops fully-empty rows and columns. The table's name is the
// filename stem, lower-cased and sanitized.
func LoadCSV(r io.Reader, filename string) (*Table, *LoadReport, error) {
	report := &LoadReport{Filename: filename}

	br := bufio.NewReader(r)
	sep, err := sniffSeparator(br)
	if err != nil {
		return nil, report, fmt.Errorf("failed to read CSV %q: %w", filename, err)
	}

	cr := csv.NewReader(br)
	cr.Comma = sep
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, report, fmt.Errorf("failed to parse CSV %q: %w", filename, err)
	}
	if len(records) == 0 {
		return nil, report, fmt.Errorf("CSV %q contains no rows", filename)
	}

	header := records[0]
	data := records[1:]
	report.OriginalRows = len(data)
	report.OriginalCols = len(header)
	report.step("loaded %d rows x %d columns", len(data), len(header))

	// A header made mostly of blank cells usually means the real column
	// names sit in the first data row.
	if blankShare(header) > 0.3 {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("%d unnamed columns detected; first row may be the header", blankCount(header)))
		if len(data) >= 2 && mostlyText(data[0]) && mostlyNumeric(data[1]) {
			header = data[0]
			data = data[1:]
			report.step("promoted first data row to column headers")
		}
	}

	// Normalize header: trim whitespace, auto-name blanks.
	trimmed := false
	names := make([]string, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name != h {
			trimmed = true
		}
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		names[i] = name
	}
	if trimmed {
		report.step("trimmed whitespace from column names")
	}

	// Pad/truncate ragged rows to the header width.
	rows := make([][]string, 0, len(data))
	for _, rec := range data {
		row := make([]string, len(names))
		copy(row, rec)
		rows = append(rows, row)
	}

	// Drop fully-empty rows.
	kept := rows[:0]
	for _, row := range rows {
		if !allBlank(row) {
			kept = append(kept, row)
		}
	}
	if removed := len(rows) - len(kept); removed > 0 {
		report.step("removed %d empty rows", removed)
	}
	rows = kept

	// Drop fully-empty columns.
	var keepIdx []int
	for i := range names {
		empty := true
		for _, row := range rows {
			if strings.TrimSpace(row[i]) != "" {
				empty = false
				break
			}
		}
		if !empty {
			keepIdx = append(keepIdx, i)
		}
	}
	if removed := len(names) - len(keepIdx); removed > 0 {
		report.step("removed %d empty columns", removed)
		prunedNames := make([]string, len(keepIdx))
		prunedRows := make([][]string, len(rows))
		for j, idx := range keepIdx {
			prunedNames[j] = names[idx]
		}
		for ri, row := range rows {
			pr := make([]string, len(keepIdx))
			for j, idx := range keepIdx {
				pr[j] = row[idx]
			}
			prunedRows[ri] = pr
		}
		names = prunedNames
		rows = prunedRows
	}

	table := New(SanitizeName(stem(filename)), names, rows)
	report.FinalRows = table.RowCount()
	report.FinalCols = table.ColumnCount()
	report.step("final shape: %d rows x %d columns", report.FinalRows, report.FinalCols)

	logging.Ingest("loaded %q as %q: %d rows, %d columns (%d steps)",
		filename, table.Name(), report.FinalRows, report.FinalCols, len(report.Steps))
	return table, report, nil
}

// LoadCSVFile loads a CSV table from a file path.
func LoadCSVFile(path string) (*Table, *LoadReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %q: %w", path, err)
	}
	defer f.Close()
	return LoadCSV(f, filepath.Base(path))
}

// sniffSeparator peeks at the first line and picks the most frequent
// candidate separator.
func sniffSeparator(br *bufio.Reader) (rune, error) {
	peek, err := br.Peek(4096)
	if err != nil && err != io.EOF {
		return ',', err
	}
	if len(peek) == 0 {
		return ',', io.ErrUnexpectedEOF
	}
	line := string(peek)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}

	best, bestCount := ',', 0
	for _, sep := range []rune{',', ';', '\t', '|'} {
		if n := strings.Count(line, string(sep)); n > bestCount {
			best, bestCount = sep, n
		}
	}
	return best, nil
}

// SanitizeName lowers a name and maps non-identifier runes to underscores,
// so every table name is addressable from candidate code.
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "data"
	}
	if out[0] >= '0' && out[0] <= '9' {
		out = "_" + out
	}
	return out
}

func stem(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func blankCount(cells []string) int {
	n := 0
	for _, c := range cells {
		if strings.TrimSpace(c) == "" {
			n++
		}
	}
	return n
}

func blankShare(cells []string) float64 {
	if len(cells) == 0 {
		return 0
	}
	return float64(blankCount(cells)) / float64(len(cells))
}

func allBlank(cells []string) bool {
	return blankCount(cells) == len(cells)
}

func mostlyText(cells []string) bool {
	text, seen := 0, 0
	for _, c := range cells {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		seen++
		if _, err := strconv.ParseFloat(normalizeNumber(c), 64); err != nil {
			text++
		}
	}
	return seen > 0 && float64(text) > float64(seen)*0.5
}

func mostlyNumeric(cells []string) bool {
	numeric, seen := 0, 0
	for _, c := range cells {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		seen++
		if _, err := strconv.ParseFloat(normalizeNumber(c), 64); err == nil {
			numeric++
		}
	}
	return seen > 0 && float64(numeric) > float64(seen)*0.3
}

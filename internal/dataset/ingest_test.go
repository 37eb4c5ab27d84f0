package dataset

import (
	"strings"
	"testing"
)

func TestLoadCSVBasic(t *testing.T) {
	csvData := "year,amount\n2021,100\n2022,200\n"

	table, report, err := LoadCSV(strings.NewReader(csvData), "Sales Data.csv")
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if table.Name() != "sales_data" {
		t.Errorf("name = %q, want sales_data", table.Name())
	}
	if table.RowCount() != 2 || table.ColumnCount() != 2 {
		t.Errorf("shape = %dx%d, want 2x2", table.RowCount(), table.ColumnCount())
	}
	if report.FinalRows != 2 || report.FinalCols != 2 {
		t.Errorf("report shape = %dx%d", report.FinalRows, report.FinalCols)
	}
}

func TestLoadCSVSemicolonSeparator(t *testing.T) {
	csvData := "name;city\nAda;London\nGrace;New York\n"

	table, _, err := LoadCSV(strings.NewReader(csvData), "people.csv")
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if got := table.Value(1, "city"); got != "New York" {
		t.Errorf("Value = %q, want New York", got)
	}
}

func TestLoadCSVDropsEmptyRowsAndColumns(t *testing.T) {
	csvData := "a,b,c\n1,x,\n,,\n2,y,\n"

	table, report, err := LoadCSV(strings.NewReader(csvData), "t.csv")
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if table.RowCount() != 2 {
		t.Errorf("RowCount = %d, want 2 (empty row dropped)", table.RowCount())
	}
	if table.ColumnCount() != 2 {
		t.Errorf("ColumnCount = %d, want 2 (empty column dropped)", table.ColumnCount())
	}
	joined := strings.Join(report.Steps, "; ")
	if !strings.Contains(joined, "empty rows") || !strings.Contains(joined, "empty columns") {
		t.Errorf("report missing cleanup steps: %v", report.Steps)
	}
}

func TestLoadCSVHeaderPromotion(t *testing.T) {
	// Blank header cells with the real column names in the first data row.
	csvData := ",,\nyear,amount,region\n2021,100,east\n2022,200,west\n"

	table, report, err := LoadCSV(strings.NewReader(csvData), "shifted.csv")
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if !table.HasColumn("year") || !table.HasColumn("region") {
		t.Fatalf("columns = %v, want promoted header", table.ColumnNames())
	}
	if table.RowCount() != 2 {
		t.Errorf("RowCount = %d, want 2", table.RowCount())
	}
	if len(report.Warnings) == 0 {
		t.Error("expected an unnamed-columns warning")
	}
}

func TestLoadCSVTrimsColumnNames(t *testing.T) {
	csvData := " year , amount \n2021,1\n"

	table, _, err := LoadCSV(strings.NewReader(csvData), "t.csv")
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if !table.HasColumn("year") {
		t.Errorf("columns = %v, want trimmed names", table.ColumnNames())
	}
}

func TestLoadCSVEmptyInput(t *testing.T) {
	if _, _, err := LoadCSV(strings.NewReader(""), "empty.csv"); err == nil {
		t.Error("expected error for empty input")
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Sales Data", "sales_data"},
		{"2024-report", "_2024_report"},
		{"___", "data"},
		{"orders.final", "orders_final"},
	}
	for _, tt := range tests {
		if got := SanitizeName(tt.in); got != tt.want {
			t.Errorf("SanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

package dataset

import (
	"testing"
)

func TestBuildSchema(t *testing.T) {
	tbl := New("sales", []string{"year", "amount", "region"}, [][]string{
		{"2021", "100", "east"},
		{"2022", "250", "west"},
		{"2023", "", "east"},
	})

	s := BuildSchema(tbl)
	if s.Table != "sales" || s.Rows != 3 || s.Cols != 3 {
		t.Fatalf("shape = %s %dx%d", s.Table, s.Rows, s.Cols)
	}

	byName := map[string]ColumnSchema{}
	for _, c := range s.Columns {
		byName[c.Name] = c
	}

	if got := byName["amount"]; got.Missing != 1 {
		t.Errorf("amount missing = %d, want 1", got.Missing)
	}
	if got := byName["region"]; got.Type != TypeString {
		t.Errorf("region type = %s", got.Type)
	}
	if got := byName["year"]; len(got.Examples) == 0 || got.Examples[0] != "2021" {
		t.Errorf("year examples = %v", got.Examples)
	}

	stats, ok := s.Stats["amount"]
	if !ok {
		t.Fatal("no stats for numeric column amount")
	}
	if stats.Min != 100 || stats.Max != 250 || stats.Count != 2 {
		t.Errorf("amount stats = %+v", stats)
	}
	if stats.Mean != 175 {
		t.Errorf("amount mean = %g, want 175", stats.Mean)
	}
	if _, ok := s.Stats["region"]; ok {
		t.Error("text column should carry no numeric stats")
	}
}

func TestBuildSchemaSampleRowsCapped(t *testing.T) {
	rows := make([][]string, 20)
	for i := range rows {
		rows[i] = []string{"x"}
	}
	s := BuildSchema(New("big", []string{"col"}, rows))
	if len(s.SampleRows) != 5 {
		t.Errorf("sample rows = %d, want 5", len(s.SampleRows))
	}
}

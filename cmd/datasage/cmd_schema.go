package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"datasage/internal/dataset"
)

// schemaCmd inspects CSV files without running any analysis
var schemaCmd = &cobra.Command{
	Use:   "schema [file...]",
	Short: "Show the inferred schema of CSV files",
	Long: `Loads each CSV file the same way 'analyze' does (separator sniffing,
header promotion, empty row/column dropping) and prints the resulting
columns, types and summary statistics.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSchema,
}

func runSchema(cmd *cobra.Command, args []string) error {
	for i, path := range args {
		tbl, report, err := dataset.LoadCSVFile(path)
		if err != nil {
			return err
		}
		if i > 0 {
			fmt.Println()
		}
		printSchema(tbl, report)
	}
	return nil
}

func printSchema(tbl *dataset.Table, report *dataset.LoadReport) {
	schema := dataset.BuildSchema(tbl)

	fmt.Printf("%s (%s)\n", report.Filename, tbl.Name())
	fmt.Printf("  %d rows x %d columns", schema.Rows, schema.Cols)
	if report.OriginalRows != schema.Rows || report.OriginalCols != schema.Cols {
		fmt.Printf(" (loaded from %d x %d)", report.OriginalRows, report.OriginalCols)
	}
	fmt.Println()

	for _, step := range report.Steps {
		fmt.Printf("  * %s\n", step)
	}

	for _, col := range schema.Columns {
		line := fmt.Sprintf("  %-24s %-8s", col.Name, col.Type)
		if col.Missing > 0 {
			line += fmt.Sprintf(" missing=%d", col.Missing)
		}
		if len(col.Examples) > 0 {
			line += "  e.g. " + strings.Join(col.Examples, ", ")
		}
		fmt.Println(line)
		if stats, ok := schema.Stats[col.Name]; ok {
			fmt.Printf("  %-24s min=%g max=%g mean=%g\n", "", stats.Min, stats.Max, stats.Mean)
		}
	}
}

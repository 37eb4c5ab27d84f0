package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"datasage/internal/oracle"
)

// modelsCmd lists the selectable generation models
var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List available generation models",
	RunE:  runModels,
}

func runModels(cmd *cobra.Command, args []string) error {
	current := cfg.LLM.Model
	fmt.Println("Available models:")
	for _, m := range oracle.Models() {
		marker := "  "
		if m.Key == current {
			marker = "* "
		}
		star := ""
		if m.Recommended {
			star = " (recommended)"
		}
		fmt.Printf("%s%-18s %-28s %s%s\n", marker, m.Key, m.ID, m.Provider, star)
		fmt.Printf("      %s, context %d tokens\n", m.Description, m.ContextLength)
	}
	fmt.Printf("\nCurrent model: %s\n", current)
	return nil
}

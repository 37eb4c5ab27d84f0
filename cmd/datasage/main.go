package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"datasage/internal/config"
	"datasage/internal/logging"
)

var (
	// Global flags
	configPath string
	modelFlag  string
	debugMode  bool

	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "datasage",
	Short: "datasage - ask questions about CSV data in plain language",
	Long: `datasage answers natural-language questions about tabular data.

Each question is turned into a small Go program by a language model,
executed against the loaded datasets in a restricted interpreter, and the
result is classified and printed. Failed programs are regenerated with the
error fed back, up to three attempts per question.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if modelFlag != "" {
			cfg.LLM.Model = modelFlag
		}
		if debugMode {
			cfg.Logging.DebugMode = true
		}
		return logging.Initialize(logging.Options{
			DebugMode:  cfg.Logging.DebugMode,
			Dir:        cfg.Logging.Dir,
			Level:      cfg.Logging.Level,
			Categories: cfg.Logging.Categories,
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", ".datasage/config.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&modelFlag, "model", "m", "", "Generation model (short name, see 'datasage models')")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(modelsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

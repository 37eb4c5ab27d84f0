package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"datasage/internal/classify"
	"datasage/internal/dataset"
	"datasage/internal/oracle"
	"datasage/internal/orchestrator"
	"datasage/internal/sandbox"
	"datasage/internal/service"
	"datasage/internal/session"
	"datasage/internal/task"
)

var (
	analyzeFiles    []string
	analyzePlotsDir string
	analyzeShowCode bool
)

// analyzeCmd answers one question against one or more CSV files
var analyzeCmd = &cobra.Command{
	Use:   "analyze [question]",
	Short: "Answer a question about CSV data",
	Long: `Loads the given CSV files, generates an analysis program for the
question, runs it and prints the classified result.

Examples:
  datasage analyze -f sales.csv "total amount by year"
  datasage analyze -f orders.csv -f customers.csv "which customer ordered most"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringSliceVarP(&analyzeFiles, "file", "f", nil, "CSV file to load (repeatable, first becomes the primary dataset)")
	analyzeCmd.Flags().StringVar(&analyzePlotsDir, "plots-dir", ".", "Directory for generated chart files")
	analyzeCmd.Flags().BoolVar(&analyzeShowCode, "show-code", false, "Print the generated program of the winning attempt")
	_ = analyzeCmd.MarkFlagRequired("file")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	if err := cfg.Validate(); err != nil {
		return err
	}
	model, err := oracle.LookupModel(cfg.LLM.Model)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Load and bind datasets
	var tables []*dataset.Table
	var reports []dataset.LoadReport
	for _, path := range analyzeFiles {
		tbl, report, err := dataset.LoadCSVFile(path)
		if err != nil {
			return err
		}
		tables = append(tables, tbl)
		reports = append(reports, *report)
		for _, w := range report.Warnings {
			fmt.Fprintf(os.Stderr, "warning: %s: %s\n", report.Filename, w)
		}
	}
	binds, err := dataset.Bind(tables)
	if err != nil {
		return err
	}

	// Wire the stack
	client := oracle.NewOpenRouterClientWithConfig(oracle.OpenRouterConfig{
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
		Model:    model.ID,
		Timeout:  cfg.GetLLMTimeout(),
		SiteName: cfg.Name,
	})
	orch := orchestrator.New(
		oracle.NewAdapter(client),
		sandbox.NewRunner(cfg.GetExecutionTimeout()),
		orchestrator.Config{
			MaxAttempts: cfg.Execution.MaxAttempts,
			Classifier:  classifierOptions(),
		},
	)

	sessions := session.NewStore(session.Options{
		TTL:           cfg.GetSessionTTL(),
		SweepInterval: cfg.GetSessionSweepInterval(),
	})
	defer sessions.Close()

	queue := task.NewQueue(service.New(sessions, orch), sessions, task.Options{
		Workers:       cfg.Tasks.Workers,
		Retention:     cfg.GetTaskRetention(),
		SweepInterval: cfg.GetTaskSweepInterval(),
	})
	defer queue.Close()

	sid := sessions.Create(model.Key)
	if err := sessions.BindDatasets(sid, binds, reports); err != nil {
		return err
	}

	taskID, err := queue.Submit(sid, query)
	if err != nil {
		return err
	}

	events, unsubscribe, err := queue.Subscribe(taskID, 0)
	if err != nil {
		return err
	}
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			_ = queue.Cancel(taskID)
			for range events {
				// drain until the terminal event closes the stream
			}
			return fmt.Errorf("interrupted")
		case ev, ok := <-events:
			if !ok {
				return printOutcome(queue, taskID)
			}
			if ev.Attempt > 0 {
				fmt.Fprintf(os.Stderr, "[%s] attempt %d\n", ev.Stage, ev.Attempt)
			}
		}
	}
}

func classifierOptions() classify.Options {
	return classify.Options{
		MaxListLines:   cfg.Classifier.MaxListLines,
		MaxListLineLen: cfg.Classifier.MaxListLineLen,
	}
}

func printOutcome(queue *task.Queue, taskID string) error {
	snap, err := queue.Status(taskID)
	if err != nil {
		return err
	}
	if snap.Status != task.StatusSucceeded {
		return fmt.Errorf("analysis %s: %s", snap.Status, snap.Error)
	}

	resp := snap.Response
	if analyzeShowCode && len(resp.Attempts) > 0 {
		fmt.Fprintln(os.Stderr, "--- generated program ---")
		fmt.Fprintln(os.Stderr, resp.Attempts[len(resp.Attempts)-1].Source)
		fmt.Fprintln(os.Stderr, "-------------------------")
	}
	for _, line := range resp.Narration {
		fmt.Fprintln(os.Stderr, line)
	}

	fmt.Println(resp.Result.Render())

	for i, img := range resp.Plots {
		name := fmt.Sprintf("chart_%d.svg", i+1)
		path := filepath.Join(analyzePlotsDir, name)
		if err := os.WriteFile(path, img.Data, 0644); err != nil {
			return fmt.Errorf("writing chart: %w", err)
		}
		fmt.Fprintf(os.Stderr, "chart written to %s\n", path)
	}
	return nil
}

package oracle

import (
	"context"
	"fmt"
	"strings"

	"datasage/internal/dataset"
	"datasage/internal/logging"
)

// Turn is one prior question/answer pair carried for conversational context.
type Turn struct {
	Query  string
	Answer string
	OK     bool
}

// Request carries everything the adapter needs to produce a candidate
// program. LastFault is empty on the first attempt; on retries it holds the
// verbatim fault message from the previous attempt.
type Request struct {
	Query     string
	Tables    []dataset.TableSummary
	History   []Turn
	LastFault string
}

// Adapter builds generation prompts and extracts candidate programs from
// model completions.
type Adapter struct {
	client Client
}

// NewAdapter wraps a completion client.
func NewAdapter(client Client) *Adapter {
	return &Adapter{client: client}
}

const systemPrompt = `You are an expert data analyst. You answer questions about tabular
datasets by writing a complete Go program that will be run for you in a
restricted interpreter.

THE PROGRAM MUST BE a complete, self-contained "package main" with a main
function. Only the Go standard library plus three virtual packages are
available:

  import "frames"
    frames.Default() *frames.Table        // the primary dataset
    frames.Get(name string) *frames.Table // dataset by name, nil if absent
    frames.Names() []string               // all bound dataset names
    frames.New(name string, columns []string, rows [][]string) *frames.Table

  A *frames.Table is immutable and offers:
    t.Name() string
    t.RowCount() int
    t.ColumnCount() int
    t.ColumnNames() []string
    t.HasColumn(name string) bool
    t.ColumnIndex(name string) int        // -1 if absent
    t.FindColumn(keywords ...string) string // fuzzy lookup, "" if no match
    t.Value(row int, column string) string
    t.Strings(column string) []string
    t.Floats(column string) []float64     // unparsable cells become NaN
    t.Row(i int) []string

  import "answer"
    answer.Set(v any) // record the final result, call exactly once

  import "charts"
    charts.Line(title string, xs, ys []float64)
    charts.Bar(title string, labels []string, values []float64)

HOW TO WORK, step by step:

1. UNDERSTAND: print what the data looks like (row count, column names).
2. LOCATE: find the columns you need with FindColumn using several keyword
   candidates; if a required column is missing, call answer.Set with a
   message listing the available columns and return.
3. ANALYZE: compute the answer; skip NaN values from Floats.
4. VISUALIZE: when a chart genuinely helps, draw one with charts.
5. RECORD: pass the final value to answer.Set.

RULES:
- Narrate each step with println or fmt.Println so progress is visible.
- answer.Set accepts numbers, strings, bools, slices, maps with scalar
  values, or a *frames.Table built with frames.New for tabular answers.
- Never print the final answer instead of calling answer.Set.
- Do not use goroutines, os, net, or file access.
- Respond with ONLY the Go source code, no explanations.`

// Generate asks the model for a candidate program. The returned string is
// ready to hand to the sandbox: markdown fences are already stripped.
func (a *Adapter) Generate(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Query) == "" {
		return "", fmt.Errorf("empty query")
	}

	userPrompt := buildUserPrompt(req)
	logging.OracleDebug("Generate: query_len=%d tables=%d retry=%v", len(req.Query), len(req.Tables), req.LastFault != "")

	completion, err := a.client.CompleteWithSystem(ctx, systemPrompt, userPrompt)
	if err != nil {
		return "", err
	}

	code := StripFences(completion)
	if strings.TrimSpace(code) == "" {
		return "", fmt.Errorf("%w: model returned an empty program", ErrUnavailable)
	}
	return code, nil
}

func buildUserPrompt(req Request) string {
	var b strings.Builder

	b.WriteString("AVAILABLE DATASETS:\n")
	for _, t := range req.Tables {
		fmt.Fprintf(&b, "\n- %q", t.Name)
		if t.Primary {
			b.WriteString(" (primary, also bound as \"df\")")
		}
		fmt.Fprintf(&b, ": %d rows\n  columns:\n", t.RowCount)
		for _, c := range t.Columns {
			fmt.Fprintf(&b, "    %s (%s)\n", c.Name, c.Type)
		}
	}

	fmt.Fprintf(&b, "\nQUESTION: %s\n", req.Query)

	if len(req.History) > 0 {
		b.WriteString("\nPrevious questions in this session:\n")
		turns := req.History
		if len(turns) > 5 {
			turns = turns[len(turns)-5:]
		}
		for i, t := range turns {
			fmt.Fprintf(&b, "%d. %s\n", i+1, t.Query)
			if t.OK {
				fmt.Fprintf(&b, "   answer: %s\n", excerpt(t.Answer, 200))
			}
		}
	}

	if req.LastFault != "" {
		fmt.Fprintf(&b, "\nTHE PREVIOUS ATTEMPT FAILED WITH THIS ERROR:\n%s\n\nFix the program so this error cannot happen again.\n", req.LastFault)
	}

	return b.String()
}

func excerpt(s string, limit int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

// StripFences removes a surrounding markdown code fence if present.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		// Drop the language tag line ("go", "golang" or empty).
		first := strings.TrimSpace(s[:idx])
		if first == "" || len(first) <= 10 && !strings.ContainsAny(first, " \t") {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

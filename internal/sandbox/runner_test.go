package sandbox

import (
	"context"
	"strings"
	"testing"
	"time"

	"datasage/internal/dataset"
)

func testBindings(t *testing.T) *dataset.Bindings {
	t.Helper()
	tbl := dataset.New("sales", []string{"year", "amount"}, [][]string{
		{"2021", "100"},
		{"2022", "250"},
		{"2023", "175"},
	})
	b, err := dataset.Bind([]*dataset.Table{tbl})
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	return b
}

func TestRunCapturesNarrationAndResult(t *testing.T) {
	r := NewRunner(10 * time.Second)

	src := `package main

import (
	"fmt"

	"answer"
	"frames"
)

func main() {
	df := frames.Default()
	fmt.Println("inspecting", df.RowCount(), "rows")

	total := 0.0
	for _, v := range df.Floats("amount") {
		total += v
	}
	fmt.Println("computed total")
	answer.Set(total)
}
`
	out, err := r.Run(context.Background(), src, testBindings(t))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !out.Success || out.Fault != nil {
		t.Fatalf("expected success, got fault %v", out.Fault)
	}
	if !out.HasResult {
		t.Fatal("expected a recorded result")
	}
	if got, ok := out.Result.(float64); !ok || got != 525 {
		t.Errorf("result = %v (%T), want 525", out.Result, out.Result)
	}
	if len(out.Narration) != 2 {
		t.Fatalf("narration = %q, want 2 lines", out.Narration)
	}
	if out.Narration[0] != "inspecting 3 rows" {
		t.Errorf("narration[0] = %q", out.Narration[0])
	}
}

func TestRunUndefinedSymbolIsReferenceFault(t *testing.T) {
	r := NewRunner(10 * time.Second)

	src := `package main

func main() {
	_ = revenu
}
`
	out, err := r.Run(context.Background(), src, testBindings(t))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Success {
		t.Fatal("expected failure")
	}
	if out.Fault == nil || out.Fault.Kind != FaultReference {
		t.Fatalf("fault = %v, want reference", out.Fault)
	}
	if !strings.Contains(out.Fault.Message, "undefined") {
		t.Errorf("fault message %q does not carry the interpreter text", out.Fault.Message)
	}
	if !out.Fault.Retryable() {
		t.Error("reference faults should be retryable")
	}
}

func TestRunTimeoutFault(t *testing.T) {
	r := NewRunner(200 * time.Millisecond)

	src := `package main

func main() {
	for {
	}
}
`
	out, err := r.Run(context.Background(), src, testBindings(t))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Fault == nil || out.Fault.Kind != FaultTimeout {
		t.Fatalf("fault = %v, want timeout", out.Fault)
	}
	if out.Fault.Retryable() {
		t.Error("timeout faults must not be retryable")
	}
}

func TestRunCancellation(t *testing.T) {
	r := NewRunner(0)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	src := `package main

func main() {
	for {
	}
}
`
	_, err := r.Run(ctx, src, testBindings(t))
	if err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestRunChartsAreCollected(t *testing.T) {
	r := NewRunner(10 * time.Second)

	src := `package main

import (
	"answer"
	"charts"
	"frames"
)

func main() {
	df := frames.Default()
	charts.Bar("amount by year", df.Strings("year"), df.Floats("amount"))
	answer.Set("see chart")
}
`
	out, err := r.Run(context.Background(), src, testBindings(t))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Fault != nil {
		t.Fatalf("fault: %v", out.Fault)
	}
	if len(out.Plots) != 1 {
		t.Fatalf("plots = %d, want 1", len(out.Plots))
	}
	if out.Plots[0].MIME != "image/svg+xml" {
		t.Errorf("plot mime = %q", out.Plots[0].MIME)
	}
}

func TestRunBlockedImportRejected(t *testing.T) {
	r := NewRunner(10 * time.Second)

	src := `package main

import "os"

func main() {
	os.Exit(1)
}
`
	out, err := r.Run(context.Background(), src, testBindings(t))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Fault == nil || !strings.Contains(out.Fault.Message, "forbidden imports") {
		t.Fatalf("fault = %v, want forbidden import rejection", out.Fault)
	}
}

func TestRunMissingPackageMainRejected(t *testing.T) {
	r := NewRunner(10 * time.Second)

	out, err := r.Run(context.Background(), `func main() {}`, testBindings(t))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Fault == nil {
		t.Fatal("expected a fault for a bare snippet")
	}
}

func TestRunBuiltTableResult(t *testing.T) {
	r := NewRunner(10 * time.Second)

	src := `package main

import (
	"answer"
	"frames"
)

func main() {
	out := frames.New("by_year", []string{"year", "total"}, [][]string{
		{"2021", "100"},
		{"2022", "250"},
	})
	answer.Set(out)
}
`
	out, err := r.Run(context.Background(), src, testBindings(t))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Fault != nil {
		t.Fatalf("fault: %v", out.Fault)
	}
	tbl, ok := out.Result.(*dataset.Table)
	if !ok {
		t.Fatalf("result type = %T, want *dataset.Table", out.Result)
	}
	if tbl.RowCount() != 2 || tbl.Name() != "by_year" {
		t.Errorf("unexpected table: %s with %d rows", tbl.Name(), tbl.RowCount())
	}
}

func TestClassifyFaultKinds(t *testing.T) {
	cases := []struct {
		msg  string
		want FaultKind
	}{
		{`3:10: undefined: revenu`, FaultReference},
		{`5:2: cannot use "x" (untyped string constant) as int value`, FaultType},
		{`7:4: invalid operation: mismatched types int and string`, FaultType},
		{`runtime error: index out of range [5] with length 3`, FaultRuntime},
		{`panic during execution: boom`, FaultRuntime},
	}
	for _, tc := range cases {
		if got := classifyFault("", tc.msg); got.Kind != tc.want {
			t.Errorf("classifyFault(%q) = %s, want %s", tc.msg, got.Kind, tc.want)
		}
	}
}

func TestFaultExcerptResolvesSourceLine(t *testing.T) {
	src := "package main\n\nfunc main() {\n\t_ = revenu\n}\n"
	f := classifyFault(src, "4:6: undefined: revenu")
	if f.Excerpt != "_ = revenu" {
		t.Errorf("excerpt = %q", f.Excerpt)
	}

	if got := classifyFault(src, "no position here"); got.Excerpt != "" {
		t.Errorf("excerpt for positionless error = %q", got.Excerpt)
	}
}

func TestFaultFeedback(t *testing.T) {
	src := "package main\n\nfunc main() {\n\t_ = revenu\n}\n"
	f := classifyFault(src, "4:6: undefined: revenu")

	want := "reference error: 4:6: undefined: revenu\noffending line: _ = revenu"
	if got := f.Feedback(); got != want {
		t.Errorf("Feedback() = %q, want %q", got, want)
	}

	bare := &Fault{Kind: FaultRuntime, Message: "index out of range"}
	if got := bare.Feedback(); got != "runtime error: index out of range" {
		t.Errorf("Feedback() without excerpt = %q", got)
	}
}

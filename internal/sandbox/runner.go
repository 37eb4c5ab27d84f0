// Package sandbox executes machine-generated Go programs in a restricted
// interpreter. Instead of compiling candidates with `go build` (which can
// hang or fail on missing dependencies), code is interpreted at runtime with
// no network, filesystem or exec access.
package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"datasage/internal/dataset"
	"datasage/internal/logging"
	"datasage/internal/plot"
)

// Outcome is the full record of one candidate execution.
type Outcome struct {
	Success   bool
	Result    any
	HasResult bool
	Narration []string
	Plots     []plot.Image
	Fault     *Fault
}

// Runner executes candidate programs. It is stateless; every Run builds a
// fresh interpreter so nothing leaks between attempts.
type Runner struct {
	timeout time.Duration
}

// NewRunner creates a runner. A non-positive timeout means the caller's
// context governs alone.
func NewRunner(timeout time.Duration) *Runner {
	return &Runner{timeout: timeout}
}

var blockedImports = map[string]bool{
	"os":             true,
	"os/exec":        true,
	"os/signal":      true,
	"net":            true,
	"net/http":       true,
	"net/rpc":        true,
	"syscall":        true,
	"unsafe":         true,
	"plugin":         true,
	"runtime/debug":  true,
	"io/ioutil":      true,
	"path/filepath":  true,
	"database/sql":   true,
	"os/user":        true,
	"net/http/pprof": true,
}

// Run executes source against the bound datasets. Faults are reported in
// the Outcome; the error return is reserved for caller cancellation.
func (r *Runner) Run(ctx context.Context, source string, binds *dataset.Bindings) (Outcome, error) {
	start := time.Now()

	if err := validateImports(source); err != nil {
		logging.Sandbox("Run: rejected before execution: %v", err)
		return Outcome{Fault: &Fault{Kind: FaultReference, Message: err.Error()}}, nil
	}
	if !strings.Contains(source, "package main") {
		return Outcome{Fault: &Fault{
			Kind:    FaultReference,
			Message: "candidate program must be a complete package main with a main function",
		}}, nil
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	rec := &recorder{}
	var narration bytes.Buffer

	i := interp.New(interp.Options{
		Stdout: &narration,
		Stderr: &narration,
	})
	if err := i.Use(stdlib.Symbols); err != nil {
		return Outcome{}, fmt.Errorf("failed to load stdlib symbols: %w", err)
	}
	if err := i.Use(buildExports(binds, rec)); err != nil {
		return Outcome{}, fmt.Errorf("failed to load virtual packages: %w", err)
	}

	runErr := eval(ctx, i, source)

	result, hasResult, plots := rec.snapshot()
	out := Outcome{
		Result:    result,
		HasResult: hasResult,
		Narration: splitNarration(narration.String()),
		Plots:     plots,
	}

	switch {
	case runErr == nil:
		out.Success = true
		logging.Sandbox("Run: ok in %v narration_lines=%d plots=%d has_result=%v",
			time.Since(start), len(out.Narration), len(out.Plots), out.HasResult)
	case errors.Is(runErr, context.Canceled):
		logging.Sandbox("Run: cancelled after %v", time.Since(start))
		return Outcome{}, context.Canceled
	case errors.Is(runErr, context.DeadlineExceeded):
		out.Fault = &Fault{
			Kind:    FaultTimeout,
			Message: fmt.Sprintf("execution exceeded the time limit (%v)", time.Since(start).Round(time.Millisecond)),
		}
		logging.Sandbox("Run: timed out after %v", time.Since(start))
	default:
		out.Fault = classifyFault(source, runErr.Error())
		logging.Sandbox("Run: %s fault after %v: %s", out.Fault.Kind, time.Since(start), out.Fault.Message)
	}
	return out, nil
}

// eval evaluates the program body; yaegi invokes its main function as part
// of evaluating a complete package main source. Yaegi panics on some
// malformed inputs, so the phase recovers.
func eval(ctx context.Context, i *interp.Interpreter, source string) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic during execution: %v", rec)
		}
	}()

	if _, err := i.EvalWithContext(ctx, source); err != nil {
		return err
	}
	return nil
}

// validateImports rejects imports that would reach outside the sandbox.
// Candidates may use any other stdlib package plus the virtual frames,
// answer and charts packages.
func validateImports(source string) error {
	var blocked []string
	inBlock := false
	for _, line := range strings.Split(source, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "import ("):
			inBlock = true
			continue
		case inBlock && strings.HasPrefix(trimmed, ")"):
			inBlock = false
			continue
		}

		var spec string
		if inBlock {
			spec = trimmed
		} else if strings.HasPrefix(trimmed, "import ") {
			spec = strings.TrimPrefix(trimmed, "import ")
		} else {
			continue
		}

		// Strip an alias ahead of the quoted path.
		if idx := strings.IndexByte(spec, '"'); idx >= 0 {
			spec = spec[idx:]
		}
		pkg := strings.Trim(spec, `"`)
		if blockedImports[pkg] {
			blocked = append(blocked, pkg)
		}
	}
	if len(blocked) > 0 {
		return fmt.Errorf("forbidden imports: %v", blocked)
	}
	return nil
}

func splitNarration(s string) []string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// Package orchestrator drives the generate-execute-classify loop that turns
// an analysis question into a classified answer, regenerating the candidate
// program when an attempt faults.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"datasage/internal/classify"
	"datasage/internal/dataset"
	"datasage/internal/logging"
	"datasage/internal/oracle"
	"datasage/internal/plot"
	"datasage/internal/sandbox"
)

// State identifies where in the analysis loop a request is.
type State int

const (
	StatePending State = iota
	StateGenerating
	StateExecuting
	StateClassifying
	StateRetrying
	StateSucceeded
	StateExhausted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateGenerating:
		return "generating"
	case StateExecuting:
		return "executing"
	case StateClassifying:
		return "classifying"
	case StateRetrying:
		return "retrying"
	case StateSucceeded:
		return "succeeded"
	case StateExhausted:
		return "exhausted"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Terminal reports whether the loop stops in this state.
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StateExhausted, StateAborted:
		return true
	}
	return false
}

// Generator produces a candidate program for a request.
type Generator interface {
	Generate(ctx context.Context, req oracle.Request) (string, error)
}

// Executor runs a candidate program against bound datasets.
type Executor interface {
	Run(ctx context.Context, source string, binds *dataset.Bindings) (sandbox.Outcome, error)
}

// Request is one analysis question over a set of bound datasets.
type Request struct {
	Query    string
	Bindings *dataset.Bindings
	History  []oracle.Turn
}

// Attempt records one generate-execute round, including the partial output
// captured before a fault, for the diagnostic trail.
type Attempt struct {
	Number    int
	Source    string
	Fault     *sandbox.Fault
	Narration []string
	Plots     []plot.Image
	Duration  time.Duration
}

// Response is the final record of a loop run. Narration and Plots come from
// the winning attempt only; failed attempts contribute nothing but their
// fault trail.
type Response struct {
	State     State
	Attempts  []Attempt
	Result    classify.Result
	Narration []string
	Plots     []plot.Image
	Error     string
	Duration  time.Duration
}

// ProgressFunc observes every state transition. Attempt is 1-based and zero
// before the first generation starts.
type ProgressFunc func(state State, attempt int)

// Config tunes the loop.
type Config struct {
	MaxAttempts int
	Classifier  classify.Options
}

// DefaultConfig returns the standard loop configuration.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		Classifier:  classify.DefaultOptions(),
	}
}

// Orchestrator owns one generator and one executor and runs requests
// through the loop. It is safe for concurrent use.
type Orchestrator struct {
	generator Generator
	executor  Executor
	config    Config
}

// New creates an orchestrator.
func New(generator Generator, executor Executor, config Config) *Orchestrator {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultConfig().MaxAttempts
	}
	return &Orchestrator{generator: generator, executor: executor, config: config}
}

// ErrNoDatasets is returned when a request arrives with nothing bound.
var ErrNoDatasets = errors.New("no datasets bound")

// Run drives one request to a terminal state. The progress callback may be
// nil. The returned Response is always populated; the error repeats
// Response.Error for callers that only check failure.
func (o *Orchestrator) Run(ctx context.Context, req Request, progress ProgressFunc) (*Response, error) {
	start := time.Now()
	resp := &Response{State: StatePending}
	notify := func(attempt int) {
		if progress != nil {
			progress(resp.State, attempt)
		}
	}
	notify(0)

	if req.Bindings == nil || req.Bindings.Len() == 0 {
		resp.State = StateAborted
		resp.Error = ErrNoDatasets.Error()
		resp.Duration = time.Since(start)
		notify(0)
		return resp, ErrNoDatasets
	}

	summary := req.Bindings.Summary()
	lastFault := ""

	for attempt := 1; attempt <= o.config.MaxAttempts; attempt++ {
		resp.State = StateGenerating
		notify(attempt)
		logging.Orchestrator("Run: attempt %d/%d generating query_len=%d", attempt, o.config.MaxAttempts, len(req.Query))

		source, err := o.generator.Generate(ctx, oracle.Request{
			Query:     req.Query,
			Tables:    summary,
			History:   req.History,
			LastFault: lastFault,
		})
		if err != nil {
			return o.abort(resp, start, attempt, notify, fmt.Errorf("generation failed: %w", err))
		}

		attemptStart := time.Now()
		resp.State = StateExecuting
		notify(attempt)

		outcome, err := o.executor.Run(ctx, source, req.Bindings)
		rec := Attempt{
			Number:    attempt,
			Source:    source,
			Fault:     outcome.Fault,
			Narration: outcome.Narration,
			Plots:     outcome.Plots,
			Duration:  time.Since(attemptStart),
		}
		resp.Attempts = append(resp.Attempts, rec)

		if err != nil {
			return o.abort(resp, start, attempt, notify, fmt.Errorf("execution aborted: %w", err))
		}

		if outcome.Fault != nil {
			if !outcome.Fault.Retryable() {
				return o.abort(resp, start, attempt, notify, fmt.Errorf("attempt %d: %w", attempt, outcome.Fault))
			}
			logging.OrchestratorWarn("Run: attempt %d faulted (%s): %s", attempt, outcome.Fault.Kind, outcome.Fault.Message)
			lastFault = outcome.Fault.Feedback()
			if attempt < o.config.MaxAttempts {
				resp.State = StateRetrying
				notify(attempt)
			}
			continue
		}

		resp.State = StateClassifying
		notify(attempt)

		resp.Result = classify.Classify(outcome.Result, outcome.HasResult, outcome.Narration, o.config.Classifier)
		resp.Narration = outcome.Narration
		resp.Plots = outcome.Plots
		resp.State = StateSucceeded
		resp.Duration = time.Since(start)
		notify(attempt)
		logging.Orchestrator("Run: succeeded on attempt %d in %v kind=%s", attempt, resp.Duration, resp.Result.Kind)
		return resp, nil
	}

	resp.State = StateExhausted
	resp.Error = fmt.Sprintf("all %d attempts failed, last fault: %s", o.config.MaxAttempts, lastFault)
	resp.Duration = time.Since(start)
	notify(o.config.MaxAttempts)
	logging.OrchestratorWarn("Run: exhausted after %d attempts in %v", o.config.MaxAttempts, resp.Duration)
	return resp, errors.New(resp.Error)
}

func (o *Orchestrator) abort(resp *Response, start time.Time, attempt int, notify func(int), err error) (*Response, error) {
	resp.State = StateAborted
	resp.Error = err.Error()
	resp.Duration = time.Since(start)
	notify(attempt)
	logging.OrchestratorWarn("Run: aborted on attempt %d: %v", attempt, err)
	return resp, err
}

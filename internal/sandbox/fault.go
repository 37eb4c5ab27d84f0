package sandbox

import (
	"fmt"
	"strconv"
	"strings"
)

// FaultKind classifies how a candidate program failed.
type FaultKind int

const (
	FaultRuntime FaultKind = iota
	FaultReference
	FaultType
	FaultTimeout
)

// String returns the human-readable fault kind.
func (k FaultKind) String() string {
	switch k {
	case FaultRuntime:
		return "runtime"
	case FaultReference:
		return "reference"
	case FaultType:
		return "type"
	case FaultTimeout:
		return "timeout"
	default:
		return fmt.Sprintf("FaultKind(%d)", int(k))
	}
}

// Fault describes one failed execution. Message is the interpreter's error
// text verbatim, which is what gets fed back for the next attempt. Excerpt
// is the offending source line when the error names a position.
type Fault struct {
	Kind    FaultKind
	Message string
	Excerpt string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s fault: %s", f.Kind, f.Message)
}

// Retryable reports whether a new candidate could plausibly avoid this
// fault. Timeouts terminate the attempt sequence.
func (f *Fault) Retryable() bool {
	return f.Kind != FaultTimeout
}

// Feedback renders the fault for the next generation attempt: the verbatim
// interpreter message prefixed with the kind, plus the offending source line
// when one was resolved.
func (f *Fault) Feedback() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s error: %s", f.Kind, f.Message)
	if f.Excerpt != "" {
		fmt.Fprintf(&b, "\noffending line: %s", f.Excerpt)
	}
	return b.String()
}

var typeFaultMarkers = []string{
	"cannot use",
	"mismatched types",
	"invalid operation",
	"cannot convert",
}

// classifyFault maps interpreter error text onto the fault taxonomy and
// attaches the source line the error points at, when it names one.
func classifyFault(source, msg string) *Fault {
	f := &Fault{Kind: FaultRuntime, Message: msg, Excerpt: faultExcerpt(source, msg)}
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "undefined") {
		f.Kind = FaultReference
		return f
	}
	for _, marker := range typeFaultMarkers {
		if strings.Contains(lower, marker) {
			f.Kind = FaultType
			return f
		}
	}
	return f
}

// faultExcerpt resolves a leading "line:col:" position in the error text to
// the matching source line.
func faultExcerpt(source, msg string) string {
	parts := strings.SplitN(msg, ":", 3)
	if len(parts) < 3 {
		return ""
	}
	lineNo, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || lineNo < 1 {
		return ""
	}
	lines := strings.Split(source, "\n")
	if lineNo > len(lines) {
		return ""
	}
	excerpt := strings.TrimSpace(lines[lineNo-1])
	if len(excerpt) > 120 {
		excerpt = excerpt[:120]
	}
	return excerpt
}

// Package classify shapes raw execution results into a closed set of
// presentation kinds. Classification is pure and total: any value maps to
// exactly one kind, and classifying the same input twice gives the same
// answer.
package classify

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"datasage/internal/dataset"
)

// Kind is the presentation shape of a classified result.
type Kind int

const (
	Empty Kind = iota
	Scalar
	List
	Table
	KeyValue
	Text
	Raw
)

// String returns the lowercase kind name.
func (k Kind) String() string {
	switch k {
	case Empty:
		return "empty"
	case Scalar:
		return "scalar"
	case List:
		return "list"
	case Table:
		return "table"
	case KeyValue:
		return "keyvalue"
	case Text:
		return "text"
	case Raw:
		return "raw"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Pair is one entry of a KeyValue result.
type Pair struct {
	Key   string
	Value string
}

// Result is the classified form of one execution outcome. Only the fields
// matching Kind are populated.
type Result struct {
	Kind   Kind
	Scalar string
	Items  []string
	Table  *dataset.Table
	Pairs  []Pair
	Text   string
	Raw    string
}

// Options tunes the multi-line text heuristic.
type Options struct {
	// MaxListLines is the line count above which a multi-line string is
	// considered for list treatment.
	MaxListLines int
	// MaxListLineLen is the per-line rune ceiling for list treatment.
	MaxListLineLen int
}

// DefaultOptions returns the standard thresholds.
func DefaultOptions() Options {
	return Options{MaxListLines: 3, MaxListLineLen: 150}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxListLines <= 0 {
		o.MaxListLines = d.MaxListLines
	}
	if o.MaxListLineLen <= 0 {
		o.MaxListLineLen = d.MaxListLineLen
	}
	return o
}

// Classify maps a raw result value onto its presentation kind. When the run
// recorded no result, non-empty narration is classified as text instead, so
// a program that only printed its findings still produces an answer.
func Classify(raw any, hasResult bool, narration []string, opts Options) Result {
	opts = opts.withDefaults()

	if !hasResult {
		joined := strings.TrimSpace(strings.Join(narration, "\n"))
		if joined == "" {
			return Result{Kind: Empty}
		}
		return classifyText(joined, opts)
	}

	if raw == nil {
		return Result{Kind: Empty}
	}

	if t, ok := raw.(*dataset.Table); ok {
		if t == nil {
			return Result{Kind: Empty}
		}
		return Result{Kind: Table, Table: t}
	}

	v := reflect.ValueOf(raw)
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		return classifySlice(v)
	case reflect.Map:
		return classifyMap(v, raw)
	case reflect.Ptr, reflect.Interface:
		if v.IsNil() {
			return Result{Kind: Empty}
		}
		return Classify(v.Elem().Interface(), true, nil, opts)
	}

	if s, ok := scalarString(raw); ok {
		if str, isStr := raw.(string); isStr {
			return classifyString(str, opts)
		}
		return Result{Kind: Scalar, Scalar: s}
	}

	return Result{Kind: Raw, Raw: fmt.Sprintf("%+v", raw)}
}

func classifyString(s string, opts Options) Result {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Result{Kind: Empty}
	}
	if !strings.Contains(trimmed, "\n") && utf8.RuneCountInString(trimmed) < opts.MaxListLineLen {
		return Result{Kind: Scalar, Scalar: trimmed}
	}
	return classifyText(trimmed, opts)
}

// classifyText applies the multi-line heuristic: enough short lines read as
// a list, anything else stays prose.
func classifyText(s string, opts Options) Result {
	lines := strings.Split(s, "\n")
	if len(lines) > opts.MaxListLines {
		allShort := true
		for _, line := range lines {
			if utf8.RuneCountInString(line) >= opts.MaxListLineLen {
				allShort = false
				break
			}
		}
		if allShort {
			items := make([]string, 0, len(lines))
			for _, line := range lines {
				if t := strings.TrimSpace(line); t != "" {
					items = append(items, t)
				}
			}
			return Result{Kind: List, Items: items}
		}
	}
	return Result{Kind: Text, Text: s}
}

func classifySlice(v reflect.Value) Result {
	items := make([]string, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		elem := v.Index(i).Interface()
		s, ok := scalarString(elem)
		if !ok {
			s = fmt.Sprintf("%+v", elem)
		}
		items = append(items, s)
	}
	return Result{Kind: List, Items: items}
}

// classifyMap accepts only flat maps whose values are all scalar. Anything
// nested falls through to Raw.
func classifyMap(v reflect.Value, raw any) Result {
	pairs := make([]Pair, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		key, ok := scalarString(iter.Key().Interface())
		if !ok {
			return Result{Kind: Raw, Raw: fmt.Sprintf("%+v", raw)}
		}
		val, ok := scalarString(iter.Value().Interface())
		if !ok {
			return Result{Kind: Raw, Raw: fmt.Sprintf("%+v", raw)}
		}
		pairs = append(pairs, Pair{Key: key, Value: val})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Key < pairs[j].Key })
	return Result{Kind: KeyValue, Pairs: pairs}
}

// scalarString formats a value when it is scalar-like, reporting false for
// anything structured.
func scalarString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case bool:
		return strconv.FormatBool(x), true
	case int:
		return strconv.Itoa(x), true
	case int8:
		return strconv.FormatInt(int64(x), 10), true
	case int16:
		return strconv.FormatInt(int64(x), 10), true
	case int32:
		return strconv.FormatInt(int64(x), 10), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case uint:
		return strconv.FormatUint(uint64(x), 10), true
	case uint8:
		return strconv.FormatUint(uint64(x), 10), true
	case uint16:
		return strconv.FormatUint(uint64(x), 10), true
	case uint32:
		return strconv.FormatUint(uint64(x), 10), true
	case uint64:
		return strconv.FormatUint(x, 10), true
	case float32:
		return formatFloat(float64(x)), true
	case float64:
		return formatFloat(x), true
	}
	return "", false
}

func formatFloat(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

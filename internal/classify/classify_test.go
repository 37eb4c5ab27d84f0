package classify

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"datasage/internal/dataset"
)

func classify(v any) Result {
	return Classify(v, true, nil, DefaultOptions())
}

func TestScalarKinds(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want string
	}{
		{"float average", 51666.666666666664, "51666.666666666664"},
		{"rounded float", 51666.67, "51666.67"},
		{"whole float", 250.0, "250"},
		{"int", 42, "42"},
		{"bool", true, "true"},
		{"short string", "the busiest month was July", "the busiest month was July"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classify(tc.in)
			assert.Equal(t, Scalar, got.Kind)
			assert.Equal(t, tc.want, got.Scalar)
		})
	}
}

func TestEmptyCases(t *testing.T) {
	for name, v := range map[string]any{
		"nil":          nil,
		"blank string": "   ",
		"nil table":    (*dataset.Table)(nil),
	} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, Empty, classify(v).Kind)
		})
	}
	assert.Equal(t, Empty, Classify(nil, false, nil, DefaultOptions()).Kind)
}

func TestTableResult(t *testing.T) {
	tbl := dataset.New("by_year", []string{"year", "total"}, [][]string{{"2021", "100"}})
	got := classify(tbl)
	assert.Equal(t, Table, got.Kind)
	assert.Same(t, tbl, got.Table)
}

func TestSliceBecomesList(t *testing.T) {
	got := classify([]float64{1.5, 2, 3.25})
	assert.Equal(t, List, got.Kind)
	if diff := cmp.Diff([]string{"1.5", "2", "3.25"}, got.Items); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}

	got = classify([]string{"east", "west"})
	assert.Equal(t, List, got.Kind)
	assert.Equal(t, []string{"east", "west"}, got.Items)
}

func TestFlatMapBecomesSortedKeyValue(t *testing.T) {
	got := classify(map[string]float64{"west": 20.5, "east": 10})
	assert.Equal(t, KeyValue, got.Kind)
	want := []Pair{{Key: "east", Value: "10"}, {Key: "west", Value: "20.5"}}
	if diff := cmp.Diff(want, got.Pairs); diff != "" {
		t.Errorf("pairs mismatch (-want +got):\n%s", diff)
	}
}

func TestNestedMapFallsToRaw(t *testing.T) {
	got := classify(map[string][]int{"a": {1, 2}})
	assert.Equal(t, Raw, got.Kind)
	assert.NotEmpty(t, got.Raw)
}

func TestStructFallsToRaw(t *testing.T) {
	got := classify(struct{ X int }{X: 3})
	assert.Equal(t, Raw, got.Kind)
	assert.Contains(t, got.Raw, "X:3")
}

func TestMultiLineHeuristic(t *testing.T) {
	t.Run("four short lines become a list", func(t *testing.T) {
		got := classify("alpha\nbeta\ngamma\ndelta")
		assert.Equal(t, List, got.Kind)
		assert.Len(t, got.Items, 4)
	})

	t.Run("three lines stay text", func(t *testing.T) {
		got := classify("alpha\nbeta\ngamma")
		assert.Equal(t, Text, got.Kind)
	})

	t.Run("blank lines are dropped from list items", func(t *testing.T) {
		got := classify("alpha\n\nbeta\ngamma\ndelta")
		assert.Equal(t, List, got.Kind)
		assert.Equal(t, []string{"alpha", "beta", "gamma", "delta"}, got.Items)
	})

	t.Run("one long line breaks list treatment", func(t *testing.T) {
		long := strings.Repeat("x", 150)
		got := classify("alpha\nbeta\ngamma\n" + long)
		assert.Equal(t, Text, got.Kind)
	})

	t.Run("single long line is text", func(t *testing.T) {
		got := classify(strings.Repeat("word ", 40))
		assert.Equal(t, Text, got.Kind)
	})
}

func TestNarrationFallback(t *testing.T) {
	narration := []string{"step 1: loading", "step 2: computing", "step 3: done", "total was 525"}
	got := Classify(nil, false, narration, DefaultOptions())
	assert.Equal(t, List, got.Kind)
	assert.Len(t, got.Items, 4)

	short := []string{"the answer is 525"}
	got = Classify(nil, false, short, DefaultOptions())
	assert.Equal(t, Text, got.Kind)
	assert.Equal(t, "the answer is 525", got.Text)
}

func TestClassifyIsIdempotent(t *testing.T) {
	inputs := []any{
		51666.67,
		"one\ntwo\nthree\nfour",
		[]int{1, 2, 3},
		map[string]string{"k": "v"},
		struct{ Y bool }{},
	}
	for _, in := range inputs {
		a := classify(in)
		b := classify(in)
		if diff := cmp.Diff(a, b, cmp.AllowUnexported(dataset.Table{})); diff != "" {
			t.Errorf("classification of %v unstable:\n%s", in, diff)
		}
	}
}

func TestCustomThresholds(t *testing.T) {
	opts := Options{MaxListLines: 1, MaxListLineLen: 10}
	got := Classify("ab\ncd", true, nil, opts)
	assert.Equal(t, List, got.Kind)

	got = Classify("a string well over ten runes", true, nil, opts)
	assert.Equal(t, Text, got.Kind)
}

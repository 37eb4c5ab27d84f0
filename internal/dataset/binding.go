package dataset

import (
	"errors"
	"fmt"
)

// DefaultName is the canonical variable name the primary dataset is always
// reachable under inside the sandbox.
const DefaultName = "df"

// ErrEmptyInput is returned when a binding is requested with no datasets.
var ErrEmptyInput = errors.New("empty input: at least one dataset is required")

// Bindings maps variable names to tables for one execution. Built once per
// request; identical across retries of the same request. Tables are
// referenced, never copied.
type Bindings struct {
	order   []string // derived names in input order, primary first
	tables  map[string]*Table
	primary string
}

// Bind builds the binding table for an ordered set of datasets. The first
// dataset is the primary one and is always reachable under DefaultName in
// addition to its own derived name. Name collisions are resolved by
// suffixing an incrementing integer.
func Bind(tables []*Table) (*Bindings, error) {
	if len(tables) == 0 {
		return nil, ErrEmptyInput
	}

	b := &Bindings{tables: make(map[string]*Table, len(tables)+1)}
	for i, t := range tables {
		name := SanitizeName(t.Name())
		if name == "" {
			name = fmt.Sprintf("data_%d", i+1)
		}
		name = b.dedupe(name)
		b.tables[name] = t
		b.order = append(b.order, name)
		if i == 0 {
			b.primary = name
			if name != DefaultName {
				b.tables[DefaultName] = t
			}
		}
	}
	return b, nil
}

// dedupe resolves a name collision by appending _2, _3, ...
func (b *Bindings) dedupe(name string) string {
	if _, taken := b.tables[name]; !taken && name != DefaultName {
		return name
	}
	if name == DefaultName {
		// A non-primary table literally named "df" must not shadow the
		// canonical alias.
		if _, taken := b.tables[name]; !taken && len(b.order) == 0 {
			return name
		}
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s_%d", name, n)
		if _, taken := b.tables[candidate]; !taken {
			return candidate
		}
	}
}

// Get returns the table bound to name.
func (b *Bindings) Get(name string) (*Table, bool) {
	t, ok := b.tables[name]
	return t, ok
}

// Default returns the primary dataset.
func (b *Bindings) Default() *Table { return b.tables[b.primary] }

// Names returns the derived binding names in input order. The canonical
// default alias is not repeated.
func (b *Bindings) Names() []string {
	out := make([]string, len(b.order))
	copy(out, b.order)
	return out
}

// Len returns the number of bound datasets (aliases excluded).
func (b *Bindings) Len() int { return len(b.order) }

// TableSummary is the schema-only projection of one bound table.
type TableSummary struct {
	Name     string
	Primary  bool
	RowCount int
	Columns  []Column
}

// Summary projects the binding table down to names, column schemas and row
// counts. Row data never crosses this boundary; it is what the oracle sees.
func (b *Bindings) Summary() []TableSummary {
	out := make([]TableSummary, 0, len(b.order))
	for _, name := range b.order {
		t := b.tables[name]
		out = append(out, TableSummary{
			Name:     name,
			Primary:  name == b.primary,
			RowCount: t.RowCount(),
			Columns:  t.Columns(),
		})
	}
	return out
}

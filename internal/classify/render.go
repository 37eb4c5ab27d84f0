package classify

import (
	"fmt"
	"strings"
)

// Render formats a classified result as markdown-flavoured text suitable
// for terminals and chat transcripts.
func (r Result) Render() string {
	switch r.Kind {
	case Empty:
		return "(no result)"
	case Scalar:
		return r.Scalar
	case List:
		var b strings.Builder
		for _, item := range r.Items {
			fmt.Fprintf(&b, "- %s\n", item)
		}
		return strings.TrimRight(b.String(), "\n")
	case Table:
		return renderTable(r)
	case KeyValue:
		var b strings.Builder
		b.WriteString("| key | value |\n|---|---|\n")
		for _, p := range r.Pairs {
			fmt.Fprintf(&b, "| %s | %s |\n", p.Key, p.Value)
		}
		return strings.TrimRight(b.String(), "\n")
	case Text:
		return r.Text
	default:
		return r.Raw
	}
}

func renderTable(r Result) string {
	t := r.Table
	if t == nil {
		return "(no result)"
	}
	names := t.ColumnNames()

	var b strings.Builder
	b.WriteString("| " + strings.Join(names, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat("---|", len(names)) + "\n")
	for i := 0; i < t.RowCount(); i++ {
		b.WriteString("| " + strings.Join(t.Row(i), " | ") + " |\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

package parser

import (
	"strconv"

	"github.com/Sumatoshi-tech/datalens/pkg/profile"
)

// columnPrefix names unnamed columns by 1-based position.
const columnPrefix = "column_"

// ColumnName returns the generated name of the column at 0-based position i.
func ColumnName(i int) string {
	return columnPrefix + strconv.Itoa(i+1)
}

// HeaderNames turns a header record into unique column names. Empty cells
// become column_N and repeated names get _2, _3 suffixes.
func HeaderNames(record []string) []string {
	names := make([]string, len(record))
	seen := make(map[string]bool, len(record))

	for i, cell := range record {
		name := cell
		if name == "" {
			name = ColumnName(i)
		}

		if seen[name] {
			for n := 2; ; n++ {
				candidate := name + "_" + strconv.Itoa(n)
				if !seen[candidate] {
					name = candidate

					break
				}
			}
		}

		seen[name] = true
		names[i] = name
	}

	return names
}

// tabular maps positional records onto named fields. It serves delimited text
// and spreadsheets.
type tabular struct {
	sink   RowSink
	header bool
	named  bool
	names  []string
	fields []profile.Field

	// ragged accepts short rows silently, as spreadsheets drop trailing empty cells.
	ragged bool
}

func (t *tabular) record(rec []string) error {
	if t.header && !t.named {
		t.named = true
		t.names = HeaderNames(rec)

		return t.sink.DeclareColumns(t.names)
	}

	switch {
	case len(rec) > len(t.names) && t.header:
		t.sink.Malformed()
		rec = rec[:len(t.names)]
	case len(rec) > len(t.names):
		if len(t.names) > 0 {
			t.sink.Malformed()
		}

		for i := len(t.names); i < len(rec); i++ {
			t.names = append(t.names, ColumnName(i))
		}
	case len(rec) < len(t.names) && !t.ragged:
		t.sink.Malformed()
	}

	t.fields = t.fields[:0]
	for i, v := range rec {
		t.fields = append(t.fields, profile.Field{Name: t.names[i], Text: v})
	}

	return t.sink.Row(t.fields)
}

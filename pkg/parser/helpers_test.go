package parser_test

import (
	"encoding/json"
	"slices"
	"strings"
	"testing"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/datalens/pkg/parser"
	"github.com/Sumatoshi-tech/datalens/pkg/profile"
)

// recordingSink keeps every row it receives.
type recordingSink struct {
	declared  []string
	rows      [][]profile.Field
	malformed int
}

func (r *recordingSink) DeclareColumns(names []string) error {
	r.declared = append(r.declared, names...)

	return nil
}

func (r *recordingSink) Row(fields []profile.Field) error {
	r.rows = append(r.rows, slices.Clone(fields))

	return nil
}

func (r *recordingSink) Malformed() {
	r.malformed++
}

// texts renders each row as name=value pairs, with <null> and <array:N> markers.
func (r *recordingSink) texts() []string {
	out := make([]string, len(r.rows))

	for i, row := range r.rows {
		parts := make([]string, len(row))

		for j, f := range row {
			switch f.Kind {
			case profile.FieldNull:
				parts[j] = f.Name + "=<null>"
			case profile.FieldArray:
				parts[j] = f.Name + "=" + f.Text
			case profile.FieldText:
				parts[j] = f.Name + "=" + f.Text
			}
		}

		out[i] = strings.Join(parts, " ")
	}

	return out
}

// feedInChunks runs data through a parser in chunks of size n.
func feedInChunks(t *testing.T, format parser.Format, opts parser.Options, data []byte, n int) *recordingSink {
	t.Helper()

	sink := &recordingSink{}

	p, err := parser.New(format, opts, sink)
	require.NoError(t, err)

	for start := 0; start < len(data); start += n {
		require.NoError(t, p.Feed(data[start:min(start+n, len(data))]))
	}

	require.NoError(t, p.Finish())

	return sink
}

// profileInChunks profiles data fed in chunks of size n and returns the
// result as indented JSON.
func profileInChunks(t *testing.T, format parser.Format, opts parser.Options, data []byte, n int) string {
	t.Helper()

	prof, err := profile.NewProfiler(profile.DefaultOptions(), nil)
	require.NoError(t, err)

	p, err := parser.New(format, opts, prof)
	require.NoError(t, err)

	for start := 0; start < len(data); start += n {
		require.NoError(t, p.Feed(data[start:min(start+n, len(data))]))
	}

	require.NoError(t, p.Finish())

	out, err := json.MarshalIndent(prof.Finalize(), "", "  ")
	require.NoError(t, err)

	return string(out)
}

// requireSameText fails with a readable diff when got differs from want.
func requireSameText(t *testing.T, want, got, msg string) {
	t.Helper()

	if want == got {
		return
	}

	dmp := diffmatchpatch.New()
	t.Fatalf("%s:\n%s", msg, dmp.DiffPrettyText(dmp.DiffMain(want, got, false)))
}

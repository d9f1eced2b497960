package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/datalens/pkg/correlation"
	"github.com/Sumatoshi-tech/datalens/pkg/extract"
	"github.com/Sumatoshi-tech/datalens/pkg/profile"
	"github.com/Sumatoshi-tech/datalens/pkg/runner"
	"github.com/Sumatoshi-tech/datalens/pkg/safeconv"
)

// Output formats.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

const (
	scoreThresholdHigh   = 0.8
	scoreThresholdMedium = 0.6
	percentageValue      = 100
	maxTopValueWidth     = 24
	floatPrecision       = 4
)

// ErrUnknownOutput is returned for an unsupported --output value.
var ErrUnknownOutput = errors.New("unknown output format (use table, json or yaml)")

// errUnsupportedTable is returned for values without a table layout.
var errUnsupportedTable = errors.New("no table layout")

func validateOutput(output string) error {
	switch output {
	case formatTable, formatJSON, formatYAML:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOutput, output)
	}
}

// render writes value to w in the given output format.
func render(w io.Writer, output string, value any) error {
	switch output {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		return enc.Encode(value)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()

		return enc.Encode(value)
	case formatTable:
		return renderTable(w, value)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOutput, output)
	}
}

func renderTable(w io.Writer, value any) error {
	switch v := value.(type) {
	case *profile.ProfileResult:
		return renderProfile(w, v)
	case *runner.FileDetection:
		return renderDetection(w, v)
	case []extract.ExtractedRow:
		return renderRows(w, v)
	case *correlation.Matrix:
		return renderMatrix(w, v)
	default:
		return fmt.Errorf("%w for %T", errUnsupportedTable, value)
	}
}

func newTable(w io.Writer) table.Writer {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false

	return tbl
}

func renderProfile(w io.Writer, res *profile.ProfileResult) error {
	summary := []string{
		"rows: " + humanize.Comma(res.TotalRows),
		"columns: " + humanize.Comma(int64(len(res.ColumnProfiles))),
	}

	if res.Format != "" {
		summary = append(summary, "format: "+res.Format)
	}

	if res.Delimiter != "" {
		summary = append(summary, "delimiter: "+strconv.Quote(res.Delimiter))
	}

	if res.Encoding != "" {
		summary = append(summary, "encoding: "+res.Encoding)
	}

	summary = append(summary,
		"duplicates: "+humanize.Comma(res.DuplicateRows),
		"malformed: "+humanize.Comma(res.MalformedRows),
	)

	fmt.Fprintln(w, strings.Join(summary, " | "))

	tbl := newTable(w)
	tbl.AppendHeader(table.Row{"Column", "Type", "Count", "Missing", "Distinct", "Summary", "Quality"})

	for i := range res.ColumnProfiles {
		col := &res.ColumnProfiles[i]
		tbl.AppendRow(table.Row{
			col.Name,
			col.BaseStats.InferredType.String(),
			humanize.Comma(col.BaseStats.Count),
			humanize.Comma(col.BaseStats.Missing),
			humanize.Comma(safeconv.ClampToInt64(col.BaseStats.DistinctEstimate)),
			columnSummary(col),
			scoreText(col.Quality.Score),
		})
	}

	tbl.Render()

	issues := collectIssues(res)
	if len(issues) == 0 {
		return nil
	}

	fmt.Fprintln(w, "\nIssues:")

	for _, issue := range issues {
		fmt.Fprintf(w, "  %s %s\n", severityText(issue.Severity), issue.Message)
	}

	return nil
}

func columnSummary(col *profile.ColumnProfile) string {
	switch {
	case col.NumericStats != nil:
		ns := col.NumericStats

		return fmt.Sprintf("min %s  mean %s  max %s", formatFloat(ns.Min), formatFloat(ns.Mean), formatFloat(ns.Max))
	case col.CategoricalStats != nil && len(col.CategoricalStats.TopValues) > 0:
		top := col.CategoricalStats.TopValues[0]

		return fmt.Sprintf("top %q (%.1f%%)", truncate(top.Value, maxTopValueWidth), top.Percentage)
	default:
		return ""
	}
}

func collectIssues(res *profile.ProfileResult) []profile.QualityIssue {
	issues := append([]profile.QualityIssue(nil), res.Issues...)

	for i := range res.ColumnProfiles {
		col := &res.ColumnProfiles[i]
		for _, issue := range col.Quality.Issues {
			issue.Message = col.Name + ": " + issue.Message
			issues = append(issues, issue)
		}
	}

	return issues
}

func renderDetection(w io.Writer, det *runner.FileDetection) error {
	tbl := newTable(w)
	tbl.AppendRows([]table.Row{
		{"Path", det.Path},
		{"Format", string(det.Format)},
		{"Delimiter", strconv.Quote(det.Delimiter)},
		{"Encoding", string(det.Encoding)},
		{"Compression", orNone(det.Compression)},
	})
	tbl.Render()

	return nil
}

func renderRows(w io.Writer, rows []extract.ExtractedRow) error {
	tbl := newTable(w)
	tbl.AppendHeader(table.Row{"Row", "Fields"})

	for _, row := range rows {
		tbl.AppendRow(table.Row{humanize.Comma(row.Index), strings.Join(row.Fields, " | ")})
	}

	tbl.AppendFooter(table.Row{"Total", strconv.Itoa(len(rows))})
	tbl.Render()

	return nil
}

func renderMatrix(w io.Writer, m *correlation.Matrix) error {
	tbl := newTable(w)

	header := table.Row{""}
	for _, name := range m.Columns {
		header = append(header, name)
	}

	tbl.AppendHeader(header)

	for i, name := range m.Columns {
		row := table.Row{name}
		for j := range m.Columns {
			row = append(row, strconv.FormatFloat(m.Values[i][j], 'f', floatPrecision, 64))
		}

		tbl.AppendRow(row)
	}

	tbl.Render()

	fmt.Fprintf(w, "rows used: %s", humanize.Comma(int64(m.RowsUsed)))

	if m.Truncated {
		fmt.Fprint(w, color.YellowString(" (truncated)"))
	}

	fmt.Fprintln(w)

	return nil
}

func scoreText(score float64) string {
	text := fmt.Sprintf("%.0f%%", score*percentageValue)

	switch {
	case score >= scoreThresholdHigh:
		return color.GreenString(text)
	case score >= scoreThresholdMedium:
		return color.YellowString(text)
	default:
		return color.RedString(text)
	}
}

func severityText(sev profile.Severity) string {
	label := "[" + string(sev) + "]"

	switch sev {
	case profile.SeverityError:
		return color.RedString(label)
	case profile.SeverityWarning:
		return color.YellowString(label)
	default:
		return color.CyanString(label)
	}
}

func formatFloat(v float64) string {
	return humanize.CommafWithDigits(v, floatPrecision)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}

	return string(r[:n-1]) + "…"
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}

	return s
}

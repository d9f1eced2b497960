package profile

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/Sumatoshi-tech/datalens/pkg/alg/bloom"
	"github.com/Sumatoshi-tech/datalens/pkg/alg/hashutil"
)

// FieldKind distinguishes the shapes a parsed field can take.
type FieldKind uint8

const (
	// FieldText is a textual value, classified by content.
	FieldText FieldKind = iota
	// FieldNull is an explicit null, such as a JSON null.
	FieldNull
	// FieldArray is an array of Len elements.
	FieldArray
)

// Field is one named value of a parsed row.
type Field struct {
	Name string
	Text string
	Kind FieldKind
	Len  int
}

// Result-level issue identifiers and thresholds.
const (
	IssueDuplicateRows  = "duplicate_rows"
	IssueMalformedRows  = "malformed_rows"
	IssueDroppedColumns = "dropped_columns"

	duplicateError   = 0.1
	duplicateWarning = 0.01

	maxDroppedNames = 10
)

// rowSeparator is mixed into the row hash between fields.
const rowSeparator = 0x1f

// Profiler routes parsed rows to per-column accumulators and tracks the
// row-level checks. It is not safe for concurrent use.
type Profiler struct {
	opts   Options
	logger *slog.Logger

	columns []*Accumulator
	index   map[string]int
	touched []bool

	rows       int64
	malformed  int64
	duplicates int64
	seen       *bloom.Filter

	dropped      int64
	droppedNames []string
}

// NewProfiler creates a profiler. A nil logger falls back to slog.Default.
func NewProfiler(opts Options, logger *slog.Logger) (*Profiler, error) {
	err := opts.Validate()
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	p := &Profiler{
		opts:   opts,
		logger: logger,
		index:  make(map[string]int),
	}

	if opts.DuplicateRows > 0 {
		p.seen, err = bloom.NewWithEstimates(opts.DuplicateRows, opts.DuplicateFPRate)
		if err != nil {
			return nil, fmt.Errorf("duplicate filter: %w", err)
		}
	}

	return p, nil
}

// Rows returns the number of data rows ingested.
func (p *Profiler) Rows() int64 {
	return p.rows
}

// Columns returns the column names in first-seen order.
func (p *Profiler) Columns() []string {
	names := make([]string, len(p.columns))
	for i, acc := range p.columns {
		names[i] = acc.Name()
	}

	return names
}

// DeclareColumns registers columns in order before any row arrives, as a
// delimited header does. Already known names are ignored.
func (p *Profiler) DeclareColumns(names []string) error {
	for _, name := range names {
		if _, _, err := p.column(name); err != nil {
			return err
		}
	}

	return nil
}

// Malformed counts a row whose shape did not match the source, such as a
// delimited row with more fields than the header.
func (p *Profiler) Malformed() {
	p.malformed++
}

// Row ingests one parsed row. Columns absent from fields are recorded as
// missing; a repeated field name within the row keeps the first value.
func (p *Profiler) Row(fields []Field) error {
	row := p.rows
	hash := uint64(hashutil.BaseSeed)

	clear(p.touched)

	for _, f := range fields {
		idx, ok, err := p.column(f.Name)
		if err != nil {
			return err
		}

		if !ok || p.touched[idx] {
			continue
		}

		p.touched[idx] = true
		acc := p.columns[idx]

		switch f.Kind {
		case FieldNull:
			acc.ObserveMissing(row)
		case FieldArray:
			acc.ObserveArray(row, f.Len)
		case FieldText:
			acc.Observe(row, f.Text)
		}

		hash = hashutil.Combine(hash, uint64(idx))
		hash = hashutil.Combine(hash, uint64(f.Kind))
		hash = hashutil.Combine(hash, hashutil.String64(f.Text))
		hash = hashutil.Combine(hash, rowSeparator)
	}

	for idx, acc := range p.columns {
		if !p.touched[idx] {
			acc.ObserveMissing(row)
		}
	}

	if p.seen != nil && p.seen.TestAndAdd(hash) {
		p.duplicates++
	}

	p.rows++

	return nil
}

// column resolves a field name to its accumulator index, creating the column
// on first sight. ok is false when the column limit dropped the field.
func (p *Profiler) column(name string) (idx int, ok bool, err error) {
	if idx, ok = p.index[name]; ok {
		return idx, true, nil
	}

	if p.opts.MaxColumns > 0 && len(p.columns) >= p.opts.MaxColumns {
		p.dropped++

		if len(p.droppedNames) < maxDroppedNames && !slices.Contains(p.droppedNames, name) {
			p.droppedNames = append(p.droppedNames, name)
			p.logger.Warn("column limit reached, dropping field",
				"column", name, "limit", p.opts.MaxColumns)
		}

		return 0, false, nil
	}

	acc, err := NewAccumulator(name, &p.opts)
	if err != nil {
		return 0, false, err
	}

	acc.backfillMissing(p.rows)

	idx = len(p.columns)
	p.columns = append(p.columns, acc)
	p.touched = append(p.touched, false)
	p.index[name] = idx

	return idx, true, nil
}

// Progress returns the running counters of every column.
func (p *Profiler) Progress() []ColumnProgress {
	out := make([]ColumnProgress, len(p.columns))
	for i, acc := range p.columns {
		out[i] = acc.Progress()
	}

	return out
}

// Finalize builds the profile of everything ingested so far. The profiler
// remains usable; a later call reflects any rows added since.
func (p *Profiler) Finalize() *ProfileResult {
	res := &ProfileResult{
		TotalRows:      p.rows,
		ColumnProfiles: make([]ColumnProfile, len(p.columns)),
		DuplicateRows:  p.duplicates,
		MalformedRows:  p.malformed,
		Issues:         []QualityIssue{},
	}

	var invalid int64

	for i, acc := range p.columns {
		res.ColumnProfiles[i] = acc.Profile()
		invalid += acc.invalidUTF8
	}

	if p.duplicates > 0 {
		share := float64(p.duplicates) / float64(p.rows)
		sev := SeverityInfo

		switch {
		case share > duplicateError:
			sev = SeverityError
		case share > duplicateWarning:
			sev = SeverityWarning
		}

		res.Issues = append(res.Issues, QualityIssue{
			ID:       IssueDuplicateRows,
			Severity: sev,
			Message:  fmt.Sprintf("%d duplicate rows (%.2f%%)", p.duplicates, share*percentScale),
		})
	}

	if p.malformed > 0 {
		res.Issues = append(res.Issues, QualityIssue{
			ID:       IssueMalformedRows,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("%d rows did not match the column layout", p.malformed),
		})
	}

	if p.dropped > 0 {
		res.Issues = append(res.Issues, QualityIssue{
			ID:       IssueDroppedColumns,
			Severity: SeverityWarning,
			Message: fmt.Sprintf("column limit %d reached; dropped %d fields, first %v",
				p.opts.MaxColumns, p.dropped, p.droppedNames),
		})
	}

	if invalid > 0 {
		res.Issues = append(res.Issues, QualityIssue{
			ID:       IssueInvalidUTF8,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("%d values are not valid UTF-8; check the source encoding", invalid),
		})
	}

	return res
}

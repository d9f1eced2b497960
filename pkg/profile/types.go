// Package profile holds the statistical core of datalens: the per-column
// accumulator that ingests one value at a time, the profiler that routes
// parsed rows to accumulators, and the finalizer that turns accumulated
// state into a ProfileResult.
package profile

import "errors"

// ErrUnknownDataType is returned when decoding an unrecognized type name.
var ErrUnknownDataType = errors.New("unknown data type")

// ProfileResult is the finalized profile of one data source.
type ProfileResult struct {
	TotalRows      int64           `json:"total_rows"              yaml:"total_rows"`
	ColumnProfiles []ColumnProfile `json:"column_profiles"         yaml:"column_profiles"`
	Format         string          `json:"format,omitempty"        yaml:"format,omitempty"`
	Delimiter      string          `json:"delimiter,omitempty"     yaml:"delimiter,omitempty"`
	Encoding       string          `json:"encoding,omitempty"      yaml:"encoding,omitempty"`
	DuplicateRows  int64           `json:"duplicate_rows"          yaml:"duplicate_rows"`
	MalformedRows  int64           `json:"malformed_rows"          yaml:"malformed_rows"`
	Issues         []QualityIssue  `json:"issues"                  yaml:"issues"`
}

// Column returns the profile of the named column, or nil.
func (r *ProfileResult) Column(name string) *ColumnProfile {
	for i := range r.ColumnProfiles {
		if r.ColumnProfiles[i].Name == name {
			return &r.ColumnProfiles[i]
		}
	}

	return nil
}

// ColumnProfile is the finalized profile of one column.
type ColumnProfile struct {
	Name             string            `json:"name"                        yaml:"name"`
	BaseStats        BaseStats         `json:"base_stats"                  yaml:"base_stats"`
	NumericStats     *NumericStats     `json:"numeric_stats,omitempty"     yaml:"numeric_stats,omitempty"`
	CategoricalStats *CategoricalStats `json:"categorical_stats,omitempty" yaml:"categorical_stats,omitempty"`
	Histogram        *Histogram        `json:"histogram,omitempty"         yaml:"histogram,omitempty"`
	MinLength        *int              `json:"min_length,omitempty"        yaml:"min_length,omitempty"`
	MaxLength        *int              `json:"max_length,omitempty"        yaml:"max_length,omitempty"`
	ArrayStats       *ArrayStats       `json:"array_stats,omitempty"       yaml:"array_stats,omitempty"`
	Quality          Quality           `json:"quality"                     yaml:"quality"`
	Notes            []string          `json:"notes"                       yaml:"notes"`
	SampleValues     []string          `json:"sample_values"               yaml:"sample_values"`
	MissingRows      []int64           `json:"missing_rows"                yaml:"missing_rows"`
	PIIRows          []int64           `json:"pii_rows"                    yaml:"pii_rows"`
	OutlierRows      []int64           `json:"outlier_rows"                yaml:"outlier_rows"`
}

// BaseStats are present for every column.
type BaseStats struct {
	Count            int64    `json:"count"             yaml:"count"`
	Missing          int64    `json:"missing"           yaml:"missing"`
	DistinctEstimate uint64   `json:"distinct_estimate" yaml:"distinct_estimate"`
	InferredType     DataType `json:"inferred_type"     yaml:"inferred_type"`
}

// NumericStats are present only for Integer and Numeric columns.
type NumericStats struct {
	Min      float64 `json:"min"      yaml:"min"`
	Max      float64 `json:"max"      yaml:"max"`
	Mean     float64 `json:"mean"     yaml:"mean"`
	Median   float64 `json:"median"   yaml:"median"`
	StdDev   float64 `json:"std_dev"  yaml:"std_dev"`
	Variance float64 `json:"variance" yaml:"variance"`
	Skewness float64 `json:"skewness" yaml:"skewness"`
	Kurtosis float64 `json:"kurtosis" yaml:"kurtosis"`
	Sum      float64 `json:"sum"      yaml:"sum"`
	P25      float64 `json:"p25"      yaml:"p25"`
	P75      float64 `json:"p75"      yaml:"p75"`
	P90      float64 `json:"p90"      yaml:"p90"`
	P95      float64 `json:"p95"      yaml:"p95"`
	P99      float64 `json:"p99"      yaml:"p99"`
}

// CategoricalStats are present for non-numeric columns.
type CategoricalStats struct {
	TopValues   []TopValue `json:"top_values"   yaml:"top_values"`
	UniqueCount uint64     `json:"unique_count" yaml:"unique_count"`
}

// TopValue is one frequent value with its share of non-missing values.
type TopValue struct {
	Value      string  `json:"value"      yaml:"value"`
	Count      int64   `json:"count"      yaml:"count"`
	Percentage float64 `json:"percentage" yaml:"percentage"`
}

// Histogram is an equal-width histogram over [Min, Max].
type Histogram struct {
	Bins     []HistogramBin `json:"bins"      yaml:"bins"`
	Min      float64        `json:"min"       yaml:"min"`
	Max      float64        `json:"max"       yaml:"max"`
	BinWidth float64        `json:"bin_width" yaml:"bin_width"`
}

// HistogramBin counts values in [Start, End); the last bin is closed.
type HistogramBin struct {
	Start float64 `json:"start" yaml:"start"`
	End   float64 `json:"end"   yaml:"end"`
	Count int64   `json:"count" yaml:"count"`
}

// ArrayStats summarize the lengths of array values in a structured field.
type ArrayStats struct {
	Count      int64   `json:"count"       yaml:"count"`
	MinLength  int     `json:"min_length"  yaml:"min_length"`
	MaxLength  int     `json:"max_length"  yaml:"max_length"`
	MeanLength float64 `json:"mean_length" yaml:"mean_length"`
}

// Quality summarizes completeness, uniqueness, and detected issues.
type Quality struct {
	Completeness float64        `json:"completeness" yaml:"completeness"`
	Uniqueness   float64        `json:"uniqueness"   yaml:"uniqueness"`
	Score        float64        `json:"score"        yaml:"score"`
	Issues       []QualityIssue `json:"issues"       yaml:"issues"`
}

// Severity grades a quality issue.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// QualityIssue is a single finding about a column or the whole source.
type QualityIssue struct {
	ID       string   `json:"id"       yaml:"id"`
	Message  string   `json:"message"  yaml:"message"`
	Severity Severity `json:"severity" yaml:"severity"`
}

// ColumnProgress is the running state of one column reported after each chunk.
type ColumnProgress struct {
	Name             string `json:"name"              yaml:"name"`
	Count            int64  `json:"count"             yaml:"count"`
	Missing          int64  `json:"missing"           yaml:"missing"`
	DistinctEstimate uint64 `json:"distinct_estimate" yaml:"distinct_estimate"`
}

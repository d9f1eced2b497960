package profile

import (
	"fmt"

	"github.com/Sumatoshi-tech/datalens/pkg/alg/stats"
)

// Quality thresholds.
const (
	completenessError   = 0.5
	completenessWarning = 0.9
	highCardinality     = 0.9
	numericMajority     = 0.5
	piiShare            = 0.3

	errorPenalty   = 0.3
	warningPenalty = 0.1
)

// Column issue identifiers.
const (
	IssueCompleteness    = "completeness"
	IssueConstant        = "constant_column"
	IssueHighCardinality = "high_cardinality"
	IssueNumericMixed    = "numeric_with_exceptions"
	IssueMixedType       = "mixed_type"
	IssuePII             = "pii"
	IssueInvalidUTF8     = "invalid_utf8"
)

func (a *Accumulator) quality(distinct uint64) Quality {
	q := Quality{Issues: []QualityIssue{}}

	total := a.count + a.missing
	if total > 0 {
		q.Completeness = float64(a.count) / float64(total)
	}

	if a.count > 0 {
		q.Uniqueness = min(1, float64(distinct)/float64(a.count))
	}

	add := func(id string, sev Severity, format string, args ...any) {
		q.Issues = append(q.Issues, QualityIssue{ID: id, Severity: sev, Message: fmt.Sprintf(format, args...)})
	}

	if total > 0 && q.Completeness < 1 {
		sev := SeverityInfo

		switch {
		case q.Completeness < completenessError:
			sev = SeverityError
		case q.Completeness < completenessWarning:
			sev = SeverityWarning
		}

		add(IssueCompleteness, sev, "%.1f%% of values are missing", (1-q.Completeness)*percentScale)
	}

	if distinct == 1 && a.count > 1 {
		add(IssueConstant, SeverityWarning, "Column has a single constant value")
	}

	if a.typ == TypeString && a.count > 1 && q.Uniqueness > highCardinality {
		add(IssueHighCardinality, SeverityInfo, "High cardinality: %.1f%% of values are unique", q.Uniqueness*percentScale)
	}

	if a.count > 0 && !a.typ.IsNumeric() && float64(a.numericSeen)/float64(a.count) > numericMajority {
		add(IssueNumericMixed, SeverityWarning,
			"Potentially numeric with exceptions: %d of %d values are numeric", a.numericSeen, a.count)
	}

	if a.typ == TypeMixed && a.arrays == nil {
		add(IssueMixedType, SeverityInfo, "Values of incompatible types were observed")
	}

	if kind := a.piiKind(); kind != PIINone {
		add(IssuePII, kind.Severity(), "Column may contain PII (%s)", kind)
	}

	if a.invalidUTF8 > 0 {
		add(IssueInvalidUTF8, SeverityWarning, "%d values are not valid UTF-8", a.invalidUTF8)
	}

	q.Score = qualityScore(q.Issues)

	return q
}

// piiKind returns the most frequent PII kind when it covers enough of the
// values, falling back to the kind suggested by the column name.
func (a *Accumulator) piiKind() PIIKind {
	best, bestCount := PIINone, int64(0)

	for kind := PIISSN; kind < piiKindCount; kind++ {
		if a.piiCounts[kind] > bestCount {
			best, bestCount = kind, a.piiCounts[kind]
		}
	}

	if a.count > 0 && float64(bestCount) >= piiShare*float64(a.count) {
		return best
	}

	return PIIFromColumnName(a.name)
}

func qualityScore(issues []QualityIssue) float64 {
	var errs, warns int

	for _, issue := range issues {
		switch issue.Severity {
		case SeverityError:
			errs++
		case SeverityWarning:
			warns++
		case SeverityInfo:
		}
	}

	return stats.Clamp(1-errorPenalty*float64(errs)-warningPenalty*float64(warns), 0, 1)
}

package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricSessionsTotal    = "datalens.profile.sessions.total"
	metricSessionsActive   = "datalens.profile.sessions.active"
	metricChunksTotal      = "datalens.profile.chunks.total"
	metricBytesTotal       = "datalens.profile.bytes.total"
	metricRowsTotal        = "datalens.profile.rows.total"
	metricFinalizeDuration = "datalens.profile.finalize.duration.seconds"

	attrFormat  = "format"
	attrOutcome = "outcome"
)

// Session outcomes reported by SessionEnded.
const (
	OutcomeFinalized = "finalized"
	OutcomeErrored   = "errored"
	OutcomeDiscarded = "discarded"
)

// finalizeBucketBoundaries covers 1ms to 60s.
var finalizeBucketBoundaries = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60}

// ProfileMetrics holds OTel instruments for profiling sessions.
type ProfileMetrics struct {
	sessionsTotal    metric.Int64Counter
	sessionsActive   metric.Int64UpDownCounter
	chunksTotal      metric.Int64Counter
	bytesTotal       metric.Int64Counter
	rowsTotal        metric.Int64Counter
	finalizeDuration metric.Float64Histogram
}

// NewProfileMetrics creates profiling metric instruments from the given meter.
func NewProfileMetrics(mt metric.Meter) (*ProfileMetrics, error) {
	b := newMetricBuilder(mt)

	pm := &ProfileMetrics{
		sessionsTotal:  b.counter(metricSessionsTotal, "Profiling sessions by outcome", "{session}"),
		sessionsActive: b.upDownCounter(metricSessionsActive, "Sessions started and not yet ended", "{session}"),
		chunksTotal:    b.counter(metricChunksTotal, "Chunks fed to profiling sessions", "{chunk}"),
		bytesTotal:     b.counter(metricBytesTotal, "Input bytes fed to profiling sessions", "By"),
		rowsTotal:      b.counter(metricRowsTotal, "Rows parsed by profiling sessions", "{row}"),
		finalizeDuration: b.histogram(metricFinalizeDuration, "Finalize duration in seconds", "s",
			finalizeBucketBoundaries...),
	}

	if b.err != nil {
		return nil, b.err
	}

	return pm, nil
}

// SessionStarted counts a new active session. Safe on a nil receiver.
func (pm *ProfileMetrics) SessionStarted(ctx context.Context, format string) {
	if pm == nil {
		return
	}

	pm.sessionsActive.Add(ctx, 1, metric.WithAttributes(attribute.String(attrFormat, format)))
}

// ChunkProcessed records one accepted chunk. Safe on a nil receiver.
func (pm *ProfileMetrics) ChunkProcessed(ctx context.Context, format string, size, rows int) {
	if pm == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String(attrFormat, format))
	pm.chunksTotal.Add(ctx, 1, attrs)
	pm.bytesTotal.Add(ctx, int64(size), attrs)
	pm.rowsTotal.Add(ctx, int64(rows), attrs)
}

// SessionEnded closes an active session with its outcome. The finalize
// duration is recorded only for finalized sessions. Rows parsed by
// whole-buffer formats are counted here since they never report per chunk.
// Safe on a nil receiver.
func (pm *ProfileMetrics) SessionEnded(ctx context.Context, format, outcome string, bufferedRows int64, dur time.Duration) {
	if pm == nil {
		return
	}

	fmtAttr := attribute.String(attrFormat, format)
	pm.sessionsActive.Add(ctx, -1, metric.WithAttributes(fmtAttr))
	pm.sessionsTotal.Add(ctx, 1, metric.WithAttributes(fmtAttr, attribute.String(attrOutcome, outcome)))

	if bufferedRows > 0 {
		pm.rowsTotal.Add(ctx, bufferedRows, metric.WithAttributes(fmtAttr))
	}

	if outcome == OutcomeFinalized {
		pm.finalizeDuration.Record(ctx, dur.Seconds(), metric.WithAttributes(fmtAttr))
	}
}

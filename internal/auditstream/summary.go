package auditstream

import "time"

// TimeRange bounds the first and last event timestamp in a summary.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Summary is the rollup returned by Stream.Summary / Manager.Summaries.
type Summary struct {
	SessionID          string
	TotalEvents        int
	EventCounts        map[EventType]int
	SeverityCounts     map[Severity]int
	PerformanceSummary PerformanceSummary
	TimeRange          *TimeRange
}

// PerformanceSummary aggregates PerformanceMetrics samples across a
// stream's events.
type PerformanceSummary struct {
	TotalLatencyMs int64
	AvgLatencyMs   float64
	MinLatencyMs   int64
	MaxLatencyMs   int64
	TotalTokens    int
	AvgConfidence  *float64
	SampleCount    int
}

// NewPerformanceSummary returns a zero-valued summary ready for samples.
func NewPerformanceSummary() PerformanceSummary {
	return PerformanceSummary{MinLatencyMs: int64(^uint64(0) >> 1)}
}

// AddSample folds one event's performance metrics into the rollup.
func (p *PerformanceSummary) AddSample(m *PerformanceMetrics) {
	p.TotalLatencyMs += m.LatencyMs
	if m.LatencyMs < p.MinLatencyMs {
		p.MinLatencyMs = m.LatencyMs
	}
	if m.LatencyMs > p.MaxLatencyMs {
		p.MaxLatencyMs = m.LatencyMs
	}
	if m.TokensGenerated != nil {
		p.TotalTokens += *m.TokensGenerated
	}
	if m.ConfidenceScore != nil {
		if p.AvgConfidence == nil {
			avg := *m.ConfidenceScore
			p.AvgConfidence = &avg
		} else {
			avg := (*p.AvgConfidence + *m.ConfidenceScore) / 2
			p.AvgConfidence = &avg
		}
	}
	p.SampleCount++
	p.AvgLatencyMs = float64(p.TotalLatencyMs) / float64(p.SampleCount)
}

// GlobalStats rolls up every stream a Manager currently holds.
type GlobalStats struct {
	TotalStreams         int
	TotalEvents          int
	TotalLatencyMs       int64
	TotalTokensGenerated int
	AvgLatencyPerEvent   float64
}

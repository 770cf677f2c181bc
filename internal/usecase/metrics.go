package usecase

import (
	"sync"
	"time"

	"github.com/example/pneumoscan/internal/classification"
)

// MetricsSummary represents aggregated submission insights for the session.
type MetricsSummary struct {
	TotalRequests      int64   `json:"total_requests"`
	SuccessfulRequests int64   `json:"successful_requests"`
	DemoRequests       int64   `json:"demo_requests"`
	PositiveResults    int64   `json:"positive_results"`
	SuccessRate        float64 `json:"success_rate"`
	AverageConfidence  float64 `json:"average_confidence"`
	AverageLatencyMs   float64 `json:"average_latency_ms"`
}

// Metrics accumulates submission outcomes in memory.
type Metrics struct {
	mu              sync.Mutex
	total           int64
	successful      int64
	demo            int64
	positive        int64
	confidenceTotal float64
	latencyTotal    time.Duration
}

func (m *Metrics) record(mode classification.Mode, result classification.Result, err error, latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.total++
	m.latencyTotal += latency
	if mode == classification.ModeDemo {
		m.demo++
	}
	if err != nil {
		return
	}
	m.successful++
	m.confidenceTotal += classification.ClampConfidence(result.ConfidencePercent)
	if result.Label == classification.Positive {
		m.positive++
	}
}

// Summary aggregates the recorded outcomes.
func (m *Metrics) Summary() MetricsSummary {
	m.mu.Lock()
	defer m.mu.Unlock()

	summary := MetricsSummary{
		TotalRequests:      m.total,
		SuccessfulRequests: m.successful,
		DemoRequests:       m.demo,
		PositiveResults:    m.positive,
	}
	if m.total > 0 {
		summary.SuccessRate = float64(m.successful) / float64(m.total)
		summary.AverageLatencyMs = float64(m.latencyTotal.Milliseconds()) / float64(m.total)
	}
	if m.successful > 0 {
		summary.AverageConfidence = m.confidenceTotal / float64(m.successful)
	}
	return summary
}

// Package metrics exports pipeline counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/updateme/engine/internal/core/ports"
)

// EngineMetrics holds the Prometheus collectors for the generation pipeline.
type EngineMetrics struct {
	CacheLookups     *prometheus.CounterVec
	ExternalCalls    *prometheus.CounterVec
	CandidateResults *prometheus.CounterVec
	SummarySources   *prometheus.CounterVec
	EmailsSent       *prometheus.CounterVec
}

var _ ports.EngineMetrics = (*EngineMetrics)(nil)

// NewEngineMetrics registers the collectors with reg. A nil reg uses the
// default registerer.
func NewEngineMetrics(namespace string, reg prometheus.Registerer) *EngineMetrics {
	if namespace == "" {
		namespace = "updateme"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &EngineMetrics{
		CacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Cache lookups by provider tag and result",
			},
			[]string{"provider_type", "result"}, // result: hit, miss
		),
		ExternalCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "external_calls_total",
				Help:      "Billed calls to completion and search backends",
			},
			[]string{"provider", "stage", "status"},
		),
		CandidateResults: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_candidates_total",
				Help:      "Orchestrator attempts per completion provider",
			},
			[]string{"provider", "status"},
		),
		SummarySources: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "summaries_total",
				Help:      "Delivered summaries by source",
			},
			[]string{"source"}, // provider, history, static
		),
		EmailsSent: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "emails_total",
				Help:      "Emails handed to the sink",
			},
			[]string{"kind", "status"},
		),
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *EngineMetrics) CacheLookup(providerType string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(providerType, result).Inc()
}

func (m *EngineMetrics) ExternalCall(provider, stage string, err error) {
	m.ExternalCalls.WithLabelValues(provider, stage, status(err)).Inc()
}

func (m *EngineMetrics) CandidateResult(provider string, ok bool) {
	s := "error"
	if ok {
		s = "ok"
	}
	m.CandidateResults.WithLabelValues(provider, s).Inc()
}

func (m *EngineMetrics) SummarySource(source string) {
	m.SummarySources.WithLabelValues(source).Inc()
}

func (m *EngineMetrics) EmailSent(kind string, err error) {
	m.EmailsSent.WithLabelValues(kind, status(err)).Inc()
}

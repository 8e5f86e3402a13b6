// Copyright (C) 2025 Domovenok AI (bots@domovenok.ru)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dialog

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// dialogTracerName is the shared OTel tracer name for all engine operations.
const dialogTracerName = "domovenok.dialog"

// startSpan opens an engine operation span on the shared tracer.
func startSpan(ctx context.Context, operation string) (context.Context, oteltrace.Span) {
	return otel.Tracer(dialogTracerName).Start(ctx, operation)
}

// setMatchSpanResult annotates a matcher span with candidate funnel counts.
func setMatchSpanResult(span oteltrace.Span, candidates, scored int, found bool) {
	span.SetAttributes(
		attribute.Int("candidates", candidates),
		attribute.Int("scored", scored),
		attribute.Bool("found", found),
	)
}

// Package-level Prometheus metrics for the dialog engine.
// Auto-registered via promauto so no explicit registry wiring is needed.
var (
	// respondDuration measures end-to-end Respond latency.
	//
	// Labels:
	//   - outcome: "intent", "corpus", "failure", "voice_failure", "error"
	respondDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "domovenok",
			Subsystem: "dialog",
			Name:      "respond_duration_seconds",
			Help:      "Duration of Respond calls in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"outcome"},
	)

	// matchDuration measures corpus matcher latency.
	//
	// Labels:
	//   - result: "hit" or "miss"
	matchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "domovenok",
			Subsystem: "dialog",
			Name:      "match_duration_seconds",
			Help:      "Duration of corpus fallback matching in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"result"},
	)

	// adInjectionsTotal counts promotional asides appended to replies.
	adInjectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "domovenok",
			Subsystem: "dialog",
			Name:      "ad_injections_total",
			Help:      "Total promotional responses appended to replies.",
		},
	)

	// internalErrorsTotal counts unexpected per-request failures, as
	// opposed to the expected no-match path. This is the alerting signal.
	internalErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "domovenok",
			Subsystem: "dialog",
			Name:      "internal_errors_total",
			Help:      "Total unexpected engine failures by stage.",
		},
		[]string{"stage"},
	)
)

// recordRespond records one completed Respond call.
func recordRespond(duration time.Duration, outcome string) {
	respondDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// recordMatch records one matcher invocation.
func recordMatch(duration time.Duration, found bool) {
	result := "miss"
	if found {
		result = "hit"
	}
	matchDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// recordAdInjection counts one appended promotional response.
func recordAdInjection() {
	adInjectionsTotal.Inc()
}

// recordInternalError counts one unexpected failure at the given stage.
func recordInternalError(stage string) {
	internalErrorsTotal.WithLabelValues(stage).Inc()
}

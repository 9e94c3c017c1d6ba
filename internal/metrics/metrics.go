// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package metrics declares the server's process-wide Prometheus collectors.
// Every collector is registered once at package init time via promauto, so
// any package that imports metrics and calls one of its recorder functions
// participates in the same registry without wiring a collector by hand.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DeltaQueueDepth is the number of deltas currently pending a flush,
	// per model. A model parked near its configured cap for a sustained
	// period means the flusher is falling behind the write rate.
	DeltaQueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "skyforged_delta_queue_depth",
		Help: "Number of pending deltas awaiting flush, by space and model",
	}, []string{"space", "model"})

	// FlushDuration measures how long one drain-and-persist cycle takes
	// for a model, regardless of how many deltas it carried.
	FlushDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "skyforged_flush_duration_seconds",
		Help:    "Time to flush one model's pending deltas to its batch journal",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"space", "model", "status"})

	// FlushBatchSize is the number of deltas persisted in one flush cycle.
	FlushBatchSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "skyforged_flush_batch_size",
		Help:    "Number of deltas persisted in one flush cycle",
		Buckets: []float64{1, 2, 5, 10, 50, 100, 500, 1000},
	}, []string{"space", "model"})

	// IndexCardinality is the live row count of a model's primary index,
	// sampled once per flush cycle rather than on every mutation.
	IndexCardinality = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "skyforged_index_cardinality",
		Help: "Live row count of a model's primary index",
	}, []string{"space", "model"})

	// FlushIffy counts flush cycles that completed but found something
	// worth a closer look (a flush slower than the engine flusher's fixed
	// slowFlushThreshold, a model whose queue is still at or above its cap
	// after the drain). It is a counter, not a gauge: the interesting signal is the
	// rate, not whether it is currently nonzero.
	FlushIffy = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skyforged_flush_iffy_total",
		Help: "Flush cycles that completed but tripped a soft warning threshold",
	}, []string{"space", "model", "reason"})

	// FlushErrorsTotal counts flush cycles that failed to persist their
	// batch to the journal.
	FlushErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skyforged_flush_errors_total",
		Help: "Flush cycles that failed to persist their batch",
	}, []string{"space", "model"})
)

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/skytable/skytable-sub007/internal/metrics"
)

// FlushTarget names one model a Flusher drains on every tick. SpaceName and
// ModelName are carried alongside the *ModelData purely as metric/log
// labels — the model itself has no notion of which space it lives in.
type FlushTarget struct {
	SpaceName string
	ModelName string
	Model     *ModelData
}

// TargetProvider returns the current set of models a Flusher should drain.
// It is called once per tick rather than once at startup so that models
// created or dropped after the Flusher starts are picked up without a
// restart.
type TargetProvider func() []FlushTarget

// slowFlushThreshold is the per-model flush duration above which a cycle
// increments the iffy counter instead of passing silently.
const slowFlushThreshold = 250 * time.Millisecond

// Flusher periodically drains every model's pending DeltaState and
// persists the drained deltas to that model's batch journal, decoupling
// the foreground write path (which only ever touches the in-memory index
// and delta queue) from the fsync latency of the durability path.
type Flusher struct {
	interval time.Duration
	provider TargetProvider
	log      *slog.Logger
	errLimit *rate.Limiter
}

// NewFlusher builds a Flusher that ticks every interval, asking provider
// for the current model set on each tick.
func NewFlusher(interval time.Duration, provider TargetProvider, logger *slog.Logger) *Flusher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Flusher{
		interval: interval,
		provider: provider,
		log:      logger.With(slog.String("component", "flusher")),
		errLimit: rate.NewLimiter(rate.Every(time.Second), 5),
	}
}

// Run ticks until ctx is cancelled, draining every target once per tick
// concurrently via an errgroup. A single model's flush failure is logged
// and counted but never aborts the tick for its siblings: one model
// falling behind on flushes should not stall every other model's
// durability.
func (f *Flusher) Run(ctx context.Context) error {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			f.tick(ctx)
		}
	}
}

func (f *Flusher) tick(ctx context.Context) {
	targets := f.provider()
	if len(targets) == 0 {
		return
	}
	g, ctx := errgroup.WithContext(ctx)
	for _, target := range targets {
		target := target
		g.Go(func() error {
			f.flushOne(ctx, target)
			return nil
		})
	}
	_ = g.Wait()
}

func (f *Flusher) flushOne(_ context.Context, target FlushTarget) {
	metrics.DeltaQueueDepth.WithLabelValues(target.SpaceName, target.ModelName).Set(float64(target.Model.Deltas().Len()))
	metrics.IndexCardinality.WithLabelValues(target.SpaceName, target.ModelName).Set(float64(target.Model.RowCount()))

	deltas := target.Model.Deltas().Drain()
	if len(deltas) == 0 {
		return
	}

	start := time.Now()
	events := make([]BatchEvent, 0, len(deltas))
	for _, d := range deltas {
		ev := BatchEvent{Kind: d.Kind, Key: d.Key, RowVersion: d.Version}
		if d.Kind != DeltaDelete {
			fields, _ := d.Row.Snapshot()
			ev.Fields = fields
		}
		events = append(events, ev)
	}

	err := target.Model.AppendToJournal(events)
	elapsed := time.Since(start)

	status := "ok"
	if err != nil {
		status = "error"
		metrics.FlushErrorsTotal.WithLabelValues(target.SpaceName, target.ModelName).Inc()
		if f.errLimit.Allow() {
			f.log.Error("flush failed", "space", target.SpaceName, "model", target.ModelName, "deltas", len(events), "error", err)
		}
	}
	metrics.FlushDuration.WithLabelValues(target.SpaceName, target.ModelName, status).Observe(elapsed.Seconds())
	metrics.FlushBatchSize.WithLabelValues(target.SpaceName, target.ModelName).Observe(float64(len(events)))

	if elapsed > slowFlushThreshold {
		metrics.FlushIffy.WithLabelValues(target.SpaceName, target.ModelName, "slow_flush").Inc()
		if f.errLimit.Allow() {
			f.log.Warn("flush slower than threshold", "space", target.SpaceName, "model", target.ModelName, "elapsed", elapsed)
		}
	}
	if queueCap := target.Model.Deltas().Cap(); queueCap > 0 && target.Model.Deltas().Len() >= queueCap {
		metrics.FlushIffy.WithLabelValues(target.SpaceName, target.ModelName, "queue_still_full").Inc()
	}
}

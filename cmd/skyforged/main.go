// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// skyforged boots the storage engine over a data directory: it takes an
// advisory lock on the directory, replays the GNS event log and every
// model's batch journal to reconstruct in-memory state, then starts the
// background flusher and an out-of-band change watcher.
//
// It deliberately stops short of accepting client connections — the wire
// protocol, TCP listener, and query-language front end are a separate
// layer this package does not implement.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sys/unix"

	"github.com/skytable/skytable-sub007/internal/engine"
	"github.com/skytable/skytable-sub007/internal/sdss"
	"github.com/skytable/skytable-sub007/internal/storage/watch"
	"github.com/skytable/skytable-sub007/pkg/logging"
)

const (
	gnsLogFile      = "gns.db-tlog"
	lockFile        = ".skyforged.lock"
	defaultDataDir  = "./data"
	defaultMetrics  = ":9090"
	snapshotDirName = "snapshots"
	snapshotGCEvery = 10 * time.Minute

	driverVersion = uint64(1)
	serverVersion = uint64(1)
)

func main() {
	logger := logging.Default()
	defer logger.Close()

	if err := run(logger); err != nil {
		logger.Error("skyforged exited with error", "error", err)
		os.Exit(1)
	}
}

func run(logger *logging.Logger) error {
	dataDir := envOr("SKYFORGED_DATA_DIR", defaultDataDir)
	metricsAddr := envOr("SKYFORGED_METRICS_ADDR", defaultMetrics)
	runMode := sdss.HostRunModeProd
	if envOr("SKYFORGED_ENV", "prod") == "dev" {
		runMode = sdss.HostRunModeDev
	}

	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return fmt.Errorf("create data directory %q: %w", dataDir, err)
	}

	unlock, err := lockDataDir(dataDir)
	if err != nil {
		return fmt.Errorf("lock data directory: %w", err)
	}
	defer unlock()

	shutdownTracing, err := setupTelemetry()
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	defer shutdownTracing(context.Background())

	startupCounter := uint64(time.Now().Unix())
	gnsPath := filepath.Join(dataDir, gnsLogFile)

	ns, journalFactory, err := bootstrap(dataDir, gnsPath, runMode, startupCounter, logger)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer ns.Close()

	snapshotDir := filepath.Join(dataDir, snapshotDirName)
	if err := os.MkdirAll(snapshotDir, 0o750); err != nil {
		return fmt.Errorf("create snapshot directory %q: %w", snapshotDir, err)
	}
	snapshots, err := engine.OpenSnapshotEngine(snapshotDir, snapshotGCEvery)
	if err != nil {
		return fmt.Errorf("open snapshot engine: %w", err)
	}
	defer snapshots.Close()

	executor := engine.NewExecutor(ns, journalFactory, snapshots, logger.Slog())
	_ = executor // wired for the (out-of-scope) wire-protocol front end to call into

	flusher := engine.NewFlusher(500*time.Millisecond, flushTargets(ns), logger.Slog())

	dirWatcher, err := watch.New(dataDir, logger.Slog(), nil)
	if err != nil {
		return fmt.Errorf("create data directory watcher: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := dirWatcher.Start(ctx); err != nil {
		return fmt.Errorf("start data directory watcher: %w", err)
	}
	defer dirWatcher.Stop()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{Addr: metricsAddr, Handler: mux}
	go func() {
		logger.Info("metrics endpoint listening", "addr", metricsAddr)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	defer metricsSrv.Shutdown(context.Background())

	logger.Info("skyforged ready", "data_dir", dataDir, "run_mode", runMode.String())

	err = flusher.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("flusher: %w", err)
	}
	logger.Info("skyforged shutting down")
	return nil
}

// bootstrap replays the GNS event log and every model's batch journal into
// a fresh GlobalNS, then opens the live (append-capable) handles and
// attaches them. Replay happens against a namespace built with a nil event
// log so ApplyGNSEvents never re-appends what it is reading back.
func bootstrap(dataDir, gnsPath string, runMode sdss.HostRunMode, startupCounter uint64, logger *logging.Logger) (*engine.GlobalNS, engine.JournalFactory, error) {
	priorEvents, err := engine.ReplayEventLog(gnsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("replay event log: %w", err)
	}

	ns := engine.NewGlobalNS(nil, rootPasswordHash())

	journalFactory := engine.JournalFactory(func(spaceName, modelName string) (engine.BatchJournalHandle, error) {
		path := batchJournalPath(dataDir, spaceName, modelName)
		// Replay first so a torn tail batch is truncated away before the
		// append handle is opened at the file's end.
		if _, err := engine.ReplayBatchJournal(path); err != nil {
			return nil, err
		}
		return engine.OpenBatchJournal(path, 1, runMode, startupCounter, driverVersion, serverVersion)
	})

	if err := engine.ApplyGNSEvents(ns, priorEvents, journalFactory); err != nil {
		return nil, nil, fmt.Errorf("apply replayed events: %w", err)
	}

	if err := replayModelRows(ns, dataDir); err != nil {
		return nil, nil, err
	}

	gnsLog, err := engine.OpenEventLog(gnsPath, runMode, startupCounter, driverVersion, serverVersion)
	if err != nil {
		return nil, nil, fmt.Errorf("open event log: %w", err)
	}
	ns.AttachEventLog(gnsLog)

	logger.Info("bootstrap complete", "spaces", len(ns.SpaceNames()), "replayed_events", len(priorEvents))
	return ns, journalFactory, nil
}

// replayModelRows replays each existing model's batch journal into its
// primary index. Every model CreateModel re-created already holds a live
// journal handle opened by journalFactory during ApplyGNSEvents, which ran
// ReplayBatchJournal (truncating any torn tail) before opening it; this
// second pass reads the events back and applies them, before any row
// mutation is possible.
func replayModelRows(ns *engine.GlobalNS, dataDir string) error {
	for _, spaceName := range ns.SpaceNames() {
		space, ok := ns.Space(spaceName)
		if !ok {
			continue
		}
		for _, modelName := range space.ModelNames() {
			model, ok := space.Model(modelName)
			if !ok {
				continue
			}
			path := batchJournalPath(dataDir, spaceName, modelName)
			events, err := engine.ReplayBatchJournal(path)
			if err != nil {
				return fmt.Errorf("replay batch journal for %s.%s: %w", spaceName, modelName, err)
			}
			if err := engine.ApplyBatchEvents(model, events); err != nil {
				return fmt.Errorf("apply batch events for %s.%s: %w", spaceName, modelName, err)
			}
		}
	}
	return nil
}

func batchJournalPath(dataDir, spaceName, modelName string) string {
	return filepath.Join(dataDir, fmt.Sprintf("%s.%s.db-btlog", spaceName, modelName))
}

// flushTargets builds a Flusher's TargetProvider from the live namespace,
// walking every space and model on each call so models created or dropped
// after startup are picked up without restarting the flusher.
func flushTargets(ns *engine.GlobalNS) engine.TargetProvider {
	return func() []engine.FlushTarget {
		var targets []engine.FlushTarget
		for _, spaceName := range ns.SpaceNames() {
			space, ok := ns.Space(spaceName)
			if !ok {
				continue
			}
			for _, modelName := range space.ModelNames() {
				model, ok := space.Model(modelName)
				if !ok {
					continue
				}
				targets = append(targets, engine.FlushTarget{
					SpaceName: spaceName,
					ModelName: modelName,
					Model:     model,
				})
			}
		}
		return targets
	}
}

// lockDataDir takes a non-blocking advisory flock on a sentinel file in
// dir, refusing to start a second process against the same data directory.
func lockDataDir(dir string) (func(), error) {
	path := filepath.Join(dir, lockFile)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o640)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("data directory %q is already locked by another process", dir)
		}
		return nil, err
	}
	return func() {
		unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
	}, nil
}

// setupTelemetry wires a stdout trace and metric exporter for local
// debugging. A production deployment would swap these for an OTLP
// exporter without touching any instrumented call site.
func setupTelemetry() (func(context.Context), error) {
	traceExporter, err := stdouttrace.New(stdouttrace.WithoutTimestamps())
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(traceExporter),
	)
	otel.SetTracerProvider(tp)

	metricExporter, err := stdoutmetric.New()
	if err != nil {
		return nil, err
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(30*time.Second))),
	)
	otel.SetMeterProvider(mp)

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
	}, nil
}

// rootPasswordHash reads the root account's password hash from the
// environment. Computing the hash itself (the KDF) is out of scope here;
// the caller is expected to have already hashed it.
func rootPasswordHash() string {
	if h := os.Getenv("SKYFORGED_ROOT_PASSWORD_HASH"); h != "" {
		return h
	}
	return ""
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package engine's executor maps parsed DDL/DML/DCL/Inspect statements
// onto the in-memory namespace and its SDSS-backed durability path. It is
// a thin layer: statement validation happens here, but the actual row and
// schema manipulation is delegated to GlobalNS/Space/ModelData/PrimaryIndex.
package engine

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var executorTracer = otel.Tracer("github.com/skytable/skytable-sub007/internal/engine")

// JournalFactory creates the on-disk batch journal handle for a newly
// created model. Injected so tests can exercise the executor against an
// in-memory fake without touching a filesystem.
type JournalFactory func(spaceName, modelName string) (BatchJournalHandle, error)

// Session is the identity an executor call runs as. Only the username is
// needed: resolving it to a verified session is the caller's job (the
// connection/auth layer this package does not implement).
type Session struct {
	Username string
}

// IsRoot reports whether the session is the root account, the only
// identity allowed to see the `users` section of INSPECT GLOBAL.
func (s Session) IsRoot() bool {
	return s.Username == RootUsername
}

// Executor is the single entry point DDL/DML/DCL/Inspect statements are
// dispatched through.
type Executor struct {
	ns             *GlobalNS
	journalFactory JournalFactory
	snapshots      *SnapshotEngine
	log            *slog.Logger
}

// NewExecutor builds an Executor over ns. journalFactory is called once
// per CREATE MODEL to open that model's batch journal. snapshots backs
// `INSPECT GLOBAL --full`; it may be nil, in which case that statement
// fails rather than silently skipping the dump.
func NewExecutor(ns *GlobalNS, journalFactory JournalFactory, snapshots *SnapshotEngine, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{ns: ns, journalFactory: journalFactory, snapshots: snapshots, log: logger.With(slog.String("component", "executor"))}
}

// resolveModel looks up a space and, within it, a model, producing the
// closed-taxonomy error a missing object maps to.
func (e *Executor) resolveModel(spaceName, modelName string) (*Space, *ModelData, *QueryError) {
	space, ok := e.ns.Space(spaceName)
	if !ok {
		return nil, nil, NewQueryError(DdlObjectNotFound, "space %q does not exist", spaceName)
	}
	model, ok := space.Model(modelName)
	if !ok {
		return nil, nil, NewQueryError(DdlObjectNotFound, "model %q does not exist in space %q", modelName, spaceName)
	}
	return space, model, nil
}

// checkDeadline returns a QueryError if ctx has already been cancelled or
// its deadline has passed, called at each suspension point a long-running
// executor operation crosses (currently the full-model scan in Select).
func checkDeadline(ctx context.Context) *QueryError {
	select {
	case <-ctx.Done():
		return NewQueryError(StorageIoError, "operation cancelled: %v", ctx.Err())
	default:
		return nil
	}
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return executorTracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// fail builds a QueryError and wraps it as both return values of an
// executor entry point, so a caller that only inspects the Response (not
// the Go error) still sees the same failure.
func fail(code QueryErrorCode, format string, args ...any) (Response, *QueryError) {
	qerr := NewQueryError(code, format, args...)
	return ErrorResponse(qerr), qerr
}

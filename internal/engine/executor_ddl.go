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
	"errors"

	"go.opentelemetry.io/otel/attribute"
)

// CreateSpace executes `CREATE SPACE name WITH {...}`.
func (e *Executor) CreateSpace(ctx context.Context, stmt CreateSpaceStmt) (Response, *QueryError) {
	_, span := startSpan(ctx, "engine.CreateSpace", attribute.String("space", stmt.Name))
	defer span.End()

	space, err := NewSpace(stmt.Name, stmt.Properties)
	if err != nil {
		return fail(DdlSpaceBadProperty, "invalid space name %q: %v", stmt.Name, err)
	}
	if err := e.ns.CreateSpace(space); err != nil {
		if errors.Is(err, ErrSpaceAlreadyExists) {
			return fail(DdlObjectAlreadyExists, "space %q already exists", stmt.Name)
		}
		return fail(StorageIoError, "create space %q: %v", stmt.Name, err)
	}
	e.log.Info("space created", "space", stmt.Name)
	return EmptyResponse(), nil
}

// AlterSpace executes `ALTER SPACE name WITH {key: value}`.
func (e *Executor) AlterSpace(ctx context.Context, stmt AlterSpaceStmt) (Response, *QueryError) {
	_, span := startSpan(ctx, "engine.AlterSpace", attribute.String("space", stmt.Name))
	defer span.End()

	if err := e.ns.AlterSpace(stmt.Name, stmt.Key, stmt.Value); err != nil {
		if errors.Is(err, ErrSpaceNotFound) {
			return fail(DdlObjectNotFound, "space %q does not exist", stmt.Name)
		}
		return fail(StorageIoError, "alter space %q: %v", stmt.Name, err)
	}
	return EmptyResponse(), nil
}

// DropSpace executes `DROP SPACE name`. The space must be empty of models.
func (e *Executor) DropSpace(ctx context.Context, stmt DropSpaceStmt) (Response, *QueryError) {
	_, span := startSpan(ctx, "engine.DropSpace", attribute.String("space", stmt.Name))
	defer span.End()

	space, ok := e.ns.Space(stmt.Name)
	if !ok {
		return fail(DdlObjectNotFound, "space %q does not exist", stmt.Name)
	}
	if !space.IsEmpty() {
		return fail(DdlSpaceNotEmpty, "space %q still has models", stmt.Name)
	}
	if err := e.ns.DropSpace(stmt.Name); err != nil {
		if errors.Is(err, ErrSpaceNotFound) {
			return fail(DdlObjectNotFound, "space %q does not exist", stmt.Name)
		}
		return fail(StorageIoError, "drop space %q: %v", stmt.Name, err)
	}
	e.log.Info("space dropped", "space", stmt.Name)
	return EmptyResponse(), nil
}

// CreateModel executes `CREATE MODEL space.model(...)`, opening the new
// model's on-disk batch journal via the executor's JournalFactory before
// the model becomes visible.
func (e *Executor) CreateModel(ctx context.Context, stmt CreateModelStmt) (Response, *QueryError) {
	_, span := startSpan(ctx, "engine.CreateModel",
		attribute.String("space", stmt.SpaceName), attribute.String("model", stmt.ModelName))
	defer span.End()

	space, ok := e.ns.Space(stmt.SpaceName)
	if !ok {
		return fail(DdlObjectNotFound, "space %q does not exist", stmt.SpaceName)
	}
	if _, exists := space.Model(stmt.ModelName); exists {
		return fail(DdlObjectAlreadyExists, "model %q already exists in space %q", stmt.ModelName, stmt.SpaceName)
	}

	var journal BatchJournalHandle
	if e.journalFactory != nil {
		j, err := e.journalFactory(stmt.SpaceName, stmt.ModelName)
		if err != nil {
			return fail(StorageIoError, "open batch journal for %q.%q: %v", stmt.SpaceName, stmt.ModelName, err)
		}
		journal = j
	}

	deltaCap := ComputeDeltaCap(CurrentMemoryStats(), len(space.ModelNames())+1)
	model, err := NewModelData(stmt.ModelName, stmt.Schema, journal, deltaCap)
	if err != nil {
		return fail(DdlModelInvalidTypeDefinition, "invalid model %q: %v", stmt.ModelName, err)
	}

	if err := e.ns.CreateModel(stmt.SpaceName, model); err != nil {
		if errors.Is(err, ErrModelAlreadyExists) {
			return fail(DdlObjectAlreadyExists, "model %q already exists in space %q", stmt.ModelName, stmt.SpaceName)
		}
		if errors.Is(err, ErrSpaceNotFound) {
			return fail(DdlObjectNotFound, "space %q does not exist", stmt.SpaceName)
		}
		return fail(StorageIoError, "create model %q.%q: %v", stmt.SpaceName, stmt.ModelName, err)
	}
	e.log.Info("model created", "space", stmt.SpaceName, "model", stmt.ModelName)
	return EmptyResponse(), nil
}

// AlterModel executes `ALTER MODEL space.model ADD field` or `... REMOVE
// field`. Exactly one of stmt.AddField/stmt.RemoveField must be set.
func (e *Executor) AlterModel(ctx context.Context, stmt AlterModelStmt) (Response, *QueryError) {
	_, span := startSpan(ctx, "engine.AlterModel",
		attribute.String("space", stmt.SpaceName), attribute.String("model", stmt.ModelName))
	defer span.End()

	_, model, qerr := e.resolveModel(stmt.SpaceName, stmt.ModelName)
	if qerr != nil {
		return ErrorResponse(qerr), qerr
	}

	current := model.Schema()
	var next Schema
	var err error
	switch {
	case stmt.AddField != nil:
		next, err = current.WithField(*stmt.AddField)
	case stmt.RemoveField != nil:
		next, err = current.WithoutField(*stmt.RemoveField)
	default:
		return fail(QLInvalidSyntax, "ALTER MODEL requires exactly one of ADD or REMOVE")
	}
	if err != nil {
		return fail(DdlModelInvalidTypeDefinition, "alter model %q.%q: %v", stmt.SpaceName, stmt.ModelName, err)
	}

	if err := e.ns.AlterModelSchema(stmt.SpaceName, stmt.ModelName, next); err != nil {
		return fail(StorageIoError, "persist alter model %q.%q: %v", stmt.SpaceName, stmt.ModelName, err)
	}
	return EmptyResponse(), nil
}

// DropModel executes `DROP MODEL space.model`.
func (e *Executor) DropModel(ctx context.Context, stmt DropModelStmt) (Response, *QueryError) {
	_, span := startSpan(ctx, "engine.DropModel",
		attribute.String("space", stmt.SpaceName), attribute.String("model", stmt.ModelName))
	defer span.End()

	if _, _, qerr := e.resolveModel(stmt.SpaceName, stmt.ModelName); qerr != nil {
		return ErrorResponse(qerr), qerr
	}

	dropped, err := e.ns.DropModel(stmt.SpaceName, stmt.ModelName)
	if err != nil {
		if errors.Is(err, ErrModelNotFound) || errors.Is(err, ErrSpaceNotFound) {
			return fail(DdlObjectNotFound, "model %q does not exist in space %q", stmt.ModelName, stmt.SpaceName)
		}
		return fail(StorageIoError, "drop model %q.%q: %v", stmt.SpaceName, stmt.ModelName, err)
	}
	if err := dropped.Close(); err != nil {
		e.log.Warn("error closing dropped model's journal", "space", stmt.SpaceName, "model", stmt.ModelName, "error", err)
	}
	e.log.Info("model dropped", "space", stmt.SpaceName, "model", stmt.ModelName)
	return EmptyResponse(), nil
}

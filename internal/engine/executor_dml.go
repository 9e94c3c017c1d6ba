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

// resolveWhere collapses a WhereClause down to the single primary-key
// value every mutating DML statement requires. A nil Predicate (no WHERE
// at all) and a Predicate naming a field other than the model's primary
// key both fail with QExecDmlWhereHasUnindexedColumn: secondary indexes
// are a Non-goal, so the only predicate the engine can execute directly is
// an equality match on the row's identity.
func resolveWhere(schema Schema, where WhereClause) (PrimaryKey, *QueryError) {
	if where.Predicate == nil {
		return PrimaryKey{}, NewQueryError(QExecDmlWhereHasUnindexedColumn, "statement requires a WHERE clause on the primary key field %q", schema.PrimaryKeyField)
	}
	if where.Predicate.Field != schema.PrimaryKeyField {
		return PrimaryKey{}, NewQueryError(QExecDmlWhereHasUnindexedColumn, "WHERE clause must match primary key field %q, not %q", schema.PrimaryKeyField, where.Predicate.Field)
	}
	pk, err := NewPrimaryKey(where.Predicate.Value)
	if err != nil {
		return PrimaryKey{}, NewQueryError(QExecDmlSchemaViolation, "primary key value: %v", err)
	}
	return pk, nil
}

// Insert executes `INSERT INTO space.model (...)`.
func (e *Executor) Insert(ctx context.Context, stmt InsertStmt) (Response, *QueryError) {
	_, span := startSpan(ctx, "engine.Insert",
		attribute.String("space", stmt.SpaceName), attribute.String("model", stmt.ModelName))
	defer span.End()

	_, model, qerr := e.resolveModel(stmt.SpaceName, stmt.ModelName)
	if qerr != nil {
		return ErrorResponse(qerr), qerr
	}

	schema := model.Schema()
	if err := schema.ValidateRow(stmt.Values); err != nil {
		return fail(QExecDmlSchemaViolation, "insert into %q.%q: %v", stmt.SpaceName, stmt.ModelName, err)
	}
	pkValue, present := stmt.Values[schema.PrimaryKeyField]
	if !present {
		return fail(QExecDmlSchemaViolation, "insert into %q.%q: missing primary key field %q", stmt.SpaceName, stmt.ModelName, schema.PrimaryKeyField)
	}
	pk, err := NewPrimaryKey(pkValue)
	if err != nil {
		return fail(QExecDmlSchemaViolation, "insert into %q.%q: %v", stmt.SpaceName, stmt.ModelName, err)
	}

	fields := make(map[string]Datacell, len(stmt.Values))
	for k, v := range stmt.Values {
		fields[k] = v.Clone()
	}
	row := NewRow(pk, fields)
	if err := model.Index().Insert(row); err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			return fail(QExecDmlDuplicate, "insert into %q.%q: primary key already exists", stmt.SpaceName, stmt.ModelName)
		}
		return fail(StorageIoError, "insert into %q.%q: %v", stmt.SpaceName, stmt.ModelName, err)
	}

	version := model.Deltas().NextVersion()
	delta := DataDelta{Kind: DeltaInsert, Row: row, Key: pk, Version: version}
	if err := model.Deltas().Push(delta); err != nil {
		return fail(QExecDdlInvalidProperties, "insert into %q.%q: %v", stmt.SpaceName, stmt.ModelName, err)
	}
	return EmptyResponse(), nil
}

// Update executes `UPDATE space.model SET ... WHERE pk = ?`.
func (e *Executor) Update(ctx context.Context, stmt UpdateStmt) (Response, *QueryError) {
	_, span := startSpan(ctx, "engine.Update",
		attribute.String("space", stmt.SpaceName), attribute.String("model", stmt.ModelName))
	defer span.End()

	_, model, qerr := e.resolveModel(stmt.SpaceName, stmt.ModelName)
	if qerr != nil {
		return ErrorResponse(qerr), qerr
	}

	schema := model.Schema()
	pk, qerr := resolveWhere(schema, stmt.Where)
	if qerr != nil {
		return ErrorResponse(qerr), qerr
	}

	for name, f := range schemaFieldsByName(schema) {
		v, present := stmt.Changes[name]
		if !present {
			continue
		}
		if !v.IsNull() && !v.Tag().Equal(f.Tag) {
			return fail(QExecDmlSchemaViolation, "update %q.%q: field %q expected %s, got %s", stmt.SpaceName, stmt.ModelName, name, f.Tag, v.Tag())
		}
		if v.IsNull() && !f.Nullable {
			return fail(QExecDmlSchemaViolation, "update %q.%q: field %q must not be null", stmt.SpaceName, stmt.ModelName, name)
		}
	}
	for name := range stmt.Changes {
		if _, ok := schema.Field(name); !ok {
			return fail(QExecDmlSchemaViolation, "update %q.%q: field %q is not declared on this model", stmt.SpaceName, stmt.ModelName, name)
		}
		if name == schema.PrimaryKeyField {
			return fail(QExecDmlSchemaViolation, "update %q.%q: cannot modify primary key field %q", stmt.SpaceName, stmt.ModelName, name)
		}
	}

	row, ok := model.Index().Lookup(pk)
	if !ok {
		return fail(QExecDmlRowNotFound, "update %q.%q: row not found", stmt.SpaceName, stmt.ModelName)
	}

	changes := make(map[string]Datacell, len(stmt.Changes))
	for k, v := range stmt.Changes {
		changes[k] = v.Clone()
	}
	newVersion, err := model.Index().Update(pk, changes)
	if err != nil {
		if errors.Is(err, ErrRowNotFound) {
			return fail(QExecDmlRowNotFound, "update %q.%q: row not found", stmt.SpaceName, stmt.ModelName)
		}
		return fail(StorageIoError, "update %q.%q: %v", stmt.SpaceName, stmt.ModelName, err)
	}

	delta := DataDelta{Kind: DeltaUpdate, Row: row, Key: pk, Version: newVersion}
	if err := model.Deltas().Push(delta); err != nil {
		return fail(QExecDdlInvalidProperties, "update %q.%q: %v", stmt.SpaceName, stmt.ModelName, err)
	}
	return IntegerResponse(1), nil
}

// Delete executes `DELETE FROM space.model WHERE pk = ?`.
func (e *Executor) Delete(ctx context.Context, stmt DeleteStmt) (Response, *QueryError) {
	_, span := startSpan(ctx, "engine.Delete",
		attribute.String("space", stmt.SpaceName), attribute.String("model", stmt.ModelName))
	defer span.End()

	_, model, qerr := e.resolveModel(stmt.SpaceName, stmt.ModelName)
	if qerr != nil {
		return ErrorResponse(qerr), qerr
	}

	schema := model.Schema()
	pk, qerr := resolveWhere(schema, stmt.Where)
	if qerr != nil {
		return ErrorResponse(qerr), qerr
	}

	row, err := model.Index().Delete(pk)
	if err != nil {
		if errors.Is(err, ErrRowNotFound) {
			return fail(QExecDmlRowNotFound, "delete from %q.%q: row not found", stmt.SpaceName, stmt.ModelName)
		}
		return fail(StorageIoError, "delete from %q.%q: %v", stmt.SpaceName, stmt.ModelName, err)
	}

	version := model.Deltas().NextVersion()
	delta := DataDelta{Kind: DeltaDelete, Row: row, Key: pk, Version: version}
	if err := model.Deltas().Push(delta); err != nil {
		return fail(QExecDdlInvalidProperties, "delete from %q.%q: %v", stmt.SpaceName, stmt.ModelName, err)
	}
	return IntegerResponse(1), nil
}

// Select executes `SELECT [fields] FROM space.model [WHERE pk = ?]`. With a
// WHERE clause it returns at most one row; without one it scans the whole
// model, matching the snapshot semantics PrimaryIndex.Range offers.
func (e *Executor) Select(ctx context.Context, stmt SelectStmt) (Response, *QueryError) {
	_, span := startSpan(ctx, "engine.Select",
		attribute.String("space", stmt.SpaceName), attribute.String("model", stmt.ModelName))
	defer span.End()

	_, model, qerr := e.resolveModel(stmt.SpaceName, stmt.ModelName)
	if qerr != nil {
		return ErrorResponse(qerr), qerr
	}
	schema := model.Schema()

	if stmt.Where.Predicate != nil {
		pk, qerr := resolveWhere(schema, stmt.Where)
		if qerr != nil {
			return ErrorResponse(qerr), qerr
		}
		row, ok := model.Index().Lookup(pk)
		if !ok {
			return fail(QExecDmlRowNotFound, "select from %q.%q: row not found", stmt.SpaceName, stmt.ModelName)
		}
		fields, _ := row.Snapshot()
		return RowResponse(projectFields(fields, stmt.Fields)), nil
	}

	var rows []map[string]Datacell
	var scanErr *QueryError
	model.Index().Range(func(row *Row) bool {
		if qerr := checkDeadline(ctx); qerr != nil {
			scanErr = qerr
			return false
		}
		fields, _ := row.Snapshot()
		rows = append(rows, projectFields(fields, stmt.Fields))
		return true
	})
	if scanErr != nil {
		return ErrorResponse(scanErr), scanErr
	}
	return RowsResponse(rows), nil
}

func projectFields(fields map[string]Datacell, want []string) map[string]Datacell {
	if len(want) == 0 {
		return fields
	}
	out := make(map[string]Datacell, len(want))
	for _, name := range want {
		if v, ok := fields[name]; ok {
			out[name] = v
		}
	}
	return out
}

func schemaFieldsByName(schema Schema) map[string]Field {
	out := make(map[string]Field, len(schema.Fields))
	for _, f := range schema.Fields {
		out[f.Name] = f
	}
	return out
}

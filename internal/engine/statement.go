// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Statement types are the input surface the executor consumes: the output
// shape a QL lexer/parser (out of scope here) would hand it. They carry
// already-typed values, not raw token text, since tokenization and literal
// parsing belong to the layer this package does not implement.
package engine

// Predicate is a single field-equals-literal constraint. The executor only
// ever resolves a WHERE clause down to at most one Predicate against the
// model's primary key field; anything more is QExecDmlWhereHasUnindexedColumn.
type Predicate struct {
	Field string
	Value Datacell
}

// WhereClause wraps an optional Predicate. A nil Predicate means "no
// WHERE clause": legal for SELECT (full scan) and rejected for
// UPDATE/DELETE (every mutating DML statement must name exactly one row).
type WhereClause struct {
	Predicate *Predicate
}

// CreateSpaceStmt is `CREATE SPACE name WITH {...}`.
type CreateSpaceStmt struct {
	Name       string
	Properties map[string]string
}

// AlterSpaceStmt is `ALTER SPACE name WITH {key: value}`.
type AlterSpaceStmt struct {
	Name  string
	Key   string
	Value string
}

// DropSpaceStmt is `DROP SPACE name`.
type DropSpaceStmt struct {
	Name string
}

// CreateModelStmt is `CREATE MODEL space.model(...)`.
type CreateModelStmt struct {
	SpaceName string
	ModelName string
	Schema    Schema
}

// AlterModelStmt is `ALTER MODEL space.model ADD field` or `... REMOVE
// field`. Exactly one of AddField/RemoveField is set.
type AlterModelStmt struct {
	SpaceName   string
	ModelName   string
	AddField    *Field
	RemoveField *string
}

// DropModelStmt is `DROP MODEL space.model`.
type DropModelStmt struct {
	SpaceName string
	ModelName string
}

// InsertStmt is `INSERT INTO space.model (...)`.
type InsertStmt struct {
	SpaceName string
	ModelName string
	Values    map[string]Datacell
}

// UpdateStmt is `UPDATE space.model SET ... WHERE pk = ?`.
type UpdateStmt struct {
	SpaceName string
	ModelName string
	Where     WhereClause
	Changes   map[string]Datacell
}

// DeleteStmt is `DELETE FROM space.model WHERE pk = ?`.
type DeleteStmt struct {
	SpaceName string
	ModelName string
	Where     WhereClause
}

// SelectStmt is `SELECT [fields] FROM space.model [WHERE pk = ?]`. An
// empty Fields slice means "all declared fields".
type SelectStmt struct {
	SpaceName string
	ModelName string
	Where     WhereClause
	Fields    []string
}

// CreateUserStmt is `CREATE USER name WITH {password: ...}`.
type CreateUserStmt struct {
	Username     string
	PasswordHash string
}

// AlterUserStmt is `ALTER USER name WITH {password: ...}`.
type AlterUserStmt struct {
	Username     string
	PasswordHash string
}

// DropUserStmt is `DROP USER name`.
type DropUserStmt struct {
	Username string
}

// InspectTargetKind discriminates what an InspectStmt asks about.
type InspectTargetKind uint8

const (
	// InspectGlobal is `INSPECT GLOBAL`.
	InspectGlobal InspectTargetKind = iota + 1
	// InspectSpace is `INSPECT SPACE name`.
	InspectSpace
	// InspectModel is `INSPECT MODEL space.model`.
	InspectModel
)

// InspectStmt is `INSPECT ...`.
type InspectStmt struct {
	Target    InspectTargetKind
	SpaceName string
	ModelName string
	// Full requests `INSPECT GLOBAL --full`: besides the live layout, every
	// space is persisted to the snapshot engine as a point-in-time dump
	// (§9 Open Question (a)) before the response is built. Only meaningful
	// when Target is InspectGlobal.
	Full bool
}

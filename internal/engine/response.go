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

// ResponseKind discriminates the shape of a Response.
type ResponseKind uint8

const (
	// ResponseEmpty carries no payload (DDL/DCL success, DML success with
	// nothing to return).
	ResponseEmpty ResponseKind = iota + 1
	// ResponseRow carries a single row's field values.
	ResponseRow
	// ResponseRows carries zero or more rows (SELECT without a unique-key
	// predicate, or Inspect listings).
	ResponseRows
	// ResponseInteger carries a single integer (e.g. affected-row counts).
	ResponseInteger
	// ResponseBool carries a single boolean.
	ResponseBool
	// ResponseError carries a QueryError; Executor methods also return this
	// as a Go error, but Response.Error lets a caller that only looks at
	// the Response value still branch on failure.
	ResponseError
)

// Response is the variant return type of every executor entry point.
// Exactly one of the typed fields is meaningful, selected by Kind.
type Response struct {
	Kind    ResponseKind
	Row     map[string]Datacell
	Rows    []map[string]Datacell
	Integer int64
	Bool    bool
	Err     *QueryError
}

// EmptyResponse is the canonical success-with-no-payload response.
func EmptyResponse() Response {
	return Response{Kind: ResponseEmpty}
}

// RowResponse wraps a single row's fields.
func RowResponse(fields map[string]Datacell) Response {
	return Response{Kind: ResponseRow, Row: fields}
}

// RowsResponse wraps a slice of rows.
func RowsResponse(rows []map[string]Datacell) Response {
	return Response{Kind: ResponseRows, Rows: rows}
}

// IntegerResponse wraps a single integer.
func IntegerResponse(v int64) Response {
	return Response{Kind: ResponseInteger, Integer: v}
}

// BoolResponse wraps a single boolean.
func BoolResponse(v bool) Response {
	return Response{Kind: ResponseBool, Bool: v}
}

// ErrorResponse wraps a QueryError as a Response value.
func ErrorResponse(err *QueryError) Response {
	return Response{Kind: ResponseError, Err: err}
}

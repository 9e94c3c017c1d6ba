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

import "fmt"

// QueryErrorCode is a closed taxonomy: every error the executor can
// produce maps to exactly one of these codes, grouped by the layer that
// raised it. A new failure mode requires adding a code here rather than
// returning an ad hoc wrapped error, so a client-facing response type can
// always render a stable, enumerable error surface.
type QueryErrorCode uint16

const (
	// Syntax / parse layer.
	QLInvalidSyntax QueryErrorCode = iota + 1
	QLExpectedStatement
	QLUnknownStatement

	// Auth / system layer.
	SysAuthError
	SysAuthPermDenied
	SysAuthBadCredentials
	SysAuthAlreadyClaimed
	SysAuthDisabled

	// DDL layer.
	DdlSpaceBadProperty
	DdlModelInvalidTypeDefinition
	DdlSpaceNotEmpty
	DdlObjectAlreadyExists
	DdlObjectNotFound

	// DML layer.
	QExecDmlRowNotFound
	QExecDmlDuplicate
	QExecDmlWhereHasUnindexedColumn
	QExecDmlSchemaViolation
	QExecDdlInvalidProperties

	// Storage / recovery layer.
	HeaderDecodeHeaderVersionMismatch
	V1DataBatchRuntimeCloseError
	StorageCorruptedLog
	StorageIoError
)

func (c QueryErrorCode) String() string {
	switch c {
	case QLInvalidSyntax:
		return "ql-invalid-syntax"
	case QLExpectedStatement:
		return "ql-expected-statement"
	case QLUnknownStatement:
		return "ql-unknown-statement"
	case SysAuthError:
		return "sys-auth-error"
	case SysAuthPermDenied:
		return "sys-auth-perm-denied"
	case SysAuthBadCredentials:
		return "sys-auth-bad-credentials"
	case SysAuthAlreadyClaimed:
		return "sys-auth-already-claimed"
	case SysAuthDisabled:
		return "sys-auth-disabled"
	case DdlSpaceBadProperty:
		return "ddl-space-bad-property"
	case DdlModelInvalidTypeDefinition:
		return "ddl-model-invalid-type-definition"
	case DdlSpaceNotEmpty:
		return "ddl-space-not-empty"
	case DdlObjectAlreadyExists:
		return "ddl-object-already-exists"
	case DdlObjectNotFound:
		return "ddl-object-not-found"
	case QExecDmlRowNotFound:
		return "q-exec-dml-row-not-found"
	case QExecDmlDuplicate:
		return "q-exec-dml-duplicate"
	case QExecDmlWhereHasUnindexedColumn:
		return "q-exec-dml-where-has-unindexed-column"
	case QExecDmlSchemaViolation:
		return "q-exec-dml-schema-violation"
	case QExecDdlInvalidProperties:
		return "q-exec-ddl-invalid-properties"
	case HeaderDecodeHeaderVersionMismatch:
		return "header-decode-header-version-mismatch"
	case V1DataBatchRuntimeCloseError:
		return "v1-data-batch-runtime-close-error"
	case StorageCorruptedLog:
		return "storage-corrupted-log"
	case StorageIoError:
		return "storage-io-error"
	default:
		return fmt.Sprintf("query-error(%d)", uint16(c))
	}
}

// QueryError is the error type every executor entry point returns on
// failure. Message carries human-readable detail; Code is what a client
// should branch on.
type QueryError struct {
	Code    QueryErrorCode
	Message string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewQueryError constructs a QueryError with a formatted message.
func NewQueryError(code QueryErrorCode, format string, args ...any) *QueryError {
	return &QueryError{Code: code, Message: fmt.Sprintf(format, args...)}
}

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

// CreateUser executes `CREATE USER name WITH {password: ...}`. Only root
// may administer accounts; sess identifies the caller.
func (e *Executor) CreateUser(ctx context.Context, sess Session, stmt CreateUserStmt) (Response, *QueryError) {
	_, span := startSpan(ctx, "engine.CreateUser", attribute.String("username", stmt.Username))
	defer span.End()

	if !sess.IsRoot() {
		return fail(SysAuthPermDenied, "only %s may create user accounts", RootUsername)
	}
	if err := e.ns.CreateUser(stmt.Username, stmt.PasswordHash); err != nil {
		if errors.Is(err, ErrUserAlreadyExists) {
			return fail(SysAuthAlreadyClaimed, "user %q already exists", stmt.Username)
		}
		return fail(StorageIoError, "create user %q: %v", stmt.Username, err)
	}
	e.log.Info("user created", "username", stmt.Username)
	return EmptyResponse(), nil
}

// AlterUser executes `ALTER USER name WITH {password: ...}`. root may alter
// any account; a non-root session may only alter its own.
func (e *Executor) AlterUser(ctx context.Context, sess Session, stmt AlterUserStmt) (Response, *QueryError) {
	_, span := startSpan(ctx, "engine.AlterUser", attribute.String("username", stmt.Username))
	defer span.End()

	if !sess.IsRoot() && sess.Username != stmt.Username {
		return fail(SysAuthPermDenied, "cannot alter another user's account")
	}
	if err := e.ns.AlterUser(stmt.Username, stmt.PasswordHash); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return fail(SysAuthError, "user %q does not exist", stmt.Username)
		}
		return fail(StorageIoError, "alter user %q: %v", stmt.Username, err)
	}
	return EmptyResponse(), nil
}

// DropUser executes `DROP USER name`. Only root may drop accounts, and
// root can never drop itself (SystemDatabase.DropUser enforces this).
func (e *Executor) DropUser(ctx context.Context, sess Session, stmt DropUserStmt) (Response, *QueryError) {
	_, span := startSpan(ctx, "engine.DropUser", attribute.String("username", stmt.Username))
	defer span.End()

	if !sess.IsRoot() {
		return fail(SysAuthPermDenied, "only %s may drop user accounts", RootUsername)
	}
	if err := e.ns.DropUser(sess.Username, stmt.Username); err != nil {
		if errors.Is(err, ErrCannotDropSelf) {
			return fail(SysAuthPermDenied, "cannot drop your own account")
		}
		if errors.Is(err, ErrUserNotFound) {
			return fail(SysAuthError, "user %q does not exist", stmt.Username)
		}
		return fail(StorageIoError, "drop user %q: %v", stmt.Username, err)
	}
	e.log.Info("user dropped", "username", stmt.Username)
	return EmptyResponse(), nil
}

// Authenticate verifies a username/password-hash pair against the system
// database, the precondition a connection layer (out of scope here) checks
// once per session before accepting any statement from it.
func (e *Executor) Authenticate(username, passwordHash string) (Session, *QueryError) {
	if !e.ns.SystemDatabase().VerifyPasswordHash(username, passwordHash) {
		return Session{}, NewQueryError(SysAuthBadCredentials, "invalid username or password")
	}
	return Session{Username: username}, nil
}

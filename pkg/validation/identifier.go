// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for security-critical operations.
//
// This package contains validators for user-provided inputs that are used in
// database queries, file paths, or subprocess calls. Using these validators
// prevents injection attacks (query injection, command injection, path traversal).
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// identifierPattern matches valid space/model/field/user identifiers.
// Allows: ASCII letters, digits, underscores; must start with a letter or
// underscore, never a digit.
// Max length: 64 characters.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)

// reservedIdentifiers can never be used as a space, model, field, or user
// name: they collide with keywords the query language reserves.
var reservedIdentifiers = map[string]struct{}{
	"select": {}, "insert": {}, "update": {}, "delete": {},
	"create": {}, "alter": {}, "drop": {}, "where": {},
	"from": {}, "into": {}, "with": {}, "root": {},
}

// ValidateIdentifier validates a space, model, field, or user name before it
// is interpolated into a DDL/DML statement or used as a map key internal to
// the namespace.
//
// Valid identifiers:
//   - 1-64 characters
//   - start with a letter or underscore
//   - contain only ASCII letters, digits, and underscores thereafter
//   - not a reserved keyword (case-insensitive)
//
// Returns an error if the identifier is invalid.
//
// Example:
//
//	if err := validation.ValidateIdentifier(name); err != nil {
//	    return nil, fmt.Errorf("invalid identifier: %w", err)
//	}
//	// Safe to use as a space/model/field/user name
func ValidateIdentifier(name string) error {
	if name == "" {
		return fmt.Errorf("identifier cannot be empty")
	}
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("invalid identifier format: %q (must start with a letter or underscore and contain only letters, digits, underscores)", name)
	}
	if _, reserved := reservedIdentifiers[strings.ToLower(name)]; reserved {
		return fmt.Errorf("identifier %q is a reserved keyword", name)
	}
	return nil
}

// ValidateIdentifiers validates multiple identifiers.
// Returns an error listing all invalid identifiers if any fail validation.
func ValidateIdentifiers(names []string) error {
	var invalid []string
	for _, n := range names {
		if err := ValidateIdentifier(n); err != nil {
			invalid = append(invalid, n)
		}
	}
	if len(invalid) > 0 {
		return fmt.Errorf("invalid identifiers: %v", invalid)
	}
	return nil
}

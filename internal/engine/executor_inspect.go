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

	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/yaml.v3"
)

// inspectModel is the serialized shape of one model in an Inspect response.
type inspectModel struct {
	Name            string   `yaml:"name"`
	PrimaryKeyField string   `yaml:"primary_key"`
	Fields          []string `yaml:"fields"`
	RowCount        int64    `yaml:"row_count"`
}

// inspectSpace is the serialized shape of one space in an Inspect response.
type inspectSpace struct {
	Name       string            `yaml:"name"`
	UUID       string            `yaml:"uuid"`
	Properties map[string]string `yaml:"properties"`
	Models     []inspectModel    `yaml:"models,omitempty"`
}

// inspectGlobal is the serialized shape of INSPECT GLOBAL's response. Users
// is omitted entirely (via omitempty on a nil slice) unless the caller is
// root.
type inspectGlobal struct {
	Spaces       []inspectSpace `yaml:"spaces"`
	Users        []string       `yaml:"users,omitempty"`
	FullSnapshot bool           `yaml:"full_snapshot,omitempty"`
}

func describeModel(m *ModelData) inspectModel {
	schema := m.Schema()
	names := make([]string, 0, len(schema.Fields))
	for _, f := range schema.Fields {
		names = append(names, f.Name)
	}
	return inspectModel{
		Name:            m.Name,
		PrimaryKeyField: schema.PrimaryKeyField,
		Fields:          names,
		RowCount:        m.RowCount(),
	}
}

func describeSpace(space *Space, withModels bool) inspectSpace {
	out := inspectSpace{
		Name:       space.Name,
		UUID:       space.UUID.String(),
		Properties: space.Properties(),
	}
	if withModels {
		for _, name := range space.ModelNames() {
			if m, ok := space.Model(name); ok {
				out.Models = append(out.Models, describeModel(m))
			}
		}
	}
	return out
}

// Inspect executes `INSPECT GLOBAL|SPACE name|MODEL space.model`, returning
// a YAML-encoded snapshot as a single-field Row response. The `users`
// section of INSPECT GLOBAL is populated only when sess is root: a
// non-root session can see space/model layout but never the account list.
func (e *Executor) Inspect(ctx context.Context, sess Session, stmt InspectStmt) (Response, *QueryError) {
	_, span := startSpan(ctx, "engine.Inspect", attribute.String("target", stmt.SpaceName+"."+stmt.ModelName))
	defer span.End()

	var doc any
	switch stmt.Target {
	case InspectGlobal:
		if stmt.Full && e.snapshots == nil {
			return fail(StorageIoError, "inspect global --full: no snapshot engine configured")
		}
		g := inspectGlobal{}
		for _, name := range e.ns.SpaceNames() {
			space, ok := e.ns.Space(name)
			if !ok {
				continue
			}
			g.Spaces = append(g.Spaces, describeSpace(space, false))
			if stmt.Full {
				if err := e.snapshots.SnapshotSpace(ctx, space); err != nil {
					return fail(StorageIoError, "inspect global --full: snapshot space %q: %v", name, err)
				}
			}
		}
		g.FullSnapshot = stmt.Full
		if sess.IsRoot() {
			g.Users = e.ns.SystemDatabase().Usernames()
		}
		doc = g
	case InspectSpace:
		space, ok := e.ns.Space(stmt.SpaceName)
		if !ok {
			return fail(DdlObjectNotFound, "space %q does not exist", stmt.SpaceName)
		}
		doc = describeSpace(space, true)
	case InspectModel:
		_, model, qerr := e.resolveModel(stmt.SpaceName, stmt.ModelName)
		if qerr != nil {
			return ErrorResponse(qerr), qerr
		}
		doc = describeModel(model)
	default:
		return fail(QLInvalidSyntax, "unknown INSPECT target")
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return fail(StorageIoError, "inspect: marshal result: %v", err)
	}
	cell, err := StringDatacell(string(out))
	if err != nil {
		return fail(StorageIoError, "inspect: encode result: %v", err)
	}
	return RowResponse(map[string]Datacell{"inspect": cell}), nil
}

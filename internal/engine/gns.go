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
	"fmt"
	"sync"
)

// ErrSpaceAlreadyExists is returned by CreateSpace for a taken name.
var ErrSpaceAlreadyExists = fmt.Errorf("engine: space already exists")

// ErrSpaceNotFound is returned when a named space does not exist.
var ErrSpaceNotFound = fmt.Errorf("engine: space not found")

// GlobalNS (global namespace) is the root of the in-memory hierarchy: every
// space, the system database of user accounts, and the handle to the GNS
// event log every DDL/DCL call appends to before the corresponding change
// becomes visible in the maps below. A single multi-reader/single-writer
// lock protects the space map; concurrency within a space's models is
// independent and does not contend with other spaces.
type GlobalNS struct {
	mu       sync.RWMutex
	spaces   map[string]*Space
	sysdb    *SystemDatabase
	eventLog *EventLog
}

// NewGlobalNS creates an empty namespace backed by eventLog, seeded with a
// root account whose password hash is rootPasswordHash.
func NewGlobalNS(eventLog *EventLog, rootPasswordHash string) *GlobalNS {
	return &GlobalNS{
		spaces:   make(map[string]*Space),
		sysdb:    NewSystemDatabase(rootPasswordHash),
		eventLog: eventLog,
	}
}

// SystemDatabase returns the namespace's user-account store.
func (g *GlobalNS) SystemDatabase() *SystemDatabase { return g.sysdb }

// EventLog returns the namespace's GNS journal handle.
func (g *GlobalNS) EventLog() *EventLog { return g.eventLog }

// AttachEventLog installs eventLog on a namespace built with a nil one.
// Used by startup replay: events are applied against a NewGlobalNS(nil,
// ...) so re-applying them never re-appends, then the real log is
// attached once in-memory state matches what's on disk.
func (g *GlobalNS) AttachEventLog(eventLog *EventLog) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.eventLog = eventLog
}

// CreateSpace appends a CreateSpace event, then registers the space in
// memory. The event is durable before the space becomes visible to a
// concurrent reader.
func (g *GlobalNS) CreateSpace(space *Space) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.spaces[space.Name]; exists {
		return ErrSpaceAlreadyExists
	}
	if g.eventLog != nil {
		if err := g.eventLog.Append(EncodeCreateSpaceEvent(space.Name, space.UUID)); err != nil {
			return fmt.Errorf("engine: persist create-space: %w", err)
		}
	}
	g.spaces[space.Name] = space
	return nil
}

// Space looks up a space by name.
func (g *GlobalNS) Space(name string) (*Space, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s, ok := g.spaces[name]
	return s, ok
}

// DropSpace appends a DropSpace event and removes the space from memory.
// The caller must already have checked Space.IsEmpty.
func (g *GlobalNS) DropSpace(name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.spaces[name]; !exists {
		return ErrSpaceNotFound
	}
	if g.eventLog != nil {
		if err := g.eventLog.Append(EncodeDropSpaceEvent(name)); err != nil {
			return fmt.Errorf("engine: persist drop-space: %w", err)
		}
	}
	delete(g.spaces, name)
	return nil
}

// AlterSpace appends an AlterSpace event and applies the property change.
func (g *GlobalNS) AlterSpace(name, key, value string) error {
	g.mu.RLock()
	space, exists := g.spaces[name]
	g.mu.RUnlock()
	if !exists {
		return ErrSpaceNotFound
	}
	if g.eventLog != nil {
		if err := g.eventLog.Append(EncodeAlterSpaceEvent(name, key, value)); err != nil {
			return fmt.Errorf("engine: persist alter-space: %w", err)
		}
	}
	space.SetProperty(key, value)
	return nil
}

// CreateModel appends a CreateModel event, then registers model under the
// named space.
func (g *GlobalNS) CreateModel(spaceName string, model *ModelData) error {
	g.mu.RLock()
	space, exists := g.spaces[spaceName]
	g.mu.RUnlock()
	if !exists {
		return ErrSpaceNotFound
	}
	if g.eventLog != nil {
		if err := g.eventLog.Append(EncodeCreateModelEvent(spaceName, model.Name, model.Schema())); err != nil {
			return fmt.Errorf("engine: persist create-model: %w", err)
		}
	}
	return space.CreateModel(model)
}

// AlterModelSchema appends an AlterModel event, then installs newSchema on
// the named model.
func (g *GlobalNS) AlterModelSchema(spaceName, modelName string, newSchema Schema) error {
	g.mu.RLock()
	space, exists := g.spaces[spaceName]
	g.mu.RUnlock()
	if !exists {
		return ErrSpaceNotFound
	}
	model, ok := space.Model(modelName)
	if !ok {
		return ErrModelNotFound
	}
	if g.eventLog != nil {
		if err := g.eventLog.Append(EncodeAlterModelEvent(spaceName, modelName, newSchema)); err != nil {
			return fmt.Errorf("engine: persist alter-model: %w", err)
		}
	}
	model.SetSchema(newSchema)
	return nil
}

// DropModel appends a DropModel event, then removes the model from its
// space.
func (g *GlobalNS) DropModel(spaceName, modelName string) (*ModelData, error) {
	g.mu.RLock()
	space, exists := g.spaces[spaceName]
	g.mu.RUnlock()
	if !exists {
		return nil, ErrSpaceNotFound
	}
	if g.eventLog != nil {
		if err := g.eventLog.Append(EncodeDropModelEvent(spaceName, modelName)); err != nil {
			return nil, fmt.Errorf("engine: persist drop-model: %w", err)
		}
	}
	return space.DropModel(modelName)
}

// CreateUser appends a CreateUser event, then registers the account.
func (g *GlobalNS) CreateUser(username, passwordHash string) error {
	if g.eventLog != nil {
		if err := g.eventLog.Append(EncodeCreateUserEvent(username, passwordHash)); err != nil {
			return fmt.Errorf("engine: persist create-user: %w", err)
		}
	}
	return g.sysdb.CreateUser(username, passwordHash)
}

// AlterUser appends an AlterUser event, then replaces the account's
// password hash.
func (g *GlobalNS) AlterUser(username, passwordHash string) error {
	if g.eventLog != nil {
		if err := g.eventLog.Append(EncodeAlterUserEvent(username, passwordHash)); err != nil {
			return fmt.Errorf("engine: persist alter-user: %w", err)
		}
	}
	return g.sysdb.AlterUser(username, passwordHash)
}

// DropUser appends a DropUser event, then removes the account.
func (g *GlobalNS) DropUser(callerUsername, username string) error {
	if g.eventLog != nil {
		if err := g.eventLog.Append(EncodeDropUserEvent(username)); err != nil {
			return fmt.Errorf("engine: persist drop-user: %w", err)
		}
	}
	return g.sysdb.DropUser(callerUsername, username)
}

// SpaceNames returns every registered space name, for Inspect.
func (g *GlobalNS) SpaceNames() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	names := make([]string, 0, len(g.spaces))
	for name := range g.spaces {
		names = append(names, name)
	}
	return names
}

// Close closes the GNS event log handle.
func (g *GlobalNS) Close() error {
	if g.eventLog == nil {
		return nil
	}
	return g.eventLog.Close()
}

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

	"github.com/skytable/skytable-sub007/pkg/validation"
)

// Space is a keyspace: a named, UUID-identified container of models plus a
// small property dictionary (e.g. a default retention policy) set at
// CREATE SPACE / ALTER SPACE time.
type Space struct {
	Name       string
	UUID       UUID
	mu         sync.RWMutex
	properties map[string]string
	models     map[string]*ModelData
}

// NewSpace creates an empty space named name with a freshly minted UUID.
func NewSpace(name string, properties map[string]string) (*Space, error) {
	return NewSpaceWithUUID(name, NewUUID(), properties)
}

// NewSpaceWithUUID creates an empty space with a caller-supplied UUID, used
// by event-log replay to reconstruct a space with the identity it was
// originally created with rather than minting a new one.
func NewSpaceWithUUID(name string, id UUID, properties map[string]string) (*Space, error) {
	if err := validation.ValidateIdentifier(name); err != nil {
		return nil, err
	}
	props := make(map[string]string, len(properties))
	for k, v := range properties {
		props[k] = v
	}
	return &Space{
		Name:       name,
		UUID:       id,
		properties: props,
		models:     make(map[string]*ModelData),
	}, nil
}

// Properties returns a copy of the space's property dictionary.
func (s *Space) Properties() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.properties))
	for k, v := range s.properties {
		out[k] = v
	}
	return out
}

// SetProperty updates (or adds) a single property, used by ALTER SPACE.
func (s *Space) SetProperty(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.properties[key] = value
}

// ErrModelAlreadyExists is returned by CreateModel when the name is taken.
var ErrModelAlreadyExists = fmt.Errorf("engine: model already exists")

// ErrModelNotFound is returned when a named model does not exist.
var ErrModelNotFound = fmt.Errorf("engine: model not found")

// ErrSpaceNotEmpty is returned by DropSpace preconditions when models still
// exist in the space.
var ErrSpaceNotEmpty = fmt.Errorf("engine: space is not empty")

// CreateModel registers model under the space. Fails if a model with the
// same name already exists.
func (s *Space) CreateModel(model *ModelData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.models[model.Name]; exists {
		return ErrModelAlreadyExists
	}
	s.models[model.Name] = model
	return nil
}

// Model looks up a model by name.
func (s *Space) Model(name string) (*ModelData, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.models[name]
	return m, ok
}

// DropModel removes and returns the named model.
func (s *Space) DropModel(name string) (*ModelData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.models[name]
	if !ok {
		return nil, ErrModelNotFound
	}
	delete(s.models, name)
	return m, nil
}

// ModelNames returns the names of every model in the space, for Inspect.
func (s *Space) ModelNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.models))
	for name := range s.models {
		names = append(names, name)
	}
	return names
}

// IsEmpty reports whether the space has no models, the precondition for
// DROP SPACE.
func (s *Space) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.models) == 0
}

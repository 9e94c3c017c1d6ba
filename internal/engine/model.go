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
	"sync"

	"github.com/skytable/skytable-sub007/pkg/validation"
)

// BatchJournalHandle is the subset of *BatchJournal a ModelData needs,
// narrowed to an interface so the model layer can be tested without a real
// file behind it.
type BatchJournalHandle interface {
	Append(events []BatchEvent) error
	Close() error
}

// ModelData is one model (table) inside a Space: its current schema, the
// primary index holding its live rows, the delta queue awaiting a flush,
// and the handle to its on-disk batch journal. Schema changes (ALTER
// MODEL) replace the schema field under modelMu without touching the
// index or any row already inserted under the old schema — existing rows
// keep only the fields they were written with, so a field added later is
// absent from their reads; no null value is filled in for it.
type ModelData struct {
	Name    string
	modelMu sync.RWMutex
	schema  Schema
	index   *PrimaryIndex
	deltas  *DeltaState
	journal BatchJournalHandle
}

// NewModelData creates a model named name with the given schema, an empty
// primary index, and deltaCap as its pending-delta backpressure threshold
// (see memcap.go for how deltaCap is computed in production).
func NewModelData(name string, schema Schema, journal BatchJournalHandle, deltaCap int) (*ModelData, error) {
	if err := validation.ValidateIdentifier(name); err != nil {
		return nil, err
	}
	return &ModelData{
		Name:    name,
		schema:  schema,
		index:   NewPrimaryIndex(),
		deltas:  NewDeltaState(deltaCap),
		journal: journal,
	}, nil
}

// Schema returns the model's current schema.
func (m *ModelData) Schema() Schema {
	m.modelMu.RLock()
	defer m.modelMu.RUnlock()
	return m.schema
}

// SetSchema installs a new schema, used by ALTER MODEL. The caller is
// responsible for having already validated that the transition is legal
// (e.g. removing a field does not target the primary key).
func (m *ModelData) SetSchema(s Schema) {
	m.modelMu.Lock()
	defer m.modelMu.Unlock()
	m.schema = s
}

// Index returns the model's primary index.
func (m *ModelData) Index() *PrimaryIndex { return m.index }

// Deltas returns the model's pending-delta queue.
func (m *ModelData) Deltas() *DeltaState { return m.deltas }

// RowCount returns the number of live rows.
func (m *ModelData) RowCount() int64 { return m.index.Count() }

// AppendToJournal persists events to the model's batch journal. A model
// created without a journal (tests, or a future purely in-memory mode)
// treats this as a no-op rather than an error.
func (m *ModelData) AppendToJournal(events []BatchEvent) error {
	if m.journal == nil {
		return nil
	}
	return m.journal.Append(events)
}

// Close closes the model's batch journal handle.
func (m *ModelData) Close() error {
	if m.journal == nil {
		return nil
	}
	return m.journal.Close()
}

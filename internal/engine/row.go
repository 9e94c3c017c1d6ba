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

import "sync"

// Row is one record in a model: an immutable primary key plus a mutable
// field map, guarded by its own lock independent of the PrimaryIndex
// structure that owns it. A version stamp increments on every successful
// update so concurrent readers can detect a torn read across an unlocked
// snapshot and so the batch journal can carry "row version N" in its event
// stream without recomputing it from field contents.
type Row struct {
	pk      PrimaryKey
	mu      sync.RWMutex
	fields  map[string]Datacell
	version uint64
	deleted bool
}

// NewRow creates a row at version 1 with the given initial field values.
// fields is taken by reference to avoid an extra copy on insert; callers
// must not retain a mutable alias to it afterward.
func NewRow(pk PrimaryKey, fields map[string]Datacell) *Row {
	return &Row{pk: pk, fields: fields, version: 1}
}

// PrimaryKey returns the row's identity. Safe to call without holding the
// row lock: the primary key never changes after construction.
func (r *Row) PrimaryKey() PrimaryKey { return r.pk }

// Version returns the row's current version stamp.
func (r *Row) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// Get reads one field by name under a read lock.
func (r *Row) Get(field string) (Datacell, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.fields[field]
	return d, ok
}

// Snapshot returns a deep-copied view of every field, safe to hand to a
// caller outside the row lock (used by Select and by the batch journal
// when it images a full row for an insert/update event).
func (r *Row) Snapshot() (map[string]Datacell, uint64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Datacell, len(r.fields))
	for k, v := range r.fields {
		out[k] = v.Clone()
	}
	return out, r.version
}

// Apply merges changes into the row's field map under a write lock and
// bumps the version stamp. It returns the new version so the caller can
// stamp a delta/event with the exact version the mutation produced.
func (r *Row) Apply(changes map[string]Datacell) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range changes {
		r.fields[k] = v
	}
	r.version++
	return r.version
}

// MarkDeleted flips the row's tombstone bit and bumps its version.
// PrimaryIndex.Delete calls it and unlinks the row from its bucket in the
// same call, before the delta that records the deletion is flushed; a
// racing reader which already holds a *Row pointer observes a coherent
// tombstone, and the struct stays valid for as long as it is referenced.
func (r *Row) MarkDeleted() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = true
	r.version++
	return r.version
}

// IsDeleted reports the tombstone bit.
func (r *Row) IsDeleted() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.deleted
}

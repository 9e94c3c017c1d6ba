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
	"sync/atomic"
)

const indexBucketCount = 64

// bucket is one shard of the primary index: a copy-on-write map protected
// for writers by mu, and read by Lookup through an atomic load with no
// locking at all. A writer builds a new map from the old one, mutates the
// copy, and swaps the pointer; concurrent readers either see the whole old
// map or the whole new one, never a torn view.
type bucket struct {
	mu   sync.Mutex
	rows atomic.Pointer[map[string]*Row]
}

func newBucket() *bucket {
	b := &bucket{}
	empty := make(map[string]*Row)
	b.rows.Store(&empty)
	return b
}

// PrimaryIndex is a concurrent hash map from a model's primary key to its
// row handle. Reads never block; inserts, updates, and deletes take a
// single bucket's write lock, so two writers touching different keys never
// contend even if they hash to the same coarse region of the keyspace as
// long as they land in different buckets.
type PrimaryIndex struct {
	buckets [indexBucketCount]*bucket
	count   atomic.Int64
	epoch   *EpochGuard
}

// NewPrimaryIndex returns an empty index.
func NewPrimaryIndex() *PrimaryIndex {
	idx := &PrimaryIndex{epoch: NewEpochGuard()}
	for i := range idx.buckets {
		idx.buckets[i] = newBucket()
	}
	return idx
}

func (idx *PrimaryIndex) bucketFor(k PrimaryKey) *bucket {
	h := fnv64a(k.HashKey())
	return idx.buckets[h%indexBucketCount]
}

func fnv64a(s string) uint64 {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211
	h := uint64(offset64)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime64
	}
	return h
}

// ErrDuplicateKey is returned by Insert when the key already exists.
var ErrDuplicateKey = fmt.Errorf("engine: duplicate primary key")

// ErrRowNotFound is returned by Update/Delete/Lookup when the key does not
// exist.
var ErrRowNotFound = fmt.Errorf("engine: row not found")

// Lookup returns the row for k with no locking on the read path.
func (idx *PrimaryIndex) Lookup(k PrimaryKey) (*Row, bool) {
	b := idx.bucketFor(k)
	slot := idx.epoch.Enter()
	defer idx.epoch.Exit(slot)
	m := *b.rows.Load()
	r, ok := m[k.HashKey()]
	if !ok || r.IsDeleted() {
		return nil, false
	}
	return r, true
}

// Insert adds row under its own primary key. Returns ErrDuplicateKey if the
// key is already present.
func (idx *PrimaryIndex) Insert(row *Row) error {
	b := idx.bucketFor(row.PrimaryKey())
	b.mu.Lock()
	defer b.mu.Unlock()
	old := *b.rows.Load()
	if _, exists := old[row.PrimaryKey().HashKey()]; exists {
		return ErrDuplicateKey
	}
	next := copyBucketMap(old)
	next[row.PrimaryKey().HashKey()] = row
	b.rows.Store(&next)
	idx.count.Add(1)
	return nil
}

// Delete removes the row for k. The row itself is marked as a tombstone
// before the bucket snapshot is swapped, so a reader that already holds
// the *Row pointer from a racing Lookup still observes the deletion.
func (idx *PrimaryIndex) Delete(k PrimaryKey) (*Row, error) {
	b := idx.bucketFor(k)
	b.mu.Lock()
	defer b.mu.Unlock()
	old := *b.rows.Load()
	row, exists := old[k.HashKey()]
	if !exists {
		return nil, ErrRowNotFound
	}
	row.MarkDeleted()
	next := copyBucketMap(old)
	delete(next, k.HashKey())
	retiredAt := idx.epoch.Advance()
	b.rows.Store(&next)
	_ = retiredAt // retained for SafeToReclaim callers (e.g. snapshot compaction)
	idx.count.Add(-1)
	return row, nil
}

// Update applies changes to the row for k, returning the new row version.
func (idx *PrimaryIndex) Update(k PrimaryKey, changes map[string]Datacell) (uint64, error) {
	b := idx.bucketFor(k)
	b.mu.Lock()
	defer b.mu.Unlock()
	m := *b.rows.Load()
	row, exists := m[k.HashKey()]
	if !exists {
		return 0, ErrRowNotFound
	}
	return row.Apply(changes), nil
}

// Count returns the number of live rows in the index.
func (idx *PrimaryIndex) Count() int64 {
	return idx.count.Load()
}

// Range calls fn for every live row in the index, in unspecified order.
// Range takes no global lock: it walks each bucket's current snapshot in
// turn, so a concurrent write to a bucket already visited or not yet
// visited is invisible to this pass, matching the snapshot semantics a
// SELECT without a WHERE clause would want to offer.
func (idx *PrimaryIndex) Range(fn func(row *Row) bool) {
	for _, b := range idx.buckets {
		slot := idx.epoch.Enter()
		m := *b.rows.Load()
		for _, row := range m {
			if row.IsDeleted() {
				continue
			}
			if !fn(row) {
				idx.epoch.Exit(slot)
				return
			}
		}
		idx.epoch.Exit(slot)
	}
}

func copyBucketMap(old map[string]*Row) map[string]*Row {
	next := make(map[string]*Row, len(old)+1)
	for k, v := range old {
		next[k] = v
	}
	return next
}

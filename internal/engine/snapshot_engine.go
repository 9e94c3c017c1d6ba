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
	"fmt"
	"time"

	dgbadger "github.com/dgraph-io/badger/v4"
	"gopkg.in/yaml.v3"

	storagebadger "github.com/skytable/skytable-sub007/internal/storage/badger"
)

// SnapshotEngine answers the deferred "how do we take a cheap point-in-time
// dump of the namespace for INSPECT GLOBAL --full / warm backups" question
// (see DESIGN.md, Open Question (a)). It is explicitly NOT on the
// durability path: the SDSS event log and batch journals are the only
// source of truth a crash recovers from. A snapshot that is lost, stale, or
// never taken changes nothing about correctness — it only changes how long
// a cold-start inspection or an external backup tool takes to catch up.
type SnapshotEngine struct {
	db  *storagebadger.DB
	gc  *storagebadger.GCRunner
	dir string
}

// OpenSnapshotEngine opens (or creates) a badger-backed snapshot store
// rooted at dir. An empty dir opens an in-memory store, useful for tests
// and for deployments that want INSPECT GLOBAL --full without paying for
// a second on-disk store.
func OpenSnapshotEngine(dir string, gcInterval time.Duration) (*SnapshotEngine, error) {
	cfg := storagebadger.InMemoryConfig()
	if dir != "" {
		cfg = storagebadger.DefaultConfig()
		cfg.Path = dir
		cfg.GCInterval = gcInterval
	}
	db, err := storagebadger.OpenDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("engine: open snapshot engine at %q: %w", dir, err)
	}

	se := &SnapshotEngine{dir: dir, db: db}
	if cfg.GCInterval > 0 {
		gc, err := storagebadger.NewGCRunner(db.Raw(), cfg.GCInterval, 0.5, nil)
		if err == nil {
			gc.Start()
			se.gc = gc
		}
	}
	return se, nil
}

// Close stops the background GC runner (if any) and closes the store.
func (s *SnapshotEngine) Close() error {
	if s.gc != nil {
		s.gc.Stop()
	}
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// snapshotKey namespaces a space's serialized snapshot under its name, so a
// single badger instance can hold one row per space without a separate
// bucket abstraction.
func snapshotKey(spaceName string) []byte {
	return append([]byte("space/"), []byte(spaceName)...)
}

// SnapshotSpace serializes space's current shape (its properties and model
// names/schemas, not row data — row data lives in the batch journal, which
// a snapshot never duplicates) and stores it keyed by space name.
func (s *SnapshotEngine) SnapshotSpace(ctx context.Context, space *Space) error {
	doc := describeSpace(space, true)
	blob, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("engine: marshal snapshot of space %q: %w", space.Name, err)
	}
	return s.db.WithTxn(ctx, func(txn *dgbadger.Txn) error {
		return txn.Set(snapshotKey(space.Name), blob)
	})
}

// LoadSpaceSnapshot returns the last snapshot taken of spaceName, or
// (nil, false) if none exists. The returned bytes are the YAML document
// SnapshotSpace wrote; a cold-start inspection tool decodes it directly
// rather than replaying the whole GNS event log just to answer a read-only
// query.
func (s *SnapshotEngine) LoadSpaceSnapshot(ctx context.Context, spaceName string) ([]byte, bool, error) {
	var out []byte
	err := s.db.WithReadTxn(ctx, func(txn *dgbadger.Txn) error {
		item, err := txn.Get(snapshotKey(spaceName))
		if err != nil {
			if err == dgbadger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		return item.Value(func(val []byte) error {
			out = append([]byte(nil), val...)
			return nil
		})
	})
	if err != nil {
		return nil, false, fmt.Errorf("engine: load snapshot of space %q: %w", spaceName, err)
	}
	return out, out != nil, nil
}

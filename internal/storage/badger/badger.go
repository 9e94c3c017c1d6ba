// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package badger hosts the backing store for the snapshot engine.
//
// Every write a client makes is durable the moment its delta is persisted
// through internal/engine's batch journal and event log — that is the
// authoritative path. This package is deliberately NOT on that path. It
// exists for the deferred "SnapshotEngine" contract (see DESIGN.md): cheap,
// periodic, point-in-time dumps of the namespace used by `inspect global
// --full` and by warm-backup tooling, where losing the last few seconds of
// snapshot history is acceptable because the SDSS logs can always rebuild
// exact state.
package badger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	dgbadger "github.com/dgraph-io/badger/v4"
)

// Config configures a badger-backed snapshot store.
type Config struct {
	// Path is the directory badger should use. Required unless InMemory.
	Path string

	// InMemory runs badger with no on-disk footprint. Used by tests and by
	// deployments that disable the snapshot engine outright.
	InMemory bool

	// SyncWrites forces an fsync on every commit. Default: true.
	SyncWrites bool

	// NumVersionsToKeep bounds how many historical versions of a snapshot
	// key badger retains before garbage collection reclaims it.
	NumVersionsToKeep int

	// GCInterval is how often the GC runner requests value-log compaction.
	// Zero disables periodic GC.
	GCInterval time.Duration

	// Logger receives badger's internal log lines. Nil disables them.
	Logger dgbadger.Logger
}

// DefaultConfig returns production defaults for a persistent snapshot store.
func DefaultConfig() Config {
	return Config{
		SyncWrites:        true,
		NumVersionsToKeep: 1,
		GCInterval:        5 * time.Minute,
	}
}

// InMemoryConfig returns defaults suited to tests and ephemeral deployments.
func InMemoryConfig() Config {
	return Config{
		InMemory:          true,
		SyncWrites:        false,
		NumVersionsToKeep: 1,
		GCInterval:        0,
	}
}

func (c Config) toBadgerOptions() (dgbadger.Options, error) {
	var opts dgbadger.Options
	if c.InMemory {
		opts = dgbadger.DefaultOptions("").WithInMemory(true)
	} else {
		if c.Path == "" {
			return dgbadger.Options{}, errors.New("badger: path is required for persistent mode")
		}
		opts = dgbadger.DefaultOptions(c.Path)
	}
	opts = opts.WithSyncWrites(c.SyncWrites)
	if c.NumVersionsToKeep > 0 {
		opts = opts.WithNumVersionsToKeep(c.NumVersionsToKeep)
	}
	if c.Logger != nil {
		opts = opts.WithLogger(c.Logger)
	} else {
		opts = opts.WithLogger(nil)
	}
	return opts, nil
}

// DB wraps a *badger.DB with context-aware transaction helpers.
type DB struct {
	mu  sync.RWMutex
	bdb *dgbadger.DB
}

// Open opens (or creates) a badger database per cfg and returns the raw
// *badger.DB, matching the low-level constructor shape used by callers that
// don't need the DB wrapper's transaction helpers.
func Open(cfg Config) (*dgbadger.DB, error) {
	opts, err := cfg.toBadgerOptions()
	if err != nil {
		return nil, err
	}
	bdb, err := dgbadger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open: %w", err)
	}
	return bdb, nil
}

// OpenDB opens a managed DB wrapper per cfg.
func OpenDB(cfg Config) (*DB, error) {
	bdb, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	return &DB{bdb: bdb}, nil
}

// OpenInMemory opens a badger database with no on-disk footprint.
func OpenInMemory() (*dgbadger.DB, error) {
	return Open(InMemoryConfig())
}

// OpenWithPath opens a persistent badger database rooted at dir.
func OpenWithPath(dir string) (*dgbadger.DB, error) {
	cfg := DefaultConfig()
	cfg.Path = dir
	return Open(cfg)
}

// Raw returns the underlying *badger.DB, for callers that need direct
// access (e.g. to drive a GCRunner) rather than the transaction helpers.
func (d *DB) Raw() *dgbadger.DB {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.bdb
}

// Close closes the underlying badger database.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.bdb == nil {
		return nil
	}
	err := d.bdb.Close()
	d.bdb = nil
	return err
}

// WithTxn runs fn inside a read-write transaction, committing on success and
// discarding on error. It aborts before starting if ctx is already done.
func (d *DB) WithTxn(ctx context.Context, fn func(txn *dgbadger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("badger: context cancelled: %w", err)
	}
	d.mu.RLock()
	bdb := d.bdb
	d.mu.RUnlock()
	if bdb == nil {
		return errors.New("badger: db is closed")
	}
	return bdb.Update(fn)
}

// WithReadTxn runs fn inside a read-only transaction.
func (d *DB) WithReadTxn(ctx context.Context, fn func(txn *dgbadger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("badger: context cancelled: %w", err)
	}
	d.mu.RLock()
	bdb := d.bdb
	d.mu.RUnlock()
	if bdb == nil {
		return errors.New("badger: db is closed")
	}
	return bdb.View(fn)
}

// GCRunner periodically requests badger value-log garbage collection.
type GCRunner struct {
	db       *dgbadger.DB
	interval time.Duration
	ratio    float64
	logFn    func(format string, args ...any)

	stop     chan struct{}
	stopped  chan struct{}
	startRun sync.Once
}

// NewGCRunner validates its arguments and returns a runner. Call Start to
// begin the periodic GC loop and Stop to end it.
func NewGCRunner(db *dgbadger.DB, interval time.Duration, ratio float64, logFn func(format string, args ...any)) (*GCRunner, error) {
	if db == nil {
		return nil, errors.New("badger: db must not be nil")
	}
	if interval <= 0 {
		return nil, errors.New("badger: interval must be positive")
	}
	if ratio <= 0 || ratio >= 1 {
		return nil, errors.New("badger: ratio must be between 0 and 1")
	}
	if logFn == nil {
		logFn = func(string, ...any) {}
	}
	return &GCRunner{
		db:       db,
		interval: interval,
		ratio:    ratio,
		logFn:    logFn,
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}, nil
}

// Start launches the GC loop in a background goroutine. Safe to call once;
// subsequent calls are no-ops.
func (r *GCRunner) Start() {
	r.startRun.Do(func() {
		go r.loop()
	})
}

func (r *GCRunner) loop() {
	defer close(r.stopped)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
		again:
			err := r.db.RunValueLogGC(r.ratio)
			if err == nil {
				goto again // more reclaimable space, keep going this cycle
			}
			if !errors.Is(err, dgbadger.ErrNoRewrite) {
				r.logFn("badger gc: %v", err)
			}
		}
	}
}

// Stop ends the GC loop and waits for it to exit.
func (r *GCRunner) Stop() {
	select {
	case <-r.stop:
	default:
		close(r.stop)
	}
	<-r.stopped
}

// TempDir creates a fresh temporary directory for badger files, analogous to
// os.MkdirTemp but returning a name rooted under the OS temp dir.
func TempDir(prefix string) (string, error) {
	return os.MkdirTemp("", prefix)
}

// CleanupDir removes a directory created by TempDir. A blank path is a
// no-op so deferred cleanups are safe to call unconditionally.
func CleanupDir(dir string) error {
	if dir == "" {
		return nil
	}
	return os.RemoveAll(dir)
}

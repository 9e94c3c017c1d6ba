// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package watch provides an advisory watcher over the server's data
// directory. It never acts on what it sees — the event log and batch
// journals are the only paths that mutate server state. Its only job is to
// notice when something outside the server touched a data file (another
// process, a misbehaving backup script, manual operator surgery) and log
// it, so an operator chasing a corruption report has a trail to start from.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileEvent describes a single out-of-band change to a watched file.
type FileEvent struct {
	// Path is the absolute path to the changed file.
	Path string

	// Op is the type of change observed.
	Op FileOp

	// Time is when the change was detected.
	Time time.Time
}

// FileOp is the kind of out-of-band mutation observed.
type FileOp int

const (
	// FileOpCreate indicates a file appeared in the data directory.
	FileOpCreate FileOp = iota

	// FileOpWrite indicates a file's contents changed.
	FileOpWrite

	// FileOpRemove indicates a file was deleted.
	FileOpRemove

	// FileOpRename indicates a file was renamed or moved.
	FileOpRename
)

// String returns the human-readable name of the operation.
func (op FileOp) String() string {
	switch op {
	case FileOpCreate:
		return "create"
	case FileOpWrite:
		return "write"
	case FileOpRemove:
		return "remove"
	case FileOpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Options configures a Watcher.
type Options struct {
	// DebounceWindow batches rapid-fire events (e.g. a journal file being
	// rewritten in several syscalls) into a single log line.
	// Default: 200ms.
	DebounceWindow time.Duration

	// IgnorePatterns excludes files whose base name ends in one of these
	// suffixes from triggering a warning. Default: [".lock", ".tmp"]; the
	// server's own event log and batch journals are not in the default
	// set, so its own appends to them are reported too.
	IgnorePatterns []string
}

// DefaultOptions returns sensible defaults for watching a server data
// directory.
func DefaultOptions() Options {
	return Options{
		DebounceWindow: 200 * time.Millisecond,
		IgnorePatterns: []string{".lock", ".tmp"},
	}
}

// Watcher observes a data directory for file changes and logs them. It
// does not tell the holding process's own writes apart from changes made
// by anything else. It never reacts by re-reading,
// repairing, or rejecting writes — it is purely advisory.
//
// Safe for concurrent use. Stop may be called from any goroutine.
type Watcher struct {
	root    string
	watcher *fsnotify.Watcher
	log     *slog.Logger
	debounce time.Duration
	ignore   []string

	events   chan FileEvent
	done     chan struct{}
	stopOnce sync.Once

	mu       sync.RWMutex
	watching bool
}

// New creates a Watcher rooted at dir. A nil opts uses DefaultOptions. A
// nil logger discards log output (the watcher becomes a no-op observer).
func New(dir string, logger *slog.Logger, opts *Options) (*Watcher, error) {
	if opts == nil {
		defaults := DefaultOptions()
		opts = &defaults
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(discardWriter{}, nil))
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		root:     dir,
		watcher:  fsw,
		log:      logger,
		debounce: opts.DebounceWindow,
		ignore:   opts.IgnorePatterns,
		events:   make(chan FileEvent, 256),
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching the data directory. Watching is non-recursive: a
// single watch on root covers the files directly inside it (event log,
// per-model batch journals); changes inside subdirectories, such as the
// snapshot store, are not reported.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.watching {
		w.mu.Unlock()
		return nil
	}
	w.watching = true
	w.mu.Unlock()

	if err := w.watcher.Add(w.root); err != nil {
		return err
	}

	go w.processEvents(ctx)
	go w.debounceLoop(ctx)

	return nil
}

// Stop ends watching. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()

		w.mu.Lock()
		w.watching = false
		w.mu.Unlock()
	})
}

// IsWatching reports whether the watcher is currently active.
func (w *Watcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.watching
}

func (w *Watcher) shouldIgnore(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range w.ignore {
		if strings.HasSuffix(base, pattern) {
			return true
		}
	}
	return false
}

func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if w.shouldIgnore(ev.Name) {
				continue
			}
			fe := FileEvent{Path: ev.Name, Time: time.Now(), Op: convertOp(ev.Op)}
			select {
			case w.events <- fe:
			default:
				// Buffer full: an operator flooding the directory is itself
				// the anomaly worth noting.
				w.log.Warn("data directory watcher buffer full, dropping event", "path", ev.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error("data directory watch error", "error", err)
		}
	}
}

func convertOp(op fsnotify.Op) FileOp {
	switch {
	case op.Has(fsnotify.Create):
		return FileOpCreate
	case op.Has(fsnotify.Remove):
		return FileOpRemove
	case op.Has(fsnotify.Rename):
		return FileOpRename
	default:
		return FileOpWrite
	}
}

func (w *Watcher) debounceLoop(ctx context.Context) {
	seen := make(map[string]FileEvent)
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		for _, fe := range seen {
			w.log.Warn("out-of-band change to data directory",
				"path", fe.Path, "op", fe.Op.String(), "detected_at", fe.Time)
		}
		seen = make(map[string]FileEvent)
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case <-w.done:
			flush()
			return
		case fe := <-w.events:
			seen[fe.Path] = fe
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case <-timerC:
			flush()
		}
	}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

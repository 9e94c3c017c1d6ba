// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcher_StartStopIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, slog.Default(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, w.Start(ctx))
	require.True(t, w.IsWatching())
	require.NoError(t, w.Start(ctx)) // second Start is a no-op

	w.Stop()
	w.Stop() // second Stop must not panic
	require.False(t, w.IsWatching())
}

func TestWatcher_IgnoresConfiguredSuffixes(t *testing.T) {
	dir := t.TempDir()
	opts := DefaultOptions()
	opts.IgnorePatterns = []string{".lock"}
	w, err := New(dir, nil, &opts)
	require.NoError(t, err)

	require.True(t, w.shouldIgnore(filepath.Join(dir, "sdss.lock")))
	require.False(t, w.shouldIgnore(filepath.Join(dir, "app.users.journal")))
}

func TestWatcher_DetectsOutOfBandWrite(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, slog.Default(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tampered.journal"), []byte("x"), 0o600))

	select {
	case fe := <-w.events:
		require.Equal(t, filepath.Join(dir, "tampered.journal"), fe.Path)
	case <-time.After(400 * time.Millisecond):
		t.Fatal("expected a file event to be observed")
	}
}

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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skytable/skytable-sub007/internal/sdss"
)

func TestBatchJournal_AppendAndReplay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "users.db-btlog")

	j, err := OpenBatchJournal(path, 1, sdss.HostRunModeDev, 1, 1, 1)
	require.NoError(t, err)

	pk1 := testPK(t, 1)
	pk2 := testPK(t, 2)
	require.NoError(t, j.Append([]BatchEvent{
		{Kind: DeltaInsert, Key: pk1, RowVersion: 1, Fields: map[string]Datacell{"n": UintDatacell(TagUint64, 10)}},
	}))
	require.NoError(t, j.Append([]BatchEvent{
		{Kind: DeltaInsert, Key: pk2, RowVersion: 1, Fields: map[string]Datacell{"n": UintDatacell(TagUint64, 20)}},
		{Kind: DeltaUpdate, Key: pk1, RowVersion: 2, Fields: map[string]Datacell{"n": UintDatacell(TagUint64, 11)}},
	}))
	require.NoError(t, j.Close())

	events, err := ReplayBatchJournal(path)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, DeltaInsert, events[0].Kind)
	assert.Equal(t, DeltaInsert, events[1].Kind)
	assert.Equal(t, DeltaUpdate, events[2].Kind)
	assert.True(t, events[2].Key.Equal(pk1))
}

func TestBatchJournal_ReplayMissingFileReturnsEmpty(t *testing.T) {
	events, err := ReplayBatchJournal(filepath.Join(t.TempDir(), "absent.db-btlog"))
	require.NoError(t, err)
	assert.Nil(t, events)
}

func TestBatchJournal_TruncatedTailBatchDiscarded(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "users.db-btlog")

	j, err := OpenBatchJournal(path, 1, sdss.HostRunModeDev, 1, 1, 1)
	require.NoError(t, err)
	pk := testPK(t, 1)
	require.NoError(t, j.Append([]BatchEvent{
		{Kind: DeltaInsert, Key: pk, RowVersion: 1, Fields: map[string]Datacell{"n": UintDatacell(TagUint64, 1)}},
	}))
	require.NoError(t, j.res.File.Sync())

	info, err := os.Stat(path)
	require.NoError(t, err)
	goodSize := info.Size()

	// Simulate a crash mid-write of a second batch: append a dangling
	// event record with no END_OF_BATCH/trailer.
	f, err := os.OpenFile(path, os.O_RDWR|os.O_APPEND, 0o644)
	require.NoError(t, err)
	_, err = f.Write([]byte{markerActualBatchEvent})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	events, err := ReplayBatchJournal(path)
	require.NoError(t, err)
	require.Len(t, events, 1)

	info, err = os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, goodSize, info.Size(), "file must be truncated back to the last good batch boundary")
}

func TestBatchJournal_ReopenEmitsMarkerOnceThenReplays(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "users.db-btlog")

	j, err := OpenBatchJournal(path, 1, sdss.HostRunModeDev, 1, 1, 1)
	require.NoError(t, err)
	pk1 := testPK(t, 1)
	require.NoError(t, j.Append([]BatchEvent{
		{Kind: DeltaInsert, Key: pk1, RowVersion: 1, Fields: map[string]Datacell{"n": UintDatacell(TagUint64, 1)}},
	}))
	require.NoError(t, j.Close())

	j2, err := OpenBatchJournal(path, 1, sdss.HostRunModeDev, 2, 1, 1)
	require.NoError(t, err)
	assert.True(t, j2.needsReopenMarker, "reopening an existing file must still owe a BATCH_REOPEN marker")

	pk2 := testPK(t, 2)
	require.NoError(t, j2.Append([]BatchEvent{
		{Kind: DeltaInsert, Key: pk2, RowVersion: 1, Fields: map[string]Datacell{"n": UintDatacell(TagUint64, 2)}},
	}))
	assert.False(t, j2.needsReopenMarker, "the marker is owed only once per reopen")

	pk3 := testPK(t, 3)
	require.NoError(t, j2.Append([]BatchEvent{
		{Kind: DeltaInsert, Key: pk3, RowVersion: 1, Fields: map[string]Datacell{"n": UintDatacell(TagUint64, 3)}},
	}))
	require.NoError(t, j2.Close())

	events, err := ReplayBatchJournal(path)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.True(t, events[0].Key.Equal(pk1))
	assert.True(t, events[1].Key.Equal(pk2))
	assert.True(t, events[2].Key.Equal(pk3))
}

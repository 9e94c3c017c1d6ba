// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package sdss

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenOrCreate_CreatesThenReopens(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gns.db-tlog")

	res, err := OpenOrCreate(path, func() Header {
		return NewHeader(FileClassEventLog, FileSpecifierGNSLog, 1, HostRunModeDev, 1, 100, 200)
	})
	require.NoError(t, err)
	assert.True(t, res.Created)
	require.NoError(t, res.File.Close())

	res2, err := OpenOrCreate(path, func() Header {
		t.Fatal("newHeader must not be called when the file already exists")
		return Header{}
	})
	require.NoError(t, err)
	assert.False(t, res2.Created)
	assert.Equal(t, uint64(1), res2.Header.StartupCounter)
	require.NoError(t, res2.File.Close())
}

func TestTrackedWriter_StageThenCommit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.db-btlog")
	res, err := OpenOrCreate(path, func() Header {
		return NewHeader(FileClassBatch, FileSpecifierModelData, 1, HostRunModeDev, 0, 0, 0)
	})
	require.NoError(t, err)
	defer res.File.Close()

	w, err := NewTrackedWriter(res.File)
	require.NoError(t, err)
	initial := w.BytesWritten()

	w.Stage([]byte("event-one"))
	// Nothing flushed yet.
	assert.Equal(t, initial, w.BytesWritten())
	assert.Equal(t, uint64(0), w.Checksum())

	require.NoError(t, w.Commit())
	assert.Equal(t, initial+9, w.BytesWritten())
	assert.Equal(t, Checksum([]byte("event-one")), w.Checksum())
}

func TestTrackedWriter_DiscardDropsStagedBytes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.db-btlog")
	res, err := OpenOrCreate(path, func() Header {
		return NewHeader(FileClassBatch, FileSpecifierModelData, 1, HostRunModeDev, 0, 0, 0)
	})
	require.NoError(t, err)
	defer res.File.Close()

	w, err := NewTrackedWriter(res.File)
	require.NoError(t, err)
	w.Stage([]byte("will not persist"))
	w.Discard()
	require.NoError(t, w.Commit())
	assert.Equal(t, uint64(0), w.Checksum())
}

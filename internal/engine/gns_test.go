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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skytable/skytable-sub007/internal/sdss"
)

func newTestGNS(t *testing.T) *GlobalNS {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gns.db-tlog")
	l, err := OpenEventLog(path, sdss.HostRunModeDev, 1, 1, 1)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return NewGlobalNS(l, "root-hash")
}

func TestGlobalNS_CreateAndDropSpace(t *testing.T) {
	g := newTestGNS(t)
	space, err := NewSpace("orders", nil)
	require.NoError(t, err)
	require.NoError(t, g.CreateSpace(space))

	got, ok := g.Space("orders")
	require.True(t, ok)
	assert.Equal(t, space.UUID.String(), got.UUID.String())

	require.NoError(t, g.DropSpace("orders"))
	_, ok = g.Space("orders")
	assert.False(t, ok)
}

func TestGlobalNS_CreateSpaceDuplicateFails(t *testing.T) {
	g := newTestGNS(t)
	space, err := NewSpace("orders", nil)
	require.NoError(t, err)
	require.NoError(t, g.CreateSpace(space))

	dup, err := NewSpace("orders", nil)
	require.NoError(t, err)
	assert.ErrorIs(t, g.CreateSpace(dup), ErrSpaceAlreadyExists)
}

func TestGlobalNS_DropSpaceMissingFails(t *testing.T) {
	g := newTestGNS(t)
	assert.ErrorIs(t, g.DropSpace("missing"), ErrSpaceNotFound)
}

func TestGlobalNS_AlterSpaceSetsProperty(t *testing.T) {
	g := newTestGNS(t)
	space, err := NewSpace("orders", nil)
	require.NoError(t, err)
	require.NoError(t, g.CreateSpace(space))

	require.NoError(t, g.AlterSpace("orders", "retention", "30d"))
	assert.Equal(t, "30d", space.Properties()["retention"])
}

func TestGlobalNS_RootUserSeeded(t *testing.T) {
	g := newTestGNS(t)
	assert.True(t, g.SystemDatabase().VerifyPasswordHash(RootUsername, "root-hash"))
}

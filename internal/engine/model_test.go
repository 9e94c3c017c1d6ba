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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJournal struct {
	closed bool
	events []BatchEvent
}

func (f *fakeJournal) Append(events []BatchEvent) error {
	f.events = append(f.events, events...)
	return nil
}

func (f *fakeJournal) Close() error {
	f.closed = true
	return nil
}

func testSchema(t *testing.T) Schema {
	t.Helper()
	s, err := NewSchema("id", []Field{
		{Name: "id", Tag: TagUint64},
		{Name: "name", Tag: TagString, Nullable: true},
	})
	require.NoError(t, err)
	return s
}

func TestModelData_RowLifecycle(t *testing.T) {
	j := &fakeJournal{}
	m, err := NewModelData("users", testSchema(t), j, 0)
	require.NoError(t, err)

	pk := testPK(t, 1)
	row := NewRow(pk, map[string]Datacell{"id": UintDatacell(TagUint64, 1)})
	require.NoError(t, m.Index().Insert(row))
	assert.EqualValues(t, 1, m.RowCount())

	require.NoError(t, m.Close())
	assert.True(t, j.closed)
}

func TestModelData_SetSchemaReplacesUnderLock(t *testing.T) {
	m, err := NewModelData("users", testSchema(t), &fakeJournal{}, 0)
	require.NoError(t, err)

	updated, err := m.Schema().WithField(Field{Name: "email", Tag: TagString, Nullable: true})
	require.NoError(t, err)
	m.SetSchema(updated)

	_, ok := m.Schema().Field("email")
	assert.True(t, ok)
}

func TestNewModelData_RejectsInvalidName(t *testing.T) {
	_, err := NewModelData("1bad", testSchema(t), &fakeJournal{}, 0)
	assert.Error(t, err)
}

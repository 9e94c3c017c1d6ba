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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeader_RoundTrip(t *testing.T) {
	h := NewHeader(FileClassBatch, FileSpecifierModelData, 1, HostRunModeProd, 7, 0x0100, 0x0001)
	buf := h.Encode()

	got, err := DecodeHeader(buf)
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestHeader_VerifyHeaderVersionCheckedFirst(t *testing.T) {
	h := NewHeader(FileClassBatch, FileSpecifierModelData, 1, HostRunModeProd, 0, 0, 0)
	buf := h.Encode()
	// Corrupt the header-version field only; every other field is still
	// well-formed, but decode must fail on header-version before it even
	// looks at the rest.
	buf[4] = 0xFF
	_, err := DecodeHeader(buf)
	assert.ErrorIs(t, err, ErrHeaderVersionMismatch)
}

func TestHeader_VerifyReportsSpecificMismatch(t *testing.T) {
	h := NewHeader(FileClassEventLog, FileSpecifierGNSLog, 1, HostRunModeDev, 0, 0, 0)

	t.Run("class mismatch", func(t *testing.T) {
		err := h.Verify(Expect{FileClass: FileClassBatch, FileSpecifier: FileSpecifierGNSLog, SpecifierVersion: 1, HostRunMode: HostRunModeDev})
		assert.ErrorIs(t, err, ErrFileClassMismatch)
	})
	t.Run("specifier mismatch", func(t *testing.T) {
		err := h.Verify(Expect{FileClass: FileClassEventLog, FileSpecifier: FileSpecifierModelData, SpecifierVersion: 1, HostRunMode: HostRunModeDev})
		assert.ErrorIs(t, err, ErrFileSpecifierMismatch)
	})
	t.Run("specifier version mismatch", func(t *testing.T) {
		err := h.Verify(Expect{FileClass: FileClassEventLog, FileSpecifier: FileSpecifierGNSLog, SpecifierVersion: 2, HostRunMode: HostRunModeDev})
		assert.ErrorIs(t, err, ErrSpecifierVersionMismatch)
	})
	t.Run("run mode mismatch", func(t *testing.T) {
		err := h.Verify(Expect{FileClass: FileClassEventLog, FileSpecifier: FileSpecifierGNSLog, SpecifierVersion: 1, HostRunMode: HostRunModeProd})
		assert.ErrorIs(t, err, ErrHostRunModeMismatch)
	})
	t.Run("matches", func(t *testing.T) {
		err := h.Verify(Expect{FileClass: FileClassEventLog, FileSpecifier: FileSpecifierGNSLog, SpecifierVersion: 1, HostRunMode: HostRunModeDev})
		assert.NoError(t, err)
	})
}

func TestHeader_BadMagic(t *testing.T) {
	h := NewHeader(FileClassBatch, FileSpecifierModelData, 1, HostRunModeProd, 0, 0, 0)
	buf := h.Encode()
	buf[0] = 0x00
	_, err := DecodeHeader(buf)
	assert.ErrorIs(t, err, ErrMagicMismatch)
}

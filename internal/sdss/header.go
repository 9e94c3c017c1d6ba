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
	"encoding/binary"
	"errors"
	"fmt"
)

// HeaderSize is the fixed, 8-byte-aligned size of the SDSS static header.
const HeaderSize = 64

// Magic identifies a file as belonging to this storage substrate.
const Magic uint32 = 0x53445353 // "SDSS" little-endian-friendly ASCII

// HeaderVersion is the static header layout version. Unlike every other
// field, this one is never expected to change across on-disk format
// revisions — it is the one thing a decoder must be able to read at any
// future version of the format, so it is checked before anything else.
const HeaderVersion uint32 = 1

// FileClass distinguishes an append-only DDL/system event log from a
// per-model batch data journal.
type FileClass uint8

const (
	// FileClassEventLog marks the GNS journal.
	FileClassEventLog FileClass = 1
	// FileClassBatch marks a per-model batch journal.
	FileClassBatch FileClass = 2
)

func (c FileClass) String() string {
	switch c {
	case FileClassEventLog:
		return "event-log"
	case FileClassBatch:
		return "batch"
	default:
		return fmt.Sprintf("file-class(%d)", uint8(c))
	}
}

// FileSpecifier further narrows FileClass to a concrete file role.
type FileSpecifier uint8

const (
	// FileSpecifierGNSLog is the single global-namespace event log.
	FileSpecifierGNSLog FileSpecifier = 1
	// FileSpecifierModelData is a per-model batch journal.
	FileSpecifierModelData FileSpecifier = 2
)

func (s FileSpecifier) String() string {
	switch s {
	case FileSpecifierGNSLog:
		return "global-ns-log"
	case FileSpecifierModelData:
		return "model-data"
	default:
		return fmt.Sprintf("file-specifier(%d)", uint8(s))
	}
}

// HostRunMode records whether the process that last wrote this file was
// running in development or production mode. Dev-mode files and prod-mode
// files are never silently cross-opened.
type HostRunMode uint8

const (
	// HostRunModeDev marks a development-mode host.
	HostRunModeDev HostRunMode = 1
	// HostRunModeProd marks a production-mode host.
	HostRunModeProd HostRunMode = 2
)

func (m HostRunMode) String() string {
	switch m {
	case HostRunModeDev:
		return "dev"
	case HostRunModeProd:
		return "prod"
	default:
		return fmt.Sprintf("run-mode(%d)", uint8(m))
	}
}

// Decode errors. HeaderVersion is always checked first and independent of
// every other field, matching StaticRecord::verify in the source this
// format is derived from: a future format revision must still be able to
// tell a reader "this header is too new for you" before attempting to
// interpret anything else in the block.
var (
	ErrHeaderVersionMismatch    = errors.New("sdss: header version mismatch")
	ErrMagicMismatch            = errors.New("sdss: bad magic")
	ErrFileClassMismatch        = errors.New("sdss: file class mismatch")
	ErrFileSpecifierMismatch    = errors.New("sdss: file specifier mismatch")
	ErrSpecifierVersionMismatch = errors.New("sdss: specifier version mismatch")
	ErrHostRunModeMismatch      = errors.New("sdss: host run mode mismatch")
)

// Header is the 64-byte static SDSS header present at the start of every
// event log and batch journal file.
//
// Layout (little endian):
//
//	0x00  4  Magic
//	0x04  4  HeaderVersion
//	0x08  1  FileClass
//	0x09  1  FileSpecifier
//	0x0A  2  SpecifierVersion
//	0x0C  4  reserved
//	0x10  1  HostRunMode
//	0x11  3  reserved
//	0x14  4  SettingVersion
//	0x18  8  StartupCounter
//	0x20  8  DriverVersion
//	0x28  8  ServerVersion
//	0x30  16 reserved/padding
type Header struct {
	HeaderVersion    uint32
	FileClass        FileClass
	FileSpecifier    FileSpecifier
	SpecifierVersion uint16
	HostRunMode      HostRunMode
	SettingVersion   uint32
	StartupCounter   uint64
	DriverVersion    uint64
	ServerVersion    uint64
}

// Encode serializes h into a 64-byte buffer.
func (h Header) Encode() [HeaderSize]byte {
	var buf [HeaderSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.HeaderVersion)
	buf[8] = byte(h.FileClass)
	buf[9] = byte(h.FileSpecifier)
	binary.LittleEndian.PutUint16(buf[10:12], h.SpecifierVersion)
	buf[16] = byte(h.HostRunMode)
	binary.LittleEndian.PutUint32(buf[20:24], h.SettingVersion)
	binary.LittleEndian.PutUint64(buf[24:32], h.StartupCounter)
	binary.LittleEndian.PutUint64(buf[32:40], h.DriverVersion)
	binary.LittleEndian.PutUint64(buf[40:48], h.ServerVersion)
	return buf
}

// DecodeHeader parses a 64-byte buffer without verifying it against an
// expected class/specifier/version — callers that need cross-checking
// should follow up with Verify.
func DecodeHeader(buf [HeaderSize]byte) (Header, error) {
	hv := binary.LittleEndian.Uint32(buf[4:8])
	if hv != HeaderVersion {
		return Header{}, ErrHeaderVersionMismatch
	}
	magic := binary.LittleEndian.Uint32(buf[0:4])
	if magic != Magic {
		return Header{}, ErrMagicMismatch
	}
	h := Header{
		HeaderVersion:    hv,
		FileClass:        FileClass(buf[8]),
		FileSpecifier:    FileSpecifier(buf[9]),
		SpecifierVersion: binary.LittleEndian.Uint16(buf[10:12]),
		HostRunMode:      HostRunMode(buf[16]),
		SettingVersion:   binary.LittleEndian.Uint32(buf[20:24]),
		StartupCounter:   binary.LittleEndian.Uint64(buf[24:32]),
		DriverVersion:    binary.LittleEndian.Uint64(buf[32:40]),
		ServerVersion:    binary.LittleEndian.Uint64(buf[40:48]),
	}
	return h, nil
}

// Expect describes the domain-specific fields a caller wants DecodeHeader's
// result cross-checked against.
type Expect struct {
	FileClass        FileClass
	FileSpecifier    FileSpecifier
	SpecifierVersion uint16
	HostRunMode      HostRunMode
}

// Verify checks h against exp, field by field, so tooling can triage which
// mismatch actually occurred instead of a single opaque "bad header".
func (h Header) Verify(exp Expect) error {
	if h.FileClass != exp.FileClass {
		return fmt.Errorf("%w: have %s want %s", ErrFileClassMismatch, h.FileClass, exp.FileClass)
	}
	if h.FileSpecifier != exp.FileSpecifier {
		return fmt.Errorf("%w: have %s want %s", ErrFileSpecifierMismatch, h.FileSpecifier, exp.FileSpecifier)
	}
	if h.SpecifierVersion != exp.SpecifierVersion {
		return fmt.Errorf("%w: have %d want %d", ErrSpecifierVersionMismatch, h.SpecifierVersion, exp.SpecifierVersion)
	}
	if h.HostRunMode != exp.HostRunMode {
		return fmt.Errorf("%w: have %s want %s", ErrHostRunModeMismatch, h.HostRunMode, exp.HostRunMode)
	}
	return nil
}

// NewHeader builds a header for a freshly created file.
func NewHeader(class FileClass, specifier FileSpecifier, specifierVersion uint16, runMode HostRunMode, startupCounter, driverVersion, serverVersion uint64) Header {
	return Header{
		HeaderVersion:    HeaderVersion,
		FileClass:        class,
		FileSpecifier:    specifier,
		SpecifierVersion: specifierVersion,
		HostRunMode:      runMode,
		SettingVersion:   1,
		StartupCounter:   startupCounter,
		DriverVersion:    driverVersion,
		ServerVersion:    serverVersion,
	}
}

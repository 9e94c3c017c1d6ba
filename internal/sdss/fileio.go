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
	"bytes"
	"fmt"
	"os"
)

// OpenResult is the outcome of OpenOrCreate: either a freshly created file
// (Created == true, Header is what was just written) or an existing file
// whose header has been parsed but not yet cross-checked against whatever
// the caller expects (Created == false — call Header.Verify).
type OpenResult struct {
	File    *os.File
	Header  Header
	Created bool
}

// OpenOrCreate opens path for read-write use. If the file does not exist,
// it is created and newHeader() is written as its static header. If it
// exists, its header is decoded (magic + header-version checked, nothing
// domain-specific) and returned for the caller to verify.
func OpenOrCreate(path string, newHeader func() Header) (*OpenResult, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err == nil {
		var buf [HeaderSize]byte
		if _, err := f.ReadAt(buf[:], 0); err != nil {
			f.Close()
			return nil, fmt.Errorf("sdss: read header of %s: %w", path, err)
		}
		h, err := DecodeHeader(buf)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("sdss: decode header of %s: %w", path, err)
		}
		if _, err := f.Seek(0, os.SEEK_END); err != nil {
			f.Close()
			return nil, err
		}
		return &OpenResult{File: f, Header: h, Created: false}, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("sdss: open %s: %w", path, err)
	}
	f, err = os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("sdss: create %s: %w", path, err)
	}
	h := newHeader()
	enc := h.Encode()
	if _, err := f.WriteAt(enc[:], 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("sdss: write header of %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return nil, fmt.Errorf("sdss: fsync header of %s: %w", path, err)
	}
	if _, err := f.Seek(0, os.SEEK_END); err != nil {
		f.Close()
		return nil, fmt.Errorf("sdss: seek past header of %s: %w", path, err)
	}
	return &OpenResult{File: f, Header: h, Created: true}, nil
}

// TrackedWriter layers length-delimited staging, a running CRC-64/XZ
// checksum, and fsync-on-commit over an *os.File. Frames are staged into an
// in-memory buffer with Stage; nothing reaches disk (and the checksum is
// not extended) until Commit runs. A crash between Stage and Commit loses
// the staged tail cleanly — there is no partially-digested, partially
// flushed state a reader could observe.
type TrackedWriter struct {
	f       *os.File
	staged  bytes.Buffer
	digest  *CRC64
	written uint64
}

// NewTrackedWriter wraps f. The file's existing length (if any) becomes the
// writer's initial byte count; the checksum starts empty regardless — it is
// the caller's job to re-derive the running checksum during recovery if it
// needs to continue validating a file that already has content.
func NewTrackedWriter(f *os.File) (*TrackedWriter, error) {
	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("sdss: stat tracked file: %w", err)
	}
	return &TrackedWriter{
		f:       f,
		digest:  NewCRC64(),
		written: uint64(fi.Size()),
	}, nil
}

// Stage appends b to the internal buffer without writing it to disk yet.
func (w *TrackedWriter) Stage(b []byte) {
	w.staged.Write(b)
}

// Commit flushes everything staged since the last Commit to disk, extends
// the running checksum over exactly those bytes, and fsyncs. On success the
// staging buffer is empty and BytesWritten/Checksum reflect the flush.
func (w *TrackedWriter) Commit() error {
	if w.staged.Len() == 0 {
		return nil
	}
	b := w.staged.Bytes()
	if _, err := w.f.Write(b); err != nil {
		return fmt.Errorf("sdss: write: %w", err)
	}
	if err := w.f.Sync(); err != nil {
		return fmt.Errorf("sdss: fsync: %w", err)
	}
	w.digest.Update(b)
	w.written += uint64(len(b))
	w.staged.Reset()
	return nil
}

// Discard drops whatever is staged but not yet committed, without touching
// the file or the checksum.
func (w *TrackedWriter) Discard() {
	w.staged.Reset()
}

// Checksum returns the running CRC-64/XZ over every byte Commit has flushed
// so far.
func (w *TrackedWriter) Checksum() uint64 {
	return w.digest.Sum()
}

// BytesWritten returns the total number of bytes Commit has flushed,
// including the file's length at the time the writer was created.
func (w *TrackedWriter) BytesWritten() uint64 {
	return w.written
}

// File exposes the underlying file for operations the writer doesn't wrap
// (e.g. a caller appending a single unchecksummed marker byte on close).
func (w *TrackedWriter) File() *os.File {
	return w.f
}

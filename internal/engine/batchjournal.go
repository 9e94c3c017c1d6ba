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
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/skytable/skytable-sub007/internal/sdss"
)

// Batch journal marker bytes. These sit outside the Datacell discriminant
// space (which tops out at DiscList = 0x0E) so a scanner can always tell a
// structural marker from the start of an event's primary-key tag byte.
const (
	markerBatchReopen      byte = 0xFB
	markerBatchClosed      byte = 0xFC
	markerEndOfBatch       byte = 0xFD
	markerActualBatchEvent byte = 0xFE
	markerRecoveryEvent    byte = 0xFF
)

// BatchEvent is one row-change record in a model's batch journal.
type BatchEvent struct {
	Kind       DeltaKind
	Key        PrimaryKey
	RowVersion uint64
	Fields     map[string]Datacell
}

func encodeBatchEvent(buf []byte, ev BatchEvent) []byte {
	buf = append(buf, markerActualBatchEvent)
	buf = append(buf, byte(ev.Kind))
	buf = EncodePrimaryKey(buf, ev.Key)
	var verBuf [8]byte
	binary.LittleEndian.PutUint64(verBuf[:], ev.RowVersion)
	buf = append(buf, verBuf[:]...)
	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], uint32(len(ev.Fields)))
	buf = append(buf, countBuf[:]...)
	for name, val := range ev.Fields {
		buf = appendLenPrefixed(buf, []byte(name))
		buf = EncodeDatacell(buf, val)
	}
	return buf
}

func decodeBatchEvent(r byteReader) (BatchEvent, error) {
	kindByte, err := r.ReadByte()
	if err != nil {
		return BatchEvent{}, err
	}
	key, err := DecodePrimaryKey(r)
	if err != nil {
		return BatchEvent{}, err
	}
	verBuf, err := readExact(r, 8)
	if err != nil {
		return BatchEvent{}, err
	}
	countBuf, err := readExact(r, 4)
	if err != nil {
		return BatchEvent{}, err
	}
	n := binary.LittleEndian.Uint32(countBuf)
	fields := make(map[string]Datacell, n)
	for i := uint32(0); i < n; i++ {
		nameBuf, err := readLenPrefixed(r)
		if err != nil {
			return BatchEvent{}, err
		}
		val, err := DecodeDatacell(r)
		if err != nil {
			return BatchEvent{}, err
		}
		fields[string(nameBuf)] = val
	}
	return BatchEvent{
		Kind:       DeltaKind(kindByte),
		Key:        key,
		RowVersion: binary.LittleEndian.Uint64(verBuf),
		Fields:     fields,
	}, nil
}

// BatchJournal is the per-model append-only row-change log described by
// the storage substrate: every Append call writes one self-contained
// batch of ACTUAL_BATCH_EVENT records closed by END_OF_BATCH and trailed
// by an event count and a checksum, so a reader can always tell whether
// the last batch in the file was fully written. The trailer checksum
// covers only that batch's own events and END_OF_BATCH marker; it does
// not run across earlier batches. Only the first batch appended after
// reopening an existing file carries a BATCH_REOPEN prefix.
type BatchJournal struct {
	res    *sdss.OpenResult
	writer *sdss.TrackedWriter

	// needsReopenMarker is true only when this journal was opened against a
	// file that already existed (a continuation, not a fresh file), and
	// only until the first Append after open writes the marker. It is
	// never set for a freshly created file: there is nothing to mark as
	// "reopened".
	needsReopenMarker bool
}

// OpenBatchJournal opens or creates the batch journal at path for a model,
// replaying no state itself — callers get the existing events back from
// ReplayBatchJournal before calling this, since Open only prepares the
// file for further appends.
func OpenBatchJournal(path string, specifierVersion uint16, runMode sdss.HostRunMode, startupCounter, driverVersion, serverVersion uint64) (*BatchJournal, error) {
	res, err := sdss.OpenOrCreate(path, func() sdss.Header {
		return sdss.NewHeader(sdss.FileClassBatch, sdss.FileSpecifierModelData, specifierVersion, runMode, startupCounter, driverVersion, serverVersion)
	})
	if err != nil {
		return nil, fmt.Errorf("engine: open batch journal %s: %w", path, err)
	}
	w, err := sdss.NewTrackedWriter(res.File)
	if err != nil {
		res.File.Close()
		return nil, fmt.Errorf("engine: attach tracked writer to %s: %w", path, err)
	}
	return &BatchJournal{res: res, writer: w, needsReopenMarker: !res.Created}, nil
}

// Append writes one batch containing events as a single durable unit: all
// of events or none of them become visible to a subsequent replay.
// BATCH_REOPEN is written once, ahead of the first batch appended after
// OpenBatchJournal found an existing file to continue — never on a freshly
// created file, and never again for later batches in the same session.
func (j *BatchJournal) Append(events []BatchEvent) error {
	if len(events) == 0 {
		return nil
	}
	var body []byte
	for _, ev := range events {
		body = encodeBatchEvent(body, ev)
	}
	body = append(body, markerEndOfBatch)

	checksum := sdss.Checksum(body)
	var trailer [12]byte
	binary.LittleEndian.PutUint32(trailer[0:4], uint32(len(events)))
	binary.LittleEndian.PutUint64(trailer[4:12], checksum)
	body = append(body, trailer[:]...)

	if j.needsReopenMarker {
		body = append([]byte{markerBatchReopen}, body...)
		j.needsReopenMarker = false
	}

	j.writer.Stage(body)
	if err := j.writer.Commit(); err != nil {
		return fmt.Errorf("engine: commit batch: %w", err)
	}
	return nil
}

// Close marks the journal as cleanly closed and releases the file handle.
func (j *BatchJournal) Close() error {
	j.writer.Stage([]byte{markerBatchClosed})
	if err := j.writer.Commit(); err != nil {
		j.res.File.Close()
		return fmt.Errorf("engine: commit close marker: %w", err)
	}
	return j.res.File.Close()
}

// ReplayBatchJournal reads every fully-written batch from path, in file
// order, folding later events over earlier ones at the same key (last
// write wins) is the caller's job — this function only returns the flat
// event sequence. BATCH_REOPEN, when present, is a one-byte prefix on the
// first batch of a continued session and is not part of that batch's
// checksum. A batch whose trailer is missing, truncated, or whose
// checksum does not match its body is discarded, and the file is
// truncated to the offset immediately before that batch (before its
// BATCH_REOPEN prefix, if any) so the next Append starts clean.
func ReplayBatchJournal(path string) ([]BatchEvent, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("engine: open batch journal %s for replay: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Seek(int64(sdss.HeaderSize), io.SeekStart); err != nil {
		return nil, fmt.Errorf("engine: seek past header in %s: %w", path, err)
	}

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("engine: read %s: %w", path, err)
	}

	var events []BatchEvent
	offset := 0
	lastGood := int64(sdss.HeaderSize)

	for offset < len(raw) {
		switch raw[offset] {
		case markerBatchClosed:
			offset++
			lastGood = int64(sdss.HeaderSize) + int64(offset)
			continue
		case markerBatchReopen, markerActualBatchEvent:
			checksumStart := offset
			cursor := offset
			if raw[cursor] == markerBatchReopen {
				cursor++
				checksumStart = cursor
			}
			var batchEvents []BatchEvent
			ok := true
			for {
				if cursor >= len(raw) {
					ok = false
					break
				}
				if raw[cursor] == markerEndOfBatch {
					cursor++
					break
				}
				if raw[cursor] != markerActualBatchEvent {
					ok = false
					break
				}
				cursor++
				r := bytes.NewReader(raw[cursor:])
				ev, derr := decodeBatchEvent(r)
				if derr != nil {
					ok = false
					break
				}
				cursor += len(raw[cursor:]) - r.Len()
				batchEvents = append(batchEvents, ev)
			}
			if ok && cursor+12 <= len(raw) {
				count := binary.LittleEndian.Uint32(raw[cursor : cursor+4])
				checksum := binary.LittleEndian.Uint64(raw[cursor+4 : cursor+12])
				body := raw[checksumStart:cursor]
				if uint32(len(batchEvents)) == count && sdss.Checksum(body) == checksum {
					events = append(events, batchEvents...)
					cursor += 12
					offset = cursor
					lastGood = int64(sdss.HeaderSize) + int64(offset)
					continue
				}
			}
			// Truncated or corrupt tail batch: stop replaying and discard
			// everything from this batch onward, including its BATCH_REOPEN
			// prefix if it had one.
			offset = len(raw)
		default:
			// Unrecognized byte where a marker was expected; treat the
			// remainder as a torn write and stop.
			offset = len(raw)
		}
	}

	if lastGood < int64(sdss.HeaderSize)+int64(len(raw)) {
		if err := f.Truncate(lastGood); err != nil {
			return events, fmt.Errorf("engine: truncate %s to last good batch: %w", path, err)
		}
	}
	return events, nil
}

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

// EventOpcode tags a GNS journal record with the DDL/DCL operation it
// replays.
type EventOpcode byte

const (
	OpCreateSpace EventOpcode = iota + 1
	OpAlterSpace
	OpDropSpace
	OpCreateModel
	OpAlterModel
	OpDropModel
	OpCreateUser
	OpAlterUser
	OpDropUser
)

func (o EventOpcode) String() string {
	switch o {
	case OpCreateSpace:
		return "create-space"
	case OpAlterSpace:
		return "alter-space"
	case OpDropSpace:
		return "drop-space"
	case OpCreateModel:
		return "create-model"
	case OpAlterModel:
		return "alter-model"
	case OpDropModel:
		return "drop-model"
	case OpCreateUser:
		return "create-user"
	case OpAlterUser:
		return "alter-user"
	case OpDropUser:
		return "drop-user"
	default:
		return fmt.Sprintf("opcode(%d)", byte(o))
	}
}

// GNSEvent is one length-prefixed, opcode-tagged, checksummed record in the
// global-namespace event log.
type GNSEvent struct {
	Opcode  EventOpcode
	Payload []byte
}

func encodeGNSEvent(buf []byte, ev GNSEvent) []byte {
	start := len(buf)
	buf = append(buf, byte(ev.Opcode))
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(ev.Payload)))
	buf = append(buf, lenBuf[:]...)
	buf = append(buf, ev.Payload...)
	checksum := sdss.Checksum(buf[start:])
	var sumBuf [8]byte
	binary.LittleEndian.PutUint64(sumBuf[:], checksum)
	return append(buf, sumBuf[:]...)
}

// -----------------------------------------------------------------------------
// Semantic payload codecs, shared between the GNS journal writer and the
// executor. A Schema is encoded inline wherever a model definition needs
// one (CreateModel, AlterModel) rather than routed through the generic
// Datacell codec, since a schema describes types rather than holding a
// value of one.
// -----------------------------------------------------------------------------

func encodeSchema(buf []byte, s Schema) []byte {
	buf = appendLenPrefixed(buf, []byte(s.PrimaryKeyField))
	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], uint32(len(s.Fields)))
	buf = append(buf, countBuf[:]...)
	for _, f := range s.Fields {
		buf = appendLenPrefixed(buf, []byte(f.Name))
		buf = append(buf, f.Tag.Discriminant())
		if f.Tag.Class == TagClassList && f.Tag.Elem != nil {
			buf = append(buf, f.Tag.Elem.Discriminant())
		} else {
			buf = append(buf, 0)
		}
		if f.Nullable {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	}
	return buf
}

func decodeSchema(r byteReader) (Schema, error) {
	pkNameBuf, err := readLenPrefixed(r)
	if err != nil {
		return Schema{}, err
	}
	countBuf, err := readExact(r, 4)
	if err != nil {
		return Schema{}, err
	}
	n := binary.LittleEndian.Uint32(countBuf)
	fields := make([]Field, 0, n)
	for i := uint32(0); i < n; i++ {
		nameBuf, err := readLenPrefixed(r)
		if err != nil {
			return Schema{}, err
		}
		discBuf, err := readExact(r, 1)
		if err != nil {
			return Schema{}, err
		}
		elemDiscBuf, err := readExact(r, 1)
		if err != nil {
			return Schema{}, err
		}
		nullBuf, err := readExact(r, 1)
		if err != nil {
			return Schema{}, err
		}
		tag, ok := TagFromDiscriminant(discBuf[0])
		if !ok {
			return Schema{}, fmt.Errorf("engine: unknown field tag discriminant 0x%02x", discBuf[0])
		}
		if tag.Class == TagClassList && elemDiscBuf[0] != 0 {
			elemTag, ok := TagFromDiscriminant(elemDiscBuf[0])
			if !ok {
				return Schema{}, fmt.Errorf("engine: unknown list element discriminant 0x%02x", elemDiscBuf[0])
			}
			tag = TagList(elemTag)
		}
		fields = append(fields, Field{Name: string(nameBuf), Tag: tag, Nullable: nullBuf[0] != 0})
	}
	return NewSchema(string(pkNameBuf), fields)
}

// EncodeCreateSpaceEvent builds the event for CREATE SPACE.
func EncodeCreateSpaceEvent(name string, id UUID) GNSEvent {
	var buf []byte
	buf = appendLenPrefixed(buf, []byte(name))
	idBytes := id.Bytes()
	buf = append(buf, idBytes[:]...)
	return GNSEvent{Opcode: OpCreateSpace, Payload: buf}
}

// EncodeAlterSpaceEvent builds the event for ALTER SPACE's single supported
// option: setting one property key to one value.
func EncodeAlterSpaceEvent(name, key, value string) GNSEvent {
	var buf []byte
	buf = appendLenPrefixed(buf, []byte(name))
	buf = appendLenPrefixed(buf, []byte(key))
	buf = appendLenPrefixed(buf, []byte(value))
	return GNSEvent{Opcode: OpAlterSpace, Payload: buf}
}

// DecodeAlterSpacePayload parses the payload of an OpAlterSpace event.
func DecodeAlterSpacePayload(payload []byte) (name, key, value string, err error) {
	r := bytes.NewReader(payload)
	nameBuf, err := readLenPrefixed(r)
	if err != nil {
		return "", "", "", err
	}
	keyBuf, err := readLenPrefixed(r)
	if err != nil {
		return "", "", "", err
	}
	valueBuf, err := readLenPrefixed(r)
	if err != nil {
		return "", "", "", err
	}
	return string(nameBuf), string(keyBuf), string(valueBuf), nil
}

// EncodeDropSpaceEvent builds the event for DROP SPACE.
func EncodeDropSpaceEvent(name string) GNSEvent {
	return GNSEvent{Opcode: OpDropSpace, Payload: appendLenPrefixed(nil, []byte(name))}
}

// EncodeCreateModelEvent builds the event for CREATE MODEL.
func EncodeCreateModelEvent(spaceName, modelName string, schema Schema) GNSEvent {
	var buf []byte
	buf = appendLenPrefixed(buf, []byte(spaceName))
	buf = appendLenPrefixed(buf, []byte(modelName))
	buf = encodeSchema(buf, schema)
	return GNSEvent{Opcode: OpCreateModel, Payload: buf}
}

// EncodeAlterModelEvent builds the event for ALTER MODEL, carrying the full
// resulting schema rather than a delta, so replay never needs to fold a
// sequence of incremental field changes.
func EncodeAlterModelEvent(spaceName, modelName string, schema Schema) GNSEvent {
	var buf []byte
	buf = appendLenPrefixed(buf, []byte(spaceName))
	buf = appendLenPrefixed(buf, []byte(modelName))
	buf = encodeSchema(buf, schema)
	return GNSEvent{Opcode: OpAlterModel, Payload: buf}
}

// EncodeDropModelEvent builds the event for DROP MODEL.
func EncodeDropModelEvent(spaceName, modelName string) GNSEvent {
	var buf []byte
	buf = appendLenPrefixed(buf, []byte(spaceName))
	buf = appendLenPrefixed(buf, []byte(modelName))
	return GNSEvent{Opcode: OpDropModel, Payload: buf}
}

// EncodeCreateUserEvent builds the event for CREATE USER.
func EncodeCreateUserEvent(username, passwordHash string) GNSEvent {
	var buf []byte
	buf = appendLenPrefixed(buf, []byte(username))
	buf = appendLenPrefixed(buf, []byte(passwordHash))
	return GNSEvent{Opcode: OpCreateUser, Payload: buf}
}

// EncodeAlterUserEvent builds the event for ALTER USER.
func EncodeAlterUserEvent(username, passwordHash string) GNSEvent {
	var buf []byte
	buf = appendLenPrefixed(buf, []byte(username))
	buf = appendLenPrefixed(buf, []byte(passwordHash))
	return GNSEvent{Opcode: OpAlterUser, Payload: buf}
}

// EncodeDropUserEvent builds the event for DROP USER.
func EncodeDropUserEvent(username string) GNSEvent {
	return GNSEvent{Opcode: OpDropUser, Payload: appendLenPrefixed(nil, []byte(username))}
}

// DecodeCreateSpacePayload parses the payload of an OpCreateSpace event.
func DecodeCreateSpacePayload(payload []byte) (name string, id UUID, err error) {
	r := bytes.NewReader(payload)
	nameBuf, err := readLenPrefixed(r)
	if err != nil {
		return "", UUID{}, err
	}
	var idBuf [16]byte
	if _, err := io.ReadFull(r, idBuf[:]); err != nil {
		return "", UUID{}, err
	}
	return string(nameBuf), UUIDFromBytes(idBuf), nil
}

// DecodeDropSpacePayload parses the payload of an OpDropSpace event.
func DecodeDropSpacePayload(payload []byte) (name string, err error) {
	nameBuf, err := readLenPrefixed(bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	return string(nameBuf), nil
}

// DecodeModelEventPayload parses the common (spaceName, modelName, schema)
// shape shared by OpCreateModel and OpAlterModel.
func DecodeModelEventPayload(payload []byte) (spaceName, modelName string, schema Schema, err error) {
	r := bytes.NewReader(payload)
	spaceBuf, err := readLenPrefixed(r)
	if err != nil {
		return "", "", Schema{}, err
	}
	modelBuf, err := readLenPrefixed(r)
	if err != nil {
		return "", "", Schema{}, err
	}
	s, err := decodeSchema(r)
	if err != nil {
		return "", "", Schema{}, err
	}
	return string(spaceBuf), string(modelBuf), s, nil
}

// DecodeDropModelPayload parses the payload of an OpDropModel event.
func DecodeDropModelPayload(payload []byte) (spaceName, modelName string, err error) {
	r := bytes.NewReader(payload)
	spaceBuf, err := readLenPrefixed(r)
	if err != nil {
		return "", "", err
	}
	modelBuf, err := readLenPrefixed(r)
	if err != nil {
		return "", "", err
	}
	return string(spaceBuf), string(modelBuf), nil
}

// DecodeUserEventPayload parses the (username, passwordHash) shape shared
// by OpCreateUser and OpAlterUser.
func DecodeUserEventPayload(payload []byte) (username, passwordHash string, err error) {
	r := bytes.NewReader(payload)
	userBuf, err := readLenPrefixed(r)
	if err != nil {
		return "", "", err
	}
	hashBuf, err := readLenPrefixed(r)
	if err != nil {
		return "", "", err
	}
	return string(userBuf), string(hashBuf), nil
}

// DecodeDropUserPayload parses the payload of an OpDropUser event.
func DecodeDropUserPayload(payload []byte) (username string, err error) {
	userBuf, err := readLenPrefixed(bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	return string(userBuf), nil
}

// EventLog is the append-only DDL/DCL log for the global namespace: every
// CreateSpace/AlterSpace/DropSpace/CreateModel/AlterModel/DropModel/
// CreateUser/AlterUser/DropUser call appends exactly one GNSEvent before
// the corresponding in-memory change is made visible.
type EventLog struct {
	res    *sdss.OpenResult
	writer *sdss.TrackedWriter
}

// OpenEventLog opens or creates the GNS journal at path.
func OpenEventLog(path string, runMode sdss.HostRunMode, startupCounter, driverVersion, serverVersion uint64) (*EventLog, error) {
	res, err := sdss.OpenOrCreate(path, func() sdss.Header {
		return sdss.NewHeader(sdss.FileClassEventLog, sdss.FileSpecifierGNSLog, 1, runMode, startupCounter, driverVersion, serverVersion)
	})
	if err != nil {
		return nil, fmt.Errorf("engine: open event log %s: %w", path, err)
	}
	w, err := sdss.NewTrackedWriter(res.File)
	if err != nil {
		res.File.Close()
		return nil, fmt.Errorf("engine: attach tracked writer to %s: %w", path, err)
	}
	return &EventLog{res: res, writer: w}, nil
}

// Append durably records ev.
func (l *EventLog) Append(ev GNSEvent) error {
	buf := encodeGNSEvent(nil, ev)
	l.writer.Stage(buf)
	if err := l.writer.Commit(); err != nil {
		return fmt.Errorf("engine: commit GNS event: %w", err)
	}
	return nil
}

// Close releases the file handle.
func (l *EventLog) Close() error {
	return l.res.File.Close()
}

// ReplayEventLog reads every well-formed event from path in order. A
// truncated or checksum-mismatched tail event is discarded and the file is
// truncated back to the offset before it, identically to batch journal
// recovery.
func ReplayEventLog(path string) ([]GNSEvent, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("engine: open event log %s for replay: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Seek(int64(sdss.HeaderSize), io.SeekStart); err != nil {
		return nil, fmt.Errorf("engine: seek past header in %s: %w", path, err)
	}
	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("engine: read %s: %w", path, err)
	}

	var events []GNSEvent
	offset := 0
	for offset < len(raw) {
		recStart := offset
		if offset+5 > len(raw) {
			break
		}
		opcode := EventOpcode(raw[offset])
		payloadLen := binary.LittleEndian.Uint32(raw[offset+1 : offset+5])
		end := offset + 5 + int(payloadLen)
		if end+8 > len(raw) {
			break
		}
		payload := raw[offset+5 : end]
		checksum := binary.LittleEndian.Uint64(raw[end : end+8])
		if sdss.Checksum(raw[recStart:end]) != checksum {
			break
		}
		events = append(events, GNSEvent{Opcode: opcode, Payload: append([]byte(nil), payload...)})
		offset = end + 8
	}

	if offset < len(raw) {
		if err := f.Truncate(int64(sdss.HeaderSize) + int64(offset)); err != nil {
			return events, fmt.Errorf("engine: truncate %s to last good event: %w", path, err)
		}
	}
	return events, nil
}

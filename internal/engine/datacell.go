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
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"unicode/utf8"
)

// Datacell is a tagged value stored in a row's field map: either a scalar
// (bool/uint/sint/float/binary/string), a possibly-nested list of such
// scalars, or null. Datacell owns any heap buffer it needs (the backing
// slice of a binary/string/list value) and that buffer is dropped with the
// row or on overwrite — there is no separate reference-counted value type.
type Datacell struct {
	tag  Tag
	null bool
	val  any // bool | uint64 | int64 | float64 | []byte | []Datacell ; nil iff null
}

// NullDatacell returns a null value typed as tag.
func NullDatacell(tag Tag) Datacell {
	return Datacell{tag: tag, null: true}
}

// BoolDatacell wraps b.
func BoolDatacell(b bool) Datacell {
	return Datacell{tag: TagBool, val: b}
}

// UintDatacell wraps v, truncated to width bits per tag.
func UintDatacell(tag Tag, v uint64) Datacell {
	return Datacell{tag: tag, val: maskUint(v, tag.Width)}
}

// SintDatacell wraps v.
func SintDatacell(tag Tag, v int64) Datacell {
	return Datacell{tag: tag, val: v}
}

// FloatDatacell wraps v.
func FloatDatacell(tag Tag, v float64) Datacell {
	return Datacell{tag: tag, val: v}
}

// BinaryDatacell wraps an opaque byte string.
func BinaryDatacell(b []byte) Datacell {
	cp := append([]byte(nil), b...)
	return Datacell{tag: TagBinary, val: cp}
}

// StringDatacell wraps a UTF-8 string. Returns an error if s is not valid
// UTF-8, matching the schema invariant that strings are always valid UTF-8.
func StringDatacell(s string) (Datacell, error) {
	if !utf8.ValidString(s) {
		return Datacell{}, fmt.Errorf("engine: string value is not valid UTF-8")
	}
	return Datacell{tag: TagString, val: []byte(s)}, nil
}

// ListDatacell wraps items, each of which must already carry elemTag.
func ListDatacell(elemTag Tag, items []Datacell) Datacell {
	cp := append([]Datacell(nil), items...)
	return Datacell{tag: TagList(elemTag), val: cp}
}

func maskUint(v uint64, width Width) uint64 {
	switch width {
	case 8:
		return v & 0xFF
	case 16:
		return v & 0xFFFF
	case 32:
		return v & 0xFFFFFFFF
	default:
		return v
	}
}

// Tag returns the value's declared type.
func (d Datacell) Tag() Tag { return d.tag }

// IsNull reports whether d is null.
func (d Datacell) IsNull() bool { return d.null }

// Bool returns the wrapped bool and whether d actually holds one.
func (d Datacell) Bool() (bool, bool) {
	b, ok := d.val.(bool)
	return b, ok
}

// Uint returns the wrapped unsigned integer and whether d actually holds
// one.
func (d Datacell) Uint() (uint64, bool) {
	u, ok := d.val.(uint64)
	return u, ok
}

// Sint returns the wrapped signed integer and whether d actually holds one.
func (d Datacell) Sint() (int64, bool) {
	i, ok := d.val.(int64)
	return i, ok
}

// Float returns the wrapped float and whether d actually holds one.
func (d Datacell) Float() (float64, bool) {
	f, ok := d.val.(float64)
	return f, ok
}

// Bytes returns the wrapped binary/string payload and whether d actually
// holds one.
func (d Datacell) Bytes() ([]byte, bool) {
	b, ok := d.val.([]byte)
	return b, ok
}

// String returns the wrapped string payload and whether d actually holds
// one.
func (d Datacell) String() (string, bool) {
	b, ok := d.val.([]byte)
	if !ok {
		return "", false
	}
	return string(b), true
}

// List returns the wrapped list elements and whether d actually holds a
// list.
func (d Datacell) List() ([]Datacell, bool) {
	l, ok := d.val.([]Datacell)
	return l, ok
}

// Clone deep-copies d so a caller can hand it out without aliasing the
// row's own storage (used by Select when cloning a row snapshot under the
// epoch guard).
func (d Datacell) Clone() Datacell {
	switch v := d.val.(type) {
	case []byte:
		return Datacell{tag: d.tag, null: d.null, val: append([]byte(nil), v...)}
	case []Datacell:
		cp := make([]Datacell, len(v))
		for i, e := range v {
			cp[i] = e.Clone()
		}
		return Datacell{tag: d.tag, null: d.null, val: cp}
	default:
		return d
	}
}

// Equal compares two cells for value equality, used by tests and by
// duplicate-key detection paths that compare cloned snapshots.
func (d Datacell) Equal(o Datacell) bool {
	if d.null != o.null {
		return false
	}
	if d.null {
		return d.tag.Equal(o.tag)
	}
	switch v := d.val.(type) {
	case []byte:
		ov, ok := o.val.([]byte)
		if !ok || len(v) != len(ov) {
			return false
		}
		for i := range v {
			if v[i] != ov[i] {
				return false
			}
		}
		return true
	case []Datacell:
		ov, ok := o.val.([]Datacell)
		if !ok || len(v) != len(ov) {
			return false
		}
		for i := range v {
			if !v[i].Equal(ov[i]) {
				return false
			}
		}
		return true
	default:
		return d.val == o.val
	}
}

// -----------------------------------------------------------------------------
// Wire encoding
//
// Every scalar/list payload is self-describing: a one-byte discriminant
// followed by a payload whose shape depends only on that byte, never on
// external schema context. This is what lets the batch journal and event
// log decode a row image with no knowledge of the model's current schema
// (useful across ALTER MODEL field changes and for recovery tooling).
// -----------------------------------------------------------------------------

// EncodeDatacell appends the wire encoding of d to buf and returns the
// extended slice.
func EncodeDatacell(buf []byte, d Datacell) []byte {
	if d.null {
		return append(buf, DiscNull)
	}
	buf = append(buf, d.tag.Discriminant())
	switch d.tag.Class {
	case TagClassBool:
		b, _ := d.Bool()
		if b {
			return append(buf, 1)
		}
		return append(buf, 0)
	case TagClassUint:
		u, _ := d.Uint()
		return appendUint(buf, u, d.tag.Width)
	case TagClassSint:
		i, _ := d.Sint()
		return appendUint(buf, uint64(i), d.tag.Width)
	case TagClassFloat:
		f, _ := d.Float()
		if d.tag.Width == 32 {
			var tmp [4]byte
			binary.LittleEndian.PutUint32(tmp[:], math.Float32bits(float32(f)))
			return append(buf, tmp[:]...)
		}
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(f))
		return append(buf, tmp[:]...)
	case TagClassBinary, TagClassString:
		b, _ := d.Bytes()
		return appendLenPrefixed(buf, b)
	case TagClassList:
		items, _ := d.List()
		var lenBuf [4]byte
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(items)))
		buf = append(buf, lenBuf[:]...)
		for _, item := range items {
			buf = EncodeDatacell(buf, item)
		}
		return buf
	default:
		return buf
	}
}

func appendUint(buf []byte, v uint64, width Width) []byte {
	switch width {
	case 8:
		return append(buf, byte(v))
	case 16:
		var tmp [2]byte
		binary.LittleEndian.PutUint16(tmp[:], uint16(v))
		return append(buf, tmp[:]...)
	case 32:
		var tmp [4]byte
		binary.LittleEndian.PutUint32(tmp[:], uint32(v))
		return append(buf, tmp[:]...)
	default:
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], v)
		return append(buf, tmp[:]...)
	}
}

func appendLenPrefixed(buf []byte, b []byte) []byte {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(b)))
	buf = append(buf, lenBuf[:]...)
	return append(buf, b...)
}

// byteReader is the minimal cursor DecodeDatacell needs; *bytes.Reader and
// the batch-journal/event-log scanners all satisfy it.
type byteReader interface {
	io.Reader
	ReadByte() (byte, error)
}

func readExact(r byteReader, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// DecodeDatacell reads one self-describing value from r.
func DecodeDatacell(r byteReader) (Datacell, error) {
	disc, err := r.ReadByte()
	if err != nil {
		return Datacell{}, err
	}
	if disc == DiscNull {
		return Datacell{null: true}, nil
	}
	tag, ok := TagFromDiscriminant(disc)
	if !ok {
		return Datacell{}, fmt.Errorf("engine: unknown value discriminant 0x%02x", disc)
	}
	switch tag.Class {
	case TagClassBool:
		b, err := readExact(r, 1)
		if err != nil {
			return Datacell{}, err
		}
		return BoolDatacell(b[0] != 0), nil
	case TagClassUint:
		v, err := readUint(r, tag.Width)
		if err != nil {
			return Datacell{}, err
		}
		return UintDatacell(tag, v), nil
	case TagClassSint:
		v, err := readUint(r, tag.Width)
		if err != nil {
			return Datacell{}, err
		}
		return SintDatacell(tag, int64(v)), nil
	case TagClassFloat:
		if tag.Width == 32 {
			b, err := readExact(r, 4)
			if err != nil {
				return Datacell{}, err
			}
			return FloatDatacell(tag, float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))), nil
		}
		b, err := readExact(r, 8)
		if err != nil {
			return Datacell{}, err
		}
		return FloatDatacell(tag, math.Float64frombits(binary.LittleEndian.Uint64(b))), nil
	case TagClassBinary:
		b, err := readLenPrefixed(r)
		if err != nil {
			return Datacell{}, err
		}
		return BinaryDatacell(b), nil
	case TagClassString:
		b, err := readLenPrefixed(r)
		if err != nil {
			return Datacell{}, err
		}
		if !utf8.Valid(b) {
			return Datacell{}, fmt.Errorf("engine: decoded string is not valid UTF-8")
		}
		return Datacell{tag: TagString, val: b}, nil
	case TagClassList:
		lb, err := readExact(r, 4)
		if err != nil {
			return Datacell{}, err
		}
		n := binary.LittleEndian.Uint32(lb)
		items := make([]Datacell, 0, n)
		var elemTag Tag
		for i := uint32(0); i < n; i++ {
			item, err := DecodeDatacell(r)
			if err != nil {
				return Datacell{}, err
			}
			if i == 0 {
				elemTag = item.tag
			}
			items = append(items, item)
		}
		return Datacell{tag: TagList(elemTag), val: items}, nil
	default:
		return Datacell{}, fmt.Errorf("engine: unhandled tag class %s", tag.Class)
	}
}

func readUint(r byteReader, width Width) (uint64, error) {
	switch width {
	case 8:
		b, err := readExact(r, 1)
		if err != nil {
			return 0, err
		}
		return uint64(b[0]), nil
	case 16:
		b, err := readExact(r, 2)
		if err != nil {
			return 0, err
		}
		return uint64(binary.LittleEndian.Uint16(b)), nil
	case 32:
		b, err := readExact(r, 4)
		if err != nil {
			return 0, err
		}
		return uint64(binary.LittleEndian.Uint32(b)), nil
	default:
		b, err := readExact(r, 8)
		if err != nil {
			return 0, err
		}
		return binary.LittleEndian.Uint64(b), nil
	}
}

func readLenPrefixed(r byteReader) ([]byte, error) {
	lb, err := readExact(r, 4)
	if err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(lb)
	return readExact(r, int(n))
}

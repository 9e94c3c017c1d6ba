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
	"fmt"
)

// PrimaryKey is the immutable identity of a row: a single scalar Datacell
// restricted to the classes that admit a total order, plus the one-byte
// discriminant that makes it self-describing on the wire. Composite keys
// are out of scope; see the model-level invariant that a schema names
// exactly one field as its primary key.
type PrimaryKey struct {
	cell Datacell
}

// ErrUnsupportedKeyType is returned when a Datacell's class cannot serve as
// a primary key (currently: bool, float and list).
var ErrUnsupportedKeyType = fmt.Errorf("engine: unsupported primary key type")

// NewPrimaryKey validates d's class and wraps it as a PrimaryKey. A null
// cell is rejected: a row's identity can never be absent.
func NewPrimaryKey(d Datacell) (PrimaryKey, error) {
	if d.IsNull() {
		return PrimaryKey{}, fmt.Errorf("engine: primary key value must not be null")
	}
	switch d.Tag().Class {
	case TagClassUint, TagClassSint, TagClassBinary, TagClassString:
		return PrimaryKey{cell: d}, nil
	default:
		return PrimaryKey{}, ErrUnsupportedKeyType
	}
}

// Tag returns the key's declared type.
func (k PrimaryKey) Tag() Tag { return k.cell.Tag() }

// Cell returns the underlying Datacell.
func (k PrimaryKey) Cell() Datacell { return k.cell }

// Comparable is satisfied by any type the primary index can order and hash
// without boxing through an interface{} comparison — modeled on the
// original engine's split between a plain equality comparison and an
// upgradeable ordered comparison used when a range scan is possible.
//
// Only Equal and HashKey are used today: PrimaryIndex is a hash map, not a
// sorted structure, since range scans over the primary key are a
// Non-goal. Compare is kept as part of the contract so a future ordered
// index does not need to touch PrimaryKey's shape.
type Comparable interface {
	Equal(other PrimaryKey) bool
	Compare(other PrimaryKey) (int, bool)
	HashKey() string
}

var _ Comparable = PrimaryKey{}

// Equal reports whether two keys have the same class and the same value.
// Width is deliberately ignored: a uint16(5) and a uint64(5) key refer to
// the same row, since a WHERE-clause literal rarely carries the schema's
// exact declared width.
func (k PrimaryKey) Equal(other PrimaryKey) bool {
	if !k.cell.Tag().SameClass(other.cell.Tag()) {
		return false
	}
	switch k.cell.Tag().Class {
	case TagClassUint:
		a, _ := k.cell.Uint()
		b, _ := other.cell.Uint()
		return a == b
	case TagClassSint:
		a, _ := k.cell.Sint()
		b, _ := other.cell.Sint()
		return a == b
	case TagClassBinary, TagClassString:
		a, _ := k.cell.Bytes()
		b, _ := other.cell.Bytes()
		return bytes.Equal(a, b)
	default:
		return false
	}
}

// Compare orders two keys of the same class. The second return value is
// false when the keys are not of comparable classes.
func (k PrimaryKey) Compare(other PrimaryKey) (int, bool) {
	if !k.cell.Tag().SameClass(other.cell.Tag()) {
		return 0, false
	}
	switch k.cell.Tag().Class {
	case TagClassUint:
		a, _ := k.cell.Uint()
		b, _ := other.cell.Uint()
		return cmpUint64(a, b), true
	case TagClassSint:
		a, _ := k.cell.Sint()
		b, _ := other.cell.Sint()
		return cmpInt64(a, b), true
	case TagClassBinary, TagClassString:
		a, _ := k.cell.Bytes()
		b, _ := other.cell.Bytes()
		return bytes.Compare(a, b), true
	default:
		return 0, false
	}
}

func cmpUint64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// HashKey renders a bucket-distribution string for the primary index's
// bucket map. Uint/sint are rendered as their raw bytes (not decimal text)
// so the distribution is uniform regardless of value magnitude.
func (k PrimaryKey) HashKey() string {
	switch k.cell.Tag().Class {
	case TagClassUint:
		v, _ := k.cell.Uint()
		return "u:" + string(appendUint(nil, v, 64))
	case TagClassSint:
		v, _ := k.cell.Sint()
		return "i:" + string(appendUint(nil, uint64(v), 64))
	case TagClassBinary:
		b, _ := k.cell.Bytes()
		return "b:" + string(b)
	case TagClassString:
		b, _ := k.cell.Bytes()
		return "s:" + string(b)
	default:
		return ""
	}
}

// EncodePrimaryKey appends the wire form of k: a single self-describing
// Datacell, identical to the general value encoding, since a primary key
// is never null and never a list.
func EncodePrimaryKey(buf []byte, k PrimaryKey) []byte {
	return EncodeDatacell(buf, k.cell)
}

// DecodePrimaryKey reads a PrimaryKey back from r.
func DecodePrimaryKey(r byteReader) (PrimaryKey, error) {
	d, err := DecodeDatacell(r)
	if err != nil {
		return PrimaryKey{}, err
	}
	return NewPrimaryKey(d)
}

// LAKE - Lightweight Authenticated Key Exchange core
// Copyright (C) 2025 SAGE-X-project
//
// This file is part of LAKE.
//
// LAKE is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// LAKE is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with LAKE. If not, see <https://www.gnu.org/licenses/>.

// Package cborcodec implements the bounded CBOR subset EDHOC and OSCORE
// need: unsigned/negative integers, byte strings, text strings, arrays of
// known length, maps with known key sets, and CBOR sequences (concatenated
// items with no outer array). It does not attempt to cover general CBOR
// (indefinite-length items, tags beyond the few this protocol needs,
// floats) - only the fixed set of message shapes EDHOC/OSCORE wire
// encoding actually uses.
//
// This is written by hand, in the same "write a major-type header, then
// the payload, straight into a byte buffer" style common to hand-rolled
// CBOR encoders, rather than via a reflection-based third-party codec:
// the wire format is exactly this finite set of shapes, so a
// general-purpose CBOR library buys indirection without buying
// correctness.
package cborcodec

import (
	"bytes"
	"math"
)

// Major types per RFC 8949 §3.
const (
	majUnsigned = 0
	majNegative = 1
	majBytes    = 2
	majText     = 3
	majArray    = 4
	majMap      = 5
	majTag      = 6
	majSimple   = 7
)

const (
	simpleFalse = 20
	simpleTrue  = 21
	simpleNull  = 22
)

// WriteHeader writes a major-type header with the given additional-value
// argument, choosing the shortest encoding (RFC 8949 §3.1).
func WriteHeader(buf *bytes.Buffer, major byte, n uint64) {
	mt := major << 5
	switch {
	case n < 24:
		buf.WriteByte(mt | byte(n))
	case n <= math.MaxUint8:
		buf.WriteByte(mt | 24)
		buf.WriteByte(byte(n))
	case n <= math.MaxUint16:
		buf.WriteByte(mt | 25)
		buf.WriteByte(byte(n >> 8))
		buf.WriteByte(byte(n))
	case n <= math.MaxUint32:
		buf.WriteByte(mt | 26)
		writeBE(buf, uint32(n))
	default:
		buf.WriteByte(mt | 27)
		writeBE64(buf, n)
	}
}

func writeBE(buf *bytes.Buffer, v uint32) {
	buf.WriteByte(byte(v >> 24))
	buf.WriteByte(byte(v >> 16))
	buf.WriteByte(byte(v >> 8))
	buf.WriteByte(byte(v))
}

func writeBE64(buf *bytes.Buffer, v uint64) {
	for i := 7; i >= 0; i-- {
		buf.WriteByte(byte(v >> (8 * uint(i))))
	}
}

// WriteUint appends an unsigned integer (major type 0).
func WriteUint(buf *bytes.Buffer, v uint64) {
	WriteHeader(buf, majUnsigned, v)
}

// WriteInt appends a signed integer, choosing major type 0 or 1 per
// RFC 8949 §3.1 (negative n encodes -(n+1)).
func WriteInt(buf *bytes.Buffer, v int64) {
	if v >= 0 {
		WriteUint(buf, uint64(v))
		return
	}
	WriteHeader(buf, majNegative, uint64(-(v + 1)))
}

// WriteBytes appends a definite-length byte string (major type 2).
func WriteBytes(buf *bytes.Buffer, b []byte) {
	WriteHeader(buf, majBytes, uint64(len(b)))
	buf.Write(b)
}

// WriteText appends a definite-length UTF-8 text string (major type 3).
func WriteText(buf *bytes.Buffer, s string) {
	WriteHeader(buf, majText, uint64(len(s)))
	buf.WriteString(s)
}

// WriteArrayHeader appends a definite-length array header (major type 4)
// for n following items.
func WriteArrayHeader(buf *bytes.Buffer, n int) {
	WriteHeader(buf, majArray, uint64(n))
}

// WriteMapHeader appends a definite-length map header (major type 5) for
// n following key/value pairs.
func WriteMapHeader(buf *bytes.Buffer, n int) {
	WriteHeader(buf, majMap, uint64(n))
}

// WriteBool appends a CBOR boolean simple value.
func WriteBool(buf *bytes.Buffer, v bool) {
	if v {
		buf.WriteByte(0xe0 | simpleTrue)
		return
	}
	buf.WriteByte(0xe0 | simpleFalse)
}

// WriteNull appends CBOR null.
func WriteNull(buf *bytes.Buffer) {
	buf.WriteByte(0xe0 | simpleNull)
}

// Seq concatenates the encodings of a sequence of items with no outer
// array wrapper - used for every EDHOC "CBOR sequence" construction in
// (e.g. the EDHOC-KDF info sequence, the COSE
// external_aad sequences).
type Seq struct {
	buf bytes.Buffer
}

// NewSeq starts a new CBOR-sequence builder.
func NewSeq() *Seq { return &Seq{} }

func (s *Seq) Int(v int64) *Seq     { WriteInt(&s.buf, v); return s }
func (s *Seq) Uint(v uint64) *Seq   { WriteUint(&s.buf, v); return s }
func (s *Seq) Bytes(b []byte) *Seq  { WriteBytes(&s.buf, b); return s }
func (s *Seq) Text(v string) *Seq   { WriteText(&s.buf, v); return s }
func (s *Seq) Bool(v bool) *Seq     { WriteBool(&s.buf, v); return s }
func (s *Seq) Null() *Seq           { WriteNull(&s.buf); return s }
func (s *Seq) Raw(b []byte) *Seq    { s.buf.Write(b); return s }

// Encode returns the accumulated encoding as a freshly copied slice.
func (s *Seq) Encode() []byte {
	out := make([]byte, s.buf.Len())
	copy(out, s.buf.Bytes())
	return out
}

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

// Package oscore implements Object Security for Constrained RESTful
// Environments: the inner/outer CoAP option partitioner, the AEAD
// message wrapper, and the server-side replay window. It depends only
// on cipherprovider.Provider, the same pure-crypto collaborator edhoc
// uses, so a caller can seed it directly from an
// edhoc.Initiator/Responder's exported PRK_out without either package
// importing the other.
package oscore

import (
	"bytes"
	"sort"

	"github.com/sage-x-project/lake/lakeerr"
)

// Option is one CoAP option (RFC7252 §5.10): a number and its raw value
// bytes. Encoding/decoding here only handles the option section of a CoAP
// message, not the 4-byte header or token - those stay the caller's
// concern.
type Option struct {
	Number int
	Value  []byte
}

// Class is a CoAP option's OSCORE partitioning class (RFC8613 Table 4).
type Class int

const (
	ClassE Class = iota // encrypted, carried in the inner message
	ClassU               // unprotected, carried in the outer message
	ClassI               // integrity-protected-only, authenticated but not encrypted
)

// Option numbers this core recognises.
const (
	OptionIfMatch       = 1
	OptionUriHost        = 3
	OptionETag          = 4
	OptionIfNoneMatch   = 5
	OptionObserve       = 6
	OptionUriPort        = 7
	OptionLocationPath  = 8
	OptionOSCORE        = 9
	OptionUriPath        = 11
	OptionContentFormat = 12
	OptionMaxAge        = 14
	OptionUriQuery       = 15
	OptionAccept        = 17
	OptionLocationQuery = 20
	OptionBlock2        = 23
	OptionBlock1        = 27
	OptionSize2         = 28
	OptionProxyUri      = 35
	OptionProxyScheme   = 39
	OptionSize1         = 60
)

// classTable is the fixed option-number -> class mapping.
// Observe is handled specially by Partition/Reassemble, not looked up
// here; OSCORE itself is U but synthetic (the caller never sets it on an
// input message - Partition inserts it, Reassemble strips it).
var classTable = map[int]Class{
	OptionIfMatch:       ClassE,
	OptionUriHost:       ClassU,
	OptionETag:          ClassE,
	OptionIfNoneMatch:   ClassE,
	OptionUriPort:       ClassU,
	OptionLocationPath:  ClassE,
	OptionOSCORE:        ClassU,
	OptionUriPath:       ClassE,
	OptionContentFormat: ClassE,
	OptionMaxAge:        ClassE,
	OptionUriQuery:      ClassE,
	OptionAccept:        ClassE,
	OptionLocationQuery: ClassE,
	OptionBlock2:        ClassE,
	OptionBlock1:        ClassE,
	OptionSize2:         ClassE,
	OptionProxyUri:      ClassU,
	OptionProxyScheme:   ClassU,
	OptionSize1:         ClassE,
}

// ClassOf reports an option number's partitioning class. Unrecognised
// option numbers default to ClassE, the safe choice (RFC8613 §4.1: an
// implementation MUST protect any option it doesn't otherwise recognise).
func ClassOf(number int) Class {
	if c, ok := classTable[number]; ok {
		return c
	}
	return ClassE
}

// EncodeOptions renders opts as a CoAP option-value TLV sequence
// (RFC7252 §3.1): sorted by option number, delta-encoded, each entry a
// 1-5 byte header (nibble deltas/lengths, extended as needed) followed by
// the option value.
func EncodeOptions(opts []Option) []byte {
	sorted := append([]Option(nil), opts...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Number < sorted[j].Number })

	var buf bytes.Buffer
	prev := 0
	for _, o := range sorted {
		delta := o.Number - prev
		prev = o.Number
		writeOptionHeader(&buf, delta, len(o.Value))
		buf.Write(o.Value)
	}
	return buf.Bytes()
}

func writeOptionHeader(buf *bytes.Buffer, delta, length int) {
	deltaNibble, deltaExt, deltaExtLen := nibbleExtended(delta)
	lenNibble, lenExt, lenExtLen := nibbleExtended(length)
	buf.WriteByte(byte(deltaNibble<<4) | byte(lenNibble))
	writeExtended(buf, deltaExt, deltaExtLen)
	writeExtended(buf, lenExt, lenExtLen)
}

// nibbleExtended maps a delta/length value to its 4-bit nibble plus any
// RFC7252 extended-encoding bytes (13: 1 extra byte biased by 13, 14: 2
// extra bytes biased by 269).
func nibbleExtended(v int) (nibble int, ext int, extLen int) {
	switch {
	case v < 13:
		return v, 0, 0
	case v < 269:
		return 13, v - 13, 1
	default:
		return 14, v - 269, 2
	}
}

func writeExtended(buf *bytes.Buffer, ext, extLen int) {
	switch extLen {
	case 1:
		buf.WriteByte(byte(ext))
	case 2:
		buf.WriteByte(byte(ext >> 8))
		buf.WriteByte(byte(ext))
	}
}

// DecodeOptions parses a CoAP option TLV sequence back into Options,
// stopping at the first 0xFF payload marker or end of buf. It returns the
// decoded options and the remaining bytes after the marker (nil if there
// was no payload marker).
func DecodeOptions(buf []byte) (opts []Option, payload []byte, err error) {
	num := 0
	i := 0
	for i < len(buf) {
		if buf[i] == 0xFF {
			return opts, buf[i+1:], nil
		}
		deltaNibble := int(buf[i] >> 4)
		lenNibble := int(buf[i] & 0x0F)
		i++

		delta, i2, err := readExtended(buf, i, deltaNibble)
		if err != nil {
			return nil, nil, err
		}
		i = i2
		length, i3, err := readExtended(buf, i, lenNibble)
		if err != nil {
			return nil, nil, err
		}
		i = i3

		if i+length > len(buf) {
			return nil, nil, lakeerr.New(lakeerr.CborTruncated, "oscore: option value runs past end of buffer")
		}
		num += delta
		opts = append(opts, Option{Number: num, Value: append([]byte{}, buf[i:i+length]...)})
		i += length
	}
	return opts, nil, nil
}

func readExtended(buf []byte, i, nibble int) (value, next int, err error) {
	switch nibble {
	case 13:
		if i >= len(buf) {
			return 0, 0, lakeerr.New(lakeerr.CborTruncated, "oscore: option extended-8 header truncated")
		}
		return int(buf[i]) + 13, i + 1, nil
	case 14:
		if i+1 >= len(buf) {
			return 0, 0, lakeerr.New(lakeerr.CborTruncated, "oscore: option extended-16 header truncated")
		}
		return (int(buf[i])<<8 | int(buf[i+1])) + 269, i + 2, nil
	case 15:
		return 0, 0, lakeerr.New(lakeerr.CborMalformed, "oscore: option nibble 15 is reserved")
	default:
		return nibble, i, nil
	}
}

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

package oscore

// CoAP codes used by the outer packet rewrite.
const (
	CodeFETCH   = 0x05 // 0.05
	CodeChanged = 0x44 // 2.04
)

// isObserveNotification reports whether a response code is a "success"
// 2.xx carrying an Observe option, which rule 4 says must keep
// its original code rather than being rewritten to Changed.
func isObserveNotification(code byte, hasObserve, isRequest bool) bool {
	return !isRequest && hasObserve && code>>5 == 2
}

// Message is the minimal CoAP-like envelope this partitioner operates on
//.
type Message struct {
	Code    byte
	Options []Option
	Payload []byte
}

// Partitioned is the result of splitting one Message into its inner
// (to be AEAD-protected) and outer (sent in the clear, the OSCORE option
// itself inserted by the caller once it has ciphertext) parts, plus the
// Class I option bytes that only ever enter the AAD.
type Partitioned struct {
	InnerCode    byte
	InnerOptions []Option
	OuterOptions []Option
	ClassIBytes  []byte
}

// Partition implements the outbound direction of option partitioning: every
// option lands in exactly one of {inner, outer, AAD-only} and Observe
// gets its special split. It does not compute the outer code (OuterCode
// does that), and it does not insert the synthetic OSCORE(9) option itself -
// that happens once the caller has the ciphertext to put in it.
func Partition(msg Message, isRequest bool) Partitioned {
	var inner, outer []Option
	var classI []Option

	for _, o := range msg.Options {
		if o.Number == OptionObserve {
			if isRequest {
				inner = append(inner, o)
				outer = append(outer, o)
			} else {
				outer = append(outer, o)
				inner = append(inner, Option{Number: OptionObserve, Value: nil})
			}
			continue
		}
		switch ClassOf(o.Number) {
		case ClassE:
			inner = append(inner, o)
		case ClassU:
			outer = append(outer, o)
		case ClassI:
			classI = append(classI, o)
		}
	}

	return Partitioned{
		InnerCode:    msg.Code,
		InnerOptions: inner,
		OuterOptions: outer,
		ClassIBytes:  EncodeOptions(classI),
	}
}

// OuterCode computes the rewritten outer CoAP code for msg, per
// rule 4 (FETCH for requests, Changed for responses, preserved for an
// Observe notification that is already a 2.xx code).
func OuterCode(msg Message, isRequest bool) byte {
	hasObserve := false
	for _, o := range msg.Options {
		if o.Number == OptionObserve {
			hasObserve = true
			break
		}
	}
	if isRequest {
		return CodeFETCH
	}
	if isObserveNotification(msg.Code, hasObserve, isRequest) {
		return msg.Code
	}
	return CodeChanged
}

// Reassemble implements the inbound direction of option partitioning: given the
// outer options actually received (OSCORE option already removed by the
// caller) and the decrypted inner code/options/payload, it rebuilds the
// logical plaintext Message the application sees. The original code comes
// from the decrypted plaintext, not the (rewritten) outer code.
func Reassemble(outerOptions []Option, innerCode byte, innerOptions []Option, payload []byte) Message {
	byNumber := make(map[int]Option, len(outerOptions)+len(innerOptions))
	for _, o := range outerOptions {
		if o.Number == OptionOSCORE {
			continue
		}
		byNumber[o.Number] = o
	}
	for _, o := range innerOptions {
		if o.Number == OptionObserve && len(o.Value) == 0 {
			// Empty inner Observe (response direction): the real value
			// travelled on the outer option instead; don't overwrite it
			// with the empty placeholder unless outer never had it.
			if _, ok := byNumber[OptionObserve]; ok {
				continue
			}
		}
		byNumber[o.Number] = o
	}

	out := make([]Option, 0, len(byNumber))
	for _, o := range byNumber {
		out = append(out, o)
	}
	return Message{Code: innerCode, Options: out, Payload: payload}
}

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

import "github.com/sage-x-project/lake/lakeerr"

// ReplayWindow is the server-side anti-replay bitmap: W bits anchored at
// top, the highest accepted sequence number seen so far; bit i represents
// seq number (top - i). It carries no mutex of its own -
// SecurityContext.CheckAndAcceptReplay is the single critical section a
// shared context needs serialised through.
type ReplayWindow struct {
	bits        int
	top         uint64
	hasAccepted bool // false until the first non-zero seq is accepted
	zeroSeen    bool
	window      []byte // bitmap, bit i (LSB of window[i/8]) == top-i
}

// NewReplayWindow starts an empty window of the given bit width.
func NewReplayWindow(bits int) ReplayWindow {
	if bits <= 0 {
		bits = 32
	}
	return ReplayWindow{bits: bits, window: make([]byte, (bits+7)/8)}
}

func (w *ReplayWindow) bitSet(i int) bool {
	if i < 0 || i >= w.bits {
		return false
	}
	return w.window[i/8]&(1<<uint(i%8)) != 0
}

func (w *ReplayWindow) setBit(i int) {
	if i < 0 || i >= w.bits {
		return
	}
	w.window[i/8] |= 1 << uint(i%8)
}

func (w *ReplayWindow) shiftLeft(n int) {
	if n >= w.bits {
		for i := range w.window {
			w.window[i] = 0
		}
		return
	}
	// Bit i moves to bit i+n (higher i == older); bits that fall off the
	// top of the window are simply dropped.
	next := make([]byte, len(w.window))
	for i := w.bits - 1; i >= 0; i-- {
		if w.bitSet(i) && i+n < w.bits {
			idx := i + n
			next[idx/8] |= 1 << uint(idx%8)
		}
	}
	w.window = next
}

// IsValid reports whether seq would be accepted right now, per RFC8613
// §7.4's four replay-check rules. It is pure and side-effect-free.
func (w *ReplayWindow) IsValid(seq uint64) bool {
	if seq == 0 {
		return !w.zeroSeen
	}
	if !w.hasAccepted || seq > w.top {
		return true
	}
	if w.top-seq >= uint64(w.bits) {
		return false // ReplayWindowStale
	}
	return !w.bitSet(int(w.top - seq)) // false => ReplayDuplicate (or seq==top)
}

// Reason returns the specific lakeerr.Kind IsValid(seq)==false would fail
// with, or nil if seq is currently valid.
func (w *ReplayWindow) Reason(seq uint64) error {
	if w.IsValid(seq) {
		return nil
	}
	if seq != 0 && w.hasAccepted && seq <= w.top && w.top-seq >= uint64(w.bits) {
		return lakeerr.New(lakeerr.ReplayWindowStale, "oscore: sequence number older than the replay window")
	}
	return lakeerr.New(lakeerr.ReplayDuplicate, "oscore: sequence number already accepted")
}

// State is a serialisable snapshot of a ReplayWindow, used by resumestore
// to persist and later restore a recipient's anti-replay state across a
// resumed session.
type ReplayWindowState struct {
	Bits        int
	Top         uint64
	HasAccepted bool
	ZeroSeen    bool
	Window      []byte
}

// State captures the window's current contents.
func (w *ReplayWindow) State() ReplayWindowState {
	return ReplayWindowState{
		Bits:        w.bits,
		Top:         w.top,
		HasAccepted: w.hasAccepted,
		ZeroSeen:    w.zeroSeen,
		Window:      append([]byte{}, w.window...),
	}
}

// ReplayWindowFromState rebuilds a window from a previously captured
// State.
func ReplayWindowFromState(s ReplayWindowState) ReplayWindow {
	return ReplayWindow{
		bits:        s.Bits,
		top:         s.Top,
		hasAccepted: s.HasAccepted,
		zeroSeen:    s.ZeroSeen,
		window:      append([]byte{}, s.Window...),
	}
}

// Accept records seq as received. It requires a prior IsValid(seq)==true;
// calling it for an already-accepted seq is a no-op and reports false
//.
func (w *ReplayWindow) Accept(seq uint64) bool {
	if !w.IsValid(seq) {
		return false
	}
	if seq == 0 {
		w.zeroSeen = true
		return true
	}
	if !w.hasAccepted || seq > w.top {
		if w.hasAccepted {
			w.shiftLeft(int(seq - w.top))
		}
		w.top = seq
		w.hasAccepted = true
		w.setBit(0)
		return true
	}
	w.setBit(int(w.top - seq))
	return true
}

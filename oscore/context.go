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

import (
	"sync"

	"github.com/sage-x-project/lake/cborcodec"
	"github.com/sage-x-project/lake/cipherprovider"
	"github.com/sage-x-project/lake/internal/logger"
	"github.com/sage-x-project/lake/internal/metrics"
	"github.com/sage-x-project/lake/lakeerr"
)

// coseAEADAlg maps a cipherprovider.AEADAlg to its COSE algorithm
// identifier (RFC8613 §3.2's "alg" info element), the same label space
// credential/idcred_codec.go uses for COSE header keys.
func coseAEADAlg(alg cipherprovider.AEADAlg) int64 {
	switch alg {
	case cipherprovider.AEADAES128CCM8:
		return 10 // AES-CCM-16-64-128
	case cipherprovider.AEADChaCha20Poly1305:
		return 24 // ChaCha20/Poly1305
	case cipherprovider.AEADAES256GCM:
		return 3 // A256GCM
	default:
		return 0
	}
}

const (
	oscoreDeriveTypeKey = "Key"
	oscoreDeriveTypeIV  = "IV"
)

// deriveKeyMaterial implements RFC8613 §3.2's derivation:
// HKDF(Master Salt, Master Secret, info, L) where
// info = (id, id_context?, alg, type, L) as a CBOR sequence, following the
// same "extract-then-expand-with-labelled-info" idiom as
// edhoc.KDF/PRKOut.
func deriveKeyMaterial(p cipherprovider.Provider, hash cipherprovider.HashAlg, masterSecret, masterSalt, id, idContext []byte, alg cipherprovider.AEADAlg, typ string, length int) ([]byte, error) {
	prk, err := p.HKDFExtract(hash, masterSalt, masterSecret)
	if err != nil {
		return nil, lakeerr.Wrap(lakeerr.HashFailed, "oscore: HKDF-Extract(master salt, master secret)", err)
	}
	seq := cborcodec.NewSeq().Bytes(id)
	if len(idContext) > 0 {
		seq = seq.Bytes(idContext)
	}
	info := seq.Int(coseAEADAlg(alg)).Text(typ).Int(int64(length)).Encode()
	out, err := p.HKDFExpand(hash, prk, info, length)
	if err != nil {
		return nil, lakeerr.Wrap(lakeerr.HashFailed, "oscore: HKDF-Expand derive "+typ, err)
	}
	return out, nil
}

// SecurityContext is the OSCORE security context:
// `{ master_secret, master_salt, sender_id, recipient_id, id_context?,
// aead_alg, hash_alg, sender_key, recipient_key, common_iv,
// sender_seq_num, recipient_replay_window }`. sender_seq_num and the
// replay window are the only mutable fields and are guarded by mu, since
// a context shared across processors needs serialised compare-and-increment
// / read-check-modify access to them.
type SecurityContext struct {
	mu sync.Mutex

	Provider cipherprovider.Provider
	AEAD     cipherprovider.AEADAlg
	Hash     cipherprovider.HashAlg

	SenderID     []byte
	RecipientID  []byte
	IDContext    []byte
	SenderKey    []byte
	RecipientKey []byte
	CommonIV     []byte

	senderSeqNum uint64
	replay       ReplayWindow
}

// NewSecurityContext derives sender_key/recipient_key/common_iv from
// (master_secret, master_salt, id_context, sender_id/recipient_id, aead,
// hash), and starts the replay window at the given size.
// The master secret/salt are typically edhoc.OSCOREMasterSecret/Salt
// seeded from a completed handshake's PRK_out, but this constructor takes
// them directly so oscore has no import-time dependency on edhoc.
func NewSecurityContext(p cipherprovider.Provider, aead cipherprovider.AEADAlg, hash cipherprovider.HashAlg, masterSecret, masterSalt, senderID, recipientID, idContext []byte, replayWindowBits int) (*SecurityContext, error) {
	keyLen := p.KeyLen(aead)
	ivLen := p.NonceLen(aead)

	senderKey, err := deriveKeyMaterial(p, hash, masterSecret, masterSalt, senderID, idContext, aead, oscoreDeriveTypeKey, keyLen)
	if err != nil {
		return nil, err
	}
	recipientKey, err := deriveKeyMaterial(p, hash, masterSecret, masterSalt, recipientID, idContext, aead, oscoreDeriveTypeKey, keyLen)
	if err != nil {
		return nil, err
	}
	commonIV, err := deriveKeyMaterial(p, hash, masterSecret, masterSalt, nil, idContext, aead, oscoreDeriveTypeIV, ivLen)
	if err != nil {
		return nil, err
	}

	return &SecurityContext{
		Provider:     p,
		AEAD:         aead,
		Hash:         hash,
		SenderID:     senderID,
		RecipientID:  recipientID,
		IDContext:    idContext,
		SenderKey:    senderKey,
		RecipientKey: recipientKey,
		CommonIV:     commonIV,
		replay:       NewReplayWindow(replayWindowBits),
	}, nil
}

// NextSenderSeq atomically increments and returns the next sender sequence
// number. Sequence number 0 is the first one issued.
func (c *SecurityContext) NextSenderSeq() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	seq := c.senderSeqNum
	c.senderSeqNum++
	return seq
}

// CheckAndAcceptReplay validates seq against the recipient replay window
// and, only if valid, records it.
func (c *SecurityContext) CheckAndAcceptReplay(seq uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.replay.Reason(seq); err != nil {
		reason := "duplicate"
		if lakeerr.Of(err, lakeerr.ReplayWindowStale) {
			reason = "stale_window"
		}
		metrics.OscoreReplayRejected.WithLabelValues(reason).Inc()
		logger.Warn("oscore: sequence number rejected as replayed",
			logger.Any("seq", seq), logger.String("reason", reason))
		return err
	}
	c.replay.Accept(seq)
	return nil
}

// Snapshot is the serialisable form of a SecurityContext: every field a
// resumestore.ResumeStore implementation needs to fully restore a session,
// including the mutable sender sequence number and recipient replay state.
type Snapshot struct {
	AEAD         cipherprovider.AEADAlg
	Hash         cipherprovider.HashAlg
	SenderID     []byte
	RecipientID  []byte
	IDContext    []byte
	SenderKey    []byte
	RecipientKey []byte
	CommonIV     []byte
	SenderSeq    uint64
	Replay       ReplayWindowState
}

// Snapshot captures c's current state for persistence.
func (c *SecurityContext) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		AEAD:         c.AEAD,
		Hash:         c.Hash,
		SenderID:     c.SenderID,
		RecipientID:  c.RecipientID,
		IDContext:    c.IDContext,
		SenderKey:    c.SenderKey,
		RecipientKey: c.RecipientKey,
		CommonIV:     c.CommonIV,
		SenderSeq:    c.senderSeqNum,
		Replay:       c.replay.State(),
	}
}

// FromSnapshot rebuilds a SecurityContext from a previously captured
// Snapshot, reusing its already-derived keys rather than re-running
// deriveKeyMaterial.
func FromSnapshot(p cipherprovider.Provider, s Snapshot) *SecurityContext {
	return &SecurityContext{
		Provider:     p,
		AEAD:         s.AEAD,
		Hash:         s.Hash,
		SenderID:     s.SenderID,
		RecipientID:  s.RecipientID,
		IDContext:    s.IDContext,
		SenderKey:    s.SenderKey,
		RecipientKey: s.RecipientKey,
		CommonIV:     s.CommonIV,
		senderSeqNum: s.SenderSeq,
		replay:       ReplayWindowFromState(s.Replay),
	}
}

// Zeroize overwrites every derived secret.
func (c *SecurityContext) Zeroize() {
	c.mu.Lock()
	defer c.mu.Unlock()
	zero(c.SenderKey)
	zero(c.RecipientKey)
	zero(c.CommonIV)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

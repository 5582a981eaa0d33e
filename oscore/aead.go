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
	"bytes"
	"time"

	"github.com/sage-x-project/lake/cborcodec"
	"github.com/sage-x-project/lake/internal/logger"
	"github.com/sage-x-project/lake/internal/metrics"
	"github.com/sage-x-project/lake/lakeerr"
)

// minimalBytes encodes seq as RFC8613's Partial IV: the fewest bytes that
// represent it, with seq=0 encoded as a single zero byte rather than the
// empty string - RFC8613's PIV is never itself empty, only the common
// IV's own "id" slot is.
func minimalBytes(seq uint64) []byte {
	if seq == 0 {
		return []byte{0}
	}
	var buf [8]byte
	n := 8
	for seq > 0 {
		n--
		buf[n] = byte(seq)
		seq >>= 8
	}
	return append([]byte{}, buf[n:]...)
}

// buildNonce implements RFC8613 §5.2's nonce construction: left-pad ID_PIV
// and PIV into a nonceLen buffer, then XOR with the common IV.
//
//	<- nonceLen-6-len(ID_PIV) zero bytes -><1B: len(ID_PIV)><ID_PIV><5B: PIV>
func buildNonce(commonIV, idPIV []byte, seq uint64, nonceLen int) ([]byte, error) {
	piv := minimalBytes(seq)
	if len(piv) > 5 {
		return nil, lakeerr.New(lakeerr.BufferTooSmall, "oscore: sender sequence number too large for a 5-byte Partial IV")
	}
	if len(idPIV) > nonceLen-6 {
		return nil, lakeerr.New(lakeerr.BufferTooSmall, "oscore: ID_PIV longer than nonce length allows")
	}

	buf := make([]byte, nonceLen)
	off := nonceLen - 6 - len(idPIV)
	buf[off] = byte(len(idPIV))
	copy(buf[off+1:], idPIV)
	copy(buf[nonceLen-len(piv):], piv) // left-padded into the trailing 5 bytes

	if len(commonIV) != nonceLen {
		return nil, lakeerr.New(lakeerr.BufferTooSmall, "oscore: common IV length does not match AEAD nonce length")
	}
	for i := range buf {
		buf[i] ^= commonIV[i]
	}
	return buf, nil
}

// buildAAD implements RFC8613 §5.4's AAD: the COSE Encrypt0 external_aad is
// itself a 5-element CBOR array (oscore_version, [aead_alg], request_kid,
// request_piv, class_I_options), and the final AAD is the 3-element
// Enc_structure ("Encrypt0", h'', external_aad) (RFC8613 §5.4).
func buildAAD(c *SecurityContext, requestKid []byte, requestSeq uint64, classIOptions []byte) []byte {
	var algArr bytes.Buffer
	cborcodec.WriteArrayHeader(&algArr, 1)
	cborcodec.WriteInt(&algArr, coseAEADAlg(c.AEAD))

	externalAAD := cborcodec.NewSeq().
		Int(1). // oscore_version
		Raw(algArr.Bytes()).
		Bytes(requestKid).
		Bytes(minimalBytes(requestSeq)).
		Bytes(classIOptions).
		Encode()

	var externalAADArr bytes.Buffer
	cborcodec.WriteArrayHeader(&externalAADArr, 5)
	// externalAAD above is already the 5 concatenated items, not wrapped
	// in its own array header; wrap it here so the whole thing is one
	// CBOR array as RFC8613 §5.4 requires.
	externalAADArr.Write(externalAAD)

	return cborcodec.NewSeq().
		Text("Encrypt0").
		Bytes(nil).
		Bytes(externalAADArr.Bytes()).
		Encode()
}

// Encrypt protects one CoAP-like message under ctx as sender, returning
// the AEAD ciphertext||tag to place in the OSCORE payload, the Partial IV
// to place in the OSCORE option, and the sequence number consumed. The
// AAD's request_kid/request_piv (RFC8613 §5.4) always identify the
// request side of the exchange: for a request that's this message's own
// sender id and the seq it is about to consume, so reqKid/reqSeq are
// ignored and may be zero; for a response they must be the kid/seq of
// the request it answers, supplied by the caller (the response encryptor
// has no other way to know them).
func Encrypt(ctx *SecurityContext, msg Message, isRequest bool, reqKid []byte, reqSeq uint64) (ciphertext []byte, piv []byte, seq uint64, err error) {
	start := time.Now()
	defer func() {
		metrics.OscoreMessageProcessingDuration.WithLabelValues("encrypt").Observe(time.Since(start).Seconds())
	}()

	seq = ctx.NextSenderSeq()
	part := Partition(msg, isRequest)

	var plain bytes.Buffer
	plain.WriteByte(part.InnerCode)
	plain.Write(EncodeOptions(part.InnerOptions))
	if len(msg.Payload) > 0 {
		plain.WriteByte(0xFF)
		plain.Write(msg.Payload)
	}

	nonce, err := buildNonce(ctx.CommonIV, ctx.SenderID, seq, ctx.Provider.NonceLen(ctx.AEAD))
	if err != nil {
		metrics.OscoreEncrypt.WithLabelValues("aead_error").Inc()
		return nil, nil, 0, err
	}
	if isRequest {
		reqKid, reqSeq = ctx.SenderID, seq
	}
	aad := buildAAD(ctx, reqKid, reqSeq, part.ClassIBytes)

	ct, err := ctx.Provider.AEADEncrypt(ctx.AEAD, ctx.SenderKey, nonce, aad, plain.Bytes())
	if err != nil {
		metrics.OscoreEncrypt.WithLabelValues("aead_error").Inc()
		logger.ErrorMsg("oscore: encrypt failed", logger.Error(err))
		return nil, nil, 0, lakeerr.Wrap(lakeerr.AeadAuth, "oscore: encrypt", err)
	}
	metrics.OscoreEncrypt.WithLabelValues("success").Inc()
	metrics.OscoreMessageSize.WithLabelValues("outbound").Observe(float64(len(ct)))
	return ct, minimalBytes(seq), seq, nil
}

// Decrypt reverses Encrypt: it derives the nonce from the sender's
// advertised seq (decoded from the wire Partial IV) and the AAD from
// reqKid/reqSeq (the request side of the exchange: senderID/seq
// themselves when isRequest, the original request's kid/seq supplied by
// the caller otherwise) and the outer Class I options, verifies and opens
// the ciphertext, then splits the recovered plaintext back into
// code/options/payload. It does not itself consult the replay window -
// callers MUST call SecurityContext.CheckAndAcceptReplay(seq) before
// Decrypt for inbound messages.
func Decrypt(ctx *SecurityContext, ciphertext []byte, senderID []byte, seq uint64, outerOptions []Option, classIOptions []byte, isRequest bool, reqKid []byte, reqSeq uint64) (Message, error) {
	start := time.Now()
	defer func() {
		metrics.OscoreMessageProcessingDuration.WithLabelValues("decrypt").Observe(time.Since(start).Seconds())
	}()
	metrics.OscoreMessageSize.WithLabelValues("inbound").Observe(float64(len(ciphertext)))

	nonce, err := buildNonce(ctx.CommonIV, senderID, seq, ctx.Provider.NonceLen(ctx.AEAD))
	if err != nil {
		metrics.OscoreDecrypt.WithLabelValues("malformed").Inc()
		return Message{}, err
	}
	if isRequest {
		reqKid, reqSeq = senderID, seq
	}
	aad := buildAAD(ctx, reqKid, reqSeq, classIOptions)

	plain, err := ctx.Provider.AEADDecrypt(ctx.AEAD, ctx.RecipientKey, nonce, aad, ciphertext)
	if err != nil {
		metrics.OscoreDecrypt.WithLabelValues("aead_auth_failed").Inc()
		logger.Warn("oscore: decrypt auth failed", logger.Error(err))
		return Message{}, lakeerr.Wrap(lakeerr.AeadAuth, "oscore: decrypt", err)
	}
	if len(plain) == 0 {
		metrics.OscoreDecrypt.WithLabelValues("malformed").Inc()
		return Message{}, lakeerr.New(lakeerr.CborTruncated, "oscore: decrypted plaintext missing code byte")
	}

	code := plain[0]
	rest := plain[1:]
	var innerOptions []Option
	var payload []byte
	if idx := bytes.IndexByte(rest, 0xFF); idx >= 0 {
		opts, _, derr := DecodeOptions(rest[:idx])
		if derr != nil {
			metrics.OscoreDecrypt.WithLabelValues("malformed").Inc()
			return Message{}, derr
		}
		innerOptions = opts
		payload = append([]byte{}, rest[idx+1:]...)
	} else {
		opts, _, derr := DecodeOptions(rest)
		if derr != nil {
			metrics.OscoreDecrypt.WithLabelValues("malformed").Inc()
			return Message{}, derr
		}
		innerOptions = opts
	}

	metrics.OscoreDecrypt.WithLabelValues("success").Inc()
	return Reassemble(outerOptions, code, innerOptions, payload), nil
}

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

// Package edhoc implements the EDHOC four-message authenticated key
// exchange: transcript hashes, the EDHOC key
// schedule, ciphertext split/join, and the initiator/responder state
// machines. It depends only on cipherprovider.Provider for primitives and
// cborcodec for wire encoding, mirroring how core/handshake/handshake.go
// keeps the handshake orchestration separate from any one crypto backend.
package edhoc

import (
	"github.com/sage-x-project/lake/cborcodec"
	"github.com/sage-x-project/lake/cipherprovider"
	"github.com/sage-x-project/lake/lakeerr"
)

// KDF labels, exhaustive
const (
	LabelK2     = 0
	LabelIV2    = 1
	LabelMAC2   = 2
	LabelK3     = 3
	LabelIV3    = 4
	LabelMAC3   = 5
	LabelK4     = 6
	LabelIV4    = 7
	LabelPRKOut = 7 // disambiguated by which PRK argument is passed

	// OSCORE_Master_Secret/Salt export labels, used to seed an OSCORE
	// security context at the end of a completed handshake.
	LabelOSCOREMasterSecret = 0
	LabelOSCOREMasterSalt   = 1
)

// TH2 computes TH_2 = H(G_Y || msg1).
func TH2(p cipherprovider.Provider, alg cipherprovider.HashAlg, gY, msg1 []byte) ([]byte, error) {
	buf := append(append([]byte{}, gY...), msg1...)
	h, err := p.Hash(alg, buf)
	if err != nil {
		return nil, lakeerr.Wrap(lakeerr.HashFailed, "TH_2", err)
	}
	return h, nil
}

// TH3 computes TH_3 = H(TH_2 || CIPHERTEXT_2).
func TH3(p cipherprovider.Provider, alg cipherprovider.HashAlg, th2, ciphertext2 []byte) ([]byte, error) {
	buf := append(append([]byte{}, th2...), ciphertext2...)
	h, err := p.Hash(alg, buf)
	if err != nil {
		return nil, lakeerr.Wrap(lakeerr.HashFailed, "TH_3", err)
	}
	return h, nil
}

// TH4 computes TH_4 = H(TH_3 || CIPHERTEXT_3).
func TH4(p cipherprovider.Provider, alg cipherprovider.HashAlg, th3, ciphertext3 []byte) ([]byte, error) {
	buf := append(append([]byte{}, th3...), ciphertext3...)
	h, err := p.Hash(alg, buf)
	if err != nil {
		return nil, lakeerr.Wrap(lakeerr.HashFailed, "TH_4", err)
	}
	return h, nil
}

// PRK2e computes PRK_2e = HKDF-Extract(salt = "", ikm = G_XY).
func PRK2e(p cipherprovider.Provider, alg cipherprovider.HashAlg, gXY []byte) ([]byte, error) {
	prk, err := p.HKDFExtract(alg, nil, gXY)
	if err != nil {
		return nil, lakeerr.Wrap(lakeerr.HashFailed, "PRK_2e", err)
	}
	return prk, nil
}

// PRK3e2m computes PRK_3e2m: PRK_2e itself when the responder
// authenticates by signature, or HKDF-Extract(salt=PRK_2e, ikm=G_RX)
// under static-DH authentication.
func PRK3e2m(p cipherprovider.Provider, alg cipherprovider.HashAlg, prk2e []byte, responderUsesStaticDH bool, gRX []byte) ([]byte, error) {
	if !responderUsesStaticDH {
		return prk2e, nil
	}
	prk, err := p.HKDFExtract(alg, prk2e, gRX)
	if err != nil {
		return nil, lakeerr.Wrap(lakeerr.HashFailed, "PRK_3e2m", err)
	}
	return prk, nil
}

// PRK4x3m computes PRK_4x3m, symmetric to PRK3e2m for the
// initiator's static-DH contribution.
func PRK4x3m(p cipherprovider.Provider, alg cipherprovider.HashAlg, prk3e2m []byte, initiatorUsesStaticDH bool, gIX []byte) ([]byte, error) {
	if !initiatorUsesStaticDH {
		return prk3e2m, nil
	}
	prk, err := p.HKDFExtract(alg, prk3e2m, gIX)
	if err != nil {
		return nil, lakeerr.Wrap(lakeerr.HashFailed, "PRK_4x3m", err)
	}
	return prk, nil
}

// KDF computes EDHOC-KDF(prk, label, context, len) = HKDF-Expand(prk,
// info, len) where info is the CBOR sequence (label:int, context:bstr,
// len:int).
func KDF(p cipherprovider.Provider, alg cipherprovider.HashAlg, prk []byte, label int, context []byte, length int) ([]byte, error) {
	info := cborcodec.NewSeq().Int(int64(label)).Bytes(context).Int(int64(length)).Encode()
	out, err := p.HKDFExpand(alg, prk, info, length)
	if err != nil {
		return nil, lakeerr.Wrap(lakeerr.HashFailed, "EDHOC-KDF", err)
	}
	return out, nil
}

// PRKOut computes PRK_out = EDHOC-KDF(PRK_4x3m, label=7, context=TH_4,
// len=hash_len).
func PRKOut(p cipherprovider.Provider, alg cipherprovider.HashAlg, prk4x3m, th4 []byte) ([]byte, error) {
	return KDF(p, alg, prk4x3m, LabelPRKOut, th4, p.HashLen(alg))
}

// OSCOREMasterSecret derives OSCORE_Master_Secret from PRK_out
//.
func OSCOREMasterSecret(p cipherprovider.Provider, alg cipherprovider.HashAlg, prkOut []byte, keyLen int) ([]byte, error) {
	return KDF(p, alg, prkOut, LabelOSCOREMasterSecret, nil, keyLen)
}

// OSCOREMasterSalt derives OSCORE_Master_Salt from PRK_out
//.
func OSCOREMasterSalt(p cipherprovider.Provider, alg cipherprovider.HashAlg, prkOut []byte, saltLen int) ([]byte, error) {
	return KDF(p, alg, prkOut, LabelOSCOREMasterSalt, nil, saltLen)
}

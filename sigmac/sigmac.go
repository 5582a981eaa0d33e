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

// Package sigmac implements the signature-or-MAC engine: computing and
// verifying signature_or_mac_2/3 for whichever of the
// signature or static-DH authentication methods a party uses, following
// COSE_Sign1 detached-payload semantics for the signature case.
package sigmac

import (
	"crypto/subtle"

	"github.com/sage-x-project/lake/cborcodec"
	"github.com/sage-x-project/lake/cipherprovider"
	"github.com/sage-x-project/lake/lakeerr"
)

// Context bundles the inputs to MAC_X = EDHOC-KDF(PRK, mac_label,
// context_X, mac_len) with context_X = CBOR_sequence(ID_CRED_X, TH_n,
// CRED_X, EAD_n?).
type Context struct {
	PRK      []byte
	MACLabel int
	MACLen   int
	IDCredX  []byte
	ThN      []byte
	CredX    []byte
	EADn     []byte // nil if absent
}

func (c Context) macContext() []byte {
	s := cborcodec.NewSeq().Raw(c.IDCredX).Bytes(c.ThN).Raw(c.CredX)
	if c.EADn != nil {
		s = s.Raw(c.EADn)
	}
	return s.Encode()
}

// MAC computes MAC_X = EDHOC-KDF(c.PRK, c.MACLabel, c.macContext(), c.MACLen).
// EDHOC-KDF is computed here rather than through package edhoc, which
// imports sigmac.
func MAC(p cipherprovider.Provider, alg cipherprovider.HashAlg, c Context) ([]byte, error) {
	info := cborcodec.NewSeq().Int(int64(c.MACLabel)).Bytes(c.macContext()).Int(int64(c.MACLen)).Encode()
	out, err := p.HKDFExpand(alg, c.PRK, info, c.MACLen)
	if err != nil {
		return nil, lakeerr.Wrap(lakeerr.HashFailed, "EDHOC-KDF", err)
	}
	return out, nil
}

// signature1ExternalAAD builds CBOR_sequence("Signature1", ID_CRED_X,
// TH_n, CRED_X, EAD_n?), the external_aad for the signature method.
func signature1ExternalAAD(c Context) []byte {
	s := cborcodec.NewSeq().Text("Signature1").Raw(c.IDCredX).Bytes(c.ThN).Raw(c.CredX)
	if c.EADn != nil {
		s = s.Raw(c.EADn)
	}
	return s.Encode()
}

// Compute produces signature_or_mac_X for party X. When
// usesSignature is true, X authenticates by signature: the result is
// Sign(sk, external_aad, payload=MAC_X) under COSE_Sign1 detached
// semantics (the external_aad is bound into the signature input but not
// itself signed-and-transmitted separately). When false (static-DH
// method), the result is MAC_X verbatim.
func Compute(p cipherprovider.Provider, hashAlg cipherprovider.HashAlg, sigAlg cipherprovider.SignatureAlg, sk []byte, c Context, usesSignature bool) ([]byte, error) {
	macX, err := MAC(p, hashAlg, c)
	if err != nil {
		return nil, err
	}
	if !usesSignature {
		return macX, nil
	}
	sigInput := append(signature1ExternalAAD(c), macX...)
	sig, err := p.Sign(sigAlg, sk, sigInput)
	if err != nil {
		return nil, lakeerr.Wrap(lakeerr.SignFailed, "signature_or_mac", err)
	}
	return sig, nil
}

// Verify inverts Compute: for the signature method, verifies signatureOrMAC
// against pk over the same COSE_Sign1-detached input; for the static-DH
// method, compares signatureOrMAC to the recomputed MAC_X in constant
// time. Mismatch yields AuthFailed.
func Verify(p cipherprovider.Provider, hashAlg cipherprovider.HashAlg, sigAlg cipherprovider.SignatureAlg, pk []byte, c Context, usesSignature bool, signatureOrMAC []byte) error {
	macX, err := MAC(p, hashAlg, c)
	if err != nil {
		return err
	}
	if !usesSignature {
		if subtle.ConstantTimeCompare(macX, signatureOrMAC) != 1 {
			return lakeerr.New(lakeerr.AuthFailed, "MAC mismatch")
		}
		return nil
	}
	sigInput := append(signature1ExternalAAD(c), macX...)
	ok, err := p.Verify(sigAlg, pk, sigInput, signatureOrMAC)
	if err != nil {
		return lakeerr.Wrap(lakeerr.VerifyFailed, "signature_or_mac verification", err)
	}
	if !ok {
		return lakeerr.New(lakeerr.AuthFailed, "signature verification failed")
	}
	return nil
}

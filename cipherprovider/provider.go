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

// Package cipherprovider is the abstract crypto-provider collaborator:
// pure, stateless functions over hash/HKDF/ECDH/signature/AEAD
// primitives. edhoc and oscore depend only on the Provider interface,
// never on a concrete curve or AEAD package directly, keeping the
// key-material abstraction separate from any one curve implementation.
package cipherprovider

// HashAlg identifies a hash function by EDHOC/COSE algorithm label.
type HashAlg int

const (
	HashSHA256 HashAlg = iota
	HashSHA384
	HashSHA512
)

// AEADAlg identifies an AEAD cipher by COSE algorithm label.
type AEADAlg int

const (
	AEADAES128CCM8 AEADAlg = iota
	AEADChaCha20Poly1305
	AEADAES256GCM
)

// ECDHCurve identifies a key-agreement curve.
type ECDHCurve int

const (
	CurveX25519 ECDHCurve = iota
	CurveP256
	CurveP384
)

// SignatureAlg identifies a signature scheme.
type SignatureAlg int

const (
	SignatureEd25519 SignatureAlg = iota
	SignatureES256
	SignatureES384
)

// Provider is the abstract crypto-provider collaborator. Every method is
// a pure function of its arguments; implementations must hold no session
// state and draw randomness only where ECDHKeypair's seed argument takes
// it - seed is the only source of randomness the core depends on.
type Provider interface {
	Hash(alg HashAlg, data []byte) ([]byte, error)
	HKDFExtract(alg HashAlg, salt, ikm []byte) ([]byte, error)
	HKDFExpand(alg HashAlg, prk, info []byte, length int) ([]byte, error)

	ECDHKeypair(curve ECDHCurve, seed []byte) (sk, pk []byte, err error)
	ECDHDerive(curve ECDHCurve, sk, pk []byte) ([]byte, error)

	Sign(alg SignatureAlg, sk, message []byte) ([]byte, error)
	Verify(alg SignatureAlg, pk, message, sig []byte) (bool, error)

	AEADEncrypt(alg AEADAlg, key, nonce, aad, plaintext []byte) ([]byte, error)
	AEADDecrypt(alg AEADAlg, key, nonce, aad, ciphertext []byte) ([]byte, error)

	// KeyLen reports the raw key length in bytes required by alg - used by
	// the key schedule to size HKDF-Expand outputs without the caller
	// hard-coding per-algorithm constants.
	KeyLen(alg AEADAlg) int
	// NonceLen reports the AEAD nonce length in bytes required by alg.
	NonceLen(alg AEADAlg) int
	// TagLen reports the AEAD authentication tag length in bytes.
	TagLen(alg AEADAlg) int
	// HashLen reports the digest length in bytes for alg.
	HashLen(alg HashAlg) int
	// PublicKeyLen reports the wire length of an uncompressed/raw public
	// key on curve - used to split G_Y_CIPHERTEXT_2.
	PublicKeyLen(curve ECDHCurve) int
}

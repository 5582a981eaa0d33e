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

// Package credential implements the credential resolver: mapping an
// ID_CRED identifier to its CRED and public key against a caller-supplied
// set of known credentials, plus a chain-tag extension that lets
// kid/x5t/c5t resolution be keyed against blockchain-anchored identities
// the way a multi-chain DID resolver dispatches per-chain lookups.
package credential

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/sha512"
	"time"

	"github.com/sage-x-project/lake/internal/metrics"
	"github.com/sage-x-project/lake/lakeerr"
)

// Label identifies which ID_CRED header label is present. Exactly one
// must be set
type Label int

const (
	LabelKid Label = iota
	LabelX5Bag
	LabelX5Chain
	LabelX5T
	LabelX5U
	LabelC5B
	LabelC5C
	LabelC5T
	LabelC5U
)

// ChainTag selects which equality/derivation rule kid/x5t/c5t resolution
// uses. ChainNone is the plain opaque-byte-id case; ChainEthereum/ChainSolana
// are additive.
type ChainTag int

const (
	ChainNone ChainTag = iota
	ChainEthereum
	ChainSolana
)

// HashAlg names the digest algorithm declared alongside an x5t/c5t value.
type HashAlg int

const (
	HashSHA256 HashAlg = iota
	HashSHA384
	HashSHA512
)

// IDCred is a decoded ID_CRED map: exactly one label's value is
// populated ("Exactly one label MUST be present").
type IDCred struct {
	Label Label
	Chain ChainTag

	Kid      []byte
	X5T      []byte
	X5TAlg   HashAlg
	X5Chain  []byte // chain_bytes, passed to VerifyCertificateChain
}

// Known is one entry in the caller-supplied credential set a Resolver
// resolves against.
type Known struct {
	Kid   []byte
	Chain ChainTag
	Cred  []byte // encoded CRED (CCS/X.509/C509)
	PK    []byte // the credential's public key, pre-extracted
}

// CertChainVerifier is the out-of-scope `verify_certificate_chain`
// primitive: parses chain_bytes against trust anchors and
// returns the leaf CRED plus its public key.
type CertChainVerifier interface {
	VerifyCertificateChain(ctx context.Context, chainBytes []byte, trustAnchors [][]byte) (cred, pk []byte, err error)
}

// Resolver maps ID_CRED identifiers to credentials, with concurrent
// identical lookups coalesced via singleflight so that a slow
// VerifyCertificateChain call made by two sessions handshaking against
// the same peer at once runs only once.
type Resolver struct {
	known        []Known
	trustAnchors [][]byte
	verifier     CertChainVerifier
	group        callGroup
}

// NewResolver builds a resolver over a fixed, caller-supplied credential
// set. known and trustAnchors are copied by reference and must not be
// mutated concurrently with Resolve calls.
func NewResolver(known []Known, trustAnchors [][]byte, verifier CertChainVerifier) *Resolver {
	return &Resolver{known: known, trustAnchors: trustAnchors, verifier: verifier}
}

type resolved struct {
	cred []byte
	pk   []byte
}

// Resolve maps idCred to its CRED and public key. Resolution
// is idempotent: the same ID_CRED always yields the
// same (CRED, pk) or the same error kind.
func (r *Resolver) Resolve(ctx context.Context, idCred IDCred) (cred, pk []byte, err error) {
	start := time.Now()
	key := coalesceKey(idCred)
	v, shared, err := r.group.Do(key, func() (any, error) {
		cred, pk, err := r.resolveOnce(ctx, idCred)
		if err != nil {
			return nil, err
		}
		return resolved{cred: cred, pk: pk}, nil
	})
	metrics.GetGlobalCollector().RecordCredentialResolve(shared, time.Since(start))
	if err != nil {
		return nil, nil, err
	}
	res := v.(resolved)
	return res.cred, res.pk, nil
}

func (r *Resolver) resolveOnce(ctx context.Context, idCred IDCred) ([]byte, []byte, error) {
	switch idCred.Label {
	case LabelKid:
		return r.resolveByKid(idCred.Kid, idCred.Chain)
	case LabelX5T, LabelC5T:
		return r.resolveByDigest(idCred.X5T, idCred.X5TAlg, idCred.Chain)
	case LabelX5Chain, LabelX5Bag, LabelC5C, LabelC5B:
		if r.verifier == nil {
			return nil, nil, lakeerr.New(lakeerr.CredFetchUnsupported, "no certificate chain verifier configured")
		}
		cred, pk, err := r.verifier.VerifyCertificateChain(ctx, idCred.X5Chain, r.trustAnchors)
		if err != nil {
			return nil, nil, lakeerr.Wrap(lakeerr.CertInvalid, "certificate chain verification failed", err)
		}
		return cred, pk, nil
	case LabelX5U, LabelC5U:
		return nil, nil, lakeerr.New(lakeerr.CredFetchUnsupported, "x5u/c5u credential fetch is out of scope")
	default:
		return nil, nil, lakeerr.New(lakeerr.CredNotFound, "unrecognised ID_CRED label")
	}
}

func (r *Resolver) resolveByKid(kid []byte, chain ChainTag) ([]byte, []byte, error) {
	var match *Known
	for i := range r.known {
		k := &r.known[i]
		if k.Chain != chain {
			continue
		}
		if !kidMatches(chain, k.Kid, kid) {
			continue
		}
		if match != nil {
			return nil, nil, lakeerr.New(lakeerr.CredAmbiguous, "multiple credentials match kid")
		}
		match = k
	}
	if match == nil {
		return nil, nil, lakeerr.New(lakeerr.CredNotFound, "no credential matches kid")
	}
	return match.Cred, match.PK, nil
}

// kidMatches compares kid bytes for equality. The chain tag has already
// partitioned the candidate set by resolveByKid's caller; canonicalising
// an Ethereum address or Solana key into its comparable form (lowercase
// hex, base58-decoded, etc.) is the caller's responsibility when building
// Known.Kid, so this only compares raw bytes.
func kidMatches(chain ChainTag, known, candidate []byte) bool {
	return bytes.Equal(known, candidate)
}

func (r *Resolver) resolveByDigest(digest []byte, alg HashAlg, chain ChainTag) ([]byte, []byte, error) {
	var match *Known
	for i := range r.known {
		k := &r.known[i]
		if k.Chain != chain {
			continue
		}
		h, err := hashCred(alg, k.Cred)
		if err != nil {
			return nil, nil, err
		}
		if !bytes.Equal(h, digest) {
			continue
		}
		if match != nil {
			return nil, nil, lakeerr.New(lakeerr.CredAmbiguous, "multiple credentials match digest")
		}
		match = k
	}
	if match == nil {
		return nil, nil, lakeerr.New(lakeerr.CredNotFound, "no credential matches digest")
	}
	return match.Cred, match.PK, nil
}

func hashCred(alg HashAlg, cred []byte) ([]byte, error) {
	switch alg {
	case HashSHA256:
		h := sha256.Sum256(cred)
		return h[:], nil
	case HashSHA384:
		h := sha512.Sum384(cred)
		return h[:], nil
	case HashSHA512:
		h := sha512.Sum512(cred)
		return h[:], nil
	default:
		return nil, lakeerr.New(lakeerr.UnsupportedSuite, "unsupported digest algorithm for x5t/c5t")
	}
}

func coalesceKey(idCred IDCred) string {
	var b []byte
	b = append(b, byte(idCred.Label), byte(idCred.Chain))
	switch idCred.Label {
	case LabelKid:
		b = append(b, idCred.Kid...)
	case LabelX5T, LabelC5T:
		b = append(b, byte(idCred.X5TAlg))
		b = append(b, idCred.X5T...)
	case LabelX5Chain, LabelX5Bag, LabelC5C, LabelC5B:
		b = append(b, idCred.X5Chain...)
	}
	return string(b)
}

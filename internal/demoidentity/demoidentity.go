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

// Package demoidentity generates throwaway EDHOC identities for the CLI
// demo tools. A real deployment loads Identity.SK from a long-term key
// store; these commands have no such store, so they mint a fresh keypair
// per run and print the resulting kid and public key for the peer to pass
// as its --peer-kid and --peer-pk flags.
package demoidentity

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/sage-x-project/lake/cipherprovider"
	"github.com/sage-x-project/lake/credential"
	"github.com/sage-x-project/lake/edhoc"
)

// Party bundles a generated Identity with the credential.Known entry a
// peer's Resolver needs in order to recognise it.
type Party struct {
	Identity edhoc.Identity
	Known    credential.Known
}

// Generate mints a fresh identity for suite, authenticated the way
// staticDH selects. kid is this party's credential.Known.Kid - callers
// typically use a single distinguishing byte such as 0x01/0x02 for a
// two-party demo.
func Generate(p cipherprovider.Provider, suite edhoc.SuiteParams, staticDH bool, kid []byte) (Party, error) {
	if staticDH {
		return generateStaticDH(p, suite, kid)
	}
	return generateSignature(suite, kid)
}

func generateSignature(suite edhoc.SuiteParams, kid []byte) (Party, error) {
	if suite.Signature != cipherprovider.SignatureEd25519 {
		return Party{}, fmt.Errorf("demoidentity: signature alg %d has no key generator wired up", suite.Signature)
	}
	pk, sk, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return Party{}, fmt.Errorf("demoidentity: generate ed25519 key: %w", err)
	}

	idCredRaw := credential.EncodeIDCred(credential.IDCred{Label: credential.LabelKid, Kid: kid})
	return Party{
		Identity: edhoc.Identity{
			StaticDH:  false,
			SK:        sk,
			PK:        pk,
			IDCredRaw: idCredRaw,
			CredRaw:   pk,
		},
		Known: credential.Known{Kid: kid, Cred: pk, PK: pk},
	}, nil
}

func generateStaticDH(p cipherprovider.Provider, suite edhoc.SuiteParams, kid []byte) (Party, error) {
	seed := make([]byte, 32)
	if _, err := rand.Read(seed); err != nil {
		return Party{}, fmt.Errorf("demoidentity: draw ecdh seed: %w", err)
	}
	sk, pk, err := p.ECDHKeypair(suite.ECDH, seed)
	if err != nil {
		return Party{}, fmt.Errorf("demoidentity: generate static dh key: %w", err)
	}

	idCredRaw := credential.EncodeIDCred(credential.IDCred{Label: credential.LabelKid, Kid: kid})
	return Party{
		Identity: edhoc.Identity{
			StaticDH:  true,
			SK:        sk,
			PK:        pk,
			IDCredRaw: idCredRaw,
			CredRaw:   pk,
		},
		Known: credential.Known{Kid: kid, Cred: pk, PK: pk},
	}, nil
}

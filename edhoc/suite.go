package edhoc

import (
	"github.com/sage-x-project/lake/cipherprovider"
	"github.com/sage-x-project/lake/lakeerr"
)

// SuiteParams resolves a cipher-suite label to the concrete primitives it
// selects: one of the labels 0-6 defined by draft-ietf-lake-edhoc-15.
type SuiteParams struct {
	Label     int
	AEAD      cipherprovider.AEADAlg
	Hash      cipherprovider.HashAlg
	ECDH      cipherprovider.ECDHCurve
	Signature cipherprovider.SignatureAlg
}

// suiteTable is the fixed label -> primitive mapping for all suites 0-6.
// It is not narrowed to what cipherprovider.Default implements: suites
// needing AES-CCM-8 or ES256/ES384 resolve here but fail later in the
// Provider (see DESIGN.md known gaps).
var suiteTable = map[int]SuiteParams{
	0: {Label: 0, AEAD: cipherprovider.AEADAES128CCM8, Hash: cipherprovider.HashSHA256, ECDH: cipherprovider.CurveX25519, Signature: cipherprovider.SignatureEd25519},
	1: {Label: 1, AEAD: cipherprovider.AEADAES256GCM, Hash: cipherprovider.HashSHA256, ECDH: cipherprovider.CurveX25519, Signature: cipherprovider.SignatureEd25519},
	2: {Label: 2, AEAD: cipherprovider.AEADAES128CCM8, Hash: cipherprovider.HashSHA256, ECDH: cipherprovider.CurveP256, Signature: cipherprovider.SignatureES256},
	3: {Label: 3, AEAD: cipherprovider.AEADAES256GCM, Hash: cipherprovider.HashSHA256, ECDH: cipherprovider.CurveP256, Signature: cipherprovider.SignatureES256},
	4: {Label: 4, AEAD: cipherprovider.AEADChaCha20Poly1305, Hash: cipherprovider.HashSHA256, ECDH: cipherprovider.CurveX25519, Signature: cipherprovider.SignatureEd25519},
	5: {Label: 5, AEAD: cipherprovider.AEADAES256GCM, Hash: cipherprovider.HashSHA384, ECDH: cipherprovider.CurveP384, Signature: cipherprovider.SignatureES384},
	6: {Label: 6, AEAD: cipherprovider.AEADChaCha20Poly1305, Hash: cipherprovider.HashSHA512, ECDH: cipherprovider.CurveX25519, Signature: cipherprovider.SignatureEd25519},
}

// ResolveSuite looks up the primitives for label, failing with
// UnsupportedSuite if this core does not carry that label.
func ResolveSuite(label int) (SuiteParams, error) {
	sp, ok := suiteTable[label]
	if !ok {
		return SuiteParams{}, lakeerr.New(lakeerr.UnsupportedSuite, "suite label not supported by this core")
	}
	return sp, nil
}

// SelectSuite implements the responder half of suite
// negotiation: given the initiator's proposal suitesI and this
// responder's supported labels suitesR (most-preferred last), returns the
// agreed suite, or a SuiteMismatch error carrying suitesR when
// SUITES_I[last] isn't supported but something earlier in SUITES_I is.
func SelectSuite(suitesI []int, suitesR []int) (int, error) {
	last := suitesI[len(suitesI)-1]
	if containsInt(suitesR, last) {
		return last, nil
	}
	for _, s := range suitesI[:len(suitesI)-1] {
		if containsInt(suitesR, s) {
			return 0, lakeerr.SuiteMismatchErr(suitesR)
		}
	}
	return 0, lakeerr.New(lakeerr.UnsupportedSuite, "no overlap between SUITES_I and SUITES_R")
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

package edhoc

import (
	"testing"

	"github.com/sage-x-project/lake/cborcodec"
	"github.com/sage-x-project/lake/cipherprovider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kidIDCred(kid byte) []byte {
	// {4: h'<kid>'} - a one-entry ID_CRED map keyed by the kid label (4).
	return cborcodec.NewSeq().Raw([]byte{0xa1}).Int(4).Bytes([]byte{kid}).Encode()
}

func TestCiphertext2RoundTrip(t *testing.T) {
	p := cipherprovider.New()
	alg := cipherprovider.HashSHA256
	prk2e := make([]byte, p.HashLen(alg))
	th2 := []byte("TH_2-value")

	pt := Plaintext2{
		CR:              ConnID{IsInt: true, Int: 7},
		IDCredR:         kidIDCred(0x01),
		SignatureOrMAC2: []byte("signature-or-mac-2-bytes"),
		EAD2:            []EADItem{{Label: 2, Value: []byte("ead")}},
	}

	ct, err := EncryptCiphertext2(p, alg, prk2e, th2, pt)
	require.NoError(t, err)
	assert.NotEqual(t, pt.encode(), ct)

	got, err := DecryptCiphertext2(p, alg, prk2e, th2, ct)
	require.NoError(t, err)
	assert.Equal(t, pt.CR, got.CR)
	assert.Equal(t, pt.IDCredR, got.IDCredR)
	assert.Equal(t, pt.SignatureOrMAC2, got.SignatureOrMAC2)
	require.Len(t, got.EAD2, 1)
	assert.Equal(t, pt.EAD2[0].Value, got.EAD2[0].Value)
}

func TestCiphertextNRoundTrip(t *testing.T) {
	p := cipherprovider.New()
	aeadAlg := cipherprovider.AEADChaCha20Poly1305
	kN := make([]byte, p.KeyLen(aeadAlg))
	ivN := make([]byte, p.NonceLen(aeadAlg))
	th := []byte("TH_3-value")

	pt := PlaintextN{
		IDCredX:        kidIDCred(0x02),
		SignatureOrMAC: []byte("signature-or-mac-3-bytes"),
	}

	ct, err := EncryptCiphertextN(p, aeadAlg, kN, ivN, th, pt)
	require.NoError(t, err)

	got, err := DecryptCiphertextN(p, aeadAlg, kN, ivN, th, ct)
	require.NoError(t, err)
	assert.Equal(t, pt.IDCredX, got.IDCredX)
	assert.Equal(t, pt.SignatureOrMAC, got.SignatureOrMAC)
}

func TestCiphertextNRejectsTamperedAAD(t *testing.T) {
	p := cipherprovider.New()
	aeadAlg := cipherprovider.AEADChaCha20Poly1305
	kN := make([]byte, p.KeyLen(aeadAlg))
	ivN := make([]byte, p.NonceLen(aeadAlg))

	pt := PlaintextN{IDCredX: kidIDCred(0x03), SignatureOrMAC: []byte("mac")}
	ct, err := EncryptCiphertextN(p, aeadAlg, kN, ivN, []byte("TH_3"), pt)
	require.NoError(t, err)

	_, err = DecryptCiphertextN(p, aeadAlg, kN, ivN, []byte("TH_3-different"), ct)
	require.Error(t, err)
}

package sigmac

import (
	"crypto/ed25519"
	"testing"

	"github.com/sage-x-project/lake/cipherprovider"
	"github.com/sage-x-project/lake/lakeerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext(prk []byte) Context {
	return Context{
		PRK:      prk,
		MACLabel: 2, // EDHOC label MAC_2
		MACLen:   16,
		IDCredX:  []byte{0xa1, 0x04, 0x41, 0x01}, // {4: h'01'} kid map, arbitrary bytes for this test
		ThN:      []byte("transcript-hash"),
		CredX:    []byte("encoded-credential"),
	}
}

func TestComputeVerifyStaticDHMethod(t *testing.T) {
	p := cipherprovider.New()
	prk := make([]byte, p.HashLen(cipherprovider.HashSHA256))
	c := testContext(prk)

	som, err := Compute(p, cipherprovider.HashSHA256, 0, nil, c, false)
	require.NoError(t, err)

	err = Verify(p, cipherprovider.HashSHA256, 0, nil, c, false, som)
	require.NoError(t, err)
}

func TestVerifyStaticDHMethodRejectsTamperedMAC(t *testing.T) {
	p := cipherprovider.New()
	prk := make([]byte, p.HashLen(cipherprovider.HashSHA256))
	c := testContext(prk)

	som, err := Compute(p, cipherprovider.HashSHA256, 0, nil, c, false)
	require.NoError(t, err)
	som[0] ^= 0xff

	err = Verify(p, cipherprovider.HashSHA256, 0, nil, c, false, som)
	require.Error(t, err)
	assert.True(t, lakeerr.Of(err, lakeerr.AuthFailed))
}

func TestComputeVerifySignatureMethod(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	p := cipherprovider.New()
	prk := make([]byte, p.HashLen(cipherprovider.HashSHA256))
	c := testContext(prk)

	som, err := Compute(p, cipherprovider.HashSHA256, cipherprovider.SignatureEd25519, priv, c, true)
	require.NoError(t, err)

	err = Verify(p, cipherprovider.HashSHA256, cipherprovider.SignatureEd25519, pub, c, true, som)
	require.NoError(t, err)
}

func TestVerifySignatureMethodRejectsWrongKey(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	otherPub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	p := cipherprovider.New()
	prk := make([]byte, p.HashLen(cipherprovider.HashSHA256))
	c := testContext(prk)

	som, err := Compute(p, cipherprovider.HashSHA256, cipherprovider.SignatureEd25519, priv, c, true)
	require.NoError(t, err)

	err = Verify(p, cipherprovider.HashSHA256, cipherprovider.SignatureEd25519, otherPub, c, true, som)
	require.Error(t, err)
	assert.True(t, lakeerr.Of(err, lakeerr.AuthFailed))
}

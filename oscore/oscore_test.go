package oscore_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sage-x-project/lake/cipherprovider"
	"github.com/sage-x-project/lake/lakeerr"
	"github.com/sage-x-project/lake/oscore"
)

func newPairedContexts(t *testing.T) (client, server *oscore.SecurityContext) {
	t.Helper()
	p := cipherprovider.New()
	masterSecret := make([]byte, 16)
	for i := range masterSecret {
		masterSecret[i] = byte(i + 1)
	}
	masterSalt := []byte{0x9e, 0x7c, 0xa9, 0x22, 0x23, 0x78, 0x63, 0x40}

	clientID := []byte{0x01}
	serverID := []byte{}

	var err error
	client, err = oscore.NewSecurityContext(p, cipherprovider.AEADChaCha20Poly1305, cipherprovider.HashSHA256,
		masterSecret, masterSalt, clientID, serverID, nil, 32)
	require.NoError(t, err)
	server, err = oscore.NewSecurityContext(p, cipherprovider.AEADChaCha20Poly1305, cipherprovider.HashSHA256,
		masterSecret, masterSalt, serverID, clientID, nil, 32)
	require.NoError(t, err)

	// The two contexts are mirror images: a sends with what b receives with.
	require.Equal(t, client.SenderKey, server.RecipientKey)
	require.Equal(t, client.RecipientKey, server.SenderKey)
	require.Equal(t, client.CommonIV, server.CommonIV)
	return client, server
}

// TestRoundTripRequestResponse exercises invariant 5: a request
// encrypted by the client and decrypted by the server, and the matching
// response encrypted by the server and decrypted by the client, both
// recovering the original code/options/payload.
func TestRoundTripRequestResponse(t *testing.T) {
	client, server := newPairedContexts(t)

	req := oscore.Message{
		Code: 0x01, // GET
		Options: []oscore.Option{
			{Number: oscore.OptionUriPath, Value: []byte("sensors")},
			{Number: oscore.OptionAccept, Value: []byte{0x28}},
		},
		Payload: nil,
	}

	ct, piv, seq, err := oscore.Encrypt(client, req, true, nil, 0)
	require.NoError(t, err)
	require.NotEmpty(t, piv)
	require.Equal(t, uint64(0), seq)

	require.NoError(t, server.CheckAndAcceptReplay(seq))
	outer := []oscore.Option{{Number: oscore.OptionOSCORE, Value: piv}}
	got, err := oscore.Decrypt(server, ct, client.SenderID, seq, outer, nil, true, nil, 0)
	require.NoError(t, err)
	require.Equal(t, req.Code, got.Code)
	require.ElementsMatch(t, req.Options, got.Options)

	resp := oscore.Message{
		Code:    0x45, // 2.05 Content
		Payload: []byte(`{"temp":21.5}`),
	}
	rct, rpiv, rseq, err := oscore.Encrypt(server, resp, false, client.SenderID, seq)
	require.NoError(t, err)

	require.NoError(t, client.CheckAndAcceptReplay(rseq))
	rOuter := []oscore.Option{{Number: oscore.OptionOSCORE, Value: rpiv}}
	gotResp, err := oscore.Decrypt(client, rct, server.SenderID, rseq, rOuter, nil, false, client.SenderID, seq)
	require.NoError(t, err)
	require.Equal(t, resp.Code, gotResp.Code)
	require.Equal(t, resp.Payload, gotResp.Payload)
}

// TestDecryptFailsOnTamperedCiphertext exercises the AEAD-auth half of
// invariant 5: a single flipped ciphertext byte must fail to decrypt.
func TestDecryptFailsOnTamperedCiphertext(t *testing.T) {
	client, server := newPairedContexts(t)

	msg := oscore.Message{Code: 0x01, Payload: []byte("hello")}
	ct, piv, seq, err := oscore.Encrypt(client, msg, true, nil, 0)
	require.NoError(t, err)

	tampered := append([]byte{}, ct...)
	tampered[0] ^= 0xFF

	require.NoError(t, server.CheckAndAcceptReplay(seq))
	_, err = oscore.Decrypt(server, tampered, client.SenderID, seq, nil, nil, true, nil, 0)
	require.Error(t, err)
	require.True(t, lakeerr.Of(err, lakeerr.AeadAuth))
	_ = piv
}

// TestReplayWindowSequence reproduces a replay scenario: delivering seq
// 0,1,2,2,33,3,1 to a fresh 32-bit window must accept 0,1,2,33,3 and
// reject the repeat of 2 and the now-stale 1.
func TestReplayWindowSequence(t *testing.T) {
	w := oscore.NewReplayWindow(32)

	accept := func(seq uint64) bool { return w.Accept(seq) }

	require.True(t, accept(0))
	require.True(t, accept(1))
	require.True(t, accept(2))
	require.False(t, accept(2)) // duplicate
	require.True(t, accept(33)) // jumps the window forward, top=33
	require.True(t, accept(3))  // top-seq=30, still inside the 32-bit window and unset
	require.False(t, accept(1)) // top-seq=32, now outside the window: stale
}

func TestReplayWindowRejectsZeroTwice(t *testing.T) {
	w := oscore.NewReplayWindow(8)
	require.True(t, w.IsValid(0))
	require.True(t, w.Accept(0))
	require.False(t, w.IsValid(0))
	require.False(t, w.Accept(0))
}

// TestPartitionReassembleRoundTrip exercises invariant 4: every option
// lands in exactly one of {inner, outer, AAD-only}, and Reassemble
// recovers the original option set (modulo the Observe special case).
func TestPartitionReassembleRoundTrip(t *testing.T) {
	msg := oscore.Message{
		Code: 0x01,
		Options: []oscore.Option{
			{Number: oscore.OptionUriHost, Value: []byte("example.com")}, // ClassU
			{Number: oscore.OptionUriPath, Value: []byte("a")},           // ClassE
			{Number: oscore.OptionIfMatch, Value: []byte{0x01}},          // ClassE
		},
		Payload: []byte("body"),
	}

	part := oscore.Partition(msg, true)
	require.Len(t, part.OuterOptions, 1)
	require.Len(t, part.InnerOptions, 2)
	require.Empty(t, part.ClassIBytes)

	outer := append([]oscore.Option{}, part.OuterOptions...)
	got := oscore.Reassemble(outer, part.InnerCode, part.InnerOptions, msg.Payload)
	require.Equal(t, msg.Code, got.Code)
	require.ElementsMatch(t, msg.Options, got.Options)
	require.Equal(t, msg.Payload, got.Payload)
}

// TestPartitionObserveRequestKeepsBothCopies exercises the Observe special
// case: on a request, the same value rides both inner and
// outer.
func TestPartitionObserveRequestKeepsBothCopies(t *testing.T) {
	msg := oscore.Message{
		Code:    0x01,
		Options: []oscore.Option{{Number: oscore.OptionObserve, Value: []byte{0x00}}},
	}
	part := oscore.Partition(msg, true)
	require.Equal(t, []byte{0x00}, part.InnerOptions[0].Value)
	require.Equal(t, []byte{0x00}, part.OuterOptions[0].Value)
}

// TestPartitionObserveResponseSplitsValue exercises the response half of
// the Observe special case: outer carries the real value, inner carries an
// empty placeholder, and OuterCode leaves the original notification code
// untouched.
func TestPartitionObserveResponseSplitsValue(t *testing.T) {
	msg := oscore.Message{
		Code:    0x45, // 2.05 Content
		Options: []oscore.Option{{Number: oscore.OptionObserve, Value: []byte{0x07}}},
	}
	part := oscore.Partition(msg, false)
	require.Empty(t, part.InnerOptions[0].Value)
	require.Equal(t, []byte{0x07}, part.OuterOptions[0].Value)
	require.Equal(t, msg.Code, oscore.OuterCode(msg, false))
}

func TestOuterCodeRewrite(t *testing.T) {
	require.Equal(t, byte(oscore.CodeFETCH), oscore.OuterCode(oscore.Message{Code: 0x01}, true))
	require.Equal(t, byte(oscore.CodeChanged), oscore.OuterCode(oscore.Message{Code: 0x45}, false))
}

func TestCoapOptionCodecRoundTrip(t *testing.T) {
	opts := []oscore.Option{
		{Number: oscore.OptionUriPath, Value: []byte("long-path-segment-value")},
		{Number: 300, Value: []byte{0x01, 0x02}}, // forces the 2-byte extended delta
		{Number: oscore.OptionIfMatch, Value: []byte{}},
	}
	encoded := oscore.EncodeOptions(opts)
	decoded, payload, err := oscore.DecodeOptions(encoded)
	require.NoError(t, err)
	require.Nil(t, payload)
	require.ElementsMatch(t, opts, decoded)
}

package edhoc

import (
	"testing"

	"github.com/sage-x-project/lake/lakeerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMsg1RoundTripSingleSuite(t *testing.T) {
	m := Msg1{
		Method:  0,
		SuitesI: Suites{Single: true, List: []int{0}},
		GX:      []byte("ephemeral-pub-X-32-bytes-long..."),
		CI:      ConnID{IsInt: true, Int: 12},
	}
	got, err := DecodeMsg1(m.Encode())
	require.NoError(t, err)
	assert.Equal(t, m.Method, got.Method)
	assert.Equal(t, m.SuitesI, got.SuitesI)
	assert.Equal(t, m.GX, got.GX)
	assert.Equal(t, m.CI, got.CI)
}

func TestMsg1RoundTripSuiteList(t *testing.T) {
	m := Msg1{
		Method:  0,
		SuitesI: Suites{List: []int{0, 2, 6}},
		GX:      []byte("ephemeral-pub-X"),
		CI:      ConnID{Bytes: []byte{0x2a}},
		EAD1:    []EADItem{{Label: 5, Value: []byte("ead-value")}},
	}
	got, err := DecodeMsg1(m.Encode())
	require.NoError(t, err)
	assert.Equal(t, m.SuitesI, got.SuitesI)
	assert.Equal(t, 6, got.SuitesI.Last())
	require.Len(t, got.EAD1, 1)
	assert.Equal(t, m.EAD1[0].Label, got.EAD1[0].Label)
	assert.Equal(t, m.EAD1[0].Value, got.EAD1[0].Value)
}

func TestEADCriticalBitRoundTrips(t *testing.T) {
	items := []EADItem{{Label: 3, Value: []byte("v"), Critical: true}}
	m := Msg1{
		Method:  0,
		SuitesI: Suites{Single: true, List: []int{0}},
		GX:      []byte("x"),
		CI:      ConnID{IsInt: true, Int: 1},
		EAD1:    items,
	}
	got, err := DecodeMsg1(m.Encode())
	require.NoError(t, err)
	require.Len(t, got.EAD1, 1)
	assert.True(t, got.EAD1[0].Critical)
	assert.Equal(t, 3, got.EAD1[0].Label)
}

func TestMsg2RoundTripAndSplit(t *testing.T) {
	gY := []byte("0123456789012345678901234567890x") // 32 bytes, arbitrary test length
	ciphertext2 := []byte("ciphertext-2-bytes")
	m := Msg2{GYCiphertext2: append(append([]byte{}, gY...), ciphertext2...), CR: ConnID{IsInt: true, Int: 5}}

	got, err := DecodeMsg2(m.Encode())
	require.NoError(t, err)
	assert.Equal(t, m.GYCiphertext2, got.GYCiphertext2)
	assert.Equal(t, m.CR, got.CR)

	splitGY, splitCT, err := SplitGYCiphertext2(len(gY), got.GYCiphertext2)
	require.NoError(t, err)
	assert.Equal(t, gY, splitGY)
	assert.Equal(t, ciphertext2, splitCT)
}

func TestMsg3AndMsg4RoundTrip(t *testing.T) {
	m3 := Msg3{Ciphertext3: []byte("ciphertext-3")}
	got3, err := DecodeMsg3(m3.Encode())
	require.NoError(t, err)
	assert.Equal(t, m3.Ciphertext3, got3.Ciphertext3)

	m4 := Msg4{Ciphertext4: []byte("ciphertext-4")}
	enc4 := m4.Encode()
	got4, err := DecodeMsg4(enc4, len(enc4))
	require.NoError(t, err)
	assert.Equal(t, m4.Ciphertext4, got4.Ciphertext4)

	_, err = DecodeMsg4(enc4, len(enc4)-1)
	require.Error(t, err)
	assert.True(t, lakeerr.Of(err, lakeerr.BufferTooSmall))
}

func TestErrorMsgWrongCipherSuiteRoundTrip(t *testing.T) {
	e := ErrorMsg{Code: ErrCodeWrongCipherSuite, SuitesR: Suites{List: []int{0, 2}}}
	got, err := DecodeErrorMsg(e.Encode())
	require.NoError(t, err)
	assert.Equal(t, ErrCodeWrongCipherSuite, got.Code)
	assert.Equal(t, []int{0, 2}, got.SuitesR.List)
}

func TestErrorMsgUnspecifiedRoundTrip(t *testing.T) {
	e := ErrorMsg{Code: ErrCodeUnspecified, Info: []byte("opaque detail")}
	got, err := DecodeErrorMsg(e.Encode())
	require.NoError(t, err)
	assert.Equal(t, ErrCodeUnspecified, got.Code)
	assert.Equal(t, e.Info, got.Info)
}

package edhoc

import (
	"bytes"
	"encoding/hex"
	"strconv"

	"github.com/sage-x-project/lake/cborcodec"
	"github.com/sage-x-project/lake/lakeerr"
)

// ConnID is the `C_X:(int|bstr)` tagged union: a connection
// identifier that is either a small int or an opaque byte string.
type ConnID struct {
	IsInt bool
	Int   int64
	Bytes []byte
}

// String renders c for logging: the decimal form for an int C_X, or hex
// for a byte-string one.
func (c ConnID) String() string {
	if c.IsInt {
		return strconv.FormatInt(c.Int, 10)
	}
	return hex.EncodeToString(c.Bytes)
}

func encodeConnID(seq *cborcodec.Seq, c ConnID) *cborcodec.Seq {
	if c.IsInt {
		return seq.Int(c.Int)
	}
	return seq.Bytes(c.Bytes)
}

func decodeConnID(r *cborcodec.Reader) (ConnID, error) {
	isInt, err := r.ReadTaggedUnion()
	if err != nil {
		return ConnID{}, err
	}
	if isInt {
		v, err := r.ReadInt()
		if err != nil {
			return ConnID{}, err
		}
		return ConnID{IsInt: true, Int: v}, nil
	}
	b, err := r.ReadBytes()
	if err != nil {
		return ConnID{}, err
	}
	return ConnID{Bytes: b}, nil
}

// Suites is the `(int|[int+])` tagged union: either a single
// suite label, or a non-empty ordered list of them ending in the
// initiator's most-preferred suite, per the negotiation rules.
type Suites struct {
	Single bool
	List   []int
}

// Last returns the trailing (most-preferred) suite label.
func (s Suites) Last() int {
	if s.Single {
		return s.List[0]
	}
	return s.List[len(s.List)-1]
}

// Contains reports whether suite is present anywhere in s.
func (s Suites) Contains(suite int) bool {
	for _, v := range s.List {
		if v == suite {
			return true
		}
	}
	return false
}

func decodeSuites(r *cborcodec.Reader) (Suites, error) {
	major, err := r.PeekMajor()
	if err != nil {
		return Suites{}, err
	}
	if major == 4 {
		n, err := r.ReadArrayHeader()
		if err != nil {
			return Suites{}, err
		}
		if n == 0 {
			return Suites{}, lakeerr.New(lakeerr.CborMalformed, "empty suites array")
		}
		list := make([]int, n)
		for i := 0; i < n; i++ {
			v, err := r.ReadInt()
			if err != nil {
				return Suites{}, err
			}
			list[i] = int(v)
		}
		return Suites{List: list}, nil
	}
	v, err := r.ReadInt()
	if err != nil {
		return Suites{}, err
	}
	return Suites{Single: true, List: []int{int(v)}}, nil
}

// Msg1 is the EDHOC msg1 CBOR sequence:
// METHOD:int, SUITES_I:(int|[int+]), G_X:bstr, C_I:(int|bstr), ?EAD_1
type Msg1 struct {
	Method  int
	SuitesI Suites
	GX      []byte
	CI      ConnID
	EAD1    []EADItem
}

// Encode serialises msg1 as a CBOR sequence.
func (m Msg1) Encode() []byte {
	seq := cborcodec.NewSeq().Int(int64(m.Method))
	seq = encodeSuitesSeq(seq, m.SuitesI)
	seq = seq.Bytes(m.GX)
	seq = encodeConnID(seq, m.CI)
	seq = encodeEAD(seq, m.EAD1)
	return seq.Encode()
}

// DecodeMsg1 parses a msg1 CBOR sequence.
func DecodeMsg1(b []byte) (Msg1, error) {
	r := cborcodec.NewReader(b)
	method, err := r.ReadInt()
	if err != nil {
		return Msg1{}, lakeerr.Wrap(lakeerr.CborMalformed, "msg1 METHOD", err)
	}
	suites, err := decodeSuites(r)
	if err != nil {
		return Msg1{}, lakeerr.Wrap(lakeerr.CborMalformed, "msg1 SUITES_I", err)
	}
	gX, err := r.ReadBytes()
	if err != nil {
		return Msg1{}, lakeerr.Wrap(lakeerr.CborMalformed, "msg1 G_X", err)
	}
	cI, err := decodeConnID(r)
	if err != nil {
		return Msg1{}, lakeerr.Wrap(lakeerr.CborMalformed, "msg1 C_I", err)
	}
	ead, err := decodeEADRest(r)
	if err != nil {
		return Msg1{}, err
	}
	return Msg1{Method: int(method), SuitesI: suites, GX: gX, CI: cI, EAD1: ead}, nil
}

// Msg2 is the EDHOC msg2 CBOR sequence:
// G_Y_CIPHERTEXT_2:bstr, C_R:(int|bstr)
//
// Per Open Question 1, only the concatenated
// G_Y || CIPHERTEXT_2 form is supported; a separated wire form is rejected.
type Msg2 struct {
	GYCiphertext2 []byte
	CR            ConnID
}

// Encode serialises msg2 as a CBOR sequence.
func (m Msg2) Encode() []byte {
	seq := cborcodec.NewSeq().Bytes(m.GYCiphertext2)
	seq = encodeConnID(seq, m.CR)
	return seq.Encode()
}

// DecodeMsg2 parses a msg2 CBOR sequence.
func DecodeMsg2(b []byte) (Msg2, error) {
	r := cborcodec.NewReader(b)
	gyc2, err := r.ReadBytes()
	if err != nil {
		return Msg2{}, lakeerr.Wrap(lakeerr.CborMalformed, "msg2 G_Y_CIPHERTEXT_2", err)
	}
	cR, err := decodeConnID(r)
	if err != nil {
		return Msg2{}, lakeerr.Wrap(lakeerr.CborMalformed, "msg2 C_R", err)
	}
	if err := r.ExpectSequenceDone(); err != nil {
		return Msg2{}, err
	}
	return Msg2{GYCiphertext2: gyc2, CR: cR}, nil
}

// SplitGYCiphertext2 splits the concatenated msg2 payload given the
// negotiated curve's public-key length.
func SplitGYCiphertext2(gyLen int, b []byte) (gY, ciphertext2 []byte, err error) {
	if len(b) < gyLen {
		return nil, nil, lakeerr.New(lakeerr.CborTruncated, "G_Y_CIPHERTEXT_2 shorter than G_Y")
	}
	return b[:gyLen], b[gyLen:], nil
}

// Msg3 is the EDHOC msg3 CBOR sequence: CIPHERTEXT_3:bstr
type Msg3 struct {
	Ciphertext3 []byte
}

func (m Msg3) Encode() []byte {
	return cborcodec.NewSeq().Bytes(m.Ciphertext3).Encode()
}

func DecodeMsg3(b []byte) (Msg3, error) {
	r := cborcodec.NewReader(b)
	ct3, err := r.ReadBytes()
	if err != nil {
		return Msg3{}, lakeerr.Wrap(lakeerr.CborMalformed, "msg3 CIPHERTEXT_3", err)
	}
	if err := r.ExpectSequenceDone(); err != nil {
		return Msg3{}, err
	}
	return Msg3{Ciphertext3: ct3}, nil
}

// Msg4 is the EDHOC msg4 CBOR sequence: CIPHERTEXT_4:bstr
type Msg4 struct {
	Ciphertext4 []byte
}

func (m Msg4) Encode() []byte {
	return cborcodec.NewSeq().Bytes(m.Ciphertext4).Encode()
}

// DecodeMsg4 parses a msg4 CBOR sequence, enforcing the caller-supplied
// maxLen bound per Open Question 2 (not derived from
// sizeof(msg2)).
func DecodeMsg4(b []byte, maxLen int) (Msg4, error) {
	if len(b) > maxLen {
		return Msg4{}, lakeerr.New(lakeerr.BufferTooSmall, "msg4 exceeds caller-supplied bound")
	}
	r := cborcodec.NewReader(b)
	ct4, err := r.ReadBytes()
	if err != nil {
		return Msg4{}, lakeerr.Wrap(lakeerr.CborMalformed, "msg4 CIPHERTEXT_4", err)
	}
	if err := r.ExpectSequenceDone(); err != nil {
		return Msg4{}, err
	}
	return Msg4{Ciphertext4: ct4}, nil
}

// ErrorMsg is the EDHOC error CBOR sequence: ERR_CODE:int,
// ERR_INFO:any, where ERR_INFO for code 2 ("wrong selected cipher
// suite") is SUITES_R:(int|[int+]).
type ErrorMsg struct {
	Code int
	// SuitesR is populated only for Code == 2.
	SuitesR Suites
	// Info carries opaque ERR_INFO bytes for any other code.
	Info []byte
}

const (
	ErrCodeUnspecified       = 1
	ErrCodeWrongCipherSuite  = 2
	ErrCodeUnknownCredential = 3
)

func (m ErrorMsg) Encode() []byte {
	seq := cborcodec.NewSeq().Int(int64(m.Code))
	if m.Code == ErrCodeWrongCipherSuite {
		return encodeSuitesSeq(seq, m.SuitesR).Encode()
	}
	return seq.Raw(m.Info).Encode()
}

func DecodeErrorMsg(b []byte) (ErrorMsg, error) {
	r := cborcodec.NewReader(b)
	code, err := r.ReadInt()
	if err != nil {
		return ErrorMsg{}, lakeerr.Wrap(lakeerr.CborMalformed, "error ERR_CODE", err)
	}
	if int(code) == ErrCodeWrongCipherSuite {
		suites, err := decodeSuites(r)
		if err != nil {
			return ErrorMsg{}, lakeerr.Wrap(lakeerr.CborMalformed, "error SUITES_R", err)
		}
		return ErrorMsg{Code: int(code), SuitesR: suites}, nil
	}
	return ErrorMsg{Code: int(code), Info: r.Rest()}, nil
}

// encodeSuitesSeq appends SUITES_I/SUITES_R to seq: a bare int for the
// single-suite case, or a definite-length array for the list case.
func encodeSuitesSeq(seq *cborcodec.Seq, s Suites) *cborcodec.Seq {
	if s.Single {
		return seq.Int(int64(s.List[0]))
	}
	var buf bytes.Buffer
	cborcodec.WriteArrayHeader(&buf, len(s.List))
	for _, v := range s.List {
		cborcodec.WriteInt(&buf, int64(v))
	}
	return seq.Raw(buf.Bytes())
}

package cborcodec

import (
	"github.com/sage-x-project/lake/lakeerr"
)

// Reader decodes the bounded CBOR subset this module uses, tracking a
// cursor into an underlying buffer. It never copies the input; returned
// byte strings/text strings are sub-slices of the original buffer.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps b for sequential decoding.
func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

// Pos returns the current read offset (bytes consumed so far).
func (r *Reader) Pos() int { return r.pos }

// Remaining reports whether unread bytes remain.
func (r *Reader) Remaining() bool { return r.pos < len(r.buf) }

// Rest returns every byte not yet consumed.
func (r *Reader) Rest() []byte { return r.buf[r.pos:] }

// Slice returns the raw bytes consumed between two earlier Pos()
// snapshots - used to re-embed an already-decoded item's original
// encoding verbatim (e.g. ID_CRED's raw bytes inside a MAC context).
func (r *Reader) Slice(start, end int) []byte { return r.buf[start:end] }

// Item describes one decoded CBOR item's header.
type Item struct {
	Major byte
	Arg   uint64
}

func (r *Reader) peekByte() (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, lakeerr.New(lakeerr.CborTruncated, "no more bytes")
	}
	return r.buf[r.pos], nil
}

// readHeader decodes a major-type header at the cursor and advances past
// it, returning the major type and the resolved argument.
func (r *Reader) readHeader() (Item, error) {
	b, err := r.peekByte()
	if err != nil {
		return Item{}, err
	}
	major := b >> 5
	add := b & 0x1f
	r.pos++

	switch {
	case add < 24:
		return Item{Major: major, Arg: uint64(add)}, nil
	case add == 24:
		if r.pos+1 > len(r.buf) {
			return Item{}, lakeerr.New(lakeerr.CborTruncated, "1-byte length")
		}
		v := uint64(r.buf[r.pos])
		r.pos++
		return Item{Major: major, Arg: v}, nil
	case add == 25:
		if r.pos+2 > len(r.buf) {
			return Item{}, lakeerr.New(lakeerr.CborTruncated, "2-byte length")
		}
		v := uint64(r.buf[r.pos])<<8 | uint64(r.buf[r.pos+1])
		r.pos += 2
		return Item{Major: major, Arg: v}, nil
	case add == 26:
		if r.pos+4 > len(r.buf) {
			return Item{}, lakeerr.New(lakeerr.CborTruncated, "4-byte length")
		}
		var v uint64
		for i := 0; i < 4; i++ {
			v = v<<8 | uint64(r.buf[r.pos+i])
		}
		r.pos += 4
		return Item{Major: major, Arg: v}, nil
	case add == 27:
		if r.pos+8 > len(r.buf) {
			return Item{}, lakeerr.New(lakeerr.CborTruncated, "8-byte length")
		}
		var v uint64
		for i := 0; i < 8; i++ {
			v = v<<8 | uint64(r.buf[r.pos+i])
		}
		r.pos += 8
		return Item{Major: major, Arg: v}, nil
	default:
		return Item{}, lakeerr.New(lakeerr.CborMalformed, "indefinite-length items are not supported")
	}
}

// ReadInt decodes a CBOR integer (major type 0 or 1) as an int64.
func (r *Reader) ReadInt() (int64, error) {
	it, err := r.readHeader()
	if err != nil {
		return 0, err
	}
	switch it.Major {
	case majUnsigned:
		if it.Arg > 1<<63-1 {
			return 0, lakeerr.New(lakeerr.CborMalformed, "unsigned integer overflows int64")
		}
		return int64(it.Arg), nil
	case majNegative:
		if it.Arg > 1<<63-1 {
			return 0, lakeerr.New(lakeerr.CborMalformed, "negative integer overflows int64")
		}
		return -1 - int64(it.Arg), nil
	default:
		return 0, lakeerr.New(lakeerr.CborUnexpectedType, "expected integer")
	}
}

// PeekMajor returns the major type of the next item without consuming it.
func (r *Reader) PeekMajor() (byte, error) {
	b, err := r.peekByte()
	if err != nil {
		return 0, err
	}
	return b >> 5, nil
}

// ReadBytes decodes a definite-length byte string (major type 2).
func (r *Reader) ReadBytes() ([]byte, error) {
	it, err := r.readHeader()
	if err != nil {
		return nil, err
	}
	if it.Major != majBytes {
		return nil, lakeerr.New(lakeerr.CborUnexpectedType, "expected byte string")
	}
	return r.takeRaw(it.Arg)
}

// ReadText decodes a definite-length UTF-8 text string (major type 3).
func (r *Reader) ReadText() (string, error) {
	it, err := r.readHeader()
	if err != nil {
		return "", err
	}
	if it.Major != majText {
		return "", lakeerr.New(lakeerr.CborUnexpectedType, "expected text string")
	}
	b, err := r.takeRaw(it.Arg)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *Reader) takeRaw(n uint64) ([]byte, error) {
	if n > uint64(len(r.buf)-r.pos) {
		return nil, lakeerr.New(lakeerr.CborTruncated, "short byte/text string")
	}
	out := r.buf[r.pos : r.pos+int(n)]
	r.pos += int(n)
	return out, nil
}

// ReadArrayHeader decodes an array header (major type 4) and returns its
// declared length.
func (r *Reader) ReadArrayHeader() (int, error) {
	it, err := r.readHeader()
	if err != nil {
		return 0, err
	}
	if it.Major != majArray {
		return 0, lakeerr.New(lakeerr.CborUnexpectedType, "expected array")
	}
	return int(it.Arg), nil
}

// ReadMapHeader decodes a map header (major type 5) and returns its
// declared number of key/value pairs.
func (r *Reader) ReadMapHeader() (int, error) {
	it, err := r.readHeader()
	if err != nil {
		return 0, err
	}
	if it.Major != majMap {
		return 0, lakeerr.New(lakeerr.CborUnexpectedType, "expected map")
	}
	return int(it.Arg), nil
}

// ReadBool decodes a CBOR boolean simple value.
func (r *Reader) ReadBool() (bool, error) {
	b, err := r.peekByte()
	if err != nil {
		return false, err
	}
	switch b {
	case 0xe0 | simpleTrue:
		r.pos++
		return true, nil
	case 0xe0 | simpleFalse:
		r.pos++
		return false, nil
	default:
		return false, lakeerr.New(lakeerr.CborUnexpectedType, "expected boolean")
	}
}

// IsNull reports and, if true, consumes a CBOR null at the cursor.
func (r *Reader) IsNull() bool {
	b, err := r.peekByte()
	if err != nil || b != 0xe0|simpleNull {
		return false
	}
	r.pos++
	return true
}

// ExpectSequenceDone enforces the "exactly N items, then EOF" grammar that
// fixed-shape CBOR sequences need: trailing bytes are
// rejected with CborTrailing only at call sites that know their sequence
// should be exhausted (e.g. after decoding a full msg1/msg2/msg3/msg4);
// elsewhere callers should just read the consumed-byte count via Pos().
func (r *Reader) ExpectSequenceDone() error {
	if r.Remaining() {
		return lakeerr.New(lakeerr.CborTrailing, "trailing bytes after sequence")
	}
	return nil
}

// ReadTaggedUnion inspects the `int | bstr` choice used for C_X and suite
// lists without consuming it: returns (true, nil) for an integer or
// (false, nil) for a byte string, leaving the item for the caller to read
// via ReadInt or ReadBytes at the same cursor position. This helper exists
// so every tagged-union wire value goes through one inspection point.
func (r *Reader) ReadTaggedUnion() (isInt bool, err error) {
	major, err := r.PeekMajor()
	if err != nil {
		return false, err
	}
	switch major {
	case majUnsigned, majNegative:
		return true, nil
	case majBytes:
		return false, nil
	default:
		return false, lakeerr.New(lakeerr.CborUnexpectedType, "expected int or byte string")
	}
}

package credential

import (
	"bytes"

	"github.com/sage-x-project/lake/cborcodec"
	"github.com/sage-x-project/lake/lakeerr"
)

// idCredLabelKey maps a Label to the CBOR map key this core uses to
// encode it. These are internal map keys for this bounded ID_CRED
// encoding, not a claim of IANA COSE header registry numbers.
var idCredLabelKey = map[Label]int64{
	LabelKid:     4,
	LabelX5Bag:   32,
	LabelX5Chain: 33,
	LabelX5T:     34,
	LabelX5U:     35,
	LabelC5B:     -32,
	LabelC5C:     -33,
	LabelC5T:     -34,
	LabelC5U:     -35,
}

var keyToLabel = func() map[int64]Label {
	m := make(map[int64]Label, len(idCredLabelKey))
	for l, k := range idCredLabelKey {
		m[k] = l
	}
	return m
}()

// chainTagKey is this core's non-standard map entry carrying the chain
// tag extension; absent means ChainNone.
const chainTagKey = -1

// algKey carries the digest algorithm alongside an x5t/c5t value.
const algKey = -2

// EncodeIDCred serialises an IDCred as the CBOR map ID_CRED header-label
// encoding: exactly one recognised label present.
func EncodeIDCred(idc IDCred) []byte {
	key, ok := idCredLabelKey[idc.Label]
	if !ok {
		key = idCredLabelKey[LabelKid]
	}

	n := 1
	if idc.Label == LabelX5T || idc.Label == LabelC5T {
		n++
	}
	if idc.Chain != ChainNone {
		n++
	}

	var buf bytes.Buffer
	cborcodec.WriteMapHeader(&buf, n)
	cborcodec.WriteInt(&buf, key)
	switch idc.Label {
	case LabelX5T, LabelC5T:
		cborcodec.WriteBytes(&buf, idc.X5T)
	case LabelX5Chain, LabelX5Bag, LabelC5C, LabelC5B:
		cborcodec.WriteBytes(&buf, idc.X5Chain)
	default:
		cborcodec.WriteBytes(&buf, idc.Kid)
	}
	if idc.Label == LabelX5T || idc.Label == LabelC5T {
		cborcodec.WriteInt(&buf, algKey)
		cborcodec.WriteInt(&buf, int64(idc.X5TAlg))
	}
	if idc.Chain != ChainNone {
		cborcodec.WriteInt(&buf, chainTagKey)
		cborcodec.WriteInt(&buf, int64(idc.Chain))
	}
	return buf.Bytes()
}

// DecodeIDCred parses the map ID_CRED encoding EncodeIDCred produces.
func DecodeIDCred(raw []byte) (IDCred, error) {
	r := cborcodec.NewReader(raw)
	n, err := r.ReadMapHeader()
	if err != nil {
		return IDCred{}, lakeerr.Wrap(lakeerr.CborMalformed, "ID_CRED map header", err)
	}
	var idc IDCred
	found := false
	for i := 0; i < n; i++ {
		key, err := r.ReadInt()
		if err != nil {
			return IDCred{}, lakeerr.Wrap(lakeerr.CborMalformed, "ID_CRED map key", err)
		}
		switch key {
		case chainTagKey:
			v, err := r.ReadInt()
			if err != nil {
				return IDCred{}, err
			}
			idc.Chain = ChainTag(v)
		case algKey:
			v, err := r.ReadInt()
			if err != nil {
				return IDCred{}, err
			}
			idc.X5TAlg = HashAlg(v)
		default:
			label, ok := keyToLabel[key]
			if !ok {
				return IDCred{}, lakeerr.New(lakeerr.CborUnexpectedType, "unrecognised ID_CRED label")
			}
			value, err := r.ReadBytes()
			if err != nil {
				return IDCred{}, err
			}
			idc.Label = label
			found = true
			switch label {
			case LabelKid:
				idc.Kid = value
			case LabelX5T, LabelC5T:
				idc.X5T = value
			case LabelX5Chain, LabelX5Bag, LabelC5C, LabelC5B:
				idc.X5Chain = value
			}
		}
	}
	if !found {
		return IDCred{}, lakeerr.New(lakeerr.CborMalformed, "ID_CRED map has no recognised label")
	}
	return idc, nil
}

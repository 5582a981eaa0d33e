package edhoc

import (
	"github.com/sage-x-project/lake/cborcodec"
	"github.com/sage-x-project/lake/lakeerr"
)

// EADItem is the Go shape for the EAD_1..EAD_4 items that
// draft-ietf-lake-edhoc-15 §3.8 specifies (label, value, and a critical
// flag encoded by the sign of the label: negative labels are critical).
// EAD threads opaquely through the transcript/ciphertext layer
// otherwise; this gives it a concrete type.
type EADItem struct {
	Label    int
	Value    []byte
	Critical bool
}

// encodeEAD appends the CBOR sequence form of items to seq: each item is
// (label:int, value:bstr), with Critical folded into the label's sign per
// draft-ietf-lake-edhoc-15 §3.8.
func encodeEAD(seq *cborcodec.Seq, items []EADItem) *cborcodec.Seq {
	for _, it := range items {
		label := it.Label
		if it.Critical && label > 0 {
			label = -label
		}
		seq = seq.Int(int64(label)).Bytes(it.Value)
	}
	return seq
}

// decodeEADRest decodes zero or more trailing EAD items from r until
// input is exhausted. Callers must already have consumed every preceding
// field in the plaintext/ciphertext sequence.
func decodeEADRest(r *cborcodec.Reader) ([]EADItem, error) {
	var items []EADItem
	for r.Remaining() {
		label, err := r.ReadInt()
		if err != nil {
			return nil, lakeerr.Wrap(lakeerr.CborMalformed, "EAD label", err)
		}
		value, err := r.ReadBytes()
		if err != nil {
			return nil, lakeerr.Wrap(lakeerr.CborMalformed, "EAD value", err)
		}
		critical := label < 0
		if critical {
			label = -label
		}
		items = append(items, EADItem{Label: int(label), Value: value, Critical: critical})
	}
	return items, nil
}

package edhoc

import (
	"github.com/sage-x-project/lake/cborcodec"
	"github.com/sage-x-project/lake/cipherprovider"
	"github.com/sage-x-project/lake/lakeerr"
)

// Plaintext2 is the plaintext CBOR sequence CIPHERTEXT_2 encrypts/decrypts
// to: (C_R, ID_CRED_R, signature_or_mac_2, EAD_2?).
type Plaintext2 struct {
	CR              ConnID
	IDCredR         []byte // raw CBOR-encoded ID_CRED_R map bytes
	SignatureOrMAC2 []byte
	EAD2            []EADItem
}

func (p Plaintext2) encode() []byte {
	seq := cborcodec.NewSeq()
	seq = encodeConnID(seq, p.CR)
	seq = seq.Raw(p.IDCredR).Bytes(p.SignatureOrMAC2)
	seq = encodeEAD(seq, p.EAD2)
	return seq.Encode()
}

func decodePlaintext2(b []byte) (Plaintext2, error) {
	r := cborcodec.NewReader(b)
	cR, err := decodeConnID(r)
	if err != nil {
		return Plaintext2{}, lakeerr.Wrap(lakeerr.CborMalformed, "plaintext_2 C_R", err)
	}
	idCred, err := decodeIDCredRaw(r)
	if err != nil {
		return Plaintext2{}, lakeerr.Wrap(lakeerr.CborMalformed, "plaintext_2 ID_CRED_R", err)
	}
	som, err := r.ReadBytes()
	if err != nil {
		return Plaintext2{}, lakeerr.Wrap(lakeerr.CborMalformed, "plaintext_2 signature_or_mac_2", err)
	}
	ead, err := decodeEADRest(r)
	if err != nil {
		return Plaintext2{}, err
	}
	return Plaintext2{CR: cR, IDCredR: idCred, SignatureOrMAC2: som, EAD2: ead}, nil
}

// decodeIDCredRaw consumes one ID_CRED item (a CBOR map, or the
// shorthand bstr/int some encoders use for a bare kid) and returns its
// raw encoded bytes, for later opaque re-embedding into a MAC context.
func decodeIDCredRaw(r *cborcodec.Reader) ([]byte, error) {
	start := r.Pos()
	major, err := r.PeekMajor()
	if err != nil {
		return nil, err
	}
	switch major {
	case 5: // map
		n, err := r.ReadMapHeader()
		if err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			if _, err := r.ReadInt(); err != nil {
				return nil, err
			}
			if err := skipValue(r); err != nil {
				return nil, err
			}
		}
	case 2:
		if _, err := r.ReadBytes(); err != nil {
			return nil, err
		}
	case 0, 1:
		if _, err := r.ReadInt(); err != nil {
			return nil, err
		}
	default:
		return nil, lakeerr.New(lakeerr.CborUnexpectedType, "unrecognised ID_CRED encoding")
	}
	raw := r.Slice(start, r.Pos())
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, nil
}

func skipValue(r *cborcodec.Reader) error {
	major, err := r.PeekMajor()
	if err != nil {
		return err
	}
	switch major {
	case 0, 1:
		_, err := r.ReadInt()
		return err
	case 2:
		_, err := r.ReadBytes()
		return err
	case 3:
		_, err := r.ReadText()
		return err
	default:
		return lakeerr.New(lakeerr.CborUnexpectedType, "unsupported ID_CRED value type")
	}
}

// EncryptCiphertext2 computes CIPHERTEXT_2 = K_2e XOR plaintext_2, the
// stream-cipher-style construction EDHOC specifies (K_2e from
// EDHOC-KDF(PRK_2e, label=0, context=TH_2, len=|plaintext|)).
func EncryptCiphertext2(p cipherprovider.Provider, alg cipherprovider.HashAlg, prk2e, th2 []byte, plaintext Plaintext2) ([]byte, error) {
	pt := plaintext.encode()
	k2e, err := KDF(p, alg, prk2e, LabelK2, th2, len(pt))
	if err != nil {
		return nil, err
	}
	return xorBytes(k2e, pt), nil
}

// DecryptCiphertext2 inverts EncryptCiphertext2 and parses the resulting
// plaintext.
func DecryptCiphertext2(p cipherprovider.Provider, alg cipherprovider.HashAlg, prk2e, th2, ciphertext2 []byte) (Plaintext2, error) {
	k2e, err := KDF(p, alg, prk2e, LabelK2, th2, len(ciphertext2))
	if err != nil {
		return Plaintext2{}, err
	}
	pt := xorBytes(k2e, ciphertext2)
	return decodePlaintext2(pt)
}

func xorBytes(a, b []byte) []byte {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = a[i] ^ b[i]
	}
	return out
}

// PlaintextN is the shared shape of plaintext_3/plaintext_4: (ID_CRED_X,
// signature_or_mac_n, EAD_n?).
type PlaintextN struct {
	IDCredX        []byte
	SignatureOrMAC []byte
	EAD            []EADItem
}

func (p PlaintextN) encode() []byte {
	seq := cborcodec.NewSeq().Raw(p.IDCredX).Bytes(p.SignatureOrMAC)
	seq = encodeEAD(seq, p.EAD)
	return seq.Encode()
}

func decodePlaintextN(b []byte) (PlaintextN, error) {
	r := cborcodec.NewReader(b)
	idCred, err := decodeIDCredRaw(r)
	if err != nil {
		return PlaintextN{}, lakeerr.Wrap(lakeerr.CborMalformed, "plaintext ID_CRED", err)
	}
	som, err := r.ReadBytes()
	if err != nil {
		return PlaintextN{}, lakeerr.Wrap(lakeerr.CborMalformed, "plaintext signature_or_mac", err)
	}
	ead, err := decodeEADRest(r)
	if err != nil {
		return PlaintextN{}, err
	}
	return PlaintextN{IDCredX: idCred, SignatureOrMAC: som, EAD: ead}, nil
}

// aeadAAD builds CBOR_sequence("Encrypt0", h'', TH_n), the AAD for
// CIPHERTEXT_3/4.
func aeadAAD(thN []byte) []byte {
	return cborcodec.NewSeq().Text("Encrypt0").Bytes(nil).Bytes(thN).Encode()
}

// EncryptCiphertextN computes CIPHERTEXT_3/4 via AEAD with key K_n,
// nonce IV_n, aad=CBOR_sequence("Encrypt0", h'', TH_n).
func EncryptCiphertextN(p cipherprovider.Provider, aeadAlg cipherprovider.AEADAlg, kN, ivN, thN []byte, plaintext PlaintextN) ([]byte, error) {
	ct, err := p.AEADEncrypt(aeadAlg, kN, ivN, aeadAAD(thN), plaintext.encode())
	if err != nil {
		return nil, lakeerr.Wrap(lakeerr.AeadAuth, "CIPHERTEXT_N encryption", err)
	}
	return ct, nil
}

// DecryptCiphertextN inverts EncryptCiphertextN and parses the result.
func DecryptCiphertextN(p cipherprovider.Provider, aeadAlg cipherprovider.AEADAlg, kN, ivN, thN, ciphertext []byte) (PlaintextN, error) {
	pt, err := p.AEADDecrypt(aeadAlg, kN, ivN, aeadAAD(thN), ciphertext)
	if err != nil {
		return PlaintextN{}, err
	}
	return decodePlaintextN(pt)
}

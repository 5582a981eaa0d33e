package cipherprovider

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/ed25519"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/sage-x-project/lake/lakeerr"
)

// Default is the reference cipherprovider.Provider backed by the Go
// standard library plus golang.org/x/crypto, following the same
// stdlib-first, x/crypto-for-AEAD-and-HKDF approach as
// sage/session/session.go and sage/crypto/keys/x25519.go.
type Default struct{}

// New returns the reference Provider implementation.
func New() Provider { return Default{} }

func (Default) hashNew(alg HashAlg) (func() hash.Hash, error) {
	switch alg {
	case HashSHA256:
		return sha256.New, nil
	case HashSHA384:
		return sha512.New384, nil
	case HashSHA512:
		return sha512.New, nil
	default:
		return nil, fmt.Errorf("cipherprovider: unsupported hash alg %d", alg)
	}
}

func (d Default) Hash(alg HashAlg, data []byte) ([]byte, error) {
	newHash, err := d.hashNew(alg)
	if err != nil {
		return nil, err
	}
	h := newHash()
	h.Write(data)
	return h.Sum(nil), nil
}

func (d Default) HashLen(alg HashAlg) int {
	switch alg {
	case HashSHA256:
		return sha256.Size
	case HashSHA384:
		return sha512.Size384
	case HashSHA512:
		return sha512.Size
	default:
		return 0
	}
}

func (d Default) HKDFExtract(alg HashAlg, salt, ikm []byte) ([]byte, error) {
	newHash, err := d.hashNew(alg)
	if err != nil {
		return nil, err
	}
	prk := hkdf.Extract(newHash, ikm, salt)
	out := make([]byte, len(prk))
	copy(out, prk)
	return out, nil
}

func (d Default) HKDFExpand(alg HashAlg, prk, info []byte, length int) ([]byte, error) {
	newHash, err := d.hashNew(alg)
	if err != nil {
		return nil, err
	}
	r := hkdf.Expand(newHash, prk, info)
	out := make([]byte, length)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("cipherprovider: hkdf expand: %w", err)
	}
	return out, nil
}

func (d Default) ecdhCurve(curve ECDHCurve) (ecdh.Curve, error) {
	switch curve {
	case CurveX25519:
		return ecdh.X25519(), nil
	case CurveP256:
		return ecdh.P256(), nil
	case CurveP384:
		return ecdh.P384(), nil
	default:
		return nil, fmt.Errorf("cipherprovider: unsupported curve %d", curve)
	}
}

// ECDHKeypair derives a deterministic keypair from seed, the only source
// of randomness the protocol core depends on. The private key bytes are
// read from a deterministic io.Reader over seed (the next block is taken
// when a candidate is not a valid scalar), so the same seed always
// yields the same keypair.
func (d Default) ECDHKeypair(curve ECDHCurve, seed []byte) (sk, pk []byte, err error) {
	c, err := d.ecdhCurve(curve)
	if err != nil {
		return nil, nil, err
	}
	skLen := 32
	if curve == CurveP384 {
		skLen = 48
	}
	r := deterministicReader(seed)
	buf := make([]byte, skLen)
	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, nil, fmt.Errorf("cipherprovider: generate key: %w", err)
		}
		if priv, err := c.NewPrivateKey(buf); err == nil {
			return priv.Bytes(), priv.PublicKey().Bytes(), nil
		}
	}
}

func (d Default) ECDHDerive(curve ECDHCurve, sk, pk []byte) ([]byte, error) {
	c, err := d.ecdhCurve(curve)
	if err != nil {
		return nil, err
	}
	priv, err := c.NewPrivateKey(sk)
	if err != nil {
		return nil, fmt.Errorf("cipherprovider: parse private key: %w", err)
	}
	pub, err := c.NewPublicKey(pk)
	if err != nil {
		return nil, fmt.Errorf("cipherprovider: parse public key: %w", err)
	}
	shared, err := priv.ECDH(pub)
	if err != nil {
		return nil, fmt.Errorf("cipherprovider: ecdh: %w", err)
	}
	return shared, nil
}

func (d Default) PublicKeyLen(curve ECDHCurve) int {
	c, err := d.ecdhCurve(curve)
	if err != nil {
		return 0
	}
	// crypto/ecdh public keys for X25519 are 32 raw bytes; for NIST
	// curves they're uncompressed-point encoded (1 + 2*coordinate).
	switch curve {
	case CurveX25519:
		return 32
	case CurveP256:
		return 65
	case CurveP384:
		return 97
	default:
		_ = c
		return 0
	}
}

func (d Default) Sign(alg SignatureAlg, sk, message []byte) ([]byte, error) {
	switch alg {
	case SignatureEd25519:
		if len(sk) != ed25519.PrivateKeySize {
			return nil, fmt.Errorf("cipherprovider: bad ed25519 private key length %d", len(sk))
		}
		return ed25519.Sign(ed25519.PrivateKey(sk), message), nil
	default:
		return nil, fmt.Errorf("cipherprovider: unsupported signature alg %d for Sign", alg)
	}
}

func (d Default) Verify(alg SignatureAlg, pk, message, sig []byte) (bool, error) {
	switch alg {
	case SignatureEd25519:
		if len(pk) != ed25519.PublicKeySize {
			return false, fmt.Errorf("cipherprovider: bad ed25519 public key length %d", len(pk))
		}
		return ed25519.Verify(ed25519.PublicKey(pk), message, sig), nil
	default:
		return false, fmt.Errorf("cipherprovider: unsupported signature alg %d for Verify", alg)
	}
}

func (d Default) KeyLen(alg AEADAlg) int {
	switch alg {
	case AEADChaCha20Poly1305:
		return chacha20poly1305.KeySize
	case AEADAES128CCM8:
		return 16
	case AEADAES256GCM:
		return 32
	default:
		return 0
	}
}

func (d Default) NonceLen(alg AEADAlg) int {
	switch alg {
	case AEADChaCha20Poly1305:
		return chacha20poly1305.NonceSize
	case AEADAES128CCM8:
		return 13
	case AEADAES256GCM:
		return 12
	default:
		return 0
	}
}

func (d Default) TagLen(alg AEADAlg) int {
	switch alg {
	case AEADAES128CCM8:
		return 8
	default:
		return 16
	}
}

func (d Default) AEADEncrypt(alg AEADAlg, key, nonce, aad, plaintext []byte) ([]byte, error) {
	aead, err := d.newAEAD(alg, key)
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, nonce, plaintext, aad), nil
}

func (d Default) AEADDecrypt(alg AEADAlg, key, nonce, aad, ciphertext []byte) ([]byte, error) {
	aead, err := d.newAEAD(alg, key)
	if err != nil {
		return nil, err
	}
	pt, err := aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, lakeerr.New(lakeerr.AeadAuth, "authentication failed")
	}
	return pt, nil
}

// newAEAD constructs the cipher.AEAD for alg. AES-128-CCM-8 isn't backed by
// an equivalent stdlib/x-crypto construction, so this provider only claims
// AEADChaCha20Poly1305 and AEADAES256GCM as fully supported; AEADAES128CCM8
// is accepted for key/nonce sizing (KeyLen/NonceLen/TagLen) but
// Encrypt/Decrypt reject it explicitly rather than silently substitute GCM.
func (d Default) newAEAD(alg AEADAlg, key []byte) (cipher.AEAD, error) {
	switch alg {
	case AEADChaCha20Poly1305:
		return chacha20poly1305.New(key)
	case AEADAES256GCM:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		return cipher.NewGCM(block)
	default:
		return nil, fmt.Errorf("cipherprovider: AEAD alg %d not implemented by Default", alg)
	}
}

// deterministicReader turns a fixed seed into a repeatable CSPRNG stream
// via HKDF-Expand, so ECDHKeypair(curve, seed) is a pure function.
func deterministicReader(seed []byte) io.Reader {
	r := hkdf.Expand(sha256.New, seed, []byte("lake/ecdh-keypair"))
	return r
}

package credential

import (
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/mr-tron/base58"
)

// CanonicalKid renders a raw public key as the kid bytes the named chain
// tag expects, grounded on the same address/key-encoding helpers
// pkg/agent/did and pkg/agent/crypto/chain/solana use for their own
// blockchain-anchored identifiers:
//
//   - ChainNone: the raw bytes, unmodified.
//   - ChainEthereum: the 20-byte Keccak256-derived address of an
//     uncompressed secp256k1 public key (ethcrypto.PubkeyToAddress).
//   - ChainSolana: the 32-byte raw Ed25519 public key, base58-decoded
//     back to raw bytes if given in base58 text form.
func CanonicalKid(chain ChainTag, pubKeyOrText []byte) ([]byte, error) {
	switch chain {
	case ChainNone:
		return pubKeyOrText, nil
	case ChainEthereum:
		pub, err := ethcrypto.UnmarshalPubkey(pubKeyOrText)
		if err != nil {
			return nil, fmt.Errorf("credential: invalid ethereum public key: %w", err)
		}
		addr := ethcrypto.PubkeyToAddress(*pub)
		return addr.Bytes(), nil
	case ChainSolana:
		if len(pubKeyOrText) == 32 {
			return pubKeyOrText, nil
		}
		decoded, err := base58.Decode(string(pubKeyOrText))
		if err != nil {
			return nil, fmt.Errorf("credential: invalid solana base58 key: %w", err)
		}
		return decoded, nil
	default:
		return nil, fmt.Errorf("credential: unknown chain tag %d", chain)
	}
}

package crypto

import (
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// AddressPrefix is the bech32 human-readable part of an identity.
type AddressPrefix string

const (
	// PeerPrefix tags account identities (sellers, payers, the admin).
	PeerPrefix AddressPrefix = "peer"
	// TokenPrefix tags token contract identities.
	TokenPrefix AddressPrefix = "ptok"
)

// Address is a 20-byte identity together with the prefix it renders under.
type Address struct {
	prefix AddressPrefix
	raw    [20]byte
}

// Prefix returns the human-readable part.
func (a Address) Prefix() AddressPrefix { return a.prefix }

// Array returns the raw identity, the form stored in state.
func (a Address) Array() [20]byte { return a.raw }

func (a Address) String() string {
	return encode(a.prefix, a.raw)
}

func encode(prefix AddressPrefix, raw [20]byte) string {
	conv, err := bech32.ConvertBits(raw[:], 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(string(prefix), conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

// DecodeAddress parses any bech32 identity.
func DecodeAddress(addrStr string) (Address, error) {
	prefix, data, err := bech32.Decode(addrStr)
	if err != nil {
		return Address{}, fmt.Errorf("invalid bech32 string: %w", err)
	}
	conv, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("error converting bits: %w", err)
	}
	if len(conv) != 20 {
		return Address{}, fmt.Errorf("address must decode to 20 bytes, got %d", len(conv))
	}
	addr := Address{prefix: AddressPrefix(prefix)}
	copy(addr.raw[:], conv)
	return addr, nil
}

// DecodeWithPrefix decodes addrStr and requires the supplied prefix.
func DecodeWithPrefix(addrStr string, prefix AddressPrefix) ([20]byte, error) {
	addr, err := DecodeAddress(addrStr)
	if err != nil {
		return [20]byte{}, err
	}
	if addr.prefix != prefix {
		return [20]byte{}, fmt.Errorf("address %s: expected prefix %q", addrStr, prefix)
	}
	return addr.raw, nil
}

// FormatPeer renders an account identity.
func FormatPeer(b [20]byte) string { return encode(PeerPrefix, b) }

// FormatToken renders a token contract identity.
func FormatToken(b [20]byte) string { return encode(TokenPrefix, b) }

// PrivateKey is a secp256k1 signing key. Its peer address is the keccak
// derived account address of the public key.
type PrivateKey struct {
	*ecdsa.PrivateKey
}

type PublicKey struct {
	*ecdsa.PublicKey
}

func GeneratePrivateKey() (*PrivateKey, error) {
	key, err := ecdsa.GenerateKey(ethcrypto.S256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key}, nil
}

func (k *PrivateKey) PubKey() *PublicKey {
	return &PublicKey{&k.PrivateKey.PublicKey}
}

// Address returns the peer identity controlled by the key.
func (k *PublicKey) Address() Address {
	return Address{prefix: PeerPrefix, raw: ethcrypto.PubkeyToAddress(*k.PublicKey)}
}

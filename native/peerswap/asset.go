package peerswap

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"peerswap/crypto"
)

// AssetKind discriminates the two asset representations the engine settles.
type AssetKind uint8

const (
	// AssetNative is a ledger-intrinsic coin identified by its denomination.
	AssetNative AssetKind = iota + 1
	// AssetToken is a unit managed by a token contract, identified by the
	// contract address.
	AssetToken
)

func (k AssetKind) String() string {
	switch k {
	case AssetNative:
		return "native"
	case AssetToken:
		return "token"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// Valid reports whether the kind is one of the supported variants.
func (k AssetKind) Valid() bool {
	return k == AssetNative || k == AssetToken
}

// AssetInfo identifies an asset without an amount. Two infos are the same
// asset when both kind and identifier match.
type AssetInfo struct {
	Kind     AssetKind
	Denom    string
	Contract [20]byte
}

// NativeInfo identifies a native coin.
func NativeInfo(denom string) AssetInfo {
	return AssetInfo{Kind: AssetNative, Denom: denom}
}

// TokenInfo identifies a token contract.
func TokenInfo(contract [20]byte) AssetInfo {
	return AssetInfo{Kind: AssetToken, Contract: contract}
}

// Equal reports whether both infos reference the same asset.
func (a AssetInfo) Equal(other AssetInfo) bool {
	if a.Kind != other.Kind {
		return false
	}
	switch a.Kind {
	case AssetNative:
		return a.Denom == other.Denom
	case AssetToken:
		return a.Contract == other.Contract
	default:
		return false
	}
}

// String renders the identifier used in events: the denomination for native
// coins and "token:<address>" for token contracts.
func (a AssetInfo) String() string {
	switch a.Kind {
	case AssetNative:
		return a.Denom
	case AssetToken:
		return "token:" + crypto.FormatToken(a.Contract)
	default:
		return ""
	}
}

func (a AssetInfo) validate() error {
	switch a.Kind {
	case AssetNative:
		if strings.TrimSpace(a.Denom) == "" {
			return fmt.Errorf("%w: native asset requires a denomination", ErrInvalidAsset)
		}
		if a.Contract != ([20]byte{}) {
			return fmt.Errorf("%w: native asset must not carry a contract", ErrInvalidAsset)
		}
	case AssetToken:
		if a.Contract == ([20]byte{}) {
			return fmt.Errorf("%w: token asset requires a contract", ErrInvalidAsset)
		}
		if a.Denom != "" {
			return fmt.Errorf("%w: token asset must not carry a denomination", ErrInvalidAsset)
		}
	default:
		return fmt.Errorf("%w: unsupported asset kind %d", ErrInvalidAsset, a.Kind)
	}
	return nil
}

// Asset is an amount of a specific asset.
type Asset struct {
	Info   AssetInfo
	Amount *uint256.Int
}

// Clone returns a deep copy.
func (a Asset) Clone() Asset {
	return Asset{Info: a.Info, Amount: cloneAmount(a.Amount)}
}

// Coin is an amount of a native denomination.
type Coin struct {
	Denom  string
	Amount *uint256.Int
}

// NewCoin is a convenience constructor.
func NewCoin(amount uint64, denom string) Coin {
	return Coin{Denom: denom, Amount: uint256.NewInt(amount)}
}

// TokenAmount is an amount of a token contract's unit.
type TokenAmount struct {
	Contract [20]byte
	Amount   *uint256.Int
}

// Balance is the shape in which assets arrive: either a set of native coins
// attached to a call, or a single token amount announced by its contract.
type Balance struct {
	Kind   AssetKind
	Native []Coin
	Token  TokenAmount
}

// NativeBalance wraps attached coins.
func NativeBalance(coins ...Coin) Balance {
	return Balance{Kind: AssetNative, Native: coins}
}

// TokenBalance wraps a token amount.
func TokenBalance(contract [20]byte, amount *uint256.Int) Balance {
	return Balance{Kind: AssetToken, Token: TokenAmount{Contract: contract, Amount: amount}}
}

// assets expands the balance into individual asset units.
func (b Balance) assets() []Asset {
	switch b.Kind {
	case AssetNative:
		out := make([]Asset, 0, len(b.Native))
		for _, coin := range b.Native {
			out = append(out, Asset{Info: NativeInfo(coin.Denom), Amount: cloneAmount(coin.Amount)})
		}
		return out
	case AssetToken:
		return []Asset{{Info: TokenInfo(b.Token.Contract), Amount: cloneAmount(b.Token.Amount)}}
	default:
		return nil
	}
}

// mustKind asserts the declared ingestion kind. A mismatch means the
// integration handed the engine the wrong representation, which no user input
// can cause, so it is fatal.
func (b Balance) mustKind(declared AssetKind) {
	if b.Kind != declared {
		panic(fmt.Sprintf("peerswap: balance kind %s does not match declared kind %s", b.Kind, declared))
	}
}

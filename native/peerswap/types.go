package peerswap

import (
	"fmt"

	"github.com/holiman/uint256"
)

// ContractName is recorded alongside the engine version at instantiation so
// migrations can tell which state layout they are looking at.
const ContractName = "peerswap"

// ContractVersion is the state layout version written by this build.
const ContractVersion = "0.3.0"

// UserInfo is optional seller metadata. It has no effect on settlement.
type UserInfo struct {
	User        string
	AccountType string
}

// AskLeg is one asset the seller accepts in exchange. InitialAmount records
// the original ask; Amount shrinks as the offer is partially filled.
type AskLeg struct {
	Asset         AssetInfo
	InitialAmount *uint256.Int
	Amount        *uint256.Int
}

// Clone returns a deep copy of the leg.
func (l AskLeg) Clone() AskLeg {
	return AskLeg{Asset: l.Asset, InitialAmount: cloneAmount(l.InitialAmount), Amount: cloneAmount(l.Amount)}
}

// Offer is a standing escrow of one asset seeking any of the AskFor legs in
// return.
type Offer struct {
	Seller            [20]byte
	Sell              AssetInfo
	SellAmount        *uint256.Int
	InitialSellAmount *uint256.Int
	AskFor            []AskLeg
	Expires           Expiration
	UserInfo          *UserInfo
	Description       string
}

// Clone returns a deep copy of the offer so callers can safely mutate the
// copy without affecting the stored instance.
func (o *Offer) Clone() *Offer {
	if o == nil {
		return nil
	}
	clone := *o
	clone.SellAmount = cloneAmount(o.SellAmount)
	clone.InitialSellAmount = cloneAmount(o.InitialSellAmount)
	clone.AskFor = make([]AskLeg, len(o.AskFor))
	for i, leg := range o.AskFor {
		clone.AskFor[i] = leg.Clone()
	}
	if o.UserInfo != nil {
		info := *o.UserInfo
		clone.UserInfo = &info
	}
	return &clone
}

// SellAsset returns the escrowed asset with its current amount.
func (o *Offer) SellAsset() Asset {
	return Asset{Info: o.Sell, Amount: cloneAmount(o.SellAmount)}
}

// leg returns the index of the ask leg matching info, or -1.
func (o *Offer) leg(info AssetInfo) int {
	for i, leg := range o.AskFor {
		if leg.Asset.Equal(info) {
			return i
		}
	}
	return -1
}

// SanitizeOffer validates a stored offer, returning a clone with non-nil
// amounts. The function does not mutate the original value.
func SanitizeOffer(o *Offer) (*Offer, error) {
	if o == nil {
		return nil, fmt.Errorf("peerswap: nil offer")
	}
	clone := o.Clone()
	if err := clone.Sell.validate(); err != nil {
		return nil, err
	}
	if clone.SellAmount.IsZero() {
		return nil, fmt.Errorf("peerswap: offer sell amount must be positive")
	}
	if clone.SellAmount.Gt(clone.InitialSellAmount) {
		return nil, fmt.Errorf("peerswap: sell amount exceeds initial amount")
	}
	if len(clone.AskFor) == 0 {
		return nil, ErrNoAskTokens
	}
	for i, leg := range clone.AskFor {
		if err := leg.Asset.validate(); err != nil {
			return nil, err
		}
		if leg.Amount.Gt(leg.InitialAmount) {
			return nil, fmt.Errorf("peerswap: ask leg %d amount exceeds initial amount", i)
		}
	}
	if !clone.Expires.valid() {
		return nil, fmt.Errorf("peerswap: invalid expiration kind %d", clone.Expires.Kind)
	}
	return clone, nil
}

// Config is the engine's singleton configuration.
type Config struct {
	Admin       [20]byte
	Active      bool
	MakerFeeBps uint16
	TakerFeeBps uint16
	NextIndex   uint32
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// Validate checks the fee bounds.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("peerswap: nil config")
	}
	if c.MakerFeeBps > 10_000 || c.TakerFeeBps > 10_000 {
		return ErrFeeOutOfRange
	}
	return nil
}

// ContractInfo names the engine and the state layout version.
type ContractInfo struct {
	Name    string
	Version string
}

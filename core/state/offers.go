package state

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	"peerswap/native/peerswap"
)

type storedAsset struct {
	Kind     uint8
	Denom    string
	Contract [20]byte
}

type storedAskLeg struct {
	Asset         storedAsset
	InitialAmount *big.Int
	Amount        *big.Int
}

type storedOffer struct {
	Seller            [20]byte
	Sell              storedAsset
	SellAmount        *big.Int
	InitialSellAmount *big.Int
	AskFor            []storedAskLeg
	ExpiresKind       uint8
	ExpiresHeight     uint64
	ExpiresTime       uint64
	HasUserInfo       bool
	User              string
	AccountType       string
	Description       string
}

func newStoredAsset(info peerswap.AssetInfo) storedAsset {
	return storedAsset{Kind: uint8(info.Kind), Denom: info.Denom, Contract: info.Contract}
}

func (s storedAsset) toInfo() peerswap.AssetInfo {
	return peerswap.AssetInfo{Kind: peerswap.AssetKind(s.Kind), Denom: s.Denom, Contract: s.Contract}
}

func newStoredOffer(o *peerswap.Offer) *storedOffer {
	stored := &storedOffer{
		Seller:            o.Seller,
		Sell:              newStoredAsset(o.Sell),
		SellAmount:        o.SellAmount.ToBig(),
		InitialSellAmount: o.InitialSellAmount.ToBig(),
		AskFor:            make([]storedAskLeg, len(o.AskFor)),
		ExpiresKind:       uint8(o.Expires.Kind),
		ExpiresHeight:     o.Expires.Height,
		ExpiresTime:       o.Expires.Time,
		Description:       o.Description,
	}
	for i, leg := range o.AskFor {
		stored.AskFor[i] = storedAskLeg{
			Asset:         newStoredAsset(leg.Asset),
			InitialAmount: leg.InitialAmount.ToBig(),
			Amount:        leg.Amount.ToBig(),
		}
	}
	if o.UserInfo != nil {
		stored.HasUserInfo = true
		stored.User = o.UserInfo.User
		stored.AccountType = o.UserInfo.AccountType
	}
	return stored
}

func (s *storedOffer) toOffer() (*peerswap.Offer, error) {
	sellAmount, err := toAmount(s.SellAmount)
	if err != nil {
		return nil, err
	}
	initial, err := toAmount(s.InitialSellAmount)
	if err != nil {
		return nil, err
	}
	out := &peerswap.Offer{
		Seller:            s.Seller,
		Sell:              s.Sell.toInfo(),
		SellAmount:        sellAmount,
		InitialSellAmount: initial,
		AskFor:            make([]peerswap.AskLeg, len(s.AskFor)),
		Expires: peerswap.Expiration{
			Kind:   peerswap.ExpirationKind(s.ExpiresKind),
			Height: s.ExpiresHeight,
			Time:   s.ExpiresTime,
		},
		Description: s.Description,
	}
	for i, leg := range s.AskFor {
		initialLeg, err := toAmount(leg.InitialAmount)
		if err != nil {
			return nil, err
		}
		amount, err := toAmount(leg.Amount)
		if err != nil {
			return nil, err
		}
		out.AskFor[i] = peerswap.AskLeg{Asset: leg.Asset.toInfo(), InitialAmount: initialLeg, Amount: amount}
	}
	if s.HasUserInfo {
		out.UserInfo = &peerswap.UserInfo{User: s.User, AccountType: s.AccountType}
	}
	return out, nil
}

func toAmount(b *big.Int) (*uint256.Int, error) {
	if b == nil {
		return new(uint256.Int), nil
	}
	if b.Sign() < 0 {
		return nil, fmt.Errorf("negative amount")
	}
	v, overflow := uint256.FromBig(b)
	if overflow {
		return nil, fmt.Errorf("amount overflow")
	}
	return v, nil
}

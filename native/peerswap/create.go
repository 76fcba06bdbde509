package peerswap

import (
	"fmt"
	"strings"
)

// CreateParams describes a new offer. Deposit is the asset attached to the
// call; Asks lists every asset the seller accepts in return.
type CreateParams struct {
	Deposit     Balance
	Asks        []Balance
	Expires     *Expiration
	UserInfo    *UserInfo
	Description string
}

// Create validates the deposit and ask list, assigns the next free offer id
// and persists the offer. The returned result carries the id and the full
// record so callers learn which id was assigned.
func (e *Engine) Create(seller [20]byte, params CreateParams) (*CreateResult, error) {
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.Active {
		return nil, ErrStopped
	}
	expires := Never()
	if params.Expires != nil {
		expires = *params.Expires
	}
	if !expires.valid() {
		return nil, ErrExpired
	}
	if expires.IsExpired(e.block()) {
		return nil, ErrExpired
	}
	if len(params.Asks) == 0 {
		return nil, ErrNoAskTokens
	}

	sell, err := depositAsset(params.Deposit)
	if err != nil {
		return nil, err
	}

	offer := &Offer{
		Seller:            seller,
		Sell:              sell.Info,
		SellAmount:        cloneAmount(sell.Amount),
		InitialSellAmount: cloneAmount(sell.Amount),
		Expires:           expires,
		Description:       params.Description,
	}
	if params.UserInfo != nil {
		info := *params.UserInfo
		offer.UserInfo = &info
	}

	for _, ask := range params.Asks {
		if !ask.Kind.Valid() {
			return nil, ErrNoAskTokens
		}
		if ask.Kind == AssetNative && len(ask.Native) == 0 {
			return nil, ErrNoAskTokens
		}
		for _, unit := range ask.assets() {
			if err := validateAskUnit(unit); err != nil {
				return nil, err
			}
			if unit.Info.Equal(offer.Sell) || offer.leg(unit.Info) >= 0 {
				return nil, ErrSameToken
			}
			offer.AskFor = append(offer.AskFor, AskLeg{
				Asset:         unit.Info,
				InitialAmount: cloneAmount(unit.Amount),
				Amount:        cloneAmount(unit.Amount),
			})
		}
	}

	id, err := e.nextOfferID(cfg.NextIndex)
	if err != nil {
		return nil, err
	}
	if err := e.state.OfferPut(id, offer); err != nil {
		return nil, err
	}
	cfg.NextIndex = id + 1
	if err := e.state.ConfigPut(cfg); err != nil {
		return nil, err
	}

	return &CreateResult{
		Result: Result{Event: NewOfferCreatedEvent(id, offer)},
		ID:     id,
		Offer:  offer.Clone(),
	}, nil
}

// depositAsset normalises the deposited balance into the single asset being
// escrowed.
func depositAsset(deposit Balance) (Asset, error) {
	switch deposit.Kind {
	case AssetNative:
		if len(deposit.Native) == 0 {
			return Asset{}, ErrNoGiveTokens
		}
		if len(deposit.Native) > 1 {
			return Asset{}, ErrTooManyGiveTokens
		}
	case AssetToken:
	default:
		return Asset{}, ErrNoGiveTokens
	}
	sell := deposit.assets()[0]
	if err := checkAmount(sell.Amount); err != nil {
		return Asset{}, err
	}
	if belowDust(sell.Amount) {
		return Asset{}, ErrTooSmall
	}
	if err := sell.Info.validate(); err != nil {
		return Asset{}, fmt.Errorf("%w: %w", ErrNoGiveTokens, err)
	}
	return sell, nil
}

func validateAskUnit(unit Asset) error {
	if unit.Info.Kind == AssetNative && strings.TrimSpace(unit.Info.Denom) == "" {
		return ErrNoAskTokens
	}
	if unit.Amount == nil || unit.Amount.IsZero() {
		return ErrNoAskTokens
	}
	if err := checkAmount(unit.Amount); err != nil {
		return err
	}
	if err := unit.Info.validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrNoAskTokens, err)
	}
	return nil
}

// nextOfferID probes upward from start, wrapping past the largest id, and
// gives up once every id has been visited.
func (e *Engine) nextOfferID(start uint32) (uint32, error) {
	id := start
	for probes := uint64(0); probes < e.maxProbes; probes++ {
		taken, err := e.state.OfferHas(id)
		if err != nil {
			return 0, err
		}
		if !taken {
			return id, nil
		}
		id++
	}
	return 0, ErrOfferSpaceExhausted
}

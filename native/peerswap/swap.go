package peerswap

import (
	"github.com/holiman/uint256"
)

// SwapNative settles a payment made with coins attached to the call.
func (e *Engine) SwapNative(payer [20]byte, offerID uint32, coins []Coin) (*SwapResult, error) {
	return e.Swap(payer, offerID, NativeBalance(coins...), AssetNative)
}

// SwapToken settles a payment announced by a token contract.
func (e *Engine) SwapToken(payer [20]byte, offerID uint32, token TokenAmount) (*SwapResult, error) {
	return e.Swap(payer, offerID, TokenBalance(token.Contract, token.Amount), AssetToken)
}

// Swap fills offerID, in whole or in part, with the paid balance.
//
// The payment is matched to one ask leg. The fraction of that leg left
// unpaid becomes the ratio every leg and the escrowed amount are scaled by,
// so a partial fill on one leg shrinks the remaining requirement on all of
// them. The escrow released to the payer is whatever the scaling removed.
// Taker fees come out of the payment, maker fees out of the release, and
// both go to the admin.
//
// declared is the kind the ingestion path guarantees; a paid balance of a
// different kind panics.
func (e *Engine) Swap(payer [20]byte, offerID uint32, paid Balance, declared AssetKind) (*SwapResult, error) {
	paid.mustKind(declared)

	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	offer, err := e.loadOffer(offerID)
	if err != nil {
		return nil, err
	}
	if offer.Expires.IsExpired(e.block()) {
		return nil, ErrExpired
	}

	if paid.Kind == AssetNative {
		if len(paid.Native) == 0 {
			return nil, ErrWrongDenom
		}
		if len(paid.Native) > 1 {
			return nil, ErrTooManyDenoms
		}
	}
	payment := paid.assets()[0]
	if err := checkAmount(payment.Amount); err != nil {
		return nil, err
	}

	idx := offer.leg(payment.Info)
	if idx < 0 {
		return nil, ErrWrongDenom
	}
	required := offer.AskFor[idx].Amount
	if payment.Amount.IsZero() || (!payment.Amount.Eq(required) && belowDust(payment.Amount)) {
		return nil, ErrTooSmall
	}

	remaining := DecimalZero()
	if required.Gt(payment.Amount) {
		unpaid := new(uint256.Int).Sub(required, payment.Amount)
		remaining, err = DecimalFromRatio(unpaid, required)
		if err != nil {
			return nil, err
		}
	}

	released := new(uint256.Int).Sub(offer.SellAmount, remaining.MulAmount(offer.SellAmount))
	offer.SellAmount = new(uint256.Int).Sub(offer.SellAmount, released)
	for i := range offer.AskFor {
		offer.AskFor[i].Amount = remaining.MulAmount(offer.AskFor[i].Amount)
	}

	takerFee := BasisPoints(cfg.TakerFeeBps).MulAmount(payment.Amount)
	makerFee := BasisPoints(cfg.MakerFeeBps).MulAmount(released)

	transfers := []Transfer{
		newTransfer(offer.Seller, payment.Info, new(uint256.Int).Sub(payment.Amount, takerFee)),
		newTransfer(cfg.Admin, payment.Info, takerFee),
		newTransfer(payer, offer.Sell, new(uint256.Int).Sub(released, makerFee)),
		newTransfer(cfg.Admin, offer.Sell, makerFee),
	}

	settlement := Settlement{
		OfferID:   offerID,
		Seller:    offer.Seller,
		Given:     Asset{Info: offer.Sell, Amount: cloneAmount(released)},
		Sent:      payment.Clone(),
		TakerFee:  takerFee,
		MakerFee:  makerFee,
		Completed: offer.SellAmount.IsZero(),
	}
	if settlement.Completed {
		if err := e.state.OfferDelete(offerID); err != nil {
			return nil, err
		}
	} else if err := e.state.OfferPut(offerID, offer); err != nil {
		return nil, err
	}

	return &SwapResult{
		Result:     Result{Transfers: transfers, Event: NewSwapEvent(&settlement)},
		Settlement: settlement,
	}, nil
}

package peerswap

import "errors"

var (
	ErrUnauthorized        = errors.New("peerswap: unauthorized")
	ErrStopped             = errors.New("peerswap: the engine has been paused")
	ErrExpired             = errors.New("peerswap: expiration already satisfied")
	ErrNotFound            = errors.New("peerswap: the offer doesn't exist or has been completed already")
	ErrNoAskTokens         = errors.New("peerswap: can't create an offer without tokens to ask")
	ErrNoGiveTokens        = errors.New("peerswap: can't create an offer without tokens to give")
	ErrTooManyGiveTokens   = errors.New("peerswap: can't create an offer with many tokens to give")
	ErrTooManyDenoms       = errors.New("peerswap: too many denoms")
	ErrTooSmall            = errors.New("peerswap: amount is below the dust threshold")
	ErrSameToken           = errors.New("peerswap: can't ask and sell the same token")
	ErrWrongDenom          = errors.New("peerswap: wrong denomination")
	ErrOfferSpaceExhausted = errors.New("peerswap: no free offer id left")
	ErrAmountOverflow      = errors.New("peerswap: amount exceeds 128 bits")
	ErrFeeOutOfRange       = errors.New("peerswap: fee bps out of range")
	ErrInvalidAsset        = errors.New("peerswap: invalid asset")

	errNilState           = errors.New("peerswap engine: state not configured")
	errNotInstantiated    = errors.New("peerswap engine: not instantiated")
	errAlreadyInitialised = errors.New("peerswap engine: already instantiated")
)

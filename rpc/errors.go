package rpc

import (
	"errors"
	"net/http"

	"peerswap/core"
	"peerswap/indexer"
	"peerswap/native/peerswap"
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeUnauthorized   = -32001
	codeUnavailable    = -32003
	codeRateLimited    = -32020
)

const (
	codeOfferNotFound    = -32040
	codeForbidden        = -32041
	codeEngineStopped    = -32042
	codeOfferExpired     = -32043
	codeInvalidOffer     = -32044
	codeInvalidPayment   = -32045
	codeOfferSpaceFull   = -32046
	codeFundsNotAccepted = -32047
)

type errorMapping struct {
	target  error
	status  int
	code    int
	message string
}

var engineErrors = []errorMapping{
	{peerswap.ErrNotFound, http.StatusNotFound, codeOfferNotFound, "not_found"},
	{peerswap.ErrUnauthorized, http.StatusForbidden, codeForbidden, "forbidden"},
	{peerswap.ErrStopped, http.StatusConflict, codeEngineStopped, "stopped"},
	{peerswap.ErrExpired, http.StatusConflict, codeOfferExpired, "expired"},
	{peerswap.ErrNoAskTokens, http.StatusBadRequest, codeInvalidOffer, "invalid_offer"},
	{peerswap.ErrNoGiveTokens, http.StatusBadRequest, codeInvalidOffer, "invalid_offer"},
	{peerswap.ErrTooManyGiveTokens, http.StatusBadRequest, codeInvalidOffer, "invalid_offer"},
	{peerswap.ErrSameToken, http.StatusBadRequest, codeInvalidOffer, "invalid_offer"},
	{peerswap.ErrInvalidAsset, http.StatusBadRequest, codeInvalidOffer, "invalid_offer"},
	{peerswap.ErrAmountOverflow, http.StatusBadRequest, codeInvalidParams, "invalid_params"},
	{peerswap.ErrFeeOutOfRange, http.StatusBadRequest, codeInvalidOffer, "invalid_offer"},
	{peerswap.ErrTooManyDenoms, http.StatusBadRequest, codeInvalidPayment, "invalid_payment"},
	{peerswap.ErrTooSmall, http.StatusBadRequest, codeInvalidPayment, "invalid_payment"},
	{peerswap.ErrWrongDenom, http.StatusBadRequest, codeInvalidPayment, "invalid_payment"},
	{peerswap.ErrOfferSpaceExhausted, http.StatusServiceUnavailable, codeOfferSpaceFull, "offer_space_exhausted"},
	{core.ErrFundsNotAccepted, http.StatusBadRequest, codeFundsNotAccepted, "funds_not_accepted"},
	{core.ErrInvalidMessage, http.StatusBadRequest, codeInvalidParams, "invalid_params"},
	{indexer.ErrInvalidQuery, http.StatusBadRequest, codeInvalidParams, "invalid_params"},
}

// mapError converts an execution or query failure into a JSON-RPC error and
// the HTTP status it is served with.
func mapError(err error) (int, *RPCError) {
	for _, m := range engineErrors {
		if errors.Is(err, m.target) {
			return m.status, &RPCError{Code: m.code, Message: m.message, Data: err.Error()}
		}
	}
	return http.StatusInternalServerError, &RPCError{Code: codeServerError, Message: "internal_error", Data: err.Error()}
}

package rpc

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"peerswap/core"
	"peerswap/core/events"
	"peerswap/crypto"
	"peerswap/indexer"
)

type executeParams struct {
	Msg   json.RawMessage `json:"msg"`
	Funds []core.Coin     `json:"funds,omitempty"`
}

type getOfferParams struct {
	ID *uint32 `json:"id"`
}

type listEventsParams struct {
	Type    string  `json:"type,omitempty"`
	OfferID *uint32 `json:"offer_id,omitempty"`
	Offset  int     `json:"offset,omitempty"`
	Limit   int     `json:"limit,omitempty"`
}

type eventResult struct {
	ID         uint64            `json:"id"`
	Height     uint64            `json:"height"`
	BlockTime  time.Time         `json:"block_time"`
	Type       string            `json:"type"`
	Sender     string            `json:"sender"`
	OfferID    *uint32           `json:"offer_id,omitempty"`
	Attributes map[string]string `json:"attributes"`
	Transfers  []events.Transfer `json:"transfers"`
}

type stateDigestResult struct {
	Height uint64 `json:"height"`
	Digest string `json:"digest"`
}

func invalidParams(message string, err error) (interface{}, int, *RPCError) {
	rpcErr := &RPCError{Code: codeInvalidParams, Message: message}
	if err != nil {
		rpcErr.Data = err.Error()
	}
	return nil, http.StatusBadRequest, rpcErr
}

func failed(err error) (interface{}, int, *RPCError) {
	status, rpcErr := mapError(err)
	return nil, status, rpcErr
}

// decodeParam unmarshals the single positional parameter into out. A missing
// parameter leaves out untouched when optional is set.
func decodeParam(req *RPCRequest, out interface{}, optional bool) *RPCError {
	if len(req.Params) == 0 {
		if optional {
			return nil
		}
		return &RPCError{Code: codeInvalidParams, Message: "parameter object required"}
	}
	if len(req.Params) > 1 {
		return &RPCError{Code: codeInvalidParams, Message: "expected a single parameter object"}
	}
	dec := json.NewDecoder(strings.NewReader(string(req.Params[0])))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return &RPCError{Code: codeInvalidParams, Message: "invalid parameter object", Data: err.Error()}
	}
	return nil
}

func (s *Server) handleExecute(r *http.Request, req *RPCRequest) (interface{}, int, *RPCError) {
	sender, authErr := s.auth.caller(r, crypto.PeerPrefix)
	if authErr != nil {
		return nil, http.StatusUnauthorized, authErr
	}
	var params executeParams
	if rpcErr := decodeParam(req, &params, false); rpcErr != nil {
		return nil, http.StatusBadRequest, rpcErr
	}
	msg, err := core.DecodeExecuteMsg(params.Msg)
	if err != nil {
		return failed(err)
	}
	if msg.Receive != nil {
		return invalidParams("token notifications must use peerswap_receive", nil)
	}
	funds, err := core.ParseCoins(params.Funds)
	if err != nil {
		return failed(err)
	}
	receipt, err := s.node.Execute(r.Context(), sender, funds, msg)
	if err != nil {
		return failed(err)
	}
	return receipt, http.StatusOK, nil
}

// handleReceive accepts a token notification. The authenticated caller is the
// token contract that moved the funds.
func (s *Server) handleReceive(r *http.Request, req *RPCRequest) (interface{}, int, *RPCError) {
	token, authErr := s.auth.caller(r, crypto.TokenPrefix)
	if authErr != nil {
		return nil, http.StatusUnauthorized, authErr
	}
	var params core.TokenReceive
	if rpcErr := decodeParam(req, &params, false); rpcErr != nil {
		return nil, http.StatusBadRequest, rpcErr
	}
	receipt, err := s.node.Execute(r.Context(), token, nil, &core.ExecuteMsg{Receive: &params})
	if err != nil {
		return failed(err)
	}
	return receipt, http.StatusOK, nil
}

func (s *Server) handleGetOffers(_ *http.Request, req *RPCRequest) (interface{}, int, *RPCError) {
	var params core.PageParams
	if rpcErr := decodeParam(req, &params, true); rpcErr != nil {
		return nil, http.StatusBadRequest, rpcErr
	}
	view, err := s.node.Offers(params)
	if err != nil {
		return failed(err)
	}
	return view, http.StatusOK, nil
}

func (s *Server) handleGetOffersBySeller(_ *http.Request, req *RPCRequest) (interface{}, int, *RPCError) {
	var params core.GetAddressOffers
	if rpcErr := decodeParam(req, &params, false); rpcErr != nil {
		return nil, http.StatusBadRequest, rpcErr
	}
	view, err := s.node.Query(&core.QueryMsg{GetAddressOffers: &params})
	if err != nil {
		return failed(err)
	}
	return view, http.StatusOK, nil
}

func (s *Server) handleGetOffer(_ *http.Request, req *RPCRequest) (interface{}, int, *RPCError) {
	var params getOfferParams
	if rpcErr := decodeParam(req, &params, false); rpcErr != nil {
		return nil, http.StatusBadRequest, rpcErr
	}
	if params.ID == nil {
		return invalidParams("id required", nil)
	}
	view, err := s.node.Offer(*params.ID)
	if err != nil {
		return failed(err)
	}
	return view, http.StatusOK, nil
}

func (s *Server) handleGetConfig(_ *http.Request, _ *RPCRequest) (interface{}, int, *RPCError) {
	view, err := s.node.Config()
	if err != nil {
		return failed(err)
	}
	return view, http.StatusOK, nil
}

func (s *Server) handleContractInfo(_ *http.Request, _ *RPCRequest) (interface{}, int, *RPCError) {
	view, err := s.node.ContractInfo()
	if err != nil {
		return failed(err)
	}
	return view, http.StatusOK, nil
}

func (s *Server) handleListEvents(r *http.Request, req *RPCRequest) (interface{}, int, *RPCError) {
	if s.events == nil {
		return nil, http.StatusServiceUnavailable, &RPCError{Code: codeUnavailable, Message: "event indexer disabled"}
	}
	var params listEventsParams
	if rpcErr := decodeParam(req, &params, true); rpcErr != nil {
		return nil, http.StatusBadRequest, rpcErr
	}
	records, err := s.events.ListEvents(r.Context(), indexer.ListQuery{
		Type:    params.Type,
		OfferID: params.OfferID,
		Offset:  params.Offset,
		Limit:   params.Limit,
	})
	if err != nil {
		return failed(err)
	}
	out := make([]eventResult, 0, len(records))
	for _, rec := range records {
		attrs, err := rec.AttributeMap()
		if err != nil {
			return failed(err)
		}
		transfers := make([]events.Transfer, 0, len(rec.Transfers))
		for _, tr := range rec.Transfers {
			transfers = append(transfers, events.Transfer{Recipient: tr.Recipient, Asset: tr.Asset, Amount: tr.Amount})
		}
		out = append(out, eventResult{
			ID:         rec.ID,
			Height:     rec.Height,
			BlockTime:  rec.BlockTime,
			Type:       rec.Type,
			Sender:     rec.Sender,
			OfferID:    rec.OfferID,
			Attributes: attrs,
			Transfers:  transfers,
		})
	}
	return out, http.StatusOK, nil
}

func (s *Server) handleStateDigest(_ *http.Request, _ *RPCRequest) (interface{}, int, *RPCError) {
	height, digest, err := s.node.StateDigest()
	if err != nil {
		return failed(err)
	}
	return stateDigestResult{Height: height, Digest: digest}, http.StatusOK, nil
}

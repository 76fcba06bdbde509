package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"peerswap/crypto"
	"peerswap/native/peerswap"
)

var (
	// ErrInvalidMessage reports a message that does not name exactly one
	// operation or carries malformed fields.
	ErrInvalidMessage = errors.New("core: invalid message")
	// ErrFundsNotAccepted rejects coins attached to an operation that does not
	// take a deposit.
	ErrFundsNotAccepted = errors.New("core: operation does not accept funds")
)

// Coin is the wire form of a native coin. Amounts are base-10 strings.
type Coin struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

// TokenAmount is the wire form of a token amount.
type TokenAmount struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

// Balance lists either native coins or a single token amount.
type Balance struct {
	Native []Coin       `json:"native,omitempty"`
	Token  *TokenAmount `json:"token,omitempty"`
}

// Expiration names at most one bound. AtTime is nanoseconds since the Unix
// epoch as a decimal string.
type Expiration struct {
	AtHeight *uint64   `json:"at_height,omitempty"`
	AtTime   *string   `json:"at_time,omitempty"`
	Never    *struct{} `json:"never,omitempty"`
}

type UserInfo struct {
	User        string `json:"user"`
	AccountType string `json:"account_type"`
}

type CreateMsg struct {
	Ask         []Balance   `json:"ask"`
	Expires     *Expiration `json:"expires,omitempty"`
	UserInfo    *UserInfo   `json:"user_info,omitempty"`
	Description string      `json:"description,omitempty"`
}

type SwapMsg struct {
	ID uint32 `json:"id"`
}

type CancelMsg struct {
	ID uint32 `json:"id"`
}

type SetActiveMsg struct {
	Active bool `json:"active"`
}

// TokenReceive is the notification a token contract delivers after moving
// Amount of its unit to the engine on behalf of Sender. Msg holds an encoded
// ReceiveMsg.
type TokenReceive struct {
	Sender string `json:"sender"`
	Amount string `json:"amount"`
	Msg    []byte `json:"msg"`
}

// ReceiveMsg is the intent embedded in a token notification.
type ReceiveMsg struct {
	Create *CreateMsg `json:"create,omitempty"`
	Swap   *SwapMsg   `json:"swap,omitempty"`
}

// ExecuteMsg names exactly one state-changing operation.
type ExecuteMsg struct {
	Create        *CreateMsg    `json:"create,omitempty"`
	Swap          *SwapMsg      `json:"swap,omitempty"`
	Cancel        *CancelMsg    `json:"cancel,omitempty"`
	SetActive     *SetActiveMsg `json:"set_active,omitempty"`
	RemoveExpired *struct{}     `json:"remove_expired,omitempty"`
	Receive       *TokenReceive `json:"receive,omitempty"`
}

// Operation returns the name of the single variant set, or an error.
func (m *ExecuteMsg) Operation() (string, error) {
	if m == nil {
		return "", fmt.Errorf("%w: empty execute message", ErrInvalidMessage)
	}
	var names []string
	if m.Create != nil {
		names = append(names, "create")
	}
	if m.Swap != nil {
		names = append(names, "swap")
	}
	if m.Cancel != nil {
		names = append(names, "cancel")
	}
	if m.SetActive != nil {
		names = append(names, "set_active")
	}
	if m.RemoveExpired != nil {
		names = append(names, "remove_expired")
	}
	if m.Receive != nil {
		names = append(names, "receive")
	}
	if len(names) != 1 {
		return "", fmt.Errorf("%w: expected one operation, got %d", ErrInvalidMessage, len(names))
	}
	return names[0], nil
}

// OfferID reports the offer a swap or cancel targets.
func (m *ExecuteMsg) OfferID() (uint32, bool) {
	switch {
	case m == nil:
		return 0, false
	case m.Swap != nil:
		return m.Swap.ID, true
	case m.Cancel != nil:
		return m.Cancel.ID, true
	}
	return 0, false
}

type PageParams struct {
	IncludeExpired *bool   `json:"include_expired,omitempty"`
	StartAfter     *uint32 `json:"start_after,omitempty"`
	Limit          *uint32 `json:"limit,omitempty"`
}

func (p PageParams) toQuery() peerswap.PageQuery {
	return peerswap.PageQuery{
		IncludeExpired: p.IncludeExpired != nil && *p.IncludeExpired,
		StartAfter:     p.StartAfter,
		Limit:          p.Limit,
	}
}

type GetAddressOffers struct {
	User string `json:"user"`
	PageParams
}

type GetOffer struct {
	ID uint32 `json:"id"`
}

// QueryMsg names exactly one read-only query.
type QueryMsg struct {
	GetOffers        *PageParams       `json:"get_offers,omitempty"`
	GetAddressOffers *GetAddressOffers `json:"get_address_offers,omitempty"`
	GetOffer         *GetOffer         `json:"get_offer,omitempty"`
	Config           *struct{}         `json:"config,omitempty"`
	ContractInfo     *struct{}         `json:"contract_info,omitempty"`
}

// DecodeExecuteMsg parses a JSON execute message, rejecting unknown fields.
func DecodeExecuteMsg(raw []byte) (*ExecuteMsg, error) {
	var msg ExecuteMsg
	if err := decodeStrict(raw, &msg); err != nil {
		return nil, err
	}
	if _, err := msg.Operation(); err != nil {
		return nil, err
	}
	return &msg, nil
}

// DecodeReceiveMsg parses the intent embedded in a token notification.
func DecodeReceiveMsg(raw []byte) (*ReceiveMsg, error) {
	var msg ReceiveMsg
	if err := decodeStrict(raw, &msg); err != nil {
		return nil, err
	}
	if (msg.Create == nil) == (msg.Swap == nil) {
		return nil, fmt.Errorf("%w: receive message must hold create or swap", ErrInvalidMessage)
	}
	return &msg, nil
}

func decodeStrict(raw []byte, out interface{}) error {
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return nil
}

// ParseCoins converts wire coins into engine coins.
func ParseCoins(coins []Coin) ([]peerswap.Coin, error) {
	out := make([]peerswap.Coin, 0, len(coins))
	for i, coin := range coins {
		denom := strings.TrimSpace(coin.Denom)
		if denom == "" {
			return nil, fmt.Errorf("%w: coin %d: denom required", ErrInvalidMessage, i)
		}
		amount, err := peerswap.ParseAmount(coin.Amount)
		if err != nil {
			return nil, fmt.Errorf("coin %d: %w", i, err)
		}
		out = append(out, peerswap.Coin{Denom: denom, Amount: amount})
	}
	return out, nil
}

func (b Balance) toEngine() (peerswap.Balance, error) {
	switch {
	case b.Token != nil && len(b.Native) > 0:
		return peerswap.Balance{}, fmt.Errorf("%w: balance mixes native and token", ErrInvalidMessage)
	case b.Token != nil:
		contract, err := crypto.DecodeWithPrefix(strings.TrimSpace(b.Token.Address), crypto.TokenPrefix)
		if err != nil {
			return peerswap.Balance{}, fmt.Errorf("%w: token address: %v", ErrInvalidMessage, err)
		}
		amount, err := peerswap.ParseAmount(b.Token.Amount)
		if err != nil {
			return peerswap.Balance{}, err
		}
		return peerswap.TokenBalance(contract, amount), nil
	default:
		coins, err := ParseCoins(b.Native)
		if err != nil {
			return peerswap.Balance{}, err
		}
		return peerswap.NativeBalance(coins...), nil
	}
}

func (e *Expiration) toEngine() (*peerswap.Expiration, error) {
	if e == nil {
		return nil, nil
	}
	set := 0
	out := peerswap.Never()
	if e.AtHeight != nil {
		set++
		out = peerswap.AtHeight(*e.AtHeight)
	}
	if e.AtTime != nil {
		set++
		nanos, err := strconv.ParseUint(strings.TrimSpace(*e.AtTime), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: at_time: %v", ErrInvalidMessage, err)
		}
		out = peerswap.Expiration{Kind: peerswap.ExpiresAtTime, Time: nanos}
	}
	if e.Never != nil {
		set++
	}
	if set > 1 {
		return nil, fmt.Errorf("%w: expiration must name one bound", ErrInvalidMessage)
	}
	return &out, nil
}

func (m *CreateMsg) toParams(deposit peerswap.Balance) (peerswap.CreateParams, error) {
	params := peerswap.CreateParams{Deposit: deposit, Description: m.Description}
	for i, ask := range m.Ask {
		balance, err := ask.toEngine()
		if err != nil {
			return params, fmt.Errorf("ask %d: %w", i, err)
		}
		params.Asks = append(params.Asks, balance)
	}
	expires, err := m.Expires.toEngine()
	if err != nil {
		return params, err
	}
	params.Expires = expires
	if m.UserInfo != nil {
		params.UserInfo = &peerswap.UserInfo{User: m.UserInfo.User, AccountType: m.UserInfo.AccountType}
	}
	return params, nil
}

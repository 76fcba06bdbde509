package core

import (
	"strconv"

	"peerswap/core/events"
	"peerswap/crypto"
	"peerswap/native/peerswap"
)

// AssetView identifies an asset on the wire: exactly one of Native (the
// denomination) or Token (the contract address) is set.
type AssetView struct {
	Native string `json:"native,omitempty"`
	Token  string `json:"token,omitempty"`
}

type AskLegView struct {
	Asset         AssetView `json:"asset"`
	InitialAmount string    `json:"initial_amount"`
	Amount        string    `json:"amount"`
}

type OfferView struct {
	ID                uint32       `json:"id"`
	Seller            string       `json:"seller"`
	Sell              AssetView    `json:"sell"`
	SellAmount        string       `json:"sell_amount"`
	InitialSellAmount string       `json:"initial_sell_amount"`
	Ask               []AskLegView `json:"ask"`
	Expires           Expiration   `json:"expires"`
	UserInfo          *UserInfo    `json:"user_info,omitempty"`
	Description       string       `json:"description,omitempty"`
}

type OffersView struct {
	Offers []OfferView `json:"offers"`
}

type ConfigView struct {
	Admin       string `json:"admin"`
	Active      bool   `json:"active"`
	MakerFeeBps uint16 `json:"maker_fee_bps"`
	TakerFeeBps uint16 `json:"taker_fee_bps"`
	NextIndex   uint32 `json:"next_index"`
}

type ContractInfoView struct {
	Name    string `json:"contract"`
	Version string `json:"version"`
}

func newAssetView(info peerswap.AssetInfo) AssetView {
	if info.Kind == peerswap.AssetToken {
		return AssetView{Token: crypto.FormatToken(info.Contract)}
	}
	return AssetView{Native: info.Denom}
}

func newExpirationView(e peerswap.Expiration) Expiration {
	switch e.Kind {
	case peerswap.ExpiresAtHeight:
		h := e.Height
		return Expiration{AtHeight: &h}
	case peerswap.ExpiresAtTime:
		t := strconv.FormatUint(e.Time, 10)
		return Expiration{AtTime: &t}
	default:
		return Expiration{Never: &struct{}{}}
	}
}

// NewOfferView renders an offer for JSON clients.
func NewOfferView(id uint32, o *peerswap.Offer) OfferView {
	view := OfferView{
		ID:                id,
		Seller:            crypto.FormatPeer(o.Seller),
		Sell:              newAssetView(o.Sell),
		SellAmount:        o.SellAmount.Dec(),
		InitialSellAmount: o.InitialSellAmount.Dec(),
		Ask:               make([]AskLegView, len(o.AskFor)),
		Expires:           newExpirationView(o.Expires),
		Description:       o.Description,
	}
	for i, leg := range o.AskFor {
		view.Ask[i] = AskLegView{
			Asset:         newAssetView(leg.Asset),
			InitialAmount: leg.InitialAmount.Dec(),
			Amount:        leg.Amount.Dec(),
		}
	}
	if o.UserInfo != nil {
		view.UserInfo = &UserInfo{User: o.UserInfo.User, AccountType: o.UserInfo.AccountType}
	}
	return view
}

func newOffersView(entries []peerswap.OfferEntry) OffersView {
	out := OffersView{Offers: make([]OfferView, 0, len(entries))}
	for _, entry := range entries {
		out.Offers = append(out.Offers, NewOfferView(entry.ID, entry.Offer))
	}
	return out
}

// NewConfigView renders the configuration for JSON clients.
func NewConfigView(cfg *peerswap.Config) ConfigView {
	return ConfigView{
		Admin:       crypto.FormatPeer(cfg.Admin),
		Active:      cfg.Active,
		MakerFeeBps: cfg.MakerFeeBps,
		TakerFeeBps: cfg.TakerFeeBps,
		NextIndex:   cfg.NextIndex,
	}
}

func wireTransfers(transfers []peerswap.Transfer) []events.Transfer {
	out := make([]events.Transfer, 0, len(transfers))
	for _, tr := range transfers {
		out = append(out, events.Transfer{
			Recipient: crypto.FormatPeer(tr.Recipient),
			Asset:     tr.Asset.Info.String(),
			Amount:    tr.Asset.Amount.Dec(),
		})
	}
	return out
}

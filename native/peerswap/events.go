package peerswap

import (
	"fmt"
	"strconv"

	"github.com/holiman/uint256"

	"peerswap/core/types"
	"peerswap/crypto"
)

const (
	EventTypeInstantiated   = "peerswap.instantiated"
	EventTypeOfferCreated   = "peerswap.offer_created"
	EventTypeSwap           = "peerswap.swap"
	EventTypeSwapCompleted  = "peerswap.swap_completed"
	EventTypeOfferCancelled = "peerswap.offer_cancelled"
	EventTypeSetActive      = "peerswap.set_active"
	EventTypeRemoveExpired  = "peerswap.remove_expired"
)

// NewInstantiatedEvent returns the payload emitted once the engine is
// configured.
func NewInstantiatedEvent(cfg *Config) *types.Event {
	return &types.Event{
		Type: EventTypeInstantiated,
		Attributes: map[string]string{
			"method":      "instantiate",
			"owner":       crypto.FormatPeer(cfg.Admin),
			"takerFeeBps": strconv.FormatUint(uint64(cfg.TakerFeeBps), 10),
			"makerFeeBps": strconv.FormatUint(uint64(cfg.MakerFeeBps), 10),
		},
	}
}

// NewOfferCreatedEvent returns the canonical payload for a new offer.
func NewOfferCreatedEvent(id uint32, o *Offer) *types.Event {
	return &types.Event{
		Type: EventTypeOfferCreated,
		Attributes: map[string]string{
			"method":          "create_offer",
			types.AttrOfferID: formatID(id),
			"seller":          crypto.FormatPeer(o.Seller),
			"amount":          formatAmount(o.SellAmount),
			"token":           o.Sell.String(),
		},
	}
}

// Settlement describes what a swap moved.
type Settlement struct {
	OfferID   uint32
	Seller    [20]byte
	Given     Asset
	Sent      Asset
	TakerFee  *uint256.Int
	MakerFee  *uint256.Int
	Completed bool
}

// NewSwapEvent returns the payload for a partial or completing swap.
func NewSwapEvent(s *Settlement) *types.Event {
	eventType := EventTypeSwap
	if s.Completed {
		eventType = EventTypeSwapCompleted
	}
	return &types.Event{
		Type: eventType,
		Attributes: map[string]string{
			"method":          "swap",
			types.AttrOfferID: formatID(s.OfferID),
			"seller":          crypto.FormatPeer(s.Seller),
			"givenAmount":     formatAmount(s.Given.Amount),
			"givenToken":      s.Given.Info.String(),
			"sentAmount":      formatAmount(s.Sent.Amount),
			"sentToken":       s.Sent.Info.String(),
			"takerFee":        formatAmount(s.TakerFee),
			"makerFee":        formatAmount(s.MakerFee),
			"completed":       strconv.FormatBool(s.Completed),
		},
	}
}

// NewOfferCancelledEvent returns the payload for a seller cancellation.
func NewOfferCancelledEvent(id uint32, o *Offer) *types.Event {
	return &types.Event{
		Type: EventTypeOfferCancelled,
		Attributes: map[string]string{
			"method":          "cancel",
			types.AttrOfferID: formatID(id),
			"amount":          formatAmount(o.SellAmount),
			"token":           o.Sell.String(),
		},
	}
}

// NewSetActiveEvent returns the payload for an admin pause toggle.
func NewSetActiveEvent(active bool) *types.Event {
	return &types.Event{
		Type: EventTypeSetActive,
		Attributes: map[string]string{
			"method": "set_active",
			"active": strconv.FormatBool(active),
		},
	}
}

// ExpiredRefund records one offer removed by the sweeper.
type ExpiredRefund struct {
	OfferID uint32
	Offer   *Offer
}

// NewRemoveExpiredEvent aggregates every refund made by one sweep. Entries
// are keyed refunded.<n> in ascending offer id order.
func NewRemoveExpiredEvent(refunds []ExpiredRefund) *types.Event {
	attrs := map[string]string{
		"method": "remove_expired",
		"count":  strconv.Itoa(len(refunds)),
	}
	for i, r := range refunds {
		attrs[fmt.Sprintf("refunded.%d", i)] = fmt.Sprintf("%d : %s %s to %s",
			r.OfferID, formatAmount(r.Offer.SellAmount), r.Offer.Sell.String(), crypto.FormatPeer(r.Offer.Seller))
	}
	return &types.Event{Type: EventTypeRemoveExpired, Attributes: attrs}
}

func formatID(id uint32) string {
	return strconv.FormatUint(uint64(id), 10)
}

package core

import (
	"fmt"
	"strings"

	"peerswap/crypto"
	"peerswap/native/peerswap"
)

// Offers lists offers in ascending id order.
func (n *Node) Offers(page PageParams) (OffersView, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	engine, err := n.readEngine()
	if err != nil {
		return OffersView{}, err
	}
	entries, err := engine.Offers(page.toQuery())
	if err != nil {
		return OffersView{}, err
	}
	return newOffersView(entries), nil
}

// OffersBySeller lists the offers escrowed by seller in ascending id order.
func (n *Node) OffersBySeller(seller [20]byte, page PageParams) (OffersView, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	engine, err := n.readEngine()
	if err != nil {
		return OffersView{}, err
	}
	entries, err := engine.OffersBySeller(seller, page.toQuery())
	if err != nil {
		return OffersView{}, err
	}
	return newOffersView(entries), nil
}

// Offer fetches one offer.
func (n *Node) Offer(id uint32) (OfferView, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	engine, err := n.readEngine()
	if err != nil {
		return OfferView{}, err
	}
	offer, err := engine.Offer(id)
	if err != nil {
		return OfferView{}, err
	}
	return NewOfferView(id, offer), nil
}

// Config returns the current configuration.
func (n *Node) Config() (ConfigView, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	engine, err := n.readEngine()
	if err != nil {
		return ConfigView{}, err
	}
	cfg, err := engine.Config()
	if err != nil {
		return ConfigView{}, err
	}
	return NewConfigView(cfg), nil
}

// ContractInfo returns the recorded contract name and version.
func (n *Node) ContractInfo() (ContractInfoView, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	engine, err := n.readEngine()
	if err != nil {
		return ContractInfoView{}, err
	}
	info, err := engine.ContractInfo()
	if err != nil {
		return ContractInfoView{}, err
	}
	return ContractInfoView{Name: info.Name, Version: info.Version}, nil
}

// Snapshot returns every stored offer, expired or not, in ascending id
// order.
func (n *Node) Snapshot() ([]peerswap.OfferEntry, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	engine, err := n.readEngine()
	if err != nil {
		return nil, err
	}
	var (
		out   []peerswap.OfferEntry
		after *uint32
	)
	all := peerswap.MaxPageLimit
	for {
		page, err := engine.Offers(peerswap.PageQuery{IncludeExpired: true, StartAfter: after, Limit: &all})
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) < int(all) {
			return out, nil
		}
		last := page[len(page)-1].ID
		after = &last
	}
}

// Query answers a QueryMsg with the matching view.
func (n *Node) Query(msg *QueryMsg) (interface{}, error) {
	if msg == nil {
		return nil, fmt.Errorf("%w: empty query", ErrInvalidMessage)
	}
	set := 0
	for _, present := range []bool{msg.GetOffers != nil, msg.GetAddressOffers != nil, msg.GetOffer != nil, msg.Config != nil, msg.ContractInfo != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return nil, fmt.Errorf("%w: expected one query, got %d", ErrInvalidMessage, set)
	}
	switch {
	case msg.GetOffers != nil:
		return n.Offers(*msg.GetOffers)
	case msg.GetAddressOffers != nil:
		seller, err := crypto.DecodeWithPrefix(strings.TrimSpace(msg.GetAddressOffers.User), crypto.PeerPrefix)
		if err != nil {
			return nil, fmt.Errorf("%w: user: %v", ErrInvalidMessage, err)
		}
		return n.OffersBySeller(seller, msg.GetAddressOffers.PageParams)
	case msg.GetOffer != nil:
		return n.Offer(msg.GetOffer.ID)
	case msg.Config != nil:
		return n.Config()
	default:
		return n.ContractInfo()
	}
}

package peerswap

// Cancel removes offerID and refunds its remaining escrow to the seller. Only
// the seller may cancel, and cancellation works while the engine is paused.
func (e *Engine) Cancel(sender [20]byte, offerID uint32) (*Result, error) {
	offer, err := e.loadOffer(offerID)
	if err != nil {
		return nil, err
	}
	if sender != offer.Seller {
		return nil, ErrUnauthorized
	}
	if err := e.state.OfferDelete(offerID); err != nil {
		return nil, err
	}
	return &Result{
		Transfers: []Transfer{newTransfer(offer.Seller, offer.Sell, offer.SellAmount)},
		Event:     NewOfferCancelledEvent(offerID, offer),
	}, nil
}

package peerswap

// RemoveExpired refunds and deletes every offer whose expiration has been
// reached. Anyone may call it. Offers are collected in ascending id order
// before any is removed so the scan never observes its own deletions.
func (e *Engine) RemoveExpired() (*SweepResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	block := e.block()
	var expired []ExpiredRefund
	err := e.state.OfferIterate(nil, func(id uint32, offer *Offer) (bool, error) {
		if offer.Expires.IsExpired(block) {
			expired = append(expired, ExpiredRefund{OfferID: id, Offer: offer.Clone()})
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	transfers := make([]Transfer, 0, len(expired))
	for _, r := range expired {
		if err := e.state.OfferDelete(r.OfferID); err != nil {
			return nil, err
		}
		transfers = append(transfers, newTransfer(r.Offer.Seller, r.Offer.Sell, r.Offer.SellAmount))
	}
	return &SweepResult{
		Result:   Result{Transfers: transfers, Event: NewRemoveExpiredEvent(expired)},
		Refunded: expired,
	}, nil
}

package peerswap

const (
	// DefaultPageLimit applies when a listing does not name a limit.
	DefaultPageLimit uint32 = 20
	// MaxPageLimit caps every listing regardless of the requested limit.
	MaxPageLimit uint32 = 60
)

// PageQuery selects a window of offers. StartAfter excludes every id less
// than or equal to it.
type PageQuery struct {
	IncludeExpired bool
	StartAfter     *uint32
	Limit          *uint32
}

func (q PageQuery) limit() int {
	limit := DefaultPageLimit
	if q.Limit != nil {
		limit = *q.Limit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return int(limit)
}

// OfferEntry pairs an offer with its id.
type OfferEntry struct {
	ID    uint32
	Offer *Offer
}

// Offers lists offers in ascending id order. Expired offers are skipped
// unless the query includes them.
func (e *Engine) Offers(q PageQuery) ([]OfferEntry, error) {
	return e.listOffers(q, nil)
}

// OffersBySeller lists the offers escrowed by seller in ascending id order.
// Expired offers are skipped unless the query includes them.
func (e *Engine) OffersBySeller(seller [20]byte, q PageQuery) ([]OfferEntry, error) {
	return e.listOffers(q, func(o *Offer) bool { return o.Seller == seller })
}

func (e *Engine) listOffers(q PageQuery, match func(*Offer) bool) ([]OfferEntry, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	limit := q.limit()
	out := make([]OfferEntry, 0, limit)
	if limit == 0 {
		return out, nil
	}
	block := e.block()
	err := e.state.OfferIterate(q.StartAfter, func(id uint32, offer *Offer) (bool, error) {
		if match != nil && !match(offer) {
			return true, nil
		}
		if !q.IncludeExpired && offer.Expires.IsExpired(block) {
			return true, nil
		}
		out = append(out, OfferEntry{ID: id, Offer: offer.Clone()})
		return len(out) < limit, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Offer fetches a single offer, expired or not.
func (e *Engine) Offer(id uint32) (*Offer, error) {
	offer, err := e.loadOffer(id)
	if err != nil {
		return nil, err
	}
	return offer.Clone(), nil
}

// Config returns a snapshot of the current configuration.
func (e *Engine) Config() (*Config, error) {
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	return cfg.Clone(), nil
}

// ContractInfo returns the name and version recorded at instantiation.
func (e *Engine) ContractInfo() (*ContractInfo, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	info, ok, err := e.state.ContractInfoGet()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errNotInstantiated
	}
	return info, nil
}

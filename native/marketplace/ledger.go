package marketplace

import "math/big"

// ledgerState is the persistence surface backing the offer ledger.
type ledgerState interface {
	MarketOfferGet(id uint64) (*Offer, bool, error)
	MarketOfferPut(offer *Offer) error
	MarketOfferCount() (uint64, error)
	SetMarketOfferCount(count uint64) error
}

// Ledger is the append-only store of offers. Identifiers are dense and
// sequential from zero; offers are never removed.
type Ledger struct {
	state ledgerState
}

// NewLedger creates a ledger over the provided state.
func NewLedger(state ledgerState) *Ledger {
	return &Ledger{state: state}
}

// Count returns the number of offers ever created.
func (l *Ledger) Count() (uint64, error) {
	if l == nil || l.state == nil {
		return 0, errNilState
	}
	return l.state.MarketOfferCount()
}

// Append stores the offer under the next identifier and returns it.
func (l *Ledger) Append(offer *Offer) (uint64, error) {
	count, err := l.Count()
	if err != nil {
		return 0, err
	}
	offer = offer.Clone()
	offer.ID = count
	sanitized, err := SanitizeOffer(offer)
	if err != nil {
		return 0, err
	}
	if err := l.state.MarketOfferPut(sanitized); err != nil {
		return 0, err
	}
	if err := l.state.SetMarketOfferCount(count + 1); err != nil {
		return 0, err
	}
	return count, nil
}

// Get returns the offer stored under id.
func (l *Ledger) Get(id uint64) (*Offer, error) {
	count, err := l.Count()
	if err != nil {
		return nil, err
	}
	if id >= count {
		return nil, ErrOfferNotFound
	}
	offer, ok, err := l.state.MarketOfferGet(id)
	if err != nil {
		return nil, err
	}
	if !ok || offer == nil {
		return nil, ErrOfferNotFound
	}
	return offer, nil
}

func (l *Ledger) mutateActive(id uint64, fn func(*Offer)) (*Offer, error) {
	offer, err := l.Get(id)
	if err != nil {
		return nil, err
	}
	if offer.Status.Terminal() {
		return nil, ErrAlreadySold
	}
	fn(offer)
	sanitized, err := SanitizeOffer(offer)
	if err != nil {
		return nil, err
	}
	if err := l.state.MarketOfferPut(sanitized); err != nil {
		return nil, err
	}
	return sanitized, nil
}

// MutatePrice replaces the price of an active offer.
func (l *Ledger) MutatePrice(id uint64, price *big.Int, now int64) (*Offer, error) {
	if price == nil || price.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	return l.mutateActive(id, func(o *Offer) {
		o.Price = new(big.Int).Set(price)
		o.UpdatedAt = now
	})
}

// MarkSold transitions an active offer to Sold and records the buyer.
func (l *Ledger) MarkSold(id uint64, buyer [20]byte, now int64) (*Offer, error) {
	return l.mutateActive(id, func(o *Offer) {
		o.Status = OfferSold
		o.Buyer = buyer
		o.UpdatedAt = now
	})
}

// MarkCancelled transitions an active offer to Cancelled.
func (l *Ledger) MarkCancelled(id uint64, now int64) (*Offer, error) {
	return l.mutateActive(id, func(o *Offer) {
		o.Status = OfferCancelled
		o.UpdatedAt = now
	})
}

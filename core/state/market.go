package state

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"nftmarket/native/marketplace"
)

var (
	marketOfferPrefix       = []byte("market/offer/")
	marketSellerIndexPrefix = []byte("market/seller/")
	marketOfferCountKey     = []byte("market/offer-count")
	marketCommissionKey     = []byte("market/commission")
)

type storedOffer struct {
	ID            uint64
	Seller        [20]byte
	IsSingleUnit  bool
	AssetContract [20]byte
	AssetID       *big.Int
	Quantity      *big.Int
	Price         *big.Int
	Status        uint8
	Buyer         [20]byte
	CreatedAt     uint64
	UpdatedAt     uint64
}

func encodeOfferID(id uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, id)
	return buf
}

func marketOfferKey(id uint64) []byte {
	return append(append([]byte(nil), marketOfferPrefix...), encodeOfferID(id)...)
}

func marketSellerIndexKey(seller [20]byte) []byte {
	return append(append([]byte(nil), marketSellerIndexPrefix...), seller[:]...)
}

func newStoredOffer(o *marketplace.Offer) (*storedOffer, error) {
	if o.CreatedAt < 0 || o.UpdatedAt < 0 {
		return nil, fmt.Errorf("market: negative timestamp")
	}
	return &storedOffer{
		ID:            o.ID,
		Seller:        o.Seller,
		IsSingleUnit:  o.IsSingleUnit,
		AssetContract: o.AssetContract,
		AssetID:       o.AssetID,
		Quantity:      o.Quantity,
		Price:         o.Price,
		Status:        uint8(o.Status),
		Buyer:         o.Buyer,
		CreatedAt:     uint64(o.CreatedAt),
		UpdatedAt:     uint64(o.UpdatedAt),
	}, nil
}

func (s *storedOffer) toOffer() *marketplace.Offer {
	offer := &marketplace.Offer{
		ID:            s.ID,
		Seller:        s.Seller,
		IsSingleUnit:  s.IsSingleUnit,
		AssetContract: s.AssetContract,
		AssetID:       s.AssetID,
		Quantity:      s.Quantity,
		Price:         s.Price,
		Status:        marketplace.OfferStatus(s.Status),
		Buyer:         s.Buyer,
		CreatedAt:     int64(s.CreatedAt),
		UpdatedAt:     int64(s.UpdatedAt),
	}
	return offer.Clone()
}

// MarketOfferPut stores the offer record and indexes it under its seller.
func (m *Manager) MarketOfferPut(offer *marketplace.Offer) error {
	if offer == nil {
		return fmt.Errorf("market: nil offer")
	}
	sanitized, err := marketplace.SanitizeOffer(offer)
	if err != nil {
		return err
	}
	record, err := newStoredOffer(sanitized)
	if err != nil {
		return err
	}
	if err := m.KVPut(marketOfferKey(sanitized.ID), record); err != nil {
		return err
	}
	return m.KVAppend(marketSellerIndexKey(sanitized.Seller), encodeOfferID(sanitized.ID))
}

// MarketOfferGet loads the offer stored under id.
func (m *Manager) MarketOfferGet(id uint64) (*marketplace.Offer, bool, error) {
	var record storedOffer
	ok, err := m.KVGet(marketOfferKey(id), &record)
	if err != nil || !ok {
		return nil, ok, err
	}
	return record.toOffer(), true, nil
}

// MarketOfferCount returns the number of offers ever created.
func (m *Manager) MarketOfferCount() (uint64, error) {
	var count uint64
	if _, err := m.KVGet(marketOfferCountKey, &count); err != nil {
		return 0, err
	}
	return count, nil
}

// SetMarketOfferCount records the offer counter.
func (m *Manager) SetMarketOfferCount(count uint64) error {
	return m.KVPut(marketOfferCountKey, count)
}

// MarketOffersBySeller returns the ids of every offer created by seller in
// creation order.
func (m *Manager) MarketOffersBySeller(seller [20]byte) ([]uint64, error) {
	var raw [][]byte
	if err := m.KVGetList(marketSellerIndexKey(seller), &raw); err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(raw))
	for _, entry := range raw {
		if len(entry) != 8 {
			return nil, fmt.Errorf("market: malformed seller index entry")
		}
		ids = append(ids, binary.BigEndian.Uint64(entry))
	}
	return ids, nil
}

// MarketCommission returns the undistributed commission balance.
func (m *Manager) MarketCommission() (*big.Int, error) {
	amount := new(big.Int)
	ok, err := m.KVGet(marketCommissionKey, amount)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return amount, nil
}

// SetMarketCommission records the undistributed commission balance.
func (m *Manager) SetMarketCommission(amount *big.Int) error {
	if amount == nil {
		amount = big.NewInt(0)
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("market: negative commission")
	}
	return m.KVPut(marketCommissionKey, amount)
}

package marketplace

import (
	"fmt"
	"math/big"

	"nftmarket/native/assets"
)

// OfferStatus represents the lifecycle state of an offer. Active offers may
// be edited, bought or cancelled; Sold and Cancelled are terminal.
type OfferStatus uint8

const (
	OfferActive OfferStatus = iota
	OfferSold
	OfferCancelled
)

// Valid reports whether the status value is within the supported range.
func (s OfferStatus) Valid() bool {
	switch s {
	case OfferActive, OfferSold, OfferCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether the status forbids further mutation.
func (s OfferStatus) Terminal() bool {
	return s == OfferSold || s == OfferCancelled
}

func (s OfferStatus) String() string {
	switch s {
	case OfferActive:
		return "active"
	case OfferSold:
		return "sold"
	case OfferCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// ParseOfferStatus maps a status label back to its value.
func ParseOfferStatus(label string) (OfferStatus, error) {
	switch label {
	case "active":
		return OfferActive, nil
	case "sold":
		return OfferSold, nil
	case "cancelled":
		return OfferCancelled, nil
	default:
		return 0, fmt.Errorf("marketplace: unknown offer status %q", label)
	}
}

// Offer is a seller's escrowed listing of an asset at a fixed price. The
// asset kind is captured once at creation through IsSingleUnit and is never
// re-probed.
type Offer struct {
	ID            uint64
	Seller        [20]byte
	IsSingleUnit  bool
	AssetContract [20]byte
	AssetID       *big.Int
	Quantity      *big.Int
	Price         *big.Int
	Status        OfferStatus
	Buyer         [20]byte
	CreatedAt     int64
	UpdatedAt     int64
}

// Clone returns a deep copy of the offer.
func (o *Offer) Clone() *Offer {
	if o == nil {
		return nil
	}
	clone := *o
	clone.AssetID = cloneBigInt(o.AssetID)
	clone.Quantity = cloneBigInt(o.Quantity)
	clone.Price = cloneBigInt(o.Price)
	return &clone
}

// Sold reports the legacy terminal flag: true once the offer has been bought
// or cancelled.
func (o *Offer) Sold() bool {
	if o == nil {
		return false
	}
	return o.Status != OfferActive
}

// Kind returns the custody path recorded at creation.
func (o *Offer) Kind() assets.Kind {
	if o == nil {
		return assets.KindUnknown
	}
	if o.IsSingleUnit {
		return assets.KindSingleUnit
	}
	return assets.KindMultiUnit
}

// SanitizeOffer validates the offer and returns a normalised copy. The input
// is not mutated.
func SanitizeOffer(o *Offer) (*Offer, error) {
	if o == nil {
		return nil, fmt.Errorf("nil offer")
	}
	clone := o.Clone()
	if !clone.Status.Valid() {
		return nil, fmt.Errorf("invalid offer status: %d", clone.Status)
	}
	if clone.AssetID.Sign() < 0 {
		return nil, ErrInvalidAssetID
	}
	if clone.Quantity.Sign() <= 0 || clone.Price.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	if clone.IsSingleUnit && clone.Quantity.Cmp(big.NewInt(1)) != 0 {
		return nil, ErrInvalidQuantityForKind
	}
	if clone.Status != OfferSold {
		clone.Buyer = [20]byte{}
	}
	return clone, nil
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

package marketplace

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"nftmarket/core/types"
)

const (
	EventTypeOfferCreated        = "market.offer.created"
	EventTypeOfferEdited         = "market.offer.edited"
	EventTypeOfferSold           = "market.offer.sold"
	EventTypeOfferCancelled      = "market.offer.cancelled"
	EventTypeCommissionWithdrawn = "market.commission.withdrawn"
)

type marketEvent struct {
	evt *types.Event
}

func (e marketEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e marketEvent) Event() *types.Event { return e.evt }

// NewOfferCreatedEvent returns the payload emitted once an asset is escrowed
// and listed.
func NewOfferCreatedEvent(o *Offer) *types.Event { return newOfferEvent(EventTypeOfferCreated, o) }

// NewOfferEditedEvent returns the payload emitted after a price change.
func NewOfferEditedEvent(o *Offer) *types.Event { return newOfferEvent(EventTypeOfferEdited, o) }

// NewOfferCancelledEvent returns the payload emitted when the escrow is
// returned to the seller.
func NewOfferCancelledEvent(o *Offer) *types.Event {
	return newOfferEvent(EventTypeOfferCancelled, o)
}

// NewOfferSoldEvent returns the payload emitted when an offer settles.
func NewOfferSoldEvent(o *Offer, paid, commission *big.Int) *types.Event {
	evt := newOfferEvent(EventTypeOfferSold, o)
	evt.Attributes["paid"] = cloneBigInt(paid).String()
	evt.Attributes["commission"] = cloneBigInt(commission).String()
	return evt
}

// NewCommissionWithdrawnEvent returns the payload emitted when the operator
// collects the commission balance.
func NewCommissionWithdrawnEvent(operator [20]byte, amount *big.Int) *types.Event {
	return &types.Event{Type: EventTypeCommissionWithdrawn, Attributes: map[string]string{
		"operator": hex.EncodeToString(operator[:]),
		"amount":   cloneBigInt(amount).String(),
	}}
}

func newOfferEvent(eventType string, o *Offer) *types.Event {
	attrs := make(map[string]string)
	if o == nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	sanitized, err := SanitizeOffer(o)
	if err != nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	attrs["id"] = strconv.FormatUint(sanitized.ID, 10)
	attrs["seller"] = hex.EncodeToString(sanitized.Seller[:])
	attrs["contract"] = hex.EncodeToString(sanitized.AssetContract[:])
	attrs["assetId"] = sanitized.AssetID.String()
	attrs["quantity"] = sanitized.Quantity.String()
	attrs["price"] = sanitized.Price.String()
	attrs["kind"] = sanitized.Kind().String()
	attrs["status"] = sanitized.Status.String()
	attrs["updatedAt"] = strconv.FormatInt(sanitized.UpdatedAt, 10)
	if sanitized.Status == OfferSold {
		attrs["buyer"] = hex.EncodeToString(sanitized.Buyer[:])
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}

package assets

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"nftmarket/core/types"
)

const (
	EventTypeCollectionDeployed = "assets.collection.deployed"
	EventTypeTransfer           = "assets.transfer"
	EventTypeApproval           = "assets.approval"
	EventTypeApprovalForAll     = "assets.approval_for_all"
)

type assetEvent struct {
	evt *types.Event
}

func (e assetEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e assetEvent) Event() *types.Event { return e.evt }

// NewCollectionDeployedEvent returns the payload emitted when a collection is
// registered.
func NewCollectionDeployedEvent(info *CollectionInfo) *types.Event {
	attrs := make(map[string]string)
	if info != nil {
		attrs["collection"] = hex.EncodeToString(info.Address[:])
		attrs["owner"] = hex.EncodeToString(info.Owner[:])
		attrs["kind"] = info.Kind.String()
		attrs["name"] = info.Name
		attrs["createdAt"] = strconv.FormatInt(info.CreatedAt, 10)
	}
	return &types.Event{Type: EventTypeCollectionDeployed, Attributes: attrs}
}

// NewTransferEvent returns the payload emitted when custody of an asset moves.
// Mints are reported with a zero sender.
func NewTransferEvent(collection, operator, from, to [20]byte, id, amount *big.Int) *types.Event {
	return &types.Event{Type: EventTypeTransfer, Attributes: map[string]string{
		"collection": hex.EncodeToString(collection[:]),
		"operator":   hex.EncodeToString(operator[:]),
		"from":       hex.EncodeToString(from[:]),
		"to":         hex.EncodeToString(to[:]),
		"tokenId":    cloneBigInt(id).String(),
		"amount":     cloneBigInt(amount).String(),
	}}
}

// NewApprovalEvent returns the payload emitted when a single token approval
// changes.
func NewApprovalEvent(collection, owner, approved [20]byte, id *big.Int) *types.Event {
	return &types.Event{Type: EventTypeApproval, Attributes: map[string]string{
		"collection": hex.EncodeToString(collection[:]),
		"owner":      hex.EncodeToString(owner[:]),
		"approved":   hex.EncodeToString(approved[:]),
		"tokenId":    cloneBigInt(id).String(),
	}}
}

// NewApprovalForAllEvent returns the payload emitted when an operator grant
// changes.
func NewApprovalForAllEvent(collection, owner, operator [20]byte, approved bool) *types.Event {
	return &types.Event{Type: EventTypeApprovalForAll, Attributes: map[string]string{
		"collection": hex.EncodeToString(collection[:]),
		"owner":      hex.EncodeToString(owner[:]),
		"operator":   hex.EncodeToString(operator[:]),
		"approved":   strconv.FormatBool(approved),
	}}
}

package rpc

import (
	"math/big"

	"nftmarket/core/types"
	"nftmarket/crypto"
	"nftmarket/indexer"
	"nftmarket/native/assets"
	"nftmarket/native/marketplace"
)

type offerJSON struct {
	ID            uint64 `json:"id"`
	Seller        string `json:"seller"`
	IsSingleUnit  bool   `json:"isSingleUnit"`
	AssetContract string `json:"assetContract"`
	AssetID       string `json:"assetId"`
	Quantity      string `json:"quantity"`
	Price         string `json:"price"`
	Status        string `json:"status"`
	Sold          bool   `json:"isSold"`
	Buyer         string `json:"buyer,omitempty"`
	CreatedAt     int64  `json:"createdAt"`
	UpdatedAt     int64  `json:"updatedAt"`
}

func newOfferJSON(o *marketplace.Offer) offerJSON {
	out := offerJSON{
		ID:            o.ID,
		Seller:        crypto.HexAddress(o.Seller),
		IsSingleUnit:  o.IsSingleUnit,
		AssetContract: crypto.HexAddress(o.AssetContract),
		AssetID:       bigString(o.AssetID),
		Quantity:      bigString(o.Quantity),
		Price:         bigString(o.Price),
		Status:        o.Status.String(),
		Sold:          o.Sold(),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
	if o.Status == marketplace.OfferSold {
		out.Buyer = crypto.HexAddress(o.Buyer)
	}
	return out
}

type offerRecordJSON struct {
	ID         uint64 `json:"id"`
	Seller     string `json:"seller"`
	Collection string `json:"collection"`
	AssetID    string `json:"assetId"`
	Kind       string `json:"kind"`
	Quantity   string `json:"quantity"`
	Price      string `json:"price"`
	Status     string `json:"status"`
	Buyer      string `json:"buyer,omitempty"`
	CreatedAt  int64  `json:"createdAt"`
	UpdatedAt  int64  `json:"updatedAt"`
}

func newOfferRecordJSON(r indexer.OfferRecord) offerRecordJSON {
	return offerRecordJSON{
		ID:         r.OfferID,
		Seller:     r.Seller,
		Collection: r.Collection,
		AssetID:    r.AssetID,
		Kind:       r.Kind,
		Quantity:   r.Quantity,
		Price:      r.Price,
		Status:     r.Status,
		Buyer:      r.Buyer,
		CreatedAt:  r.CreatedAt.Unix(),
		UpdatedAt:  r.UpdatedAt.Unix(),
	}
}

type collectionJSON struct {
	Address   string `json:"address"`
	Bech32    string `json:"bech32"`
	Name      string `json:"name"`
	Owner     string `json:"owner"`
	Kind      string `json:"kind"`
	Minted    uint64 `json:"minted"`
	CreatedAt int64  `json:"createdAt"`
}

func newCollectionJSON(info *assets.CollectionInfo) collectionJSON {
	return collectionJSON{
		Address:   crypto.HexAddress(info.Address),
		Bech32:    crypto.FormatAddress(info.Address),
		Name:      info.Name,
		Owner:     crypto.HexAddress(info.Owner),
		Kind:      info.Kind.String(),
		Minted:    info.Minted,
		CreatedAt: info.CreatedAt,
	}
}

type accountJSON struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
	Frozen  bool   `json:"frozen"`
}

func newAccountJSON(addr [20]byte, acc *types.Account) accountJSON {
	return accountJSON{Address: crypto.HexAddress(addr), Balance: bigString(acc.Balance), Frozen: acc.Frozen}
}

type commissionJSON struct {
	Balance  string `json:"balance"`
	Operator string `json:"operator"`
	RateBps  uint32 `json:"rateBps"`
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

package state

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"nftmarket/core/types"
	"nftmarket/native/assets"
	"nftmarket/native/bank"
	"nftmarket/native/marketplace"
	"nftmarket/storage"
	"nftmarket/storage/trie"
)

var (
	_ assets.State = (*Manager)(nil)
	_ bank.State   = (*Manager)(nil)
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	tr, err := trie.NewTrie(db, nil)
	require.NoError(t, err)
	return NewManager(tr)
}

func addr(b byte) [20]byte {
	var a [20]byte
	a[0] = b
	a[19] = b
	return a
}

func TestAccountRoundTrip(t *testing.T) {
	mgr := newTestManager(t)
	holder := addr(0x01)

	acc, err := mgr.GetAccount(holder[:])
	require.NoError(t, err)
	require.Zero(t, acc.Balance.Sign())
	require.False(t, acc.Frozen)

	require.NoError(t, mgr.PutAccount(holder[:], &types.Account{Nonce: 3, Balance: big.NewInt(1_234), Frozen: true}))
	acc, err = mgr.GetAccount(holder[:])
	require.NoError(t, err)
	require.Equal(t, uint64(3), acc.Nonce)
	require.Equal(t, "1234", acc.Balance.String())
	require.True(t, acc.Frozen)

	require.Error(t, mgr.PutAccount(holder[:], &types.Account{Balance: big.NewInt(-1)}))
	_, err = mgr.GetAccount(nil)
	require.Error(t, err)
}

func TestMarketOfferPersistence(t *testing.T) {
	mgr := newTestManager(t)
	seller := addr(0x02)
	offer := &marketplace.Offer{
		ID:            0,
		Seller:        seller,
		IsSingleUnit:  false,
		AssetContract: addr(0x15),
		AssetID:       big.NewInt(5),
		Quantity:      big.NewInt(30),
		Price:         big.NewInt(500),
		Status:        marketplace.OfferActive,
		CreatedAt:     1_700_000_000,
		UpdatedAt:     1_700_000_000,
	}
	require.NoError(t, mgr.MarketOfferPut(offer))
	require.NoError(t, mgr.SetMarketOfferCount(1))

	loaded, ok, err := mgr.MarketOfferGet(0)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, seller, loaded.Seller)
	require.Equal(t, "30", loaded.Quantity.String())
	require.Equal(t, "500", loaded.Price.String())
	require.Equal(t, int64(1_700_000_000), loaded.CreatedAt)
	require.Equal(t, marketplace.OfferActive, loaded.Status)

	loaded.Status = marketplace.OfferSold
	loaded.Buyer = addr(0xB0)
	require.NoError(t, mgr.MarketOfferPut(loaded))
	reloaded, _, err := mgr.MarketOfferGet(0)
	require.NoError(t, err)
	require.True(t, reloaded.Sold())
	require.Equal(t, addr(0xB0), reloaded.Buyer)

	_, ok, err = mgr.MarketOfferGet(1)
	require.NoError(t, err)
	require.False(t, ok)

	count, err := mgr.MarketOfferCount()
	require.NoError(t, err)
	require.Equal(t, uint64(1), count)

	ids, err := mgr.MarketOffersBySeller(seller)
	require.NoError(t, err)
	require.Equal(t, []uint64{0}, ids)
	ids, err = mgr.MarketOffersBySeller(addr(0x09))
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestMarketCommissionDefaultsToZero(t *testing.T) {
	mgr := newTestManager(t)
	bal, err := mgr.MarketCommission()
	require.NoError(t, err)
	require.Zero(t, bal.Sign())

	require.NoError(t, mgr.SetMarketCommission(big.NewInt(5)))
	bal, err = mgr.MarketCommission()
	require.NoError(t, err)
	require.Equal(t, "5", bal.String())
	require.Error(t, mgr.SetMarketCommission(big.NewInt(-1)))
}

func TestCollectionStorage(t *testing.T) {
	mgr := newTestManager(t)
	owner := addr(0x01)
	holder := addr(0x05)
	registry := assets.NewRegistry(mgr)

	info, err := registry.Deploy(assets.KindMultiUnit, "Items", owner)
	require.NoError(t, err)

	loaded, ok, err := mgr.CollectionGet(info.Address)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Items", loaded.Name)
	require.True(t, loaded.Supports(assets.InterfaceMultiUnit))

	owned, err := mgr.CollectionsByOwner(owner)
	require.NoError(t, err)
	require.Equal(t, [][20]byte{info.Address}, owned)

	sft, err := registry.SemiFungible(info.Address)
	require.NoError(t, err)
	require.NoError(t, sft.Mint(owner, holder, big.NewInt(5), big.NewInt(50)))
	bal, err := mgr.UnitBalance(info.Address, big.NewInt(5), holder)
	require.NoError(t, err)
	require.Equal(t, "50", bal.String())

	nftInfo, err := registry.Deploy(assets.KindSingleUnit, "Art", owner)
	require.NoError(t, err)
	nft, err := registry.NonFungible(nftInfo.Address)
	require.NoError(t, err)
	id, err := nft.Mint(owner, holder, "ipfs://1")
	require.NoError(t, err)

	tokenOwner, ok, err := mgr.TokenOwner(nftInfo.Address, id)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, holder, tokenOwner)
	uri, err := mgr.TokenURI(nftInfo.Address, id)
	require.NoError(t, err)
	require.Equal(t, "ipfs://1", uri)

	nonce, err := mgr.CollectionNonce(owner)
	require.NoError(t, err)
	require.Equal(t, uint64(2), nonce)
}

func TestStateVersion(t *testing.T) {
	mgr := newTestManager(t)
	require.NoError(t, mgr.SetStateVersion(StateVersion))
	version, ok, err := mgr.StateVersion()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, StateVersion, version)
}

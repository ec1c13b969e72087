package assets

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"nftmarket/core/events"
)

type tokenKey struct {
	collection [20]byte
	id         string
}

type holderKey struct {
	collection [20]byte
	id         string
	holder     [20]byte
}

type ownerKey struct {
	collection [20]byte
	owner      [20]byte
}

type operatorKey struct {
	collection [20]byte
	owner      [20]byte
	operator   [20]byte
}

type mockState struct {
	collections map[[20]byte]*CollectionInfo
	nonces      map[[20]byte]uint64
	owners      map[tokenKey][20]byte
	approvals   map[tokenKey][20]byte
	uris        map[tokenKey]string
	owned       map[ownerKey]uint64
	operators   map[operatorKey]bool
	balances    map[holderKey]*big.Int
}

func newMockState() *mockState {
	return &mockState{
		collections: make(map[[20]byte]*CollectionInfo),
		nonces:      make(map[[20]byte]uint64),
		owners:      make(map[tokenKey][20]byte),
		approvals:   make(map[tokenKey][20]byte),
		uris:        make(map[tokenKey]string),
		owned:       make(map[ownerKey]uint64),
		operators:   make(map[operatorKey]bool),
		balances:    make(map[holderKey]*big.Int),
	}
}

func tk(collection [20]byte, id *big.Int) tokenKey {
	return tokenKey{collection: collection, id: id.String()}
}

func (m *mockState) CollectionGet(addr [20]byte) (*CollectionInfo, bool, error) {
	info, ok := m.collections[addr]
	if !ok {
		return nil, false, nil
	}
	return info.Clone(), true, nil
}

func (m *mockState) CollectionPut(info *CollectionInfo) error {
	m.collections[info.Address] = info.Clone()
	return nil
}

func (m *mockState) CollectionNonce(deployer [20]byte) (uint64, error) {
	return m.nonces[deployer], nil
}

func (m *mockState) SetCollectionNonce(deployer [20]byte, nonce uint64) error {
	m.nonces[deployer] = nonce
	return nil
}

func (m *mockState) TokenOwner(collection [20]byte, id *big.Int) ([20]byte, bool, error) {
	owner, ok := m.owners[tk(collection, id)]
	return owner, ok, nil
}

func (m *mockState) SetTokenOwner(collection [20]byte, id *big.Int, owner [20]byte) error {
	m.owners[tk(collection, id)] = owner
	return nil
}

func (m *mockState) TokenApproval(collection [20]byte, id *big.Int) ([20]byte, error) {
	return m.approvals[tk(collection, id)], nil
}

func (m *mockState) SetTokenApproval(collection [20]byte, id *big.Int, approved [20]byte) error {
	m.approvals[tk(collection, id)] = approved
	return nil
}

func (m *mockState) TokenURI(collection [20]byte, id *big.Int) (string, error) {
	return m.uris[tk(collection, id)], nil
}

func (m *mockState) SetTokenURI(collection [20]byte, id *big.Int, uri string) error {
	m.uris[tk(collection, id)] = uri
	return nil
}

func (m *mockState) OwnedCount(collection [20]byte, owner [20]byte) (uint64, error) {
	return m.owned[ownerKey{collection, owner}], nil
}

func (m *mockState) SetOwnedCount(collection [20]byte, owner [20]byte, count uint64) error {
	m.owned[ownerKey{collection, owner}] = count
	return nil
}

func (m *mockState) OperatorApproval(collection [20]byte, owner, operator [20]byte) (bool, error) {
	return m.operators[operatorKey{collection, owner, operator}], nil
}

func (m *mockState) SetOperatorApproval(collection [20]byte, owner, operator [20]byte, approved bool) error {
	m.operators[operatorKey{collection, owner, operator}] = approved
	return nil
}

func (m *mockState) UnitBalance(collection [20]byte, id *big.Int, holder [20]byte) (*big.Int, error) {
	bal, ok := m.balances[holderKey{collection, id.String(), holder}]
	if !ok {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(bal), nil
}

func (m *mockState) SetUnitBalance(collection [20]byte, id *big.Int, holder [20]byte, amount *big.Int) error {
	m.balances[holderKey{collection, id.String(), holder}] = new(big.Int).Set(amount)
	return nil
}

type captureEmitter struct {
	events []events.Event
}

func (c *captureEmitter) Emit(evt events.Event) { c.events = append(c.events, evt) }

func (c *captureEmitter) types() []string {
	out := make([]string, 0, len(c.events))
	for _, evt := range c.events {
		out = append(out, evt.EventType())
	}
	return out
}

func testAddr(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

func TestParseKind(t *testing.T) {
	kind, err := ParseKind(" ERC721 ")
	require.NoError(t, err)
	require.Equal(t, KindSingleUnit, kind)

	kind, err = ParseKind("1155")
	require.NoError(t, err)
	require.Equal(t, KindMultiUnit, kind)

	kind, err = ParseKind("plain")
	require.NoError(t, err)
	require.Equal(t, KindUnknown, kind)
	require.False(t, kind.Valid())

	_, err = ParseKind("erc20")
	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestDeployDerivesDistinctAddresses(t *testing.T) {
	reg := NewRegistry(newMockState())
	reg.SetNowFunc(func() int64 { return 42 })
	emitter := &captureEmitter{}
	reg.SetEmitter(emitter)
	deployer := testAddr(0x01)

	first, err := reg.Deploy(KindSingleUnit, " Art ", deployer)
	require.NoError(t, err)
	second, err := reg.Deploy(KindMultiUnit, "Items", deployer)
	require.NoError(t, err)

	require.NotEqual(t, first.Address, second.Address)
	require.Equal(t, DeriveAddress(deployer, 0), first.Address)
	require.Equal(t, "Art", first.Name)
	require.Equal(t, int64(42), first.CreatedAt)
	require.Equal(t, []string{EventTypeCollectionDeployed, EventTypeCollectionDeployed}, emitter.types())

	_, err = reg.Deploy(KindSingleUnit, "x", [20]byte{})
	require.ErrorIs(t, err, ErrZeroAddress)
}

func TestProbeClassifiesCollections(t *testing.T) {
	reg := NewRegistry(newMockState())
	deployer := testAddr(0x01)

	cases := []struct {
		kind     Kind
		expected Kind
		err      error
	}{
		{kind: KindSingleUnit, expected: KindSingleUnit},
		{kind: KindMultiUnit, expected: KindMultiUnit},
		{kind: KindUnknown, expected: KindUnknown, err: ErrUnsupportedAsset},
	}
	for _, tc := range cases {
		info, err := reg.Deploy(tc.kind, tc.kind.String(), deployer)
		require.NoError(t, err)
		coll, err := reg.Resolve(info.Address)
		require.NoError(t, err)
		kind, err := Probe(coll)
		if tc.err != nil {
			require.ErrorIs(t, err, tc.err)
		} else {
			require.NoError(t, err)
		}
		require.Equal(t, tc.expected, kind)
	}

	_, err := reg.Resolve(testAddr(0x99))
	require.ErrorIs(t, err, ErrCollectionNotFound)
	_, err = Probe(nil)
	require.ErrorIs(t, err, ErrUnsupportedAsset)
}

func TestNonFungibleMintAndTransfer(t *testing.T) {
	reg := NewRegistry(newMockState())
	owner := testAddr(0x01)
	alice := testAddr(0x02)
	bob := testAddr(0x03)
	market := testAddr(0x04)

	info, err := reg.Deploy(KindSingleUnit, "Art", owner)
	require.NoError(t, err)
	nft, err := reg.NonFungible(info.Address)
	require.NoError(t, err)

	ids, err := nft.BatchMint(owner, [][20]byte{alice, bob}, []string{"ipfs://1", "ipfs://2"})
	require.NoError(t, err)
	require.Equal(t, []*big.Int{big.NewInt(1), big.NewInt(2)}, ids)

	_, err = nft.BatchMint(alice, [][20]byte{alice}, []string{"x"})
	require.ErrorIs(t, err, ErrNotCollectionOwner)
	_, err = nft.BatchMint(owner, [][20]byte{alice}, nil)
	require.ErrorIs(t, err, ErrMintMismatch)

	uri, err := nft.TokenURI(big.NewInt(2))
	require.NoError(t, err)
	require.Equal(t, "ipfs://2", uri)

	// market is not yet approved
	err = nft.TransferFrom(market, alice, market, big.NewInt(1))
	require.ErrorIs(t, err, ErrNotOwnerOrApproved)

	require.NoError(t, nft.Approve(alice, market, big.NewInt(1)))
	approved, err := nft.GetApproved(big.NewInt(1))
	require.NoError(t, err)
	require.Equal(t, market, approved)

	require.NoError(t, nft.TransferFrom(market, alice, market, big.NewInt(1)))
	holder, err := nft.OwnerOf(big.NewInt(1))
	require.NoError(t, err)
	require.Equal(t, market, holder)
	approved, err = nft.GetApproved(big.NewInt(1))
	require.NoError(t, err)
	require.Equal(t, [20]byte{}, approved)

	count, err := nft.BalanceOf(alice)
	require.NoError(t, err)
	require.Zero(t, count)
	count, err = nft.BalanceOf(market)
	require.NoError(t, err)
	require.Equal(t, uint64(1), count)

	_, err = nft.OwnerOf(big.NewInt(7))
	require.ErrorIs(t, err, ErrTokenNotFound)
}

func TestNonFungibleOperatorApproval(t *testing.T) {
	reg := NewRegistry(newMockState())
	owner := testAddr(0x01)
	alice := testAddr(0x02)
	market := testAddr(0x04)

	info, err := reg.Deploy(KindSingleUnit, "Art", owner)
	require.NoError(t, err)
	nft, err := reg.NonFungible(info.Address)
	require.NoError(t, err)
	id, err := nft.Mint(owner, alice, "ipfs://1")
	require.NoError(t, err)

	require.ErrorIs(t, nft.SetApprovalForAll(alice, alice, true), ErrSelfApproval)
	require.NoError(t, nft.SetApprovalForAll(alice, market, true))
	ok, err := nft.IsApprovedForAll(alice, market)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, nft.TransferFrom(market, alice, market, id))
	require.ErrorIs(t, nft.TransferFrom(market, alice, market, id), ErrNotOwnerOrApproved)
}

func TestSemiFungibleBalances(t *testing.T) {
	reg := NewRegistry(newMockState())
	emitter := &captureEmitter{}
	reg.SetEmitter(emitter)
	owner := testAddr(0x01)
	seller := testAddr(0x05)
	market := testAddr(0x04)
	id := big.NewInt(5)

	info, err := reg.Deploy(KindMultiUnit, "Items", owner)
	require.NoError(t, err)
	sft, err := reg.SemiFungible(info.Address)
	require.NoError(t, err)
	_, err = reg.NonFungible(info.Address)
	require.ErrorIs(t, err, ErrUnsupportedAsset)

	require.ErrorIs(t, sft.Mint(seller, seller, id, big.NewInt(1)), ErrNotCollectionOwner)
	require.NoError(t, sft.Mint(owner, seller, id, big.NewInt(50)))

	err = sft.SafeTransferFrom(market, seller, market, id, big.NewInt(30))
	require.ErrorIs(t, err, ErrNotOwnerOrApproved)

	require.NoError(t, sft.SetApprovalForAll(seller, market, true))
	require.NoError(t, sft.SafeTransferFrom(market, seller, market, id, big.NewInt(30)))

	bal, err := sft.BalanceOf(seller, id)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(20), bal)
	bal, err = sft.BalanceOf(market, id)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(30), bal)

	err = sft.SafeTransferFrom(market, market, seller, id, big.NewInt(31))
	require.ErrorIs(t, err, ErrInsufficientBalance)
	err = sft.SafeTransferFrom(market, market, seller, id, big.NewInt(0))
	require.ErrorIs(t, err, ErrInvalidQuantity)

	require.Equal(t, []string{
		EventTypeCollectionDeployed,
		EventTypeTransfer,
		EventTypeApprovalForAll,
		EventTypeTransfer,
	}, emitter.types())
}

func TestMoveEnforcesQuantityPerKind(t *testing.T) {
	reg := NewRegistry(newMockState())
	owner := testAddr(0x01)
	alice := testAddr(0x02)
	market := testAddr(0x04)

	single, err := reg.Deploy(KindSingleUnit, "Art", owner)
	require.NoError(t, err)
	nft, err := reg.NonFungible(single.Address)
	require.NoError(t, err)
	id, err := nft.Mint(owner, alice, "ipfs://1")
	require.NoError(t, err)
	require.NoError(t, nft.SetApprovalForAll(alice, market, true))

	err = Move(nft, KindSingleUnit, market, alice, market, id, big.NewInt(2))
	require.ErrorIs(t, err, ErrInvalidQuantity)
	require.NoError(t, Move(nft, KindSingleUnit, market, alice, market, id, big.NewInt(1)))

	err = Move(nft, KindMultiUnit, market, market, alice, id, big.NewInt(1))
	require.ErrorIs(t, err, ErrUnsupportedAsset)

	multi, err := reg.Deploy(KindMultiUnit, "Items", owner)
	require.NoError(t, err)
	sft, err := reg.SemiFungible(multi.Address)
	require.NoError(t, err)
	require.NoError(t, sft.Mint(owner, alice, big.NewInt(1), big.NewInt(10)))
	require.NoError(t, sft.SetApprovalForAll(alice, market, true))

	require.NoError(t, Move(sft, KindMultiUnit, market, alice, market, big.NewInt(1), big.NewInt(4)))
	bal, err := sft.BalanceOf(market, big.NewInt(1))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(4), bal)

	require.ErrorIs(t, Move(nil, KindMultiUnit, market, alice, market, big.NewInt(1), big.NewInt(1)), ErrUnsupportedAsset)
}

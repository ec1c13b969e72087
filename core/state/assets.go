package state

import (
	"fmt"
	"math/big"

	"nftmarket/native/assets"
)

var (
	collectionPrefix      = []byte("assets/collection/")
	collectionNoncePrefix = []byte("assets/nonce/")
	ownerCollectionsPref  = []byte("assets/owner-collections/")
	tokenOwnerPrefix      = []byte("assets/token-owner/")
	tokenApprovalPrefix   = []byte("assets/token-approval/")
	tokenURIPrefix        = []byte("assets/token-uri/")
	ownedCountPrefix      = []byte("assets/owned-count/")
	operatorPrefix        = []byte("assets/operator/")
	unitBalancePrefix     = []byte("assets/unit-balance/")
)

type storedCollection struct {
	Address    [20]byte
	Name       string
	Owner      [20]byte
	Kind       uint8
	Interfaces [][4]byte
	Minted     uint64
	CreatedAt  uint64
}

func assetKey(prefix []byte, parts ...[]byte) []byte {
	key := append([]byte(nil), prefix...)
	for _, part := range parts {
		key = append(key, part...)
	}
	return key
}

func tokenIDBytes(id *big.Int) []byte {
	if id == nil {
		return nil
	}
	return id.Bytes()
}

// CollectionPut stores the collection record and indexes it under its owner.
func (m *Manager) CollectionPut(info *assets.CollectionInfo) error {
	if info == nil {
		return fmt.Errorf("assets: nil collection")
	}
	if info.CreatedAt < 0 {
		return fmt.Errorf("assets: negative timestamp")
	}
	record := &storedCollection{
		Address:    info.Address,
		Name:       info.Name,
		Owner:      info.Owner,
		Kind:       uint8(info.Kind),
		Interfaces: append([][4]byte(nil), info.Interfaces...),
		Minted:     info.Minted,
		CreatedAt:  uint64(info.CreatedAt),
	}
	if err := m.KVPut(assetKey(collectionPrefix, info.Address[:]), record); err != nil {
		return err
	}
	return m.KVAppend(assetKey(ownerCollectionsPref, info.Owner[:]), info.Address[:])
}

// CollectionGet loads the collection deployed at addr.
func (m *Manager) CollectionGet(addr [20]byte) (*assets.CollectionInfo, bool, error) {
	var record storedCollection
	ok, err := m.KVGet(assetKey(collectionPrefix, addr[:]), &record)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &assets.CollectionInfo{
		Address:    record.Address,
		Name:       record.Name,
		Owner:      record.Owner,
		Kind:       assets.Kind(record.Kind),
		Interfaces: record.Interfaces,
		Minted:     record.Minted,
		CreatedAt:  int64(record.CreatedAt),
	}, true, nil
}

// CollectionsByOwner lists the collections deployed by owner.
func (m *Manager) CollectionsByOwner(owner [20]byte) ([][20]byte, error) {
	var raw [][]byte
	if err := m.KVGetList(assetKey(ownerCollectionsPref, owner[:]), &raw); err != nil {
		return nil, err
	}
	out := make([][20]byte, 0, len(raw))
	for _, entry := range raw {
		var addr [20]byte
		copy(addr[:], entry)
		out = append(out, addr)
	}
	return out, nil
}

// CollectionNonce returns the number of collections deployed by deployer.
func (m *Manager) CollectionNonce(deployer [20]byte) (uint64, error) {
	var nonce uint64
	if _, err := m.KVGet(assetKey(collectionNoncePrefix, deployer[:]), &nonce); err != nil {
		return 0, err
	}
	return nonce, nil
}

// SetCollectionNonce records the deploy nonce of deployer.
func (m *Manager) SetCollectionNonce(deployer [20]byte, nonce uint64) error {
	return m.KVPut(assetKey(collectionNoncePrefix, deployer[:]), nonce)
}

// TokenOwner returns the owner of a single-unit token.
func (m *Manager) TokenOwner(collection [20]byte, id *big.Int) ([20]byte, bool, error) {
	var owner [20]byte
	ok, err := m.KVGet(assetKey(tokenOwnerPrefix, collection[:], tokenIDBytes(id)), &owner)
	return owner, ok, err
}

// SetTokenOwner records the owner of a single-unit token.
func (m *Manager) SetTokenOwner(collection [20]byte, id *big.Int, owner [20]byte) error {
	return m.KVPut(assetKey(tokenOwnerPrefix, collection[:], tokenIDBytes(id)), owner)
}

// TokenApproval returns the single-token approval.
func (m *Manager) TokenApproval(collection [20]byte, id *big.Int) ([20]byte, error) {
	var approved [20]byte
	_, err := m.KVGet(assetKey(tokenApprovalPrefix, collection[:], tokenIDBytes(id)), &approved)
	return approved, err
}

// SetTokenApproval records the single-token approval.
func (m *Manager) SetTokenApproval(collection [20]byte, id *big.Int, approved [20]byte) error {
	return m.KVPut(assetKey(tokenApprovalPrefix, collection[:], tokenIDBytes(id)), approved)
}

// TokenURI returns the metadata URI of a single-unit token.
func (m *Manager) TokenURI(collection [20]byte, id *big.Int) (string, error) {
	var uri string
	_, err := m.KVGet(assetKey(tokenURIPrefix, collection[:], tokenIDBytes(id)), &uri)
	return uri, err
}

// SetTokenURI records the metadata URI of a single-unit token.
func (m *Manager) SetTokenURI(collection [20]byte, id *big.Int, uri string) error {
	return m.KVPut(assetKey(tokenURIPrefix, collection[:], tokenIDBytes(id)), uri)
}

// OwnedCount returns how many single-unit tokens owner holds in collection.
func (m *Manager) OwnedCount(collection [20]byte, owner [20]byte) (uint64, error) {
	var count uint64
	_, err := m.KVGet(assetKey(ownedCountPrefix, collection[:], owner[:]), &count)
	return count, err
}

// SetOwnedCount records how many single-unit tokens owner holds.
func (m *Manager) SetOwnedCount(collection [20]byte, owner [20]byte, count uint64) error {
	return m.KVPut(assetKey(ownedCountPrefix, collection[:], owner[:]), count)
}

// OperatorApproval reports whether operator may move every asset of owner.
func (m *Manager) OperatorApproval(collection [20]byte, owner, operator [20]byte) (bool, error) {
	var approved bool
	_, err := m.KVGet(assetKey(operatorPrefix, collection[:], owner[:], operator[:]), &approved)
	return approved, err
}

// SetOperatorApproval records an operator grant.
func (m *Manager) SetOperatorApproval(collection [20]byte, owner, operator [20]byte, approved bool) error {
	return m.KVPut(assetKey(operatorPrefix, collection[:], owner[:], operator[:]), approved)
}

// UnitBalance returns the multi-unit balance of holder for id.
func (m *Manager) UnitBalance(collection [20]byte, id *big.Int, holder [20]byte) (*big.Int, error) {
	amount := new(big.Int)
	if _, err := m.KVGet(assetKey(unitBalancePrefix, collection[:], holder[:], tokenIDBytes(id)), amount); err != nil {
		return nil, err
	}
	return amount, nil
}

// SetUnitBalance records the multi-unit balance of holder for id.
func (m *Manager) SetUnitBalance(collection [20]byte, id *big.Int, holder [20]byte, amount *big.Int) error {
	if amount == nil {
		amount = big.NewInt(0)
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("assets: negative balance")
	}
	return m.KVPut(assetKey(unitBalancePrefix, collection[:], holder[:], tokenIDBytes(id)), amount)
}

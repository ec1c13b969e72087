package core

import (
	"context"
	"math/big"

	"nftmarket/native/assets"
)

// CollectionDeploy registers a new collection owned by caller.
func (n *Node) CollectionDeploy(ctx context.Context, caller [20]byte, kind assets.Kind, name string) (*assets.CollectionInfo, error) {
	var info *assets.CollectionInfo
	err := n.apply(ctx, "collection_deploy", func(tx *txn) error {
		var err error
		info, err = tx.registry.Deploy(kind, name, caller)
		return err
	})
	return info, err
}

// CollectionMintSingle mints the next single-unit token of collection to to.
func (n *Node) CollectionMintSingle(ctx context.Context, caller, collection, to [20]byte, uri string) (*big.Int, error) {
	var id *big.Int
	err := n.apply(ctx, "collection_mint", func(tx *txn) error {
		nft, err := tx.registry.NonFungible(collection)
		if err != nil {
			return err
		}
		id, err = nft.Mint(caller, to, uri)
		return err
	})
	return id, err
}

// CollectionMintMulti credits amount units of id to to.
func (n *Node) CollectionMintMulti(ctx context.Context, caller, collection, to [20]byte, id, amount *big.Int) error {
	return n.apply(ctx, "collection_mint", func(tx *txn) error {
		sft, err := tx.registry.SemiFungible(collection)
		if err != nil {
			return err
		}
		return sft.Mint(caller, to, id, amount)
	})
}

// CollectionApprove grants approved the right to move a single-unit token.
func (n *Node) CollectionApprove(ctx context.Context, caller, collection, approved [20]byte, id *big.Int) error {
	return n.apply(ctx, "collection_approve", func(tx *txn) error {
		nft, err := tx.registry.NonFungible(collection)
		if err != nil {
			return err
		}
		return nft.Approve(caller, approved, id)
	})
}

// CollectionSetApprovalForAll grants or revokes operator over all of caller's
// holdings in collection.
func (n *Node) CollectionSetApprovalForAll(ctx context.Context, caller, collection, operator [20]byte, approved bool) error {
	return n.apply(ctx, "collection_approve_all", func(tx *txn) error {
		coll, err := tx.registry.Resolve(collection)
		if err != nil {
			return err
		}
		switch c := coll.(type) {
		case *assets.NonFungible:
			return c.SetApprovalForAll(caller, operator, approved)
		case *assets.SemiFungible:
			return c.SetApprovalForAll(caller, operator, approved)
		default:
			return assets.ErrUnsupportedAsset
		}
	})
}

// CollectionOwnerOf returns the owner of a single-unit token.
func (n *Node) CollectionOwnerOf(collection [20]byte, id *big.Int) ([20]byte, error) {
	var owner [20]byte
	err := n.view(func(tx *txn) error {
		nft, err := tx.registry.NonFungible(collection)
		if err != nil {
			return err
		}
		owner, err = nft.OwnerOf(id)
		return err
	})
	return owner, err
}

// CollectionBalanceOf returns the holding of holder. For single-unit
// collections id is ignored and the token count is returned.
func (n *Node) CollectionBalanceOf(collection, holder [20]byte, id *big.Int) (*big.Int, error) {
	var balance *big.Int
	err := n.view(func(tx *txn) error {
		coll, err := tx.registry.Resolve(collection)
		if err != nil {
			return err
		}
		switch c := coll.(type) {
		case *assets.NonFungible:
			count, err := c.BalanceOf(holder)
			if err != nil {
				return err
			}
			balance = new(big.Int).SetUint64(count)
			return nil
		case *assets.SemiFungible:
			balance, err = c.BalanceOf(holder, id)
			return err
		default:
			return assets.ErrUnsupportedAsset
		}
	})
	return balance, err
}

// CollectionInfo returns the stored record of a collection.
func (n *Node) CollectionInfo(collection [20]byte) (*assets.CollectionInfo, error) {
	var info *assets.CollectionInfo
	err := n.view(func(tx *txn) error {
		var err error
		info, err = tx.registry.Info(collection)
		return err
	})
	return info, err
}

// CollectionsByOwner lists the collections deployed by owner.
func (n *Node) CollectionsByOwner(owner [20]byte) ([][20]byte, error) {
	var out [][20]byte
	err := n.view(func(tx *txn) error {
		var err error
		out, err = tx.manager.CollectionsByOwner(owner)
		return err
	})
	return out, err
}

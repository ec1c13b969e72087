package core

import (
	"errors"
	"fmt"

	"nftmarket/core/events"
	"nftmarket/core/genesis"
	nftstate "nftmarket/core/state"
	"nftmarket/native/assets"
	"nftmarket/native/bank"
	"nftmarket/native/marketplace"
)

// ErrNotOperator is returned when a privileged bank operation is attempted by
// anyone other than the marketplace operator.
var ErrNotOperator = errors.New("core: caller is not the marketplace operator")

// txn bundles the engines bound to the node trie for a single call. Engines
// emit into the call's buffer so events surface only after commit.
type txn struct {
	manager  *nftstate.Manager
	registry *assets.Registry
	bank     *bank.Ledger
	market   *marketplace.Engine
}

func (n *Node) newTxn(emitter events.Emitter) *txn {
	manager := nftstate.NewManager(n.trie)

	registry := assets.NewRegistry(manager)
	registry.SetEmitter(emitter)
	registry.SetNowFunc(n.nowFn)

	ledger := bank.NewLedger(manager)
	ledger.SetEmitter(emitter)

	// The rate was validated by NewNode.
	market, _ := marketplace.NewEngine(n.operator, n.commissionBps)
	market.SetState(manager)
	market.SetAssets(registry)
	market.SetPayments(ledger)
	market.SetEmitter(emitter)
	market.SetNowFunc(n.nowFn)

	return &txn{manager: manager, registry: registry, bank: ledger, market: market}
}

func (tx *txn) applyGenesis(spec *genesis.Spec) error {
	if spec == nil {
		return nil
	}
	for i := range spec.Accounts {
		acc := &spec.Accounts[i]
		if err := tx.bank.Credit(acc.Addr(), acc.Amount()); err != nil {
			return fmt.Errorf("account %d: %w", i, err)
		}
	}
	for i := range spec.Collections {
		coll := &spec.Collections[i]
		info, err := tx.registry.Deploy(coll.KindValue(), coll.Name, coll.OwnerAddr())
		if err != nil {
			return fmt.Errorf("collection %q: %w", coll.Name, err)
		}
		for j := range coll.Mints {
			mint := &coll.Mints[j]
			switch coll.KindValue() {
			case assets.KindSingleUnit:
				nft, err := tx.registry.NonFungible(info.Address)
				if err != nil {
					return err
				}
				if _, err := nft.Mint(info.Owner, mint.Recipient(), mint.URI); err != nil {
					return fmt.Errorf("collection %q mint %d: %w", coll.Name, j, err)
				}
			case assets.KindMultiUnit:
				sft, err := tx.registry.SemiFungible(info.Address)
				if err != nil {
					return err
				}
				if err := sft.Mint(info.Owner, mint.Recipient(), mint.TokenID(), mint.Units()); err != nil {
					return fmt.Errorf("collection %q mint %d: %w", coll.Name, j, err)
				}
			default:
				return fmt.Errorf("collection %q: %w", coll.Name, assets.ErrUnsupportedAsset)
			}
		}
	}
	return nil
}

package core

import (
	"context"
	"math/big"

	"nftmarket/native/marketplace"
	"nftmarket/observability/metrics"
)

// MarketNewOffer escrows the asset and lists it at price.
func (n *Node) MarketNewOffer(ctx context.Context, caller, contract [20]byte, assetID, quantity, price *big.Int) (*marketplace.Offer, error) {
	var offer *marketplace.Offer
	err := n.apply(ctx, "new_offer", func(tx *txn) error {
		var err error
		offer, err = tx.market.NewOffer(caller, contract, assetID, quantity, price)
		return err
	})
	if err != nil {
		return nil, err
	}
	metrics.Market().ObserveOfferCreated(offer.Kind().String())
	n.logger.InfoContext(ctx, "offer created", "id", offer.ID, "kind", offer.Kind().String(),
		"quantity", offer.Quantity.String(), "price", offer.Price.String())
	return offer, nil
}

// MarketBuy settles an active offer for the paid amount.
func (n *Node) MarketBuy(ctx context.Context, caller [20]byte, id uint64, paid *big.Int) (*marketplace.Offer, error) {
	var (
		offer   *marketplace.Offer
		balance *big.Int
	)
	err := n.apply(ctx, "buy", func(tx *txn) error {
		var err error
		if offer, err = tx.market.Buy(caller, id, paid); err != nil {
			return err
		}
		balance, err = tx.market.Commission()
		return err
	})
	if err != nil {
		return nil, err
	}
	metrics.Market().ObserveOfferSold(offer.Kind().String(), paid)
	metrics.Market().SetCommission(balance)
	n.logger.InfoContext(ctx, "offer sold", "id", offer.ID, "paid", paid.String(), "commission", balance.String())
	return offer, nil
}

// MarketEditOffer replaces the price of an active offer.
func (n *Node) MarketEditOffer(ctx context.Context, caller [20]byte, id uint64, price *big.Int) (*marketplace.Offer, error) {
	var offer *marketplace.Offer
	err := n.apply(ctx, "edit_offer", func(tx *txn) error {
		var err error
		offer, err = tx.market.EditOffer(caller, id, price)
		return err
	})
	if err != nil {
		return nil, err
	}
	return offer, nil
}

// MarketCancelOffer returns the escrowed asset to the seller.
func (n *Node) MarketCancelOffer(ctx context.Context, caller [20]byte, id uint64) (*marketplace.Offer, error) {
	var offer *marketplace.Offer
	err := n.apply(ctx, "cancel_offer", func(tx *txn) error {
		var err error
		offer, err = tx.market.CancelOffer(caller, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	metrics.Market().ObserveOfferCancelled(offer.Kind().String())
	n.logger.InfoContext(ctx, "offer cancelled", "id", offer.ID)
	return offer, nil
}

// MarketWithdrawCommission pays the accrued commission to the operator.
func (n *Node) MarketWithdrawCommission(ctx context.Context, caller [20]byte) (*big.Int, error) {
	var amount *big.Int
	err := n.apply(ctx, "withdraw_commission", func(tx *txn) error {
		var err error
		amount, err = tx.market.WithdrawCommission(caller)
		return err
	})
	if err != nil {
		return nil, err
	}
	metrics.Market().SetCommission(big.NewInt(0))
	n.logger.InfoContext(ctx, "commission withdrawn", "amount", amount.String())
	return amount, nil
}

// MarketOffer returns the offer stored under id.
func (n *Node) MarketOffer(id uint64) (*marketplace.Offer, error) {
	var offer *marketplace.Offer
	err := n.view(func(tx *txn) error {
		var err error
		offer, err = tx.market.Offer(id)
		return err
	})
	return offer, err
}

// MarketNumberOfOffer returns the number of offers ever created.
func (n *Node) MarketNumberOfOffer() (uint64, error) {
	var count uint64
	err := n.view(func(tx *txn) error {
		var err error
		count, err = tx.market.NumberOfOffer()
		return err
	})
	return count, err
}

// MarketBatchGetOffer returns offers start through end inclusive.
func (n *Node) MarketBatchGetOffer(start, end uint64) ([]*marketplace.Offer, error) {
	var offers []*marketplace.Offer
	err := n.view(func(tx *txn) error {
		var err error
		offers, err = tx.market.BatchGetOffer(start, end)
		return err
	})
	return offers, err
}

// MarketCommission returns the undistributed commission balance.
func (n *Node) MarketCommission() (*big.Int, error) {
	var balance *big.Int
	err := n.view(func(tx *txn) error {
		var err error
		balance, err = tx.market.Commission()
		return err
	})
	return bigOrZero(balance), err
}

// MarketCommissionBps returns the configured commission rate.
func (n *Node) MarketCommissionBps() uint32 { return n.commissionBps }

// MarketOffersBySeller lists the ids of every offer created by seller.
func (n *Node) MarketOffersBySeller(seller [20]byte) ([]uint64, error) {
	var ids []uint64
	err := n.view(func(tx *txn) error {
		var err error
		ids, err = tx.manager.MarketOffersBySeller(seller)
		return err
	})
	return ids, err
}

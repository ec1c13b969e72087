package marketplace

import (
	"fmt"
	"math/big"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"nftmarket/core/events"
	"nftmarket/core/types"
	"nftmarket/native/assets"
)

// VaultAddress is the custody account holding escrowed assets, in-flight
// payments and the undistributed commission.
var VaultAddress = moduleAddress("marketplace/vault")

func moduleAddress(label string) [20]byte {
	var addr [20]byte
	copy(addr[:], ethcrypto.Keccak256([]byte(label))[12:])
	return addr
}

type engineState interface {
	ledgerState
	commissionState
}

type assetResolver interface {
	Resolve(addr [20]byte) (assets.Collection, error)
}

type paymentLedger interface {
	Transfer(from, to [20]byte, amount *big.Int) error
}

// Engine implements the offer lifecycle: escrowed listing, purchase, price
// edits, cancellation and commission withdrawal. Callers are expected to run
// each operation inside a state transaction so that a failure part way
// through leaves no effect.
type Engine struct {
	state      engineState
	ledger     *Ledger
	commission *Commission
	assets     assetResolver
	payments   paymentLedger
	emitter    events.Emitter
	nowFn      func() int64
}

// NewEngine creates a marketplace engine with the commission captured for the
// supplied operator. State and collaborators are attached with the setters.
func NewEngine(operator [20]byte, rateBps uint32) (*Engine, error) {
	commission, err := NewCommission(nil, operator, rateBps)
	if err != nil {
		return nil, err
	}
	return &Engine{
		commission: commission,
		ledger:     NewLedger(nil),
		emitter:    events.NoopEmitter{},
		nowFn:      func() int64 { return time.Now().Unix() },
	}, nil
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) {
	e.state = state
	e.ledger = NewLedger(state)
	e.commission.state = state
}

// SetAssets configures the collection resolver.
func (e *Engine) SetAssets(resolver assetResolver) { e.assets = resolver }

// SetPayments configures the native payment ledger.
func (e *Engine) SetPayments(payments paymentLedger) { e.payments = payments }

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used by the engine.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(marketEvent{evt: event})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) ready(needAssets, needPayments bool) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if needAssets && e.assets == nil {
		return errNilAssets
	}
	if needPayments && e.payments == nil {
		return errNilPayments
	}
	return nil
}

func (e *Engine) resolve(contract [20]byte) (assets.Collection, error) {
	coll, err := e.assets.Resolve(contract)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedAsset, err)
	}
	return coll, nil
}

// NewOffer escrows quantity units of assetID from the caller and lists them at
// price. The marketplace vault must already be approved to move the asset.
func (e *Engine) NewOffer(caller, contract [20]byte, assetID, quantity, price *big.Int) (*Offer, error) {
	if err := e.ready(true, false); err != nil {
		return nil, err
	}
	if contract == ([20]byte{}) {
		return nil, ErrZeroAddress
	}
	if quantity == nil || quantity.Sign() <= 0 || price == nil || price.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	if assetID == nil || assetID.Sign() < 0 {
		return nil, ErrInvalidAssetID
	}
	coll, err := e.resolve(contract)
	if err != nil {
		return nil, err
	}
	kind, err := assets.Probe(coll)
	if err != nil {
		return nil, ErrUnsupportedAsset
	}
	if kind == assets.KindSingleUnit && quantity.Cmp(big.NewInt(1)) != 0 {
		return nil, ErrInvalidQuantityForKind
	}
	if err := assets.Move(coll, kind, VaultAddress, caller, VaultAddress, assetID, quantity); err != nil {
		return nil, err
	}
	now := e.now()
	offer := &Offer{
		Seller:        caller,
		IsSingleUnit:  kind == assets.KindSingleUnit,
		AssetContract: contract,
		AssetID:       cloneBigInt(assetID),
		Quantity:      cloneBigInt(quantity),
		Price:         cloneBigInt(price),
		Status:        OfferActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	id, err := e.ledger.Append(offer)
	if err != nil {
		return nil, err
	}
	offer.ID = id
	e.emit(NewOfferCreatedEvent(offer))
	return offer.Clone(), nil
}

// Buy settles an active offer. The full paid amount is taken from the buyer;
// the commission on it is retained and the remainder goes to the seller.
func (e *Engine) Buy(caller [20]byte, id uint64, paid *big.Int) (*Offer, error) {
	if err := e.ready(true, true); err != nil {
		return nil, err
	}
	offer, err := e.ledger.Get(id)
	if err != nil {
		return nil, err
	}
	if offer.Status.Terminal() {
		return nil, ErrAlreadySold
	}
	if paid == nil || paid.Cmp(offer.Price) < 0 {
		return nil, ErrInsufficientPayment
	}
	paid = new(big.Int).Set(paid)
	if err := e.payments.Transfer(caller, VaultAddress, paid); err != nil {
		return nil, err
	}
	coll, err := e.resolve(offer.AssetContract)
	if err != nil {
		return nil, err
	}
	if err := assets.Move(coll, offer.Kind(), VaultAddress, VaultAddress, caller, offer.AssetID, offer.Quantity); err != nil {
		return nil, err
	}
	fee, err := e.commission.Accrue(paid)
	if err != nil {
		return nil, err
	}
	proceeds := new(big.Int).Sub(paid, fee)
	if err := e.payments.Transfer(VaultAddress, offer.Seller, proceeds); err != nil {
		return nil, err
	}
	sold, err := e.ledger.MarkSold(id, caller, e.now())
	if err != nil {
		return nil, err
	}
	e.emit(NewOfferSoldEvent(sold, paid, fee))
	return sold, nil
}

// EditOffer replaces the price of an active offer owned by the caller.
func (e *Engine) EditOffer(caller [20]byte, id uint64, price *big.Int) (*Offer, error) {
	if err := e.ready(false, false); err != nil {
		return nil, err
	}
	offer, err := e.ledger.Get(id)
	if err != nil {
		return nil, err
	}
	if offer.Seller != caller {
		return nil, ErrNotOwner
	}
	if offer.Status.Terminal() {
		return nil, ErrAlreadySold
	}
	if price == nil || price.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	edited, err := e.ledger.MutatePrice(id, price, e.now())
	if err != nil {
		return nil, err
	}
	e.emit(NewOfferEditedEvent(edited))
	return edited, nil
}

// CancelOffer returns the escrowed asset to the seller and closes the offer.
func (e *Engine) CancelOffer(caller [20]byte, id uint64) (*Offer, error) {
	if err := e.ready(true, false); err != nil {
		return nil, err
	}
	offer, err := e.ledger.Get(id)
	if err != nil {
		return nil, err
	}
	if offer.Seller != caller {
		return nil, ErrNotOwner
	}
	if offer.Status.Terminal() {
		return nil, ErrAlreadySold
	}
	coll, err := e.resolve(offer.AssetContract)
	if err != nil {
		return nil, err
	}
	if err := assets.Move(coll, offer.Kind(), VaultAddress, VaultAddress, offer.Seller, offer.AssetID, offer.Quantity); err != nil {
		return nil, err
	}
	cancelled, err := e.ledger.MarkCancelled(id, e.now())
	if err != nil {
		return nil, err
	}
	e.emit(NewOfferCancelledEvent(cancelled))
	return cancelled, nil
}

// WithdrawCommission pays the full commission balance to the operator and
// returns the amount paid.
func (e *Engine) WithdrawCommission(caller [20]byte) (*big.Int, error) {
	if err := e.ready(false, true); err != nil {
		return nil, err
	}
	amount, err := e.commission.Withdraw(caller)
	if err != nil {
		return nil, err
	}
	if err := e.payments.Transfer(VaultAddress, e.commission.Operator(), amount); err != nil {
		return nil, err
	}
	e.emit(NewCommissionWithdrawnEvent(e.commission.Operator(), amount))
	return amount, nil
}

// Offer returns the offer stored under id.
func (e *Engine) Offer(id uint64) (*Offer, error) {
	if err := e.ready(false, false); err != nil {
		return nil, err
	}
	return e.ledger.Get(id)
}

// NumberOfOffer returns the number of offers ever created.
func (e *Engine) NumberOfOffer() (uint64, error) {
	if err := e.ready(false, false); err != nil {
		return 0, err
	}
	return e.ledger.Count()
}

// BatchGetOffer returns offers start through end inclusive in ascending id
// order.
func (e *Engine) BatchGetOffer(start, end uint64) ([]*Offer, error) {
	count, err := e.NumberOfOffer()
	if err != nil {
		return nil, err
	}
	if start > end || end >= count {
		return nil, ErrInvalidRange
	}
	offers := make([]*Offer, 0, end-start+1)
	for id := start; ; id++ {
		offer, err := e.ledger.Get(id)
		if err != nil {
			return nil, err
		}
		offers = append(offers, offer)
		if id == end {
			break
		}
	}
	return offers, nil
}

// Commission returns the undistributed commission balance.
func (e *Engine) Commission() (*big.Int, error) {
	if err := e.ready(false, false); err != nil {
		return nil, err
	}
	return e.commission.Balance()
}

// Operator returns the identity entitled to withdraw commission.
func (e *Engine) Operator() [20]byte { return e.commission.Operator() }

// CommissionBps returns the configured commission rate.
func (e *Engine) CommissionBps() uint32 { return e.commission.RateBps() }

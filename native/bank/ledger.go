package bank

import (
	"encoding/hex"
	"errors"
	"math/big"
	"strconv"

	"nftmarket/core/events"
	"nftmarket/core/types"
)

const (
	EventTypeTransfer = "bank.transfer"
	EventTypeCredit   = "bank.credit"
	EventTypeFreeze   = "bank.freeze"
)

var (
	ErrNilState          = errors.New("bank: state not configured")
	ErrZeroAddress       = errors.New("bank: zero address is not allowed")
	ErrInvalidAmount     = errors.New("bank: amount must be positive")
	ErrInsufficientFunds = errors.New("bank: insufficient funds")
	ErrAccountFrozen     = errors.New("bank: account is frozen")
)

// State is the account storage used by the ledger.
type State interface {
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
}

type bankEvent struct {
	evt *types.Event
}

func (e bankEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e bankEvent) Event() *types.Event { return e.evt }

// Ledger moves native currency between accounts.
type Ledger struct {
	state   State
	emitter events.Emitter
}

// NewLedger creates a ledger over the provided state.
func NewLedger(state State) *Ledger {
	return &Ledger{state: state, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op
// implementation.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

func (l *Ledger) emit(evt *types.Event) {
	if l == nil || l.emitter == nil || evt == nil {
		return
	}
	l.emitter.Emit(bankEvent{evt: evt})
}

func (l *Ledger) load(addr [20]byte) (*types.Account, error) {
	if l == nil || l.state == nil {
		return nil, ErrNilState
	}
	acc, err := l.state.GetAccount(addr[:])
	if err != nil {
		return nil, err
	}
	if acc == nil {
		acc = &types.Account{}
	}
	if acc.Balance == nil {
		acc.Balance = big.NewInt(0)
	}
	return acc, nil
}

// Account returns a copy of the stored account.
func (l *Ledger) Account(addr [20]byte) (*types.Account, error) {
	acc, err := l.load(addr)
	if err != nil {
		return nil, err
	}
	return acc.Clone(), nil
}

// Balance returns the spendable balance of addr.
func (l *Ledger) Balance(addr [20]byte) (*big.Int, error) {
	acc, err := l.load(addr)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(acc.Balance), nil
}

// Credit issues new funds to addr. It is used by genesis allocation and the
// development faucet.
func (l *Ledger) Credit(addr [20]byte, amount *big.Int) error {
	if addr == ([20]byte{}) {
		return ErrZeroAddress
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	acc, err := l.load(addr)
	if err != nil {
		return err
	}
	if acc.Frozen {
		return ErrAccountFrozen
	}
	acc.Balance = new(big.Int).Add(acc.Balance, amount)
	if err := l.state.PutAccount(addr[:], acc); err != nil {
		return err
	}
	l.emit(&types.Event{Type: EventTypeCredit, Attributes: map[string]string{
		"account": hex.EncodeToString(addr[:]),
		"amount":  amount.String(),
	}})
	return nil
}

// Transfer moves amount from one account to another. Zero amounts are a
// no-op. Either side being frozen rejects the transfer.
func (l *Ledger) Transfer(from, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if to == ([20]byte{}) {
		return ErrZeroAddress
	}
	sender, err := l.load(from)
	if err != nil {
		return err
	}
	recipient, err := l.load(to)
	if err != nil {
		return err
	}
	if sender.Frozen || recipient.Frozen {
		return ErrAccountFrozen
	}
	if sender.Balance.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	if from == to {
		return nil
	}
	sender.Balance = new(big.Int).Sub(sender.Balance, amount)
	recipient.Balance = new(big.Int).Add(recipient.Balance, amount)
	if err := l.state.PutAccount(from[:], sender); err != nil {
		return err
	}
	if err := l.state.PutAccount(to[:], recipient); err != nil {
		return err
	}
	l.emit(&types.Event{Type: EventTypeTransfer, Attributes: map[string]string{
		"from":   hex.EncodeToString(from[:]),
		"to":     hex.EncodeToString(to[:]),
		"amount": amount.String(),
	}})
	return nil
}

// Freeze blocks addr from sending or receiving funds.
func (l *Ledger) Freeze(addr [20]byte) error { return l.setFrozen(addr, true) }

// Unfreeze lifts a previous Freeze.
func (l *Ledger) Unfreeze(addr [20]byte) error { return l.setFrozen(addr, false) }

func (l *Ledger) setFrozen(addr [20]byte, frozen bool) error {
	if addr == ([20]byte{}) {
		return ErrZeroAddress
	}
	acc, err := l.load(addr)
	if err != nil {
		return err
	}
	acc.Frozen = frozen
	if err := l.state.PutAccount(addr[:], acc); err != nil {
		return err
	}
	l.emit(&types.Event{Type: EventTypeFreeze, Attributes: map[string]string{
		"account": hex.EncodeToString(addr[:]),
		"frozen":  strconv.FormatBool(frozen),
	}})
	return nil
}

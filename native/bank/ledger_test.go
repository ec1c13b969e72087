package bank

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"nftmarket/core/events"
	"nftmarket/core/types"
)

type mockState struct {
	accounts map[string]*types.Account
}

func newMockState() *mockState {
	return &mockState{accounts: make(map[string]*types.Account)}
}

func (m *mockState) GetAccount(addr []byte) (*types.Account, error) {
	acc, ok := m.accounts[string(addr)]
	if !ok {
		return &types.Account{Balance: big.NewInt(0)}, nil
	}
	return acc.Clone(), nil
}

func (m *mockState) PutAccount(addr []byte, account *types.Account) error {
	m.accounts[string(addr)] = account.Clone()
	return nil
}

type recorder struct {
	seen []string
}

func (r *recorder) Emit(evt events.Event) { r.seen = append(r.seen, evt.EventType()) }

func addr(b byte) [20]byte {
	var a [20]byte
	a[19] = b
	return a
}

func TestLedgerTransferMovesFunds(t *testing.T) {
	ledger := NewLedger(newMockState())
	rec := &recorder{}
	ledger.SetEmitter(rec)
	alice, bob := addr(1), addr(2)

	require.NoError(t, ledger.Credit(alice, big.NewInt(1_000)))
	require.NoError(t, ledger.Transfer(alice, bob, big.NewInt(400)))

	bal, err := ledger.Balance(alice)
	require.NoError(t, err)
	require.Equal(t, "600", bal.String())
	bal, err = ledger.Balance(bob)
	require.NoError(t, err)
	require.Equal(t, "400", bal.String())
	require.Equal(t, []string{EventTypeCredit, EventTypeTransfer}, rec.seen)
}

func TestLedgerRejectsOverdraft(t *testing.T) {
	ledger := NewLedger(newMockState())
	alice, bob := addr(1), addr(2)
	require.NoError(t, ledger.Credit(alice, big.NewInt(10)))

	err := ledger.Transfer(alice, bob, big.NewInt(11))
	require.ErrorIs(t, err, ErrInsufficientFunds)
	require.ErrorIs(t, ledger.Transfer(alice, bob, big.NewInt(-1)), ErrInvalidAmount)
	require.ErrorIs(t, ledger.Transfer(alice, [20]byte{}, big.NewInt(1)), ErrZeroAddress)
	require.NoError(t, ledger.Transfer(alice, bob, big.NewInt(0)))
}

func TestLedgerFrozenAccountsCannotTransact(t *testing.T) {
	ledger := NewLedger(newMockState())
	alice, bob := addr(1), addr(2)
	require.NoError(t, ledger.Credit(alice, big.NewInt(10)))
	require.NoError(t, ledger.Freeze(bob))

	require.ErrorIs(t, ledger.Transfer(alice, bob, big.NewInt(1)), ErrAccountFrozen)
	require.ErrorIs(t, ledger.Credit(bob, big.NewInt(1)), ErrAccountFrozen)

	require.NoError(t, ledger.Unfreeze(bob))
	require.NoError(t, ledger.Transfer(alice, bob, big.NewInt(1)))

	acc, err := ledger.Account(bob)
	require.NoError(t, err)
	require.False(t, acc.Frozen)
	require.Equal(t, "1", acc.Balance.String())
}

package core

import (
	"context"
	"math/big"

	"nftmarket/core/types"
)

// BankAccount returns the payment account of addr.
func (n *Node) BankAccount(addr [20]byte) (*types.Account, error) {
	var acc *types.Account
	err := n.view(func(tx *txn) error {
		var err error
		acc, err = tx.bank.Account(addr)
		return err
	})
	return acc, err
}

// BankCredit issues funds to addr. Only the operator may credit.
func (n *Node) BankCredit(ctx context.Context, caller, addr [20]byte, amount *big.Int) error {
	if caller != n.operator {
		return ErrNotOperator
	}
	return n.apply(ctx, "bank_credit", func(tx *txn) error {
		return tx.bank.Credit(addr, amount)
	})
}

// BankFreeze blocks addr from sending or receiving funds.
func (n *Node) BankFreeze(ctx context.Context, caller, addr [20]byte) error {
	if caller != n.operator {
		return ErrNotOperator
	}
	return n.apply(ctx, "bank_freeze", func(tx *txn) error {
		return tx.bank.Freeze(addr)
	})
}

// BankUnfreeze lifts a previous freeze.
func (n *Node) BankUnfreeze(ctx context.Context, caller, addr [20]byte) error {
	if caller != n.operator {
		return ErrNotOperator
	}
	return n.apply(ctx, "bank_unfreeze", func(tx *txn) error {
		return tx.bank.Unfreeze(addr)
	})
}

package assets

import "math/big"

// SemiFungible is a state-backed multi-unit collection. Balances are tracked
// per (token id, holder).
type SemiFungible struct {
	registry *Registry
	info     *CollectionInfo
}

func (s *SemiFungible) Address() [20]byte { return s.info.Address }

func (s *SemiFungible) SupportsInterface(id [4]byte) bool { return s.info.Supports(id) }

// Info returns a copy of the collection record.
func (s *SemiFungible) Info() *CollectionInfo { return s.info.Clone() }

func (s *SemiFungible) state() (State, error) {
	if s == nil || s.registry == nil || s.registry.state == nil {
		return nil, ErrNilState
	}
	return s.registry.state, nil
}

// BalanceOf returns the units of id held by holder.
func (s *SemiFungible) BalanceOf(holder [20]byte, id *big.Int) (*big.Int, error) {
	st, err := s.state()
	if err != nil {
		return nil, err
	}
	if isZeroAddress(holder) {
		return nil, ErrZeroAddress
	}
	bal, err := st.UnitBalance(s.info.Address, id, holder)
	if err != nil {
		return nil, err
	}
	return cloneBigInt(bal), nil
}

// IsApprovedForAll reports whether operator may move balances of owner.
func (s *SemiFungible) IsApprovedForAll(owner, operator [20]byte) (bool, error) {
	st, err := s.state()
	if err != nil {
		return false, err
	}
	return st.OperatorApproval(s.info.Address, owner, operator)
}

// SetApprovalForAll grants or revokes operator over all balances of owner.
func (s *SemiFungible) SetApprovalForAll(owner, operator [20]byte, approved bool) error {
	return setApprovalForAll(s.registry, s.info.Address, owner, operator, approved)
}

// SafeTransferFrom moves amount units of id from one holder to another on
// behalf of operator.
func (s *SemiFungible) SafeTransferFrom(operator, from, to [20]byte, id, amount *big.Int) error {
	st, err := s.state()
	if err != nil {
		return err
	}
	if isZeroAddress(to) {
		return ErrZeroAddress
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidQuantity
	}
	if operator != from {
		ok, err := st.OperatorApproval(s.info.Address, from, operator)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotOwnerOrApproved
		}
	}
	fromBal, err := st.UnitBalance(s.info.Address, id, from)
	if err != nil {
		return err
	}
	fromBal = cloneBigInt(fromBal)
	if fromBal.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	if from != to {
		toBal, err := st.UnitBalance(s.info.Address, id, to)
		if err != nil {
			return err
		}
		toBal = cloneBigInt(toBal)
		if err := st.SetUnitBalance(s.info.Address, id, from, fromBal.Sub(fromBal, amount)); err != nil {
			return err
		}
		if err := st.SetUnitBalance(s.info.Address, id, to, toBal.Add(toBal, amount)); err != nil {
			return err
		}
	}
	s.registry.emit(NewTransferEvent(s.info.Address, operator, from, to, id, amount))
	return nil
}

// Mint credits amount units of id to the recipient. Only the collection
// owner may mint.
func (s *SemiFungible) Mint(caller, to [20]byte, id, amount *big.Int) error {
	st, err := s.state()
	if err != nil {
		return err
	}
	if caller != s.info.Owner {
		return ErrNotCollectionOwner
	}
	if isZeroAddress(to) {
		return ErrZeroAddress
	}
	if id == nil || id.Sign() < 0 || amount == nil || amount.Sign() <= 0 {
		return ErrInvalidQuantity
	}
	bal, err := st.UnitBalance(s.info.Address, id, to)
	if err != nil {
		return err
	}
	bal = cloneBigInt(bal)
	if err := st.SetUnitBalance(s.info.Address, id, to, bal.Add(bal, amount)); err != nil {
		return err
	}
	s.registry.emit(NewTransferEvent(s.info.Address, caller, [20]byte{}, to, id, amount))
	return nil
}

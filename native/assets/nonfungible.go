package assets

import (
	"math/big"
)

// NonFungible is a state-backed single-unit collection. Token ids are
// assigned sequentially from one by Mint and BatchMint.
type NonFungible struct {
	registry *Registry
	info     *CollectionInfo
}

func (n *NonFungible) Address() [20]byte { return n.info.Address }

func (n *NonFungible) SupportsInterface(id [4]byte) bool { return n.info.Supports(id) }

// Info returns a copy of the collection record.
func (n *NonFungible) Info() *CollectionInfo { return n.info.Clone() }

func (n *NonFungible) state() (State, error) {
	if n == nil || n.registry == nil || n.registry.state == nil {
		return nil, ErrNilState
	}
	return n.registry.state, nil
}

// OwnerOf returns the current owner of the token.
func (n *NonFungible) OwnerOf(id *big.Int) ([20]byte, error) {
	st, err := n.state()
	if err != nil {
		return [20]byte{}, err
	}
	owner, ok, err := st.TokenOwner(n.info.Address, id)
	if err != nil {
		return [20]byte{}, err
	}
	if !ok || isZeroAddress(owner) {
		return [20]byte{}, ErrTokenNotFound
	}
	return owner, nil
}

// BalanceOf returns the number of tokens held by owner.
func (n *NonFungible) BalanceOf(owner [20]byte) (uint64, error) {
	st, err := n.state()
	if err != nil {
		return 0, err
	}
	if isZeroAddress(owner) {
		return 0, ErrZeroAddress
	}
	return st.OwnedCount(n.info.Address, owner)
}

// TokenURI returns the metadata URI recorded at mint time.
func (n *NonFungible) TokenURI(id *big.Int) (string, error) {
	if _, err := n.OwnerOf(id); err != nil {
		return "", err
	}
	st, _ := n.state()
	return st.TokenURI(n.info.Address, id)
}

// GetApproved returns the single-token approval, or the zero address.
func (n *NonFungible) GetApproved(id *big.Int) ([20]byte, error) {
	if _, err := n.OwnerOf(id); err != nil {
		return [20]byte{}, err
	}
	st, _ := n.state()
	return st.TokenApproval(n.info.Address, id)
}

// IsApprovedForAll reports whether operator may move every token of owner.
func (n *NonFungible) IsApprovedForAll(owner, operator [20]byte) (bool, error) {
	st, err := n.state()
	if err != nil {
		return false, err
	}
	return st.OperatorApproval(n.info.Address, owner, operator)
}

// Approve grants approved the right to move a single token. The caller must
// be the owner or an operator of the owner.
func (n *NonFungible) Approve(caller, approved [20]byte, id *big.Int) error {
	owner, err := n.OwnerOf(id)
	if err != nil {
		return err
	}
	if approved == owner {
		return ErrSelfApproval
	}
	if caller != owner {
		ok, err := n.IsApprovedForAll(owner, caller)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotOwnerOrApproved
		}
	}
	st, _ := n.state()
	if err := st.SetTokenApproval(n.info.Address, id, approved); err != nil {
		return err
	}
	n.registry.emit(NewApprovalEvent(n.info.Address, owner, approved, id))
	return nil
}

// SetApprovalForAll grants or revokes operator over every token of owner.
func (n *NonFungible) SetApprovalForAll(owner, operator [20]byte, approved bool) error {
	return setApprovalForAll(n.registry, n.info.Address, owner, operator, approved)
}

func (n *NonFungible) isApprovedOrOwner(spender, owner [20]byte, id *big.Int) (bool, error) {
	if spender == owner {
		return true, nil
	}
	st, err := n.state()
	if err != nil {
		return false, err
	}
	approved, err := st.TokenApproval(n.info.Address, id)
	if err != nil {
		return false, err
	}
	if approved == spender && !isZeroAddress(approved) {
		return true, nil
	}
	return st.OperatorApproval(n.info.Address, owner, spender)
}

// TransferFrom moves the token from its owner to the recipient on behalf of
// operator. Any single-token approval is cleared.
func (n *NonFungible) TransferFrom(operator, from, to [20]byte, id *big.Int) error {
	owner, err := n.OwnerOf(id)
	if err != nil {
		return err
	}
	if owner != from {
		return ErrNotOwnerOrApproved
	}
	if isZeroAddress(to) {
		return ErrZeroAddress
	}
	ok, err := n.isApprovedOrOwner(operator, owner, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotOwnerOrApproved
	}
	st, _ := n.state()
	if err := st.SetTokenApproval(n.info.Address, id, [20]byte{}); err != nil {
		return err
	}
	if err := st.SetTokenOwner(n.info.Address, id, to); err != nil {
		return err
	}
	if from != to {
		if err := n.adjustOwned(st, from, -1); err != nil {
			return err
		}
		if err := n.adjustOwned(st, to, 1); err != nil {
			return err
		}
	}
	n.registry.emit(NewTransferEvent(n.info.Address, operator, from, to, id, big.NewInt(1)))
	return nil
}

func (n *NonFungible) adjustOwned(st State, owner [20]byte, delta int) error {
	count, err := st.OwnedCount(n.info.Address, owner)
	if err != nil {
		return err
	}
	if delta < 0 {
		if count == 0 {
			return ErrInsufficientBalance
		}
		count--
	} else {
		count++
	}
	return st.SetOwnedCount(n.info.Address, owner, count)
}

// Mint issues the next token id to the recipient. Only the collection owner
// may mint.
func (n *NonFungible) Mint(caller, to [20]byte, uri string) (*big.Int, error) {
	ids, err := n.BatchMint(caller, [][20]byte{to}, []string{uri})
	if err != nil {
		return nil, err
	}
	return ids[0], nil
}

// BatchMint issues one token per recipient, pairing recipients with uris by
// position.
func (n *NonFungible) BatchMint(caller [20]byte, recipients [][20]byte, uris []string) ([]*big.Int, error) {
	st, err := n.state()
	if err != nil {
		return nil, err
	}
	if caller != n.info.Owner {
		return nil, ErrNotCollectionOwner
	}
	if len(recipients) == 0 || len(recipients) != len(uris) {
		return nil, ErrMintMismatch
	}
	for _, to := range recipients {
		if isZeroAddress(to) {
			return nil, ErrZeroAddress
		}
	}
	info := n.info.Clone()
	ids := make([]*big.Int, 0, len(recipients))
	for i, to := range recipients {
		id := new(big.Int).SetUint64(info.Minted + 1)
		if _, exists, err := st.TokenOwner(info.Address, id); err != nil {
			return nil, err
		} else if exists {
			return nil, ErrTokenExists
		}
		if err := st.SetTokenOwner(info.Address, id, to); err != nil {
			return nil, err
		}
		if err := st.SetTokenURI(info.Address, id, uris[i]); err != nil {
			return nil, err
		}
		if err := n.adjustOwned(st, to, 1); err != nil {
			return nil, err
		}
		info.Minted++
		ids = append(ids, id)
		n.registry.emit(NewTransferEvent(info.Address, caller, [20]byte{}, to, id, big.NewInt(1)))
	}
	if err := st.CollectionPut(info); err != nil {
		return nil, err
	}
	n.info = info
	return ids, nil
}

func setApprovalForAll(r *Registry, collection, owner, operator [20]byte, approved bool) error {
	if r == nil || r.state == nil {
		return ErrNilState
	}
	if isZeroAddress(operator) {
		return ErrZeroAddress
	}
	if owner == operator {
		return ErrSelfApproval
	}
	if err := r.state.SetOperatorApproval(collection, owner, operator, approved); err != nil {
		return err
	}
	r.emit(NewApprovalForAllEvent(collection, owner, operator, approved))
	return nil
}

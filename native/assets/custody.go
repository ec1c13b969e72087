package assets

import "math/big"

// Probe inspects the advertised interfaces of a collection and reports which
// custody path applies. Collections advertising neither asset interface are
// rejected with ErrUnsupportedAsset.
func Probe(coll Collection) (Kind, error) {
	if coll == nil {
		return KindUnknown, ErrUnsupportedAsset
	}
	if coll.SupportsInterface(InterfaceSingleUnit) {
		if _, ok := coll.(SingleUnit); ok {
			return KindSingleUnit, nil
		}
	}
	if coll.SupportsInterface(InterfaceMultiUnit) {
		if _, ok := coll.(MultiUnit); ok {
			return KindMultiUnit, nil
		}
	}
	return KindUnknown, ErrUnsupportedAsset
}

// Move transfers quantity units of id from one holder to another through the
// custody path selected by kind. Single-unit moves require a quantity of
// exactly one.
func Move(coll Collection, kind Kind, operator, from, to [20]byte, id, quantity *big.Int) error {
	if coll == nil {
		return ErrUnsupportedAsset
	}
	switch kind {
	case KindSingleUnit:
		single, ok := coll.(SingleUnit)
		if !ok {
			return ErrUnsupportedAsset
		}
		if quantity == nil || quantity.Cmp(big.NewInt(1)) != 0 {
			return ErrInvalidQuantity
		}
		return single.TransferFrom(operator, from, to, id)
	case KindMultiUnit:
		multi, ok := coll.(MultiUnit)
		if !ok {
			return ErrUnsupportedAsset
		}
		if quantity == nil || quantity.Sign() <= 0 {
			return ErrInvalidQuantity
		}
		return multi.SafeTransferFrom(operator, from, to, id, quantity)
	default:
		return ErrUnsupportedAsset
	}
}

package assets

import (
	"math/big"
	"strings"
)

// Kind identifies how custody of an asset is transferred.
type Kind uint8

const (
	KindUnknown Kind = iota
	// KindSingleUnit covers uniquely owned tokens (ERC-721 style). Quantity is
	// always exactly one.
	KindSingleUnit
	// KindMultiUnit covers quantity-bearing balances per token id (ERC-1155
	// style).
	KindMultiUnit
)

// ERC-165 style interface identifiers advertised by collections.
var (
	InterfaceIntrospection = [4]byte{0x01, 0xff, 0xc9, 0xa7}
	InterfaceSingleUnit    = [4]byte{0x80, 0xac, 0x58, 0xcd}
	InterfaceMultiUnit     = [4]byte{0xd9, 0xb6, 0x7a, 0x26}
)

// Valid reports whether the kind denotes a transferable asset.
func (k Kind) Valid() bool {
	return k == KindSingleUnit || k == KindMultiUnit
}

func (k Kind) String() string {
	switch k {
	case KindSingleUnit:
		return "single"
	case KindMultiUnit:
		return "multi"
	default:
		return "unknown"
	}
}

// ParseKind maps a user supplied kind label to a Kind. The "plain" label
// yields KindUnknown which deploys a collection advertising no asset
// interface.
func ParseKind(label string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "single", "erc721", "721", "nonfungible":
		return KindSingleUnit, nil
	case "multi", "erc1155", "1155", "semifungible":
		return KindMultiUnit, nil
	case "plain", "none":
		return KindUnknown, nil
	default:
		return KindUnknown, ErrUnknownKind
	}
}

// CollectionInfo is the persisted description of a deployed collection.
type CollectionInfo struct {
	Address    [20]byte
	Name       string
	Owner      [20]byte
	Kind       Kind
	Interfaces [][4]byte
	Minted     uint64
	CreatedAt  int64
}

// Clone returns a deep copy of the collection record.
func (c *CollectionInfo) Clone() *CollectionInfo {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Interfaces = append([][4]byte(nil), c.Interfaces...)
	return &clone
}

// Supports reports whether the collection advertises the interface id.
func (c *CollectionInfo) Supports(id [4]byte) bool {
	if c == nil {
		return false
	}
	for _, iface := range c.Interfaces {
		if iface == id {
			return true
		}
	}
	return false
}

func interfacesFor(kind Kind) [][4]byte {
	switch kind {
	case KindSingleUnit:
		return [][4]byte{InterfaceIntrospection, InterfaceSingleUnit}
	case KindMultiUnit:
		return [][4]byte{InterfaceIntrospection, InterfaceMultiUnit}
	default:
		return nil
	}
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func isZeroAddress(addr [20]byte) bool {
	return addr == [20]byte{}
}

package assets

import (
	"encoding/binary"
	"math/big"
	"strings"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"nftmarket/core/events"
	"nftmarket/core/types"
)

// State is the persistence surface required by the collection registry and
// the built-in collection implementations.
type State interface {
	CollectionGet(addr [20]byte) (*CollectionInfo, bool, error)
	CollectionPut(info *CollectionInfo) error
	CollectionNonce(deployer [20]byte) (uint64, error)
	SetCollectionNonce(deployer [20]byte, nonce uint64) error

	TokenOwner(collection [20]byte, id *big.Int) ([20]byte, bool, error)
	SetTokenOwner(collection [20]byte, id *big.Int, owner [20]byte) error
	TokenApproval(collection [20]byte, id *big.Int) ([20]byte, error)
	SetTokenApproval(collection [20]byte, id *big.Int, approved [20]byte) error
	TokenURI(collection [20]byte, id *big.Int) (string, error)
	SetTokenURI(collection [20]byte, id *big.Int, uri string) error
	OwnedCount(collection [20]byte, owner [20]byte) (uint64, error)
	SetOwnedCount(collection [20]byte, owner [20]byte, count uint64) error

	OperatorApproval(collection [20]byte, owner, operator [20]byte) (bool, error)
	SetOperatorApproval(collection [20]byte, owner, operator [20]byte, approved bool) error

	UnitBalance(collection [20]byte, id *big.Int, holder [20]byte) (*big.Int, error)
	SetUnitBalance(collection [20]byte, id *big.Int, holder [20]byte, amount *big.Int) error
}

// Collection is the capability every collection reference exposes. Asset
// specific behaviour is discovered through SupportsInterface and the
// SingleUnit/MultiUnit interfaces.
type Collection interface {
	Address() [20]byte
	SupportsInterface(id [4]byte) bool
}

// SingleUnit transfers uniquely owned tokens.
type SingleUnit interface {
	Collection
	OwnerOf(id *big.Int) ([20]byte, error)
	TransferFrom(operator, from, to [20]byte, id *big.Int) error
}

// MultiUnit transfers quantity-bearing balances.
type MultiUnit interface {
	Collection
	BalanceOf(holder [20]byte, id *big.Int) (*big.Int, error)
	SafeTransferFrom(operator, from, to [20]byte, id, amount *big.Int) error
}

// Registry deploys and resolves state-backed collections.
type Registry struct {
	state   State
	emitter events.Emitter
	nowFn   func() int64
}

// NewRegistry creates a registry with a no-op emitter.
func NewRegistry(state State) *Registry {
	return &Registry{
		state:   state,
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op
// implementation.
func (r *Registry) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		r.emitter = events.NoopEmitter{}
		return
	}
	r.emitter = emitter
}

// SetNowFunc overrides the time source for deterministic tests.
func (r *Registry) SetNowFunc(now func() int64) {
	if now == nil {
		r.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	r.nowFn = now
}

func (r *Registry) emit(evt *types.Event) {
	if r == nil || r.emitter == nil || evt == nil {
		return
	}
	r.emitter.Emit(assetEvent{evt: evt})
}

func (r *Registry) now() int64 {
	if r == nil || r.nowFn == nil {
		return time.Now().Unix()
	}
	return r.nowFn()
}

// DeriveAddress computes the collection address for a deployer and nonce.
func DeriveAddress(deployer [20]byte, nonce uint64) [20]byte {
	buf := make([]byte, len(deployer)+8)
	copy(buf, deployer[:])
	binary.BigEndian.PutUint64(buf[len(deployer):], nonce)
	hash := ethcrypto.Keccak256(buf)
	var addr [20]byte
	copy(addr[:], hash[12:])
	return addr
}

// Deploy registers a new collection owned by the deployer. KindUnknown
// deploys a plain collection which advertises no asset interface.
func (r *Registry) Deploy(kind Kind, name string, deployer [20]byte) (*CollectionInfo, error) {
	if r == nil || r.state == nil {
		return nil, ErrNilState
	}
	if isZeroAddress(deployer) {
		return nil, ErrZeroAddress
	}
	nonce, err := r.state.CollectionNonce(deployer)
	if err != nil {
		return nil, err
	}
	info := &CollectionInfo{
		Address:    DeriveAddress(deployer, nonce),
		Name:       strings.TrimSpace(name),
		Owner:      deployer,
		Kind:       kind,
		Interfaces: interfacesFor(kind),
		CreatedAt:  r.now(),
	}
	if err := r.state.CollectionPut(info); err != nil {
		return nil, err
	}
	if err := r.state.SetCollectionNonce(deployer, nonce+1); err != nil {
		return nil, err
	}
	r.emit(NewCollectionDeployedEvent(info))
	return info.Clone(), nil
}

// Info returns the stored collection record.
func (r *Registry) Info(addr [20]byte) (*CollectionInfo, error) {
	if r == nil || r.state == nil {
		return nil, ErrNilState
	}
	info, ok, err := r.state.CollectionGet(addr)
	if err != nil {
		return nil, err
	}
	if !ok || info == nil {
		return nil, ErrCollectionNotFound
	}
	return info, nil
}

// Resolve returns the collection reference deployed at addr.
func (r *Registry) Resolve(addr [20]byte) (Collection, error) {
	info, err := r.Info(addr)
	if err != nil {
		return nil, err
	}
	switch {
	case info.Supports(InterfaceSingleUnit):
		return &NonFungible{registry: r, info: info}, nil
	case info.Supports(InterfaceMultiUnit):
		return &SemiFungible{registry: r, info: info}, nil
	default:
		return plainCollection{info: info}, nil
	}
}

// NonFungible resolves addr and asserts it is a single-unit collection.
func (r *Registry) NonFungible(addr [20]byte) (*NonFungible, error) {
	coll, err := r.Resolve(addr)
	if err != nil {
		return nil, err
	}
	nft, ok := coll.(*NonFungible)
	if !ok {
		return nil, ErrUnsupportedAsset
	}
	return nft, nil
}

// SemiFungible resolves addr and asserts it is a multi-unit collection.
func (r *Registry) SemiFungible(addr [20]byte) (*SemiFungible, error) {
	coll, err := r.Resolve(addr)
	if err != nil {
		return nil, err
	}
	sft, ok := coll.(*SemiFungible)
	if !ok {
		return nil, ErrUnsupportedAsset
	}
	return sft, nil
}

// plainCollection is a deployed contract that does not implement any asset
// interface.
type plainCollection struct {
	info *CollectionInfo
}

func (p plainCollection) Address() [20]byte { return p.info.Address }

func (p plainCollection) SupportsInterface(id [4]byte) bool { return p.info.Supports(id) }

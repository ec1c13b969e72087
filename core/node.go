package core

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"nftmarket/core/events"
	"nftmarket/core/genesis"
	nftstate "nftmarket/core/state"
	"nftmarket/native/bank"
	"nftmarket/native/marketplace"
	"nftmarket/observability/metrics"
	"nftmarket/storage"
	"nftmarket/storage/trie"
)

const instrumentationName = "nftmarket/core"

var (
	stateRootKey = []byte("nftmarket/state/root")
	stateSeqKey  = []byte("nftmarket/state/seq")
)

// Config captures the marketplace parameters fixed at node start.
type Config struct {
	Operator      [20]byte
	CommissionBps uint32
	// AllowMigrate tolerates an on-disk schema version that differs from the
	// one supported by this binary.
	AllowMigrate bool
}

// Node serialises access to the marketplace state. Every mutation runs as an
// all-or-nothing transaction over the state trie.
type Node struct {
	db            storage.Database
	trie          *trie.Trie
	stateMu       sync.Mutex
	operator      [20]byte
	commissionBps uint32
	seq           uint64
	fanout        *events.Fanout
	nowFn         func() int64
	logger        *slog.Logger
	tracer        trace.Tracer
	committed     metric.Int64Counter
}

// NewNode opens the state stored in db. When the database holds no state yet
// the genesis spec, if any, is applied as the first transaction.
func NewNode(db storage.Database, cfg Config, spec *genesis.Spec) (*Node, error) {
	if db == nil {
		return nil, fmt.Errorf("core: database must not be nil")
	}
	if cfg.Operator == ([20]byte{}) {
		return nil, marketplace.ErrZeroAddress
	}
	// Validates the rate before any state is touched.
	if _, err := marketplace.NewEngine(cfg.Operator, cfg.CommissionBps); err != nil {
		return nil, err
	}

	root, err := loadKey(db, stateRootKey)
	if err != nil {
		return nil, err
	}
	stateTrie, err := trie.NewTrie(db, root)
	if err != nil {
		return nil, err
	}
	rawSeq, err := loadKey(db, stateSeqKey)
	if err != nil {
		return nil, err
	}
	var seq uint64
	if len(rawSeq) == 8 {
		seq = binary.BigEndian.Uint64(rawSeq)
	}

	meter := otel.Meter(instrumentationName)
	committed, err := meter.Int64Counter("market.operations.committed",
		metric.WithDescription("Marketplace state transitions committed by the node."))
	if err != nil {
		return nil, err
	}

	n := &Node{
		db:            db,
		trie:          stateTrie,
		operator:      cfg.Operator,
		commissionBps: cfg.CommissionBps,
		seq:           seq,
		fanout:        events.NewFanout(),
		nowFn:         func() int64 { return time.Now().Unix() },
		logger:        slog.Default().With("component", "node"),
		tracer:        otel.Tracer(instrumentationName),
		committed:     committed,
	}

	if len(root) == 0 {
		err := n.apply(context.Background(), "genesis", func(tx *txn) error {
			if err := tx.manager.SetStateVersion(nftstate.StateVersion); err != nil {
				return err
			}
			return tx.applyGenesis(spec)
		})
		if err != nil {
			return nil, fmt.Errorf("core: apply genesis: %w", err)
		}
	} else if err := nftstate.EnsureStateVersion(stateTrie, cfg.AllowMigrate); err != nil {
		return nil, err
	}
	return n, nil
}

func loadKey(db storage.Database, key []byte) ([]byte, error) {
	value, err := db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return value, err
}

// Subscribe registers an emitter receiving the events of every committed
// transaction, in commit order. The returned function unsubscribes it.
func (n *Node) Subscribe(sub events.Emitter) func() { return n.fanout.Subscribe(sub) }

// SetLogger replaces the node logger.
func (n *Node) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	n.logger = logger.With("component", "node")
}

// SetNowFunc overrides the clock used for offer and collection timestamps.
func (n *Node) SetNowFunc(now func() int64) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	if now == nil {
		now = func() int64 { return time.Now().Unix() }
	}
	n.nowFn = now
}

// StateRoot returns the root of the last committed state.
func (n *Node) StateRoot() common.Hash {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.trie.Root()
}

// Operator returns the identity entitled to the marketplace commission.
func (n *Node) Operator() [20]byte { return n.operator }

// Close releases the underlying database.
func (n *Node) Close() {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	n.db.Close()
}

// apply runs fn as a single transaction. Any error restores the pre-call
// state and drops the events fn produced. On success the trie is committed,
// the new root persisted and the buffered events released to subscribers.
func (n *Node) apply(ctx context.Context, op string, fn func(*txn) error) (err error) {
	ctx, span := n.tracer.Start(ctx, "node."+op)
	defer span.End()
	start := time.Now()

	n.stateMu.Lock()
	defer n.stateMu.Unlock()

	defer func() {
		metrics.Market().ObserveLatency(op, time.Since(start))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			metrics.Market().ObserveFailure(op, FailureReason(err))
			n.logger.WarnContext(ctx, "operation rejected", "op", op, "error", err)
		}
	}()

	snapshot, err := n.trie.Copy()
	if err != nil {
		return err
	}
	parent := n.trie.Root()
	buf := &events.Buffer{}
	if err := fn(n.newTxn(buf)); err != nil {
		buf.Discard()
		if revertErr := n.trie.Revert(snapshot); revertErr != nil {
			return errors.Join(err, revertErr)
		}
		return err
	}

	root, err := n.trie.Commit(parent, n.seq+1)
	if err != nil {
		buf.Discard()
		return errors.Join(err, n.trie.Reset(parent))
	}
	seq := make([]byte, 8)
	binary.BigEndian.PutUint64(seq, n.seq+1)
	if err := n.db.Put(stateSeqKey, seq); err != nil {
		buf.Discard()
		return errors.Join(err, n.trie.Reset(parent))
	}
	if err := n.db.Put(stateRootKey, root.Bytes()); err != nil {
		buf.Discard()
		return errors.Join(err, n.trie.Reset(parent))
	}
	n.seq++

	released := buf.Len()
	buf.Flush(n.fanout)
	n.committed.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
	span.SetAttributes(attribute.String("state.root", root.Hex()), attribute.Int("events", released))
	n.logger.DebugContext(ctx, "operation committed", "op", op, "root", root.Hex(), "events", released)
	return nil
}

// view runs a read-only function against the committed state.
func (n *Node) view(fn func(*txn) error) error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return fn(n.newTxn(nil))
}

// FailureReason maps an error to the short label used in metrics and logs.
func FailureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, marketplace.ErrZeroAddress):
		return "zero_address"
	case errors.Is(err, marketplace.ErrZeroAmount):
		return "zero_amount"
	case errors.Is(err, marketplace.ErrInvalidQuantityForKind):
		return "invalid_quantity"
	case errors.Is(err, marketplace.ErrUnsupportedAsset):
		return "unsupported_asset"
	case errors.Is(err, marketplace.ErrOfferNotFound):
		return "not_found"
	case errors.Is(err, marketplace.ErrNotOwner), errors.Is(err, ErrNotOperator):
		return "not_owner"
	case errors.Is(err, marketplace.ErrAlreadySold):
		return "already_sold"
	case errors.Is(err, marketplace.ErrInsufficientPayment):
		return "insufficient_payment"
	case errors.Is(err, marketplace.ErrZeroBalance):
		return "zero_balance"
	case errors.Is(err, bank.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, bank.ErrAccountFrozen):
		return "account_frozen"
	default:
		return "other"
	}
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}

package marketplace

import "math/big"

const (
	// DefaultCommissionBps is the marketplace fee applied to every sale (1%).
	DefaultCommissionBps uint32 = 100
	maxCommissionBps     uint32 = 10_000
)

// commissionState persists the undistributed commission balance.
type commissionState interface {
	MarketCommission() (*big.Int, error)
	SetMarketCommission(amount *big.Int) error
}

// ComputeCommission returns floor(amount * bps / 10_000).
func ComputeCommission(amount *big.Int, bps uint32) *big.Int {
	if amount == nil || amount.Sign() <= 0 || bps == 0 {
		return big.NewInt(0)
	}
	fee := new(big.Int).Mul(amount, new(big.Int).SetUint64(uint64(bps)))
	return fee.Quo(fee, big.NewInt(int64(maxCommissionBps)))
}

// Commission owns the fee accumulator and the operator entitled to withdraw
// it. The operator is fixed when the commission module is constructed.
type Commission struct {
	state    commissionState
	operator [20]byte
	rateBps  uint32
}

// NewCommission creates the commission module for operator at the given rate.
func NewCommission(state commissionState, operator [20]byte, rateBps uint32) (*Commission, error) {
	if rateBps > maxCommissionBps {
		return nil, ErrInvalidCommissionRate
	}
	return &Commission{state: state, operator: operator, rateBps: rateBps}, nil
}

// Operator returns the identity allowed to withdraw the balance.
func (c *Commission) Operator() [20]byte { return c.operator }

// RateBps returns the configured fee in basis points.
func (c *Commission) RateBps() uint32 { return c.rateBps }

// Balance returns the undistributed commission.
func (c *Commission) Balance() (*big.Int, error) {
	if c == nil || c.state == nil {
		return nil, errNilState
	}
	bal, err := c.state.MarketCommission()
	if err != nil {
		return nil, err
	}
	return cloneBigInt(bal), nil
}

// Accrue computes the fee owed on a payment, adds it to the balance and
// returns it.
func (c *Commission) Accrue(paid *big.Int) (*big.Int, error) {
	fee := ComputeCommission(paid, c.rateBps)
	bal, err := c.Balance()
	if err != nil {
		return nil, err
	}
	if fee.Sign() == 0 {
		return fee, nil
	}
	if err := c.state.SetMarketCommission(bal.Add(bal, fee)); err != nil {
		return nil, err
	}
	return fee, nil
}

// Withdraw zeroes the balance on behalf of the operator and returns the amount
// that must be paid out. The balance is cleared before any payout happens.
func (c *Commission) Withdraw(caller [20]byte) (*big.Int, error) {
	if c == nil || c.state == nil {
		return nil, errNilState
	}
	if caller != c.operator {
		return nil, ErrNotOwner
	}
	bal, err := c.Balance()
	if err != nil {
		return nil, err
	}
	if bal.Sign() == 0 {
		return nil, ErrZeroBalance
	}
	if err := c.state.SetMarketCommission(big.NewInt(0)); err != nil {
		return nil, err
	}
	return bal, nil
}

package genesis

import (
	"bytes"
	"fmt"
	"math/big"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"nftmarket/crypto"
	"nftmarket/native/assets"
)

// Spec describes the state installed when a node starts on an empty
// database.
type Spec struct {
	Accounts    []AccountSpec    `yaml:"accounts"`
	Collections []CollectionSpec `yaml:"collections"`
}

// AccountSpec credits an initial native balance.
type AccountSpec struct {
	Address string `yaml:"address"`
	Balance string `yaml:"balance"`

	addr    [20]byte
	balance *big.Int
}

// CollectionSpec deploys a collection and optionally mints into it.
type CollectionSpec struct {
	Name  string     `yaml:"name"`
	Kind  string     `yaml:"kind"`
	Owner string     `yaml:"owner"`
	Mints []MintSpec `yaml:"mints"`

	kind  assets.Kind
	owner [20]byte
}

// MintSpec mints either a single-unit token (URI set, ID and Amount empty)
// or a multi-unit balance (ID and Amount set).
type MintSpec struct {
	To     string `yaml:"to"`
	URI    string `yaml:"uri,omitempty"`
	ID     string `yaml:"id,omitempty"`
	Amount string `yaml:"amount,omitempty"`

	to     [20]byte
	id     *big.Int
	amount *big.Int
}

// Addr returns the parsed account address.
func (a *AccountSpec) Addr() [20]byte { return a.addr }

// Amount returns the parsed initial balance.
func (a *AccountSpec) Amount() *big.Int { return cloneOrNil(a.balance) }

// KindValue returns the parsed collection kind.
func (c *CollectionSpec) KindValue() assets.Kind { return c.kind }

// OwnerAddr returns the parsed collection owner.
func (c *CollectionSpec) OwnerAddr() [20]byte { return c.owner }

// Recipient returns the parsed mint recipient.
func (m *MintSpec) Recipient() [20]byte { return m.to }

// TokenID returns the multi-unit token id.
func (m *MintSpec) TokenID() *big.Int { return cloneOrNil(m.id) }

// Units returns the multi-unit amount.
func (m *MintSpec) Units() *big.Int { return cloneOrNil(m.amount) }

func cloneOrNil(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

// Load reads and validates a YAML genesis file.
func Load(path string) (*Spec, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("genesis spec path must be provided")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis spec %q: %w", path, err)
	}
	spec, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid genesis spec %q: %w", path, err)
	}
	return spec, nil
}

// Parse decodes and validates a YAML genesis document.
func Parse(raw []byte) (*Spec, error) {
	var spec Spec
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("decode genesis spec: %w", err)
	}
	if err := spec.validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

func (s *Spec) validate() error {
	seen := make(map[[20]byte]struct{}, len(s.Accounts))
	for i := range s.Accounts {
		acc := &s.Accounts[i]
		addr, err := crypto.ParseAddress(acc.Address)
		if err != nil {
			return fmt.Errorf("accounts[%d]: %w", i, err)
		}
		if _, dup := seen[addr]; dup {
			return fmt.Errorf("accounts[%d]: duplicate address %s", i, acc.Address)
		}
		seen[addr] = struct{}{}
		balance, err := parsePositive(acc.Balance)
		if err != nil {
			return fmt.Errorf("accounts[%d]: balance: %w", i, err)
		}
		acc.addr = addr
		acc.balance = balance
	}
	for i := range s.Collections {
		if err := s.Collections[i].validate(); err != nil {
			return fmt.Errorf("collections[%d]: %w", i, err)
		}
	}
	return nil
}

func (c *CollectionSpec) validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("name must not be empty")
	}
	kind, err := assets.ParseKind(c.Kind)
	if err != nil {
		return err
	}
	owner, err := crypto.ParseAddress(c.Owner)
	if err != nil {
		return fmt.Errorf("owner: %w", err)
	}
	c.kind = kind
	c.owner = owner
	for i := range c.Mints {
		mint := &c.Mints[i]
		to, err := crypto.ParseAddress(mint.To)
		if err != nil {
			return fmt.Errorf("mints[%d]: to: %w", i, err)
		}
		mint.to = to
		switch kind {
		case assets.KindSingleUnit:
			if mint.ID != "" || mint.Amount != "" {
				return fmt.Errorf("mints[%d]: single-unit mints take only a uri", i)
			}
		case assets.KindMultiUnit:
			id, ok := new(big.Int).SetString(strings.TrimSpace(mint.ID), 10)
			if !ok || id.Sign() < 0 {
				return fmt.Errorf("mints[%d]: invalid id %q", i, mint.ID)
			}
			amount, err := parsePositive(mint.Amount)
			if err != nil {
				return fmt.Errorf("mints[%d]: amount: %w", i, err)
			}
			mint.id = id
			mint.amount = amount
		default:
			return fmt.Errorf("mints[%d]: plain collections cannot mint", i)
		}
	}
	return nil
}

func parsePositive(value string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(value), 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	return amount, nil
}

package engine

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/fairbatch/fairbatch/crypto"
	"github.com/fairbatch/fairbatch/protocol"
)

// Custody is the settlement engine's view of the asset ledger. The engine
// directs movements of bonds and settled trade amounts; the custody layer is
// the source of truth for who holds what. Trade debits may drive an account
// negative: balance sufficiency is the custody operator's concern at deposit
// and withdrawal time, the engine only keeps the ledger consistent.
type Custody interface {
	// Escrow moves amount of asset from the owner's free balance into escrow.
	Escrow(owner crypto.PublicKey, asset string, amount decimal.Decimal) error
	// Release moves amount of asset from escrow back to the owner's free balance.
	Release(owner crypto.PublicKey, asset string, amount decimal.Decimal) error
	// Slash forfeits amount of the owner's escrowed asset into the loss pool.
	Slash(owner crypto.PublicKey, asset string, amount decimal.Decimal) error
	// Credit adds amount of asset to the owner's free balance.
	Credit(owner crypto.PublicKey, asset string, amount decimal.Decimal) error
	// Debit removes amount of asset from the owner's free balance.
	Debit(owner crypto.PublicKey, asset string, amount decimal.Decimal) error
	// CollectFee moves amount of asset into the protocol fee account.
	CollectFee(asset string, amount decimal.Decimal) error
}

// Oracle supplies an external reference price for the circuit breaker.
type Oracle interface {
	// ReferencePrice returns the current external price for the pair,
	// quote units per base unit.
	ReferencePrice(pair protocol.TradingPair) (decimal.Decimal, error)
}

// StaticOracle serves a fixed price. Useful for tests and for deployments
// without an external feed, where the TWAP bound alone gates settlement.
type StaticOracle struct {
	mu    sync.RWMutex
	price decimal.Decimal
}

func NewStaticOracle(price decimal.Decimal) *StaticOracle {
	return &StaticOracle{price: price}
}

func (o *StaticOracle) SetPrice(price decimal.Decimal) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.price = price
}

func (o *StaticOracle) ReferencePrice(protocol.TradingPair) (decimal.Decimal, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.price, nil
}

// InMemoryCustody is a process-local asset ledger keyed by owner public key.
// Accounts are created on first touch and free balances may go negative,
// reflecting net positions rather than enforced deposits.
type InMemoryCustody struct {
	mu      sync.Mutex
	free    map[string]map[string]decimal.Decimal
	escrow  map[string]map[string]decimal.Decimal
	pool    map[string]decimal.Decimal
	fees    map[string]decimal.Decimal
}

func NewInMemoryCustody() *InMemoryCustody {
	return &InMemoryCustody{
		free:   make(map[string]map[string]decimal.Decimal),
		escrow: make(map[string]map[string]decimal.Decimal),
		pool:   make(map[string]decimal.Decimal),
		fees:   make(map[string]decimal.Decimal),
	}
}

func account(m map[string]map[string]decimal.Decimal, owner crypto.PublicKey) map[string]decimal.Decimal {
	key := owner.String()
	acct, ok := m[key]
	if !ok {
		acct = make(map[string]decimal.Decimal)
		m[key] = acct
	}
	return acct
}

func (c *InMemoryCustody) Escrow(owner crypto.PublicKey, asset string, amount decimal.Decimal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	free := account(c.free, owner)
	free[asset] = free[asset].Sub(amount)
	esc := account(c.escrow, owner)
	esc[asset] = esc[asset].Add(amount)
	return nil
}

func (c *InMemoryCustody) Release(owner crypto.PublicKey, asset string, amount decimal.Decimal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	esc := account(c.escrow, owner)
	if esc[asset].LessThan(amount) {
		return fmt.Errorf("release %s %s exceeds escrowed %s", amount, asset, esc[asset])
	}
	esc[asset] = esc[asset].Sub(amount)
	free := account(c.free, owner)
	free[asset] = free[asset].Add(amount)
	return nil
}

func (c *InMemoryCustody) Slash(owner crypto.PublicKey, asset string, amount decimal.Decimal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	esc := account(c.escrow, owner)
	if esc[asset].LessThan(amount) {
		return fmt.Errorf("slash %s %s exceeds escrowed %s", amount, asset, esc[asset])
	}
	esc[asset] = esc[asset].Sub(amount)
	c.pool[asset] = c.pool[asset].Add(amount)
	return nil
}

func (c *InMemoryCustody) Credit(owner crypto.PublicKey, asset string, amount decimal.Decimal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	free := account(c.free, owner)
	free[asset] = free[asset].Add(amount)
	return nil
}

func (c *InMemoryCustody) Debit(owner crypto.PublicKey, asset string, amount decimal.Decimal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	free := account(c.free, owner)
	free[asset] = free[asset].Sub(amount)
	return nil
}

func (c *InMemoryCustody) CollectFee(asset string, amount decimal.Decimal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fees[asset] = c.fees[asset].Add(amount)
	return nil
}

// Balance returns the owner's free balance of asset.
func (c *InMemoryCustody) Balance(owner crypto.PublicKey, asset string) decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return account(c.free, owner)[asset]
}

// Escrowed returns the owner's escrowed balance of asset.
func (c *InMemoryCustody) Escrowed(owner crypto.PublicKey, asset string) decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return account(c.escrow, owner)[asset]
}

// LossPool returns the accumulated forfeited bonds of asset.
func (c *InMemoryCustody) LossPool(asset string) decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pool[asset]
}

// Fees returns the accumulated protocol fees of asset.
func (c *InMemoryCustody) Fees(asset string) decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fees[asset]
}

// DenyList is an in-memory compliance deny-list keyed by owner public key.
// It satisfies aggregator.Compliance.
type DenyList struct {
	mu     sync.RWMutex
	denied map[string]struct{}
}

func NewDenyList() *DenyList {
	return &DenyList{denied: make(map[string]struct{})}
}

func (d *DenyList) Deny(owner crypto.PublicKey) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.denied[owner.String()] = struct{}{}
}

func (d *DenyList) Allow(owner crypto.PublicKey) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.denied, owner.String())
}

func (d *DenyList) Denied(owner crypto.PublicKey) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.denied[owner.String()]
	return ok
}

// Package catalog owns the product list: every command mutates the in-memory
// state and then persists the full snapshot.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"slices"
	"strings"
	"sync"

	"github.com/diewo77/bar-stock/internal/models"
	"github.com/diewo77/bar-stock/internal/store"
	"github.com/google/uuid"
)

var (
	ErrNotFound             = errors.New("product_not_found")
	ErrConfirmationRequired = errors.New("confirmation_required")
)

// DefaultUnit is used for new products when none is given.
const DefaultUnit = "Bouteille"

// Catalog is safe for concurrent use.
type Catalog struct {
	kv store.KV

	mu       sync.RWMutex
	products []models.Product
	showSKU  bool
}

func New(kv store.KV) *Catalog {
	return &Catalog{kv: kv}
}

// snapshotProduct mirrors models.Product with an optional printQty so that
// snapshots written before the field existed can be told apart.
type snapshotProduct struct {
	models.Product
	PrintQty *float64 `json:"printQty"`
}

// Load replaces the in-memory state with the persisted snapshot.
// Missing or unreadable data leaves an empty catalog.
func (c *Catalog) Load(ctx context.Context) {
	raw := store.Load(ctx, c.kv, store.KeyProducts, []snapshotProduct{})
	products := make([]models.Product, 0, len(raw))
	for _, sp := range raw {
		p := sp.Product
		p.PrintQty = 0
		if sp.PrintQty != nil {
			p.PrintQty = coerceQty(*sp.PrintQty)
		}
		products = append(products, p)
	}
	showSKU := store.Load(ctx, c.kv, store.KeyShowSKU, false)

	c.mu.Lock()
	c.products = products
	c.showSKU = showSKU
	c.mu.Unlock()
}

// persist must be called with c.mu held. Failures are logged only.
func (c *Catalog) persist(ctx context.Context) {
	if err := store.Save(ctx, c.kv, store.KeyProducts, c.products); err != nil {
		log.Printf("[catalog] persist failed: %v", err)
	}
}

// List returns a copy of every product, in insertion order.
func (c *Catalog) List() []models.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return clone(c.products)
}

// Get returns a copy of the product with the given id.
func (c *Catalog) Get(id string) (models.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i := c.index(id)
	if i < 0 {
		return models.Product{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return cloneOne(c.products[i]), nil
}

// Upsert replaces the product with the same id or appends it. An empty id gets a
// fresh one. The stored copy is returned.
func (c *Catalog) Upsert(ctx context.Context, p models.Product) models.Product {
	p.PrintQty = coerceQty(p.PrintQty)
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if strings.TrimSpace(p.Unit) == "" {
		p.Unit = DefaultUnit
	}
	if p.Stock < 0 {
		p.Stock = 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.index(p.ID); i >= 0 {
		c.products[i] = p
	} else {
		c.products = append(c.products, p)
	}
	c.persist(ctx)
	return cloneOne(p)
}

// Delete removes a product. Invoices referencing it are left as they are.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	c.products = slices.Delete(c.products, i, i+1)
	c.persist(ctx)
	return nil
}

// Increment adds by (1 when by <= 0) to the stock.
func (c *Catalog) Increment(ctx context.Context, id string, by int) (models.Product, error) {
	return c.step(ctx, id, step(by))
}

// Decrement removes by (1 when by <= 0) from the stock, never going below zero.
func (c *Catalog) Decrement(ctx context.Context, id string, by int) (models.Product, error) {
	return c.step(ctx, id, -step(by))
}

func step(by int) int {
	if by <= 0 {
		return 1
	}
	return by
}

func (c *Catalog) step(ctx context.Context, id string, delta int) (models.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.index(id)
	if i < 0 {
		return models.Product{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	c.products[i].Stock = max(0, c.products[i].Stock+delta)
	c.persist(ctx)
	return cloneOne(c.products[i]), nil
}

// SetPrintQty stores the desired order quantity. Invalid values become 0.
func (c *Catalog) SetPrintQty(ctx context.Context, id string, qty float64) (models.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.index(id)
	if i < 0 {
		return models.Product{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	c.products[i].PrintQty = coerceQty(qty)
	c.persist(ctx)
	return cloneOne(c.products[i]), nil
}

// ResetAll sets stock to 0 and order multiple to 1 on every product. It is
// irreversible and refuses to run unless confirmed.
func (c *Catalog) ResetAll(ctx context.Context, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.products {
		c.products[i].Stock = 0
		c.products[i].OrderMultiple = 1
	}
	c.persist(ctx)
	return nil
}

// LowStock returns the products whose stock is under their floor.
func (c *Catalog) LowStock() []models.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []models.Product
	for _, p := range c.products {
		if p.IsLow() {
			out = append(out, cloneOne(p))
		}
	}
	return out
}

// Update runs fn on a copy of the whole list and, if fn succeeds, stores the
// result in one write. fn must not keep the slice.
func (c *Catalog) Update(ctx context.Context, fn func([]models.Product) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := clone(c.products)
	if err := fn(next); err != nil {
		return err
	}
	for i := range next {
		if next[i].Stock < 0 {
			next[i].Stock = 0
		}
	}
	c.products = next
	c.persist(ctx)
	return nil
}

// AdjustStock applies signed deltas keyed by product id, clamping at zero.
// Unknown ids are ignored.
func (c *Catalog) AdjustStock(ctx context.Context, deltas map[string]int) {
	_ = c.Update(ctx, func(ps []models.Product) error {
		for i := range ps {
			if d, ok := deltas[ps[i].ID]; ok {
				ps[i].Stock = max(0, ps[i].Stock+d)
			}
		}
		return nil
	})
}

// ShowSKU reports whether the SKU column is displayed and searched.
func (c *Catalog) ShowSKU() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.showSKU
}

func (c *Catalog) SetShowSKU(ctx context.Context, show bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.showSKU = show
	if err := store.Save(ctx, c.kv, store.KeyShowSKU, show); err != nil {
		log.Printf("[catalog] persist showSku failed: %v", err)
	}
}

func (c *Catalog) index(id string) int {
	return slices.IndexFunc(c.products, func(p models.Product) bool { return p.ID == id })
}

func coerceQty(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func cloneOne(p models.Product) models.Product {
	if p.UnitPrice != nil {
		p.UnitPrice = models.Float(*p.UnitPrice)
	}
	return p
}

func clone(ps []models.Product) []models.Product {
	out := make([]models.Product, len(ps))
	for i, p := range ps {
		out[i] = cloneOne(p)
	}
	return out
}

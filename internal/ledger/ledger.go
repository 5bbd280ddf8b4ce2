// Package ledger owns the invoice list and the builders for new invoices.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/diewo77/bar-stock/internal/models"
	"github.com/diewo77/bar-stock/internal/store"
	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("invoice_not_found")
	ErrNoConfiguredLines = errors.New("no_configured_lines")
)

// Ledger is safe for concurrent use. Invoices are kept newest first.
type Ledger struct {
	kv store.KV

	mu       sync.RWMutex
	invoices []models.Invoice
}

func New(kv store.KV) *Ledger {
	return &Ledger{kv: kv}
}

// Load replaces the in-memory list with the persisted snapshot. Invoices without
// a known type cannot be shown or written back, so they are dropped.
func (l *Ledger) Load(ctx context.Context) {
	loaded := store.Load(ctx, l.kv, store.KeyInvoices, []models.Invoice{})
	invoices := make([]models.Invoice, 0, len(loaded))
	for _, inv := range loaded {
		if _, err := models.ParseInvoiceType(string(inv.Type)); err != nil {
			log.Printf("[ledger] dropping invoice %q from snapshot: %v", inv.ID, err)
			continue
		}
		if inv.Lines == nil {
			inv.Lines = []models.InvoiceLine{}
		}
		invoices = append(invoices, inv)
	}
	l.mu.Lock()
	l.invoices = invoices
	l.mu.Unlock()
}

func (l *Ledger) persist(ctx context.Context) {
	if err := store.Save(ctx, l.kv, store.KeyInvoices, l.invoices); err != nil {
		log.Printf("[ledger] persist failed: %v", err)
	}
}

// List returns deep copies of every invoice.
func (l *Ledger) List() []models.Invoice {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.Invoice, len(l.invoices))
	for i := range l.invoices {
		out[i] = l.invoices[i].Clone()
	}
	return out
}

// Get returns a deep copy of one invoice.
func (l *Ledger) Get(id string) (models.Invoice, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i := l.index(id)
	if i < 0 {
		return models.Invoice{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return l.invoices[i].Clone(), nil
}

// Save replaces the invoice with the same id, keeping its position, or puts a
// new one at the top of the list. AppliedAt is owned by the ledger: a saved draft
// never clears or forges it.
func (l *Ledger) Save(ctx context.Context, inv models.Invoice) models.Invoice {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	if inv.Lines == nil {
		inv.Lines = []models.InvoiceLine{}
	}
	for k := range inv.Lines {
		if inv.Lines[k].ID == "" {
			inv.Lines[k].ID = uuid.NewString()
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	saved := inv.Clone()
	if i := l.index(inv.ID); i >= 0 {
		saved.AppliedAt = l.invoices[i].AppliedAt
		l.invoices[i] = saved
	} else {
		saved.AppliedAt = nil
		l.invoices = slices.Insert(l.invoices, 0, saved)
	}
	l.persist(ctx)
	return saved.Clone()
}

func (l *Ledger) Delete(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	l.invoices = slices.Delete(l.invoices, i, i+1)
	l.persist(ctx)
	return nil
}

// MarkApplied records when the invoice was applied to stock.
func (l *Ledger) MarkApplied(ctx context.Context, id string, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	l.invoices[i].AppliedAt = &at
	l.persist(ctx)
	return nil
}

func (l *Ledger) index(id string) int {
	return slices.IndexFunc(l.invoices, func(inv models.Invoice) bool { return inv.ID == id })
}

// Reopen returns an editable copy of a saved invoice.
func (l *Ledger) Reopen(id string) (models.Invoice, error) {
	return l.Get(id)
}

// ConfiguredNote is the note put on invoices generated from desired quantities.
const ConfiguredNote = "Commande basée sur la configuration (Qté voulue)."

// FromConfiguredQuantities builds a restock order with one line per product whose
// desired quantity is positive. The invoice is not saved.
func FromConfiguredQuantities(products []models.Product, now time.Time) (models.Invoice, error) {
	var lines []models.InvoiceLine
	for i := range products {
		p := &products[i]
		if p.PrintQty <= 0 {
			continue
		}
		line := models.InvoiceLine{
			ID:        uuid.NewString(),
			ProductID: p.ID,
			Label:     p.Label(),
			Qty:       p.PrintQty,
			Unit:      p.Unit,
		}
		if p.UnitPrice != nil {
			line.UnitPrice = models.Float(*p.UnitPrice)
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return models.Invoice{}, ErrNoConfiguredLines
	}
	return models.Invoice{
		ID:           uuid.NewString(),
		Type:         models.InvoiceTypeRestock,
		Date:         now,
		Lines:        lines,
		Notes:        ConfiguredNote,
		AffectsStock: true,
	}, nil
}

// NewBlank starts a catalog-only invoice.
func NewBlank(now time.Time) models.Invoice {
	return newEmpty(models.InvoiceTypeBlank, now)
}

// NewSale starts a sale invoice.
func NewSale(now time.Time) models.Invoice {
	return newEmpty(models.InvoiceTypeSale, now)
}

func newEmpty(t models.InvoiceType, now time.Time) models.Invoice {
	return models.Invoice{
		ID:           uuid.NewString(),
		Type:         t,
		Date:         now,
		Lines:        []models.InvoiceLine{},
		AffectsStock: true,
	}
}

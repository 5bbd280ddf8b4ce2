package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/diewo77/bar-stock/internal/catalog"
	"github.com/diewo77/bar-stock/internal/ledger"
	"github.com/diewo77/bar-stock/internal/models"
)

// ErrAlreadyApplied is returned when an invoice was applied before and the caller
// did not ask to apply it again.
var ErrAlreadyApplied = errors.New("already_applied")

// ApplyInvoice applies the invoice lines to products as stock deltas: restock adds,
// any other type subtracts, stock never goes below zero. Lines without a product,
// or pointing at a product that no longer exists, are skipped. Fractional
// quantities are rounded half away from zero. products is modified in place.
func ApplyInvoice(inv *models.Invoice, products []models.Product) {
	if !inv.AffectsStock {
		return
	}
	index := make(map[string]int, len(products))
	for i := range products {
		index[products[i].ID] = i
	}
	sign := inv.Type.StockSign()
	for _, l := range inv.Lines {
		if !l.HasProduct() {
			continue
		}
		i, ok := index[l.ProductID]
		if !ok {
			continue
		}
		delta := sign * int(math.Round(l.Qty))
		products[i].Stock = max(0, products[i].Stock+delta)
	}
}

// StockService applies saved invoices to the catalog. Apply calls are serialized
// so the applied marker is checked and set in one step.
type StockService struct {
	mu      sync.Mutex
	catalog *catalog.Catalog
	ledger  *ledger.Ledger
	now     func() time.Time
}

func NewStockService(c *catalog.Catalog, l *ledger.Ledger) *StockService {
	return &StockService{catalog: c, ledger: l, now: time.Now}
}

// Apply applies a saved invoice to the catalog once. A second call fails with
// ErrAlreadyApplied unless force is set, in which case the deltas are applied
// again. Invoices that do not affect stock are left untouched.
func (s *StockService) Apply(ctx context.Context, invoiceID string, force bool) (models.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, err := s.ledger.Get(invoiceID)
	if err != nil {
		return models.Invoice{}, err
	}
	if !inv.AffectsStock {
		return inv, nil
	}
	if inv.Applied() && !force {
		return inv, fmt.Errorf("%w: %s", ErrAlreadyApplied, invoiceID)
	}
	if err := s.catalog.Update(ctx, func(ps []models.Product) error {
		ApplyInvoice(&inv, ps)
		return nil
	}); err != nil {
		return inv, err
	}
	at := s.now()
	if err := s.ledger.MarkApplied(ctx, invoiceID, at); err != nil {
		return inv, err
	}
	if force && inv.Applied() {
		log.Printf("[stock] invoice %s applied again (forced)", invoiceID)
	}
	inv.AppliedAt = &at
	return inv, nil
}

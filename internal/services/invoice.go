package services

import (
	"github.com/diewo77/bar-stock/internal/models"
	"github.com/shopspring/decimal"
)

// VATRate is the flat rate used for the TTC estimate.
var VATRate = decimal.NewFromInt(20).Div(decimal.NewFromInt(100))

type InvoiceService struct{}

func NewInvoiceService() *InvoiceService {
	return &InvoiceService{}
}

// ComputeTotals calculates HT, TVA (flat estimate) and TTC for an invoice.
// Lines without a price count as 0.
func (s *InvoiceService) ComputeTotals(inv *models.Invoice) (ht, tva, ttc decimal.Decimal) {
	ht = decimal.Zero
	for _, l := range inv.Lines {
		if l.UnitPrice == nil {
			continue
		}
		ht = ht.Add(decimal.NewFromFloat(*l.UnitPrice).Mul(decimal.NewFromFloat(l.Qty)))
	}
	ht = ht.Round(2)
	tva = ht.Mul(VATRate).Round(2)
	ttc = ht.Add(tva)
	return
}

// GetRevenue sums the HT total of every sale invoice.
func (s *InvoiceService) GetRevenue(invoices []models.Invoice) decimal.Decimal {
	total := decimal.Zero
	for i := range invoices {
		if invoices[i].Type != models.InvoiceTypeSale {
			continue
		}
		ht, _, _ := s.ComputeTotals(&invoices[i])
		total = total.Add(ht)
	}
	return total
}

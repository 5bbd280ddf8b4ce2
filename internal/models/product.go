package models

import "strings"

// Product is one catalog entry. JSON names follow the snapshot layout stored under
// the "bar_products" key so older snapshots keep loading.
type Product struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Brand         string   `json:"brand,omitempty"`
	Unit          string   `json:"unit"` // ex: bouteille, carton, fût
	SKU           string   `json:"sku,omitempty"`
	Stock         int      `json:"stock"`
	Floor         int      `json:"floor"` // seuil plancher
	OrderMultiple int      `json:"orderMultiple"`
	UnitPrice     *float64 `json:"unitPrice,omitempty"` // HT
	PrintQty      float64  `json:"printQty"`            // quantité voulue pour la commande
	Image         string   `json:"image,omitempty"`     // URL or data URL
}

// Label is the display label copied onto invoice lines: "Brand Name" or just "Name".
func (p *Product) Label() string {
	b := strings.TrimSpace(p.Brand)
	if b == "" {
		return p.Name
	}
	return b + " " + p.Name
}

// OptionLabel is the label used in catalog pickers.
func (p *Product) OptionLabel() string {
	if strings.TrimSpace(p.Brand) == "" {
		return p.Name
	}
	return p.Brand + " — " + p.Name
}

// IsLow reports whether the stock is below the reorder floor.
func (p *Product) IsLow() bool {
	return p.Stock < p.Floor
}

// Price returns the unit price or 0 when none is set.
func (p *Product) Price() float64 {
	if p.UnitPrice == nil {
		return 0
	}
	return *p.UnitPrice
}

// Float is a small helper for optional numeric fields.
func Float(v float64) *float64 { return &v }

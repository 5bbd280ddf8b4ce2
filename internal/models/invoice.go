package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// InvoiceType is the closed set of invoice kinds.
type InvoiceType string

const (
	InvoiceTypeRestock InvoiceType = "restock"
	InvoiceTypeSale    InvoiceType = "sale"
	InvoiceTypeBlank   InvoiceType = "blank"
)

// ErrInvalidInvoiceType is returned when a value outside the union is parsed.
var ErrInvalidInvoiceType = errors.New("invalid_invoice_type")

// InvoiceTypes lists every member, in the order shown by the type selector.
var InvoiceTypes = []InvoiceType{InvoiceTypeSale, InvoiceTypeRestock, InvoiceTypeBlank}

// ParseInvoiceType maps a raw form or JSON value to an InvoiceType.
func ParseInvoiceType(s string) (InvoiceType, error) {
	switch InvoiceType(s) {
	case InvoiceTypeRestock, InvoiceTypeSale, InvoiceTypeBlank:
		return InvoiceType(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidInvoiceType, s)
}

// StockSign is +1 when the invoice brings goods in, -1 when it takes them out.
func (t InvoiceType) StockSign() int {
	switch t {
	case InvoiceTypeRestock:
		return 1
	case InvoiceTypeSale, InvoiceTypeBlank:
		return -1
	}
	panic("unhandled invoice type " + string(t))
}

// AllowsFreeText reports whether line labels may be typed freely.
// Blank invoices only accept catalog products.
func (t InvoiceType) AllowsFreeText() bool {
	switch t {
	case InvoiceTypeRestock, InvoiceTypeSale:
		return true
	case InvoiceTypeBlank:
		return false
	}
	panic("unhandled invoice type " + string(t))
}

// Label is the short badge label.
func (t InvoiceType) Label() string {
	switch t {
	case InvoiceTypeRestock:
		return "Réassort"
	case InvoiceTypeSale:
		return "Vente"
	case InvoiceTypeBlank:
		return "Vierge (catalogue)"
	}
	panic("unhandled invoice type " + string(t))
}

// Title is the editor dialog title.
func (t InvoiceType) Title() string {
	switch t {
	case InvoiceTypeRestock:
		return "Commande / Réassort"
	case InvoiceTypeSale:
		return "Facture de vente"
	case InvoiceTypeBlank:
		return "Facture vierge (catalogue seulement)"
	}
	panic("unhandled invoice type " + string(t))
}

// PrintLabel is the type shown in the printed header.
func (t InvoiceType) PrintLabel() string {
	switch t {
	case InvoiceTypeRestock:
		return "Réassort"
	case InvoiceTypeSale:
		return "Vente"
	case InvoiceTypeBlank:
		return "Vierge"
	}
	panic("unhandled invoice type " + string(t))
}

func (t InvoiceType) MarshalJSON() ([]byte, error) {
	if _, err := ParseInvoiceType(string(t)); err != nil {
		return nil, err
	}
	return json.Marshal(string(t))
}

func (t *InvoiceType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseInvoiceType(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Invoice is a sale, a restock order or a catalog-only (blank) sheet.
type Invoice struct {
	ID           string        `json:"id"`
	Type         InvoiceType   `json:"type"`
	Date         time.Time     `json:"date"`
	Lines        []InvoiceLine `json:"lines"`
	Notes        string        `json:"notes,omitempty"`
	AffectsStock bool          `json:"affectsStock"`
	// AppliedAt is set once the lines were applied to the catalog stock.
	AppliedAt *time.Time `json:"appliedAt,omitempty"`
}

// InvoiceLine weakly references a product by id: the product may since have been
// deleted, in which case the line keeps its copied label/unit/price.
type InvoiceLine struct {
	ID        string   `json:"id"`
	ProductID string   `json:"productId,omitempty"` // empty => free-form line
	Label     string   `json:"label"`
	Qty       float64  `json:"qty"`
	Unit      string   `json:"unit"`
	UnitPrice *float64 `json:"unitPrice,omitempty"` // HT
}

// HasProduct reports whether the line references a catalog product.
func (l *InvoiceLine) HasProduct() bool { return l.ProductID != "" }

// Amount is qty * unit price, a missing price counting as 0.
func (l *InvoiceLine) Amount() float64 {
	if l.UnitPrice == nil {
		return 0
	}
	return *l.UnitPrice * l.Qty
}

// PrintableLines returns the lines with a strictly positive quantity.
func (i *Invoice) PrintableLines() []InvoiceLine {
	out := make([]InvoiceLine, 0, len(i.Lines))
	for _, l := range i.Lines {
		if l.Qty > 0 {
			out = append(out, l)
		}
	}
	return out
}

// Applied reports whether the invoice was already applied to stock.
func (i *Invoice) Applied() bool { return i.AppliedAt != nil }

// Clone returns a deep copy, so drafts never alias ledger state.
func (i *Invoice) Clone() Invoice {
	c := *i
	c.Lines = make([]InvoiceLine, len(i.Lines))
	for k, l := range i.Lines {
		if l.UnitPrice != nil {
			l.UnitPrice = Float(*l.UnitPrice)
		}
		c.Lines[k] = l
	}
	if i.AppliedAt != nil {
		at := *i.AppliedAt
		c.AppliedAt = &at
	}
	return c
}

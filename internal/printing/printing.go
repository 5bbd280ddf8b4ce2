// Package printing turns an invoice into a supplier-facing order sheet.
// Neither layout shows prices.
package printing

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"strconv"
	"time"

	"github.com/diewo77/bar-stock/internal/config"
	"github.com/diewo77/bar-stock/internal/models"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Layout selects the print template.
type Layout string

const (
	Detailed Layout = "detailed"
	Compact  Layout = "compact"
)

var (
	ErrUnknownLayout = errors.New("unknown_layout")
	// ErrViewerUnavailable means the document could not be shown (blocked window).
	ErrViewerUnavailable = errors.New("print_blocked")
)

// BlockedMessage is what the user is told when the viewer cannot be opened.
const BlockedMessage = "Impossible d’ouvrir la fenêtre d’impression."

// ParseLayout defaults to Detailed on empty input.
func ParseLayout(s string) (Layout, error) {
	switch Layout(s) {
	case "", Detailed:
		return Detailed, nil
	case Compact:
		return Compact, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLayout, s)
}

// Document is a standalone printable file.
type Document struct {
	Title       string
	ContentType string
	Body        []byte
}

// Viewer shows a document in a new viewing context.
type Viewer interface {
	Open(ctx context.Context, doc Document) error
}

type Renderer struct {
	shop      config.Shop
	loc       *time.Location
	templates map[Layout]*template.Template
	// AutoPrint embeds the script that opens the print dialog on load.
	AutoPrint bool
}

// NewRenderer parses the embedded layouts. Dates are shown in loc (time.Local when nil).
func NewRenderer(shop config.Shop, loc *time.Location) (*Renderer, error) {
	if loc == nil {
		loc = time.Local
	}
	funcs := template.FuncMap{"qty": FormatQty}
	r := &Renderer{shop: shop, loc: loc, templates: map[Layout]*template.Template{}, AutoPrint: true}
	for layout, file := range map[Layout]string{Detailed: "templates/detailed.html", Compact: "templates/compact.html"} {
		t, err := template.New(string(layout)).Funcs(funcs).ParseFS(templatesFS, file)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		r.templates[layout] = t.Lookup(file[len("templates/"):])
	}
	return r, nil
}

type page struct {
	Invoice   *models.Invoice
	Lines     []models.InvoiceLine
	Date      string
	Shop      config.Shop
	AutoPrint bool
}

// Render produces the HTML document. Lines with a quantity <= 0 are left out and
// every text field is escaped.
func (r *Renderer) Render(inv *models.Invoice, layout Layout) (Document, error) {
	t, ok := r.templates[layout]
	if !ok {
		return Document{}, fmt.Errorf("%w: %q", ErrUnknownLayout, layout)
	}
	var buf bytes.Buffer
	err := t.Execute(&buf, page{
		Invoice:   inv,
		Lines:     inv.PrintableLines(),
		Date:      r.FormatDate(inv.Date),
		Shop:      r.shop,
		AutoPrint: r.AutoPrint,
	})
	if err != nil {
		return Document{}, fmt.Errorf("render %s: %w", layout, err)
	}
	title := "Demande grossiste - " + inv.ID
	if layout == Compact {
		title = "Demande grossiste (compact) - " + inv.ID
	}
	return Document{Title: title, ContentType: "text/html; charset=utf-8", Body: buf.Bytes()}, nil
}

// Print renders inv and hands it to v. A missing or failing viewer yields
// ErrViewerUnavailable; nothing is retried.
func (r *Renderer) Print(ctx context.Context, inv *models.Invoice, layout Layout, v Viewer) error {
	doc, err := r.Render(inv, layout)
	if err != nil {
		return err
	}
	if v == nil {
		return ErrViewerUnavailable
	}
	if err := v.Open(ctx, doc); err != nil {
		if errors.Is(err, ErrViewerUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrViewerUnavailable, err)
	}
	return nil
}

// FormatDate renders dd/mm/yyyy hh:mm.
func (r *Renderer) FormatDate(t time.Time) string {
	return t.In(r.loc).Format("02/01/2006 15:04")
}

// FormatQty prints the shortest exact representation (5, 2.5, 0.25).
func FormatQty(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

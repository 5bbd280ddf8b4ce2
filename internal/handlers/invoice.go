package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/diewo77/bar-stock/internal/catalog"
	"github.com/diewo77/bar-stock/internal/config"
	"github.com/diewo77/bar-stock/internal/httpx"
	"github.com/diewo77/bar-stock/internal/ledger"
	"github.com/diewo77/bar-stock/internal/middleware"
	"github.com/diewo77/bar-stock/internal/models"
	"github.com/diewo77/bar-stock/internal/printing"
	"github.com/diewo77/bar-stock/internal/search"
	"github.com/diewo77/bar-stock/internal/services"
	"github.com/diewo77/bar-stock/internal/validation"
	"github.com/diewo77/bar-stock/internal/view"
	"github.com/shopspring/decimal"
)

var (
	errUnknownOp = errors.New("unknown_op")
	errBadDate   = errors.New("bad_date")
)

type InvoiceHandler struct {
	Ledger  *ledger.Ledger
	Drafts  *ledger.Drafts
	Catalog *catalog.Catalog
	Stock   *services.StockService
	Totals  *services.InvoiceService
	Printer *printing.Renderer
	Shop    config.Shop
	Now     func() time.Time
}

func NewInvoiceHandler(l *ledger.Ledger, d *ledger.Drafts, c *catalog.Catalog, s *services.StockService, t *services.InvoiceService, p *printing.Renderer, shop config.Shop) *InvoiceHandler {
	return &InvoiceHandler{Ledger: l, Drafts: d, Catalog: c, Stock: s, Totals: t, Printer: p, Shop: shop, Now: time.Now}
}

// invoiceRow is an invoice with its computed totals.
type invoiceRow struct {
	models.Invoice
	TotalHT  decimal.Decimal `json:"totalHT"`
	TVA      decimal.Decimal `json:"tva"`
	TotalTTC decimal.Decimal `json:"totalTTC"`
}

func (h *InvoiceHandler) row(inv models.Invoice) invoiceRow {
	ht, tva, ttc := h.Totals.ComputeTotals(&inv)
	return invoiceRow{Invoice: inv, TotalHT: ht, TVA: tva, TotalTTC: ttc}
}

func editURL(id string) string {
	return "/invoices/edit?id=" + url.QueryEscape(id)
}

// invoiceError maps domain errors to an HTTP status and error code.
func invoiceError(err error) (int, string) {
	switch {
	case errors.Is(err, ledger.ErrNotFound), errors.Is(err, ledger.ErrDraftNotFound):
		return http.StatusNotFound, "invoice_not_found"
	case errors.Is(err, ledger.ErrLineNotFound):
		return http.StatusNotFound, "line_not_found"
	case errors.Is(err, ledger.ErrCatalogOnly):
		return http.StatusConflict, "catalog_only"
	case errors.Is(err, ledger.ErrUnknownProduct):
		return http.StatusUnprocessableEntity, "unknown_product"
	case errors.Is(err, services.ErrAlreadyApplied):
		return http.StatusConflict, "already_applied"
	case errors.Is(err, models.ErrInvalidInvoiceType), errors.Is(err, errUnknownOp), errors.Is(err, errBadDate):
		return http.StatusBadRequest, "invalid_value"
	}
	return http.StatusInternalServerError, "internal_error"
}

// List renders the ledger page or returns every invoice with its totals.
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	invoices := h.Ledger.List()
	rows := make([]invoiceRow, 0, len(invoices))
	for _, inv := range invoices {
		rows = append(rows, h.row(inv))
	}
	if !httpx.WantsHTML(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"items": rows, "revenue": h.Totals.GetRevenue(invoices)})
		return
	}
	data := map[string]any{
		"Shop":     h.Shop,
		"Invoices": rows,
		"Revenue":  h.Totals.GetRevenue(invoices),
		"Flash":    middleware.TakeFlash(w, r),
	}
	if err := view.Render(w, r, "invoices.html", data); err != nil {
		if _, werr := w.Write([]byte("template render error:" + err.Error())); werr != nil {
			_ = werr
		}
	}
}

// New opens an editor on a fresh invoice: kind=config (from the desired
// quantities), blank (catalog only) or sale. Nothing is saved yet.
func (h *InvoiceHandler) New(w http.ResponseWriter, r *http.Request) {
	now := h.Now()
	var inv models.Invoice
	switch r.FormValue("kind") {
	case "config":
		var err error
		inv, err = ledger.FromConfiguredQuantities(h.Catalog.List(), now)
		if err != nil {
			fail(w, r, http.StatusUnprocessableEntity, "no_configured_lines", backTo(r, "/stock"))
			return
		}
	case "blank":
		inv = ledger.NewBlank(now)
	case "sale":
		inv = ledger.NewSale(now)
	default:
		fail(w, r, http.StatusBadRequest, "invalid_value", backTo(r, "/invoices"))
		return
	}
	inv = h.Drafts.Open(inv)
	done(w, r, "", editURL(inv.ID), http.StatusCreated, inv)
}

// ensureDraft opens an editor on a saved invoice unless one is already open.
func (h *InvoiceHandler) ensureDraft(id string) error {
	if _, ok := h.Drafts.Get(id); ok {
		return nil
	}
	inv, err := h.Ledger.Reopen(id)
	if err != nil {
		return err
	}
	h.Drafts.Open(inv)
	return nil
}

// current is the invoice as the user sees it: the open draft, else the saved one.
func (h *InvoiceHandler) current(id string) (models.Invoice, error) {
	if inv, ok := h.Drafts.Get(id); ok {
		return inv, nil
	}
	return h.Ledger.Get(id)
}

// Edit renders the invoice editor.
func (h *InvoiceHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id := idParam(r)
	if err := h.ensureDraft(id); err != nil {
		status, code := invoiceError(err)
		fail(w, r, status, code, "/invoices")
		return
	}
	inv, _ := h.Drafts.Get(id)
	if !httpx.WantsHTML(r) {
		httpx.JSON(w, http.StatusOK, h.row(inv))
		return
	}
	h.renderEditor(w, r, inv)
}

func (h *InvoiceHandler) renderEditor(w http.ResponseWriter, r *http.Request, inv models.Invoice) {
	products := search.View(h.Catalog.List(), search.Query{Key: search.SortName, Dir: search.Asc})
	known := make(map[string]models.Product, len(products))
	for _, p := range products {
		known[p.ID] = p
	}
	_, saveErr := h.Ledger.Get(inv.ID)
	data := map[string]any{
		"Shop":        h.Shop,
		"Invoice":     h.row(inv),
		"Title":       inv.Type.Title(),
		"Types":       models.InvoiceTypes,
		"Products":    products,
		"Known":       known,
		"CanFreeEdit": inv.Type.AllowsFreeText(),
		"Saved":       saveErr == nil,
		"Flash":       middleware.TakeFlash(w, r),
	}
	if err := view.Render(w, r, "invoice_edit.html", data); err != nil {
		if _, werr := w.Write([]byte("template render error:" + err.Error())); werr != nil {
			_ = werr
		}
	}
}

// lineOp is one editor command.
type lineOp struct {
	ID           string   `json:"id"`
	Op           string   `json:"op"`
	Line         string   `json:"line"`
	Label        string   `json:"label"`
	ProductID    string   `json:"productId"`
	Qty          *float64 `json:"qty"`
	Delta        float64  `json:"delta"`
	Unit         string   `json:"unit"`
	UnitPrice    *float64 `json:"unitPrice"`
	Type         string   `json:"type"`
	Date         string   `json:"date"`
	Notes        string   `json:"notes"`
	AffectsStock *bool    `json:"affectsStock"`
}

func (op lineOp) apply(d *ledger.Draft, products ledger.ProductLookup) error {
	switch op.Op {
	case "", "sync":
		return nil
	case "add":
		d.AddLine()
		return nil
	case "remove":
		return d.RemoveLine(op.Line)
	case "inc":
		return d.StepQty(op.Line, 1)
	case "dec":
		return d.StepQty(op.Line, -1)
	case "step":
		return d.StepQty(op.Line, op.Delta)
	case "label":
		return d.SetLabel(op.Line, op.Label)
	case "product":
		return d.SelectProduct(op.Line, op.ProductID, products)
	case "qty":
		if op.Qty == nil {
			return d.SetQty(op.Line, 0)
		}
		return d.SetQty(op.Line, *op.Qty)
	case "unit":
		return d.SetUnit(op.Line, op.Unit)
	case "price":
		if op.UnitPrice == nil {
			return d.SetUnitPrice(op.Line, 0)
		}
		return d.SetUnitPrice(op.Line, *op.UnitPrice)
	case "type":
		t, err := models.ParseInvoiceType(op.Type)
		if err != nil {
			return err
		}
		d.SetType(t)
		return nil
	case "date":
		at, err := parseDate(op.Date)
		if err != nil {
			return err
		}
		d.SetDate(at)
		return nil
	case "notes":
		d.SetNotes(op.Notes)
		return nil
	case "affects":
		d.SetAffectsStock(op.AffectsStock != nil && *op.AffectsStock)
		return nil
	}
	return fmt.Errorf("%w: %s", errUnknownOp, op.Op)
}

func parseDate(s string) (time.Time, error) {
	if at, err := time.Parse(time.RFC3339, s); err == nil {
		return at, nil
	}
	at, err := view.ParseDateInput(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", errBadDate, s)
	}
	return at, nil
}

// applyForm copies the whole editor form (header fields and every line) onto the
// draft. It only runs when the form carries full=1.
func (h *InvoiceHandler) applyForm(d *ledger.Draft, r *http.Request) error {
	if r.FormValue("full") != "1" {
		return nil
	}
	if raw := r.FormValue("type"); raw != "" {
		t, err := models.ParseInvoiceType(raw)
		if err != nil {
			return err
		}
		d.SetType(t)
	}
	if raw := r.FormValue("date"); raw != "" {
		if at, err := parseDate(raw); err == nil {
			d.SetDate(at)
		}
	}
	d.SetNotes(r.FormValue("notes"))
	d.SetAffectsStock(formBool(r, "affectsStock"))

	// at returns the i-th value of a repeated line field; absent fields leave the line alone.
	at := func(name string, i int) (string, bool) {
		vals := r.Form[name]
		if i < len(vals) {
			return vals[i], true
		}
		return "", false
	}
	for i, lid := range r.Form["line_id"] {
		cur, ok := d.Line(lid)
		if !ok {
			continue
		}
		selected := false
		if pid, _ := at("line_product", i); pid != "" && pid != cur.ProductID {
			if err := d.SelectProduct(lid, pid, h.Catalog); err != nil {
				return err
			}
			selected = true
		}
		if !selected {
			if v, ok := at("line_label", i); ok && d.Invoice.Type.AllowsFreeText() {
				_ = d.SetLabel(lid, v)
			}
			if v, ok := at("line_unit", i); ok {
				_ = d.SetUnit(lid, v)
			}
			if v, ok := at("line_price", i); ok {
				_ = d.SetUnitPrice(lid, parseFloat(v))
			}
		}
		if v, ok := at("line_qty", i); ok {
			_ = d.SetQty(lid, parseFloat(v))
		}
	}
	return nil
}

// formOp reads the clicked editor button: "add", or "<op>:<lineID>".
func formOp(r *http.Request) lineOp {
	op := lineOp{ID: idParam(r)}
	raw := r.FormValue("op")
	name, line, _ := strings.Cut(raw, ":")
	op.Op, op.Line = name, line
	if op.Line == "" {
		op.Line = r.FormValue("line")
	}
	switch op.Op {
	case "label":
		op.Label = r.FormValue("label")
	case "product":
		op.ProductID = r.FormValue("productId")
	case "qty":
		q := parseFloat(r.FormValue("qty"))
		op.Qty = &q
	case "unit":
		op.Unit = r.FormValue("unit")
	case "price":
		p := parseFloat(r.FormValue("unitPrice"))
		op.UnitPrice = &p
	}
	return op
}

// Lines applies one editor command to the open draft.
func (h *InvoiceHandler) Lines(w http.ResponseWriter, r *http.Request) {
	var (
		op       lineOp
		fromForm bool
	)
	if httpx.IsJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(&op); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_form", nil)
			return
		}
		op = formOp(r)
		fromForm = true
	}
	if err := h.ensureDraft(op.ID); err != nil {
		status, code := invoiceError(err)
		fail(w, r, status, code, "/invoices")
		return
	}
	inv, err := h.Drafts.Edit(op.ID, func(d *ledger.Draft) error {
		if fromForm {
			if err := h.applyForm(d, r); err != nil {
				return err
			}
		}
		return op.apply(d, h.Catalog)
	})
	if err != nil {
		status, code := invoiceError(err)
		fail(w, r, status, code, editURL(op.ID))
		return
	}
	done(w, r, "", editURL(op.ID), http.StatusOK, h.row(inv))
}

// syncDraft applies a posted editor form and returns the resulting invoice.
func (h *InvoiceHandler) syncDraft(r *http.Request, id string) (models.Invoice, error) {
	if err := h.ensureDraft(id); err != nil {
		return models.Invoice{}, err
	}
	return h.Drafts.Edit(id, func(d *ledger.Draft) error { return h.applyForm(d, r) })
}

// Save stores an invoice: a full JSON invoice, or the posted editor form.
func (h *InvoiceHandler) Save(w http.ResponseWriter, r *http.Request) {
	if httpx.IsJSON(r) {
		var body struct {
			models.Invoice
			Type string `json:"type"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
			return
		}
		v := validation.Violations{}
		validation.Required("type", body.Type, v)
		if v.Empty() {
			validation.OneOf("type", body.Type, typeNames(), v)
		}
		if !v.Empty() {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
			return
		}
		inv := body.Invoice
		inv.Type = models.InvoiceType(body.Type)
		if inv.Date.IsZero() {
			inv.Date = h.Now()
		}
		_, getErr := h.Ledger.Get(inv.ID)
		saved := h.Ledger.Save(r.Context(), inv)
		h.Drafts.Discard(saved.ID)
		status := http.StatusOK
		if inv.ID == "" || getErr != nil {
			status = http.StatusCreated
		}
		httpx.JSON(w, status, h.row(saved))
		return
	}
	if err := r.ParseForm(); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_form", nil)
		return
	}
	id := idParam(r)
	inv, err := h.syncDraft(r, id)
	if err != nil {
		status, code := invoiceError(err)
		fail(w, r, status, code, editURL(id))
		return
	}
	saved := h.Ledger.Save(r.Context(), inv)
	h.Drafts.Discard(id)
	done(w, r, "invoice_saved", "/invoices", http.StatusOK, h.row(saved))
}

// Apply saves the posted editor state then applies it to stock. JSON clients
// send {"id": ..., "force": bool} for an already saved invoice.
func (h *InvoiceHandler) Apply(w http.ResponseWriter, r *http.Request) {
	var (
		id    string
		force bool
	)
	if httpx.IsJSON(r) {
		var body struct {
			ID    string `json:"id"`
			Force bool   `json:"force"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
			return
		}
		id, force = body.ID, body.Force
	} else {
		if err := r.ParseForm(); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_form", nil)
			return
		}
		id, force = idParam(r), formBool(r, "force")
		inv, err := h.syncDraft(r, id)
		if err != nil {
			status, code := invoiceError(err)
			fail(w, r, status, code, editURL(id))
			return
		}
		h.Ledger.Save(r.Context(), inv)
		h.Drafts.Discard(id)
	}
	applied, err := h.Stock.Apply(r.Context(), id, force)
	if err != nil {
		status, code := invoiceError(err)
		if status == http.StatusInternalServerError {
			log.Printf("[invoice] apply %s failed: %v", id, err)
		}
		back := "/invoices"
		if errors.Is(err, services.ErrAlreadyApplied) {
			back = editURL(id)
		}
		fail(w, r, status, code, back)
		return
	}
	done(w, r, "invoice_applied", "/invoices", http.StatusOK, h.row(applied))
}

// Delete removes an invoice and closes its editor.
func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := idParam(r)
	h.Drafts.Discard(id)
	if err := h.Ledger.Delete(r.Context(), id); err != nil {
		fail(w, r, http.StatusNotFound, "invoice_not_found", "/invoices")
		return
	}
	done(w, r, "invoice_deleted", "/invoices", http.StatusOK, map[string]any{"deleted": id})
}

// Close drops the open draft without saving.
func (h *InvoiceHandler) Close(w http.ResponseWriter, r *http.Request) {
	h.Drafts.Discard(idParam(r))
	done(w, r, "", "/invoices", http.StatusOK, map[string]any{"closed": idParam(r)})
}

func typeNames() []string {
	names := make([]string, 0, len(models.InvoiceTypes))
	for _, t := range models.InvoiceTypes {
		names = append(names, string(t))
	}
	return names
}

// Print serves the supplier order sheet. A POST carries the editor form, so the
// printed sheet matches what is on screen even before saving.
func (h *InvoiceHandler) Print(w http.ResponseWriter, r *http.Request) {
	layout, err := printing.ParseLayout(r.FormValue("layout"))
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_value", map[string]string{"layout": "invalid_value"})
		return
	}
	id := idParam(r)
	var inv models.Invoice
	if r.Method == http.MethodPost {
		inv, err = h.syncDraft(r, id)
	} else {
		inv, err = h.current(id)
	}
	if err != nil {
		status, code := invoiceError(err)
		httpx.JSONErrorMessage(w, status, code, "")
		return
	}
	if err := h.Printer.Print(r.Context(), &inv, layout, printing.ResponseViewer{W: w}); err != nil {
		if errors.Is(err, printing.ErrViewerUnavailable) {
			log.Printf("[print] %s: %v", id, err)
			httpx.JSONErrorMessage(w, http.StatusServiceUnavailable, "print_blocked", printing.BlockedMessage)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "render_failed", nil)
	}
}

// PDF serves the detailed order sheet as a PDF download.
func (h *InvoiceHandler) PDF(w http.ResponseWriter, r *http.Request) {
	id := idParam(r)
	inv, err := h.current(id)
	if err != nil {
		status, code := invoiceError(err)
		httpx.JSONErrorMessage(w, status, code, "")
		return
	}
	doc, err := h.Printer.PDF(&inv)
	if err != nil {
		log.Printf("[pdf] %s: %v", id, err)
		httpx.JSONError(w, http.StatusInternalServerError, "render_failed", nil)
		return
	}
	v := printing.ResponseViewer{W: w, Download: "demande-" + inv.ID + ".pdf"}
	if err := v.Open(r.Context(), doc); err != nil {
		log.Printf("[pdf] %s: %v", id, err)
	}
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/diewo77/bar-stock/internal/catalog"
	"github.com/diewo77/bar-stock/internal/config"
	"github.com/diewo77/bar-stock/internal/httpx"
	"github.com/diewo77/bar-stock/internal/middleware"
	"github.com/diewo77/bar-stock/internal/models"
	"github.com/diewo77/bar-stock/internal/search"
	"github.com/diewo77/bar-stock/internal/validation"
	"github.com/diewo77/bar-stock/internal/view"
)

type ProductHandler struct {
	Catalog *catalog.Catalog
	Shop    config.Shop
}

func NewProductHandler(c *catalog.Catalog, shop config.Shop) *ProductHandler {
	return &ProductHandler{Catalog: c, Shop: shop}
}

// query builds the search query from ?q= and the display preferences.
func (h *ProductHandler) query(r *http.Request) search.Query {
	p := middleware.PrefsFrom(r)
	return search.Query{
		Term:    r.URL.Query().Get("q"),
		Key:     p.SortKey,
		Dir:     p.SortDir,
		ShowSKU: h.Catalog.ShowSKU(),
	}
}

// stockBack is the current stock page URL without the dialog parameters.
func stockBack(r *http.Request) string {
	q := r.URL.Query()
	q.Del("edit")
	q.Del("reset")
	if len(q) == 0 {
		return "/stock"
	}
	return "/stock?" + q.Encode()
}

// Page renders the stock page.
func (h *ProductHandler) Page(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{"Flash": middleware.TakeFlash(w, r)}
	if id := r.URL.Query().Get("edit"); id != "" {
		if id == "new" {
			data["Editing"] = h.newProduct()
			data["IsNew"] = true
		} else if p, err := h.Catalog.Get(id); err == nil {
			data["Editing"] = &p
		}
	}
	h.render(w, r, http.StatusOK, data)
}

func (h *ProductHandler) newProduct() *models.Product {
	return &models.Product{Unit: h.Shop.DefaultUnit, OrderMultiple: 1}
}

func (h *ProductHandler) render(w http.ResponseWriter, r *http.Request, status int, data map[string]any) {
	q := h.query(r)
	all := h.Catalog.List()
	products := search.View(all, q)
	prefs := middleware.PrefsFrom(r)
	data["Shop"] = h.Shop
	data["Products"] = products
	data["Total"] = len(all)
	data["Visible"] = len(products)
	data["Query"] = q.Term
	data["Sort"] = string(q.Key)
	data["Dir"] = string(q.Dir)
	data["ToggleDir"] = string(q.Dir.Toggle())
	data["View"] = prefs.View
	data["ShowSKU"] = q.ShowSKU
	data["SortKeys"] = search.SortKeys
	data["LowStock"] = h.Catalog.LowStock()
	data["ResetOpen"] = r.URL.Query().Get("reset") == "1"
	data["Back"] = stockBack(r)
	if status != http.StatusOK {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
	}
	if err := view.Render(w, r, "stock.html", data); err != nil {
		if _, werr := w.Write([]byte("template render error:" + err.Error())); werr != nil {
			_ = werr
		}
	}
}

// List returns the filtered and sorted product list as JSON. Browsers are sent to
// the stock page with the same query.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	if httpx.WantsHTML(r) {
		target := "/stock"
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}
	q := h.query(r)
	all := h.Catalog.List()
	items := search.View(all, q)
	httpx.JSON(w, http.StatusOK, map[string]any{
		"items":    items,
		"total":    len(all),
		"visible":  len(items),
		"lowStock": h.Catalog.LowStock(),
		"sort":     q.Key,
		"dir":      q.Dir,
		"showSku":  q.ShowSKU,
	})
}

// Save creates or updates a product (JSON or HTML form).
func (h *ProductHandler) Save(w http.ResponseWriter, r *http.Request) {
	if httpx.IsJSON(r) {
		var p models.Product
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
			return
		}
		v := validation.Violations{}
		validation.Required("name", p.Name, v)
		if !v.Empty() {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
			return
		}
		_, existed := h.lookup(p.ID)
		saved := h.Catalog.Upsert(r.Context(), p)
		status := http.StatusOK
		if !existed {
			status = http.StatusCreated
		}
		httpx.JSON(w, status, saved)
		return
	}

	// HTML form path
	if err := parseProductForm(r); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		if _, werr := w.Write([]byte("invalid form")); werr != nil {
			_ = werr
		}
		return
	}
	id := strings.TrimSpace(r.FormValue("id"))
	p := models.Product{
		ID:            id,
		Name:          strings.TrimSpace(r.FormValue("name")),
		Brand:         strings.TrimSpace(r.FormValue("brand")),
		Unit:          strings.TrimSpace(r.FormValue("unit")),
		SKU:           strings.TrimSpace(r.FormValue("sku")),
		Stock:         parseInt(r.FormValue("stock")),
		Floor:         parseInt(r.FormValue("floor")),
		OrderMultiple: parseInt(r.FormValue("orderMultiple")),
		UnitPrice:     parsePrice(r.FormValue("unitPrice")),
		PrintQty:      parseFloat(r.FormValue("printQty")),
		Image:         r.FormValue("image"),
	}
	if cur, ok := h.lookup(id); ok && !r.Form.Has("sku") {
		// SKU field hidden: keep the stored value
		p.SKU = cur.SKU
	}
	if formBool(r, "removeImage") {
		p.Image = ""
	}
	v := validation.Violations{}
	validation.Required("name", p.Name, v)
	if img, err := uploadedImage(r); err != nil {
		v["image"] = imageErrorCode(err)
	} else if img != "" {
		p.Image = img
	}
	if !v.Empty() {
		_, existed := h.lookup(id)
		h.render(w, r, http.StatusBadRequest, map[string]any{"Editing": &p, "IsNew": !existed, "Errors": v})
		return
	}
	h.Catalog.Upsert(r.Context(), p)
	http.Redirect(w, r, backTo(r, "/stock"), http.StatusSeeOther)
}

func (h *ProductHandler) lookup(id string) (models.Product, bool) {
	if id == "" {
		return models.Product{}, false
	}
	p, err := h.Catalog.Get(id)
	return p, err == nil
}

func parseProductForm(r *http.Request) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.ParseMultipartForm(catalog.MaxImageBytes + 1<<20)
	}
	return r.ParseForm()
}

// uploadedImage converts the optional "imageFile" upload into a data URL.
func uploadedImage(r *http.Request) (string, error) {
	if r.MultipartForm == nil {
		return "", nil
	}
	f, _, err := r.FormFile("imageFile")
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer f.Close()
	return catalog.ImageDataURL(f, catalog.MaxImageBytes)
}

func imageErrorCode(err error) string {
	switch {
	case errors.Is(err, catalog.ErrImageTooLarge):
		return "image_too_large"
	default:
		return "not_an_image"
	}
}

// Delete removes a product. Invoices keep their lines untouched.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := idParam(r)
	back := backTo(r, "/stock")
	if err := h.Catalog.Delete(r.Context(), id); err != nil {
		fail(w, r, http.StatusNotFound, "product_not_found", back)
		return
	}
	done(w, r, "product_deleted", back, http.StatusOK, map[string]any{"deleted": id})
}

// Stock handles the +/- buttons: op=inc|dec, by defaults to 1.
func (h *ProductHandler) Stock(w http.ResponseWriter, r *http.Request) {
	id := idParam(r)
	back := backTo(r, "/stock")
	by := parseInt(r.FormValue("by"))
	var (
		p   models.Product
		err error
	)
	switch r.FormValue("op") {
	case "inc":
		p, err = h.Catalog.Increment(r.Context(), id, by)
	case "dec":
		p, err = h.Catalog.Decrement(r.Context(), id, by)
	default:
		fail(w, r, http.StatusBadRequest, "invalid_value", back)
		return
	}
	if err != nil {
		fail(w, r, http.StatusNotFound, "product_not_found", back)
		return
	}
	done(w, r, "", back, http.StatusOK, p)
}

// PrintQty stores the desired order quantity ("Qté voulue").
func (h *ProductHandler) PrintQty(w http.ResponseWriter, r *http.Request) {
	id := idParam(r)
	back := backTo(r, "/stock")
	p, err := h.Catalog.SetPrintQty(r.Context(), id, parseFloat(r.FormValue("printQty")))
	if err != nil {
		fail(w, r, http.StatusNotFound, "product_not_found", back)
		return
	}
	done(w, r, "", back, http.StatusOK, p)
}

// Reset zeroes every stock and sets every order multiple to 1. It needs confirm=yes.
func (h *ProductHandler) Reset(w http.ResponseWriter, r *http.Request) {
	back := backTo(r, "/stock")
	if err := h.Catalog.ResetAll(r.Context(), r.FormValue("confirm") == "yes"); err != nil {
		fail(w, r, http.StatusPreconditionRequired, "confirmation_required", back)
		return
	}
	done(w, r, "stock_reset", back, http.StatusOK, map[string]any{"reset": len(h.Catalog.List())})
}

// Image replaces the picture of an existing product with an uploaded file.
func (h *ProductHandler) Image(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(catalog.MaxImageBytes + 1<<20); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_form", nil)
		return
	}
	id := idParam(r)
	back := backTo(r, "/stock")
	p, ok := h.lookup(id)
	if !ok {
		fail(w, r, http.StatusNotFound, "product_not_found", back)
		return
	}
	img, err := uploadedImage(r)
	if err != nil || img == "" {
		code := "not_an_image"
		if err != nil {
			code = imageErrorCode(err)
		}
		fail(w, r, http.StatusUnprocessableEntity, code, back)
		return
	}
	p.Image = img
	saved := h.Catalog.Upsert(r.Context(), p)
	done(w, r, "image_saved", back, http.StatusOK, saved)
}

// ToggleSKU shows or hides the SKU column (show=1|0); it also widens the search.
func (h *ProductHandler) ToggleSKU(w http.ResponseWriter, r *http.Request) {
	show := !h.Catalog.ShowSKU()
	_ = r.ParseForm()
	if r.Form.Has("show") {
		show = formBool(r, "show")
	}
	h.Catalog.SetShowSKU(r.Context(), show)
	done(w, r, "", backTo(r, "/stock"), http.StatusOK, map[string]bool{"showSku": show})
}

// Root sends visitors to the stock page.
func Root(w http.ResponseWriter, r *http.Request) {
	target := url.URL{Path: "/stock", RawQuery: r.URL.RawQuery}
	http.Redirect(w, r, target.String(), http.StatusFound)
}

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/diewo77/bar-stock/internal/catalog"
	"github.com/diewo77/bar-stock/internal/config"
	"github.com/diewo77/bar-stock/internal/middleware"
	"github.com/diewo77/bar-stock/internal/models"
	"github.com/diewo77/bar-stock/internal/store"
	"github.com/diewo77/bar-stock/internal/view"
)

func setupCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c := catalog.New(store.NewMemory())
	c.Load(context.Background())
	return c
}

func useTemplates(t *testing.T) {
	t.Helper()
	view.ResetForTests()
	view.SetBaseDir("../../templates")
	t.Cleanup(view.ResetForTests)
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req
}

func formRequest(target string, form url.Values, accept string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	return req
}

func decodeProduct(t *testing.T, w *httptest.ResponseRecorder) models.Product {
	t.Helper()
	var p models.Product
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode: %v body=%s", err, w.Body.String())
	}
	return p
}

func TestProductSaveJSONCreatesThenUpdates(t *testing.T) {
	c := setupCatalog(t)
	h := NewProductHandler(c, config.DefaultShop())

	w := httptest.NewRecorder()
	h.Save(w, jsonRequest(http.MethodPost, "/products", `{"name":"Perrier","stock":-3,"printQty":-1}`))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", w.Code, w.Body.String())
	}
	created := decodeProduct(t, w)
	if created.ID == "" || created.Stock != 0 || created.PrintQty != 0 || created.Unit != catalog.DefaultUnit {
		t.Fatalf("unexpected product %+v", created)
	}

	w = httptest.NewRecorder()
	h.Save(w, jsonRequest(http.MethodPost, "/products", `{"id":"`+created.ID+`","name":"Perrier 33cl","stock":12}`))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	if got := c.List(); len(got) != 1 || got[0].Name != "Perrier 33cl" || got[0].Stock != 12 {
		t.Fatalf("expected in-place update, got %+v", got)
	}
}

func TestProductSaveJSONRequiresName(t *testing.T) {
	h := NewProductHandler(setupCatalog(t), config.DefaultShop())
	w := httptest.NewRecorder()
	h.Save(w, jsonRequest(http.MethodPost, "/products", `{"name":"  "}`))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "validation_failed") {
		t.Fatalf("expected validation_failed body=%s", w.Body.String())
	}
}

func TestProductSaveFormInvalidRerendersDialog(t *testing.T) {
	useTemplates(t)
	h := NewProductHandler(setupCatalog(t), config.DefaultShop())
	w := httptest.NewRecorder()
	h.Save(w, formRequest("/products", url.Values{"name": {""}, "brand": {"Monin"}}, "text/html"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d body=%s", w.Code, w.Body.String())
	}
	body := w.Body.String()
	if !strings.Contains(body, "Requis") || !strings.Contains(body, `value="Monin"`) {
		t.Fatalf("expected dialog with error and typed values, body=%s", body)
	}
}

func TestProductSaveFormKeepsHiddenSKU(t *testing.T) {
	c := setupCatalog(t)
	p := c.Upsert(context.Background(), models.Product{Name: "Perrier", SKU: "PER-33"})
	h := NewProductHandler(c, config.DefaultShop())
	w := httptest.NewRecorder()
	h.Save(w, formRequest("/products", url.Values{"id": {p.ID}, "name": {"Perrier 50cl"}, "back": {"/stock?q=per"}}, ""))
	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303 got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/stock?q=per" {
		t.Fatalf("unexpected redirect %q", loc)
	}
	got, _ := c.Get(p.ID)
	if got.SKU != "PER-33" || got.Name != "Perrier 50cl" {
		t.Fatalf("unexpected product %+v", got)
	}
}

func TestProductStockButtons(t *testing.T) {
	c := setupCatalog(t)
	p := c.Upsert(context.Background(), models.Product{Name: "Sirop", Stock: 1})
	h := NewProductHandler(c, config.DefaultShop())

	cases := []struct {
		op, by string
		want   int
	}{
		{"inc", "", 2},
		{"inc", "3", 5},
		{"dec", "10", 0},
		{"dec", "0", 0},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		h.Stock(w, formRequest("/products/stock", url.Values{"id": {p.ID}, "op": {tc.op}, "by": {tc.by}}, "application/json"))
		if w.Code != http.StatusOK {
			t.Fatalf("%s %s: expected 200 got %d", tc.op, tc.by, w.Code)
		}
		if got := decodeProduct(t, w); got.Stock != tc.want {
			t.Fatalf("%s %s: expected stock %d got %d", tc.op, tc.by, tc.want, got.Stock)
		}
	}

	w := httptest.NewRecorder()
	h.Stock(w, formRequest("/products/stock", url.Values{"id": {"nope"}, "op": {"inc"}}, "application/json"))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", w.Code)
	}
	w = httptest.NewRecorder()
	h.Stock(w, formRequest("/products/stock", url.Values{"id": {p.ID}, "op": {"double"}}, "application/json"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
}

func TestProductPrintQtyCoerced(t *testing.T) {
	c := setupCatalog(t)
	p := c.Upsert(context.Background(), models.Product{Name: "Coca"})
	h := NewProductHandler(c, config.DefaultShop())
	for in, want := range map[string]float64{"2,5": 2.5, "-4": 0, "abc": 0} {
		w := httptest.NewRecorder()
		h.PrintQty(w, formRequest("/products/print-qty", url.Values{"id": {p.ID}, "printQty": {in}}, "application/json"))
		if got := decodeProduct(t, w); got.PrintQty != want {
			t.Fatalf("%q: expected %v got %v", in, want, got.PrintQty)
		}
	}
}

func TestProductResetNeedsConfirmation(t *testing.T) {
	c := setupCatalog(t)
	c.Upsert(context.Background(), models.Product{Name: "Coca", Stock: 7, OrderMultiple: 24})
	h := NewProductHandler(c, config.DefaultShop())

	w := httptest.NewRecorder()
	h.Reset(w, formRequest("/products/reset", url.Values{}, "application/json"))
	if w.Code != http.StatusPreconditionRequired {
		t.Fatalf("expected 428 got %d", w.Code)
	}
	if got := c.List()[0]; got.Stock != 7 {
		t.Fatalf("reset ran without confirmation: %+v", got)
	}

	w = httptest.NewRecorder()
	h.Reset(w, formRequest("/products/reset", url.Values{"confirm": {"yes"}}, ""))
	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303 got %d", w.Code)
	}
	if got := c.List()[0]; got.Stock != 0 || got.OrderMultiple != 1 {
		t.Fatalf("expected reset product, got %+v", got)
	}
	var flash bool
	for _, ck := range w.Result().Cookies() {
		if ck.Name == "flash" && ck.Value != "" {
			flash = true
		}
	}
	if !flash {
		t.Fatalf("expected flash cookie after reset")
	}
}

func TestProductDelete(t *testing.T) {
	c := setupCatalog(t)
	p := c.Upsert(context.Background(), models.Product{Name: "Coca"})
	h := NewProductHandler(c, config.DefaultShop())
	w := httptest.NewRecorder()
	h.Delete(w, formRequest("/products/delete", url.Values{"id": {p.ID}}, "application/json"))
	if w.Code != http.StatusOK || len(c.List()) != 0 {
		t.Fatalf("expected deletion, code=%d list=%v", w.Code, c.List())
	}
	w = httptest.NewRecorder()
	h.Delete(w, formRequest("/products/delete", url.Values{"id": {p.ID}}, "application/json"))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", w.Code)
	}
}

func TestProductListUsesPrefs(t *testing.T) {
	c := setupCatalog(t)
	ctx := context.Background()
	c.Upsert(ctx, models.Product{Name: "Eau gazeuse", Stock: 3})
	c.Upsert(ctx, models.Product{Name: "Éclair", Stock: 9})
	c.Upsert(ctx, models.Product{Name: "Bière", Stock: 5})
	h := NewProductHandler(c, config.DefaultShop())

	handler := middleware.WithPrefs(http.HandlerFunc(h.List))
	req := httptest.NewRequest(http.MethodGet, "/products?q=e&sort=stock&dir=desc", nil)
	req.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	var resp struct {
		Items   []models.Product `json:"items"`
		Total   int              `json:"total"`
		Visible int              `json:"visible"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 3 || resp.Visible != 3 {
		t.Fatalf("unexpected counts %+v", resp)
	}
	if resp.Items[0].Name != "Éclair" || resp.Items[2].Name != "Eau gazeuse" {
		t.Fatalf("unexpected order %v", resp.Items)
	}
	var sortCookie bool
	for _, ck := range w.Result().Cookies() {
		if ck.Name == "sort" && ck.Value == "stock" {
			sortCookie = true
		}
	}
	if !sortCookie {
		t.Fatalf("expected sort preference cookie")
	}
}

func TestProductListRedirectsBrowsers(t *testing.T) {
	h := NewProductHandler(setupCatalog(t), config.DefaultShop())
	w := httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/products?q=coca", nil))
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/stock?q=coca" {
		t.Fatalf("expected redirect to stock page, got %d %q", w.Code, w.Header().Get("Location"))
	}
}

func TestStockPageHighlightsMatches(t *testing.T) {
	useTemplates(t)
	c := setupCatalog(t)
	c.Upsert(context.Background(), models.Product{Name: "Perrier <33cl>", Brand: "Nestlé", Stock: 1, Floor: 5})
	c.Upsert(context.Background(), models.Product{Name: "Coca"})
	h := NewProductHandler(c, config.DefaultShop())

	w := httptest.NewRecorder()
	h.Page(w, httptest.NewRequest(http.MethodGet, "/stock?q=perr", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	body := w.Body.String()
	if !strings.Contains(body, `<mark class="hl">Perr</mark>ier &lt;33cl&gt;`) {
		t.Fatalf("expected escaped highlighted name, body=%s", body)
	}
	if strings.Contains(body, ">Coca<") {
		t.Fatalf("filtered product rendered")
	}
	if !strings.Contains(body, "Sous seuil") {
		t.Fatalf("expected low-stock panel")
	}
}

func TestStockPageTableViewAndDialogs(t *testing.T) {
	useTemplates(t)
	c := setupCatalog(t)
	p := c.Upsert(context.Background(), models.Product{Name: "Coca", SKU: "CC-33"})
	c.SetShowSKU(context.Background(), true)
	h := NewProductHandler(c, config.DefaultShop())

	handler := middleware.WithPrefs(http.HandlerFunc(h.Page))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stock?view=table&edit="+p.ID+"&reset=1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	body := w.Body.String()
	for _, want := range []string{`<table class="products">`, "CC-33", "Modifier le produit", "Réinitialiser tous les produits"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in page", want)
		}
	}
}

func TestProductImageUpload(t *testing.T) {
	c := setupCatalog(t)
	p := c.Upsert(context.Background(), models.Product{Name: "Coca"})
	h := NewProductHandler(c, config.DefaultShop())

	upload := func(content []byte) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		_ = mw.WriteField("id", p.ID)
		fw, err := mw.CreateFormFile("imageFile", "photo.png")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		_, _ = fw.Write(content)
		_ = mw.Close()
		req := httptest.NewRequest(http.MethodPost, "/products/image", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Accept", "application/json")
		w := httptest.NewRecorder()
		h.Image(w, req)
		return w
	}

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")
	w := upload(png)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	if got := decodeProduct(t, w); !strings.HasPrefix(got.Image, "data:image/png;base64,") {
		t.Fatalf("unexpected image %q", got.Image)
	}

	w = upload([]byte("not a picture at all"))
	if w.Code != http.StatusUnprocessableEntity || !strings.Contains(w.Body.String(), "not_an_image") {
		t.Fatalf("expected 422 not_an_image got %d %s", w.Code, w.Body.String())
	}
}

func TestToggleSKU(t *testing.T) {
	c := setupCatalog(t)
	h := NewProductHandler(c, config.DefaultShop())
	w := httptest.NewRecorder()
	h.ToggleSKU(w, formRequest("/prefs/sku", url.Values{}, "application/json"))
	if !c.ShowSKU() {
		t.Fatalf("expected SKU shown after toggle")
	}
	w = httptest.NewRecorder()
	h.ToggleSKU(w, formRequest("/prefs/sku", url.Values{"show": {"0"}}, "application/json"))
	if c.ShowSKU() {
		t.Fatalf("expected SKU hidden")
	}
	if !strings.Contains(w.Body.String(), `"showSku":false`) {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
}

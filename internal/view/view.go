package view

import (
	"bytes"
	"crypto/sha1"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/diewo77/bar-stock/internal/i18n"
	"github.com/diewo77/bar-stock/internal/search"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	baseDir  string
	once     sync.Once
	tplCache = struct {
		sync.RWMutex
		m map[string]*template.Template
	}{m: map[string]*template.Template{}}
	assetManifest     map[string]string
	assetManifestOnce sync.Once

	location = time.Local
	printer  = message.NewPrinter(language.French)
)

// Placeholder is shown for products without a picture.
var Placeholder = "data:image/svg+xml;utf8," + url.PathEscape(`<svg xmlns='http://www.w3.org/2000/svg' width='800' height='500'>`+
	`<rect width='100%' height='100%' fill='#f1f5f9'/>`+
	`<text x='50%' y='50%' dominant-baseline='middle' text-anchor='middle' fill='#94a3b8' font-family='sans-serif' font-size='22'>Aucune image</text>`+
	`</svg>`)

// SetLocation sets the time zone used to display dates.
func SetLocation(loc *time.Location) {
	if loc != nil {
		location = loc
	}
}

// layoutBase walks upward from a template path to find the directory that contains layout.html.
// If none is found, it returns the template's own directory.
func layoutBase(mainPath string) string {
	d := filepath.Dir(mainPath)
	for {
		lp := filepath.Join(d, "layout.html")
		if fi, err := os.Stat(lp); err == nil && !fi.IsDir() {
			return d
		}
		p := filepath.Dir(d)
		if p == d { // reached filesystem root
			return filepath.Dir(mainPath)
		}
		d = p
	}
}

func detectBase() {
	candidates := []string{"templates", "../templates", "../../templates"}
	for _, c := range candidates {
		if fi, err := os.Stat(filepath.Clean(c)); err == nil && fi.IsDir() {
			baseDir = filepath.Clean(c)
			return
		}
	}
	baseDir = "templates"
}

// Funcs returns the func map shared by every page.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"t":         i18n.T,
		"highlight": Highlight,
		"currency":  Currency,
		"qty":       Qty,
		"date":      Date,
		"dateInput": DateInput,
		"image":     Image,
		"year":      func() int { return time.Now().Year() },
		"asset":     func(path string) string { return resolveAsset(path) },
		// dict creates a map from key-value pairs for passing to sub-templates.
		// Usage: {{ template "partial" (dict "Key1" val1 "Key2" val2) }}
		"dict": func(values ...any) map[string]any {
			if len(values)%2 != 0 {
				return nil
			}
			m := make(map[string]any, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					continue
				}
				m[key] = values[i+1]
			}
			return m
		},
	}
}

// Highlight wraps case-insensitive occurrences of term in <mark>. Everything else
// is escaped.
func Highlight(text, term string) template.HTML {
	var b strings.Builder
	for _, s := range search.Highlight(text, term) {
		if s.Match {
			b.WriteString(`<mark class="hl">`)
			b.WriteString(template.HTMLEscapeString(s.Text))
			b.WriteString("</mark>")
			continue
		}
		b.WriteString(template.HTMLEscapeString(s.Text))
	}
	return template.HTML(b.String())
}

// Currency formats an amount in euros the French way; a missing amount prints a dash.
func Currency(v any) string {
	var f float64
	switch n := v.(type) {
	case nil:
		return "—"
	case *float64:
		if n == nil {
			return "—"
		}
		f = *n
	case float64:
		f = n
	case int:
		f = float64(n)
	case decimal.Decimal:
		f = n.InexactFloat64()
	default:
		return "—"
	}
	return printer.Sprintf("%.2f €", f)
}

// Qty prints a quantity without trailing zeros.
func Qty(q float64) string {
	return printer.Sprint(q)
}

// Date renders dd/mm/yyyy hh:mm.
func Date(t time.Time) string {
	return t.In(location).Format("02/01/2006 15:04")
}

// DateInput renders the value of a datetime-local input.
func DateInput(t time.Time) string {
	return t.In(location).Format("2006-01-02T15:04")
}

// ParseDateInput is the reverse of DateInput.
func ParseDateInput(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02T15:04", s, location)
}

// Image returns a safe src for a product picture, falling back to the placeholder.
func Image(src string) template.URL {
	switch {
	case strings.HasPrefix(src, "data:image/"),
		strings.HasPrefix(src, "https://"),
		strings.HasPrefix(src, "http://"),
		strings.HasPrefix(src, "/"):
		return template.URL(src)
	}
	return template.URL(Placeholder)
}

// versionedAsset returns /static/<name>?v=<hash> for cache busting.
func versionedAsset(rel string) string {
	// If absolute URL or starts with http, return as-is
	if strings.HasPrefix(rel, "http://") || strings.HasPrefix(rel, "https://") || strings.HasPrefix(rel, "//") {
		return rel
	}
	p := filepath.Join("static", rel)
	b, err := os.ReadFile(p)
	if err != nil {
		return "/static/" + rel
	}
	h := sha1.Sum(b)
	return "/static/" + rel + "?v=" + fmt.Sprintf("%x", h[:8])
}

// resolveAsset prefers a hashed filename from manifest.json then falls back to query param versioning.
func resolveAsset(rel string) string {
	dev := os.Getenv("DEV") == "1"
	if dev {
		parseManifest() // reload each request in dev
	} else {
		assetManifestOnce.Do(parseManifest)
	}
	if assetManifest != nil {
		if h, ok := assetManifest[rel]; ok {
			return "/static/" + h
		}
	}
	return versionedAsset(rel)
}

func parseManifest() {
	mf := filepath.Join("static", "manifest.json")
	b, err := os.ReadFile(mf)
	if err != nil {
		return
	}
	var m map[string]string
	if err := json.Unmarshal(b, &m); err != nil {
		return
	}
	assetManifest = m
}

// SetBaseDir overrides the template base directory (useful for tests or custom setups).
func SetBaseDir(path string) {
	if path == "" {
		return
	}
	baseDir = filepath.Clean(path)
	once = sync.Once{}
}

// ResetForTests clears caches and forces base dir detection to rerun.
// Intended for test code to avoid cross-test pollution when working directories change.
func ResetForTests() {
	tplCache.Lock()
	tplCache.m = map[string]*template.Template{}
	tplCache.Unlock()
	baseDir = ""
	once = sync.Once{}
}

// Render parses and executes a single template file wrapped in layout.html.
// name should be the filename (e.g., "stock.html"). The page is rendered into a
// buffer first so a template error never leaves a half-written response.
func Render(w http.ResponseWriter, r *http.Request, name string, data map[string]any) error {
	if baseDir == "" {
		once.Do(detectBase)
	}
	if data == nil {
		data = map[string]any{}
	}
	if _, exists := data["Year"]; !exists {
		data["Year"] = time.Now().Year()
	}
	if _, exists := data["Path"]; !exists {
		data["Path"] = r.URL.Path
	}
	t, err := lookup(name)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return err
	}
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	}
	_, err = buf.WriteTo(w)
	return err
}

func lookup(name string) (*template.Template, error) {
	devMode := os.Getenv("DEV") == "1"
	if !devMode {
		tplCache.RLock()
		t, ok := tplCache.m[name]
		tplCache.RUnlock()
		if ok && t != nil {
			return t, nil
		}
	}

	mainPath := filepath.Join(baseDir, name)
	if _, err := os.Stat(mainPath); err != nil {
		// Attempt dynamic fallback search across relative parent levels
		candidates := []string{
			filepath.Join("templates", name),
			filepath.Join("../templates", name),
			filepath.Join("../../templates", name),
			filepath.Join("../../../templates", name),
		}
		for _, c := range candidates {
			if fi, e2 := os.Stat(c); e2 == nil && !fi.IsDir() {
				mainPath = c
				break
			}
		}
		if _, err2 := os.Stat(mainPath); err2 != nil {
			return nil, err
		}
	}
	// Align baseDir to the directory that owns layout.html (typically the templates root)
	baseDir = layoutBase(mainPath)
	layoutPath := filepath.Join(baseDir, "layout.html")

	var t *template.Template
	if fi, err := os.Stat(layoutPath); err == nil && !fi.IsDir() {
		files := []string{layoutPath, mainPath}
		if partials, _ := filepath.Glob(filepath.Join(baseDir, "partials", "*.html")); len(partials) > 0 {
			files = append(files, partials...)
		}
		parsed, err := template.New("layout.html").Funcs(Funcs()).ParseFiles(files...)
		if err != nil {
			return nil, err
		}
		t = parsed
	} else {
		parsed, err := template.New(name).Funcs(Funcs()).ParseFiles(mainPath)
		if err != nil {
			return nil, err
		}
		t = parsed
	}
	if !devMode {
		tplCache.Lock()
		tplCache.m[name] = t
		tplCache.Unlock()
	}
	if t == nil {
		return nil, errors.New("template not cached")
	}
	return t, nil
}

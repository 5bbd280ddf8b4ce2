package middleware

import (
	"context"
	"net/http"
	"net/url"

	"github.com/diewo77/bar-stock/internal/i18n"
	"github.com/diewo77/bar-stock/internal/search"
)

type ctxKey string

const ctxPrefs ctxKey = "prefs"

// View modes of the product list.
const (
	ViewGrid  = "grid"
	ViewTable = "table"
)

// Prefs are the per-browser display preferences of the stock page.
type Prefs struct {
	View    string
	SortKey search.SortKey
	SortDir search.SortDir
}

// DefaultPrefs is grid view sorted by name ascending.
func DefaultPrefs() Prefs {
	return Prefs{View: ViewGrid, SortKey: search.SortName, SortDir: search.Asc}
}

const cookieMaxAge = 86400 * 30

// WithPrefs reads view/sort/dir (query > cookie > default), persists query-provided
// values in cookies for ~30 days and stores the result in the request context.
func WithPrefs(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := DefaultPrefs()
		q := r.URL.Query()

		if v := pick(w, r, q, "view"); v == ViewGrid || v == ViewTable {
			p.View = v
		}
		if k, err := search.ParseSortKey(pick(w, r, q, "sort")); err == nil {
			p.SortKey = k
		}
		if d, err := search.ParseSortDir(pick(w, r, q, "dir")); err == nil {
			p.SortDir = d
		}
		ctx := context.WithValue(r.Context(), ctxPrefs, p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func pick(w http.ResponseWriter, r *http.Request, q url.Values, name string) string {
	if v := q.Get(name); v != "" {
		http.SetCookie(w, &http.Cookie{Name: name, Value: v, Path: "/", MaxAge: cookieMaxAge})
		return v
	}
	if c, err := r.Cookie(name); err == nil {
		return c.Value
	}
	return ""
}

// PrefsFrom returns the preferences stored by WithPrefs, or the defaults.
func PrefsFrom(r *http.Request) Prefs {
	if p, ok := r.Context().Value(ctxPrefs).(Prefs); ok {
		return p
	}
	return DefaultPrefs()
}

// Flash sets a translated flash message cookie using translation code (or literal if missing).
func Flash(w http.ResponseWriter, code string) {
	msg := i18n.T(code)
	http.SetCookie(w, &http.Cookie{Name: "flash", Value: url.QueryEscape(msg), Path: "/"})
}

// TakeFlash returns the pending flash message and clears the cookie.
func TakeFlash(w http.ResponseWriter, r *http.Request) string {
	c, err := r.Cookie("flash")
	if err != nil || c.Value == "" {
		return ""
	}
	http.SetCookie(w, &http.Cookie{Name: "flash", Value: "", Path: "/", MaxAge: -1})
	msg, err := url.QueryUnescape(c.Value)
	if err != nil {
		return ""
	}
	return msg
}

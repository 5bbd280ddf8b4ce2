package handlers

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/diewo77/bar-stock/internal/httpx"
	"github.com/diewo77/bar-stock/internal/i18n"
	"github.com/diewo77/bar-stock/internal/middleware"
)

// done answers a successful command: flash + 303 back to the page for browsers,
// JSON payload for API clients.
func done(w http.ResponseWriter, r *http.Request, code, back string, status int, payload any) {
	if httpx.WantsHTML(r) {
		if code != "" {
			middleware.Flash(w, code)
		}
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}
	httpx.JSON(w, status, payload)
}

// fail answers a failed command the same way, with an error code.
func fail(w http.ResponseWriter, r *http.Request, status int, code, back string) {
	if httpx.WantsHTML(r) {
		middleware.Flash(w, code)
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}
	httpx.JSONErrorMessage(w, status, code, i18n.T(code))
}

// backTo returns the local path given in the "back" form field, or def.
func backTo(r *http.Request, def string) string {
	b := r.FormValue("back")
	if strings.HasPrefix(b, "/") && !strings.HasPrefix(b, "//") && !strings.Contains(b, "\\") {
		return b
	}
	return def
}

func idParam(r *http.Request) string {
	if id := r.URL.Query().Get("id"); id != "" {
		return id
	}
	return strings.TrimSpace(r.FormValue("id"))
}

// parseFloat coerces form input: anything unparsable or non-finite is 0.
func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func parseInt(s string) int {
	return int(math.Round(parseFloat(s)))
}

// parsePrice returns nil for empty, zero or invalid input.
func parsePrice(s string) *float64 {
	f := parseFloat(s)
	if f == 0 {
		return nil
	}
	return &f
}

func formBool(r *http.Request, name string) bool {
	switch strings.ToLower(r.FormValue(name)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

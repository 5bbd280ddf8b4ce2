// Package search derives the displayed product list from the catalog:
// accent-insensitive filtering, locale-aware sorting and match highlighting.
package search

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strings"
	"unicode"

	"github.com/diewo77/bar-stock/internal/models"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SortKey names a sortable product column.
type SortKey string

const (
	SortName          SortKey = "name"
	SortBrand         SortKey = "brand"
	SortUnitPrice     SortKey = "unitPrice"
	SortStock         SortKey = "stock"
	SortFloor         SortKey = "floor"
	SortOrderMultiple SortKey = "orderMultiple"
	SortPrintQty      SortKey = "printQty"
)

// SortKeys lists the keys in selector order.
var SortKeys = []SortKey{SortName, SortBrand, SortUnitPrice, SortStock, SortFloor, SortOrderMultiple, SortPrintQty}

// SortDir is asc or desc.
type SortDir string

const (
	Asc  SortDir = "asc"
	Desc SortDir = "desc"
)

// ParseSortKey validates a raw sort key.
func ParseSortKey(s string) (SortKey, error) {
	for _, k := range SortKeys {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown sort key %q", s)
}

// ParseSortDir validates a raw direction.
func ParseSortDir(s string) (SortDir, error) {
	switch SortDir(s) {
	case Asc, Desc:
		return SortDir(s), nil
	}
	return "", fmt.Errorf("unknown sort direction %q", s)
}

// Toggle flips the direction.
func (d SortDir) Toggle() SortDir {
	if d == Desc {
		return Asc
	}
	return Desc
}

// Query is everything the derived view depends on.
type Query struct {
	Term    string
	Key     SortKey
	Dir     SortDir
	ShowSKU bool
}

// View filters then sorts a copy of products. The input slice is left untouched.
func View(products []models.Product, q Query) []models.Product {
	out := Filter(products, q.Term, q.ShowSKU)
	Sort(out, q.Key, q.Dir)
	return out
}

var stripMarks = runes.Remove(runes.In(unicode.Mn))

// Fold removes accents and lower-cases s.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, stripMarks, norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// Matches reports whether the folded term is a substring of the product's name or
// brand, or of its SKU when showSKU is set. An empty term matches everything.
func Matches(p *models.Product, term string, showSKU bool) bool {
	ft := Fold(term)
	if ft == "" {
		return true
	}
	return strings.Contains(Fold(p.Name), ft) ||
		strings.Contains(Fold(p.Brand), ft) ||
		(showSKU && strings.Contains(Fold(p.SKU), ft))
}

// Filter returns the products matching term, in their original order.
func Filter(products []models.Product, term string, showSKU bool) []models.Product {
	out := make([]models.Product, 0, len(products))
	for i := range products {
		if Matches(&products[i], term, showSKU) {
			out = append(out, products[i])
		}
	}
	return out
}

// Sort orders products in place. Numeric keys push absent or non-finite values
// last whatever the direction; name and brand use French collation and break ties
// on each other.
func Sort(products []models.Product, key SortKey, dir SortDir) {
	col := collate.New(language.French, collate.Loose)
	cmpText := func(a, b string) int {
		return col.CompareString(normalize(a), normalize(b))
	}
	sign := 1
	if dir == Desc {
		sign = -1
	}
	slices.SortStableFunc(products, func(a, b models.Product) int {
		switch key {
		case SortName:
			if base := cmpText(a.Name, b.Name); base != 0 {
				return sign * base
			}
			return cmpText(a.Brand, b.Brand)
		case SortBrand:
			base := cmpText(a.Brand, b.Brand)
			if base == 0 {
				base = cmpText(a.Name, b.Name)
			}
			return sign * base
		case SortUnitPrice, SortStock, SortFloor, SortOrderMultiple, SortPrintQty:
			av, aok := numeric(&a, key)
			bv, bok := numeric(&b, key)
			switch {
			case !aok && !bok:
				return 0
			case !aok:
				return 1
			case !bok:
				return -1
			}
			return sign * cmpFloat(av, bv)
		}
		return 0
	})
}

func normalize(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// numeric returns the key's value and whether it is a finite number.
func numeric(p *models.Product, key SortKey) (float64, bool) {
	var v float64
	switch key {
	case SortUnitPrice:
		if p.UnitPrice == nil {
			return 0, false
		}
		v = *p.UnitPrice
	case SortStock:
		v = float64(p.Stock)
	case SortFloor:
		v = float64(p.Floor)
	case SortOrderMultiple:
		v = float64(p.OrderMultiple)
	case SortPrintQty:
		v = p.PrintQty
	default:
		return 0, false
	}
	return v, !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Segment is a run of text, Match marking the parts to emphasize.
type Segment struct {
	Text  string
	Match bool
}

// Highlight splits text around case-insensitive occurrences of the literal term.
// It is presentation only: it does not fold accents, unlike Matches.
func Highlight(text, term string) []Segment {
	t := strings.TrimSpace(term)
	if t == "" || text == "" {
		return []Segment{{Text: text}}
	}
	re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(t))
	if err != nil {
		return []Segment{{Text: text}}
	}
	idx := re.FindAllStringIndex(text, -1)
	if len(idx) == 0 {
		return []Segment{{Text: text}}
	}
	segs := make([]Segment, 0, 2*len(idx)+1)
	last := 0
	for _, m := range idx {
		if m[0] > last {
			segs = append(segs, Segment{Text: text[last:m[0]]})
		}
		segs = append(segs, Segment{Text: text[m[0]:m[1]], Match: true})
		last = m[1]
	}
	if last < len(text) {
		segs = append(segs, Segment{Text: text[last:]})
	}
	return segs
}

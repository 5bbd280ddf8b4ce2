package ledger

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/diewo77/bar-stock/internal/models"
	"github.com/google/uuid"
)

var (
	ErrCatalogOnly    = errors.New("catalog_only")
	ErrUnknownProduct = errors.New("unknown_product")
	ErrLineNotFound   = errors.New("line_not_found")
	ErrDraftNotFound  = errors.New("draft_not_found")
)

// Default values of a freshly added line.
const (
	DefaultLineUnit = "unité"
	DefaultLineQty  = 1
)

// ProductLookup resolves a product reference at selection time.
type ProductLookup interface {
	Get(id string) (models.Product, error)
}

// Draft is an invoice being edited. Nothing it does touches the ledger until the
// invoice is saved.
type Draft struct {
	Invoice models.Invoice
}

// NewDraft wraps a deep copy of inv.
func NewDraft(inv models.Invoice) *Draft {
	return &Draft{Invoice: inv.Clone()}
}

// AddLine appends an empty line and returns its id.
func (d *Draft) AddLine() string {
	l := models.InvoiceLine{
		ID:        uuid.NewString(),
		Qty:       DefaultLineQty,
		Unit:      DefaultLineUnit,
		UnitPrice: models.Float(0),
	}
	d.Invoice.Lines = append(d.Invoice.Lines, l)
	return l.ID
}

func (d *Draft) line(id string) (*models.InvoiceLine, error) {
	i := slices.IndexFunc(d.Invoice.Lines, func(l models.InvoiceLine) bool { return l.ID == id })
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrLineNotFound, id)
	}
	return &d.Invoice.Lines[i], nil
}

// Line returns a copy of the line with the given id.
func (d *Draft) Line(id string) (models.InvoiceLine, bool) {
	l, err := d.line(id)
	if err != nil {
		return models.InvoiceLine{}, false
	}
	return *l, true
}

// SetLabel types a free-text label. Blank invoices only accept catalog products.
func (d *Draft) SetLabel(lineID, label string) error {
	if !d.Invoice.Type.AllowsFreeText() {
		return ErrCatalogOnly
	}
	l, err := d.line(lineID)
	if err != nil {
		return err
	}
	l.Label = label
	return nil
}

// SelectProduct points the line at a catalog product and copies its label, unit
// and price as they are now. Later catalog edits do not flow back into the line.
func (d *Draft) SelectProduct(lineID, productID string, products ProductLookup) error {
	l, err := d.line(lineID)
	if err != nil {
		return err
	}
	p, err := products.Get(productID)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnknownProduct, productID)
	}
	l.ProductID = p.ID
	l.Label = p.Label()
	l.Unit = p.Unit
	l.UnitPrice = nil
	if p.UnitPrice != nil {
		l.UnitPrice = models.Float(*p.UnitPrice)
	}
	return nil
}

// SetQty stores any finite quantity, fractional and negative included.
func (d *Draft) SetQty(lineID string, qty float64) error {
	l, err := d.line(lineID)
	if err != nil {
		return err
	}
	if math.IsNaN(qty) || math.IsInf(qty, 0) {
		qty = 0
	}
	l.Qty = qty
	return nil
}

// StepQty adds delta to the quantity, the minus button stopping at zero.
func (d *Draft) StepQty(lineID string, delta float64) error {
	l, err := d.line(lineID)
	if err != nil {
		return err
	}
	l.Qty += delta
	if delta < 0 {
		l.Qty = math.Max(0, l.Qty)
	}
	return nil
}

func (d *Draft) SetUnit(lineID, unit string) error {
	l, err := d.line(lineID)
	if err != nil {
		return err
	}
	l.Unit = unit
	return nil
}

// SetUnitPrice stores the price; 0 or an invalid number means no price.
func (d *Draft) SetUnitPrice(lineID string, price float64) error {
	l, err := d.line(lineID)
	if err != nil {
		return err
	}
	if price == 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		l.UnitPrice = nil
		return nil
	}
	l.UnitPrice = models.Float(price)
	return nil
}

func (d *Draft) RemoveLine(lineID string) error {
	i := slices.IndexFunc(d.Invoice.Lines, func(l models.InvoiceLine) bool { return l.ID == lineID })
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrLineNotFound, lineID)
	}
	d.Invoice.Lines = slices.Delete(d.Invoice.Lines, i, i+1)
	return nil
}

// SetType switches the invoice kind. Existing lines are kept as they are.
func (d *Draft) SetType(t models.InvoiceType) {
	d.Invoice.Type = t
}

func (d *Draft) SetDate(at time.Time) { d.Invoice.Date = at }
func (d *Draft) SetNotes(notes string) { d.Invoice.Notes = notes }
func (d *Draft) SetAffectsStock(on bool) { d.Invoice.AffectsStock = on }

// DraftIdleTimeout is how long an untouched draft stays open.
const DraftIdleTimeout = 12 * time.Hour

type openDraft struct {
	draft   *Draft
	touched time.Time
}

// Drafts keeps the invoices currently open in an editor, keyed by invoice id.
// Drafts idle for longer than IdleTimeout are discarded.
type Drafts struct {
	IdleTimeout time.Duration
	now         func() time.Time

	mu sync.Mutex
	m  map[string]*openDraft
}

func NewDrafts() *Drafts {
	return &Drafts{IdleTimeout: DraftIdleTimeout, now: time.Now, m: map[string]*openDraft{}}
}

// Open starts (or restarts) editing inv.
func (s *Drafts) Open(inv models.Invoice) models.Invoice {
	d := NewDraft(inv)
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.evict(now)
	s.m[inv.ID] = &openDraft{draft: d, touched: now}
	return d.Invoice.Clone()
}

// evict drops the idle drafts. Callers hold s.mu.
func (s *Drafts) evict(now time.Time) {
	for id, o := range s.m {
		if now.Sub(o.touched) > s.IdleTimeout {
			delete(s.m, id)
		}
	}
}

// lookup returns the open draft and marks it as used. Callers hold s.mu.
func (s *Drafts) lookup(id string) (*Draft, bool) {
	o, ok := s.m[id]
	if !ok {
		return nil, false
	}
	now := s.now()
	if now.Sub(o.touched) > s.IdleTimeout {
		delete(s.m, id)
		return nil, false
	}
	o.touched = now
	return o.draft, true
}

// Get returns a copy of the draft state.
func (s *Drafts) Get(id string) (models.Invoice, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.lookup(id)
	if !ok {
		return models.Invoice{}, false
	}
	return d.Invoice.Clone(), true
}

// Edit runs fn against the draft under lock and returns the resulting state.
func (s *Drafts) Edit(id string, fn func(*Draft) error) (models.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.lookup(id)
	if !ok {
		return models.Invoice{}, fmt.Errorf("%w: %s", ErrDraftNotFound, id)
	}
	if err := fn(d); err != nil {
		return d.Invoice.Clone(), err
	}
	return d.Invoice.Clone(), nil
}

// Discard closes the editor for id.
func (s *Drafts) Discard(id string) {
	s.mu.Lock()
	delete(s.m, id)
	s.mu.Unlock()
}

// Len returns the number of open drafts.
func (s *Drafts) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

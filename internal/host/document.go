package host

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/roach88/bimbridge/internal/ir"
)

var (
	// ErrElementNotFound is returned for ids that do not resolve.
	ErrElementNotFound = errors.New("element not found")
	// ErrNoTransaction is returned when a mutation runs outside a transaction.
	ErrNoTransaction = errors.New("modification outside of a transaction")
	// ErrTransactionOpen is returned when a second transaction is started.
	ErrTransactionOpen = errors.New("a transaction is already open")
	// ErrPinned is returned when a pinned element is moved, rotated or mirrored.
	ErrPinned = errors.New("element is pinned")
)

// Region is an enclosed rectangular area on a level in which a room can
// be placed. Coordinates are internal units.
type Region struct {
	LevelID ir.ElementID
	Min     ir.XYZ
	Max     ir.XYZ
}

// Contains reports whether (x, y) lies inside r.
func (r Region) Contains(x, y float64) bool {
	return x >= r.Min.X && x <= r.Max.X && y >= r.Min.Y && y <= r.Max.Y
}

// Area returns the region's plan area in square feet.
func (r Region) Area() float64 {
	return (r.Max.X - r.Min.X) * (r.Max.Y - r.Min.Y)
}

// Perimeter returns the region's plan perimeter in internal units.
func (r Region) Perimeter() float64 {
	return 2 * ((r.Max.X - r.Min.X) + (r.Max.Y - r.Min.Y))
}

// idClock hands out element ids. Ids are never reused, even when a
// transaction that created an element rolls back.
type idClock struct {
	seq atomic.Int64
}

func (c *idClock) next() ir.ElementID {
	return ir.ElementID(c.seq.Add(1))
}

// observe raises the clock so future ids exceed id.
func (c *idClock) observe(id ir.ElementID) {
	for {
		cur := c.seq.Load()
		if int64(id) <= cur || c.seq.CompareAndSwap(cur, int64(id)) {
			return
		}
	}
}

// Document is the host's in-memory model.
//
// CRITICAL: a Document is owned by exactly one goroutine (the Loop). It has
// no internal locking. Mutations must run inside a Transaction; reads may
// run at any time on the owning goroutine.
type Document struct {
	title      string
	elements   map[ir.ElementID]*Element
	ids        idClock
	activeView ir.ElementID
	selection  []ir.ElementID
	regions    []Region

	// viewFamilies lists the view types the document can create.
	viewFamilies map[ViewType]bool

	tx       *Transaction
	txSeq    int64
	observer TxObserver
}

// NewDocument creates an empty document that can create floor, ceiling
// and 3D views.
func NewDocument() *Document {
	return &Document{
		title:    "Untitled",
		elements: make(map[ir.ElementID]*Element),
		viewFamilies: map[ViewType]bool{
			ViewFloorPlan:   true,
			ViewCeilingPlan: true,
			ViewThreeD:      true,
		},
	}
}

// Title returns the document title.
func (d *Document) Title() string {
	return d.title
}

// SetTitle renames the document. Blank titles are ignored.
func (d *Document) SetTitle(title string) {
	if t := strings.TrimSpace(title); t != "" {
		d.title = t
	}
}

// SetViewFamilies replaces the set of creatable view types.
func (d *Document) SetViewFamilies(types ...ViewType) {
	d.viewFamilies = make(map[ViewType]bool, len(types))
	for _, t := range types {
		d.viewFamilies[t] = true
	}
}

// SetObserver installs a callback invoked after every commit or rollback.
func (d *Document) SetObserver(o TxObserver) {
	d.observer = o
}

// Seed adds an element outside any transaction. It is used to build
// documents from scenes and in tests. An element with ID 0 is assigned a
// fresh id.
func (d *Document) Seed(e *Element) (*Element, error) {
	if e.ID == 0 {
		e.ID = d.ids.next()
	}
	if _, exists := d.elements[e.ID]; exists {
		return nil, fmt.Errorf("seed element %d: duplicate id", e.ID)
	}
	d.ids.observe(e.ID)
	d.elements[e.ID] = e
	return e, nil
}

// AddRegion registers an enclosed region for room placement.
func (d *Document) AddRegion(r Region) {
	d.regions = append(d.regions, r)
}

// Element resolves id to a live element.
func (d *Document) Element(id ir.ElementID) (*Element, bool) {
	e, ok := d.elements[id]
	return e, ok
}

// Elements returns every element ordered by id.
func (d *Document) Elements() []*Element {
	out := make([]*Element, 0, len(d.elements))
	for _, e := range d.elements {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b *Element) int {
		return compareID(a.ID, b.ID)
	})
	return out
}

// ElementsOfKind returns elements of kind k ordered by id.
func (d *Document) ElementsOfKind(k ElementKind) []*Element {
	var out []*Element
	for _, e := range d.Elements() {
		if e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}

// Levels returns levels ordered by elevation, then id.
func (d *Document) Levels() []*Element {
	levels := d.ElementsOfKind(KindLevel)
	slices.SortStableFunc(levels, func(a, b *Element) int {
		switch {
		case a.Level.Elevation < b.Level.Elevation:
			return -1
		case a.Level.Elevation > b.Level.Elevation:
			return 1
		}
		return 0
	})
	return levels
}

// ActiveView returns the active view element, or nil if none is set.
func (d *Document) ActiveView() *Element {
	e, ok := d.elements[d.activeView]
	if !ok || e.View == nil {
		return nil
	}
	return e
}

// SetActiveView switches the active view. Switching views is not a
// document modification and needs no transaction.
func (d *Document) SetActiveView(id ir.ElementID) error {
	if _, err := d.view(id); err != nil {
		return err
	}
	d.activeView = id
	return nil
}

// Selection returns the current selection.
func (d *Document) Selection() []ir.ElementID {
	return slices.Clone(d.selection)
}

// SetSelection replaces the current selection. Selection is UI state and
// needs no transaction.
func (d *Document) SetSelection(ids []ir.ElementID) {
	d.selection = slices.Clone(ids)
}

// InTransaction reports whether a transaction is open.
func (d *Document) InTransaction() bool {
	return d.tx != nil
}

// record appends an undo step to the open transaction.
func (d *Document) record(undo func()) error {
	if d.tx == nil {
		return ErrNoTransaction
	}
	d.tx.undo = append(d.tx.undo, undo)
	return nil
}

// insert adds a new element inside the open transaction.
func (d *Document) insert(e *Element) error {
	if e.ID == 0 {
		e.ID = d.ids.next()
	}
	id := e.ID
	if err := d.record(func() { delete(d.elements, id) }); err != nil {
		return err
	}
	d.elements[id] = e
	return nil
}

// Warn posts a failure message to the open transaction. Failure
// preprocessors see it at commit.
func (d *Document) Warn(severity Severity, message string, ids ...ir.ElementID) {
	if d.tx == nil {
		return
	}
	d.tx.warnings = append(d.tx.warnings, Warning{
		Severity:   severity,
		Message:    message,
		ElementIDs: ids,
	})
}

func compareID(a, b ir.ElementID) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
